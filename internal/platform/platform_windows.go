//go:build windows

package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

type native struct{}

func (native) MarkHidden(path string) error {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("encode path %s: %w", path, err)
	}
	attrs, err := windows.GetFileAttributes(ptr)
	if err != nil {
		return fmt.Errorf("get attributes %s: %w", path, err)
	}
	if attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0 {
		return nil
	}
	if err := windows.SetFileAttributes(ptr, attrs|windows.FILE_ATTRIBUTE_HIDDEN); err != nil {
		return fmt.Errorf("set hidden attribute %s: %w", path, err)
	}
	return nil
}

func (native) FreeSpace(path string) (uint64, error) {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("encode path %s: %w", path, err)
	}
	var available, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &available, &total, &free); err != nil {
		return 0, fmt.Errorf("disk free space %s: %w", path, err)
	}
	return available, nil
}

// Writable probes with a temporary file since Windows has no access(2)
// equivalent that respects ACLs reliably.
func (native) Writable(path string) error {
	probe, err := os.CreateTemp(path, ".dgcat_probe_*")
	if err != nil {
		return fmt.Errorf("write probe in %s: %w", path, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(filepath.Clean(name))
	return nil
}
