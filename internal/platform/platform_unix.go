//go:build !windows

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type native struct{}

// MarkHidden is a no-op: the catalog directory's dot-prefixed name already
// hides it on POSIX filesystems.
func (native) MarkHidden(path string) error {
	return nil
}

func (native) FreeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

func (native) Writable(path string) error {
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("access %s: %w", path, err)
	}
	return nil
}
