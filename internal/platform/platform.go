package platform

import (
	"os"
)

// Capabilities abstracts the OS-specific calls the engine needs so core logic
// never branches on GOOS directly.
type Capabilities interface {
	// MarkHidden hides a directory from file browsers. On POSIX systems the
	// dot-prefixed name is already hidden and this is a no-op.
	MarkHidden(path string) error
	// Symlink creates a symbolic link at linkPath pointing at target. Target
	// may be relative to the link's directory.
	Symlink(target, linkPath string) error
	// FreeSpace reports the available bytes on the volume holding path. The
	// path must exist; callers pass the nearest existing ancestor.
	FreeSpace(path string) (uint64, error)
	// Writable reports whether the current process can create entries in the
	// directory at path.
	Writable(path string) error
}

// New returns the capability set for the current OS.
func New() Capabilities {
	return native{}
}

func (native) Symlink(target, linkPath string) error {
	return os.Symlink(target, linkPath)
}
