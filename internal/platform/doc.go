// Package platform isolates the OS-specific calls needed by the consolidation
// engine: hiding the catalog directory, creating symlinks, and the preflight
// free-space and writability probes. Core packages depend only on the
// Capabilities interface; the build selects the POSIX or Windows variant.
package platform
