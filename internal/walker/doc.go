// Package walker enumerates recognized video files under a scan root laid
// out as year/month/month_day/project. It yields entries lazily, never
// follows symlinks, and reports unreadable entries without aborting the walk.
package walker
