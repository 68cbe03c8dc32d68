// Package consolidate relocates unique and master files into the
// content-addressed layout under the catalog directory and replaces duplicate
// originals with relative symlinks to their master's consolidated copy.
//
// The work is split into an explicit two-phase protocol. Build produces an
// immutable Plan without mutating anything, which makes dry-run a first-class
// mode rather than a flag threaded through mutation code. Preflight verifies
// space and permissions before the first mutation. Execute performs moves
// before links; each filesystem operation commits its catalog row immediately
// so an interrupted run resumes exactly where it stopped.
package consolidate
