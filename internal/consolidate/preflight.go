package consolidate

import (
	"os"
	"path/filepath"

	"dgcat/internal/faults"
	"dgcat/internal/logging"
)

// Preflight vets a plan before any mutation: the destination volume must
// hold the bytes being moved and every directory touched by the plan must be
// writable. Any failure aborts the whole run; partial consolidation from a
// failed preflight is never acceptable.
func (c *Consolidator) Preflight(plan *Plan) error {
	destProbe := nearestExisting(c.filesDir)

	free, err := c.caps.FreeSpace(destProbe)
	if err != nil {
		return faults.Wrap(faults.ErrPreflight, "consolidate", "preflight", "destination volume", err)
	}
	if free < uint64(plan.MoveBytes) {
		return faults.Wrap(faults.ErrPreflight, "consolidate", "preflight",
			"insufficient space on destination volume", nil)
	}

	if err := c.caps.Writable(destProbe); err != nil {
		return faults.Wrap(faults.ErrPreflight, "consolidate", "preflight", "destination not writable", err)
	}

	sourceDirs := make(map[string]struct{})
	for _, op := range plan.Operations {
		sourceDirs[filepath.Dir(op.Source)] = struct{}{}
	}
	for dir := range sourceDirs {
		if _, err := os.Stat(dir); err != nil {
			// A vanished source directory surfaces per-file at execute;
			// it must not block the rest of the batch.
			continue
		}
		if err := c.caps.Writable(dir); err != nil {
			return faults.Wrap(faults.ErrPreflight, "consolidate", "preflight", "source not writable", err)
		}
	}

	c.logger.Debug("preflight passed",
		logging.Int64("move_bytes", plan.MoveBytes),
		logging.Int("source_dirs", len(sourceDirs)))
	return nil
}

// nearestExisting walks up from path to the closest directory that exists,
// so free-space and writability probes work before the catalog layout has
// been created.
func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
