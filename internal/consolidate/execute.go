package consolidate

import (
	"context"
	"os"
	"path/filepath"

	"dgcat/internal/catalog"
	"dgcat/internal/faults"
	"dgcat/internal/fileutil"
	"dgcat/internal/logging"
)

// Result summarizes an execute pass.
type Result struct {
	Moved   int
	Linked  int
	Skipped int
	Faults  faults.Summary
}

// Execute performs a plan: all moves first, then all links. Each filesystem
// operation is followed immediately by its catalog commit, so an interrupted
// run resumes by skipping records already in a terminal status. A single
// failed operation is recorded, leaves its record retryable, and never stops
// the batch.
func (c *Consolidator) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	result := &Result{}

	if err := c.ensureLayout(); err != nil {
		return result, err
	}

	for _, op := range plan.Operations {
		if op.Kind != OpMove {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := c.executeMove(ctx, op, result); err != nil {
			return result, err
		}
	}

	touchedGroups := make(map[int64]struct{})
	for _, op := range plan.Operations {
		if op.Kind != OpLink {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := c.executeLink(ctx, op, result); err != nil {
			return result, err
		}
		touchedGroups[op.GroupID] = struct{}{}
	}

	for groupID := range touchedGroups {
		if err := c.closeGroup(ctx, groupID); err != nil {
			return result, err
		}
	}

	if err := c.store.RecomputeStatistics(ctx); err != nil {
		return result, faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "recompute statistics", err)
	}

	c.logger.Info("execute completed",
		logging.Int("moved", result.Moved),
		logging.Int("linked", result.Linked),
		logging.Int("skipped", result.Skipped),
		logging.Int("faults", result.Faults.Len()))
	return result, nil
}

// ensureLayout creates the catalog directory tree and asks the platform to
// hide it from file browsers.
func (c *Consolidator) ensureLayout() error {
	catalogDir := c.cfg.CatalogDir(c.root)
	if err := os.MkdirAll(c.filesDir, 0o755); err != nil {
		return faults.Wrap(faults.ErrConsolidationStep, "consolidate", "execute", "create catalog layout", err)
	}
	if err := c.caps.MarkHidden(catalogDir); err != nil {
		c.logger.Warn("could not mark catalog directory hidden", logging.Error(err))
	}
	return nil
}

func (c *Consolidator) executeMove(ctx context.Context, op Operation, result *Result) error {
	rec, err := c.store.FileByID(ctx, op.FileID)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "load record", err)
	}
	if rec == nil || rec.Status.Terminal() {
		// Already done on an earlier, interrupted run.
		result.Skipped++
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(op.Destination), 0o755); err != nil {
		c.recordStepFault(result, op, "create destination directory", err)
		return nil
	}
	if err := fileutil.MoveFile(op.Source, op.Destination); err != nil {
		c.recordStepFault(result, op, "move", err)
		return nil
	}

	// The filesystem mutation is done; commit it before anything else.
	if err := c.store.RecordPath(ctx, op.FileID, op.Destination, catalog.PathConsolidated); err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "record consolidated path", err)
	}
	if err := c.store.SetConsolidationStatus(ctx, op.FileID, catalog.StatusConsolidated); err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "mark consolidated", err)
	}
	result.Moved++
	c.logger.Debug("consolidated", logging.String("from", op.Source), logging.String("to", op.Destination))
	return nil
}

func (c *Consolidator) executeLink(ctx context.Context, op Operation, result *Result) error {
	rec, err := c.store.FileByID(ctx, op.FileID)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "load record", err)
	}
	if rec == nil || rec.Status == catalog.StatusLinked {
		result.Skipped++
		return nil
	}

	// The master's consolidated copy must exist before its duplicates are
	// touched; a failed master move leaves the whole group's links pending.
	if _, err := os.Stat(op.Destination); err != nil {
		c.recordStepFault(result, op, "master copy missing", err)
		return nil
	}

	srcInfo, err := os.Lstat(op.Source)
	if err != nil {
		if os.IsNotExist(err) {
			// The duplicate vanished on its own; nothing left to replace.
			c.logger.Warn("duplicate original already missing, marking linked",
				logging.String("path", op.Source),
				logging.String("master", op.Destination))
			if err := c.store.SetConsolidationStatus(ctx, op.FileID, catalog.StatusLinked); err != nil {
				return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "mark linked", err)
			}
			result.Skipped++
			return nil
		}
		c.recordStepFault(result, op, "inspect duplicate", err)
		return nil
	}
	if !srcInfo.Mode().IsRegular() {
		// Already a symlink from an interrupted run.
		if err := c.finishLink(ctx, op); err != nil {
			return err
		}
		result.Skipped++
		return nil
	}

	if err := os.Remove(op.Source); err != nil {
		c.recordStepFault(result, op, "remove duplicate", err)
		return nil
	}
	if err := c.caps.Symlink(op.LinkTarget, op.Source); err != nil {
		c.recordStepFault(result, op, "create symlink", err)
		return nil
	}

	if err := c.finishLink(ctx, op); err != nil {
		return err
	}
	result.Linked++
	c.logger.Debug("linked", logging.String("path", op.Source), logging.String("target", op.LinkTarget))
	return nil
}

func (c *Consolidator) finishLink(ctx context.Context, op Operation) error {
	if err := c.store.RecordPath(ctx, op.FileID, op.Source, catalog.PathSymlink); err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "record symlink path", err)
	}
	if err := c.store.SetConsolidationStatus(ctx, op.FileID, catalog.StatusLinked); err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "mark linked", err)
	}
	return nil
}

// closeGroup stamps a group consolidated once every member is terminal.
func (c *Consolidator) closeGroup(ctx context.Context, groupID int64) error {
	members, err := c.store.GroupMembers(ctx, groupID)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "load members", err)
	}
	for _, member := range members {
		if !member.Status.Terminal() {
			return nil
		}
	}
	if err := c.store.MarkGroupConsolidated(ctx, groupID); err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "execute", "mark group consolidated", err)
	}
	return nil
}

// recordStepFault logs a per-file failure and accumulates it; the record's
// status is untouched so a later run retries the operation.
func (c *Consolidator) recordStepFault(result *Result, op Operation, message string, err error) {
	c.logger.Warn("consolidation step failed",
		logging.String("kind", string(op.Kind)),
		logging.String("path", op.Source),
		logging.String("step", message),
		logging.Error(err))
	result.Faults.Add(faults.Wrap(faults.ErrConsolidationStep, "consolidate", string(op.Kind), op.Source+": "+message, err))
}
