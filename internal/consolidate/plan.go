package consolidate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dgcat/internal/catalog"
	"dgcat/internal/faults"
	"dgcat/internal/logging"
)

// OpKind distinguishes the two mutations consolidation performs.
type OpKind string

const (
	// OpMove relocates a unique or master file to its consolidated
	// destination.
	OpMove OpKind = "move"
	// OpLink replaces a duplicate's original file with a symlink to its
	// master's consolidated destination.
	OpLink OpKind = "link"
)

// Operation is one planned filesystem mutation. Link operations carry the
// relative target the symlink will point at.
type Operation struct {
	Kind        OpKind
	FileID      int64
	GroupID     int64
	Source      string
	Destination string
	LinkTarget  string
	SizeBytes   int64
}

// Plan is the immutable output of the plan phase: the ordered operation list
// execute will perform, moves before links. Building a plan performs zero
// filesystem writes and zero catalog mutations.
type Plan struct {
	SessionID  string
	Root       string
	Operations []Operation
	MoveBytes  int64
	MoveCount  int
	LinkCount  int
	// Skipped records files the plan could not place (vanished source,
	// unportable link target). They stay retryable.
	Skipped faults.Summary
}

// Build computes the consolidation plan for the catalog's current state:
// every unconsolidated unique, every pending group master, and a link per
// unlinked non-master duplicate.
func (c *Consolidator) Build(ctx context.Context) (*Plan, error) {
	plan := &Plan{
		SessionID: uuid.NewString(),
		Root:      c.root,
	}
	resolver := newDestinationResolver(c.filesDir, c.cfg.Consolidation.MaxFilenameLength, c.store)

	uniques, err := c.store.UnconsolidatedUniques(ctx)
	if err != nil {
		return nil, faults.Wrap(faults.ErrCatalog, "consolidate", "plan", "load uniques", err)
	}
	for _, rec := range uniques {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.planMove(ctx, plan, resolver, rec, 0); err != nil {
			return nil, err
		}
	}

	groups, err := c.store.GroupsPendingConsolidation(ctx)
	if err != nil {
		return nil, faults.Wrap(faults.ErrCatalog, "consolidate", "plan", "load groups", err)
	}
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.planGroup(ctx, plan, resolver, group); err != nil {
			return nil, err
		}
	}

	c.logger.Info("plan built",
		logging.String("session_id", plan.SessionID),
		logging.Int("moves", plan.MoveCount),
		logging.Int("links", plan.LinkCount),
		logging.Int64("move_bytes", plan.MoveBytes),
		logging.Int("skipped", plan.Skipped.Len()))
	return plan, nil
}

// planMove appends a move operation for one unique or master file.
func (c *Consolidator) planMove(ctx context.Context, plan *Plan, resolver *destinationResolver, rec *catalog.FileRecord, groupID int64) error {
	dest, err := resolver.resolve(ctx, rec.Hash, rec.FileName)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "plan", "resolve destination", err)
	}
	plan.Operations = append(plan.Operations, Operation{
		Kind:        OpMove,
		FileID:      rec.ID,
		GroupID:     groupID,
		Source:      rec.OriginalPath,
		Destination: dest,
		SizeBytes:   rec.SizeBytes,
	})
	plan.MoveBytes += rec.SizeBytes
	plan.MoveCount++
	return nil
}

// planGroup appends the master's move (when still pending) and one link per
// unlinked duplicate. The master's destination is settled here, before any
// member operation, so execute never races on the group's layout.
func (c *Consolidator) planGroup(ctx context.Context, plan *Plan, resolver *destinationResolver, group *catalog.DuplicateGroup) error {
	members, err := c.store.GroupMembers(ctx, group.ID)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "consolidate", "plan", "load members", err)
	}

	var master *catalog.FileRecord
	for _, member := range members {
		if member.ID == group.MasterFileID {
			master = member
			break
		}
	}
	if master == nil {
		c.logger.Warn("group has no master on record, skipping",
			logging.Int64("group_id", group.ID),
			logging.String("hash", group.Hash))
		plan.Skipped.Add(faults.Wrap(faults.ErrConsolidationStep, "consolidate", "plan", "group without master", nil))
		return nil
	}

	var masterDest string
	switch master.Status {
	case catalog.StatusConsolidated:
		masterDest, err = c.store.ConsolidatedPathForFile(ctx, master.ID)
		if err != nil {
			return faults.Wrap(faults.ErrCatalog, "consolidate", "plan", "load master destination", err)
		}
		if masterDest == "" {
			c.logger.Warn("consolidated master missing destination record, skipping group",
				logging.Int64("group_id", group.ID))
			plan.Skipped.Add(faults.Wrap(faults.ErrConsolidationStep, "consolidate", "plan", "master destination unknown", nil))
			return nil
		}
	default:
		if err := c.planMove(ctx, plan, resolver, master, group.ID); err != nil {
			return err
		}
		masterDest = plan.Operations[len(plan.Operations)-1].Destination
	}

	for _, member := range members {
		if member.ID == master.ID || member.Status == catalog.StatusLinked {
			continue
		}
		target, err := c.linkTarget(member.OriginalPath, masterDest)
		if err != nil {
			c.logger.Warn("skipping unportable symlink",
				logging.String("path", member.OriginalPath),
				logging.Error(err))
			plan.Skipped.Add(faults.Wrap(faults.ErrConsolidationStep, "consolidate", "plan", member.OriginalPath, err))
			continue
		}
		plan.Operations = append(plan.Operations, Operation{
			Kind:        OpLink,
			FileID:      member.ID,
			GroupID:     group.ID,
			Source:      member.OriginalPath,
			Destination: masterDest,
			LinkTarget:  target,
			SizeBytes:   member.SizeBytes,
		})
		plan.LinkCount++
	}
	return nil
}

// linkTarget computes the relative symlink target from a duplicate's original
// location to the master's consolidated destination. Relative targets survive
// the share being mounted at different roots; targets climbing too many
// levels are rejected as unportable.
func (c *Consolidator) linkTarget(linkPath, masterDest string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(linkPath), masterDest)
	if err != nil {
		return "", err
	}
	depth := 0
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".." {
			depth++
		}
	}
	if depth >= c.cfg.Consolidation.MaxSymlinkDepth {
		return "", fmt.Errorf("relative link target climbs %d levels", depth)
	}
	return rel, nil
}
