package dedupe

import (
	"context"
	"log/slog"
	"os"

	"dgcat/internal/catalog"
	"dgcat/internal/faults"
	"dgcat/internal/logging"
)

// Engine maintains the invariant that all file records sharing a
// (size, hash) fingerprint belong to exactly one confirmed duplicate group
// with a stable master.
type Engine struct {
	store  *catalog.Store
	logger *slog.Logger
}

// New builds a grouping engine over the catalog store.
func New(store *catalog.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:  store,
		logger: logging.WithComponent(logger, "dedupe"),
	}
}

// Regroup recomputes group membership for one fingerprint after a hash was
// stored. A singleton fingerprint dissolves its group; two or more members
// form (or refresh) exactly one confirmed group. The existing master is kept
// whenever it is still a member, so re-runs never thrash consolidated paths.
func (e *Engine) Regroup(ctx context.Context, sizeBytes int64, hash string) error {
	members, err := e.store.FilesByFingerprint(ctx, sizeBytes, hash)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "regroup", "load fingerprint members", err)
	}

	existing, err := e.store.GroupByFingerprint(ctx, sizeBytes, hash)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "regroup", "load group", err)
	}

	if len(members) <= 1 {
		if existing != nil {
			if err := e.store.DeleteGroup(ctx, existing.ID); err != nil {
				return faults.Wrap(faults.ErrCatalog, "dedupe", "regroup", "dissolve singleton group", err)
			}
		}
		for _, member := range members {
			if err := e.store.AssignFileGroup(ctx, member.ID, nil, false); err != nil {
				return faults.Wrap(faults.ErrCatalog, "dedupe", "regroup", "clear membership", err)
			}
		}
		return nil
	}

	master := members[0]
	if existing != nil {
		for _, member := range members {
			if member.ID == existing.MasterFileID {
				master = member
				break
			}
		}
	}

	groupID, err := e.store.EnsureHashGroup(ctx, sizeBytes, hash, master.ID)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "regroup", "ensure group", err)
	}
	if err := e.store.SetGroupMaster(ctx, groupID, master.ID); err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "regroup", "set master", err)
	}

	var redundant int64
	for _, member := range members {
		isDuplicate := member.ID != master.ID
		if isDuplicate {
			redundant += member.SizeBytes
		}
		gid := groupID
		if err := e.store.AssignFileGroup(ctx, member.ID, &gid, isDuplicate); err != nil {
			return faults.Wrap(faults.ErrCatalog, "dedupe", "regroup", "assign member", err)
		}
	}
	if err := e.store.UpdateGroupTotals(ctx, groupID, len(members), redundant); err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "regroup", "update totals", err)
	}

	// A hashed bucket no longer needs its size-only candidate group once
	// every member carries a hash.
	return e.pruneCandidateGroup(ctx, sizeBytes)
}

// RecordCandidates forms or refreshes the size-only candidate group for a
// bucket scanned with hashing disabled. Members stay non-duplicates; a later
// hashing scan upgrades or dissolves the group.
func (e *Engine) RecordCandidates(ctx context.Context, sizeBytes int64) error {
	unhashed, err := e.store.FilesNeedingHash(ctx, sizeBytes)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "candidates", "load bucket", err)
	}
	if len(unhashed) <= 1 {
		return e.pruneCandidateGroup(ctx, sizeBytes)
	}

	groupID, err := e.store.EnsureCandidateGroup(ctx, sizeBytes)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "candidates", "ensure group", err)
	}
	for _, member := range unhashed {
		gid := groupID
		if err := e.store.AssignFileGroup(ctx, member.ID, &gid, false); err != nil {
			return faults.Wrap(faults.ErrCatalog, "dedupe", "candidates", "assign member", err)
		}
	}
	if err := e.store.UpdateGroupTotals(ctx, groupID, len(unhashed), 0); err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "candidates", "update totals", err)
	}
	e.logger.Debug("candidate group recorded", logging.Int64("size_bytes", sizeBytes), logging.Int("members", len(unhashed)))
	return nil
}

func (e *Engine) pruneCandidateGroup(ctx context.Context, sizeBytes int64) error {
	candidate, err := e.store.CandidateGroupBySize(ctx, sizeBytes)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "candidates", "load candidate group", err)
	}
	if candidate == nil {
		return nil
	}
	unhashed, err := e.store.FilesNeedingHash(ctx, sizeBytes)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "candidates", "recheck bucket", err)
	}
	if len(unhashed) > 1 {
		return nil
	}
	if err := e.store.DeleteGroup(ctx, candidate.ID); err != nil {
		return faults.Wrap(faults.ErrCatalog, "dedupe", "candidates", "dissolve candidate group", err)
	}
	return nil
}

// ReelectMasters is the recovery pass for groups whose master file vanished
// between runs. Re-election is rare and deliberate, never silent: every
// change is logged at WARN.
func (e *Engine) ReelectMasters(ctx context.Context) (int, error) {
	groups, err := e.store.ConfirmedGroups(ctx)
	if err != nil {
		return 0, faults.Wrap(faults.ErrCatalog, "dedupe", "reelect", "load groups", err)
	}

	reelected := 0
	for _, group := range groups {
		master, err := e.store.FileByID(ctx, group.MasterFileID)
		if err != nil {
			return reelected, faults.Wrap(faults.ErrCatalog, "dedupe", "reelect", "load master", err)
		}
		if master != nil && e.masterPresent(ctx, master) {
			continue
		}

		members, err := e.store.GroupMembers(ctx, group.ID)
		if err != nil {
			return reelected, faults.Wrap(faults.ErrCatalog, "dedupe", "reelect", "load members", err)
		}
		var replacement *catalog.FileRecord
		for _, member := range members {
			if master != nil && member.ID == master.ID {
				continue
			}
			if member.Status == catalog.StatusLinked {
				continue
			}
			if e.masterPresent(ctx, member) {
				replacement = member
				break
			}
		}
		if replacement == nil {
			e.logger.Warn("group master missing and no member has a surviving copy",
				logging.Int64("group_id", group.ID),
				logging.String("hash", group.Hash))
			continue
		}

		// member_count and total_redundant_bytes stay valid through a master
		// swap: every member of a hash group shares file_size_bytes, so the
		// non-master sum is the same no matter which member holds the title.
		if err := e.store.SetGroupMaster(ctx, group.ID, replacement.ID); err != nil {
			return reelected, faults.Wrap(faults.ErrCatalog, "dedupe", "reelect", "set master", err)
		}
		if err := e.store.AssignFileGroup(ctx, replacement.ID, &group.ID, false); err != nil {
			return reelected, faults.Wrap(faults.ErrCatalog, "dedupe", "reelect", "promote member", err)
		}
		if master != nil {
			if err := e.store.AssignFileGroup(ctx, master.ID, &group.ID, true); err != nil {
				return reelected, faults.Wrap(faults.ErrCatalog, "dedupe", "reelect", "demote master", err)
			}
		}
		reelected++
		e.logger.Warn("re-elected group master",
			logging.Int64("group_id", group.ID),
			logging.String("hash", group.Hash),
			logging.String("new_master", replacement.OriginalPath))
	}
	return reelected, nil
}

// masterPresent reports whether a record still has a physical copy on disk,
// at its consolidated destination when one is recorded, otherwise at its
// original path.
func (e *Engine) masterPresent(ctx context.Context, rec *catalog.FileRecord) bool {
	if rec.Status == catalog.StatusConsolidated {
		if dest, err := e.store.ConsolidatedPathForFile(ctx, rec.ID); err == nil && dest != "" {
			if _, statErr := os.Stat(dest); statErr == nil {
				return true
			}
		}
		return false
	}
	info, err := os.Lstat(rec.OriginalPath)
	if err != nil {
		return false
	}
	// A symlink left at the original path is not a surviving physical copy.
	return info.Mode().IsRegular()
}
