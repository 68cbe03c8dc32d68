package scanner

import (
	"context"
	"log/slog"

	"dgcat/internal/catalog"
	"dgcat/internal/config"
	"dgcat/internal/dedupe"
	"dgcat/internal/faults"
	"dgcat/internal/fingerprint"
	"dgcat/internal/logging"
	"dgcat/internal/walker"
)

// Options control one scan invocation.
type Options struct {
	Root      string
	Subfolder string
	// SkipHash degrades fingerprints to size-only; files are then grouped
	// into candidate groups that a later hashing scan can upgrade.
	SkipHash bool
	// OnFile, when set, is called for every yielded entry before it is
	// processed. Used for progress display.
	OnFile func(entry walker.Entry)
}

// Result summarizes a completed scan.
type Result struct {
	FilesSeen   int
	FilesNew    int
	FilesKnown  int
	FilesHashed int
	Faults      faults.Summary
}

// Scanner drives one scan pass: walk, fingerprint on size collision, group,
// and commit catalog rows as it goes.
type Scanner struct {
	cfg    *config.Config
	store  *catalog.Store
	walker *walker.Walker
	calc   *fingerprint.Calculator
	engine *dedupe.Engine
	logger *slog.Logger
}

// New wires a Scanner from its collaborators.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		cfg:    cfg,
		store:  store,
		walker: walker.New(cfg, logger),
		calc:   fingerprint.New(cfg),
		engine: dedupe.New(store, logger),
		logger: logging.WithComponent(logger, "scanner"),
	}
}

// Scan runs one pass over the tree. Re-scanning an unchanged tree is
// idempotent: known paths only refresh last_seen. Fingerprint failures
// accumulate in the result's fault summary; path and catalog failures abort.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	// Sizes whose buckets gained members this pass; candidate grouping for
	// skip-hash runs happens per bucket after the walk.
	touchedSizes := make(map[int64]struct{})

	walkErr := s.walker.Walk(ctx, opts.Root, opts.Subfolder, func(entry walker.Entry) error {
		if opts.OnFile != nil {
			opts.OnFile(entry)
		}
		result.FilesSeen++
		return s.processEntry(ctx, entry, opts.SkipHash, result, touchedSizes)
	}, func(path string, err error) {
		s.logger.Warn("skipping unreadable entry", logging.String("path", path), logging.Error(err))
		result.Faults.Add(faults.Wrap(faults.ErrFingerprint, "scanner", "walk", path, err))
	})
	if walkErr != nil {
		return result, walkErr
	}

	if opts.SkipHash {
		for size := range touchedSizes {
			if err := s.engine.RecordCandidates(ctx, size); err != nil {
				return result, err
			}
		}
	} else {
		if err := s.upgradeCandidates(ctx, result); err != nil {
			return result, err
		}
	}

	if err := s.store.RecomputeStatistics(ctx); err != nil {
		return result, faults.Wrap(faults.ErrCatalog, "scanner", "scan", "recompute statistics", err)
	}
	if err := s.store.MarkScanCompleted(ctx); err != nil {
		return result, faults.Wrap(faults.ErrCatalog, "scanner", "scan", "mark scan completed", err)
	}

	s.logger.Info("scan completed",
		logging.Int("seen", result.FilesSeen),
		logging.Int("new", result.FilesNew),
		logging.Int("known", result.FilesKnown),
		logging.Int("hashed", result.FilesHashed),
		logging.Int("faults", result.Faults.Len()))
	return result, nil
}

func (s *Scanner) processEntry(ctx context.Context, entry walker.Entry, skipHash bool, result *Result, touchedSizes map[int64]struct{}) error {
	known, err := s.store.FileByPath(ctx, entry.Path)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "lookup path", err)
	}
	if known != nil {
		// Refresh last_seen and move on; identity was settled on an
		// earlier pass.
		if _, err := s.store.RecordFile(ctx, catalog.NewFileRecord{
			OriginalPath: entry.Path,
			FileName:     entry.Name,
			SizeBytes:    entry.SizeBytes,
			CreatedAt:    entry.CreatedAt,
			Year:         entry.Year,
			Month:        entry.Month,
			MonthDay:     entry.MonthDay,
			ProjectName:  entry.Project,
		}); err != nil {
			return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "refresh record", err)
		}
		if err := s.store.RecordPath(ctx, known.ID, entry.Path, catalog.PathOriginal); err != nil {
			return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "refresh path", err)
		}
		result.FilesKnown++
		return nil
	}

	fileID, err := s.store.RecordFile(ctx, catalog.NewFileRecord{
		OriginalPath: entry.Path,
		FileName:     entry.Name,
		SizeBytes:    entry.SizeBytes,
		CreatedAt:    entry.CreatedAt,
		Year:         entry.Year,
		Month:        entry.Month,
		MonthDay:     entry.MonthDay,
		ProjectName:  entry.Project,
	})
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "record file", err)
	}
	if err := s.store.RecordPath(ctx, fileID, entry.Path, catalog.PathOriginal); err != nil {
		return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "record path", err)
	}
	result.FilesNew++
	touchedSizes[entry.SizeBytes] = struct{}{}

	if !skipHash {
		if err := s.resolveBucket(ctx, entry, result); err != nil {
			return err
		}
	}

	if err := s.store.SetConsolidationStatus(ctx, fileID, catalog.StatusScanned); err != nil {
		return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "mark scanned", err)
	}
	return nil
}

// upgradeCandidates resolves the size-only groups left by earlier skip-hash
// scans: members are hashed and regrouped, which either confirms them as
// duplicates or dissolves the candidate group.
func (s *Scanner) upgradeCandidates(ctx context.Context, result *Result) error {
	candidates, err := s.store.CandidateGroups(ctx)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "load candidate groups", err)
	}
	for _, group := range candidates {
		s.logger.Info("upgrading candidate group", logging.Int64("size_bytes", group.SizeBytes))
		if err := s.hashBucket(ctx, group.SizeBytes, result); err != nil {
			return err
		}
	}
	return nil
}

// resolveBucket hashes the new file when its size bucket already holds other
// members, hashes any members still lacking a hash, and regroups every
// fingerprint that gained a member. A file with a unique size is never hashed.
func (s *Scanner) resolveBucket(ctx context.Context, entry walker.Entry, result *Result) error {
	bucket, err := s.store.FilesBySize(ctx, entry.SizeBytes)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "load size bucket", err)
	}
	if len(bucket) <= 1 {
		return nil
	}

	s.logger.Debug("size collision, fingerprinting bucket",
		logging.Int64("size_bytes", entry.SizeBytes),
		logging.Int("members", len(bucket)))
	return s.hashBucket(ctx, entry.SizeBytes, result)
}

// hashBucket fingerprints every unhashed member of a size bucket and regroups
// the fingerprints that gained members.
func (s *Scanner) hashBucket(ctx context.Context, sizeBytes int64, result *Result) error {
	bucket, err := s.store.FilesBySize(ctx, sizeBytes)
	if err != nil {
		return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "load size bucket", err)
	}

	touchedHashes := make(map[string]struct{})
	for _, member := range bucket {
		if member.HashKind != catalog.HashNone {
			continue
		}
		fp, err := s.calc.Fingerprint(ctx, member.OriginalPath, member.SizeBytes)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			// Unreadable file: excluded from grouping this pass.
			s.logger.Warn("fingerprint failed", logging.String("path", member.OriginalPath), logging.Error(err))
			result.Faults.Add(err)
			continue
		}
		if err := s.store.UpdateFileHash(ctx, member.ID, fp.Hash, fp.Kind); err != nil {
			return faults.Wrap(faults.ErrCatalog, "scanner", "scan", "store hash", err)
		}
		result.FilesHashed++
		touchedHashes[fp.Hash] = struct{}{}
	}

	for hash := range touchedHashes {
		if err := s.engine.Regroup(ctx, sizeBytes, hash); err != nil {
			return err
		}
	}
	return nil
}
