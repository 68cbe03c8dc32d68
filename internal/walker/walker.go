package walker

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dgcat/internal/config"
	"dgcat/internal/faults"
	"dgcat/internal/logging"
)

// Entry is one recognized video file yielded by a walk, with the calendar and
// project metadata derived from its position in the tree.
type Entry struct {
	Path      string
	Name      string
	SizeBytes int64
	CreatedAt string

	Year     string
	Month    string
	MonthDay string
	Project  string
}

// Func receives each yielded entry. Returning an error stops the walk and the
// error propagates to the caller.
type Func func(Entry) error

// SkipFunc receives per-entry failures (unreadable file or directory). The
// walk continues after each call.
type SkipFunc func(path string, err error)

// Walker enumerates candidate media files under a scan root laid out as
// <root>/<year>/<month>/<month_day>/<project>/... Files outside that
// structure are never yielded. Purely enumerative; no side effects.
type Walker struct {
	extensions     map[string]struct{}
	catalogDirName string
	logger         *slog.Logger
}

// New builds a Walker from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Walker{
		extensions:     cfg.ExtensionSet(),
		catalogDirName: cfg.Catalog.DirName,
		logger:         logging.WithComponent(logger, "walker"),
	}
}

// Walk enumerates recognized files under root, or under the year/month
// subfolder when one is given. A missing or unreadable root is fatal; a
// single unreadable entry is reported through onSkip and the walk continues.
func (w *Walker) Walk(ctx context.Context, root, subfolder string, fn Func, onSkip SkipFunc) error {
	if onSkip == nil {
		onSkip = func(string, error) {}
	}

	root, err := config.ExpandPath(root)
	if err != nil {
		return faults.Wrap(faults.ErrPath, "walker", "walk", "resolve scan root", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return faults.Wrap(faults.ErrPath, "walker", "walk", "stat scan root", err)
	}
	if !info.IsDir() {
		return faults.Wrap(faults.ErrPath, "walker", "walk", "scan root is not a directory", nil)
	}

	if subfolder != "" {
		return w.walkSubfolder(ctx, root, subfolder, fn, onSkip)
	}
	return w.walkFull(ctx, root, fn, onSkip)
}

// walkFull descends the four fixed levels: year, month, month_day, project.
func (w *Walker) walkFull(ctx context.Context, root string, fn Func, onSkip SkipFunc) error {
	years, err := w.listDirs(root, onSkip)
	if err != nil {
		return faults.Wrap(faults.ErrPath, "walker", "walk", "read scan root", err)
	}
	for _, year := range years {
		months, err := w.listDirs(filepath.Join(root, year), onSkip)
		if err != nil {
			onSkip(filepath.Join(root, year), err)
			continue
		}
		for _, month := range months {
			if err := w.walkMonth(ctx, root, year, month, fn, onSkip); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkSubfolder restricts the walk to one <year>/<month> branch.
func (w *Walker) walkSubfolder(ctx context.Context, root, subfolder string, fn Func, onSkip SkipFunc) error {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(subfolder)), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == ".." || parts[1] == ".." {
		return faults.Wrap(faults.ErrPath, "walker", "walk", "subfolder must be <year>/<month> relative to the scan root", nil)
	}
	year, month := parts[0], parts[1]

	branch := filepath.Join(root, year, month)
	info, err := os.Stat(branch)
	if err != nil {
		return faults.Wrap(faults.ErrPath, "walker", "walk", "stat subfolder", err)
	}
	if !info.IsDir() {
		return faults.Wrap(faults.ErrPath, "walker", "walk", "subfolder is not a directory", nil)
	}
	return w.walkMonth(ctx, root, year, month, fn, onSkip)
}

func (w *Walker) walkMonth(ctx context.Context, root, year, month string, fn Func, onSkip SkipFunc) error {
	monthDir := filepath.Join(root, year, month)
	days, err := w.listDirs(monthDir, onSkip)
	if err != nil {
		onSkip(monthDir, err)
		return nil
	}
	for _, day := range days {
		dayDir := filepath.Join(monthDir, day)
		projects, err := w.listDirs(dayDir, onSkip)
		if err != nil {
			onSkip(dayDir, err)
			continue
		}
		for _, project := range projects {
			if err := ctx.Err(); err != nil {
				return err
			}
			meta := Entry{Year: year, Month: month, MonthDay: day, Project: project}
			if err := w.walkProject(ctx, filepath.Join(dayDir, project), meta, fn, onSkip); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkProject yields every recognized file anywhere under one project folder.
// Symlinks are never followed or yielded; consolidation introduces them and a
// second scan must not re-ingest their targets.
func (w *Walker) walkProject(ctx context.Context, dir string, meta Entry, fn Func, onSkip SkipFunc) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			onSkip(path, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || name == w.catalogDirName) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := w.extensions[ext]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			onSkip(path, err)
			return nil
		}

		entry := meta
		entry.Path = path
		entry.Name = d.Name()
		entry.SizeBytes = info.Size()
		entry.CreatedAt = info.ModTime().UTC().Format("2006-01-02T15:04:05Z07:00")
		if err := fn(entry); err != nil {
			return err
		}
		return nil
	})
}

// listDirs returns non-hidden subdirectory names. The catalog directory is
// hidden by its dot prefix and therefore never descended into.
func (w *Walker) listDirs(dir string, onSkip SkipFunc) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == w.catalogDirName {
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		if !entry.IsDir() {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
