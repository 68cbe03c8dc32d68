package consolidate

import (
	"log/slog"

	"dgcat/internal/catalog"
	"dgcat/internal/config"
	"dgcat/internal/logging"
	"dgcat/internal/platform"
)

// Consolidator transforms the catalog's scattered originals into the
// content-addressed layout: plan computes the operation list without
// touching anything, Preflight vets it, Execute performs it.
type Consolidator struct {
	cfg      *config.Config
	store    *catalog.Store
	caps     platform.Capabilities
	root     string
	filesDir string
	logger   *slog.Logger
}

// New builds a Consolidator rooted at the scan tree.
func New(cfg *config.Config, store *catalog.Store, caps platform.Capabilities, root string, logger *slog.Logger) *Consolidator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if caps == nil {
		caps = platform.New()
	}
	return &Consolidator{
		cfg:      cfg,
		store:    store,
		caps:     caps,
		root:     root,
		filesDir: cfg.ConsolidationFilesDir(root),
		logger:   logging.WithComponent(logger, "consolidate"),
	}
}
