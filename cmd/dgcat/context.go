package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"dgcat/internal/catalog"
	"dgcat/internal/config"
	"dgcat/internal/faults"
	"dgcat/internal/logging"
	"dgcat/internal/platform"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

// openCatalog takes the catalog's single-instance lock and opens the store.
// The returned release func drops both; callers must defer it.
func (c *commandContext) openCatalog(root string) (*catalog.Store, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	catalogDir := cfg.CatalogDir(root)
	if err := os.MkdirAll(catalogDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure catalog directory: %w", err)
	}
	_ = platform.New().MarkHidden(catalogDir)

	lock := flock.New(filepath.Join(catalogDir, "dgcat.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("catalog at %s is in use by another dgcat instance", catalogDir)
	}

	store, err := catalog.Open(cfg.DatabasePath(root))
	if err != nil {
		_ = lock.Unlock()
		return nil, nil, err
	}

	release := func() {
		_ = store.Close()
		_ = lock.Unlock()
	}
	return store, release, nil
}

func (c *commandContext) newLogger(root string) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewForCatalog(cfg.Logging.Format, cfg.Logging.Level, cfg.CatalogDir(root))
}

// resolveRoot expands and validates the positional scan-root argument.
func resolveRoot(arg string) (string, error) {
	root, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scan root %s is not a directory", root)
	}
	return root, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

const faultPrintLimit = 10

func printFaults(out io.Writer, summary *faults.Summary) {
	if summary.Len() == 0 {
		return
	}
	fmt.Fprintf(out, "%d files could not be processed:\n", summary.Len())
	for _, msg := range summary.Messages(faultPrintLimit) {
		fmt.Fprintf(out, "  - %s\n", msg)
	}
	if summary.Len() > faultPrintLimit {
		fmt.Fprintf(out, "  ... and %d more (see the catalog log for the rest)\n", summary.Len()-faultPrintLimit)
	}
}
