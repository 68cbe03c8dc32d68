package testsupport

import (
	"path/filepath"
	"testing"

	"dgcat/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t    testing.TB
	root string
	cfg  *config.Config
}

// NewConfig produces a default config plus a unique temp scan root per test.
func NewConfig(t testing.TB, opts ...ConfigOption) (*config.Config, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "library")
	cfgVal := config.Default()

	builder := &configBuilder{
		t:    t,
		root: root,
		cfg:  &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg, builder.root
}

// WithHashWindow overrides the fingerprint sampling sizes so tests can force
// whole-file or sampled hashing with tiny fixtures.
func WithHashWindow(windowBytes, wholeFileMax int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.HashWindowBytes = windowBytes
		b.cfg.Scan.WholeFileHashMaxBytes = wholeFileMax
	}
}

// WithExtensions replaces the recognized video extensions.
func WithExtensions(exts ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.VideoExtensions = exts
	}
}

// WithMaxFilenameLength overrides the sanitized filename cap.
func WithMaxFilenameLength(length int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Consolidation.MaxFilenameLength = length
	}
}
