package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Catalog contains naming for the on-disk catalog layout rooted under the scan tree.
type Catalog struct {
	// DirName is the hidden directory created under the scan root that holds
	// the database and consolidated files.
	DirName string `toml:"dir_name"`
	// DBFileName is the SQLite database filename inside the catalog directory.
	DBFileName string `toml:"db_file_name"`
}

// Scan contains file recognition and fingerprinting settings.
type Scan struct {
	// VideoExtensions is the set of recognized extensions, lowercase with
	// leading dot. Files with other extensions are never enumerated.
	VideoExtensions []string `toml:"video_extensions"`
	// HashWindowBytes is the size of each sampled window (first/middle/last).
	HashWindowBytes int64 `toml:"hash_window_bytes"`
	// WholeFileHashMaxBytes is the size below which the whole file is hashed
	// instead of sampling windows.
	WholeFileHashMaxBytes int64 `toml:"whole_file_hash_max_bytes"`
}

// Consolidation contains settings for the consolidation pass.
type Consolidation struct {
	// MaxSymlinkDepth is the maximum number of ".." components allowed in a
	// relative symlink target before the link is skipped as unportable.
	MaxSymlinkDepth int `toml:"max_symlink_depth"`
	// MaxFilenameLength caps sanitized destination filenames.
	MaxFilenameLength int `toml:"max_filename_length"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dgcat.
//
// Configuration sections by subsystem:
//   - Catalog: on-disk catalog directory and database naming
//   - Scan: recognized video extensions and fingerprint sampling sizes
//   - Consolidation: symlink portability and filename limits
//   - Logging: log format and level
type Config struct {
	Catalog       Catalog       `toml:"catalog"`
	Scan          Scan          `toml:"scan"`
	Consolidation Consolidation `toml:"consolidation"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dgcat/config.toml")
}

// Load locates, parses, and validates a configuration file. When no file exists
// at the resolved location the defaults are returned unchanged.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// ExtensionSet returns the recognized extensions as a lookup set.
func (c *Config) ExtensionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Scan.VideoExtensions))
	for _, ext := range c.Scan.VideoExtensions {
		set[ext] = struct{}{}
	}
	return set
}

// CatalogDir returns the catalog directory path under the given scan root.
func (c *Config) CatalogDir(root string) string {
	return filepath.Join(root, c.Catalog.DirName)
}

// DatabasePath returns the catalog database path under the given scan root.
func (c *Config) DatabasePath(root string) string {
	return filepath.Join(c.CatalogDir(root), c.Catalog.DBFileName)
}

// ConsolidationFilesDir returns the directory holding consolidated file shards.
func (c *Config) ConsolidationFilesDir(root string) string {
	return filepath.Join(c.CatalogDir(root), "files")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
