package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateConsolidation(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if strings.ContainsAny(c.Catalog.DirName, "/\\") {
		return errors.New("catalog.dir_name must be a bare directory name, not a path")
	}
	if !strings.HasPrefix(c.Catalog.DirName, ".") {
		return errors.New("catalog.dir_name must start with a dot so the walker can skip it")
	}
	if strings.ContainsAny(c.Catalog.DBFileName, "/\\") {
		return errors.New("catalog.db_file_name must be a bare filename, not a path")
	}
	return nil
}

func (c *Config) validateScan() error {
	if len(c.Scan.VideoExtensions) == 0 {
		return errors.New("scan.video_extensions must list at least one extension")
	}
	if c.Scan.HashWindowBytes < 1 {
		return fmt.Errorf("scan.hash_window_bytes must be positive, got %d", c.Scan.HashWindowBytes)
	}
	if c.Scan.WholeFileHashMaxBytes < c.Scan.HashWindowBytes {
		return fmt.Errorf(
			"scan.whole_file_hash_max_bytes (%d) must be at least scan.hash_window_bytes (%d)",
			c.Scan.WholeFileHashMaxBytes, c.Scan.HashWindowBytes,
		)
	}
	return nil
}

func (c *Config) validateConsolidation() error {
	if c.Consolidation.MaxSymlinkDepth < 1 {
		return errors.New("consolidation.max_symlink_depth must be positive")
	}
	if c.Consolidation.MaxFilenameLength < 16 {
		return errors.New("consolidation.max_filename_length must be at least 16")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}
