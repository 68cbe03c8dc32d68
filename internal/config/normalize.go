package config

import (
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeCatalog()
	c.normalizeScan()
	c.normalizeConsolidation()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.DirName = strings.TrimSpace(c.Catalog.DirName)
	if c.Catalog.DirName == "" {
		c.Catalog.DirName = defaultCatalogDirName
	}
	c.Catalog.DBFileName = strings.TrimSpace(c.Catalog.DBFileName)
	if c.Catalog.DBFileName == "" {
		c.Catalog.DBFileName = defaultDBFileName
	}
}

func (c *Config) normalizeScan() {
	if len(c.Scan.VideoExtensions) == 0 {
		c.Scan.VideoExtensions = defaultVideoExtensions()
	}
	normalized := make([]string, 0, len(c.Scan.VideoExtensions))
	seen := make(map[string]struct{}, len(c.Scan.VideoExtensions))
	for _, ext := range c.Scan.VideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		normalized = append(normalized, ext)
	}
	c.Scan.VideoExtensions = normalized

	if c.Scan.HashWindowBytes == 0 {
		c.Scan.HashWindowBytes = defaultHashWindowBytes
	}
	if c.Scan.WholeFileHashMaxBytes == 0 {
		c.Scan.WholeFileHashMaxBytes = defaultWholeFileHashMaxBytes
	}
}

func (c *Config) normalizeConsolidation() {
	if c.Consolidation.MaxSymlinkDepth == 0 {
		c.Consolidation.MaxSymlinkDepth = defaultMaxSymlinkDepth
	}
	if c.Consolidation.MaxFilenameLength == 0 {
		c.Consolidation.MaxFilenameLength = defaultMaxFilenameLength
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
