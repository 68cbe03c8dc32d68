package config

const (
	defaultCatalogDirName        = ".dg_consolidation"
	defaultDBFileName            = "dg_catalog.db"
	defaultHashWindowBytes       = 1024
	defaultWholeFileHashMaxBytes = 5120
	defaultMaxSymlinkDepth       = 20
	defaultMaxFilenameLength     = 200
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

func defaultVideoExtensions() []string {
	return []string{
		".mp4", ".avi", ".mov", ".mkv", ".wmv", ".flv", ".webm", ".m4v",
		".3gp", ".ogv", ".mts", ".m2ts", ".ts", ".vob", ".asf", ".rm",
		".rmvb", ".divx", ".xvid", ".mpg", ".mpeg", ".m2v", ".mpe",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Catalog: Catalog{
			DirName:    defaultCatalogDirName,
			DBFileName: defaultDBFileName,
		},
		Scan: Scan{
			VideoExtensions:       defaultVideoExtensions(),
			HashWindowBytes:       defaultHashWindowBytes,
			WholeFileHashMaxBytes: defaultWholeFileHashMaxBytes,
		},
		Consolidation: Consolidation{
			MaxSymlinkDepth:   defaultMaxSymlinkDepth,
			MaxFilenameLength: defaultMaxFilenameLength,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
