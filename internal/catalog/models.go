package catalog

import (
	"strings"
	"time"
)

// ConsolidationStatus represents the lifecycle of a file record through the
// consolidation pass. Transitions are forward-only: unscanned → scanned →
// consolidated (masters and uniques) or linked (non-master duplicates).
type ConsolidationStatus string

const (
	StatusUnscanned    ConsolidationStatus = "unscanned"
	StatusScanned      ConsolidationStatus = "scanned"
	StatusConsolidated ConsolidationStatus = "consolidated"
	StatusLinked       ConsolidationStatus = "linked"
)

var statusSet = map[ConsolidationStatus]struct{}{
	StatusUnscanned:    {},
	StatusScanned:      {},
	StatusConsolidated: {},
	StatusLinked:       {},
}

// ParseStatus converts a string into a known ConsolidationStatus.
func ParseStatus(value string) (ConsolidationStatus, bool) {
	normalized := ConsolidationStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status ends the consolidation lifecycle.
func (s ConsolidationStatus) Terminal() bool {
	return s == StatusConsolidated || s == StatusLinked
}

// HashKind records how a file's fingerprint hash was derived.
type HashKind string

const (
	// HashNone means no hash has been computed (size-only fingerprint).
	HashNone HashKind = "none"
	// HashFull means the whole file content was hashed (small files).
	HashFull HashKind = "full"
	// HashSampled means the first/middle/last windows were hashed.
	HashSampled HashKind = "sampled"
)

// PathKind classifies the role a recorded path has played for a file.
type PathKind string

const (
	PathOriginal     PathKind = "original"
	PathConsolidated PathKind = "consolidated"
	PathSymlink      PathKind = "symlink"
)

// FileRecord is one physical file instance tracked by the catalog. Identity
// for duplicate detection is the (file_size_bytes, file_hash) fingerprint;
// per-instance identity is the original absolute path.
type FileRecord struct {
	ID           int64
	OriginalPath string
	FileName     string
	SizeBytes    int64
	Hash         string
	HashKind     HashKind
	IsDuplicate  bool
	GroupID      *int64
	Status       ConsolidationStatus
	Year         string
	Month        string
	MonthDay     string
	ProjectName  string
	CreatedAt    string
	FirstSeen    time.Time
	LastSeen     time.Time
}

// PathRecord is one filesystem location that has held a file over its
// lifecycle (original, consolidated destination, or symlink site).
type PathRecord struct {
	ID        int64
	FileID    int64
	Path      string
	Kind      PathKind
	FirstSeen time.Time
	LastSeen  time.Time
}

// DuplicateGroup is a cluster of file records sharing a fingerprint. Candidate
// groups (Confirmed=false, empty Hash) come from size-only matching under
// --skip-hash and never drive link rewiring.
type DuplicateGroup struct {
	ID             int64
	SizeBytes      int64
	Hash           string
	MasterFileID   int64
	MemberCount    int
	RedundantBytes int64
	Confirmed      bool
	CreatedAt      time.Time
	ConsolidatedAt *time.Time
}

// Snapshot is the aggregate statistics row set, recomputed after each pass.
type Snapshot struct {
	TotalFiles        int64
	TotalBytes        int64
	UniqueFiles       int64
	DuplicateFiles    int64
	DuplicateGroups   int64
	SpaceSavedBytes   int64
	SpaceSavedPct     float64
	FilesConsolidated int64
	SymlinksCreated   int64
	LastScan          string
}

// YearMonthCount is a per-calendar-bucket file count for reports.
type YearMonthCount struct {
	Year  string
	Month string
	Files int64
	Bytes int64
}

// ProjectCount is a per-project file count for reports.
type ProjectCount struct {
	Project string
	Files   int64
	Bytes   int64
}
