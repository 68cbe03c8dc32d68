package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

const (
	statTotalFiles        = "total_files"
	statTotalBytes        = "total_bytes"
	statUniqueFiles       = "unique_files"
	statDuplicateFiles    = "duplicate_files"
	statDuplicateGroups   = "duplicate_groups"
	statSpaceSavedBytes   = "space_saved_bytes"
	statFilesConsolidated = "files_consolidated"
	statSymlinksCreated   = "symlinks_created"
	statLastScan          = "last_scan"
)

// RecomputeStatistics rebuilds the aggregate statistics rows from the files
// and groups tables. Called at the end of scan and consolidation passes.
func (s *Store) RecomputeStatistics(ctx context.Context) error {
	var (
		totalFiles     int64
		totalBytes     sql.NullInt64
		duplicateFiles int64
		groupCount     int64
		redundantBytes sql.NullInt64
		consolidated   int64
		linked         int64
	)

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(file_size_bytes), 0) FROM files`)
	if err := row.Scan(&totalFiles, &totalBytes); err != nil {
		return fmt.Errorf("count files: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM files WHERE is_duplicate = 1`)
	if err := row.Scan(&duplicateFiles); err != nil {
		return fmt.Errorf("count duplicates: %w", err)
	}

	row = s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1), COALESCE(SUM(total_redundant_bytes), 0) FROM duplicate_groups WHERE confirmed = 1`,
	)
	if err := row.Scan(&groupCount, &redundantBytes); err != nil {
		return fmt.Errorf("count groups: %w", err)
	}

	row = s.db.QueryRowContext(
		ctx,
		`SELECT
            COALESCE(SUM(CASE WHEN consolidation_status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN consolidation_status = ? THEN 1 ELSE 0 END), 0)
         FROM files`,
		string(StatusConsolidated),
		string(StatusLinked),
	)
	if err := row.Scan(&consolidated, &linked); err != nil {
		return fmt.Errorf("count statuses: %w", err)
	}

	stats := map[string]string{
		statTotalFiles:        strconv.FormatInt(totalFiles, 10),
		statTotalBytes:        strconv.FormatInt(totalBytes.Int64, 10),
		statUniqueFiles:       strconv.FormatInt(totalFiles-duplicateFiles, 10),
		statDuplicateFiles:    strconv.FormatInt(duplicateFiles, 10),
		statDuplicateGroups:   strconv.FormatInt(groupCount, 10),
		statSpaceSavedBytes:   strconv.FormatInt(redundantBytes.Int64, 10),
		statFilesConsolidated: strconv.FormatInt(consolidated, 10),
		statSymlinksCreated:   strconv.FormatInt(linked, 10),
	}
	for name, value := range stats {
		if err := s.setStat(ctx, name, value, "integer"); err != nil {
			return err
		}
	}
	return nil
}

// MarkScanCompleted records the timestamp of the latest finished scan.
func (s *Store) MarkScanCompleted(ctx context.Context) error {
	return s.setStat(ctx, statLastScan, now(), "timestamp")
}

func (s *Store) setStat(ctx context.Context, name, value, kind string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO statistics (stat_name, stat_value, stat_type, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(stat_name) DO UPDATE SET
            stat_value = excluded.stat_value,
            stat_type = excluded.stat_type,
            updated_at = excluded.updated_at`,
		name,
		value,
		kind,
		now(),
	)
	if err != nil {
		return fmt.Errorf("set stat %s: %w", name, err)
	}
	return nil
}

// Statistics loads the aggregate snapshot from the statistics table.
func (s *Store) Statistics(ctx context.Context) (*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stat_name, stat_value FROM statistics`)
	if err != nil {
		return nil, fmt.Errorf("load statistics: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		TotalFiles:        statInt(values, statTotalFiles),
		TotalBytes:        statInt(values, statTotalBytes),
		UniqueFiles:       statInt(values, statUniqueFiles),
		DuplicateFiles:    statInt(values, statDuplicateFiles),
		DuplicateGroups:   statInt(values, statDuplicateGroups),
		SpaceSavedBytes:   statInt(values, statSpaceSavedBytes),
		FilesConsolidated: statInt(values, statFilesConsolidated),
		SymlinksCreated:   statInt(values, statSymlinksCreated),
		LastScan:          values[statLastScan],
	}
	if snap.TotalBytes > 0 {
		snap.SpaceSavedPct = float64(snap.SpaceSavedBytes) / float64(snap.TotalBytes) * 100
	}
	return snap, nil
}

func statInt(values map[string]string, name string) int64 {
	value, ok := values[name]
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// BreakdownByYearMonth aggregates file counts and bytes per calendar bucket.
// Files with no derivable date sort into an empty bucket at the end.
func (s *Store) BreakdownByYearMonth(ctx context.Context) ([]YearMonthCount, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT COALESCE(year, ''), COALESCE(month, ''), COUNT(1), COALESCE(SUM(file_size_bytes), 0)
         FROM files GROUP BY year, month
         ORDER BY year = '' OR year IS NULL, year, month`,
	)
	if err != nil {
		return nil, fmt.Errorf("breakdown by year month: %w", err)
	}
	defer rows.Close()

	var counts []YearMonthCount
	for rows.Next() {
		var c YearMonthCount
		if err := rows.Scan(&c.Year, &c.Month, &c.Files, &c.Bytes); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// StatusBreakdown counts files per consolidation status.
func (s *Store) StatusBreakdown(ctx context.Context) (map[ConsolidationStatus]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT consolidation_status, COUNT(1) FROM files GROUP BY consolidation_status`,
	)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	defer rows.Close()

	counts := make(map[ConsolidationStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[ConsolidationStatus(status)] = count
	}
	return counts, rows.Err()
}

// BreakdownByProject aggregates file counts and bytes per project, largest
// projects first.
func (s *Store) BreakdownByProject(ctx context.Context) ([]ProjectCount, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT COALESCE(project_name, ''), COUNT(1), COALESCE(SUM(file_size_bytes), 0)
         FROM files GROUP BY project_name
         ORDER BY SUM(file_size_bytes) DESC, project_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("breakdown by project: %w", err)
	}
	defer rows.Close()

	var counts []ProjectCount
	for rows.Next() {
		var c ProjectCount
		if err := rows.Scan(&c.Project, &c.Files, &c.Bytes); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
