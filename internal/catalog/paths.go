package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RecordPath remembers a filesystem location a file has occupied. Repeated
// sightings of the same (file, path) pair only refresh last_seen.
func (s *Store) RecordPath(ctx context.Context, fileID int64, path string, kind PathKind) error {
	ts := now()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO paths (file_id, path, kind, first_seen, last_seen)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(file_id, path) DO UPDATE SET
            kind = excluded.kind,
            last_seen = excluded.last_seen`,
		fileID,
		path,
		string(kind),
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("record path: %w", err)
	}
	return nil
}

// PathsForFile returns every location recorded for a file, oldest first.
func (s *Store) PathsForFile(ctx context.Context, fileID int64) ([]*PathRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, file_id, path, kind, first_seen, last_seen
         FROM paths WHERE file_id = ? ORDER BY first_seen, id`,
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("paths for file: %w", err)
	}
	defer rows.Close()

	var records []*PathRecord
	for rows.Next() {
		rec, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ConsolidatedPathForFile returns the recorded consolidated destination for a
// file, or "" when the file has not been consolidated.
func (s *Store) ConsolidatedPathForFile(ctx context.Context, fileID int64) (string, error) {
	var path string
	row := s.db.QueryRowContext(
		ctx,
		`SELECT path FROM paths WHERE file_id = ? AND kind = ? ORDER BY last_seen DESC LIMIT 1`,
		fileID,
		string(PathConsolidated),
	)
	if err := row.Scan(&path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("consolidated path for file: %w", err)
	}
	return path, nil
}

// ConsolidatedPathExists reports whether any file already claims the given
// destination path. Used for collision resolution against the catalog.
func (s *Store) ConsolidatedPathExists(ctx context.Context, path string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM paths WHERE path = ? AND kind = ?`,
		path,
		string(PathConsolidated),
	)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("consolidated path exists: %w", err)
	}
	return count > 0, nil
}

func scanPath(scanner interface{ Scan(dest ...any) error }) (*PathRecord, error) {
	var (
		rec          PathRecord
		kind         string
		firstSeenRaw string
		lastSeenRaw  string
	)
	if err := scanner.Scan(&rec.ID, &rec.FileID, &rec.Path, &kind, &firstSeenRaw, &lastSeenRaw); err != nil {
		return nil, err
	}
	rec.Kind = PathKind(kind)
	if firstSeen, err := parseTimeString(firstSeenRaw); err == nil {
		rec.FirstSeen = firstSeen
	}
	if lastSeen, err := parseTimeString(lastSeenRaw); err == nil {
		rec.LastSeen = lastSeen
	}
	return &rec, nil
}
