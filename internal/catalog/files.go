package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const fileColumns = "id, original_path, file_name, file_size_bytes, file_hash, hash_kind, is_duplicate, group_id, consolidation_status, year, month, month_day, project_name, created_at, first_seen, last_seen"

// NewFileRecord describes a file observed by the walker, ready for insertion.
type NewFileRecord struct {
	OriginalPath string
	FileName     string
	SizeBytes    int64
	CreatedAt    string
	Year         string
	Month        string
	MonthDay     string
	ProjectName  string
}

// RecordFile inserts a file record or, when the path is already cataloged,
// refreshes its metadata and last_seen. Returns the record's id. Re-scanning
// an unchanged tree therefore never creates duplicate rows.
func (s *Store) RecordFile(ctx context.Context, rec NewFileRecord) (int64, error) {
	ts := now()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO files (
            original_path, file_name, file_size_bytes, created_at,
            year, month, month_day, project_name, first_seen, last_seen
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(original_path) DO UPDATE SET
            file_name = excluded.file_name,
            file_size_bytes = excluded.file_size_bytes,
            created_at = excluded.created_at,
            year = excluded.year,
            month = excluded.month,
            month_day = excluded.month_day,
            project_name = excluded.project_name,
            last_seen = excluded.last_seen`,
		rec.OriginalPath,
		rec.FileName,
		rec.SizeBytes,
		nullableString(rec.CreatedAt),
		nullableString(rec.Year),
		nullableString(rec.Month),
		nullableString(rec.MonthDay),
		nullableString(rec.ProjectName),
		ts,
		ts,
	)
	if err != nil {
		return 0, fmt.Errorf("record file: %w", err)
	}

	var id int64
	row := s.db.QueryRowContext(ctx, `SELECT id FROM files WHERE original_path = ?`, rec.OriginalPath)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve file id: %w", err)
	}
	return id, nil
}

// FileByPath fetches a file record by its original absolute path.
func (s *Store) FileByPath(ctx context.Context, path string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE original_path = ?`, path)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return rec, nil
}

// FileByID fetches a file record by identifier.
func (s *Store) FileByID(ctx context.Context, id int64) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return rec, nil
}

// FilesBySize returns every record in a size bucket, ordered deterministically
// by first_seen then original path so master election is stable.
func (s *Store) FilesBySize(ctx context.Context, sizeBytes int64) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files WHERE file_size_bytes = ? ORDER BY first_seen, original_path`,
		sizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("files by size: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// FilesByFingerprint returns records matching a (size, hash) fingerprint in
// master-election order.
func (s *Store) FilesByFingerprint(ctx context.Context, sizeBytes int64, hash string) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files
         WHERE file_size_bytes = ? AND file_hash = ?
         ORDER BY first_seen, original_path`,
		sizeBytes,
		hash,
	)
	if err != nil {
		return nil, fmt.Errorf("files by fingerprint: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// UpdateFileHash stores a computed fingerprint hash for a record.
func (s *Store) UpdateFileHash(ctx context.Context, id int64, hash string, kind HashKind) error {
	if hash == "" {
		return errors.New("hash is empty")
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE files SET file_hash = ?, hash_kind = ?, last_seen = ? WHERE id = ?`,
		hash,
		string(kind),
		now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update file hash: %w", err)
	}
	return nil
}

// SetConsolidationStatus advances a record's consolidation lifecycle. The
// update commits immediately so an interrupted run resumes exactly.
func (s *Store) SetConsolidationStatus(ctx context.Context, id int64, status ConsolidationStatus) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown consolidation status %q", status)
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE files SET consolidation_status = ? WHERE id = ?`,
		string(status),
		id,
	)
	if err != nil {
		return fmt.Errorf("set consolidation status: %w", err)
	}
	return nil
}

// UnconsolidatedUniques returns non-duplicate records still awaiting
// consolidation, in id order. Candidate-group members count as uniques since
// their duplication is unconfirmed.
func (s *Store) UnconsolidatedUniques(ctx context.Context) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files
         WHERE is_duplicate = 0
           AND consolidation_status IN (?, ?)
           AND (group_id IS NULL OR group_id IN (SELECT id FROM duplicate_groups WHERE confirmed = 0))
         ORDER BY id`,
		string(StatusUnscanned),
		string(StatusScanned),
	)
	if err != nil {
		return nil, fmt.Errorf("unconsolidated uniques: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// FilesNeedingHash returns records in a size bucket that still lack a hash.
func (s *Store) FilesNeedingHash(ctx context.Context, sizeBytes int64) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files
         WHERE file_size_bytes = ? AND hash_kind = ?
         ORDER BY first_seen, original_path`,
		sizeBytes,
		string(HashNone),
	)
	if err != nil {
		return nil, fmt.Errorf("files needing hash: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

func collectFiles(rows *sql.Rows) ([]*FileRecord, error) {
	var records []*FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanFile(scanner interface{ Scan(dest ...any) error }) (*FileRecord, error) {
	var (
		id           int64
		originalPath string
		fileName     string
		sizeBytes    int64
		hash         sql.NullString
		hashKind     string
		isDuplicate  sql.NullInt64
		groupID      sql.NullInt64
		status       string
		year         sql.NullString
		month        sql.NullString
		monthDay     sql.NullString
		projectName  sql.NullString
		createdAt    sql.NullString
		firstSeenRaw sql.NullString
		lastSeenRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&originalPath,
		&fileName,
		&sizeBytes,
		&hash,
		&hashKind,
		&isDuplicate,
		&groupID,
		&status,
		&year,
		&month,
		&monthDay,
		&projectName,
		&createdAt,
		&firstSeenRaw,
		&lastSeenRaw,
	); err != nil {
		return nil, err
	}

	rec := &FileRecord{
		ID:           id,
		OriginalPath: originalPath,
		FileName:     fileName,
		SizeBytes:    sizeBytes,
		Hash:         hash.String,
		HashKind:     HashKind(hashKind),
		IsDuplicate:  isDuplicate.Valid && isDuplicate.Int64 != 0,
		Status:       ConsolidationStatus(status),
		Year:         year.String,
		Month:        month.String,
		MonthDay:     monthDay.String,
		ProjectName:  projectName.String,
		CreatedAt:    createdAt.String,
	}
	if groupID.Valid {
		gid := groupID.Int64
		rec.GroupID = &gid
	}
	if firstSeen, err := parseTimeString(firstSeenRaw.String); err == nil {
		rec.FirstSeen = firstSeen
	}
	if lastSeen, err := parseTimeString(lastSeenRaw.String); err == nil {
		rec.LastSeen = lastSeen
	}
	return rec, nil
}
