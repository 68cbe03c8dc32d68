package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const groupColumns = "id, file_size_bytes, group_hash, master_file_id, member_count, total_redundant_bytes, confirmed, created_at, consolidated_at"

// EnsureHashGroup finds or creates the confirmed group for a (size, hash)
// fingerprint and returns its id. Creation and lookup run inside one
// transaction so concurrent scans cannot race a second group into existence.
func (s *Store) EnsureHashGroup(ctx context.Context, sizeBytes int64, hash string, masterFileID int64) (int64, error) {
	if hash == "" {
		return 0, errors.New("group hash is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin group tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	row := tx.QueryRowContext(
		ctx,
		`SELECT id FROM duplicate_groups WHERE file_size_bytes = ? AND group_hash = ?`,
		sizeBytes,
		hash,
	)
	err = row.Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, insErr := tx.ExecContext(
			ctx,
			`INSERT INTO duplicate_groups (file_size_bytes, group_hash, master_file_id, confirmed, created_at)
             VALUES (?, ?, ?, 1, ?)`,
			sizeBytes,
			hash,
			masterFileID,
			now(),
		)
		if insErr != nil {
			return 0, fmt.Errorf("insert hash group: %w", insErr)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("hash group id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("lookup hash group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit group tx: %w", err)
	}
	return id, nil
}

// EnsureCandidateGroup finds or creates the unconfirmed size-only group for a
// size bucket. At most one candidate group exists per size.
func (s *Store) EnsureCandidateGroup(ctx context.Context, sizeBytes int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin candidate tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	row := tx.QueryRowContext(
		ctx,
		`SELECT id FROM duplicate_groups WHERE file_size_bytes = ? AND group_hash IS NULL`,
		sizeBytes,
	)
	err = row.Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, insErr := tx.ExecContext(
			ctx,
			`INSERT INTO duplicate_groups (file_size_bytes, group_hash, confirmed, created_at)
             VALUES (?, NULL, 0, ?)`,
			sizeBytes,
			now(),
		)
		if insErr != nil {
			return 0, fmt.Errorf("insert candidate group: %w", insErr)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("candidate group id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("lookup candidate group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit candidate tx: %w", err)
	}
	return id, nil
}

// GroupByID fetches one duplicate group.
func (s *Store) GroupByID(ctx context.Context, id int64) (*DuplicateGroup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM duplicate_groups WHERE id = ?`, id)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("group by id: %w", err)
	}
	return group, nil
}

// GroupByFingerprint fetches the confirmed group for a (size, hash) pair.
func (s *Store) GroupByFingerprint(ctx context.Context, sizeBytes int64, hash string) (*DuplicateGroup, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+groupColumns+` FROM duplicate_groups WHERE file_size_bytes = ? AND group_hash = ?`,
		sizeBytes,
		hash,
	)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("group by fingerprint: %w", err)
	}
	return group, nil
}

// CandidateGroupBySize fetches the size-only candidate group for a bucket.
func (s *Store) CandidateGroupBySize(ctx context.Context, sizeBytes int64) (*DuplicateGroup, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+groupColumns+` FROM duplicate_groups WHERE file_size_bytes = ? AND group_hash IS NULL`,
		sizeBytes,
	)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("candidate group by size: %w", err)
	}
	return group, nil
}

// AssignFileGroup sets or clears a file's group membership and duplicate flag.
func (s *Store) AssignFileGroup(ctx context.Context, fileID int64, groupID *int64, isDuplicate bool) error {
	var gid any
	if groupID != nil {
		gid = *groupID
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE files SET group_id = ?, is_duplicate = ? WHERE id = ?`,
		gid,
		boolToInt(isDuplicate),
		fileID,
	)
	if err != nil {
		return fmt.Errorf("assign file group: %w", err)
	}
	return nil
}

// SetGroupMaster records a group's elected master file.
func (s *Store) SetGroupMaster(ctx context.Context, groupID, masterFileID int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE duplicate_groups SET master_file_id = ? WHERE id = ?`,
		masterFileID,
		groupID,
	)
	if err != nil {
		return fmt.Errorf("set group master: %w", err)
	}
	return nil
}

// UpdateGroupTotals refreshes a group's member count and redundant byte total.
func (s *Store) UpdateGroupTotals(ctx context.Context, groupID int64, memberCount int, redundantBytes int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE duplicate_groups SET member_count = ?, total_redundant_bytes = ? WHERE id = ?`,
		memberCount,
		redundantBytes,
		groupID,
	)
	if err != nil {
		return fmt.Errorf("update group totals: %w", err)
	}
	return nil
}

// DeleteGroup removes a group. Member rows drop their group_id via the
// foreign key's ON DELETE SET NULL.
func (s *Store) DeleteGroup(ctx context.Context, groupID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM duplicate_groups WHERE id = ?`, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// MarkGroupConsolidated stamps a group's consolidation time.
func (s *Store) MarkGroupConsolidated(ctx context.Context, groupID int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE duplicate_groups SET consolidated_at = ? WHERE id = ?`,
		now(),
		groupID,
	)
	if err != nil {
		return fmt.Errorf("mark group consolidated: %w", err)
	}
	return nil
}

// GroupsPendingConsolidation returns confirmed groups not yet consolidated,
// plus confirmed groups whose members still await a terminal status. The
// second clause lets an interrupted run pick the group back up.
func (s *Store) GroupsPendingConsolidation(ctx context.Context) ([]*DuplicateGroup, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+groupColumns+` FROM duplicate_groups
         WHERE confirmed = 1
           AND (consolidated_at IS NULL OR id IN (
                SELECT group_id FROM files
                WHERE group_id IS NOT NULL AND consolidation_status IN (?, ?)))
         ORDER BY id`,
		string(StatusUnscanned),
		string(StatusScanned),
	)
	if err != nil {
		return nil, fmt.Errorf("groups pending consolidation: %w", err)
	}
	defer rows.Close()

	var groups []*DuplicateGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// CandidateGroups returns every unconfirmed size-only group ordered by id.
func (s *Store) CandidateGroups(ctx context.Context) ([]*DuplicateGroup, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+groupColumns+` FROM duplicate_groups WHERE confirmed = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("candidate groups: %w", err)
	}
	defer rows.Close()

	var groups []*DuplicateGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// ConfirmedGroups returns every confirmed group ordered by id.
func (s *Store) ConfirmedGroups(ctx context.Context) ([]*DuplicateGroup, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+groupColumns+` FROM duplicate_groups WHERE confirmed = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("confirmed groups: %w", err)
	}
	defer rows.Close()

	var groups []*DuplicateGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// GroupMembers returns a group's files in master-election order.
func (s *Store) GroupMembers(ctx context.Context, groupID int64) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files WHERE group_id = ? ORDER BY first_seen, original_path`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("group members: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*DuplicateGroup, error) {
	var (
		group          DuplicateGroup
		hash           sql.NullString
		masterFileID   sql.NullInt64
		confirmed      int
		createdAtRaw   string
		consolidatedAt sql.NullString
	)
	if err := scanner.Scan(
		&group.ID,
		&group.SizeBytes,
		&hash,
		&masterFileID,
		&group.MemberCount,
		&group.RedundantBytes,
		&confirmed,
		&createdAtRaw,
		&consolidatedAt,
	); err != nil {
		return nil, err
	}
	group.Hash = hash.String
	group.MasterFileID = masterFileID.Int64
	group.Confirmed = confirmed != 0
	if createdAt, err := parseTimeString(createdAtRaw); err == nil {
		group.CreatedAt = createdAt
	}
	if consolidatedAt.Valid {
		if t, err := parseTimeString(consolidatedAt.String); err == nil {
			group.ConsolidatedAt = &t
		}
	}
	return &group, nil
}
