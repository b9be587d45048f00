package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// appendHistory writes one immutable version snapshot inside the caller's
// transaction. The unique (partition_key, record_id, version_id) constraint
// makes accidental double-writes fail loudly instead of corrupting the
// trail.
func appendHistory(ctx context.Context, tx *sql.Tx, partitionKey, recordID string, version int64, payload Payload, action Action, ts time.Time) error {
	raw, blob, compressed := payload.columns()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO history (partition_key, record_id, version_id, payload, payload_blob, is_compressed, action, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		partitionKey, recordID, version, raw, blob, compressed, string(action), ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// ListHistory returns the version trail for a record, newest first. A
// non-zero since limits the trail to entries at or after that instant.
// Tombstoned records keep their full trail.
func (s *Store) ListHistory(ctx context.Context, typeName, id string, since time.Time) ([]*HistoryEntry, error) {
	partitionKey := normalizeType(typeName)

	query := `
		SELECT partition_key, record_id, version_id, payload, payload_blob, is_compressed, action, ts
		FROM history
		WHERE partition_key = ? AND record_id = ?`
	args := []any{partitionKey, id}
	if !since.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, since.UnixMilli())
	}
	query += ` ORDER BY version_id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return entries, nil
}

// HistoryAt returns one specific version snapshot, or ErrNotFound when the
// record never reached that version.
func (s *Store) HistoryAt(ctx context.Context, typeName, id string, version int64) (*HistoryEntry, error) {
	partitionKey := normalizeType(typeName)

	entry, err := scanHistoryEntry(s.db.QueryRowContext(ctx, `
		SELECT partition_key, record_id, version_id, payload, payload_blob, is_compressed, action, ts
		FROM history
		WHERE partition_key = ? AND record_id = ? AND version_id = ?`,
		partitionKey, id, version))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s version %d", ErrNotFound, partitionKey, id, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}
	return entry, nil
}

// PruneHistory deletes history entries older than the cutoff and returns
// the number removed. It backs the retention sweeper; current records are
// never touched.
func (s *Store) PruneHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE ts < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func scanHistoryEntry(row interface{ Scan(...any) error }) (*HistoryEntry, error) {
	var (
		entry      HistoryEntry
		raw        sql.NullString
		blob       []byte
		compressed bool
		action     string
	)
	err := row.Scan(&entry.PartitionKey, &entry.RecordID, &entry.VersionID,
		&raw, &blob, &compressed, &action, &msScanner{&entry.Timestamp})
	if err != nil {
		return nil, err
	}
	entry.Payload = payloadFromColumns(raw.String, blob, compressed)
	entry.Action = Action(action)
	return &entry, nil
}
