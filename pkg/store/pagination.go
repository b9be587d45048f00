package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
)

// Direction selects which way a cursor scan walks the partition.
type Direction int

const (
	// Forward walks ascending physical ids.
	Forward Direction = iota
	// Backward walks descending physical ids.
	Backward
)

// PageRequest describes one page of a cursor scan. An empty cursor starts
// from the beginning (Forward) or the end (Backward).
type PageRequest struct {
	Cursor    string
	Size      int
	Direction Direction
}

// Page is one page of records plus the cursor to resume from. Cost is O(1)
// in scan depth: the cursor anchors on an indexed physical id, so page
// 1,000 costs the same as page 1.
type Page struct {
	Records    []*Record
	NextCursor string
	HasNext    bool
}

// DefaultPageSize bounds pages when the caller does not say.
const DefaultPageSize = 50

// MaxPageSize caps a single page regardless of the request.
const MaxPageSize = 1000

func clampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// encodeCursor wraps a physical id as an opaque token. Callers compare
// cursors only by passing them back; they never decode them.
func encodeCursor(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

func decodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return id, nil
}

// List returns one page of live records from a single partition, anchored
// on the request cursor. The page is fetched with a size+1 probe: an extra
// row means another page exists, and the cursor advances to the last
// returned row's physical id.
func (s *Store) List(ctx context.Context, typeName string, req PageRequest) (*Page, error) {
	p, err := s.router.Ensure(ctx, typeName)
	if err != nil {
		return nil, err
	}
	return s.scanPage(ctx, p, "", "", req)
}

// Search returns one page of live records whose indexed field matches the
// given value. Field names outside the indexed set are rejected; the store
// never interprets payload structure itself.
func (s *Store) Search(ctx context.Context, typeName, field, value string, req PageRequest) (*Page, error) {
	switch field {
	case "reference", "code":
	default:
		return nil, fmt.Errorf("unsupported search field %q", field)
	}

	p, err := s.router.Ensure(ctx, typeName)
	if err != nil {
		return nil, err
	}
	return s.scanPage(ctx, p, field, value, req)
}

func (s *Store) scanPage(ctx context.Context, p *Partition, field, value string, req PageRequest) (*Page, error) {
	anchor, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	size := clampPageSize(req.Size)

	query := fmt.Sprintf(`
		SELECT id, record_id, payload, payload_blob, is_compressed, version_id, active, deleted, created_at, last_updated
		FROM %s WHERE deleted = 0`, p.Table)
	var args []any
	if field != "" {
		query += fmt.Sprintf(` AND %s = ?`, field)
		args = append(args, value)
	}

	switch req.Direction {
	case Backward:
		if anchor > 0 {
			query += ` AND id < ?`
			args = append(args, anchor)
		}
		query += ` ORDER BY id DESC`
	default:
		query += ` AND id > ? ORDER BY id ASC`
		args = append(args, anchor)
	}
	query += ` LIMIT ?`
	args = append(args, size+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan partition page: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows, p.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page rows: %w", err)
	}

	page := &Page{Records: records}
	if len(records) > size {
		page.HasNext = true
		page.Records = records[:size]
	}
	if n := len(page.Records); n > 0 {
		page.NextCursor = encodeCursor(page.Records[n-1].physicalID)
	} else {
		page.NextCursor = req.Cursor
	}
	return page, nil
}

// ListAll returns one page of live records across every partition, in
// global creation order. The catalog table assigns each record a global
// monotone sequence at create time, so the system-wide scan keeps the same
// O(1) cursor mechanics as a single partition instead of degrading to a
// skip/limit merge.
func (s *Store) ListAll(ctx context.Context, req PageRequest) (*Page, error) {
	anchor, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	size := clampPageSize(req.Size)

	query := `SELECT seq, partition_key, record_id FROM catalog WHERE deleted = 0`
	var args []any
	switch req.Direction {
	case Backward:
		if anchor > 0 {
			query += ` AND seq < ?`
			args = append(args, anchor)
		}
		query += ` ORDER BY seq DESC`
	default:
		query += ` AND seq > ? ORDER BY seq ASC`
		args = append(args, anchor)
	}
	query += ` LIMIT ?`
	args = append(args, size+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog page: %w", err)
	}

	type catalogRow struct {
		seq          int64
		partitionKey string
		recordID     string
	}
	var entries []catalogRow
	for rows.Next() {
		var e catalogRow
		if err := rows.Scan(&e.seq, &e.partitionKey, &e.recordID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating catalog rows: %w", err)
	}
	rows.Close()

	page := &Page{}
	hasNext := len(entries) > size
	if hasNext {
		entries = entries[:size]
	}

	for _, e := range entries {
		rec, err := s.Read(ctx, e.partitionKey, e.recordID)
		if err != nil {
			// The catalog row and partition row change in the same
			// transaction; a miss here is a data-integrity warning, not a
			// reason to fail the whole listing.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		rec.physicalID = e.seq
		page.Records = append(page.Records, rec)
	}

	page.HasNext = hasNext
	if n := len(entries); n > 0 {
		page.NextCursor = encodeCursor(entries[n-1].seq)
	} else {
		page.NextCursor = req.Cursor
	}
	return page, nil
}
