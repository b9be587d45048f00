package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"carta-hq/titan/pkg/codec"
)

// Config configures the store's SQLite backing file.
type Config struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes.
	CheckpointInterval time.Duration

	// CompressionThreshold overrides the codec threshold. Payloads strictly
	// larger than this are compressed. Default: codec.Threshold.
	CompressionThreshold int
}

// Store is the versioned resource store. All mutations increment the
// record's version by exactly 1 and append a history entry in the same
// transaction, so a version without its history entry is never observable.
type Store struct {
	db     *sql.DB
	router *PartitionRouter

	// threshold is read on every write and updatable by config reload.
	threshold atomic.Int64

	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once
}

// Open opens (creating if necessary) the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.CompressionThreshold == 0 {
		cfg.CompressionThreshold = codec.Threshold
	}

	// Open database with WAL mode and busy timeout
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:                 db,
		router:             NewPartitionRouter(db),
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}
	s.threshold.Store(int64(cfg.CompressionThreshold))

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	go s.checkpointLoop()

	return s, nil
}

// initSchema creates the shared history and catalog tables. Per-type
// partition tables are provisioned lazily by the router.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		partition_key TEXT NOT NULL,
		record_id TEXT NOT NULL,
		version_id INTEGER NOT NULL,
		payload TEXT,
		payload_blob BLOB,
		is_compressed INTEGER NOT NULL DEFAULT 0,
		action TEXT NOT NULL,
		ts INTEGER NOT NULL,
		UNIQUE (partition_key, record_id, version_id)
	);

	CREATE INDEX IF NOT EXISTS idx_history_record ON history(partition_key, record_id, version_id DESC);
	CREATE INDEX IF NOT EXISTS idx_history_ts ON history(partition_key, ts DESC);

	CREATE TABLE IF NOT EXISTS catalog (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		partition_key TEXT NOT NULL,
		record_id TEXT NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		UNIQUE (partition_key, record_id)
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_live ON catalog(deleted, seq ASC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Router exposes the partition router, primarily for listing and tests.
func (s *Store) Router() *PartitionRouter {
	return s.router
}

// Ping verifies the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SetCompressionThreshold updates the compression threshold at runtime,
// for config reload. It applies to subsequent writes only; stored payloads
// keep their encoding.
func (s *Store) SetCompressionThreshold(threshold int) {
	if threshold <= 0 {
		threshold = codec.Threshold
	}
	s.threshold.Store(int64(threshold))
}

// Create writes version 1 of a new record and its CREATE history entry.
// It fails with ErrAlreadyExists when a live record already occupies
// (type, id). Creating over a tombstone resurrects the record, continuing
// its version sequence. An empty id gets a generated UUID.
func (s *Store) Create(ctx context.Context, typeName, id, payload string, opts ...WriteOption) (*Record, error) {
	p, err := s.router.Ensure(ctx, typeName)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	encoded, err := encodePayload(payload, int(s.threshold.Load()))
	if err != nil {
		return nil, err
	}
	o := applyWriteOptions(opts)
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		priorVersion int64
		priorDeleted bool
	)
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT version_id, deleted FROM %s WHERE record_id = ?`, p.Table), id,
	).Scan(&priorVersion, &priorDeleted)
	switch {
	case err == sql.ErrNoRows:
		// First creation.
	case err != nil:
		return nil, fmt.Errorf("failed to check existing record: %w", err)
	case !priorDeleted:
		return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyExists, p.Type, id)
	}

	raw, blob, compressed := encoded.columns()
	rec := &Record{
		PartitionKey: p.Type,
		RecordID:     id,
		Payload:      encoded,
		CreatedAt:    now,
		LastUpdated:  now,
		Active:       true,
	}

	if priorVersion == 0 {
		rec.VersionID = 1
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (record_id, payload, payload_blob, is_compressed, version_id, active, deleted, reference, code, created_at, last_updated)
			VALUES (?, ?, ?, ?, 1, 1, 0, ?, ?, ?, ?)`, p.Table),
			id, raw, blob, compressed, nullable(o.reference), nullable(o.code), now.UnixMilli(), now.UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("failed to insert record: %w", err)
		}
		rec.physicalID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read inserted row id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog (partition_key, record_id, deleted) VALUES (?, ?, 0)`,
			p.Type, id); err != nil {
			return nil, fmt.Errorf("failed to register record in catalog: %w", err)
		}
	} else {
		// Resurrect the tombstone, continuing the version sequence so the
		// history invariant (N entries for version N) holds.
		rec.VersionID = priorVersion + 1
		err = tx.QueryRowContext(ctx, fmt.Sprintf(`
			UPDATE %s
			SET payload = ?, payload_blob = ?, is_compressed = ?, version_id = version_id + 1,
			    active = 1, deleted = 0, reference = ?, code = ?, last_updated = ?
			WHERE record_id = ? AND deleted = 1
			RETURNING id, created_at`, p.Table),
			raw, blob, compressed, nullable(o.reference), nullable(o.code), now.UnixMilli(), id,
		).Scan(&rec.physicalID, &msScanner{&rec.CreatedAt})
		if err != nil {
			return nil, fmt.Errorf("failed to resurrect record: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE catalog SET deleted = 0 WHERE partition_key = ? AND record_id = ?`,
			p.Type, id); err != nil {
			return nil, fmt.Errorf("failed to update catalog: %w", err)
		}
	}

	if err := appendHistory(ctx, tx, p.Type, id, rec.VersionID, encoded, ActionCreate, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit create: %w", err)
	}
	return rec, nil
}

// Read returns the current live record, or ErrNotFound if it is absent or
// soft-deleted.
func (s *Store) Read(ctx context.Context, typeName, id string) (*Record, error) {
	return s.read(ctx, typeName, id, false)
}

// ReadAny returns the current record including tombstones, for history and
// audit use.
func (s *Store) ReadAny(ctx context.Context, typeName, id string) (*Record, error) {
	return s.read(ctx, typeName, id, true)
}

func (s *Store) read(ctx context.Context, typeName, id string, includeDeleted bool) (*Record, error) {
	p, err := s.router.Ensure(ctx, typeName)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, record_id, payload, payload_blob, is_compressed, version_id, active, deleted, created_at, last_updated
		FROM %s WHERE record_id = ?`, p.Table)
	if !includeDeleted {
		query += ` AND deleted = 0`
	}

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id), p.Type)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, p.Type, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return rec, nil
}

// Update persists a new payload as the next version of an existing live
// record. When expectedVersion is non-zero it is the optimistic concurrency
// precondition: a mismatch fails with ErrVersionConflict and the caller must
// re-read and retry. The version check and increment happen in one atomic
// conditional UPDATE so racing updates can never both claim the same next
// version.
func (s *Store) Update(ctx context.Context, typeName, id, payload string, expectedVersion int64, opts ...WriteOption) (*Record, error) {
	p, err := s.router.Ensure(ctx, typeName)
	if err != nil {
		return nil, err
	}

	encoded, err := encodePayload(payload, int(s.threshold.Load()))
	if err != nil {
		return nil, err
	}
	o := applyWriteOptions(opts)
	now := time.Now().UTC()
	raw, blob, compressed := encoded.columns()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE %s
		SET payload = ?, payload_blob = ?, is_compressed = ?, version_id = version_id + 1,
		    reference = ?, code = ?, last_updated = ?
		WHERE record_id = ? AND deleted = 0`, p.Table)
	args := []any{raw, blob, compressed, nullable(o.reference), nullable(o.code), now.UnixMilli(), id}
	if expectedVersion > 0 {
		query += ` AND version_id = ?`
		args = append(args, expectedVersion)
	}
	query += ` RETURNING id, version_id, created_at`

	rec := &Record{
		PartitionKey: p.Type,
		RecordID:     id,
		Payload:      encoded,
		LastUpdated:  now,
		Active:       true,
	}
	err = tx.QueryRowContext(ctx, query, args...).Scan(&rec.physicalID, &rec.VersionID, &msScanner{&rec.CreatedAt})
	if err == sql.ErrNoRows {
		return nil, s.classifyWriteMiss(ctx, tx, p, id, expectedVersion)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	if err := appendHistory(ctx, tx, p.Type, id, rec.VersionID, encoded, ActionUpdate, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return rec, nil
}

// Delete soft-deletes a live record: the tombstone keeps the final payload,
// the version increments, and a DELETE history entry is appended. It
// returns the tombstone's version token.
func (s *Store) Delete(ctx context.Context, typeName, id string) (string, error) {
	p, err := s.router.Ensure(ctx, typeName)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		version    int64
		raw        sql.NullString
		blob       []byte
		compressed bool
	)
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET deleted = 1, active = 0, version_id = version_id + 1, last_updated = ?
		WHERE record_id = ? AND deleted = 0
		RETURNING version_id, payload, payload_blob, is_compressed`, p.Table),
		now.UnixMilli(), id,
	).Scan(&version, &raw, &blob, &compressed)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, p.Type, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete record: %w", err)
	}

	tombstone := payloadFromColumns(raw.String, blob, compressed)
	if err := appendHistory(ctx, tx, p.Type, id, version, tombstone, ActionDelete, now); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE catalog SET deleted = 1 WHERE partition_key = ? AND record_id = ?`,
		p.Type, id); err != nil {
		return "", fmt.Errorf("failed to update catalog: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit delete: %w", err)
	}

	rec := Record{VersionID: version}
	return rec.VersionToken(), nil
}

// Exists reports whether a live record occupies (type, id).
func (s *Store) Exists(ctx context.Context, typeName, id string) (bool, error) {
	p, err := s.router.Ensure(ctx, typeName)
	if err != nil {
		return false, err
	}

	var one int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE record_id = ? AND deleted = 0`, p.Table), id,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return true, nil
}

// Count returns the number of live records in a partition.
func (s *Store) Count(ctx context.Context, typeName string) (int64, error) {
	p, err := s.router.Ensure(ctx, typeName)
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE deleted = 0`, p.Table),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// classifyWriteMiss distinguishes a missing record from a stale version
// expectation after a conditional update matched no rows.
func (s *Store) classifyWriteMiss(ctx context.Context, tx *sql.Tx, p *Partition, id string, expectedVersion int64) error {
	var current int64
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT version_id FROM %s WHERE record_id = ? AND deleted = 0`, p.Table), id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, p.Type, id)
	}
	if err != nil {
		return fmt.Errorf("failed to inspect record version: %w", err)
	}
	return fmt.Errorf("%w: %s/%s expected version %d, current version %d",
		ErrVersionConflict, p.Type, id, expectedVersion, current)
}

// Close flushes the WAL and releases the database handle. Close is
// idempotent.
func (s *Store) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *Store) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

// scanRecord scans a full record row in column order
// (id, record_id, payload, payload_blob, is_compressed, version_id, active,
// deleted, created_at, last_updated).
func scanRecord(row interface{ Scan(...any) error }, partitionKey string) (*Record, error) {
	var (
		rec        Record
		raw        sql.NullString
		blob       []byte
		compressed bool
	)
	err := row.Scan(&rec.physicalID, &rec.RecordID, &raw, &blob, &compressed,
		&rec.VersionID, &rec.Active, &rec.Deleted,
		&msScanner{&rec.CreatedAt}, &msScanner{&rec.LastUpdated})
	if err != nil {
		return nil, err
	}
	rec.PartitionKey = partitionKey
	rec.Payload = payloadFromColumns(raw.String, blob, compressed)
	return &rec, nil
}

// msScanner scans an INTEGER millisecond timestamp column into a time.Time.
type msScanner struct {
	t *time.Time
}

func (m *msScanner) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*m.t = time.UnixMilli(v).UTC()
		return nil
	case nil:
		*m.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

// nullable maps the empty string to NULL so sparse indexes stay sparse.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
