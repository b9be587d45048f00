package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Partition is a handle to the physical table backing one resource type.
type Partition struct {
	// Type is the normalized resource-type name.
	Type string

	// Table is the physical table name.
	Table string
}

// PartitionNameFor maps a resource-type name to its physical table name.
// The mapping is pure and deterministic: the type name is lowercased and
// any character outside [a-z0-9_] is replaced with an underscore.
func PartitionNameFor(typeName string) string {
	normalized := normalizeType(typeName)
	var b strings.Builder
	b.WriteString("resources_")
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func normalizeType(typeName string) string {
	return strings.ToLower(strings.TrimSpace(typeName))
}

// partitionState tracks one partition name through its lifecycle:
// unknown -> provisioning -> ready. Concurrent first-touch callers block on
// the per-name mutex, so two partitions never serialize against each other
// and nobody proceeds against a partially-indexed table.
type partitionState struct {
	mu        sync.Mutex
	ready     atomic.Bool
	partition *Partition
}

// PartitionRouter maps resource-type names to physical partitions and
// provisions each partition's schema and indexes exactly once per process.
type PartitionRouter struct {
	db *sql.DB

	mu         sync.RWMutex
	partitions map[string]*partitionState
}

// NewPartitionRouter creates a router over the given database handle.
func NewPartitionRouter(db *sql.DB) *PartitionRouter {
	return &PartitionRouter{
		db:         db,
		partitions: make(map[string]*partitionState),
	}
}

// Ensure returns the partition for a resource type, provisioning its table
// and index set on first use. Ensure is idempotent and safe under
// concurrent first calls: the common already-initialized case takes only a
// read lock, and a provisioning failure leaves the name uninitialized so
// the next call retries cleanly.
func (r *PartitionRouter) Ensure(ctx context.Context, typeName string) (*Partition, error) {
	normalized := normalizeType(typeName)
	if normalized == "" {
		return nil, fmt.Errorf("resource type cannot be empty")
	}

	// Fast path: partition already provisioned.
	r.mu.RLock()
	st := r.partitions[normalized]
	r.mu.RUnlock()
	if st != nil && st.ready.Load() {
		return st.partition, nil
	}

	// Slow path: register the state entry, then serialize provisioning on
	// the per-name mutex.
	if st == nil {
		r.mu.Lock()
		st = r.partitions[normalized]
		if st == nil {
			st = &partitionState{}
			r.partitions[normalized] = st
		}
		r.mu.Unlock()
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// Another caller may have finished provisioning while we waited.
	if st.ready.Load() {
		return st.partition, nil
	}

	p := &Partition{Type: normalized, Table: PartitionNameFor(normalized)}
	if err := r.provision(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: partition %q: %v", ErrProvisioningFailure, normalized, err)
	}

	st.partition = p
	st.ready.Store(true)
	return p, nil
}

// provision creates the partition table and its index set. Index
// provisioning failure is fatal for the partition; the caller must not mark
// it ready.
func (r *PartitionRouter) provision(ctx context.Context, p *Partition) error {
	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL,
		payload TEXT,
		payload_blob BLOB,
		is_compressed INTEGER NOT NULL DEFAULT 0,
		version_id INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		deleted INTEGER NOT NULL DEFAULT 0,
		reference TEXT,
		code TEXT,
		created_at INTEGER NOT NULL,
		last_updated INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_record_id ON %[1]s(record_id);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_deleted ON %[1]s(deleted);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_deleted_updated ON %[1]s(deleted, last_updated DESC);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_deleted_id ON %[1]s(deleted, id ASC);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_reference ON %[1]s(deleted, reference) WHERE reference IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_%[1]s_code ON %[1]s(deleted, code) WHERE code IS NOT NULL;
	`, p.Table)

	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	return nil
}

// Known reports whether a partition has been provisioned in this process.
func (r *PartitionRouter) Known(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := r.partitions[normalizeType(typeName)]
	return st != nil && st.ready.Load()
}
