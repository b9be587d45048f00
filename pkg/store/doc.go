// Package store implements the versioned resource store: per-type storage
// partitions provisioned lazily over SQLite, CRUD with optimistic
// concurrency and soft deletes, an append-only per-record version history,
// and cursor-based pagination.
//
// Each logical resource type ("patient", "observation", ...) maps to its own
// physical table with a fixed index set. Every mutation produces a new
// version and an immutable history entry in the same transaction. Reads and
// searches exclude soft-deleted records by default; tombstones stay
// addressable for history and audit use.
//
// Large payloads are compressed transparently on the way in and decompressed
// on the way out; callers only ever see raw text.
package store
