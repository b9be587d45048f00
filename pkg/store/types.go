package store

import (
	"fmt"
	"time"

	"carta-hq/titan/pkg/codec"
)

// Action identifies the mutation that produced a history entry.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Payload is the stored form of a resource body: either raw text or
// compressed bytes, never both. The zero value is an empty raw payload.
type Payload struct {
	raw          string
	compressed   []byte
	isCompressed bool
}

// RawPayload wraps plain text as a payload.
func RawPayload(text string) Payload {
	return Payload{raw: text}
}

// CompressedPayload wraps already-compressed bytes as a payload.
func CompressedPayload(data []byte) Payload {
	return Payload{compressed: data, isCompressed: true}
}

// IsCompressed reports whether the payload holds compressed bytes.
func (p Payload) IsCompressed() bool {
	return p.isCompressed
}

// Text returns the payload as plain text, decompressing if necessary.
func (p Payload) Text() (string, error) {
	if !p.isCompressed {
		return p.raw, nil
	}
	text, err := codec.Decompress(p.compressed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompressionFailure, err)
	}
	return text, nil
}

// Size returns the stored size of the payload in bytes.
func (p Payload) Size() int {
	if p.isCompressed {
		return len(p.compressed)
	}
	return len(p.raw)
}

// encodePayload applies the compression threshold to plain text.
func encodePayload(text string, threshold int) (Payload, error) {
	if len(text) > threshold {
		data, err := codec.Compress(text)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrCompressionFailure, err)
		}
		return CompressedPayload(data), nil
	}
	return RawPayload(text), nil
}

// columns returns the payload in its three-column persisted form.
func (p Payload) columns() (raw string, blob []byte, compressed bool) {
	return p.raw, p.compressed, p.isCompressed
}

// payloadFromColumns reconstructs a payload from its persisted form.
func payloadFromColumns(raw string, blob []byte, compressed bool) Payload {
	if compressed {
		return CompressedPayload(blob)
	}
	return RawPayload(raw)
}

// Record is the current state of one logical resource.
type Record struct {
	// PartitionKey is the resource-type name, e.g. "patient".
	PartitionKey string

	// RecordID is unique within the partition and stable for the record's
	// lifetime.
	RecordID string

	// Payload is the resource body. The store hands back raw payloads;
	// compression never leaks past the persistence boundary.
	Payload Payload

	// VersionID starts at 1 on creation and increments by exactly 1 on
	// every mutation, including delete.
	VersionID int64

	CreatedAt   time.Time
	LastUpdated time.Time

	Active  bool
	Deleted bool

	// physicalID is the insertion-ordered row id used for cursor
	// pagination. Never exposed to callers except encoded in a cursor.
	physicalID int64
}

// VersionToken returns the ETag-style token for the record's current
// version, used as the optimistic concurrency precondition.
func (r *Record) VersionToken() string {
	return fmt.Sprintf("W/%q", fmt.Sprint(r.VersionID))
}

// HistoryEntry is one immutable snapshot of a record version.
type HistoryEntry struct {
	PartitionKey string
	RecordID     string
	VersionID    int64
	Payload      Payload
	Action       Action
	Timestamp    time.Time
}

// WriteOption customizes a create or update.
type WriteOption func(*writeOptions)

type writeOptions struct {
	reference string
	code      string
}

// WithReference sets the indexed reference field extracted from the payload
// by the transcoding layer. Records written without it are simply absent
// from reference searches (the index is sparse).
func WithReference(ref string) WriteOption {
	return func(o *writeOptions) { o.reference = ref }
}

// WithCode sets the indexed coding field extracted from the payload by the
// transcoding layer.
func WithCode(code string) WriteOption {
	return func(o *writeOptions) { o.code = code }
}

func applyWriteOptions(opts []WriteOption) writeOptions {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
