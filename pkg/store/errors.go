package store

import "errors"

var (
	// ErrNotFound indicates the record (or requested version) does not
	// exist or has been soft-deleted.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates a create collided with a live record.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrVersionConflict indicates an optimistic concurrency precondition
	// failed. The caller must re-read the record and retry; the store never
	// retries internally.
	ErrVersionConflict = errors.New("version conflict")

	// ErrCompressionFailure indicates the payload codec failed. The
	// operation is aborted; data is never written partially decoded.
	ErrCompressionFailure = errors.New("payload compression failure")

	// ErrProvisioningFailure indicates partition or index setup failed.
	// The partition is left uninitialized so a later call can retry.
	ErrProvisioningFailure = errors.New("partition provisioning failure")

	// ErrInvalidCursor indicates a pagination cursor that was not produced
	// by this store.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)
