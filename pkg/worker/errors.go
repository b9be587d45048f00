package worker

import "errors"

var (
	// ErrNilProcessor indicates the pool was built without a processor.
	ErrNilProcessor = errors.New("worker pool processor cannot be nil")

	// ErrPoolNotStarted indicates Submit was called before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")

	// ErrPoolStopped indicates Submit was called after Stop.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrStopTimeout indicates workers did not drain within the stop
	// deadline.
	ErrStopTimeout = errors.New("worker pool stop timed out")
)
