package audit

import (
	"context"
	"log/slog"
	"time"

	"carta-hq/titan/pkg/worker"
)

// Event describes one completed store operation.
type Event struct {
	Operation    string
	ResourceType string
	RecordID     string
	Duration     time.Duration
	Outcome      string
	Timestamp    time.Time
}

// Sink consumes audit events. Implementations must be non-blocking; they
// run on the audit pool's workers (or, under saturation, briefly on the
// emitting goroutine).
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// LogSink writes audit events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink over the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record implements Sink.
func (s *LogSink) Record(_ context.Context, e Event) error {
	s.logger.Info("store operation",
		"operation", e.Operation,
		"resource_type", e.ResourceType,
		"record_id", e.RecordID,
		"duration_ms", e.Duration.Milliseconds(),
		"outcome", e.Outcome,
	)
	return nil
}

// Emitter dispatches events to its sinks over a dedicated bounded pool.
type Emitter struct {
	pool  *worker.Pool[Event]
	sinks []Sink
}

// NewEmitter creates an emitter with its own audit pool.
func NewEmitter(workers, queueSize int, sinks ...Sink) *Emitter {
	e := &Emitter{sinks: sinks}
	e.pool = worker.NewPool(workers, queueSize, e.dispatch)
	return e
}

// Start launches the audit pool.
func (e *Emitter) Start(ctx context.Context) error {
	return e.pool.Start(ctx)
}

// Emit enqueues an event. It never fails the calling operation: a full
// queue falls back to running the sinks inline, and lifecycle errors are
// dropped silently since audit must not disturb the request path.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = e.pool.Submit(ctx, event)
}

// Stop drains outstanding events up to the given timeout.
func (e *Emitter) Stop(timeout time.Duration) error {
	return e.pool.Stop(timeout)
}

// Stats exposes the underlying pool counters.
func (e *Emitter) Stats() worker.Stats {
	return e.pool.Stats()
}

func (e *Emitter) dispatch(ctx context.Context, event Event) error {
	for _, sink := range e.sinks {
		if err := sink.Record(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
