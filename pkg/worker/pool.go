package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Pool is a bounded worker pool processing items of type T.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	workChan chan T
	wg       sync.WaitGroup

	// lifecycleMu fences queue sends against Stop: Submit holds the read
	// lock across its send, Stop closes workChan under the write lock.
	lifecycleMu sync.RWMutex
	started     bool
	stopped     bool

	// Statistics (atomic)
	submitted int64
	processed int64
	failed    int64
	callerRan int64
}

// NewPool creates a pool of the given size. Work submitted while the queue
// is full runs on the submitting goroutine (caller-runs backpressure).
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error) *Pool[T] {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	return &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		workChan:  make(chan T, queueSize),
	}
}

// Start launches the workers.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return nil
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	p.started = true
	return nil
}

// Submit queues work for the pool. When the queue is saturated the task
// executes synchronously on the caller, so no work is ever dropped; the
// processor's error (if any) is returned in that case.
func (p *Pool[T]) Submit(ctx context.Context, work T) error {
	p.lifecycleMu.RLock()
	if !p.started {
		p.lifecycleMu.RUnlock()
		return ErrPoolNotStarted
	}
	if p.stopped {
		p.lifecycleMu.RUnlock()
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		p.lifecycleMu.RUnlock()
		atomic.AddInt64(&p.submitted, 1)
		return nil
	default:
		p.lifecycleMu.RUnlock()
		// Queue full: run on the caller rather than drop.
		atomic.AddInt64(&p.submitted, 1)
		atomic.AddInt64(&p.callerRan, 1)
		return p.process(ctx, work)
	}
}

// Stop closes the queue and waits up to timeout for workers to drain the
// outstanding work.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if !p.started || p.stopped {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.stopped = true
	// The write lock excludes in-flight Submits, so no sender can race the
	// close.
	close(p.workChan)
	p.lifecycleMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	CallerRan  int64 `json:"caller_ran"`
}

// Stats returns current pool counters.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.workChan),
		Submitted:  atomic.LoadInt64(&p.submitted),
		Processed:  atomic.LoadInt64(&p.processed),
		Failed:     atomic.LoadInt64(&p.failed),
		CallerRan:  atomic.LoadInt64(&p.callerRan),
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	// Workers drain the closed channel on shutdown rather than abandoning
	// queued work.
	for work := range p.workChan {
		_ = p.process(ctx, work)
	}
}

func (p *Pool[T]) process(ctx context.Context, work T) error {
	err := p.processor(ctx, work)
	atomic.AddInt64(&p.processed, 1)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
	}
	return err
}
