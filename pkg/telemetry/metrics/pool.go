package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"carta-hq/titan/pkg/worker"
)

// PoolMetrics tracks worker pool saturation per workload class.
//
// Metrics:
//   - <ns>_<sub>_pool_queue_depth: queued items by pool
//   - <ns>_<sub>_pool_caller_ran_total: caller-runs overflow executions by pool
//   - <ns>_<sub>_pool_processed_total: processed items by pool
//   - <ns>_<sub>_pool_failed_total: failed items by pool
type PoolMetrics struct {
	queueDepth     *prometheus.GaugeVec
	callerRanTotal *prometheus.CounterVec
	processedTotal *prometheus.CounterVec
	failedTotal    *prometheus.CounterVec

	// last holds the previous snapshot per pool so cumulative pool
	// counters can be republished as Prometheus counter increments.
	mu   sync.Mutex
	last map[string]worker.Stats
}

// NewPoolMetrics creates and registers pool metrics with the provided
// registry.
func NewPoolMetrics(cfg Config, registry *prometheus.Registry) *PoolMetrics {
	pm := &PoolMetrics{
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pool_queue_depth",
				Help:      "Current worker pool queue depth",
			},
			[]string{"pool"},
		),

		callerRanTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pool_caller_ran_total",
				Help:      "Work items executed on the caller due to a saturated queue",
			},
			[]string{"pool"},
		),

		processedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pool_processed_total",
				Help:      "Total work items processed",
			},
			[]string{"pool"},
		),

		failedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pool_failed_total",
				Help:      "Total work items that failed processing",
			},
			[]string{"pool"},
		),

		last: make(map[string]worker.Stats),
	}

	registry.MustRegister(pm.queueDepth, pm.callerRanTotal, pm.processedTotal, pm.failedTotal)

	return pm
}

// Observe publishes a snapshot of one pool's counters. The pool reports
// cumulative values, so each counter advances by the delta since the
// previous observation.
func (pm *PoolMetrics) Observe(pool string, stats worker.Stats) {
	pm.queueDepth.WithLabelValues(pool).Set(float64(stats.QueueDepth))

	pm.mu.Lock()
	prev := pm.last[pool]
	pm.last[pool] = stats
	pm.mu.Unlock()

	if d := stats.CallerRan - prev.CallerRan; d > 0 {
		pm.callerRanTotal.WithLabelValues(pool).Add(float64(d))
	}
	if d := stats.Processed - prev.Processed; d > 0 {
		pm.processedTotal.WithLabelValues(pool).Add(float64(d))
	}
	if d := stats.Failed - prev.Failed; d > 0 {
		pm.failedTotal.WithLabelValues(pool).Add(float64(d))
	}
}
