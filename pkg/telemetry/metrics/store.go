package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks versioned store operation outcomes and latency.
//
// Metrics:
//   - <ns>_<sub>_operations_total: operations by kind, resource type, status
//   - <ns>_<sub>_operation_duration_seconds: latency by kind and resource type
type StoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates and registers store metrics with the provided
// registry.
func NewStoreMetrics(cfg Config, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "operations_total",
				Help:      "Total store operations by kind, resource type, and status",
			},
			[]string{"operation", "resource_type", "status"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Store operation latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"operation", "resource_type"},
		),
	}

	registry.MustRegister(sm.operationsTotal, sm.operationDuration)

	return sm
}

// RecordOperation records one completed operation.
func (sm *StoreMetrics) RecordOperation(operation, resourceType, status string, duration time.Duration) {
	sm.operationsTotal.WithLabelValues(operation, resourceType, status).Inc()
	sm.operationDuration.WithLabelValues(operation, resourceType).Observe(duration.Seconds())
}
