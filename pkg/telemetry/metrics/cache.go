package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks cache performance per namespace.
//
// Metrics:
//   - <ns>_<sub>_cache_hits_total: cache hits by namespace
//   - <ns>_<sub>_cache_misses_total: cache misses by namespace
//   - <ns>_<sub>_cache_entries: current entries by namespace
//   - <ns>_<sub>_cache_evictions_total: evictions by namespace
type CacheMetrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	entries        *prometheus.GaugeVec
	evictionsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics with the provided
// registry.
func NewCacheMetrics(cfg Config, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"namespace"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"namespace"},
		),

		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Current number of entries in cache",
			},
			[]string{"namespace"},
		),

		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"namespace"},
		),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.entries,
		cm.evictionsTotal,
	)

	return cm
}

// RecordHit records a cache hit for a namespace.
func (cm *CacheMetrics) RecordHit(namespace string) {
	cm.hitsTotal.WithLabelValues(namespace).Inc()
}

// RecordMiss records a cache miss for a namespace.
func (cm *CacheMetrics) RecordMiss(namespace string) {
	cm.missesTotal.WithLabelValues(namespace).Inc()
}

// RecordEviction records a cache eviction for a namespace. An eviction is
// any removal: TTL expiry, capacity pressure, or invalidation.
func (cm *CacheMetrics) RecordEviction(namespace string) {
	cm.evictionsTotal.WithLabelValues(namespace).Inc()
}

// UpdateSize updates the current entry count of a namespace.
func (cm *CacheMetrics) UpdateSize(namespace string, size int) {
	cm.entries.WithLabelValues(namespace).Set(float64(size))
}
