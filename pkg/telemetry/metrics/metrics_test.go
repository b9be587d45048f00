package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"carta-hq/titan/pkg/worker"
)

func testConfig() Config {
	return Config{Namespace: "titan", Subsystem: "store"}
}

func gatherNames(t *testing.T, registry *prometheus.Registry) map[string]bool {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestStoreMetricsRegistered(t *testing.T) {
	registry := NewRegistry()
	sm := NewStoreMetrics(testConfig(), registry)

	sm.RecordOperation("create", "patient", "success", 5*time.Millisecond)
	sm.RecordOperation("update", "patient", "version_conflict", time.Millisecond)

	names := gatherNames(t, registry)
	for _, want := range []string{
		"titan_store_operations_total",
		"titan_store_operation_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("metric %q not registered", want)
		}
	}
}

func TestCacheMetricsRegistered(t *testing.T) {
	registry := NewRegistry()
	cm := NewCacheMetrics(testConfig(), registry)

	cm.RecordHit("resources")
	cm.RecordMiss("searches")
	cm.RecordEviction("counts")
	cm.UpdateSize("resources", 42)

	names := gatherNames(t, registry)
	for _, want := range []string{
		"titan_store_cache_hits_total",
		"titan_store_cache_misses_total",
		"titan_store_cache_entries",
		"titan_store_cache_evictions_total",
	} {
		if !names[want] {
			t.Errorf("metric %q not registered", want)
		}
	}
}

func TestPoolMetricsRegistered(t *testing.T) {
	registry := NewRegistry()
	pm := NewPoolMetrics(testConfig(), registry)

	pm.Observe("interactive", worker.Stats{QueueDepth: 3, Processed: 10, Failed: 1, CallerRan: 2})

	names := gatherNames(t, registry)
	for _, want := range []string{
		"titan_store_pool_queue_depth",
		"titan_store_pool_caller_ran_total",
		"titan_store_pool_processed_total",
		"titan_store_pool_failed_total",
	} {
		if !names[want] {
			t.Errorf("metric %q not registered", want)
		}
	}
}

// Pool stats are cumulative snapshots; the published counters must track
// them monotonically, not reset with each observation.
func TestPoolCountersAccumulate(t *testing.T) {
	registry := NewRegistry()
	pm := NewPoolMetrics(testConfig(), registry)

	pm.Observe("bulk", worker.Stats{Processed: 10, Failed: 1, CallerRan: 2})
	pm.Observe("bulk", worker.Stats{Processed: 25, Failed: 1, CallerRan: 4})

	if got := testutil.ToFloat64(pm.processedTotal.WithLabelValues("bulk")); got != 25 {
		t.Errorf("processed counter = %v, want 25", got)
	}
	if got := testutil.ToFloat64(pm.failedTotal.WithLabelValues("bulk")); got != 1 {
		t.Errorf("failed counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.callerRanTotal.WithLabelValues("bulk")); got != 4 {
		t.Errorf("caller-ran counter = %v, want 4", got)
	}
}

func TestRegistryIncludesRuntimeCollectors(t *testing.T) {
	names := gatherNames(t, NewRegistry())
	if !names["go_goroutines"] {
		t.Error("registry missing Go runtime collectors")
	}
}
