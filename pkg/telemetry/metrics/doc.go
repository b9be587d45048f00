// Package metrics defines the Prometheus collectors for the resource
// store: operation counters and latency histograms, cache
// hit/miss/eviction counters per namespace, and worker pool gauges. All
// collectors register against a registry owned by this package so tests
// can assert on isolated registries.
package metrics
