package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Config identifies the metric namespace for all collectors.
type Config struct {
	// Namespace is the metric name prefix, e.g. "titan".
	Namespace string

	// Subsystem groups metrics below the namespace, e.g. "store".
	Subsystem string
}

// NewRegistry creates a registry pre-loaded with the standard process and
// Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}
