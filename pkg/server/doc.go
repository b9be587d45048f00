// Package server provides the operational HTTP endpoint for the store.
//
// This is not a data-plane surface: it exposes Prometheus metrics, health
// probes, and worker pool statistics for operators and schedulers. The
// server handles graceful shutdown on SIGTERM/SIGINT and can be stopped
// programmatically via Shutdown.
//
// # Routes
//
//   - GET /metrics - Prometheus metrics in exposition format
//   - GET /healthz - Liveness probe (verifies the store answers a query)
//   - GET /readyz  - Readiness probe (server accepting traffic)
//   - GET /statsz  - Worker pool counters as JSON
package server
