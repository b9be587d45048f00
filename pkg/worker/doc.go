// Package worker provides bounded worker pools that separate workload
// classes: interactive request-path work, history writes, bulk import, and
// audit logging each get their own pool, queue depth, and lifecycle.
//
// Overflow policy is caller-runs: when a pool's queue is full, Submit
// executes the task on the calling goroutine instead of dropping or
// blocking indefinitely. That trades a little latency under saturation for
// zero data loss. Stop drains outstanding work up to a bounded wait.
package worker
