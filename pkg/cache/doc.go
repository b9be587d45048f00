// Package cache provides the namespaced read-through cache fronting the
// versioned store.
//
// Six independent namespaces carry their own default TTLs: resource
// lookups, search results, capability metadata, aggregate counts,
// terminology lookups, and validation outcomes. A write to one namespace
// never implicitly invalidates another. Every successful mutation of a
// record invalidates that record's exact resources entry plus every search
// and count entry scoped to its type; stale search results are a
// correctness bug, so that invalidation is deliberately coarse.
//
// The backend is pluggable: the in-process map backend here serves
// single-instance deployments, and a shared external cache can stand in for
// multi-instance ones. The contract and invalidation rules are identical
// either way, and cached entries are never a source of truth.
package cache
