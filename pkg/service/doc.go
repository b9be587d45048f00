// Package service composes the versioned store, cache tier, worker pools,
// and audit emitter into the surface the request-handling layer calls.
//
// Reads are cache read-through; every successful mutation invalidates the
// record's exact cache entry plus all search and count entries for its
// type. Operation metrics and audit events are emitted for every call;
// audit emission never blocks the request path.
package service
