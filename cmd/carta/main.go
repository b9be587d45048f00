// Carta Titan is a versioned resource store with optimistic concurrency.
//
// It stores JSON resources in lazily provisioned per-type partitions,
// providing:
//   - Versioned create/read/update/delete with conditional writes
//   - Soft deletes with a complete append-only version history
//   - Transparent gzip compression for large payloads
//   - Cursor-based pagination within and across resource types
//   - A TTL cache tier in front of the storage engine
//
// Usage:
//
//	# Start the store with default configuration
//	carta run
//
//	# Start with custom configuration file
//	carta run --config /path/to/config.yaml
//
//	# Show version information
//	carta version
//
//	# Validate a configuration file
//	carta validate --config /path/to/config.yaml
//
//	# Bulk import newline-delimited JSON
//	carta import --type Patient --file patients.ndjson
//
//	# Check history integrity for a resource type
//	carta verify --type Patient
package main

func main() {
	Execute()
}
