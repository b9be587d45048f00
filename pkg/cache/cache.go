package cache

import (
	"strings"
	"sync"
	"time"
)

// Namespace is an independently configured logical cache partition.
type Namespace string

const (
	// Resources caches entity-level lookups keyed exactly by (type, id).
	Resources Namespace = "resources"
	// Searches caches filtered and listing results; these go stale fastest.
	Searches Namespace = "searches"
	// Metadata caches capability and schema metadata.
	Metadata Namespace = "metadata"
	// Counts caches aggregate counts per type.
	Counts Namespace = "counts"
	// Terminology caches reference and terminology lookups.
	Terminology Namespace = "terminology"
	// Validation caches validation outcomes.
	Validation Namespace = "validation"
)

// Namespaces lists every namespace in a stable order.
func Namespaces() []Namespace {
	return []Namespace{Resources, Searches, Metadata, Counts, Terminology, Validation}
}

// Backend is a pluggable cache store. Implementations must be safe for
// concurrent use.
type Backend interface {
	Get(ns Namespace, key string) ([]byte, bool)
	Put(ns Namespace, key string, value []byte, ttl time.Duration)
	Invalidate(ns Namespace, key string)
	InvalidateAll(ns Namespace)
	InvalidatePrefix(ns Namespace, prefix string)
	Len(ns Namespace) int
	Close()
}

// Metrics receives cache hit/miss/eviction signals. The telemetry metrics
// package satisfies it; a nil Metrics disables recording.
type Metrics interface {
	RecordHit(namespace string)
	RecordMiss(namespace string)
	RecordEviction(namespace string)
	UpdateSize(namespace string, size int)
}

// Config carries per-namespace default TTLs.
type Config struct {
	TTLs map[Namespace]time.Duration
}

// DefaultConfig returns the TTL classes: short for searches, medium for
// resources, counts and validation, long for metadata and terminology.
func DefaultConfig() Config {
	return Config{TTLs: map[Namespace]time.Duration{
		Resources:   5 * time.Minute,
		Searches:    30 * time.Second,
		Metadata:    1 * time.Hour,
		Counts:      2 * time.Minute,
		Terminology: 1 * time.Hour,
		Validation:  10 * time.Minute,
	}}
}

// Cache fronts a Backend with per-namespace TTL defaults, the record
// invalidation rules, and metrics.
type Cache struct {
	backend Backend
	metrics Metrics

	ttlMu sync.RWMutex
	ttls  map[Namespace]time.Duration
}

// New creates a cache over the given backend. Missing TTLs fall back to
// the defaults; a nil metrics sink disables recording.
func New(backend Backend, cfg Config, metrics Metrics) *Cache {
	ttls := DefaultConfig().TTLs
	for ns, ttl := range cfg.TTLs {
		if ttl > 0 {
			ttls[ns] = ttl
		}
	}
	return &Cache{backend: backend, ttls: ttls, metrics: metrics}
}

// Get returns the cached value for (ns, key), if present and unexpired.
func (c *Cache) Get(ns Namespace, key string) ([]byte, bool) {
	value, ok := c.backend.Get(ns, key)
	if c.metrics != nil {
		if ok {
			c.metrics.RecordHit(string(ns))
		} else {
			c.metrics.RecordMiss(string(ns))
		}
		c.metrics.UpdateSize(string(ns), c.backend.Len(ns))
	}
	return value, ok
}

// Put stores a value under the namespace's default TTL.
func (c *Cache) Put(ns Namespace, key string, value []byte) {
	c.PutTTL(ns, key, value, c.ttl(ns))
}

func (c *Cache) ttl(ns Namespace) time.Duration {
	c.ttlMu.RLock()
	defer c.ttlMu.RUnlock()
	return c.ttls[ns]
}

// SetTTLs updates namespace TTLs at runtime, for config reload. Zero and
// negative values leave the namespace's current TTL in place; entries
// already stored keep the TTL they were written with.
func (c *Cache) SetTTLs(ttls map[Namespace]time.Duration) {
	c.ttlMu.Lock()
	defer c.ttlMu.Unlock()
	for ns, ttl := range ttls {
		if ttl > 0 {
			c.ttls[ns] = ttl
		}
	}
}

// PutTTL stores a value under an explicit TTL.
func (c *Cache) PutTTL(ns Namespace, key string, value []byte, ttl time.Duration) {
	c.backend.Put(ns, key, value, ttl)
	if c.metrics != nil {
		c.metrics.UpdateSize(string(ns), c.backend.Len(ns))
	}
}

// Invalidate removes one exact entry.
func (c *Cache) Invalidate(ns Namespace, key string) {
	c.backend.Invalidate(ns, key)
	if c.metrics != nil {
		c.metrics.RecordEviction(string(ns))
	}
}

// InvalidateAll clears a whole namespace.
func (c *Cache) InvalidateAll(ns Namespace) {
	c.backend.InvalidateAll(ns)
	if c.metrics != nil {
		c.metrics.RecordEviction(string(ns))
		c.metrics.UpdateSize(string(ns), 0)
	}
}

// InvalidateRecord applies the mutation invalidation rule for one record:
// the exact resources entry for (type, id), and every searches and counts
// entry scoped to the type. Other namespaces are untouched.
func (c *Cache) InvalidateRecord(resourceType, id string) {
	c.Invalidate(Resources, ResourceKey(resourceType, id))
	c.backend.InvalidatePrefix(Searches, typePrefix(resourceType))
	c.backend.InvalidatePrefix(Counts, typePrefix(resourceType))
	if c.metrics != nil {
		c.metrics.RecordEviction(string(Searches))
		c.metrics.RecordEviction(string(Counts))
	}
}

// Close releases the backend.
func (c *Cache) Close() {
	c.backend.Close()
}

// ResourceKey builds the exact resources-namespace key for a record.
func ResourceKey(resourceType, id string) string {
	return normalizeType(resourceType) + "/" + id
}

// SearchKey builds a searches-namespace key scoped to a type so that
// type-level invalidation can find it.
func SearchKey(resourceType, query string) string {
	return typePrefix(resourceType) + query
}

// CountKey builds the counts-namespace key for a type.
func CountKey(resourceType string) string {
	return typePrefix(resourceType) + "total"
}

func typePrefix(resourceType string) string {
	return normalizeType(resourceType) + ":"
}

// normalizeType folds the type name the same way the store's partition
// router does, so callers using different casings address one cache entry.
func normalizeType(resourceType string) string {
	return strings.ToLower(strings.TrimSpace(resourceType))
}
