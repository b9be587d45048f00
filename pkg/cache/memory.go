package cache

import (
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value          []byte
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// MemoryBackend is a thread-safe in-process cache backend with TTL expiry
// and LRU eviction per namespace. It suits single-instance deployments;
// multi-instance deployments plug in a shared external backend instead.
type MemoryBackend struct {
	// entries maps namespace -> key -> entry
	entries map[Namespace]map[string]*memoryEntry

	// maxEntries caps each namespace (0 = unlimited)
	maxEntries int

	mu sync.RWMutex

	stopCh          chan struct{}
	closeOnce       sync.Once
	cleanupInterval time.Duration
}

// NewMemoryBackend creates a memory backend. maxEntries caps each
// namespace independently; 0 means unlimited.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	b := &MemoryBackend{
		entries:         make(map[Namespace]map[string]*memoryEntry),
		maxEntries:      maxEntries,
		stopCh:          make(chan struct{}),
		cleanupInterval: 30 * time.Second,
	}
	for _, ns := range Namespaces() {
		b.entries[ns] = make(map[string]*memoryEntry)
	}

	go b.cleanupExpired()

	return b
}

// Get retrieves a value. Expired entries read as misses.
func (b *MemoryBackend) Get(ns Namespace, key string) ([]byte, bool) {
	b.mu.RLock()
	entry, ok := b.entries[ns][key]
	if !ok || (!entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)) {
		b.mu.RUnlock()
		return nil, false
	}
	value := entry.value
	b.mu.RUnlock()

	b.mu.Lock()
	// Re-check: the entry may have been invalidated between locks.
	if entry, ok := b.entries[ns][key]; ok {
		entry.lastAccessedAt = time.Now()
	}
	b.mu.Unlock()

	return value, true
}

// Put stores a value. A ttl of 0 means no expiry. When the namespace is
// full the least recently accessed entry is evicted.
func (b *MemoryBackend) Put(ns Namespace, key string, value []byte, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.namespaceLocked(ns)
	if b.maxEntries > 0 && len(m) >= b.maxEntries {
		if _, exists := m[key]; !exists {
			b.evictLRULocked(m)
		}
	}

	now := time.Now()
	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	m[key] = &memoryEntry{
		value:          value,
		expiresAt:      expiresAt,
		lastAccessedAt: now,
	}
}

// Invalidate removes one entry.
func (b *MemoryBackend) Invalidate(ns Namespace, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.namespaceLocked(ns), key)
}

// InvalidateAll clears a namespace.
func (b *MemoryBackend) InvalidateAll(ns Namespace) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[ns] = make(map[string]*memoryEntry)
}

// InvalidatePrefix removes every entry in a namespace whose key starts
// with prefix. Used for type-scoped search and count invalidation.
func (b *MemoryBackend) InvalidatePrefix(ns Namespace, prefix string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.namespaceLocked(ns)
	for key := range m {
		if strings.HasPrefix(key, prefix) {
			delete(m, key)
		}
	}
}

// Len returns the live entry count of a namespace.
func (b *MemoryBackend) Len(ns Namespace) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries[ns])
}

// Close stops the cleanup goroutine. Close is idempotent.
func (b *MemoryBackend) Close() {
	b.closeOnce.Do(func() {
		close(b.stopCh)
	})
}

func (b *MemoryBackend) namespaceLocked(ns Namespace) map[string]*memoryEntry {
	m, ok := b.entries[ns]
	if !ok {
		m = make(map[string]*memoryEntry)
		b.entries[ns] = m
	}
	return m
}

// evictLRULocked evicts the least recently accessed entry. Must be called
// with the write lock held.
func (b *MemoryBackend) evictLRULocked(m map[string]*memoryEntry) {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range m {
		if oldestKey == "" || entry.lastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(m, oldestKey)
	}
}

// cleanupExpired periodically removes expired entries until Close.
func (b *MemoryBackend) cleanupExpired() {
	ticker := time.NewTicker(b.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.removeExpired()
		case <-b.stopCh:
			return
		}
	}
}

func (b *MemoryBackend) removeExpired() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for _, m := range b.entries {
		for key, entry := range m {
			if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
				delete(m, key)
			}
		}
	}
}
