package cache

import (
	"bytes"
	"testing"
	"time"
)

func newTestCache(t *testing.T, maxEntries int) *Cache {
	t.Helper()

	backend := NewMemoryBackend(maxEntries)
	c := New(backend, DefaultConfig(), nil)
	t.Cleanup(c.Close)
	return c
}

func TestPutGet(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put(Resources, ResourceKey("Patient", "pat-1"), []byte("v1"))

	got, ok := c.Get(Resources, ResourceKey("Patient", "pat-1"))
	if !ok {
		t.Fatal("Get() miss for fresh entry")
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Errorf("Get() = %q, want %q", got, "v1")
	}

	if _, ok := c.Get(Resources, ResourceKey("Patient", "absent")); ok {
		t.Error("Get() hit for absent key")
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put(Resources, "k", []byte("res"))
	c.Put(Metadata, "k", []byte("meta"))

	got, ok := c.Get(Metadata, "k")
	if !ok || string(got) != "meta" {
		t.Errorf("Get(Metadata) = %q, %v; want %q", got, ok, "meta")
	}

	c.InvalidateAll(Resources)
	if _, ok := c.Get(Resources, "k"); ok {
		t.Error("resources entry survived InvalidateAll")
	}
	if _, ok := c.Get(Metadata, "k"); !ok {
		t.Error("metadata entry lost to a resources-only invalidation")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t, 0)

	c.PutTTL(Searches, "Patient:q", []byte("page"), 20*time.Millisecond)
	if _, ok := c.Get(Searches, "Patient:q"); !ok {
		t.Fatal("Get() miss before TTL elapsed")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get(Searches, "Patient:q"); ok {
		t.Error("Get() hit after TTL elapsed")
	}
}

// TestInvalidateRecord checks the mutation invalidation rule: the exact
// resources entry and every type-scoped searches and counts entry go, and
// everything else stays.
func TestInvalidateRecord(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put(Resources, ResourceKey("Patient", "pat-1"), []byte("rec"))
	c.Put(Resources, ResourceKey("Patient", "pat-2"), []byte("rec"))
	c.Put(Searches, SearchKey("Patient", "name=smith"), []byte("page"))
	c.Put(Searches, SearchKey("Observation", "code=x"), []byte("page"))
	c.Put(Counts, CountKey("Patient"), []byte("42"))
	c.Put(Counts, CountKey("Observation"), []byte("7"))
	c.Put(Metadata, "capabilities", []byte("meta"))

	c.InvalidateRecord("Patient", "pat-1")

	if _, ok := c.Get(Resources, ResourceKey("Patient", "pat-1")); ok {
		t.Error("mutated record still cached")
	}
	if _, ok := c.Get(Resources, ResourceKey("Patient", "pat-2")); !ok {
		t.Error("sibling record evicted; only the exact entry should go")
	}
	if _, ok := c.Get(Searches, SearchKey("Patient", "name=smith")); ok {
		t.Error("type-scoped search survived a mutation")
	}
	if _, ok := c.Get(Searches, SearchKey("Observation", "code=x")); !ok {
		t.Error("other type's search evicted")
	}
	if _, ok := c.Get(Counts, CountKey("Patient")); ok {
		t.Error("type count survived a mutation")
	}
	if _, ok := c.Get(Counts, CountKey("Observation")); !ok {
		t.Error("other type's count evicted")
	}
	if _, ok := c.Get(Metadata, "capabilities"); !ok {
		t.Error("metadata evicted; record mutations must not touch it")
	}
}

func TestLRUEviction(t *testing.T) {
	backend := NewMemoryBackend(2)
	defer backend.Close()
	c := New(backend, DefaultConfig(), nil)

	c.Put(Resources, "a", []byte("1"))
	time.Sleep(2 * time.Millisecond)
	c.Put(Resources, "b", []byte("2"))
	time.Sleep(2 * time.Millisecond)

	// Touch "a" so "b" becomes the least recently used.
	if _, ok := c.Get(Resources, "a"); !ok {
		t.Fatal("Get(a) miss")
	}
	time.Sleep(2 * time.Millisecond)

	c.Put(Resources, "c", []byte("3"))

	if _, ok := c.Get(Resources, "b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get(Resources, "a"); !ok {
		t.Error("recently used entry evicted")
	}
	if _, ok := c.Get(Resources, "c"); !ok {
		t.Error("new entry missing")
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"resource key", ResourceKey("Patient", "pat-1"), "patient/pat-1"},
		{"search key", SearchKey("Patient", "name=smith"), "patient:name=smith"},
		{"count key", CountKey("Patient"), "patient:total"},
		{"casing folded", ResourceKey("PATIENT", "pat-1"), "patient/pat-1"},
		{"whitespace trimmed", CountKey(" Patient "), "patient:total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNamespacesComplete(t *testing.T) {
	want := []Namespace{Resources, Searches, Metadata, Counts, Terminology, Validation}
	got := Namespaces()
	if len(got) != len(want) {
		t.Fatalf("Namespaces() = %d entries, want %d", len(got), len(want))
	}
	for i, ns := range want {
		if got[i] != ns {
			t.Errorf("Namespaces()[%d] = %q, want %q", i, got[i], ns)
		}
	}
}

type countingMetrics struct {
	hits, misses, evictions int
}

func (m *countingMetrics) RecordHit(string)      { m.hits++ }
func (m *countingMetrics) RecordMiss(string)     { m.misses++ }
func (m *countingMetrics) RecordEviction(string) { m.evictions++ }
func (m *countingMetrics) UpdateSize(string, int) {}

func TestMetricsRecording(t *testing.T) {
	backend := NewMemoryBackend(0)
	defer backend.Close()
	m := &countingMetrics{}
	c := New(backend, DefaultConfig(), m)

	c.Put(Resources, "k", []byte("v"))
	c.Get(Resources, "k")
	c.Get(Resources, "missing")
	c.Invalidate(Resources, "k")

	if m.hits != 1 {
		t.Errorf("hits = %d, want 1", m.hits)
	}
	if m.misses != 1 {
		t.Errorf("misses = %d, want 1", m.misses)
	}
	if m.evictions != 1 {
		t.Errorf("evictions = %d, want 1", m.evictions)
	}
}

// Mixed-casing callers must address one set of entries: the store folds
// partition names to lower case, so the keys do too.
func TestInvalidateRecordCrossCasing(t *testing.T) {
	c := newTestCache(t, 0)

	c.Put(Resources, ResourceKey("Patient", "pat-1"), []byte("rec"))
	c.Put(Searches, SearchKey("Patient", "name=smith"), []byte("page"))
	c.Put(Counts, CountKey("Patient"), []byte("42"))

	c.InvalidateRecord("patient", "pat-1")

	if _, ok := c.Get(Resources, ResourceKey("Patient", "pat-1")); ok {
		t.Error("resource entry survived an invalidation through another casing")
	}
	if _, ok := c.Get(Searches, SearchKey("Patient", "name=smith")); ok {
		t.Error("search entry survived an invalidation through another casing")
	}
	if _, ok := c.Get(Counts, CountKey("Patient")); ok {
		t.Error("count entry survived an invalidation through another casing")
	}
}

func TestSetTTLs(t *testing.T) {
	c := newTestCache(t, 0)

	c.SetTTLs(map[Namespace]time.Duration{
		Resources: 20 * time.Millisecond,
		Searches:  0, // zero leaves the current TTL alone
	})

	c.Put(Resources, "k", []byte("v"))
	if _, ok := c.Get(Resources, "k"); !ok {
		t.Fatal("Get() miss before TTL elapsed")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get(Resources, "k"); ok {
		t.Error("Get() hit after the updated TTL elapsed")
	}

	// The untouched namespace keeps its long default.
	c.Put(Searches, "q", []byte("page"))
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(Searches, "q"); !ok {
		t.Error("namespace with zero update lost its default TTL")
	}
}
