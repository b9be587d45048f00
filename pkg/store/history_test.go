package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHistorySnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Patient", "pat-1", `{"v":1}`); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Update(ctx, "Patient", "pat-1", `{"v":2}`, 0); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := s.Update(ctx, "Patient", "pat-1", `{"v":3}`, 0); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// Each version snapshot keeps the payload as it was at that version.
	for version := int64(1); version <= 3; version++ {
		entry, err := s.HistoryAt(ctx, "Patient", "pat-1", version)
		if err != nil {
			t.Fatalf("HistoryAt(%d) error = %v", version, err)
		}
		text, err := entry.Payload.Text()
		if err != nil {
			t.Fatalf("Payload.Text() error = %v", err)
		}
		want := map[int64]string{1: `{"v":1}`, 2: `{"v":2}`, 3: `{"v":3}`}[version]
		if text != want {
			t.Errorf("HistoryAt(%d) payload = %q, want %q", version, text, want)
		}
	}

	if _, err := s.HistoryAt(ctx, "Patient", "pat-1", 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("HistoryAt(99) error = %v, want ErrNotFound", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Patient", "pat-1", `{}`); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := s.Update(ctx, "Patient", "pat-1", `{}`, 0); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.ListHistory(ctx, "Patient", "pat-1", time.Time{})
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(entries))
	}
	for i, entry := range entries {
		if want := int64(5 - i); entry.VersionID != want {
			t.Errorf("entries[%d].VersionID = %d, want %d", i, entry.VersionID, want)
		}
	}
}

func TestHistorySince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Patient", "pat-1", `{}`); err != nil {
		t.Fatal(err)
	}

	// Entries at or after the cutoff are included; the create before it
	// is not.
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)

	if _, err := s.Update(ctx, "Patient", "pat-1", `{}`, 0); err != nil {
		t.Fatal(err)
	}

	entries, err := s.ListHistory(ctx, "Patient", "pat-1", cutoff)
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries since cutoff = %d, want 1", len(entries))
	}
	if entries[0].VersionID != 2 {
		t.Errorf("entry VersionID = %d, want 2", entries[0].VersionID)
	}
}

func TestHistoryIsolatedPerRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Patient", "pat-1", `{}`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "Patient", "pat-2", `{}`); err != nil {
		t.Fatal(err)
	}
	// Same id in a different partition must not bleed across.
	if _, err := s.Create(ctx, "Observation", "pat-1", `{}`); err != nil {
		t.Fatal(err)
	}

	entries, err := s.ListHistory(ctx, "Patient", "pat-1", time.Time{})
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestPruneHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Patient", "pat-1", `{}`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update(ctx, "Patient", "pat-1", `{}`, 0); err != nil {
		t.Fatal(err)
	}

	// Nothing is older than a past cutoff.
	n, err := s.PruneHistory(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if n != 0 {
		t.Errorf("pruned = %d, want 0", n)
	}

	// A future cutoff expires the whole trail; the current record remains.
	n, err = s.PruneHistory(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}

	if _, err := s.Read(ctx, "Patient", "pat-1"); err != nil {
		t.Errorf("Read() after prune error = %v; pruning must not touch current records", err)
	}
}
