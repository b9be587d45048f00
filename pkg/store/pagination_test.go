package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestListPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const total = 25
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("pat-%03d", i)
		if _, err := s.Create(ctx, "Patient", id, `{}`); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	// Walk the whole partition in pages of 10 and verify every record is
	// seen exactly once, in insertion order.
	seen := make(map[string]bool)
	var cursor string
	pages := 0
	for {
		page, err := s.List(ctx, "Patient", PageRequest{Cursor: cursor, Size: 10})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		pages++

		var prev int64
		for _, rec := range page.Records {
			if seen[rec.RecordID] {
				t.Errorf("record %s returned twice", rec.RecordID)
			}
			seen[rec.RecordID] = true
			if rec.physicalID <= prev {
				t.Errorf("records out of insertion order: %d after %d", rec.physicalID, prev)
			}
			prev = rec.physicalID
		}

		if !page.HasNext {
			break
		}
		cursor = page.NextCursor
	}

	if len(seen) != total {
		t.Errorf("walked %d records, want %d", len(seen), total)
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
}

func TestListDefaultsAndCaps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Patient", "pat-1", `{}`); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name string
		size int
		want int
	}{
		{"zero size uses default", 0, DefaultPageSize},
		{"negative size uses default", -5, DefaultPageSize},
		{"oversize is capped", MaxPageSize + 1, MaxPageSize},
		{"explicit size kept", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampPageSize(tt.size); got != tt.want {
				t.Errorf("clampPageSize(%d) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

func TestListBackward(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Create(ctx, "Patient", fmt.Sprintf("pat-%d", i), `{}`); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err := s.List(ctx, "Patient", PageRequest{Size: 3, Direction: Backward})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(page.Records))
	}
	if page.Records[0].RecordID != "pat-4" {
		t.Errorf("first backward record = %s, want pat-4", page.Records[0].RecordID)
	}
	if !page.HasNext {
		t.Error("HasNext = false, want true")
	}

	next, err := s.List(ctx, "Patient", PageRequest{Cursor: page.NextCursor, Size: 3, Direction: Backward})
	if err != nil {
		t.Fatalf("List() resume error = %v", err)
	}
	if len(next.Records) != 2 {
		t.Fatalf("resumed records = %d, want 2", len(next.Records))
	}
	if next.HasNext {
		t.Error("HasNext = true on final page")
	}
}

func TestInvalidCursor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"not a number", "bm90LWEtbnVtYmVy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.List(ctx, "Patient", PageRequest{Cursor: tt.cursor})
			if !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("List() error = %v, want ErrInvalidCursor", err)
			}
		})
	}
}

func TestPaginationSkipsDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := s.Create(ctx, "Patient", fmt.Sprintf("pat-%d", i), `{}`); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := s.Delete(ctx, "Patient", "pat-2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	page, err := s.List(ctx, "Patient", PageRequest{Size: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Records) != 5 {
		t.Errorf("records = %d, want 5", len(page.Records))
	}
	for _, rec := range page.Records {
		if rec.RecordID == "pat-2" {
			t.Error("deleted record appeared in listing")
		}
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.Create(ctx, "Observation", fmt.Sprintf("obs-%d", i), `{}`,
			WithReference("Patient/pat-1"), WithCode("8867-4"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := s.Create(ctx, "Observation", "obs-other", `{}`,
		WithReference("Patient/pat-2")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// Records without the indexed field are absent from that search.
	if _, err := s.Create(ctx, "Observation", "obs-bare", `{}`); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	page, err := s.Search(ctx, "Observation", "reference", "Patient/pat-1", PageRequest{Size: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(page.Records) != 4 {
		t.Errorf("reference search hits = %d, want 4", len(page.Records))
	}

	page, err = s.Search(ctx, "Observation", "code", "8867-4", PageRequest{Size: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(page.Records) != 4 {
		t.Errorf("code search hits = %d, want 4", len(page.Records))
	}

	if _, err := s.Search(ctx, "Observation", "payload", "x", PageRequest{}); err == nil {
		t.Error("Search() on unindexed field should fail")
	}
}

func TestSearchPaginated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := s.Create(ctx, "Observation", fmt.Sprintf("obs-%d", i), `{}`,
			WithReference("Patient/pat-1"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	seen := 0
	var cursor string
	for {
		page, err := s.Search(ctx, "Observation", "reference", "Patient/pat-1",
			PageRequest{Cursor: cursor, Size: 3})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		seen += len(page.Records)
		if !page.HasNext {
			break
		}
		cursor = page.NextCursor
	}
	if seen != 7 {
		t.Errorf("paginated search walked %d records, want 7", seen)
	}
}

func TestListAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Interleave creations across types; the global order is creation order.
	wantOrder := []string{"pat-0", "obs-0", "pat-1", "obs-1", "enc-0"}
	if _, err := s.Create(ctx, "Patient", "pat-0", `{}`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "Observation", "obs-0", `{}`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "Patient", "pat-1", `{}`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "Observation", "obs-1", `{}`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "Encounter", "enc-0", `{}`); err != nil {
		t.Fatal(err)
	}

	var got []string
	var cursor string
	for {
		page, err := s.ListAll(ctx, PageRequest{Cursor: cursor, Size: 2})
		if err != nil {
			t.Fatalf("ListAll() error = %v", err)
		}
		for _, rec := range page.Records {
			got = append(got, rec.RecordID)
		}
		if !page.HasNext {
			break
		}
		cursor = page.NextCursor
	}

	if len(got) != len(wantOrder) {
		t.Fatalf("ListAll() walked %d records, want %d", len(got), len(wantOrder))
	}
	for i := range wantOrder {
		if got[i] != wantOrder[i] {
			t.Errorf("ListAll()[%d] = %s, want %s", i, got[i], wantOrder[i])
		}
	}
}

func TestListAllSkipsDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Patient", "pat-0", `{}`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "Observation", "obs-0", `{}`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Delete(ctx, "Patient", "pat-0"); err != nil {
		t.Fatal(err)
	}

	page, err := s.ListAll(ctx, PageRequest{Size: 10})
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(page.Records))
	}
	if page.Records[0].RecordID != "obs-0" {
		t.Errorf("record = %s, want obs-0", page.Records[0].RecordID)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	for _, id := range []int64{1, 42, 1 << 40} {
		cursor := encodeCursor(id)
		got, err := decodeCursor(cursor)
		if err != nil {
			t.Fatalf("decodeCursor(%q) error = %v", cursor, err)
		}
		if got != id {
			t.Errorf("decodeCursor(encodeCursor(%d)) = %d", id, got)
		}
	}

	// Empty cursor anchors at the start.
	if got, err := decodeCursor(""); err != nil || got != 0 {
		t.Errorf("decodeCursor(\"\") = %d, %v; want 0, nil", got, err)
	}
}
