package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestPartitionNameFor(t *testing.T) {
	tests := []struct {
		typeName string
		want     string
	}{
		{"Patient", "resources_patient"},
		{"patient", "resources_patient"},
		{"  Patient  ", "resources_patient"},
		{"CarePlan", "resources_careplan"},
		{"med-request", "resources_med_request"},
		{"Type.With.Dots", "resources_type_with_dots"},
		{"weird!type", "resources_weird_type"},
		{"abc123", "resources_abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			if got := PartitionNameFor(tt.typeName); got != tt.want {
				t.Errorf("PartitionNameFor(%q) = %q, want %q", tt.typeName, got, tt.want)
			}
		})
	}
}

func TestEnsureIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1, err := s.Router().Ensure(ctx, "Patient")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	p2, err := s.Router().Ensure(ctx, "patient")
	if err != nil {
		t.Fatalf("Ensure() second call error = %v", err)
	}
	if p1 != p2 {
		t.Error("Ensure() should return the same partition for equivalent names")
	}
	if !s.Router().Known("Patient") {
		t.Error("Known() = false after Ensure()")
	}
}

func TestEnsureEmptyType(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Router().Ensure(context.Background(), "  "); err == nil {
		t.Error("Ensure() with blank type should fail")
	}
}

func TestEnsureConcurrentFirstTouch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Many goroutines race to provision the same new partitions. Every call
	// must succeed and agree on the partition handle.
	const goroutines = 16
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			typeName := fmt.Sprintf("type-%d", i%4)
			if _, err := s.Router().Ensure(ctx, typeName); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Ensure() error = %v", err)
	}
	for i := 0; i < 4; i++ {
		if !s.Router().Known(fmt.Sprintf("type-%d", i)) {
			t.Errorf("partition type-%d not provisioned", i)
		}
	}
}

func TestPartitionsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Patient", "shared-id", `{"kind":"patient"}`); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Create(ctx, "Observation", "shared-id", `{"kind":"observation"}`); err != nil {
		t.Fatalf("Create() same id in other partition error = %v", err)
	}

	rec, err := s.Read(ctx, "Patient", "shared-id")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	text, _ := rec.Payload.Text()
	if text != `{"kind":"patient"}` {
		t.Errorf("payload = %q, want patient record", text)
	}

	if _, err := s.Delete(ctx, "Patient", "shared-id"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Read(ctx, "Observation", "shared-id"); err != nil {
		t.Errorf("Read() in sibling partition error = %v; delete must not cross partitions", err)
	}
}
