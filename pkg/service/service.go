package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"carta-hq/titan/pkg/audit"
	"carta-hq/titan/pkg/cache"
	"carta-hq/titan/pkg/store"
	"carta-hq/titan/pkg/telemetry/metrics"
	"carta-hq/titan/pkg/worker"
)

// Config sizes the service's worker pools.
type Config struct {
	InteractiveWorkers int
	InteractiveQueue   int
	HistoryWorkers     int
	HistoryQueue       int
	BulkWorkers        int
	BulkQueue          int
}

// Service fronts the versioned store with caching, audit, and the bounded
// worker pools that separate workload classes.
type Service struct {
	store *store.Store
	cache *cache.Cache
	audit *audit.Emitter

	// interactive fans out request-path batch reads.
	interactive *worker.Pool[func(context.Context)]
	// history runs high-volume history verification work.
	history *worker.Pool[func(context.Context)]
	// bulk runs batch imports.
	bulk *worker.Pool[func(context.Context)]

	metrics *metrics.StoreMetrics
}

// New creates a service. The cache, audit emitter, and metrics may be nil;
// the corresponding concern is then skipped.
func New(s *store.Store, c *cache.Cache, emitter *audit.Emitter, sm *metrics.StoreMetrics, cfg Config) *Service {
	run := func(ctx context.Context, task func(context.Context)) error {
		task(ctx)
		return nil
	}
	return &Service{
		store:       s,
		cache:       c,
		audit:       emitter,
		interactive: worker.NewPool(cfg.InteractiveWorkers, cfg.InteractiveQueue, run),
		history:     worker.NewPool(cfg.HistoryWorkers, cfg.HistoryQueue, run),
		bulk:        worker.NewPool(cfg.BulkWorkers, cfg.BulkQueue, run),
		metrics:     sm,
	}
}

// Start launches the worker pools.
func (svc *Service) Start(ctx context.Context) error {
	if err := svc.interactive.Start(ctx); err != nil {
		return err
	}
	if err := svc.history.Start(ctx); err != nil {
		return err
	}
	return svc.bulk.Start(ctx)
}

// Stop drains the pools up to the given timeout each.
func (svc *Service) Stop(timeout time.Duration) error {
	var firstErr error
	for _, p := range []*worker.Pool[func(context.Context)]{svc.interactive, svc.history, svc.bulk} {
		if err := p.Stop(timeout); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// cachedRecord is the serialized form of a record in the resources
// namespace.
type cachedRecord struct {
	Payload     string    `json:"payload"`
	VersionID   int64     `json:"version_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// RecordView is what the service hands to callers: the decoded payload and
// version token, never compressed bytes.
type RecordView struct {
	ResourceType string
	RecordID     string
	Payload      string
	VersionID    int64
	VersionToken string
	CreatedAt    time.Time
	LastUpdated  time.Time
}

func viewFromRecord(rec *store.Record) (*RecordView, error) {
	text, err := rec.Payload.Text()
	if err != nil {
		return nil, err
	}
	return &RecordView{
		ResourceType: rec.PartitionKey,
		RecordID:     rec.RecordID,
		Payload:      text,
		VersionID:    rec.VersionID,
		VersionToken: rec.VersionToken(),
		CreatedAt:    rec.CreatedAt,
		LastUpdated:  rec.LastUpdated,
	}, nil
}

// Create writes version 1 of a record and invalidates the type's search
// and count caches.
func (svc *Service) Create(ctx context.Context, resourceType, id, payload string, opts ...store.WriteOption) (*RecordView, error) {
	start := time.Now()
	rec, err := svc.store.Create(ctx, resourceType, id, payload, opts...)
	svc.observe(ctx, "create", resourceType, recordID(rec, id), start, err)
	if err != nil {
		return nil, err
	}

	svc.invalidate(resourceType, rec.RecordID)
	return viewFromRecord(rec)
}

// Read returns the live record, from cache when possible.
func (svc *Service) Read(ctx context.Context, resourceType, id string) (*RecordView, error) {
	start := time.Now()

	key := cache.ResourceKey(resourceType, id)
	if svc.cache != nil {
		if data, ok := svc.cache.Get(cache.Resources, key); ok {
			var cached cachedRecord
			if err := json.Unmarshal(data, &cached); err == nil {
				svc.observe(ctx, "read", resourceType, id, start, nil)
				return &RecordView{
					ResourceType: resourceType,
					RecordID:     id,
					Payload:      cached.Payload,
					VersionID:    cached.VersionID,
					VersionToken: fmt.Sprintf("W/%q", fmt.Sprint(cached.VersionID)),
					CreatedAt:    cached.CreatedAt,
					LastUpdated:  cached.LastUpdated,
				}, nil
			}
		}
	}

	rec, err := svc.store.Read(ctx, resourceType, id)
	svc.observe(ctx, "read", resourceType, id, start, err)
	if err != nil {
		return nil, err
	}

	view, err := viewFromRecord(rec)
	if err != nil {
		return nil, err
	}

	if svc.cache != nil {
		if data, err := json.Marshal(cachedRecord{
			Payload:     view.Payload,
			VersionID:   view.VersionID,
			CreatedAt:   view.CreatedAt,
			LastUpdated: view.LastUpdated,
		}); err == nil {
			svc.cache.Put(cache.Resources, key, data)
		}
	}
	return view, nil
}

// ReadMulti reads several records of one type concurrently over the
// interactive pool. Missing records are returned as nil slots so callers
// can correlate by index.
func (svc *Service) ReadMulti(ctx context.Context, resourceType string, ids []string) ([]*RecordView, error) {
	views := make([]*RecordView, len(ids))
	errs := make([]error, len(ids))

	done := make(chan int, len(ids))
	for i, id := range ids {
		i, id := i, id
		err := svc.interactive.Submit(ctx, func(ctx context.Context) {
			view, err := svc.Read(ctx, resourceType, id)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				errs[i] = err
			}
			views[i] = view
			done <- i
		})
		if err != nil {
			return nil, err
		}
	}
	for range ids {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return views, nil
}

// Update persists a new version under the optimistic concurrency
// precondition and invalidates the record's cache entries.
func (svc *Service) Update(ctx context.Context, resourceType, id, payload string, expectedVersion int64, opts ...store.WriteOption) (*RecordView, error) {
	start := time.Now()
	rec, err := svc.store.Update(ctx, resourceType, id, payload, expectedVersion, opts...)
	svc.observe(ctx, "update", resourceType, id, start, err)
	if err != nil {
		return nil, err
	}

	svc.invalidate(resourceType, id)
	return viewFromRecord(rec)
}

// Delete soft-deletes a record and invalidates its cache entries. The
// returned token identifies the tombstone version.
func (svc *Service) Delete(ctx context.Context, resourceType, id string) (string, error) {
	start := time.Now()
	token, err := svc.store.Delete(ctx, resourceType, id)
	svc.observe(ctx, "delete", resourceType, id, start, err)
	if err != nil {
		return "", err
	}

	svc.invalidate(resourceType, id)
	return token, nil
}

// Exists reports whether a live record occupies (type, id).
func (svc *Service) Exists(ctx context.Context, resourceType, id string) (bool, error) {
	return svc.store.Exists(ctx, resourceType, id)
}

// History returns the version trail, newest first. Tombstoned records keep
// their full trail.
func (svc *Service) History(ctx context.Context, resourceType, id string, since time.Time) ([]*store.HistoryEntry, error) {
	start := time.Now()
	entries, err := svc.store.ListHistory(ctx, resourceType, id, since)
	svc.observe(ctx, "history", resourceType, id, start, err)
	return entries, err
}

// HistoryAt returns one version snapshot.
func (svc *Service) HistoryAt(ctx context.Context, resourceType, id string, version int64) (*store.HistoryEntry, error) {
	return svc.store.HistoryAt(ctx, resourceType, id, version)
}

// List returns one cursor page from a single partition.
func (svc *Service) List(ctx context.Context, resourceType string, req store.PageRequest) (*store.Page, error) {
	start := time.Now()
	page, err := svc.store.List(ctx, resourceType, req)
	svc.observe(ctx, "list", resourceType, "", start, err)
	return page, err
}

// ListAll returns one cursor page across all partitions in global creation
// order.
func (svc *Service) ListAll(ctx context.Context, req store.PageRequest) (*store.Page, error) {
	start := time.Now()
	page, err := svc.store.ListAll(ctx, req)
	svc.observe(ctx, "list", "*", "", start, err)
	return page, err
}

// cachedPage is the serialized form of a search page.
type cachedPage struct {
	Records    []cachedPageRecord `json:"records"`
	NextCursor string             `json:"next_cursor"`
	HasNext    bool               `json:"has_next"`
}

type cachedPageRecord struct {
	RecordID  string `json:"record_id"`
	Payload   string `json:"payload"`
	VersionID int64  `json:"version_id"`
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Records    []*RecordView
	NextCursor string
	HasNext    bool
}

// Search returns one page of records whose indexed field matches value,
// served from the searches cache when the identical query was answered
// within its TTL.
func (svc *Service) Search(ctx context.Context, resourceType, field, value string, req store.PageRequest) (*SearchResult, error) {
	start := time.Now()
	key := cache.SearchKey(resourceType,
		fmt.Sprintf("%s=%s&cursor=%s&size=%d&dir=%d", field, value, req.Cursor, req.Size, req.Direction))

	if svc.cache != nil {
		if data, ok := svc.cache.Get(cache.Searches, key); ok {
			var cached cachedPage
			if err := json.Unmarshal(data, &cached); err == nil {
				svc.observe(ctx, "search", resourceType, "", start, nil)
				return searchResultFromCached(resourceType, cached), nil
			}
		}
	}

	page, err := svc.store.Search(ctx, resourceType, field, value, req)
	svc.observe(ctx, "search", resourceType, "", start, err)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{NextCursor: page.NextCursor, HasNext: page.HasNext}
	cached := cachedPage{NextCursor: page.NextCursor, HasNext: page.HasNext}
	for _, rec := range page.Records {
		view, err := viewFromRecord(rec)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, view)
		cached.Records = append(cached.Records, cachedPageRecord{
			RecordID:  view.RecordID,
			Payload:   view.Payload,
			VersionID: view.VersionID,
		})
	}

	if svc.cache != nil {
		if data, err := json.Marshal(cached); err == nil {
			svc.cache.Put(cache.Searches, key, data)
		}
	}
	return result, nil
}

// Count returns the number of live records of a type, cached under the
// counts namespace.
func (svc *Service) Count(ctx context.Context, resourceType string) (int64, error) {
	key := cache.CountKey(resourceType)
	if svc.cache != nil {
		if data, ok := svc.cache.Get(cache.Counts, key); ok {
			var n int64
			if err := json.Unmarshal(data, &n); err == nil {
				return n, nil
			}
		}
	}

	n, err := svc.store.Count(ctx, resourceType)
	if err != nil {
		return 0, err
	}
	if svc.cache != nil {
		if data, err := json.Marshal(n); err == nil {
			svc.cache.Put(cache.Counts, key, data)
		}
	}
	return n, nil
}

func searchResultFromCached(resourceType string, cached cachedPage) *SearchResult {
	result := &SearchResult{NextCursor: cached.NextCursor, HasNext: cached.HasNext}
	for _, r := range cached.Records {
		result.Records = append(result.Records, &RecordView{
			ResourceType: resourceType,
			RecordID:     r.RecordID,
			Payload:      r.Payload,
			VersionID:    r.VersionID,
			VersionToken: fmt.Sprintf("W/%q", fmt.Sprint(r.VersionID)),
		})
	}
	return result
}

// ImportItem is one record in a bulk import batch.
type ImportItem struct {
	RecordID string
	Payload  string
}

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Created int64
	Skipped int64
	Failed  int64
}

// BulkImport creates the given records over the bulk pool. Records whose
// id already holds a live record are skipped, not overwritten.
func (svc *Service) BulkImport(ctx context.Context, resourceType string, items []ImportItem) (*ImportReport, error) {
	var report ImportReport
	var mu sync.Mutex

	done := make(chan struct{}, len(items))
	for _, item := range items {
		item := item
		err := svc.bulk.Submit(ctx, func(ctx context.Context) {
			defer func() { done <- struct{}{} }()
			_, err := svc.Create(ctx, resourceType, item.RecordID, item.Payload)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Created++
			case errors.Is(err, store.ErrAlreadyExists):
				report.Skipped++
			default:
				report.Failed++
			}
		})
		if err != nil {
			return nil, err
		}
	}
	for range items {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &report, nil
}

// IntegrityIssue describes one record whose history trail disagrees with
// its version counter.
type IntegrityIssue struct {
	RecordID  string
	VersionID int64
	Entries   int
}

// VerifyHistoryIntegrity walks the live records of a type over the history
// pool and reports every record whose version counter does not match its
// history entry count. A healthy record at version N has exactly N entries.
func (svc *Service) VerifyHistoryIntegrity(ctx context.Context, resourceType string) ([]IntegrityIssue, error) {
	var issues []IntegrityIssue
	var mu sync.Mutex
	var firstErr error

	req := store.PageRequest{Size: store.MaxPageSize}
	for {
		page, err := svc.store.List(ctx, resourceType, req)
		if err != nil {
			return nil, err
		}

		done := make(chan struct{}, len(page.Records))
		for _, rec := range page.Records {
			rec := rec
			err := svc.history.Submit(ctx, func(ctx context.Context) {
				defer func() { done <- struct{}{} }()
				entries, err := svc.store.ListHistory(ctx, resourceType, rec.RecordID, time.Time{})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				if int64(len(entries)) != rec.VersionID {
					issues = append(issues, IntegrityIssue{
						RecordID:  rec.RecordID,
						VersionID: rec.VersionID,
						Entries:   len(entries),
					})
				}
			})
			if err != nil {
				return nil, err
			}
		}
		for range page.Records {
			select {
			case <-done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if firstErr != nil {
			return nil, firstErr
		}
		if !page.HasNext {
			return issues, nil
		}
		req.Cursor = page.NextCursor
	}
}

// PoolStats exposes the pool counters for the operational endpoint.
func (svc *Service) PoolStats() map[string]worker.Stats {
	return map[string]worker.Stats{
		"interactive": svc.interactive.Stats(),
		"history":     svc.history.Stats(),
		"bulk":        svc.bulk.Stats(),
	}
}

// invalidate applies the mutation invalidation rule.
func (svc *Service) invalidate(resourceType, id string) {
	if svc.cache != nil {
		svc.cache.InvalidateRecord(resourceType, id)
	}
}

// observe records metrics and emits the audit event for one operation.
func (svc *Service) observe(ctx context.Context, operation, resourceType, id string, start time.Time, err error) {
	duration := time.Since(start)
	outcome := classify(err)

	if svc.metrics != nil {
		svc.metrics.RecordOperation(operation, resourceType, outcome, duration)
	}
	if svc.audit != nil {
		svc.audit.Emit(ctx, audit.Event{
			Operation:    operation,
			ResourceType: resourceType,
			RecordID:     id,
			Duration:     duration,
			Outcome:      outcome,
		})
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, store.ErrVersionConflict):
		return "version_conflict"
	default:
		return "error"
	}
}

func recordID(rec *store.Record, fallback string) string {
	if rec != nil {
		return rec.RecordID
	}
	return fallback
}
