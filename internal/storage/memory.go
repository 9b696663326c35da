package storage

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/hoanghai1803/pulse/internal/models"
)

// MemoryStore is an in-process Store. It backs the mock and snapshot modes,
// serves as the degraded-mode fallback and collects records for snapshots.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]models.Record
	statuses map[statusKey]models.SourceStatus
}

type statusKey struct {
	family, source string
}

// NewMemoryStore returns a MemoryStore holding records. Invalid records are
// skipped and later duplicates replace earlier ones.
func NewMemoryStore(records ...models.Record) *MemoryStore {
	m := &MemoryStore{
		records:  make(map[string]models.Record, len(records)),
		statuses: make(map[statusKey]models.SourceStatus),
	}
	for _, rec := range records {
		if validateRecord(rec) == nil {
			m.records[rec.ID] = normalizeRecord(rec)
		}
	}
	return m
}

// Upsert implements Store.
func (m *MemoryStore) Upsert(ctx context.Context, rec models.Record) (models.Record, error) {
	if err := ctx.Err(); err != nil {
		return models.Record{}, err
	}
	if err := validateRecord(rec); err != nil {
		return models.Record{}, err
	}
	rec = normalizeRecord(rec)

	m.mu.Lock()
	m.records[rec.ID] = rec
	m.mu.Unlock()

	return cloneRecord(rec), nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return models.Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Query implements Store.
func (m *MemoryStore) Query(_ context.Context, q Query, maxItems int) ([]models.Record, error) {
	m.mu.RLock()
	records := make([]models.Record, 0, len(m.records))
	for _, rec := range m.records {
		if q.Matches(rec) {
			records = append(records, cloneRecord(rec))
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(records)
	return capItems(records, maxItems), nil
}

// Categories implements Store.
func (m *MemoryStore) Categories(_ context.Context, maxItems int) ([]string, error) {
	m.mu.RLock()
	seen := make(map[string]struct{})
	for _, rec := range m.records {
		for _, c := range rec.Categories {
			seen[c] = struct{}{}
		}
	}
	m.mu.RUnlock()

	categories := slices.Sorted(maps.Keys(seen))
	if categories == nil {
		categories = []string{}
	}
	return capItems(categories, maxItems), nil
}

// IsFirstRun implements Store.
func (m *MemoryStore) IsFirstRun(_ context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records) == 0
}

// RecordFetch implements Store.
func (m *MemoryStore) RecordFetch(_ context.Context, status models.SourceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[statusKey{status.Family, status.Source}] = status
	return nil
}

// SourceStatuses implements Store.
func (m *MemoryStore) SourceStatuses(_ context.Context) ([]models.SourceStatus, error) {
	m.mu.RLock()
	statuses := slices.Collect(maps.Values(m.statuses))
	m.mu.RUnlock()

	if statuses == nil {
		statuses = []models.SourceStatus{}
	}
	slices.SortFunc(statuses, func(a, b models.SourceStatus) int {
		return cmp.Or(cmp.Compare(a.Family, b.Family), cmp.Compare(a.Source, b.Source))
	})
	return statuses, nil
}

// Records returns every record, newest first.
func (m *MemoryStore) Records() []models.Record {
	records, _ := m.Query(context.Background(), Query{}, 0)
	return records
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func cloneRecord(rec models.Record) models.Record {
	rec.Categories = slices.Clone(rec.Categories)
	return rec
}
