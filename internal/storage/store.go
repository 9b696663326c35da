package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/hoanghai1803/pulse/internal/models"
)

// Store is the persistence contract shared by every backend. Records are only
// ever written through Upsert, which is keyed by Record.ID.
type Store interface {
	// Upsert inserts rec or replaces the record with the same ID and returns
	// the record as stored. Failures wrap ErrStoreWrite.
	Upsert(ctx context.Context, rec models.Record) (models.Record, error)
	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (models.Record, error)
	// Query returns at most maxItems records, newest first. A non-positive
	// maxItems means no limit.
	Query(ctx context.Context, q Query, maxItems int) ([]models.Record, error)
	// Categories returns at most maxItems distinct categories, sorted.
	Categories(ctx context.Context, maxItems int) ([]string, error)
	// IsFirstRun reports whether the store holds no records. A failed check
	// reports false.
	IsFirstRun(ctx context.Context) bool
	// RecordFetch saves the outcome of the latest ingestion of one source.
	RecordFetch(ctx context.Context, status models.SourceStatus) error
	// SourceStatuses returns the latest outcome of every source, ordered by
	// family then source.
	SourceStatuses(ctx context.Context) ([]models.SourceStatus, error)
}

// Query filters a record listing. The zero value matches every record.
type Query struct {
	// Category, when set, keeps only records tagged with it.
	Category string
}

// Matches reports whether rec passes the filter.
func (q Query) Matches(rec models.Record) bool {
	return q.Category == "" || rec.HasCategory(q.Category)
}

// validateRecord rejects records that must never be persisted.
func validateRecord(rec models.Record) error {
	switch {
	case rec.ID == "":
		return fmt.Errorf("%w: record id is empty", ErrStoreWrite)
	case rec.Title == "":
		return fmt.Errorf("%w: record %q has no title", ErrStoreWrite, rec.ID)
	case rec.Link == "":
		return fmt.Errorf("%w: record %q has no link", ErrStoreWrite, rec.ID)
	case !rec.Kind.Valid():
		return fmt.Errorf("%w: record %q has unknown kind %q", ErrStoreWrite, rec.ID, rec.Kind)
	}
	return nil
}

// normalizeRecord returns the form every backend stores: UTC second-precision
// timestamps and a deduplicated, non-nil categories slice owned by the store.
func normalizeRecord(rec models.Record) models.Record {
	rec.PublishedAt = rec.PublishedAt.UTC().Truncate(time.Second)
	rec.Categories = lo.Uniq(rec.Categories)
	if rec.Categories == nil {
		rec.Categories = []string{}
	}
	return rec
}

// sortNewestFirst orders records by publish time, newest first, breaking ties
// by ID so listings are stable.
func sortNewestFirst(records []models.Record) {
	slices.SortFunc(records, func(a, b models.Record) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func capItems[T any](items []T, maxItems int) []T {
	if maxItems > 0 && len(items) > maxItems {
		return items[:maxItems]
	}
	return items
}
