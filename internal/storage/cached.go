package storage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hoanghai1803/pulse/internal/models"
)

const (
	// DefaultCacheSize is the number of distinct listings kept.
	DefaultCacheSize = 256
	// DefaultCacheTTL matches the max-age the read API advertises.
	DefaultCacheTTL = 300 * time.Second
)

// Cached memoizes record and category listings of the wrapped Store. Every
// successful Upsert purges the cache. Other methods pass through.
//
// When the wrapped Store reports StateDegraded, listings bypass the cache in
// both directions: fallback data is never cached, and reads keep reaching
// the wrapped Store so it can notice the live backend has recovered.
type Cached struct {
	Store

	records    *expirable.LRU[string, []models.Record]
	categories *expirable.LRU[int, []string]
}

// NewCached wraps s with an LRU read cache whose entries expire after ttl.
func NewCached(s Store, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		Store:      s,
		records:    expirable.NewLRU[string, []models.Record](size, nil, ttl),
		categories: expirable.NewLRU[int, []string](size, nil, ttl),
	}
}

// Upsert implements Store.
func (c *Cached) Upsert(ctx context.Context, rec models.Record) (models.Record, error) {
	stored, err := c.Store.Upsert(ctx, rec)
	if err != nil {
		return models.Record{}, err
	}
	c.Purge()
	return stored, nil
}

// Query implements Store.
func (c *Cached) Query(ctx context.Context, q Query, maxItems int) ([]models.Record, error) {
	if c.degraded() {
		return c.Store.Query(ctx, q, maxItems)
	}

	key := fmt.Sprintf("%d|%s", maxItems, q.Category)
	if records, ok := c.records.Get(key); ok {
		return cloneRecords(records), nil
	}

	records, err := c.Store.Query(ctx, q, maxItems)
	if err != nil {
		return nil, err
	}
	if !c.degraded() {
		c.records.Add(key, cloneRecords(records))
	}
	return records, nil
}

// Categories implements Store.
func (c *Cached) Categories(ctx context.Context, maxItems int) ([]string, error) {
	if c.degraded() {
		return c.Store.Categories(ctx, maxItems)
	}

	if categories, ok := c.categories.Get(maxItems); ok {
		return slices.Clone(categories), nil
	}

	categories, err := c.Store.Categories(ctx, maxItems)
	if err != nil {
		return nil, err
	}
	if !c.degraded() {
		c.categories.Add(maxItems, slices.Clone(categories))
	}
	return categories, nil
}

// stateReporter is implemented by stores that may serve fallback data.
type stateReporter interface {
	State() State
}

func (c *Cached) degraded() bool {
	r, ok := c.Store.(stateReporter)
	return ok && r.State() == StateDegraded
}

// Purge drops every cached listing.
func (c *Cached) Purge() {
	c.records.Purge()
	c.categories.Purge()
}

func cloneRecords(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	for i, rec := range records {
		out[i] = cloneRecord(rec)
	}
	return out
}
