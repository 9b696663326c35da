package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghai1803/pulse/internal/adapters"
	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/models"
	"github.com/hoanghai1803/pulse/internal/storage"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// feedItem is one <item> of a generated RSS document.
type feedItem struct {
	id          string
	title       string
	description string
	age         time.Duration
	categories  []string
}

func rssFeed(items ...feedItem) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Test</title>`)
	for _, it := range items {
		b.WriteString("<item>")
		if it.title != "" {
			fmt.Fprintf(&b, "<title>%s</title>", it.title)
		}
		fmt.Fprintf(&b, "<link>https://example.com/%s</link>", it.id)
		fmt.Fprintf(&b, "<guid>%s</guid>", it.id)
		if it.description != "" {
			fmt.Fprintf(&b, "<description>%s</description>", it.description)
		}
		fmt.Fprintf(&b, "<pubDate>%s</pubDate>", testNow.Add(-it.age).Format(time.RFC1123Z))
		for _, c := range it.categories {
			fmt.Fprintf(&b, "<category>%s</category>", c)
		}
		b.WriteString("</item>")
	}
	b.WriteString("</channel></rss>")
	return []byte(b.String())
}

// fakeFetcher serves canned bodies by URL; unknown URLs fail.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  map[string]int
}

func newFakeFetcher(bodies map[string][]byte) *fakeFetcher {
	return &fakeFetcher{bodies: bodies, calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	body, ok := f.bodies[url]
	if !ok {
		return nil, &feeds.StatusError{URL: url, StatusCode: 503}
	}
	return body, nil
}

type fakeEnricher struct {
	excerpt string
	err     error
}

func (e fakeEnricher) Excerpt(context.Context, string) (string, error) {
	return e.excerpt, e.err
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func newTestOrchestrator(t *testing.T, fetcher Fetcher, store Store, families ...Family) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(Config{
		Fetcher:  fetcher,
		Store:    store,
		Families: families,
	})
	o.now = func() time.Time { return testNow }
	return o
}

func updatesFamily(sources ...models.FeedSource) Family {
	return Family{
		Name:    FamilyUpdates,
		Kind:    models.KindUpdate,
		Format:  feeds.FormatRSS,
		Adapter: adapters.NewUpdates(adapters.DefaultConfig()),
		Sources: sources,
	}
}

func blogsFamily(sources ...models.FeedSource) Family {
	return Family{
		Name:    FamilyBlogs,
		Kind:    models.KindBlogPost,
		Format:  feeds.FormatRSS,
		Adapter: adapters.NewBlogs(adapters.DefaultConfig()),
		Sources: sources,
	}
}

func TestRun_IngestsAndIsIdempotent(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://feeds.test/updates": rssFeed(
			feedItem{id: "u1", title: "One", age: time.Hour, categories: []string{"Compute"}},
			feedItem{id: "u2", title: "Two", age: 2 * time.Hour},
			feedItem{id: "u3", age: 3 * time.Hour}, // no title: discarded
		),
	})
	store := storage.NewMemoryStore()
	fam := updatesFamily(models.FeedSource{Name: "Azure Updates", FeedURL: "https://feeds.test/updates", Categories: []string{"Azure"}})
	o := newTestOrchestrator(t, fetcher, store, fam)
	ctx := context.Background()

	first := o.Run(ctx, fam, Options{})
	second := o.Run(ctx, fam, Options{})

	assert.Equal(t, 2, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 2, store.Len())

	rec, err := store.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{adapters.GeneralCategory, "Azure"}, rec.Categories)
	assert.Equal(t, models.KindUpdate, rec.Kind)
	assert.Equal(t, "Azure Updates", rec.Source)
}

func TestRun_IsolatesFailingSources(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://feeds.test/a": rssFeed(feedItem{id: "a1", title: "A1", age: time.Hour}),
		"https://feeds.test/c": rssFeed(
			feedItem{id: "c1", title: "C1", age: time.Hour},
			feedItem{id: "c2", title: "C2", age: time.Hour},
		),
	})
	store := storage.NewMemoryStore()
	fam := updatesFamily(
		models.FeedSource{Name: "A", FeedURL: "https://feeds.test/a"},
		models.FeedSource{Name: "B", FeedURL: "https://feeds.test/broken"},
		models.FeedSource{Name: "C", FeedURL: "https://feeds.test/c"},
	)
	o := newTestOrchestrator(t, fetcher, store, fam)

	assert.Equal(t, 3, o.Run(context.Background(), fam, Options{}))

	statuses, err := store.SourceStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byName := make(map[string]models.SourceStatus)
	for _, st := range statuses {
		byName[st.Source] = st
	}
	assert.True(t, byName["A"].LastFetchOK)
	assert.Equal(t, 1, byName["A"].ItemsSaved)
	assert.False(t, byName["B"].LastFetchOK)
	assert.Contains(t, byName["B"].LastError, "503")
	assert.Equal(t, 2, byName["C"].ItemsSaved)
	assert.True(t, testNow.Equal(byName["C"].LastFetchAt), "LastFetchAt = %v", byName["C"].LastFetchAt)
}

// failingStore rejects writes for one record id.
type failingStore struct {
	*storage.MemoryStore
	rejectID string
}

func (f *failingStore) Upsert(ctx context.Context, rec models.Record) (models.Record, error) {
	if rec.ID == f.rejectID {
		return models.Record{}, fmt.Errorf("%w: disk full", storage.ErrStoreWrite)
	}
	return f.MemoryStore.Upsert(ctx, rec)
}

func TestRun_SkipsFailedWrites(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://feeds.test/u": rssFeed(
			feedItem{id: "ok-1", title: "One", age: time.Hour},
			feedItem{id: "bad", title: "Bad", age: time.Hour},
			feedItem{id: "ok-2", title: "Two", age: time.Hour},
		),
	})
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), rejectID: "bad"}
	fam := updatesFamily(models.FeedSource{Name: "U", FeedURL: "https://feeds.test/u"})
	reg := prometheus.NewRegistry()
	o := NewOrchestrator(Config{Fetcher: fetcher, Store: store, Families: []Family{fam}, Metrics: NewMetrics(reg)})
	o.now = func() time.Time { return testNow }

	assert.Equal(t, 2, o.Run(context.Background(), fam, Options{}))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 1.0, counterValue(t, o.metrics.writeFailures.WithLabelValues(FamilyUpdates)))
	assert.Equal(t, 2.0, counterValue(t, o.metrics.upserted.WithLabelValues(FamilyUpdates)))
}

func TestRun_CapsItemsPerSource(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://feeds.test/u": rssFeed(
			feedItem{id: "1", title: "One", age: time.Hour},
			feedItem{id: "2", title: "Two", age: time.Hour},
			feedItem{id: "3", title: "Three", age: time.Hour},
		),
	})
	store := storage.NewMemoryStore()
	fam := updatesFamily(models.FeedSource{Name: "U", FeedURL: "https://feeds.test/u"})
	o := newTestOrchestrator(t, fetcher, store, fam)

	assert.Equal(t, 2, o.Run(context.Background(), fam, Options{MaxItemsPerSource: 2}))
	_, err := store.Get(context.Background(), "3")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRun_AppliesDaysBack(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://feeds.test/b": rssFeed(
			feedItem{id: "recent", title: "Recent", age: 24 * time.Hour},
			feedItem{id: "old", title: "Old", age: 200 * 24 * time.Hour},
		),
	})
	store := storage.NewMemoryStore()
	fam := blogsFamily(models.FeedSource{Name: "B", FeedURL: "https://feeds.test/b"})
	reg := prometheus.NewRegistry()
	o := NewOrchestrator(Config{Fetcher: fetcher, Store: store, Families: []Family{fam}, Metrics: NewMetrics(reg)})
	o.now = func() time.Time { return testNow }

	assert.Equal(t, 1, o.Run(context.Background(), fam, Options{DaysBack: 180}))
	assert.Equal(t, 1.0, counterValue(t, o.metrics.discarded.WithLabelValues(FamilyBlogs)))
	assert.Equal(t, 2, o.Run(context.Background(), fam, Options{}))
}

func TestRun_EnrichesBlogsWithoutDescription(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://feeds.test/b": rssFeed(
			feedItem{id: "bare", title: "Bare", age: time.Hour},
			feedItem{id: "described", title: "Described", description: "From the feed", age: time.Hour},
		),
	})
	store := storage.NewMemoryStore()
	fam := blogsFamily(models.FeedSource{Name: "B", FeedURL: "https://feeds.test/b"})
	o := NewOrchestrator(Config{
		Fetcher:           fetcher,
		Store:             store,
		Enricher:          fakeEnricher{excerpt: "An excerpt taken from the article page"},
		Families:          []Family{fam},
		DescriptionLength: 10,
	})
	o.now = func() time.Time { return testNow }

	require.Equal(t, 2, o.Run(context.Background(), fam, Options{}))

	bare, err := store.Get(context.Background(), "bare")
	require.NoError(t, err)
	assert.Equal(t, "An excerpt", bare.Description)

	described, err := store.Get(context.Background(), "described")
	require.NoError(t, err)
	assert.Equal(t, "From the feed", described.Description)
}

func TestRun_EnrichmentFailureKeepsRecord(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://feeds.test/b": rssFeed(feedItem{id: "bare", title: "Bare", age: time.Hour}),
	})
	store := storage.NewMemoryStore()
	fam := blogsFamily(models.FeedSource{Name: "B", FeedURL: "https://feeds.test/b"})
	o := NewOrchestrator(Config{
		Fetcher:  fetcher,
		Store:    store,
		Enricher: fakeEnricher{err: errors.New("page unavailable")},
		Families: []Family{fam},
	})
	o.now = func() time.Time { return testNow }

	require.Equal(t, 1, o.Run(context.Background(), fam, Options{}))
	rec, err := store.Get(context.Background(), "bare")
	require.NoError(t, err)
	assert.Empty(t, rec.Description)
}

func TestRunFamily(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://feeds.test/u": rssFeed(feedItem{id: "1", title: "One", age: time.Hour}),
	})
	store := storage.NewMemoryStore()
	o := newTestOrchestrator(t, fetcher, store,
		updatesFamily(models.FeedSource{Name: "U", FeedURL: "https://feeds.test/u"}),
	)

	n, err := o.RunFamily(context.Background(), FamilyUpdates, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = o.RunFamily(context.Background(), "podcasts", Options{})
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestRun_FailedFetchCountsMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	fam := updatesFamily(models.FeedSource{Name: "Down", FeedURL: "https://feeds.test/down"})
	o := NewOrchestrator(Config{
		Fetcher:  newFakeFetcher(nil),
		Store:    storage.NewMemoryStore(),
		Families: []Family{fam},
		Metrics:  NewMetrics(reg),
	})

	assert.Equal(t, 0, o.Run(context.Background(), fam, Options{}))
	assert.Equal(t, 1.0, counterValue(t, o.metrics.fetchFailures.WithLabelValues(FamilyUpdates, "Down")))
}

func TestDefaultFamilies(t *testing.T) {
	sources := map[string][]models.FeedSource{
		FamilyVideos: {{Name: "Channel", FeedURL: "https://feeds.test/v"}},
	}
	families := DefaultFamilies(adapters.DefaultConfig(), sources)

	require.Len(t, families, 3)
	assert.Equal(t, FamilyNames(), []string{families[0].Name, families[1].Name, families[2].Name})
	for _, f := range families {
		assert.NotNil(t, f.Adapter, f.Name)
	}
	assert.Equal(t, feeds.FormatAtom, families[2].Format)
	assert.Len(t, families[2].Sources, 1)
	assert.Empty(t, families[0].Sources)
}
