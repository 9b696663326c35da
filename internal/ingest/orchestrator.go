package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hoanghai1803/pulse/internal/adapters"
	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/models"
)

// DefaultMaxConcurrent bounds how many sources of one family are fetched at
// the same time.
const DefaultMaxConcurrent = 5

// ErrUnknownFamily is returned by RunFamily for a name with no family.
var ErrUnknownFamily = errors.New("unknown feed family")

// Fetcher retrieves raw feed content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Enricher finds a short excerpt for an article page.
type Enricher interface {
	Excerpt(ctx context.Context, url string) (string, error)
}

// Store is the part of storage.Store the orchestrator writes to.
type Store interface {
	Upsert(ctx context.Context, rec models.Record) (models.Record, error)
	RecordFetch(ctx context.Context, status models.SourceStatus) error
}

// Options adjusts one family run.
type Options struct {
	// DaysBack, when positive, overrides the adapter's recency window.
	DaysBack int
	// MaxItemsPerSource, when positive, keeps only the first N entries of
	// each feed.
	MaxItemsPerSource int
}

// Config wires an Orchestrator. Fetcher, Parser and Store are required;
// Enricher and Metrics are optional.
type Config struct {
	Fetcher           Fetcher
	Parser            feeds.Parser
	Store             Store
	Enricher          Enricher
	Metrics           *Metrics
	Families          []Family
	MaxConcurrent     int
	DescriptionLength int
}

// Orchestrator runs feed families end to end. A failing source or record
// never stops the rest of its family.
type Orchestrator struct {
	fetcher           Fetcher
	parser            feeds.Parser
	store             Store
	enricher          Enricher
	metrics           *Metrics
	families          []Family
	maxConcurrent     int
	descriptionLength int
	now               func() time.Time
}

// NewOrchestrator creates an Orchestrator from cfg.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Parser == nil {
		cfg.Parser = feeds.NewScanner()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.DescriptionLength <= 0 {
		cfg.DescriptionLength = adapters.DefaultDescriptionLength
	}
	return &Orchestrator{
		fetcher:           cfg.Fetcher,
		parser:            cfg.Parser,
		store:             cfg.Store,
		enricher:          cfg.Enricher,
		metrics:           cfg.Metrics,
		families:          cfg.Families,
		maxConcurrent:     cfg.MaxConcurrent,
		descriptionLength: cfg.DescriptionLength,
		now:               time.Now,
	}
}

// Families returns the configured families.
func (o *Orchestrator) Families() []Family {
	return o.families
}

// Family looks up a configured family by name.
func (o *Orchestrator) Family(name string) (Family, bool) {
	for _, f := range o.families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

// RunFamily runs the family registered under name.
func (o *Orchestrator) RunFamily(ctx context.Context, name string, opts Options) (int, error) {
	fam, ok := o.Family(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	return o.Run(ctx, fam, opts), nil
}

// Run ingests every source of fam and returns the number of records that
// were upserted.
func (o *Orchestrator) Run(ctx context.Context, fam Family, opts Options) int {
	start := time.Now()
	defer func() { o.metrics.observeRun(fam.Name, time.Since(start)) }()

	if fam.Adapter == nil {
		slog.Error("family has no adapter", "family", fam.Name)
		return 0
	}

	var saved atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(o.maxConcurrent)

	for _, src := range fam.Sources {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("feed ingestion panicked",
						"family", fam.Name,
						"source", src.Name,
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
			}()
			saved.Add(int64(o.runSource(ctx, fam, src, opts)))
			return nil // a failed source never fails the family
		})
	}
	_ = g.Wait()

	total := int(saved.Load())
	slog.Info("family ingestion finished",
		"family", fam.Name,
		"sources", len(fam.Sources),
		"count", total,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return total
}

// runSource ingests a single feed and records its outcome.
func (o *Orchestrator) runSource(ctx context.Context, fam Family, src models.FeedSource, opts Options) int {
	status := models.SourceStatus{
		Family:      fam.Name,
		Source:      src.Name,
		FeedURL:     src.FeedURL,
		LastFetchAt: o.now().UTC(),
	}

	body, err := o.fetcher.Fetch(ctx, src.FeedURL)
	if err != nil {
		slog.Warn("failed to fetch feed",
			"family", fam.Name,
			"source", src.Name,
			"url", src.FeedURL,
			"error", err,
		)
		o.metrics.recordFetchFailure(fam.Name, src.Name)
		status.LastError = err.Error()
		o.recordStatus(ctx, status)
		return 0
	}

	entries := o.parser.Parse(body, fam.Format)
	if opts.MaxItemsPerSource > 0 && len(entries) > opts.MaxItemsPerSource {
		entries = entries[:opts.MaxItemsPerSource]
	}

	now := o.now()
	adaptOpts := adapters.Options{DaysBack: opts.DaysBack}
	saved := 0

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		rec, ok := fam.Adapter.Adapt(entry, src, now, adaptOpts)
		if !ok {
			o.metrics.recordDiscarded(fam.Name)
			continue
		}
		if fam.Kind == models.KindBlogPost && rec.Description == "" {
			rec.Description = o.excerpt(ctx, rec.Link)
		}

		if _, err := o.store.Upsert(ctx, rec); err != nil {
			slog.Error("failed to save record",
				"family", fam.Name,
				"source", src.Name,
				"id", rec.ID,
				"error", err,
			)
			o.metrics.recordWriteFailure(fam.Name)
			continue
		}
		saved++
	}

	o.metrics.recordUpserted(fam.Name, saved)
	slog.Info("ingested feed",
		"family", fam.Name,
		"source", src.Name,
		"entries", len(entries),
		"count", saved,
	)

	status.LastFetchOK = true
	status.ItemsSaved = saved
	o.recordStatus(ctx, status)
	return saved
}

// excerpt returns a cleaned, truncated article excerpt, or "" when no
// enricher is configured or extraction fails.
func (o *Orchestrator) excerpt(ctx context.Context, link string) string {
	if o.enricher == nil {
		return ""
	}
	text, err := o.enricher.Excerpt(ctx, link)
	if err != nil {
		slog.Debug("article excerpt unavailable", "url", link, "error", err)
		return ""
	}
	return strings.TrimSpace(feeds.Truncate(text, o.descriptionLength))
}

func (o *Orchestrator) recordStatus(ctx context.Context, status models.SourceStatus) {
	if err := o.store.RecordFetch(ctx, status); err != nil {
		slog.Warn("failed to record source status",
			"family", status.Family,
			"source", status.Source,
			"error", err,
		)
	}
}
