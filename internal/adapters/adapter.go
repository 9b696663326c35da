// Package adapters maps raw feed entries onto models.Record, one adapter per
// feed family.
package adapters

import (
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/samber/lo"

	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/models"
)

const (
	// DefaultDescriptionLength is the maximum description length in runes.
	DefaultDescriptionLength = 500
	// DefaultVideoMaxAgeDays is the recency cutoff for videos when the caller
	// does not supply one.
	DefaultVideoMaxAgeDays = 365
	// DefaultPublisher is the author given to videos whose feed names none.
	DefaultPublisher = "Microsoft"
	// DefaultVideoHost is the host used to build video watch links.
	DefaultVideoHost = "www.youtube.com"

	// GeneralCategory is assigned to updates whose feed carries no categories.
	GeneralCategory = "General"
)

// Options adjusts a single adaptation run.
type Options struct {
	// DaysBack, when positive, discards entries published more than DaysBack
	// days before now. Zero or negative means no override.
	DaysBack int
}

// Adapter turns one RawEntry into a Record. The boolean is false when the
// entry must be discarded; a discard is not an error.
type Adapter interface {
	Adapt(entry feeds.RawEntry, src models.FeedSource, now time.Time, opts Options) (models.Record, bool)
}

// Config holds the tunables shared by the adapters.
type Config struct {
	DescriptionLength int
	VideoMaxAgeDays   int
	Publisher         string
	VideoHost         string
}

// DefaultConfig returns the stock adapter settings.
func DefaultConfig() Config {
	return Config{
		DescriptionLength: DefaultDescriptionLength,
		VideoMaxAgeDays:   DefaultVideoMaxAgeDays,
		Publisher:         DefaultPublisher,
		VideoHost:         DefaultVideoHost,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DescriptionLength <= 0 {
		c.DescriptionLength = d.DescriptionLength
	}
	if c.VideoMaxAgeDays <= 0 {
		c.VideoMaxAgeDays = d.VideoMaxAgeDays
	}
	if c.Publisher == "" {
		c.Publisher = d.Publisher
	}
	if c.VideoHost == "" {
		c.VideoHost = d.VideoHost
	}
	return c
}

// ForKind returns the adapter for a record kind, or nil for an unknown kind.
func ForKind(kind models.Kind, cfg Config) Adapter {
	switch kind {
	case models.KindUpdate:
		return NewUpdates(cfg)
	case models.KindBlogPost:
		return NewBlogs(cfg)
	case models.KindVideo:
		return NewVideos(cfg)
	}
	return nil
}

// common builds the fields every variant derives the same way. It returns
// false when the cleaned title or link is empty, or when the entry falls
// outside the recency window.
func common(entry feeds.RawEntry, src models.FeedSource, link string, now time.Time, cutoff time.Time, cfg Config) (models.Record, bool) {
	rec := models.Record{
		Title:       feeds.Clean(entry.Title),
		Link:        link,
		Description: description(entry, cfg.DescriptionLength),
		PublishedAt: publishedAt(entry, now),
		Source:      src.Name,
	}
	if rec.Title == "" || rec.Link == "" {
		return models.Record{}, false
	}
	if !cutoff.IsZero() && rec.PublishedAt.Before(cutoff) {
		return models.Record{}, false
	}
	return rec, true
}

// recordID picks the feed identifier, then the entry link, then fallback.
func recordID(entry feeds.RawEntry, fallback string) string {
	if id := feeds.Clean(entry.Identifier); id != "" {
		return id
	}
	if link := feeds.Clean(entry.Link); link != "" {
		return link
	}
	return fallback
}

// description prefers the short form and falls back to the full content.
func description(entry feeds.RawEntry, max int) string {
	d := feeds.Clean(entry.Description)
	if d == "" {
		d = feeds.Clean(entry.Content)
	}
	return strings.TrimSpace(feeds.Truncate(d, max))
}

// publishedAt returns the first candidate timestamp that parses, in UTC.
// Timestamps without a zone are read as UTC. Without one, now is used.
func publishedAt(entry feeds.RawEntry, now time.Time) time.Time {
	for _, raw := range []string{entry.Published, entry.Updated} {
		raw = feeds.Clean(raw)
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

// recencyCutoff returns the oldest acceptable publish time. A positive
// DaysBack wins over defaultDays; zero means no cutoff.
func recencyCutoff(now time.Time, opts Options, defaultDays int) time.Time {
	days := defaultDays
	if opts.DaysBack > 0 {
		days = opts.DaysBack
	}
	if days <= 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// feedCategories returns the cleaned, non-empty categories of entry.
func feedCategories(entry feeds.RawEntry) []string {
	return lo.Compact(lo.Map(entry.Categories, func(c string, _ int) string {
		return feeds.Clean(c)
	}))
}

// mergeCategories unions the feed categories with the source defaults,
// keeping first-seen order. The result is never nil.
func mergeCategories(feedCats, defaults []string) []string {
	merged := lo.Uniq(lo.Compact(slices.Concat(feedCats, defaults)))
	if merged == nil {
		return []string{}
	}
	return merged
}
