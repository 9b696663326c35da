// Package ingest runs feed families through fetch, parse, adapt and upsert,
// and schedules those runs.
package ingest

import (
	"github.com/hoanghai1803/pulse/internal/adapters"
	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/models"
)

// Family names of the built-in feed families.
const (
	FamilyUpdates = "updates"
	FamilyBlogs   = "blogs"
	FamilyVideos  = "videos"
)

// Family is a group of feeds that share a format and an adapter.
type Family struct {
	Name    string
	Kind    models.Kind
	Format  feeds.Format
	Adapter adapters.Adapter
	Sources []models.FeedSource
}

// builtinFamily describes the fixed shape of a built-in family.
type builtinFamily struct {
	name   string
	kind   models.Kind
	format feeds.Format
}

var builtinFamilies = []builtinFamily{
	{name: FamilyUpdates, kind: models.KindUpdate, format: feeds.FormatRSS},
	{name: FamilyBlogs, kind: models.KindBlogPost, format: feeds.FormatRSS},
	{name: FamilyVideos, kind: models.KindVideo, format: feeds.FormatAtom},
}

// DefaultFamilies builds the updates, blogs and videos families from the
// configured sources, keyed by family name. Families without sources are
// still returned so they can be run and scheduled by name.
func DefaultFamilies(cfg adapters.Config, sources map[string][]models.FeedSource) []Family {
	families := make([]Family, 0, len(builtinFamilies))
	for _, b := range builtinFamilies {
		families = append(families, Family{
			Name:    b.name,
			Kind:    b.kind,
			Format:  b.format,
			Adapter: adapters.ForKind(b.kind, cfg),
			Sources: sources[b.name],
		})
	}
	return families
}

// FamilyNames returns the names of the built-in families in run order.
func FamilyNames() []string {
	names := make([]string, len(builtinFamilies))
	for i, b := range builtinFamilies {
		names[i] = b.name
	}
	return names
}
