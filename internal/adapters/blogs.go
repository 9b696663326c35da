package adapters

import (
	"cmp"
	"time"

	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/models"
)

// Blogs adapts engineering blog posts.
type Blogs struct {
	cfg Config
}

// NewBlogs returns the Blogs adapter.
func NewBlogs(cfg Config) *Blogs {
	return &Blogs{cfg: cfg.withDefaults()}
}

// Adapt implements Adapter. The author comes from dc:creator, falling back to
// the plain author field.
func (b *Blogs) Adapt(entry feeds.RawEntry, src models.FeedSource, now time.Time, opts Options) (models.Record, bool) {
	rec, ok := common(entry, src, feeds.Clean(entry.Link), now, recencyCutoff(now, opts, 0), b.cfg)
	if !ok {
		return models.Record{}, false
	}

	rec.ID = recordID(entry, "")
	rec.Kind = models.KindBlogPost
	rec.Author = cmp.Or(feeds.Clean(entry.Creator), feeds.Clean(entry.Author))
	rec.Categories = mergeCategories(feedCategories(entry), src.Categories)
	return rec, true
}
