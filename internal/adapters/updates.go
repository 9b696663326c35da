package adapters

import (
	"cmp"
	"time"

	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/models"
)

// Updates adapts product update announcements.
type Updates struct {
	cfg Config
}

// NewUpdates returns the Updates adapter.
func NewUpdates(cfg Config) *Updates {
	return &Updates{cfg: cfg.withDefaults()}
}

// Adapt implements Adapter. Entries without feed categories are filed under
// GeneralCategory. Only a positive DaysBack applies a recency cutoff.
func (u *Updates) Adapt(entry feeds.RawEntry, src models.FeedSource, now time.Time, opts Options) (models.Record, bool) {
	rec, ok := common(entry, src, feeds.Clean(entry.Link), now, recencyCutoff(now, opts, 0), u.cfg)
	if !ok {
		return models.Record{}, false
	}

	cats := feedCategories(entry)
	if len(cats) == 0 {
		cats = []string{GeneralCategory}
	}

	rec.ID = recordID(entry, "")
	rec.Kind = models.KindUpdate
	rec.Author = cmp.Or(feeds.Clean(entry.Author), feeds.Clean(entry.Creator))
	rec.Categories = mergeCategories(cats, src.Categories)
	return rec, true
}
