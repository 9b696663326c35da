package adapters

import (
	"cmp"
	"net/url"
	"time"

	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/models"
)

// Videos adapts video channel listings such as YouTube Atom feeds.
type Videos struct {
	cfg Config
}

// NewVideos returns the Videos adapter.
func NewVideos(cfg Config) *Videos {
	return &Videos{cfg: cfg.withDefaults()}
}

// Adapt implements Adapter. Videos older than the configured maximum age are
// discarded unless opts.DaysBack widens or narrows the window.
func (v *Videos) Adapt(entry feeds.RawEntry, src models.FeedSource, now time.Time, opts Options) (models.Record, bool) {
	videoID := feeds.Clean(entry.VideoID)

	link := feeds.Clean(entry.Link)
	if videoID != "" {
		link = v.watchURL(videoID)
	}

	cutoff := recencyCutoff(now, opts, v.cfg.VideoMaxAgeDays)
	rec, ok := common(entry, src, link, now, cutoff, v.cfg)
	if !ok {
		return models.Record{}, false
	}

	fallbackID := ""
	if videoID != "" {
		fallbackID = "video-" + videoID
	}

	rec.ID = recordID(entry, fallbackID)
	rec.Kind = models.KindVideo
	rec.Author = cmp.Or(feeds.Clean(entry.Author), v.cfg.Publisher)
	rec.Categories = mergeCategories(feedCategories(entry), src.Categories)
	return rec, true
}

func (v *Videos) watchURL(videoID string) string {
	u := url.URL{
		Scheme:   "https",
		Host:     v.cfg.VideoHost,
		Path:     "/watch",
		RawQuery: url.Values{"v": {videoID}}.Encode(),
	}
	return u.String()
}
