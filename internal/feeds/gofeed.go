package feeds

import (
	"bytes"
	"cmp"
	"html"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/samber/lo"
)

// GofeedParser parses feeds with a real XML tokenizer. It is stricter than
// Scanner: a feed that is not well-formed yields no entries at all.
type GofeedParser struct {
	parser *gofeed.Parser
}

// NewGofeedParser returns a gofeed-backed Parser.
func NewGofeedParser() *GofeedParser {
	return &GofeedParser{parser: gofeed.NewParser()}
}

// Parse implements Parser. gofeed detects the format itself, so the hint is
// not used.
func (p *GofeedParser) Parse(content []byte, _ Format) []RawEntry {
	feed, err := p.parser.Parse(bytes.NewReader(content))
	if err != nil {
		slog.Debug("gofeed could not parse feed", "error", err)
		return []RawEntry{}
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, fromGofeedItem(item))
	}
	return entries
}

func fromGofeedItem(item *gofeed.Item) RawEntry {
	entry := RawEntry{
		Title:       feedText(item.Title),
		Link:        feedText(item.Link),
		Description: feedText(cmp.Or(mediaDescription(item.Extensions), item.Description)),
		Content:     feedText(item.Content),
		Published:   feedText(formatParsed(item.PublishedParsed, item.Published)),
		Updated:     feedText(formatParsed(item.UpdatedParsed, item.Updated)),
		Identifier:  feedText(item.GUID),
		Author:      feedText(authorName(item)),
		Categories:  lo.Map(item.Categories, func(c string, _ int) string { return feedText(c) }),
		VideoID:     feedText(extensionValue(item.Extensions, "yt", "videoId")),
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		entry.Creator = feedText(item.DublinCoreExt.Creator[0])
	}
	return entry
}

// feedText re-encodes a value gofeed has already decoded, so both parsers
// hand Clean text with exactly one XML layer.
func feedText(s string) string {
	return html.EscapeString(s)
}

func authorName(item *gofeed.Item) string {
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	if item.Author != nil {
		return cmp.Or(item.Author.Name, item.Author.Email)
	}
	return ""
}

// formatParsed prefers gofeed's parsed timestamp and falls back to the raw
// string so the adapter can still try its own layouts.
func formatParsed(parsed *time.Time, raw string) string {
	if parsed != nil {
		return parsed.UTC().Format(time.RFC3339)
	}
	return raw
}

func extensionValue(exts ext.Extensions, prefix, name string) string {
	values := exts[prefix][name]
	if len(values) == 0 {
		return ""
	}
	return values[0].Value
}

// mediaDescription reads <media:group><media:description>, falling back to a
// bare <media:description>.
func mediaDescription(exts ext.Extensions) string {
	if groups := exts["media"]["group"]; len(groups) > 0 {
		if d := groups[0].Children["description"]; len(d) > 0 && d[0].Value != "" {
			return d[0].Value
		}
	}
	return extensionValue(exts, "media", "description")
}
