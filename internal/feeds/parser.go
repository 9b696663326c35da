package feeds

// Format tells a Parser which entry shape to look for.
type Format string

const (
	// FormatRSS covers RSS 2.0 feeds, including RSS with Atom-style links.
	FormatRSS Format = "rss"
	// FormatAtom covers Atom feeds such as YouTube channel listings.
	FormatAtom Format = "atom"
)

// RawEntry is one entry as it appears in the feed, before any
// source-specific mapping. Text fields keep their feed encoding (CDATA
// sections, XML entities, embedded markup); Clean turns them into plain text.
type RawEntry struct {
	Title       string
	Link        string
	Description string // short form: description, summary, media:description
	Content     string // full form: content:encoded, atom content
	Published   string
	Updated     string
	Identifier  string // guid or atom id
	Author      string
	Creator     string // dc:creator
	Categories  []string
	VideoID     string // yt:videoId
}

// Parser extracts entries from raw feed content. Implementations never fail:
// content they cannot make sense of yields no entries, and fields they cannot
// find are left empty.
type Parser interface {
	Parse(content []byte, format Format) []RawEntry
}

// NewParser returns the parser backend registered under name. Unknown names
// fall back to the tolerant Scanner.
func NewParser(name string) Parser {
	if name == "gofeed" {
		return NewGofeedParser()
	}
	return NewScanner()
}
