package feeds

import (
	"regexp"
	"strings"
	"sync"
)

// Scanner is a tolerant, regexp-based feed parser. It does not require
// well-formed XML: every entry block and every field is located
// independently, so a broken entry or a missing tag only costs that entry or
// that field.
type Scanner struct{}

// NewScanner returns a tag-scanning Parser.
func NewScanner() *Scanner {
	return &Scanner{}
}

var (
	hrefLinkPattern = regexp.MustCompile(`(?is)<link\b[^>]*?\bhref\s*=\s*["']([^"']+)["']`)
	categoryPattern = regexp.MustCompile(`(?is)<category\b([^>]*?)(?:/>|>(.*?)</category\s*>)`)
	termAttrPattern = regexp.MustCompile(`(?is)\bterm\s*=\s*["']([^"']*)["']`)

	tagPatternsMu sync.Mutex
	tagPatterns   = map[string]*regexp.Regexp{}
)

// Parse implements Parser. The format picks the entry delimiter; when the
// hinted delimiter finds nothing the other one is tried, so Atom blogs listed
// as RSS sources still parse.
func (s *Scanner) Parse(content []byte, format Format) []RawEntry {
	text := string(content)

	primary, secondary := FormatRSS, FormatAtom
	if format == FormatAtom {
		primary, secondary = FormatAtom, FormatRSS
	}

	entries := scanFormat(text, primary)
	if len(entries) == 0 {
		entries = scanFormat(text, secondary)
	}
	return entries
}

func scanFormat(text string, format Format) []RawEntry {
	tag, scan := "item", scanRSSItem
	if format == FormatAtom {
		tag, scan = "entry", scanAtomEntry
	}

	blocks := splitBlocks(text, tag)
	entries := make([]RawEntry, 0, len(blocks))
	for _, block := range blocks {
		entries = append(entries, scan(block))
	}
	return entries
}

func scanRSSItem(block string) RawEntry {
	return RawEntry{
		Title:       extractTag(block, "title"),
		Link:        extractLink(block),
		Description: extractTag(block, "description"),
		Content:     extractTag(block, "content:encoded"),
		Published:   firstNonEmpty(extractTag(block, "pubDate"), extractTag(block, "dc:date")),
		Identifier:  extractTag(block, "guid"),
		Author:      extractTag(block, "author"),
		Creator:     extractTag(block, "dc:creator"),
		Categories:  extractCategories(block),
	}
}

func scanAtomEntry(block string) RawEntry {
	description := extractTag(extractTag(block, "media:group"), "media:description")
	if description == "" {
		description = extractTag(block, "media:description")
	}
	if description == "" {
		description = extractTag(block, "summary")
	}

	author := extractTag(block, "author")
	if name := extractTag(author, "name"); name != "" {
		author = name
	}

	return RawEntry{
		Title:       extractTag(block, "title"),
		Link:        extractLink(block),
		Description: description,
		Content:     extractTag(block, "content"),
		Published:   extractTag(block, "published"),
		Updated:     extractTag(block, "updated"),
		Identifier:  extractTag(block, "id"),
		Author:      author,
		Categories:  extractCategories(block),
		VideoID:     extractTag(block, "yt:videoId"),
	}
}

// extractTag returns the trimmed inner text of the first <tag ...>...</tag>
// in s, or "" when there is none. Matching is case-insensitive and
// non-greedy, and tags inside CDATA bodies are never matched. The text keeps
// its feed encoding.
func extractTag(s, tag string) string {
	if s == "" {
		return ""
	}
	m := tagPattern(tag).FindStringSubmatchIndex(maskCDATA(s))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(s[m[2]:m[3]])
}

// extractLink prefers an href attribute (Atom and Atom-flavoured RSS) and
// falls back to an enclosed <link>URL</link>.
func extractLink(s string) string {
	if m := hrefLinkPattern.FindStringSubmatchIndex(maskCDATA(s)); m != nil {
		if link := strings.TrimSpace(s[m[2]:m[3]]); link != "" {
			return link
		}
	}
	return extractTag(s, "link")
}

// extractCategories returns every non-empty category in document order. Both
// <category>text</category> and Atom's <category term="..."/> are accepted.
func extractCategories(s string) []string {
	var categories []string
	for _, m := range categoryPattern.FindAllStringSubmatchIndex(maskCDATA(s), -1) {
		value := ""
		if m[4] >= 0 {
			value = strings.TrimSpace(s[m[4]:m[5]])
		}
		if value == "" {
			if t := termAttrPattern.FindStringSubmatch(s[m[2]:m[3]]); t != nil {
				value = strings.TrimSpace(t[1])
			}
		}
		if value != "" {
			categories = append(categories, value)
		}
	}
	return categories
}

func tagPattern(tag string) *regexp.Regexp {
	tagPatternsMu.Lock()
	defer tagPatternsMu.Unlock()

	if re, ok := tagPatterns[tag]; ok {
		return re
	}
	q := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`(?is)<` + q + `(?:\s[^>]*)?>(.*?)</` + q + `\s*>`)
	tagPatterns[tag] = re
	return re
}

// splitBlocks returns the inner text of every <tag>...</tag> block. A block
// ends at its closing tag or at the next opening tag, whichever comes first,
// so an unterminated block cannot swallow the blocks after it. A trailing
// unterminated block runs to the end of the content.
func splitBlocks(content, tag string) []string {
	lower := asciiLower(maskCDATA(content))
	open := "<" + tag
	closing := "</" + tag

	var blocks []string
	pos := 0
	for pos < len(lower) {
		start := indexTag(lower, open, pos)
		if start < 0 {
			break
		}
		gt := strings.IndexByte(lower[start:], '>')
		if gt < 0 {
			break
		}
		bodyStart := start + gt + 1
		if lower[bodyStart-2] == '/' {
			// <item/> has no body.
			pos = bodyStart
			continue
		}

		end, next := len(lower), len(lower)
		if i := indexTag(lower, closing, bodyStart); i >= 0 {
			end, next = i, i+len(closing)
		}
		if i := indexTag(lower, open, bodyStart); i >= 0 && i < end {
			end, next = i, i
		}

		blocks = append(blocks, content[bodyStart:end])
		pos = next
	}
	return blocks
}

// indexTag finds prefix (e.g. "<item") at or after from, requiring that the
// tag name ends right after it so "<item" does not match "<items".
func indexTag(s, prefix string, from int) int {
	for from < len(s) {
		i := strings.Index(s[from:], prefix)
		if i < 0 {
			return -1
		}
		i += from
		after := i + len(prefix)
		if after >= len(s) {
			return i
		}
		switch s[after] {
		case '>', '/', ' ', '\t', '\n', '\r':
			return i
		}
		from = after
	}
	return -1
}

// asciiLower lowercases ASCII letters only, keeping byte offsets identical to
// the input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
