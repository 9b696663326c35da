package feeds

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// blockBreak marks where a block element was, so stripped paragraphs do not
// run into each other. It is a private-use rune that feeds never carry.
const blockBreak = "\uE000"

var (
	cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

	blockTagPattern = regexp.MustCompile(`(?i)</?(?:p|div|br|hr|li|ul|ol|h[1-6]|blockquote|pre|table|tr|td|th|section|article|header|footer)\b[^>]*>`)
	breakPattern    = regexp.MustCompile(`\s*` + blockBreak + `[\s` + blockBreak + `]*`)

	stripPolicy = bluemonday.StrictPolicy()
)

// Clean turns feed text into plain text. CDATA wrappers are unwrapped and the
// XML entities outside them decoded, then markup is stripped and HTML
// entities decoded in a single pass. Block elements become a single space and
// surrounding whitespace is trimmed. It never fails; empty input yields "".
func Clean(s string) string {
	if s == "" {
		return ""
	}

	s = decodeXML(s)
	s = blockTagPattern.ReplaceAllString(s, blockBreak+"$0")
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	s = breakPattern.ReplaceAllString(s, " ")

	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// decodeXML removes the XML layer of feed text: CDATA bodies are kept
// verbatim and everything outside them is entity-decoded exactly once.
func decodeXML(s string) string {
	locs := cdataPattern.FindAllStringSubmatchIndex(s, -1)
	if locs == nil {
		return html.UnescapeString(s)
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(html.UnescapeString(s[last:loc[0]]))
		b.WriteString(s[loc[2]:loc[3]])
		last = loc[1]
	}
	b.WriteString(html.UnescapeString(s[last:]))
	return b.String()
}

// maskCDATA blanks the body of every CDATA section without moving any byte,
// so tag searches on the result cannot match markup embedded in text and
// their offsets still index the original.
func maskCDATA(s string) string {
	locs := cdataPattern.FindAllStringSubmatchIndex(s, -1)
	if locs == nil {
		return s
	}
	b := []byte(s)
	for _, loc := range locs {
		for i := loc[2]; i < loc[3]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

// Truncate cuts s down to at most max runes so multi-byte characters are
// never split. A non-positive max disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
