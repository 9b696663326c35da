package feeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// browserHeaders sets browser-like request headers so sites that check Accept
// or User-Agent don't reject the request with 406.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", userAgent)
}

// Extractor pulls a short excerpt from an article page. It is used to fill in
// blog posts whose feed entry carries no description.
type Extractor struct {
	timeout time.Duration
	fetch   func(pageURL string, timeout time.Duration) (readability.Article, error)
}

// NewExtractor returns an Extractor that gives each page at most timeout.
func NewExtractor(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Extractor{timeout: timeout, fetch: fetchArticle}
}

func fetchArticle(pageURL string, timeout time.Duration) (readability.Article, error) {
	return readability.FromURL(pageURL, timeout, browserHeaders)
}

// Excerpt returns the readability excerpt of the page at pageURL, falling
// back to the article text when the page has none. The result is plain text.
func (e *Extractor) Excerpt(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	article, err := e.fetch(pageURL, e.timeout)
	if err != nil {
		return "", fmt.Errorf("readability extraction: %w", err)
	}

	excerpt := Clean(article.Excerpt)
	if excerpt == "" {
		excerpt = Clean(article.TextContent)
	}
	return excerpt, nil
}
