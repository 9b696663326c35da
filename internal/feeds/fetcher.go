package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultAttempts     = 3
	defaultRetryBase    = 500 * time.Millisecond
	defaultDomainDelay  = 1 * time.Second
	defaultMaxBodyBytes = 10 << 20
	userAgent           = "Mozilla/5.0 (compatible; Pulse/1.0; +https://github.com/hoanghai1803/pulse)"
)

// FetcherOptions tunes a Fetcher. Zero values select the defaults.
type FetcherOptions struct {
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// Attempts is the total number of tries for transient failures.
	Attempts int
	// RetryBase is the first exponential backoff step.
	RetryBase time.Duration
	// DomainDelay is the minimum gap between requests to the same host.
	// Negative disables pacing.
	DomainDelay time.Duration
	// MaxBodyBytes caps how much of a feed is read.
	MaxBodyBytes int64
}

// StatusError reports a feed that answered with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %q: HTTP %d", e.URL, e.StatusCode)
}

// Temporary reports whether retrying the request could succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Fetcher downloads raw feed content with a bounded timeout, retries on
// transient failures and per-domain request pacing.
type Fetcher struct {
	client       *http.Client
	attempts     int
	retryBase    time.Duration
	domainDelay  time.Duration
	maxBodyBytes int64

	rateLimiter map[string]time.Time // per-domain last request time
	mu          sync.Mutex           // protects rateLimiter
}

// NewFetcher creates a Fetcher whose HTTP client sends the Pulse user agent.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.DomainDelay == 0 {
		opts.DomainDelay = defaultDomainDelay
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &userAgentTransport{
				base: http.DefaultTransport,
			},
		},
		attempts:     opts.Attempts,
		retryBase:    opts.RetryBase,
		domainDelay:  opts.DomainDelay,
		maxBodyBytes: opts.MaxBodyBytes,
		rateLimiter:  make(map[string]time.Time),
	}
}

// userAgentTransport wraps an http.RoundTripper to inject the Pulse
// User-Agent and feed Accept headers on every request.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8")
	return t.base.RoundTrip(req)
}

// Fetch returns the raw body of the feed at feedURL. Transport errors, 5xx
// and 429 responses are retried with exponential backoff; other statuses fail
// immediately with a *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	if err := f.waitForRateLimit(ctx, extractDomain(feedURL)); err != nil {
		return nil, fmt.Errorf("fetching feed %q: %w", feedURL, err)
	}

	backoff := retry.WithMaxRetries(uint64(f.attempts-1), retry.NewExponential(f.retryBase))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		data, err := f.fetchOnce(ctx, feedURL)
		if err != nil {
			if ctx.Err() == nil && isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching feed %q: %w", feedURL, err)
	}
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: feedURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

// isTransient reports whether err is worth another attempt: network
// failures, timeouts, a connection cut mid-response and 5xx/429 statuses.
// Malformed URLs, unsupported schemes and other HTTP statuses are not.
func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) || urlErr.Op == "parse" {
		return false
	}
	if urlErr.Timeout() {
		return true
	}
	var netErr net.Error
	return errors.As(urlErr.Err, &netErr) ||
		errors.Is(urlErr.Err, io.EOF) ||
		errors.Is(urlErr.Err, io.ErrUnexpectedEOF)
}

// waitForRateLimit enforces the minimum delay between requests to the same
// domain. It blocks until the delay has elapsed or ctx is done.
func (f *Fetcher) waitForRateLimit(ctx context.Context, domain string) error {
	if f.domainDelay < 0 {
		return nil
	}

	f.mu.Lock()
	var wait time.Duration
	if lastReq, ok := f.rateLimiter[domain]; ok {
		if elapsed := time.Since(lastReq); elapsed < f.domainDelay {
			wait = f.domainDelay - elapsed
		}
	}
	// Reserve the slot now so concurrent callers queue behind this one.
	f.rateLimiter[domain] = time.Now().Add(wait)
	f.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// extractDomain parses a URL and returns its hostname. If parsing fails, it
// returns the raw URL as a fallback key.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
