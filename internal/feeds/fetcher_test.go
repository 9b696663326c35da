package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(FetcherOptions{
		Timeout:     2 * time.Second,
		Attempts:    3,
		RetryBase:   time.Millisecond,
		DomainDelay: -1,
	})
}

func TestFetcher_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != rssFixture {
		t.Errorf("body mismatch: got %d bytes", len(body))
	}
	if !strings.Contains(gotUA, "Pulse") {
		t.Errorf("User-Agent = %q, want it to mention Pulse", gotUA)
	}
}

func TestFetcher_RetriesTransientStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "server error", status: http.StatusServiceUnavailable},
		{name: "rate limited", status: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(tt.status)
					return
				}
				w.Write([]byte("ok"))
			}))
			defer srv.Close()

			body, err := newTestFetcher().Fetch(context.Background(), srv.URL)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if string(body) != "ok" {
				t.Errorf("body = %q, want %q", body, "ok")
			}
			if got := calls.Load(); got != 3 {
				t.Errorf("calls = %d, want 3", got)
			}
		})
	}
}

func TestFetcher_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusBadGateway)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetcher_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 *StatusError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestFetcher_DoesNotRetryUnusableURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "malformed", url: "http://bad host/%zz"},
		{name: "unsupported scheme", url: "ftp://example.com/feed.xml"},
	}

	// A retry would sleep for an hour, far past the context deadline.
	f := NewFetcher(FetcherOptions{Attempts: 3, RetryBase: time.Hour, DomainDelay: -1})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err := f.Fetch(ctx, tt.url)
			if err == nil {
				t.Fatal("expected an error")
			}
			if errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Fetch retried an unusable URL: %v", err)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	_, refused := http.Get(closedURL)
	_, badScheme := http.Get("ftp://example.com/feed.xml")
	_, parseErr := http.NewRequest(http.MethodGet, "http://bad host/%zz", nil)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "connection refused", err: refused, want: true},
		{name: "unsupported scheme", err: badScheme, want: false},
		{name: "malformed url", err: parseErr, want: false},
		{name: "server error", err: &StatusError{StatusCode: http.StatusBadGateway}, want: true},
		{name: "rate limited", err: &StatusError{StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "not found", err: &StatusError{StatusCode: http.StatusNotFound}, want: false},
		{name: "other error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatal("test setup produced no error")
			}
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFetcher_TimeoutIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{
		Timeout:     20 * time.Millisecond,
		Attempts:    1,
		RetryBase:   time.Millisecond,
		DomainDelay: -1,
	})
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestFetcher_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestFetcher().Fetch(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetcher_PacesSameDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{
		Attempts:    1,
		RetryBase:   time.Millisecond,
		DomainDelay: 50 * time.Millisecond,
	})

	start := time.Now()
	for range 2 {
		if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("two requests took %v, want at least 50ms", elapsed)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://devblogs.microsoft.com/feed/", "devblogs.microsoft.com"},
		{"http://localhost:8080/rss", "localhost"},
		{"://bad", "://bad"},
	}
	for _, tt := range tests {
		if got := extractDomain(tt.input); got != tt.want {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
