package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/pulse/internal/models"
	"github.com/hoanghai1803/pulse/internal/storage"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testRecord(id string, age time.Duration, categories ...string) models.Record {
	return models.Record{
		ID:          id,
		Title:       "Title " + id,
		Link:        "https://example.com/" + id,
		PublishedAt: testNow.Add(-age),
		Source:      "Test",
		Kind:        models.KindUpdate,
		Categories:  categories,
	}
}

// newTestStore returns a memory store seeded with three records.
func newTestStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	return storage.NewMemoryStore(
		testRecord("old", 72*time.Hour, "Azure"),
		testRecord("new", time.Hour, "Azure", "AI"),
		testRecord("mid", 24*time.Hour, "Compute", "Azure Functions"),
	)
}

// brokenStore fails every read with an error carrying internal details.
type brokenStore struct {
	*storage.MemoryStore
}

var errInternal = errors.New("dial tcp 10.0.0.7:5432: connection refused")

func (brokenStore) Get(context.Context, string) (models.Record, error) {
	return models.Record{}, errInternal
}

func (brokenStore) Query(context.Context, storage.Query, int) ([]models.Record, error) {
	return nil, errInternal
}

func (brokenStore) Categories(context.Context, int) ([]string, error) {
	return nil, errInternal
}

func (brokenStore) SourceStatuses(context.Context) ([]models.SourceStatus, error) {
	return nil, errInternal
}

// withURLParams sets chi URL parameters on r, given as name/value pairs.
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}
