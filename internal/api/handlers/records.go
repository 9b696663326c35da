package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/pulse/internal/storage"
)

// ListRecords handles GET /api/updates. It returns records newest first,
// optionally filtered by the category query parameter and capped by limit.
func ListRecords(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q storage.Query
		if raw := r.URL.Query().Get("category"); raw != "" {
			category, ok := sanitizeCategory(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "Invalid category")
				return
			}
			q.Category = category
		}

		records, err := store.Query(r.Context(), q, parseLimit(r))
		if err != nil {
			slog.Error("failed to query records", "category", q.Category, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch updates")
			return
		}

		writeJSON(w, http.StatusOK, records)
	}
}

// RecordsByCategory handles GET /api/updates/category/{category}.
func RecordsByCategory(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := url.PathUnescape(chi.URLParam(r, "category"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid category")
			return
		}
		category, ok := sanitizeCategory(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid category")
			return
		}

		records, err := store.Query(r.Context(), storage.Query{Category: category}, parseLimit(r))
		if err != nil {
			slog.Error("failed to query records by category", "category", category, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch updates")
			return
		}

		writeJSON(w, http.StatusOK, records)
	}
}

// GetRecord handles GET /api/records/{id}.
func GetRecord(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := url.PathUnescape(chi.URLParam(r, "id"))
		if err != nil || id == "" {
			writeError(w, http.StatusBadRequest, "Invalid record id")
			return
		}

		rec, err := store.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Record not found")
				return
			}
			slog.Error("failed to get record", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch record")
			return
		}

		writeJSON(w, http.StatusOK, rec)
	}
}
