package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/pulse/internal/storage"
)

// ListSources handles GET /api/sources. It returns the outcome of the latest
// ingestion of every feed source.
func ListSources(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := store.SourceStatuses(r.Context())
		if err != nil {
			slog.Error("failed to get source statuses", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get sources")
			return
		}

		writeJSON(w, http.StatusOK, statuses)
	}
}
