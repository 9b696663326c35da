package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/pulse/internal/storage"
)

// ListCategories handles GET /api/categories. It returns up to 100 distinct
// categories, sorted.
func ListCategories(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := store.Categories(r.Context(), MaxCategories)
		if err != nil {
			slog.Error("failed to list categories", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
			return
		}

		writeJSON(w, http.StatusOK, categories)
	}
}
