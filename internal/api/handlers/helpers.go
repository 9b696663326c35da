package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode"
)

const (
	// DefaultLimit is the number of records returned when no valid limit
	// is given.
	DefaultLimit = 50
	// MaxLimit caps the limit query parameter.
	MaxLimit = 1000
	// MaxCategories caps the categories listing.
	MaxCategories = 100

	maxCategoryLength = 100
)

// writeJSON encodes v as JSON and writes it to the response with the given
// HTTP status code. Content-Type is always set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// At this point headers are already sent; log but cannot change status.
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response with the given HTTP status code.
// The response body is {"error": "message"}.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseLimit reads the limit query parameter. Missing, non-numeric and
// non-positive values yield DefaultLimit; large values are capped at MaxLimit.
func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// sanitizeCategory trims raw and drops every rune other than letters,
// digits, spaces, '-' and '_'. It reports false when nothing is left or the
// result is longer than 100 characters.
func sanitizeCategory(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case r == ' ', r == '\t', r == '-', r == '_':
			return r
		}
		return -1
	}, strings.TrimSpace(raw))

	if cleaned == "" || len(cleaned) > maxCategoryLength {
		return "", false
	}
	return cleaned, true
}
