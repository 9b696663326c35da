package handlers

import (
	"net/http"

	"github.com/hoanghai1803/pulse/internal/storage"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Mode   storage.Mode  `json:"mode"`
	State  storage.State `json:"state"`
	Reason string        `json:"reason,omitempty"`
}

// Health handles GET /api/health. It reports the store mode and whether
// reads are served live or from the fallback data, and why.
func Health(mode storage.Mode, health func() storage.Health) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := health()
		writeJSON(w, http.StatusOK, HealthResponse{Mode: mode, State: h.State, Reason: h.Reason})
	}
}
