package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hoanghai1803/pulse/internal/api/handlers"
	"github.com/hoanghai1803/pulse/internal/storage"
)

// Deps are the collaborators the router serves from.
type Deps struct {
	Store storage.Store
	Mode  storage.Mode
	// Health reports whether reads are served live. Nil means always live.
	Health func() storage.Health
	// Metrics serves /metrics when set.
	Metrics        http.Handler
	AllowedOrigins []string
}

// NewRouter creates and configures the HTTP router with the read API.
func NewRouter(deps Deps) *chi.Mux {
	health := deps.Health
	if health == nil {
		health = func() storage.Health { return storage.Health{State: storage.StateLive} }
	}

	r := chi.NewRouter()

	// Global middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(SecurityHeaders(deps.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}` + "\n"))
	})

	// API sub-router.
	r.Route("/api", func(api chi.Router) {
		api.Get("/updates", handlers.ListRecords(deps.Store))
		api.Get("/updates/category/{category}", handlers.RecordsByCategory(deps.Store))
		api.Get("/records/{id}", handlers.GetRecord(deps.Store))
		api.Get("/categories", handlers.ListCategories(deps.Store))
		api.Get("/sources", handlers.ListSources(deps.Store))
		api.Get("/health", handlers.Health(deps.Mode, health))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}
