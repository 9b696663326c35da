package api

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// DefaultAllowedOrigins are the local development origins that are always
// allowed.
var DefaultAllowedOrigins = []string{
	"https://localhost:5173",
	"http://localhost:5173",
	"http://localhost:7071",
	"https://localhost:7071",
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before delegating to the underlying
// ResponseWriter.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs every HTTP request with method, path, status code,
// duration and request ID using the slog structured logger.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Recovery recovers from panics within HTTP handlers. It logs the panic value
// and stack trace, then returns a generic JSON 500 to the client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
					"request_id", middleware.GetReqID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error"}` + "\n"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets the hardening and CORS headers on every response and
// answers OPTIONS preflight requests with 204 No Content.
//
// A request without an Origin gets "*". An allowed or localhost origin is
// echoed back. Any other origin gets the first allowed origin, so browsers
// reject the response.
func SecurityHeaders(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := slices.Concat(allowedOrigins, DefaultAllowedOrigins)
	allowed = slices.DeleteFunc(allowed, func(o string) bool { return o == "" })

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			if r.Method == http.MethodGet {
				h.Set("Cache-Control", "public, max-age=300")
			}

			h.Set("Access-Control-Allow-Origin", allowOrigin(r.Header.Get("Origin"), allowed))
			if r.Header.Get("Origin") != "" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allowOrigin(origin string, allowed []string) string {
	switch {
	case origin == "":
		return "*"
	case slices.Contains(allowed, origin),
		strings.Contains(origin, "localhost"),
		strings.Contains(origin, "127.0.0.1"):
		return origin
	}
	return allowed[0]
}
