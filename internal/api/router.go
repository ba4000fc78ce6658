package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/contextstack/internal/api/middleware"
	"github.com/eldtechnologies/contextstack/internal/handlers"
)

const (
	defaultBodyLimit = 16 * 1024   // context, tasks
	ingestBodyLimit  = 1024 * 1024 // bulk message and doc ingest
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, limiter *middleware.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Root)

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(defaultBodyLimit))

			r.Post("/context", h.GetContext)
			r.Get("/messages/{channelId}", h.ListMessages)
			r.Post("/tasks", h.CreateTask)
			r.Get("/tasks/{channelId}", h.ListTasks)
			r.Patch("/tasks/{id}", h.UpdateTask)
			r.Get("/docs", h.ListDocs)
			r.Get("/channels", h.ListChannels)
			r.Get("/stats", h.Stats)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(ingestBodyLimit))

			r.Post("/messages/ingest", h.IngestMessages)
			r.Post("/docs/ingest", h.IngestDocs)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.Error(w, http.StatusNotFound, "not found")
	})

	return r
}
