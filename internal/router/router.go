// Package router sets up the HTTP routes and middleware chains of
// SocialPilot. Trigger endpoints get their own stack with origin
// validation and rate limiting.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"socialpilot/internal/handlers"
	"socialpilot/internal/metrics"
	"socialpilot/internal/middleware"
)

// Options configures the middleware around the API.
type Options struct {
	TriggerAuth middleware.TriggerAuth
	// TriggerLimiter may be nil to disable rate limiting.
	TriggerLimiter *middleware.RateLimiter
	// Metrics may be nil; /metrics is then not mounted.
	Metrics *metrics.Metrics
}

// New creates the configured Chi router.
func New(api *handlers.API, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(opts.Metrics.Middleware)

	r.Get("/health", api.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Trigger endpoints: GET is accepted for cron callers that cannot POST.
		r.Route("/trigger", func(r chi.Router) {
			if opts.TriggerLimiter != nil {
				r.Use(opts.TriggerLimiter.Middleware)
			}
			r.Use(opts.TriggerAuth.Middleware)
			r.Post("/generate", api.TriggerGenerate)
			r.Get("/generate", api.TriggerGenerate)
			r.Post("/publish", api.TriggerPublish)
			r.Get("/publish", api.TriggerPublish)
		})

		// Review API
		r.Route("/items", func(r chi.Router) {
			r.Get("/", api.ListItems)
			r.Get("/counts", api.ItemCounts)
			r.Get("/{id}", api.GetItem)
			r.Patch("/{id}", api.UpdateItem)
			r.Delete("/{id}", api.DeleteItem)
			r.Post("/{id}/expand", api.ExpandItem)
			r.Get("/{id}/edits", api.ItemEdits)
		})

		r.Get("/schedules", api.ListSchedules)
		r.Get("/corpus/analysis", api.CorpusAnalysis)
		r.Get("/jobs", api.ListJobs)
		r.Get("/config", api.RuntimeConfig)
	})

	return r
}
