/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zerolog access line, request-scoped logger in context
  3. Metrics:    Prometheus request counters and latency (optional),
                 outside Recoverer so panics are counted as 500s
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /health, /metrics             Operational
  /contracts, /jobs, /balances  Caller profile required
  /admin/*                      Reports, no caller profile

SECURITY NOTE:
  The profile_id header is trusted as-is unless JWT auth is configured.
  The admin reports are not protected.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Caller resolution and request logging
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/warp/contractor-payments/metrics"
)

// RouterOptions configures the ambient middleware. Zero values are usable.
type RouterOptions struct {
	Log            zerolog.Logger
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(opts.Log)...)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Instrument)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ProfileHeader},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	// Caller routes
	r.Group(func(r chi.Router) {
		r.Use(h.RequireProfile)

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Get("/{id}", h.GetContract)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/unpaid", h.ListUnpaidJobs)
			r.Post("/{job_id}/pay", h.PayJob)
		})

		r.Post("/balances/deposit/{userId}", h.Deposit)
	})

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Get("/best-profession", h.BestProfession)
		r.Get("/best-client", h.BestClients)
	})

	return r
}
