/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/protocols/*     Protocol management
  /api/injections/*    Log events
  /api/calendar/*      Month grid views
  /api/days/*          Selected-day views
  /api/dashboard       Timing, streaks, adherence
  /api/trends          Trend series
  /api/settings        Visibility + focus
  /api/scenarios/*     Demo scenarios

SECURITY NOTE:
  Single-user tool, no authentication middleware. All endpoints are
  public on the bound interface.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Protocol routes
		r.Route("/protocols", func(r chi.Router) {
			r.Get("/", h.ListProtocols)
			r.Post("/", h.CreateProtocol)
			r.Get("/{id}", h.GetProtocol)
			r.Post("/{id}/activate", h.ActivateProtocol)
			r.Delete("/{id}", h.TrashProtocol)
		})

		// Injection routes
		r.Route("/injections", func(r chi.Router) {
			r.Get("/", h.ListInjections)
			r.Post("/", h.LogInjection)
			r.Put("/{id}", h.UpdateInjection)
			r.Delete("/{id}", h.TrashInjection)
		})

		// View routes
		r.Get("/calendar/{year}/{month}", h.GetCalendar)
		r.Get("/days/{date}", h.GetDay)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/trends", h.GetTrends)

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetData)
		})
	})

	return r
}
