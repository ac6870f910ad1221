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
  4. CORS:       Cross-origin requests for the mobile/web frontend

ROUTE GROUPS:
  /api/users/*         Profiles, scores, consumption, budgets
  /api/consumptions/*  Event amendment and removal
  /api/oils            Harm-score reference table
  /api/admin/*         Counter audit
  /health              Liveness probe

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
		// Per-user routes
		r.Route("/users/{id}", func(r chi.Router) {
			r.Put("/profile", h.SaveProfile)
			r.Get("/profile", h.GetProfile)
			r.Put("/scores/{day}", h.UpsertScore)
			r.Post("/consumptions", h.LogConsumption)
			r.Get("/consumptions", h.ListConsumption)
			r.Get("/status", h.GetStatus)
			r.Get("/goal", h.GetGoal)
		})

		// Event amendment routes
		r.Route("/consumptions", func(r chi.Router) {
			r.Put("/{id}", h.UpdateConsumption)
			r.Delete("/{id}", h.DeleteConsumption)
		})

		// Reference data
		r.Get("/oils", h.ListOils)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/audit", h.TriggerAudit)
		})
	})

	r.Get("/health", h.Health)

	return r
}
