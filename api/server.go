/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Latency histogram per route (when enabled)
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/items/*           Stock items, recipes, restock, feasibility
  /api/ingredients       Recipe component candidates
  /api/production        Production runs
  /api/audit             Audit log
  /api/counterparties/*  Ledger counterparties
  /api/projects/*        Ledger projects
  /api/transactions/*    Ledger transactions and settlement
  /api/ledger/report     Aggregated balances
  /api/backup            Export / restore
  /api/scenarios/*       Demo data
  /health                Liveness
  /metrics               Prometheus (when enabled)

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

// RouterOptions carries the deployment-specific parts of the router.
type RouterOptions struct {
	AllowedOrigins []string
	// Quiet drops the per-request access log (tests).
	Quiet bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if !opts.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Item routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
			r.Get("/critical", h.CriticalItems)
			r.Get("/{id}", h.GetItem)
			r.Put("/{id}", h.UpdateItem)
			r.Delete("/{id}", h.DeleteItem)
			r.Post("/{id}/restock", h.Restock)
			r.Get("/{id}/recipe", h.GetRecipe)
			r.Put("/{id}/recipe", h.SetRecipe)
			r.Get("/{id}/feasibility", h.CheckFeasibility)
		})

		r.Get("/ingredients", h.Ingredients)
		r.Post("/production", h.Produce)
		r.Get("/audit", h.AuditLog)

		// Ledger routes
		r.Route("/counterparties", func(r chi.Router) {
			r.Get("/", h.ListCounterparties)
			r.Post("/", h.CreateCounterparty)
			r.Get("/{id}", h.GetCounterparty)
			r.Put("/{id}", h.UpdateCounterparty)
			r.Delete("/{id}", h.DeleteCounterparty)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Put("/{id}", h.UpdateProject)
			r.Delete("/{id}", h.DeleteProject)
			r.Get("/{id}/report", h.ProjectReport)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/{id}/settle", h.SettleTransaction)
		})

		r.Get("/ledger/report", h.Report)

		// Backup routes
		r.Get("/backup", h.ExportBackup)
		r.Post("/backup", h.ImportBackup)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
