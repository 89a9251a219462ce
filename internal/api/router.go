package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/wardenhq/warden/internal/resolver"
	"github.com/wardenhq/warden/internal/signal"
	"github.com/wardenhq/warden/internal/store"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(
	svc *resolver.Service,
	db *store.DB,
	decisions *store.DecisionStore,
	sessions *store.SessionStore,
	signals signal.Channel,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	// Handlers
	healthH := NewHealthHandler(db)
	planH := NewPlanHandler(svc)
	sessionH := NewSessionHandler(svc, decisions, sessions)
	signalH := NewSignalHandler(signals)

	// Unauthenticated routes
	r.Get("/health", healthH.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Route("/plan", func(r chi.Router) {
			r.Post("/request", planH.Request)
			r.Get("/response/{requestId}", planH.Response)
			r.Post("/resolve/{requestId}", planH.Resolve)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionH.List)
			r.Get("/{id}", sessionH.Get)
			r.Get("/{id}/prompts", sessionH.Prompts)
			r.Get("/{id}/decisions", sessionH.Decisions)
			r.Post("/{id}/agent", sessionH.Agent)
		})

		r.Route("/signal", func(r chi.Router) {
			r.Post("/{sessionId}", signalH.Mark)
			r.Get("/{sessionId}", signalH.Check)
			r.Delete("/{sessionId}", signalH.Consume)
		})
	})

	return r
}
