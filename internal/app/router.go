package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gannetworld/gannet-reports/internal/observability"
)

// RouteMounter attaches a handler's routes, optionally behind a guard
// middleware for its mutating endpoints.
type RouteMounter interface {
	MountRoutes(r chi.Router, guard func(http.Handler) http.Handler)
}

// JobRouteMounter attaches queue observability routes.
type JobRouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams groups dependencies for building the ops HTTP router.
type RouterParams struct {
	Logger     *slog.Logger
	Config     *Config
	Metrics    *observability.Metrics
	OpsHandler RouteMounter
	JobHandler JobRouteMounter
}

// NewRouter constructs the chi.Router for the ops API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", params.Metrics.Handler())

	if params.OpsHandler != nil {
		var guard func(http.Handler) http.Handler
		if params.Config != nil && params.Config.OpsTokenHash != "" {
			guard = RequireToken(params.Logger, params.Config.OpsTokenHash)
		}
		params.OpsHandler.MountRoutes(r, guard)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
