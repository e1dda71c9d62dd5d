package ops

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the ops endpoints onto the router. The token
// guard for mutating endpoints is passed in so the handler stays free
// of auth configuration.
func (h *Handler) MountRoutes(r chi.Router, guard func(http.Handler) http.Handler) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(5, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/runs/latest", h.latestRun)
	r.Get("/runs", h.listRuns)
	r.Get("/findings", h.findings)
	r.Get("/alerts", h.alerts)
	r.Get("/rates/latest", h.latestRates)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		if guard != nil {
			gr.Use(guard)
		}
		gr.Post("/runs", h.triggerRun)
	})
}
