// Package ops is the small operational HTTP API: run status, findings,
// alerts, current FX rates, and ad-hoc run triggering. It exists for
// operators and dashboards; report consumers read the exported files.
package ops

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/gannetworld/gannet-reports/internal/fx"
	"github.com/gannetworld/gannet-reports/internal/pipeline"
	"github.com/gannetworld/gannet-reports/internal/platform/httpx"
	"github.com/gannetworld/gannet-reports/internal/runlog"
	"github.com/gannetworld/gannet-reports/jobs"
)

// LatestRunStore keeps the most recent run in memory. It implements
// pipeline.Registry so the pipeline publishes into it directly.
type LatestRunStore struct {
	mu  sync.RWMutex
	run *pipeline.RunResult
}

// RecordRun stores the run as the latest.
func (s *LatestRunStore) RecordRun(_ context.Context, run *pipeline.RunResult) error {
	s.mu.Lock()
	s.run = run
	s.mu.Unlock()
	return nil
}

// Latest returns the most recent run, nil before the first one.
func (s *LatestRunStore) Latest() *pipeline.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run
}

// RateSource exposes the current FX snapshot.
type RateSource interface {
	Latest(ctx context.Context) fx.Table
}

// RunEnqueuer submits ad-hoc run requests to the queue.
type RunEnqueuer interface {
	EnqueueReportRun(ctx context.Context, payload jobs.ReportRunPayload) (*asynq.TaskInfo, error)
}

// RunHistory lists persisted run summaries. *runlog.Store satisfies it.
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]runlog.RunSummary, error)
}

// Handler serves the ops endpoints.
type Handler struct {
	logger   *slog.Logger
	store    *LatestRunStore
	rates    RateSource
	enqueuer RunEnqueuer
	history  RunHistory
	validate *validator.Validate
}

// NewHandler constructs the ops handler. enqueuer and history may be
// nil; their endpoints answer 503 then.
func NewHandler(logger *slog.Logger, store *LatestRunStore, rates RateSource, enqueuer RunEnqueuer, history RunHistory) *Handler {
	return &Handler{
		logger:   logger,
		store:    store,
		rates:    rates,
		enqueuer: enqueuer,
		history:  history,
		validate: validator.New(),
	}
}

func (h *Handler) latestRun(w http.ResponseWriter, r *http.Request) {
	run := h.store.Latest()
	if run == nil {
		httpx.Problem(w, http.StatusNotFound, "no run yet", "no report run has completed in this process")
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "run history disabled", "no database configured")
		return
	}
	runs, err := h.history.RecentRuns(r.Context(), 20)
	if err != nil {
		h.logger.Error("ops: list runs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) findings(w http.ResponseWriter, r *http.Request) {
	run := h.store.Latest()
	if run == nil {
		httpx.Problem(w, http.StatusNotFound, "no run yet", "no report run has completed in this process")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"run_id":   run.ID,
		"findings": run.Findings(),
	})
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	run := h.store.Latest()
	if run == nil {
		httpx.Problem(w, http.StatusNotFound, "no run yet", "no report run has completed in this process")
		return
	}
	byEntity := make(map[string]any, len(run.Entities))
	for _, entity := range run.Entities {
		byEntity[entity.Entity.Key] = entity.Alerts
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"alerts": byEntity,
	})
}

func (h *Handler) latestRates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.rates.Latest(r.Context()))
}

// triggerRunRequest is the POST /runs body.
type triggerRunRequest struct {
	Week     int      `json:"week" validate:"omitempty,min=1,max=53"`
	Entities []string `json:"entities" validate:"dive,oneof=espana mexico all"`
	Reports  []string `json:"reports" validate:"dive,oneof=weekly bookings ap_ar commissions all"`
	Variant  string   `json:"variant" validate:"omitempty,oneof=INCLUDE_THEN_SUBTRACT EXCLUDE_AT_SOURCE"`
	RateMode string   `json:"rate_mode" validate:"omitempty,oneof=latest historical"`
}

func (h *Handler) triggerRun(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "queue disabled", "no redis configured")
		return
	}
	var req triggerRunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}

	info, err := h.enqueuer.EnqueueReportRun(r.Context(), jobs.ReportRunPayload{
		Week:     req.Week,
		Entities: req.Entities,
		Reports:  req.Reports,
		Variant:  req.Variant,
		RateMode: req.RateMode,
	})
	if err != nil {
		h.logger.Error("ops: enqueue run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID, "queue": info.Queue})
}
