package ops

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/gannetworld/gannet-reports/internal/app"
	"github.com/gannetworld/gannet-reports/internal/fx"
	"github.com/gannetworld/gannet-reports/internal/pipeline"
	"github.com/gannetworld/gannet-reports/internal/sales"
	"github.com/gannetworld/gannet-reports/jobs"
	_ "github.com/gannetworld/gannet-reports/testing"
)

type stubRateSource struct{}

func (stubRateSource) Latest(context.Context) fx.Table {
	return fx.FallbackTable()
}

type stubEnqueuer struct {
	payloads []jobs.ReportRunPayload
}

func (s *stubEnqueuer) EnqueueReportRun(_ context.Context, payload jobs.ReportRunPayload) (*asynq.TaskInfo, error) {
	s.payloads = append(s.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: "default"}, nil
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r, nil)
	return r
}

func newTestHandler(enqueuer RunEnqueuer) (*Handler, *LatestRunStore) {
	store := &LatestRunStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, store, stubRateSource{}, enqueuer, nil), store
}

func sampleRun() *pipeline.RunResult {
	return &pipeline.RunResult{
		ID:   uuid.New(),
		Week: 12,
		Year: 2026,
		Entities: []pipeline.EntityResult{{
			Entity:   app.Entity{Key: "espana", Company: "SL"},
			Rows:     []sales.CanonicalRow{{Folio: 1, Company: "SL"}},
			Findings: []sales.Finding{{Company: "SL", Folio: 1, Message: "sin fecha_inicio"}},
		}},
	}
}

func TestLatestRunBeforeFirstRunIs404(t *testing.T) {
	h, _ := newTestHandler(nil)
	rr := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/latest", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLatestRunReturnsStoredRun(t *testing.T) {
	h, store := newTestHandler(nil)
	run := sampleRun()
	require.NoError(t, store.RecordRun(context.Background(), run))

	rr := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/latest", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), run.ID.String())
}

func TestFindingsEndpointExposesLatestFindings(t *testing.T) {
	h, store := newTestHandler(nil)
	require.NoError(t, store.RecordRun(context.Background(), sampleRun()))

	rr := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/findings", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "sin fecha_inicio")
}

func TestLatestRatesAlwaysAnswers(t *testing.T) {
	h, _ := newTestHandler(nil)
	rr := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/rates/latest", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "GPB")
}

func TestTriggerRunValidatesBody(t *testing.T) {
	h, _ := newTestHandler(&stubEnqueuer{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"week":99}`))
	testRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestTriggerRunEnqueues(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	h, _ := newTestHandler(enqueuer)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs",
		strings.NewReader(`{"week":12,"entities":["espana"],"reports":["weekly"],"rate_mode":"historical"}`))
	testRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Contains(t, rr.Body.String(), "task-1")
	require.Len(t, enqueuer.payloads, 1)
	require.Equal(t, 12, enqueuer.payloads[0].Week)
	require.Equal(t, []string{"espana"}, enqueuer.payloads[0].Entities)
}

func TestTriggerRunWithoutQueueIs503(t *testing.T) {
	h, _ := newTestHandler(nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{}`))
	testRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRunHistoryDisabledIs503(t *testing.T) {
	h, _ := newTestHandler(nil)
	rr := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
