// Package jobs wires the report pipeline into the Asynq queue: the
// scheduled weekly run, ad-hoc runs enqueued from the ops API, and the
// payment-alert notification mail that follows a run.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/gannetworld/gannet-reports/internal/app"
	jobmetrics "github.com/gannetworld/gannet-reports/internal/jobs"
	"github.com/gannetworld/gannet-reports/internal/pipeline"
	"github.com/gannetworld/gannet-reports/internal/reconcile"
	"github.com/gannetworld/gannet-reports/internal/sales"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReportRun executes one report pipeline run.
	TaskTypeReportRun = "report:run"
	// TaskTypeAlertEmail sends a payment-alert notification mail.
	TaskTypeAlertEmail = "mail:payment_alerts"
)

// ReportRunPayload parameterises one queued pipeline run. Zero values
// mean "use the deployment defaults".
type ReportRunPayload struct {
	Week     int      `json:"week,omitempty"`
	Entities []string `json:"entities,omitempty"`
	Reports  []string `json:"reports,omitempty"`
	Variant  string   `json:"variant,omitempty"`
	RateMode string   `json:"rate_mode,omitempty"`
}

// NewReportRunTask constructs an Asynq task for one pipeline run.
func NewReportRunTask(payload ReportRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReportRun, data), nil
}

// Runner is the slice of the pipeline service the job handler needs.
type Runner interface {
	Run(ctx context.Context, opts Options) (*pipeline.RunResult, error)
}

// Options aliases the pipeline options so callers outside the queue do
// not need to import this package.
type Options = pipeline.Options

// NewReportRunHandler builds the Asynq handler executing queued runs.
func NewReportRunHandler(cfg *app.Config, runner Runner, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReportRunPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		entities, err := selectEntities(cfg, payload.Entities)
		if err != nil {
			logger.Error("jobs: report run rejected", slog.Any("error", err))
			return asynq.SkipRetry
		}

		opts := pipeline.Options{
			Week:     payload.Week,
			Entities: entities,
			Reports:  parseReports(payload.Reports),
			Variant:  reconcile.ParseVariant(payload.Variant),
			RateMode: sales.ParseRateMode(payload.RateMode),
		}

		tracker := metrics.Track("report_run")
		run, err := runner.Run(ctx, opts)
		if err != nil {
			return tracker.End(err)
		}
		for _, entity := range run.Entities {
			metrics.AddFindings(entity.Entity.Company, len(entity.Findings))
		}
		logger.Info("jobs: report run finished",
			slog.String("run_id", run.ID.String()),
			slog.Int("week", run.Week),
			slog.Int("rows", len(run.Rows())))
		return tracker.End(nil)
	}
}

func selectEntities(cfg *app.Config, keys []string) ([]app.Entity, error) {
	all, err := cfg.Entities()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return all, nil
	}
	byKey := make(map[string]app.Entity, len(all))
	for _, e := range all {
		byKey[e.Key] = e
	}
	var selected []app.Entity
	for _, key := range keys {
		if key == "all" {
			return all, nil
		}
		entity, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("jobs: unknown entity %q", key)
		}
		selected = append(selected, entity)
	}
	return selected, nil
}

func parseReports(names []string) pipeline.ReportSet {
	if len(names) == 0 {
		return pipeline.AllReports()
	}
	var set pipeline.ReportSet
	for _, name := range names {
		switch strings.ToLower(name) {
		case "weekly":
			set.Weekly = true
		case "bookings":
			set.Bookings = true
		case "ap_ar", "apar":
			set.APAR = true
		case "commissions":
			set.Commissions = true
		case "all":
			return pipeline.AllReports()
		}
	}
	if !set.Any() {
		return pipeline.AllReports()
	}
	return set
}

// AlertEmailPayload describes one payment-alert notification.
type AlertEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewAlertEmailTask constructs an Asynq task for one alert mail.
func NewAlertEmailTask(payload AlertEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAlertEmail, data), nil
}

// Mailer delivers notification mail. Implementations live at the edge;
// the queue only needs send semantics.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewAlertEmailHandler builds the Asynq handler delivering alert mail.
// A nil mailer logs and drops the message instead of failing the task.
func NewAlertEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AlertEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if mailer == nil {
			logger.Warn("jobs: no mailer configured, dropping alert mail",
				slog.String("to", payload.To), slog.String("subject", payload.Subject))
			return nil
		}
		return mailer.Send(ctx, payload.To, payload.Subject, payload.Body)
	}
}
