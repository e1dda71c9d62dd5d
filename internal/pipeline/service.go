// Package pipeline orchestrates one report run: per-entity CSV loading,
// FX preloading, aggregation and reconciliation, then artifact export
// for the spreadsheet writers. One entity's bad data never stops the
// others.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gannetworld/gannet-reports/internal/app"
	"github.com/gannetworld/gannet-reports/internal/commissions"
	"github.com/gannetworld/gannet-reports/internal/fx"
	"github.com/gannetworld/gannet-reports/internal/ingest"
	"github.com/gannetworld/gannet-reports/internal/observability"
	"github.com/gannetworld/gannet-reports/internal/reconcile"
	"github.com/gannetworld/gannet-reports/internal/sales"
	"github.com/gannetworld/gannet-reports/internal/shared"
)

// ReportSet selects which reports a run produces.
type ReportSet struct {
	Weekly      bool `json:"weekly"`
	Bookings    bool `json:"bookings"`
	APAR        bool `json:"ap_ar"`
	Commissions bool `json:"commissions"`
}

// AllReports enables every report, the default when no flag is given.
func AllReports() ReportSet {
	return ReportSet{Weekly: true, Bookings: true, APAR: true, Commissions: true}
}

// Any reports whether at least one report is selected.
func (r ReportSet) Any() bool {
	return r.Weekly || r.Bookings || r.APAR || r.Commissions
}

// Options parameterises one run.
type Options struct {
	Week     int // 0 means the current ISO week
	Entities []app.Entity
	Reports  ReportSet
	Variant  reconcile.Variant
	RateMode sales.RateMode
}

// EntityResult carries everything produced for one legal entity.
type EntityResult struct {
	Entity   app.Entity            `json:"entity"`
	Rows     []sales.CanonicalRow  `json:"rows,omitempty"`
	Findings []sales.Finding       `json:"findings,omitempty"`
	Matrix   sales.BookingMatrix   `json:"matrix,omitempty"`
	AP       []reconcile.Result    `json:"ap,omitempty"`
	AR       []reconcile.Result    `json:"ar,omitempty"`
	Alerts   reconcile.Alerts      `json:"alerts"`
	Pending  []commissions.PendingLine `json:"pending,omitempty"`
	Buckets  []commissions.Bucket  `json:"buckets,omitempty"`
	Skipped  []string              `json:"skipped,omitempty"` // reports skipped with reason
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	ID          uuid.UUID           `json:"id"`
	Week        int                 `json:"week"`
	Year        int                 `json:"year"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	LatestRates fx.Table            `json:"latest_rates"`
	Entities    []EntityResult      `json:"entities"`
	Matrix      sales.BookingMatrix `json:"matrix,omitempty"` // combined across entities
}

// Rows returns the combined canonical rows across entities.
func (r *RunResult) Rows() []sales.CanonicalRow {
	var rows []sales.CanonicalRow
	for _, e := range r.Entities {
		rows = append(rows, e.Rows...)
	}
	return rows
}

// Findings returns the combined findings across entities.
func (r *RunResult) Findings() []sales.Finding {
	var findings []sales.Finding
	for _, e := range r.Entities {
		findings = append(findings, e.Findings...)
	}
	return findings
}

// Registry persists run history; implementations must be optional and
// non-fatal.
type Registry interface {
	RecordRun(ctx context.Context, run *RunResult) error
}

// Registries fans one RecordRun out to several registries; the first
// error wins but every registry still runs.
func Registries(rs ...Registry) Registry {
	return fanoutRegistry(rs)
}

type fanoutRegistry []Registry

func (f fanoutRegistry) RecordRun(ctx context.Context, run *RunResult) error {
	var first error
	for _, r := range f {
		if r == nil {
			continue
		}
		if err := r.RecordRun(ctx, run); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Service drives report runs.
type Service struct {
	cfg      *app.Config
	resolver *fx.Resolver
	exporter *Exporter
	registry Registry
	metrics  *observability.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the pipeline. exporter, registry and metrics may be
// nil.
func NewService(cfg *app.Config, resolver *fx.Resolver, exporter *Exporter, registry Registry, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	resolver.OnFallback(metrics.CountFallbackDay)
	return &Service{
		cfg:      cfg,
		resolver: resolver,
		exporter: exporter,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one report run. It fails only when no entity produced
// any data; individual entity or report failures degrade with a log and
// a Skipped entry.
func (s *Service) Run(ctx context.Context, opts Options) (*RunResult, error) {
	if !opts.Reports.Any() {
		opts.Reports = AllReports()
	}
	now := s.now()
	week := opts.Week
	if week == 0 {
		week = shared.ISOWeek(now)
	}

	run := &RunResult{
		ID:        uuid.New(),
		Week:      week,
		Year:      now.Year(),
		StartedAt: now,
	}
	logger := s.logger.With(slog.String("run_id", run.ID.String()), slog.Int("week", week))
	logger.Info("pipeline: run started")

	run.LatestRates = s.resolver.Latest(ctx)

	for _, entity := range opts.Entities {
		run.Entities = append(run.Entities, s.runEntity(ctx, logger, entity, opts, run.LatestRates))
	}

	if len(run.Rows()) == 0 {
		s.metrics.ObserveRun("failed", s.now().Sub(run.StartedAt), 0)
		return nil, fmt.Errorf("pipeline: no entity produced data")
	}

	if opts.Reports.Weekly || opts.Reports.Bookings {
		run.Matrix = sales.BuildBookingMatrix(run.Rows(), s.cfg.FiscalYear1)
	}

	run.FinishedAt = s.now()

	if s.exporter != nil {
		if err := s.exporter.WriteRun(run); err != nil {
			logger.Error("pipeline: artifact export failed", slog.Any("error", err))
		}
	}
	if s.registry != nil {
		if err := s.registry.RecordRun(ctx, run); err != nil {
			logger.Warn("pipeline: run registry unavailable", slog.Any("error", err))
		}
	}

	s.metrics.ObserveRun("success", run.FinishedAt.Sub(run.StartedAt), len(run.Rows()))
	logger.Info("pipeline: run finished",
		slog.Int("entities", len(run.Entities)),
		slog.Int("rows", len(run.Rows())),
		slog.Duration("took", run.FinishedAt.Sub(run.StartedAt)))
	return run, nil
}

func (s *Service) runEntity(ctx context.Context, logger *slog.Logger, entity app.Entity, opts Options, latest fx.Table) EntityResult {
	result := EntityResult{Entity: entity}
	logger = logger.With(slog.String("entity", entity.Key), slog.String("company", entity.Company))

	reservations, err := ingest.LoadReservations(entity.DataDir, logger)
	if err != nil {
		logger.Error("pipeline: entity skipped", slog.Any("error", err))
		result.Skipped = append(result.Skipped, fmt.Sprintf("entity: %v", err))
		return result
	}
	lines, err := ingest.LoadServiceLines(entity.DataDir, logger)
	if err != nil {
		logger.Error("pipeline: entity skipped", slog.Any("error", err))
		result.Skipped = append(result.Skipped, fmt.Sprintf("entity: %v", err))
		return result
	}
	profitability := ingest.ComputeProfitability(lines)
	suppliers := ingest.LoadSuppliers(entity.DataDir, logger)

	if opts.RateMode == sales.RateModeHistorical {
		var saleDates []time.Time
		for _, res := range reservations {
			if res.SaleDate != nil {
				saleDates = append(saleDates, *res.SaleDate)
			}
		}
		s.resolver.Preload(ctx, saleDates)
	}

	result.Rows = sales.BuildCanonicalRows(ctx, sales.AggregatorConfig{
		Mode:     opts.RateMode,
		Latest:   latest,
		Resolver: s.resolver,
	}, reservations, profitability, entity.Company)
	result.Findings = sales.DetectFindings(reservations, profitability, entity.Company)
	result.Matrix = sales.BuildBookingMatrix(result.Rows, s.cfg.FiscalYear1)

	if opts.Reports.APAR {
		s.runReconciliation(ctx, logger, entity, opts, reservations, suppliers, latest, &result)
	}

	if opts.Reports.Commissions {
		salespersonByFolio := make(map[int64]string, len(reservations))
		for _, res := range reservations {
			salespersonByFolio[res.Folio] = res.Salesperson
		}
		pending := commissions.FilterPending(lines)
		result.Pending = commissions.BuildPending(pending, suppliers, salespersonByFolio, latest)
		result.Buckets = commissions.BucketByFiscalMonth(result.Pending)
	}

	return result
}

// runReconciliation loads both payment ledgers and reconciles them. A
// missing ledger skips the AP/AR report for this entity only.
func (s *Service) runReconciliation(ctx context.Context, logger *slog.Logger, entity app.Entity, opts Options, reservations []ingest.Reservation, suppliers map[int64]ingest.Supplier, latest fx.Table, result *EntityResult) {
	supplierPayments, err := ingest.LoadSupplierPayments(entity.DataDir, logger)
	if err != nil {
		logger.Error("pipeline: ap/ar skipped", slog.Any("error", err))
		result.Skipped = append(result.Skipped, fmt.Sprintf("ap_ar: %v", err))
		return
	}
	clientPayments, err := ingest.LoadClientPayments(entity.DataDir, logger)
	if err != nil {
		logger.Error("pipeline: ap/ar skipped", slog.Any("error", err))
		result.Skipped = append(result.Skipped, fmt.Sprintf("ap_ar: %v", err))
		return
	}

	engine := reconcile.NewEngine(entity.Company, opts.Variant, logger)
	result.AP = engine.Reconcile(reconcile.SideAP, reservations, supplierPayments, latest)
	result.AR = engine.Reconcile(reconcile.SideAR, reservations, clientPayments, latest)
	result.Alerts = reconcile.PaymentAlerts(supplierPayments, suppliers, s.now())
}
