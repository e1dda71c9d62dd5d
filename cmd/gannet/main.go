// Command gannet runs one report cycle from the command line: load the
// entity CSV exports, resolve FX, build the selected reports and write
// the artifacts. Exit code 1 means no report could be produced.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gannetworld/gannet-reports/internal/app"
	"github.com/gannetworld/gannet-reports/internal/fx"
	"github.com/gannetworld/gannet-reports/internal/pipeline"
	"github.com/gannetworld/gannet-reports/internal/platform/cache"
	"github.com/gannetworld/gannet-reports/internal/platform/db"
	"github.com/gannetworld/gannet-reports/internal/reconcile"
	"github.com/gannetworld/gannet-reports/internal/runlog"
	"github.com/gannetworld/gannet-reports/internal/sales"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping run")
		return
	}

	week := flag.Int("week", 0, "ISO week to report on (0 = current week)")
	entity := flag.String("entity", "all", "entity to process: espana, mexico or all")
	weekly := flag.Bool("weekly", false, "produce the weekly sales report")
	bookings := flag.Bool("bookings", false, "produce the booking-window matrix")
	apar := flag.Bool("ap-ar", false, "produce the AP/AR reconciliation")
	commissionsFlag := flag.Bool("commissions", false, "produce the pending commissions report")
	variant := flag.String("variant", "", "reconciliation variant: INCLUDE_THEN_SUBTRACT or EXCLUDE_AT_SOURCE")
	rateMode := flag.String("rate-mode", "latest", "fx application: latest or historical")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	entities, err := cfg.Entities()
	if err != nil {
		logger.Error("configure entities", slog.Any("error", err))
		os.Exit(1)
	}
	if key := strings.ToLower(*entity); key != "all" {
		var selected []app.Entity
		for _, e := range entities {
			if e.Key == key {
				selected = append(selected, e)
			}
		}
		if len(selected) == 0 {
			logger.Error("unknown entity", slog.String("entity", *entity))
			os.Exit(1)
		}
		entities = selected
	}

	var snapshots *fx.SnapshotCache
	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, fx snapshots uncached", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			snapshots = fx.NewSnapshotCache(redisClient, cfg.FxSnapshotTTL)
		}
	}

	resolver := fx.NewResolver(fx.NewClient(cfg.FxServiceURL, cfg.FxTimeout), snapshots, logger)
	exporter := pipeline.NewExporter(cfg.OutputDir, logger)

	var registry pipeline.Registry
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Warn("connect postgres, run history disabled", slog.Any("error", err))
		} else {
			defer pool.Close()
			store, err := runlog.NewStore(ctx, pool)
			if err != nil {
				logger.Warn("init run history", slog.Any("error", err))
			} else {
				registry = store
			}
		}
	}

	service := pipeline.NewService(cfg, resolver, exporter, registry, nil, logger)

	run, err := service.Run(ctx, pipeline.Options{
		Week:     *week,
		Entities: entities,
		Reports: pipeline.ReportSet{
			Weekly:      *weekly,
			Bookings:    *bookings,
			APAR:        *apar,
			Commissions: *commissionsFlag,
		},
		Variant:  reconcile.ParseVariant(*variant),
		RateMode: sales.ParseRateMode(*rateMode),
	})
	if err != nil {
		logger.Error("report run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("report run complete",
		slog.String("run_id", run.ID.String()),
		slog.Int("week", run.Week),
		slog.Int("rows", len(run.Rows())),
		slog.Int("findings", len(run.Findings())))
}
