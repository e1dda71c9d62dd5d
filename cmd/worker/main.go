// Command worker runs the background side of the reporting system: the
// Asynq worker with the weekly schedule, and the ops HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/gannetworld/gannet-reports/internal/app"
	"github.com/gannetworld/gannet-reports/internal/fx"
	jobmetrics "github.com/gannetworld/gannet-reports/internal/jobs"
	"github.com/gannetworld/gannet-reports/internal/observability"
	"github.com/gannetworld/gannet-reports/internal/ops"
	"github.com/gannetworld/gannet-reports/internal/pipeline"
	"github.com/gannetworld/gannet-reports/internal/platform/cache"
	"github.com/gannetworld/gannet-reports/internal/platform/db"
	"github.com/gannetworld/gannet-reports/internal/runlog"
	"github.com/gannetworld/gannet-reports/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if cfg.RedisAddr == "" {
		logger.Error("REDIS_ADDR is required for the worker")
		os.Exit(1)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	resolver := fx.NewResolver(
		fx.NewClient(cfg.FxServiceURL, cfg.FxTimeout),
		fx.NewSnapshotCache(redisClient, cfg.FxSnapshotTTL),
		logger,
	)
	exporter := pipeline.NewExporter(cfg.OutputDir, logger)

	latest := &ops.LatestRunStore{}
	registries := []pipeline.Registry{latest}

	var history ops.RunHistory
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
				registries = append(registries, store)
				history = store
			}
		}
	}

	service := pipeline.NewService(cfg, resolver, exporter, pipeline.Registries(registries...), metrics, logger)

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	weeklyTask, err := jobs.NewReportRunTask(jobs.ReportRunPayload{})
	if err != nil {
		logger.Error("build weekly task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeReportRun, Handler: jobs.NewReportRunHandler(cfg, service, jobMetrics, logger)},
			{Type: jobs.TaskTypeAlertEmail, Handler: jobs.NewAlertEmailHandler(nil, logger)},
		},
		Cron: []jobs.CronRegistration{
			// Monday 06:00 UTC, after the weekend exports land.
			{Spec: "0 6 * * 1", Task: weeklyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		Metrics:    metrics,
		OpsHandler: ops.NewHandler(logger, latest, resolver, queueClient, history),
		JobHandler: jobs.NewHandler(inspector, logger),
	})
	srv := &http.Server{
		Addr:         cfg.OpsAddr,
		Handler:      router,
		ReadTimeout:  cfg.OpsReadTimeout,
		WriteTimeout: cfg.OpsWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		logger.Info("ops api listening", slog.String("addr", cfg.OpsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.OpsRequestTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
