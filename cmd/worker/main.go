package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-tax/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-tax/internal/jobs"
	"github.com/odyssey-erp/odyssey-tax/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gst"
	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gstr1"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
	"github.com/odyssey-erp/odyssey-tax/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	gstRepo := gst.NewRepository(pool)
	gstr1Repo := gstr1.NewRepository(pool)
	exporter := gstr1.NewService(gstr1.NewReport(gstr1Repo, gstRepo, logger), gstRepo, gstr1.ServiceOptions{
		Recorder:  gstr1Repo,
		ExportDir: cfg.GSTR1ExportDir,
		Logger:    logger,
	})
	exportJob := jobs.NewGSTR1ExportJob(exporter, logger, jobmetrics.NewMetrics(nil))

	cron, err := jobs.MonthlyExportCron(cfg.GSTR1ExportCron, cfg.GSTR1ExportCompanies)
	if err != nil {
		logger.Error("build export cron", slog.Any("error", err))
		os.Exit(1)
	}

	idempotency := shared.NewIdempotencyStore(pool)
	if err := idempotency.Cleanup(ctx, cfg.IdempotencyRetention); err != nil {
		logger.Warn("idempotency cleanup", slog.Any("error", err))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGSTR1Export, Handler: exportJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency), slog.Int("cron_entries", len(cron)))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
