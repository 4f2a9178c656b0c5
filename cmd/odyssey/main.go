package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-tax/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-tax/internal/app"
	"github.com/odyssey-erp/odyssey-tax/internal/observability"
	"github.com/odyssey-erp/odyssey-tax/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-tax/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gst"
	"github.com/odyssey-erp/odyssey-tax/internal/regional/india/gstr1"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
	"github.com/odyssey-erp/odyssey-tax/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 {
		os.Exit(runCommand(ctx, cfg, logger, os.Args[1:]))
	}
	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	reportCache := cache.NewVersioned(redisClient, "gstr1", cfg.GSTR1CacheTTL)
	if err := reportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	if cfg.GSTSettingsFile != "" {
		if err := seedSettings(ctx, gst.NewRepository(dbpool), cfg.GSTSettingsFile); err != nil {
			return err
		}
		logger.Info("gst settings seeded", slog.String("file", cfg.GSTSettingsFile))
	}

	metrics := observability.NewMetrics()
	reportMetrics, err := observability.NewReportMetrics(metrics.Registerer())
	if err != nil {
		return err
	}

	settingsService := settings.NewService(settings.NewRepository(dbpool), reportCache, logger)
	settingsHandler := settings.NewHandler(logger, settingsService)

	gstRepo := gst.NewRepository(dbpool)
	gstr1Repo := gstr1.NewRepository(dbpool)
	gstr1Service := gstr1.NewService(gstr1.NewReport(gstr1Repo, gstRepo, logger), gstRepo, gstr1.ServiceOptions{
		Cache:     reportCache,
		Metrics:   reportMetrics,
		Recorder:  gstr1Repo,
		ExportDir: cfg.GSTR1ExportDir,
		Logger:    logger,
	})

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	gstr1Handler := gstr1.NewHandler(logger, gstr1Service, jobClient, shared.NewIdempotencyStore(dbpool))
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SettingsHandler: settingsHandler,
		GSTR1Handler:    gstr1Handler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func seedSettings(ctx context.Context, repo *gst.Repository, path string) error {
	file, err := gst.LoadSettingsFile(path)
	if err != nil {
		return err
	}
	return repo.Seed(ctx, file)
}
