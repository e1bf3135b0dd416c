package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cuentas/internal/amqp"
	"cuentas/internal/cli"
	apphttp "cuentas/internal/http"
	applog "cuentas/internal/log"
	"cuentas/internal/services"
	"cuentas/internal/source"
	"cuentas/internal/source/memory"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	var (
		movementSource source.MovementSource
		categorySource source.CategorySource
		bookSource     source.BookSource
		writer         source.MovementWriter
		closeStore     func()
	)
	switch cfg.DataBackend {
	case "sqlite":
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		movementSource, categorySource, bookSource, writer = repo, repo, repo, repo
		closeStore = func() {
			if err := repo.Close(); err != nil {
				logger.Error("Failed to close SQLite repository", "error", err)
			}
		}
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store := memory.Seeded()
		movementSource, categorySource, bookSource, writer = store, store, store, store
		logger.Info("Initialized memory backend")
	}

	// Sync publishing is best effort. Without a broker the dashboard
	// still works; only the spreadsheet mirror goes stale.
	var publisher services.SyncPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, movement sync disabled", "error", err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	dashboard := services.NewDashboardService(movementSource, categorySource, bookSource, cfg.Locale)
	movements := services.NewMovementService(writer, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, dashboard, movements, logger, cfg.CacheSize, cfg.CacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if closeStore != nil {
			closeStore()
		}
	})

	logger.Info("Starting server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped")
}
