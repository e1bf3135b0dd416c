package main

import (
	"context"
	"errors"
	"time"

	"cuentas/internal/amqp"
	"cuentas/internal/cli"
	applog "cuentas/internal/log"
	"cuentas/internal/sheets"
	gsheet "cuentas/internal/sheets/google"
	"cuentas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting cuentas-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var exporter sheets.MovementExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewClient(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			return
		}
		exporter = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled, no spreadsheet id configured")
	}

	syncWorker := worker.NewSyncWorker(repo, exporter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Consume until shutdown. A dropped connection or closed channel is
	// retried after the sync interval.
	for {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
		} else {
			err = amqpClient.ConsumeMovementSync(ctx, func(msg *amqp.MovementSyncMessage) error {
				return syncWorker.HandleSyncMessage(ctx, msg)
			})
			amqpClient.Close()
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.Error("Consumer stopped", "error", err)
		}

		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Worker stopped")
			return
		case <-time.After(cfg.SyncInterval):
		}
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
