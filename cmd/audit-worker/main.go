package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"veraz/internal/amqp"
	"veraz/internal/cli"
	"veraz/internal/config"
	"veraz/internal/log"
	gsheet "veraz/internal/sheets/google"
	"veraz/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting audit-worker", log.FieldOperation, log.OpStartup)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	// Pending records live in the dashboard's database; without it the worker
	// only relays broker messages.
	var store worker.AuditStore
	if cfg.UserBackend == "sqlite" && cfg.SQLiteDBPath != "" {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		store = repo
	} else {
		logger.Info("No SQLite database configured, pending record sweeps disabled")
	}

	sheet, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleAuditSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		Logger:             logger,
	})
	if err != nil {
		return err
	}
	if err := sheet.EnsureHeader(ctx); err != nil {
		logger.Warn("Failed to write audit sheet header", log.FieldError, err.Error())
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewAuditWorker(store, sheet, cfg.AuditBatchSize, logger)

	logger.Info("Performing startup sync check...")
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeQueryAudit(gctx, w.HandleAuditMessage)
	})
	g.Go(func() error {
		return sweep(gctx, w, cfg.AuditSyncInterval, logger)
	})
	return g.Wait()
}

// sweep retries records whose message was lost or failed to append.
func sweep(ctx context.Context, w *worker.AuditWorker, interval time.Duration, logger *log.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				logger.Error("Periodic sync failed", log.FieldError, err.Error())
			}
		}
	}
}
