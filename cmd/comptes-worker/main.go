package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"comptes/internal/amqp"
	"comptes/internal/cli"
	"comptes/internal/export"
	exportgoogle "comptes/internal/export/google"
	exportmemory "comptes/internal/export/memory"
	"comptes/internal/log"
	"comptes/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting comptes-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer func() { _ = repo.Close() }()

	// Google Sheets is optional; without it reports stay in memory, which
	// keeps the worker runnable in local setups.
	var writer export.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := exportgoogle.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets report writer initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = exportmemory.New()
		logger.Info("Google Sheets disabled - keeping batch reports in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer func() { _ = amqpClient.Close() }()

	exportWorker := worker.NewExportWorker(repo, writer, repo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeBatchSync(ctx, func(msg *amqp.BatchSyncMessage) error {
			return exportWorker.HandleBatchMessage(ctx, msg)
		})
	})

	logger.Info("Consuming batch sync messages", log.FieldQueue, cfg.AMQPQueue)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
