package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"agencydesk/internal/amqp"
	"agencydesk/internal/cli"
	"agencydesk/internal/ledger"
	gledger "agencydesk/internal/ledger/google"
	"agencydesk/internal/ledger/memory"
	"agencydesk/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting agencydesk-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Without a spreadsheet id, exports go to an in-memory sink so local
	// runs exercise the full pipeline.
	var appender ledger.Appender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gledger.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets ledger", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets ledger initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.LedgerSheetName)
	} else {
		appender = memory.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID set, using in-memory ledger")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ledgerWorker := worker.NewLedgerWorker(repo, appender, cfg.ExportBatchSize)

	// Catch up on anything missed while the worker was down.
	if err := ledgerWorker.ProcessPendingPayments(ctx); err != nil {
		logger.Error("Startup export sweep failed", "error", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	// Event-driven exports from the queue.
	g.Go(func() error {
		err := amqpClient.ConsumePaymentRecorded(gctx, func(msg *amqp.PaymentRecordedMessage) error {
			return ledgerWorker.HandlePaymentMessage(gctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Periodic backup sweep for lost messages.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := ledgerWorker.ProcessPendingPayments(gctx); err != nil {
					logger.Error("Export sweep failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
