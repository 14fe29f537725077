package main

import (
	"time"

	"agencydesk/internal/cli"
	"agencydesk/internal/core"
	"agencydesk/internal/services"
)

// The sweeper keeps derived overdue statuses current even when nobody
// opens the dashboard: it runs the same reconciliation the dashboard
// triggers, on a fixed interval.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting agencydesk-sweeper")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	reconciler := services.NewReconciler(repo)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close repository", "error", err)
		}
	})

	logger.Info("Overdue sweeper configured",
		"interval", cfg.SweepInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// Initial sweep on startup.
	if res, err := reconciler.Sweep(ctx, core.DateOf(time.Now())); err != nil {
		logger.Error("Initial sweep failed", "error", err)
	} else {
		logger.Info("Initial sweep complete",
			"content_marked", res.ContentMarked,
			"invoices_marked", res.InvoicesMarked)
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				res, err := reconciler.Sweep(ctx, core.DateOf(now))
				if err != nil {
					logger.Error("Periodic sweep failed", "error", err)
					continue
				}
				logger.Info("Periodic sweep complete",
					"content_marked", res.ContentMarked,
					"invoices_marked", res.InvoicesMarked,
					"next_check", now.Add(cfg.SweepInterval).Format("15:04:05"))
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Sweeper stopped")
}
