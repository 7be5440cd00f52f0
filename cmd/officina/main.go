package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"officina/internal/amqp"
	"officina/internal/cli"
	apphttp "officina/internal/http"
	"officina/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// The sync queue is best-effort: the ledger works without a broker,
	// pending rows are swept by the worker once one is reachable.
	var publisher services.SyncPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, customer sync deferred to pending sweep", "error", err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	interchange := cli.InitSheets(context.Background(), logger, cfg)

	ledger := services.NewLedgerService(repo, publisher)
	defer ledger.Close()

	srv := apphttp.NewServer(":"+cfg.Port, ledger, repo, interchange)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting officina server", "port", cfg.Port, "sheets_backend", cfg.SheetsBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
