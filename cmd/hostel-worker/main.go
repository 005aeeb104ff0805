package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"hostel/internal/amqp"
	"hostel/internal/cli"
	"hostel/internal/config"
	"hostel/internal/log"
	"hostel/internal/metrics"
	"hostel/internal/sheets/google"
	"hostel/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting hostel-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	m := metrics.New()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	creds, err := cfg.GoogleCredentials()
	if err != nil {
		logger.Error("Failed to load Google credentials", log.FieldError, err)
		os.Exit(1)
	}
	ledger, err := google.New(context.Background(), google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleLedgerSheet,
		CredentialsJSON: creds,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets ledger", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets ledger initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleLedgerSheet)

	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer bus.Close()

	w := worker.NewLedgerWorker(repo, ledger, logger, m, cfg.ReconcileWorkers)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if !bus.Healthy() {
			http.Error(rw, "event bus unavailable", http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := bus.Consume(gctx, w.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return w.Run(gctx, cfg.SyncInterval)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	logger.Info("Ledger worker running",
		"queue", cfg.AMQPQueue,
		"sync_interval", cfg.SyncInterval.String(),
		"metrics_port", cfg.WorkerMetricsPort)

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
