package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"hostel/internal/adapters"
	"hostel/internal/amqp"
	"hostel/internal/backend"
	"hostel/internal/cli"
	"hostel/internal/config"
	apphttp "hostel/internal/http"
	"hostel/internal/log"
	"hostel/internal/metrics"
	"hostel/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	m := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger, m).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	opts := []services.Option{services.WithLogger(logger)}
	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to connect to AMQP", log.FieldError, err)
			os.Exit(1)
		}
		defer bus.Close()
		opts = append(opts, services.WithPublisher(adapters.NewInstrumentedPublisher(bus, m)))
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Change events disabled - no AMQP_URL provided")
	}

	svc := services.NewPropertyService(result.Store, opts...)

	ready := func(ctx context.Context) error {
		if err := result.Ready(ctx); err != nil {
			return err
		}
		if bus != nil && !bus.Healthy() {
			return errors.New("event bus unavailable")
		}
		return nil
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger,
		Metrics:            m,
		CacheTTL:           cfg.CacheTTL,
		CacheSize:          cfg.CacheSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              ready,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting hostel server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
