package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fundcountdown/internal/backend"
	"fundcountdown/internal/cache"
	"fundcountdown/internal/cli"
	apphttp "fundcountdown/internal/http"
	"fundcountdown/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	svc, reports, err := backend.NewFundService(cfg, res, logger)
	if err != nil {
		logger.Error("Failed to initialize fund service", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	caches.Register(reports)
	caches.Start(ctx, cfg.CacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger)
	srv.MaxHeaderBytes = 1 << 16

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fundcountdown server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp", res.AMQP != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
	}
	stop()

	err = cli.Shutdown(logger, 30*time.Second, func(shutdownCtx context.Context) error {
		err := srv.Shutdown(shutdownCtx)
		caches.Wait()
		return errors.Join(err, res.Cleanup())
	})
	if err != nil {
		exitCode = 1
	}
	os.Exit(exitCode)
}
