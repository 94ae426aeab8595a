package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fundcountdown/internal/backend"
	"fundcountdown/internal/cache"
	"fundcountdown/internal/cli"
	"fundcountdown/internal/log"
	"fundcountdown/internal/worker"

	"golang.org/x/sync/errgroup"
)

// The worker exports fund reports. It consumes FundChanged messages when
// AMQP is configured and re-exports every fund on REPORT_INTERVAL to catch
// anything missed.
func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting fundcountdown-worker", "backend", cfg.DataBackend)
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend is private to this process, only its own funds will be exported")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	svc, reports, err := backend.NewFundService(cfg, res, logger)
	if err != nil {
		logger.Error("Failed to initialize fund service", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	writer, err := backend.NewReportWriter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize report writer", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	w := worker.NewReportWorker(svc, writer, logger, cfg.ReportParallelism)

	caches := cache.NewManager(logger)
	caches.Register(reports)
	caches.Start(ctx, cfg.CacheTTL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, cfg.ReportInterval)
	})
	if res.AMQP != nil {
		g.Go(func() error {
			return res.AMQP.ConsumeFundChanged(gctx, w.HandleFundChanged)
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic export only")
	}

	exitCode := 0
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		exitCode = 1
	}
	stop()

	err = cli.Shutdown(logger, 30*time.Second, func(context.Context) error {
		caches.Wait()
		return res.Cleanup()
	})
	if err != nil {
		exitCode = 1
	}
	os.Exit(exitCode)
}
