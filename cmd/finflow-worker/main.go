package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"finflow/internal/backend"
	"finflow/internal/cli"
	"finflow/internal/log"
	"finflow/internal/metrics"
	"finflow/internal/services"
	"finflow/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting finflow-worker", "backend", cfg.DataBackend, "sheets_enabled", cfg.SheetsEnabled())

	factory := backend.NewFactory(cfg, logger.Logger)

	store, err := factory.OpenStore()
	if err != nil {
		cli.Fatal(logger, "Failed to open store", err)
	}
	defer store.Close()

	ctx, stop := cli.ShutdownContext()
	defer stop()

	mirror, err := factory.OpenMirror(ctx)
	if err != nil {
		cli.Fatal(logger, "Failed to open spreadsheet mirror", err)
	}

	m := metrics.New()
	syncWorker := worker.NewSyncWorker(store, mirror, cfg.SyncBatchSize, cfg.SyncMaxRetries, m)

	// entries written while the worker was down
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval})
	if err := processor.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start sync processor", err)
	}

	amqpClient, err := factory.OpenAMQP()
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		defer amqpClient.Close()
		g.Go(func() error {
			err := amqpClient.ConsumeLedgerEvents(gctx, syncWorker.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		logger.Info("Skipping AMQP consumption - relying on periodic sync")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
	}

	logger.Info("Shutting down worker...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Sync processor did not stop cleanly", "error", err)
	}
	logger.Info("Worker shutdown complete")
}
