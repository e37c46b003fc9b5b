package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"finflow/internal/backend"
	"finflow/internal/cache"
	"finflow/internal/cli"
	"finflow/internal/core"
	apphttp "finflow/internal/http"
	"finflow/internal/log"
	"finflow/internal/metrics"
	"finflow/internal/services"
)

const cacheSweepInterval = time.Minute

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	logger.Info("Starting finflow", "backend", cfg.DataBackend, "port", cfg.Port)

	factory := backend.NewFactory(cfg, logger.Logger)

	store, err := factory.OpenStore()
	if err != nil {
		cli.Fatal(logger, "Failed to open store", err)
	}

	amqpClient, err := factory.OpenAMQP()
	if err != nil {
		// publishing is best effort, the sync worker sweeps pending entries
		logger.Warn("Continuing without ledger events", "error", err)
		amqpClient = nil
	}
	var publisher services.LedgerPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	m := metrics.New()

	summaries := cache.NewLRUCache[core.MonthOverview](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(cacheSweepInterval)

	clock := core.SystemClock{}
	expenses := services.NewExpenseService(store, publisher, summaries, m, clock)
	obligations := services.NewObligationService(store, store, expenses, clock, cfg.ReminderLeadDays, m)
	splits := services.NewSplitService(store, m)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:           expenses,
		Obligations:        obligations,
		Splits:             splits,
		Logger:             logger.WithComponent(log.ComponentHTTP),
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to create server", err)
	}

	ctx, stop := cli.ShutdownContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
	}

	cacheManager.Stop()
	var closeAMQP func() error
	if amqpClient != nil {
		closeAMQP = amqpClient.Close
	}
	if err := cli.CloseAll(closeAMQP, store.Close); err != nil {
		logger.Error("Cleanup failed", "error", err)
	}
	logger.Info("Server shutdown complete")
}
