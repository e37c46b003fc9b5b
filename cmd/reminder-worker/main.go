package main

import (
	"context"

	"github.com/robfig/cron/v3"

	"finflow/internal/backend"
	"finflow/internal/cli"
	"finflow/internal/core"
	"finflow/internal/log"
	"finflow/internal/metrics"
	"finflow/internal/notify"
	"finflow/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentReminder)
	logger.Info("Starting reminder-worker",
		"schedule", cfg.ReminderSchedule,
		"lead_days", cfg.ReminderLeadDays,
		"auto_fulfill", cfg.AutoFulfill)

	factory := backend.NewFactory(cfg, logger.Logger)

	store, err := factory.OpenStore()
	if err != nil {
		cli.Fatal(logger, "Failed to open store", err)
	}
	defer store.Close()

	// fulfilled obligations reach the spreadsheet through finflow-worker
	var publisher services.LedgerPublisher
	amqpClient, err := factory.OpenAMQP()
	if err != nil {
		logger.Warn("Continuing without ledger events", "error", err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.EmailEnabled() {
		notifier = notify.NewEmailNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
			To:       []string{cfg.NotifyEmail},
		})
		logger.Info("Email reminders enabled", "smtp_host", cfg.SMTPHost, "to", cfg.NotifyEmail)
	} else {
		logger.Info("SMTP not configured - reminders are logged only")
	}

	m := metrics.New()
	clock := core.SystemClock{}
	expenses := services.NewExpenseService(store, publisher, nil, m, clock)
	processor := services.NewReminderProcessor(store, store, expenses, notifier, clock,
		services.ReminderOptions{LeadDays: cfg.ReminderLeadDays, AutoFulfill: cfg.AutoFulfill}, m)

	ctx, stop := cli.ShutdownContext()
	defer stop()

	run := func() {
		if _, err := processor.Run(ctx); err != nil {
			logger.Error("Reminder sweep failed", "error", err)
		}
	}

	logger.Info("Running initial reminder sweep...")
	run()

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(cfg.ReminderSchedule, run); err != nil {
		cli.Fatal(logger, "Invalid reminder schedule", err, "schedule", cfg.ReminderSchedule)
	}
	scheduler.Start()

	<-ctx.Done()
	logger.Info("Shutting down reminder-worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	select {
	case <-scheduler.Stop().Done():
		logger.Info("Reminder-worker shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}
