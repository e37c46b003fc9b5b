// Package cli holds the startup steps shared by cmd/finflow,
// cmd/finflow-worker and cmd/reminder-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finflow/internal/config"
	"finflow/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap loads .env and configuration and installs the default logger
// tagged with component. It exits the process when either step fails.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()

	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger, err := log.Setup(cfg.LogLevel, cfg.LogFormat, component)
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// Fatal logs err and exits.
func Fatal(logger *log.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{"error", err}, args...)...)
	os.Exit(1)
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// CloseAll runs every closer and joins their errors.
func CloseAll(closers ...func() error) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("cleanup: %w", errors.Join(errs...))
}
