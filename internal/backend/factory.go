// Package backend builds the storage, messaging and mirror adapters selected
// by configuration. Every binary opens its collaborators through here.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finflow/internal/amqp"
	"finflow/internal/config"
	"finflow/internal/sheets"
	gsheet "finflow/internal/sheets/google"
	"finflow/internal/sheets/memory"
	"finflow/internal/storage"
)

// CleanupFunc releases a resource opened by the factory.
type CleanupFunc func() error

// Factory opens adapters for one configuration.
type Factory struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{cfg: cfg, logger: logger}
}

// OpenStore returns the configured Store. The caller closes it.
func (f *Factory) OpenStore() (storage.Store, error) {
	switch f.cfg.DataBackend {
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(f.cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", f.cfg.SQLiteDBPath)
		return repo, nil
	case config.BackendMemory:
		f.logger.Info("Initialized memory backend")
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", f.cfg.DataBackend)
	}
}

// OpenAMQP connects to the broker. It returns nil without error when AMQP is
// not configured.
func (f *Factory) OpenAMQP() (*amqp.Client, error) {
	if !f.cfg.AMQPEnabled() {
		f.logger.Info("AMQP disabled - ledger events will not be published")
		return nil, nil
	}
	client, err := amqp.NewClient(f.cfg.AMQPURL, f.cfg.AMQPExchange, f.cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.Info("Initialized AMQP client", "exchange", f.cfg.AMQPExchange, "queue", f.cfg.AMQPQueue)
	return client, nil
}

// OpenMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-process mirror otherwise.
func (f *Factory) OpenMirror(ctx context.Context) (sheets.Mirror, error) {
	if !f.cfg.SheetsEnabled() {
		f.logger.Info("Google Sheets disabled - mirroring to memory")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   f.cfg.GoogleSpreadsheetID,
		SheetName:       f.cfg.GoogleSheetName,
		CredentialsJSON: f.cfg.GoogleServiceAccountJSON,
		CredentialsFile: f.cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return client, nil
}
