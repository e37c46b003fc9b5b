package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"finflow/internal/amqp"
	"finflow/internal/core"
	"finflow/internal/metrics"
	"finflow/internal/sheets"
	"finflow/internal/storage"
)

// ErrRetriesExhausted marks an entry that was given up on and flagged with
// the sync error state.
var ErrRetriesExhausted = errors.New("sync retries exhausted")

// SyncWorker mirrors ledger entries from the store to the spreadsheet.
type SyncWorker struct {
	store      storage.ExpenseStore
	mirror     sheets.Mirror
	batchSize  int
	maxRetries int
	metrics    *metrics.Metrics

	mu       sync.Mutex
	failures map[string]int
}

func NewSyncWorker(store storage.ExpenseStore, mirror sheets.Mirror, batchSize, maxRetries int, m *metrics.Metrics) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &SyncWorker{
		store:      store,
		mirror:     mirror,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		metrics:    m,
		failures:   make(map[string]int),
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP. A returned
// error requeues the message; entries that exhausted their retries are
// acknowledged so the message stops cycling.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"type", ev.Type,
		"expense_id", ev.ExpenseID)

	switch ev.Type {
	case amqp.EventExpenseCreated, amqp.EventExpenseUpdated:
		e, err := w.store.GetExpense(ctx, ev.ExpenseID)
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Ledger entry vanished before sync, skipping", "expense_id", ev.ExpenseID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get expense from storage: %w", err)
		}
		if err := w.SyncExpense(ctx, e); err != nil {
			if errors.Is(err, ErrRetriesExhausted) {
				return nil
			}
			return err
		}
		return nil

	case amqp.EventExpenseDeleted:
		if err := w.mirror.DeleteEntry(ctx, ev.ExpenseID); err != nil {
			w.metrics.SyncResult("error")
			return fmt.Errorf("delete from sheet: %w", err)
		}
		w.metrics.SyncResult("deleted")
		slog.InfoContext(ctx, "Deleted ledger entry from sheet", "expense_id", ev.ExpenseID)
		return nil

	default:
		return fmt.Errorf("unknown ledger event type %q", ev.Type)
	}
}

// SyncExpense appends e to the sheet and marks it synced.
func (w *SyncWorker) SyncExpense(ctx context.Context, e core.Expense) error {
	ref, err := w.mirror.Append(ctx, e)
	if err != nil {
		return w.recordFailure(ctx, e.ID, err)
	}

	w.mu.Lock()
	delete(w.failures, e.ID)
	w.mu.Unlock()

	if err := w.store.MarkSynced(ctx, e.ID); err != nil {
		// the row exists, the next sweep rewrites it in place
		slog.ErrorContext(ctx, "Failed to mark as synced", "expense_id", e.ID, "error", err)
	}
	w.metrics.SyncResult("synced")
	slog.InfoContext(ctx, "Successfully synced ledger entry",
		"expense_id", e.ID,
		"sheets_ref", ref,
		"amount_cents", e.Amount.Cents)
	return nil
}

func (w *SyncWorker) recordFailure(ctx context.Context, id string, cause error) error {
	w.mu.Lock()
	w.failures[id]++
	attempts := w.failures[id]
	exhausted := attempts >= w.maxRetries
	if exhausted {
		delete(w.failures, id)
	}
	w.mu.Unlock()

	slog.WarnContext(ctx, "Sync attempt failed",
		"expense_id", id,
		"attempt", attempts,
		"max_retries", w.maxRetries,
		"error", cause)

	if !exhausted {
		w.metrics.SyncResult("error")
		return fmt.Errorf("append to sheet: %w", cause)
	}

	w.metrics.SyncResult("failed")
	if err := w.store.MarkSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "expense_id", id, "error", err)
	}
	slog.ErrorContext(ctx, "Ledger entry failed permanently after max retries",
		"expense_id", id,
		"attempts", attempts)
	return fmt.Errorf("%w: %v", ErrRetriesExhausted, cause)
}

// ProcessPending syncs one batch of entries that have not been mirrored yet.
// This is the backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.syncPending(ctx, w.batchSize)
}

// StartupSyncCheck syncs a larger batch of pending entries at worker
// startup to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.syncPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", n)
	return nil
}

func (w *SyncWorker) syncPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending ledger entries", "count", len(pending))
	synced := 0
	for _, e := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.SyncExpense(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to sync ledger entry", "expense_id", e.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}
