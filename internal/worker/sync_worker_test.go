package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"finflow/internal/amqp"
	"finflow/internal/core"
	"finflow/internal/sheets/memory"
	"finflow/internal/storage"
)

// flakyMirror fails every append until healthy is set.
type flakyMirror struct {
	*memory.Store
	mu      sync.Mutex
	healthy bool
	calls   int
}

func (m *flakyMirror) Append(ctx context.Context, e core.Expense) (string, error) {
	m.mu.Lock()
	m.calls++
	healthy := m.healthy
	m.mu.Unlock()
	if !healthy {
		return "", errors.New("quota exceeded")
	}
	return m.Store.Append(ctx, e)
}

func seedLedger(t *testing.T, store storage.ExpenseStore, titles ...string) []core.Expense {
	t.Helper()
	out := make([]core.Expense, len(titles))
	for i, title := range titles {
		out[i] = core.Expense{
			Date: core.NewDate(2024, 3, i+1), Title: title, Amount: core.Cents(int64(1000 * (i + 1))),
			Category: "Shopping", Type: core.EntryExpense,
		}
		require.NoError(t, store.CreateExpense(context.Background(), &out[i]))
	}
	return out
}

func TestSyncWorker_HandleLedgerEvent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryRepository()
	mirror := memory.New()
	w := NewSyncWorker(store, mirror, 10, 3, nil)
	entries := seedLedger(t, store, "Shoes", "Book")

	require.NoError(t, w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventExpenseCreated, entries[0].ID)))
	require.NoError(t, w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventExpenseCreated, entries[1].ID)))
	require.Len(t, mirror.Rows(), 2)

	pending, err := store.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	// redelivery is harmless
	require.NoError(t, w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventExpenseCreated, entries[0].ID)))
	require.Len(t, mirror.Rows(), 2)

	// an edit rewrites the mirrored row
	edited := entries[0]
	edited.Title = "Running shoes"
	require.NoError(t, store.UpdateExpense(ctx, edited))
	require.NoError(t, w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventExpenseUpdated, entries[0].ID)))
	require.Len(t, mirror.Rows(), 2)
	require.Equal(t, "Running shoes", mirror.Rows()[0][2])
	pending, err = store.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.NoError(t, w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventExpenseDeleted, entries[0].ID)))
	rows := mirror.Rows()
	require.Len(t, rows, 1)
	require.Equal(t, entries[1].ID, rows[0][0])

	// an entry deleted before the worker saw its created event is skipped
	require.NoError(t, w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventExpenseCreated, "gone")))

	require.Error(t, w.HandleLedgerEvent(ctx, &amqp.LedgerEvent{Type: "expense.renamed", ExpenseID: "x"}))
}

func TestSyncWorker_RetriesThenGivesUp(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryRepository()
	mirror := &flakyMirror{Store: memory.New()}
	w := NewSyncWorker(store, mirror, 10, 3, nil)
	entries := seedLedger(t, store, "Lamp")
	ev := amqp.NewLedgerEvent(amqp.EventExpenseCreated, entries[0].ID)

	require.Error(t, w.HandleLedgerEvent(ctx, ev))
	require.Error(t, w.HandleLedgerEvent(ctx, ev))
	// the third failure flags the entry and acknowledges the message
	require.NoError(t, w.HandleLedgerEvent(ctx, ev))
	require.Equal(t, 3, mirror.calls)

	pending, err := store.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending, "entry in error state must leave the pending queue")
	require.Empty(t, mirror.Rows())
}

func TestSyncWorker_ProcessPending(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryRepository()
	mirror := &flakyMirror{Store: memory.New()}
	w := NewSyncWorker(store, mirror, 2, 5, nil)
	seedLedger(t, store, "A", "B", "C")

	n, err := w.ProcessPending(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	mirror.mu.Lock()
	mirror.healthy = true
	mirror.mu.Unlock()

	n, err = w.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, w.StartupSyncCheck(ctx))
	require.Len(t, mirror.Rows(), 3)

	n, err = w.ProcessPending(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSyncWorker_ProcessPendingCancelled(t *testing.T) {
	store := storage.NewMemoryRepository()
	w := NewSyncWorker(store, memory.New(), 10, 3, nil)
	seedLedger(t, store, "A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.ProcessPending(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
