package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finflow/internal/amqp"
	"finflow/internal/cache"
	"finflow/internal/core"
	"finflow/internal/storage"
)

func newExpenseService(t *testing.T) (*ExpenseService, *storage.MemoryRepository, *recordingPublisher, *cache.LRUCache[core.MonthOverview]) {
	t.Helper()
	store := storage.NewMemoryRepository()
	pub := &recordingPublisher{}
	summaries := cache.NewLRUCache[core.MonthOverview](8, time.Minute)
	return NewExpenseService(store, pub, summaries, nil, core.FixedClock{Date: today}), store, pub, summaries
}

func TestExpenseService_CreateExpense(t *testing.T) {
	tests := []struct {
		name    string
		input   core.Expense
		wantErr error
		check   func(t *testing.T, e core.Expense)
	}{
		{
			name:  "defaults date and type",
			input: core.Expense{Title: "Coffee", Amount: core.Cents(250), Category: "Food & Dining"},
			check: func(t *testing.T, e core.Expense) {
				require.Equal(t, "2024-03-10", e.Date.String())
				require.Equal(t, core.EntryExpense, e.Type)
			},
		},
		{
			name: "income keeps its date",
			input: core.Expense{Title: "Salary", Amount: core.Cents(250000), Category: "Income",
				Type: core.EntryIncome, Date: core.NewDate(2024, 3, 1)},
			check: func(t *testing.T, e core.Expense) {
				require.Equal(t, "2024-03-01", e.Date.String())
				require.Equal(t, core.EntryIncome, e.Type)
			},
		},
		{
			name: "source cannot be forged",
			input: core.Expense{Title: "Rent", Amount: core.Cents(90000), Category: "Bills & Utilities",
				Source: core.SourceRecurring, SourceID: "abc"},
			check: func(t *testing.T, e core.Expense) {
				require.Equal(t, core.SourceManual, e.Source)
				require.Empty(t, e.SourceID)
			},
		},
		{
			name:    "empty title",
			input:   core.Expense{Amount: core.Cents(100), Category: "Shopping"},
			wantErr: core.ErrEmptyDescription,
		},
		{
			name:    "zero amount",
			input:   core.Expense{Title: "Nothing", Category: "Shopping"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unknown type",
			input:   core.Expense{Title: "Gift", Amount: core.Cents(100), Category: "Shopping", Type: "transfer"},
			wantErr: core.ErrInvalidEntryType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pub, _ := newExpenseService(t)
			got, err := svc.CreateExpense(context.Background(), tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, pub.Events())
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, got.ID)
			tt.check(t, got)

			stored, err := store.GetExpense(context.Background(), got.ID)
			require.NoError(t, err)
			require.Equal(t, got.Title, stored.Title)
			require.Equal(t, []string{amqp.EventExpenseCreated + ":" + got.ID}, pub.Events())
		})
	}
}

func TestExpenseService_PublishFailureIsNotFatal(t *testing.T) {
	svc, store, pub, _ := newExpenseService(t)
	pub.err = errors.New("broker down")

	got, err := svc.CreateExpense(context.Background(), core.Expense{Title: "Taxi", Amount: core.Cents(1800), Category: "Transportation"})
	require.NoError(t, err)

	pending, err := store.PendingSync(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, got.ID, pending[0].ID)
}

func TestExpenseService_WithoutPublisher(t *testing.T) {
	svc := NewExpenseService(storage.NewMemoryRepository(), nil, nil, nil, core.FixedClock{Date: today})
	_, err := svc.CreateExpense(context.Background(), core.Expense{Title: "Taxi", Amount: core.Cents(1800), Category: "Transportation"})
	require.NoError(t, err)

	ov, err := svc.Summary(context.Background(), 2024, 3)
	require.NoError(t, err)
	require.Equal(t, int64(1800), ov.Expense.Cents)
}

func TestExpenseService_DeleteExpense(t *testing.T) {
	ctx := context.Background()
	svc, _, pub, _ := newExpenseService(t)
	e, err := svc.CreateExpense(ctx, core.Expense{Title: "Book", Amount: core.Cents(1500), Category: "Education"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExpense(ctx, e.ID))
	require.Equal(t, amqp.EventExpenseDeleted+":"+e.ID, pub.Events()[1])

	_, err = svc.GetExpense(ctx, e.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.ErrorIs(t, svc.DeleteExpense(ctx, e.ID), core.ErrNotFound)
	require.Len(t, pub.Events(), 2)
}

func TestExpenseService_UpdateExpense(t *testing.T) {
	ctx := context.Background()
	svc, store, pub, summaries := newExpenseService(t)
	e, err := svc.CreateExpense(ctx, core.Expense{Title: "Groceries", Amount: core.Cents(4000), Category: "Food & Dining", Date: core.NewDate(2024, 3, 2)})
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(ctx, e.ID))

	ov, err := svc.Summary(ctx, 2024, 3)
	require.NoError(t, err)
	require.Equal(t, int64(4000), ov.Expense.Cents)
	require.Equal(t, 1, summaries.Size())

	got, err := svc.UpdateExpense(ctx, e.ID, core.Expense{Title: "Groceries and wine", Amount: core.Cents(5500), Category: "Food & Dining"})
	require.NoError(t, err)
	require.Equal(t, e.ID, got.ID)
	require.Equal(t, core.EntryExpense, got.Type, "missing type keeps the stored one")
	require.True(t, got.Date.Equal(e.Date), "missing date keeps the stored one")
	require.True(t, got.CreatedAt.Equal(e.CreatedAt))
	require.Equal(t, core.SourceManual, got.Source)
	require.Zero(t, summaries.Size())
	require.Equal(t, []string{
		amqp.EventExpenseCreated + ":" + e.ID,
		amqp.EventExpenseUpdated + ":" + e.ID,
	}, pub.Events())

	ov, err = svc.Summary(ctx, 2024, 3)
	require.NoError(t, err)
	require.Equal(t, int64(5500), ov.Expense.Cents)

	pending, err := store.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	tests := []struct {
		name    string
		id      string
		in      core.Expense
		wantErr error
	}{
		{"missing entry", "missing", core.Expense{Title: "x", Amount: core.Cents(100), Category: "Other"}, core.ErrNotFound},
		{"zero amount", e.ID, core.Expense{Title: "x", Category: "Other"}, core.ErrInvalidAmount},
		{"unknown type", e.ID, core.Expense{Title: "x", Amount: core.Cents(100), Category: "Other", Type: "refund"}, core.ErrInvalidEntryType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateExpense(ctx, tt.id, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	require.Len(t, pub.Events(), 2, "rejected updates publish nothing")
}

func TestExpenseService_ListExpenses(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newExpenseService(t)
	for _, e := range []core.Expense{
		{Title: "Salary", Amount: core.Cents(300000), Category: "Income", Type: core.EntryIncome, Date: core.NewDate(2024, 3, 1)},
		{Title: "Dinner", Amount: core.Cents(6400), Category: "Food & Dining", Date: core.NewDate(2024, 3, 8)},
		{Title: "Shoes", Amount: core.Cents(8900), Category: "Shopping", Date: core.NewDate(2024, 2, 20)},
	} {
		_, err := svc.CreateExpense(ctx, e)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		filter  storage.ExpenseFilter
		want    int
		wantErr error
	}{
		{name: "all", filter: storage.ExpenseFilter{}, want: 3},
		{name: "march", filter: storage.ExpenseFilter{Year: 2024, Month: 3}, want: 2},
		{name: "incomes", filter: storage.ExpenseFilter{Type: core.EntryIncome}, want: 1},
		{name: "month out of range", filter: storage.ExpenseFilter{Month: 13}, wantErr: core.ErrInvalidDate},
		{name: "unknown type", filter: storage.ExpenseFilter{Type: "refund"}, wantErr: core.ErrInvalidEntryType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListExpenses(ctx, tt.filter)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, tt.want)
		})
	}
}

func TestExpenseService_SummaryCache(t *testing.T) {
	ctx := context.Background()
	svc, _, _, summaries := newExpenseService(t)

	_, err := svc.CreateExpense(ctx, core.Expense{Title: "Salary", Amount: core.Cents(200000), Category: "Income", Type: core.EntryIncome})
	require.NoError(t, err)
	_, err = svc.CreateExpense(ctx, core.Expense{Title: "Groceries", Amount: core.Cents(50000), Category: "Food & Dining"})
	require.NoError(t, err)

	ov, err := svc.Summary(ctx, 2024, 3)
	require.NoError(t, err)
	require.Equal(t, int64(150000), ov.Balance.Cents)
	require.Equal(t, "75", ov.SavingsRate.String())
	require.Equal(t, 1, summaries.Size())

	_, err = svc.Summary(ctx, 2024, 3)
	require.NoError(t, err)
	hits, misses := summaries.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)

	// a write must never leave a stale summary behind
	_, err = svc.CreateExpense(ctx, core.Expense{Title: "Cinema", Amount: core.Cents(2000), Category: "Entertainment"})
	require.NoError(t, err)
	require.Zero(t, summaries.Size())

	ov, err = svc.Summary(ctx, 2024, 3)
	require.NoError(t, err)
	require.Equal(t, int64(52000), ov.Expense.Cents)

	all, err := svc.Summary(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all.Recent, 3)
	require.Equal(t, 2, summaries.Size())

	_, err = svc.Summary(ctx, 2024, 13)
	require.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestExpenseService_Recorded(t *testing.T) {
	svc, _, pub, summaries := newExpenseService(t)
	summaries.Set("2024-03", core.MonthOverview{})

	svc.Recorded(context.Background(), core.Expense{ID: "e1", Type: core.EntryExpense, Source: core.SourceRecurring})
	require.Zero(t, summaries.Size())
	require.Equal(t, []string{amqp.EventExpenseCreated + ":e1"}, pub.Events())
}
