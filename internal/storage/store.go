// Package storage persists ledger entries, obligations and split expenses.
//
// Two backends implement Store: SQLiteRepository for durable storage and
// MemoryRepository for the memory backend and tests. Writes that touch more
// than one record are applied atomically by both.
package storage

import (
	"context"

	"finflow/internal/core"
)

// Sync states of a ledger entry mirrored to the spreadsheet.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// ExpenseFilter narrows ListExpenses. Zero fields match everything.
type ExpenseFilter struct {
	Year  int
	Month int
	Type  core.EntryType
	Limit int
}

// Match reports whether e passes the filter, ignoring Limit.
func (f ExpenseFilter) Match(e core.Expense) bool {
	if f.Year != 0 && e.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && e.Date.Month() != f.Month {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return true
}

type ExpenseStore interface {
	// CreateExpense assigns ID and CreatedAt when missing.
	CreateExpense(ctx context.Context, e *core.Expense) error
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	// ListExpenses returns entries newest first.
	ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
	// UpdateExpense rewrites the editable fields of an existing entry and
	// queues it for mirroring again. ID, source and CreatedAt are kept.
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id string) error

	// PendingSync returns up to limit entries not yet mirrored, oldest first.
	PendingSync(ctx context.Context, limit int) ([]core.Expense, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

type RecurringStore interface {
	CreateRecurring(ctx context.Context, o *core.RecurringObligation) error
	GetRecurring(ctx context.Context, id string) (core.RecurringObligation, error)
	// ListRecurring returns obligations ordered by next due date.
	ListRecurring(ctx context.Context) ([]core.RecurringObligation, error)
	UpdateRecurring(ctx context.Context, o core.RecurringObligation) error
	DeleteRecurring(ctx context.Context, id string) error
	// FulfillRecurring stores the advanced obligation and its ledger entry
	// in one transaction.
	FulfillRecurring(ctx context.Context, o core.RecurringObligation, e *core.Expense) error
}

type BillStore interface {
	CreateBill(ctx context.Context, b *core.BillReminder) error
	GetBill(ctx context.Context, id string) (core.BillReminder, error)
	// ListBills returns bills ordered by due date.
	ListBills(ctx context.Context) ([]core.BillReminder, error)
	UpdateBill(ctx context.Context, b core.BillReminder) error
	DeleteBill(ctx context.Context, id string) error
}

type SplitStore interface {
	CreateSplit(ctx context.Context, s *core.SplitExpense) error
	GetSplit(ctx context.Context, id string) (core.SplitExpense, error)
	// ListSplits returns splits newest first with participants in order.
	ListSplits(ctx context.Context) ([]core.SplitExpense, error)
	UpdateSplit(ctx context.Context, s core.SplitExpense) error
	DeleteSplit(ctx context.Context, id string) error
}

// Store is the full persistence contract used by the services.
type Store interface {
	ExpenseStore
	RecurringStore
	BillStore
	SplitStore
	Close() error
}
