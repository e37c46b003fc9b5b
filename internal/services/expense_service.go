// Package services orchestrates the engine packages with persistence,
// messaging and caching.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"finflow/internal/amqp"
	"finflow/internal/cache"
	"finflow/internal/core"
	"finflow/internal/metrics"
	"finflow/internal/storage"
)

// LedgerPublisher announces ledger changes to the spreadsheet mirror.
type LedgerPublisher interface {
	PublishLedgerEvent(ctx context.Context, eventType, expenseID string) error
}

// LedgerRecorder is notified after a ledger entry has been persisted by
// another service, such as a recurring fulfilment.
type LedgerRecorder interface {
	Recorded(ctx context.Context, e core.Expense)
}

// ExpenseService owns the ledger: it persists entries, keeps the summary
// cache coherent and publishes change events.
type ExpenseService struct {
	store     storage.ExpenseStore
	publisher LedgerPublisher
	summaries cache.Cache[core.MonthOverview]
	metrics   *metrics.Metrics
	clock     core.Clock
}

// NewExpenseService wires the ledger. publisher and m may be nil.
func NewExpenseService(store storage.ExpenseStore, publisher LedgerPublisher, summaries cache.Cache[core.MonthOverview], m *metrics.Metrics, clock core.Clock) *ExpenseService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		summaries: summaries,
		metrics:   m,
		clock:     clock,
	}
}

var _ LedgerRecorder = (*ExpenseService)(nil)

// CreateExpense records a manual entry. A missing type defaults to expense
// and a missing date to today.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = ""
	e.Source = core.SourceManual
	e.SourceID = ""
	if e.Type == "" {
		e.Type = core.EntryExpense
	}
	if e.Date.IsEmpty() {
		e.Date = s.clock.Today()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.store.CreateExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.Recorded(ctx, e)
	return e, nil
}

// Recorded invalidates cached summaries and publishes the created event.
// Publishing failures are logged only: the entry is already stored and the
// sync worker picks it up on its next sweep.
func (s *ExpenseService) Recorded(ctx context.Context, e core.Expense) {
	s.invalidate()
	s.metrics.LedgerEntry(string(e.Type), string(e.Source))
	slog.InfoContext(ctx, "Ledger entry recorded",
		"expense_id", e.ID,
		"entry_type", e.Type,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"source", e.Source)
	s.publish(ctx, amqp.EventExpenseCreated, e.ID)
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	if f.Month < 0 || f.Month > 12 {
		return nil, fmt.Errorf("%w: month %d", core.ErrInvalidDate, f.Month)
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidEntryType, f.Type)
	}
	return s.store.ListExpenses(ctx, f)
}

// UpdateExpense replaces the editable fields of a stored entry. The id,
// source and creation time are kept; a missing type or date keeps the
// stored value.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, e core.Expense) (core.Expense, error) {
	cur, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense: %w", err)
	}
	e.ID = cur.ID
	e.Source = cur.Source
	e.SourceID = cur.SourceID
	e.CreatedAt = cur.CreatedAt
	if e.Type == "" {
		e.Type = cur.Type
	}
	if e.Date.IsEmpty() {
		e.Date = cur.Date
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.invalidate()
	slog.InfoContext(ctx, "Ledger entry updated",
		"expense_id", e.ID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)
	s.publish(ctx, amqp.EventExpenseUpdated, e.ID)
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate()
	s.publish(ctx, amqp.EventExpenseDeleted, id)
	return nil
}

// Summary returns the overview of one month, or of the whole ledger when
// year and month are zero. Results are cached until the next ledger write.
func (s *ExpenseService) Summary(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if month < 0 || month > 12 {
		return core.MonthOverview{}, fmt.Errorf("%w: month %d", core.ErrInvalidDate, month)
	}
	key := summaryKey(year, month)
	if s.summaries != nil {
		if ov, ok := s.summaries.Get(key); ok {
			s.metrics.CacheLookup(true)
			return ov, nil
		}
		s.metrics.CacheLookup(false)
	}

	entries, err := s.store.ListExpenses(ctx, storage.ExpenseFilter{Year: year, Month: month})
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("list expenses: %w", err)
	}
	ov := core.Summarize(entries, year, month)
	if s.summaries != nil {
		s.summaries.Set(key, ov)
	}
	return ov, nil
}

func summaryKey(year, month int) string {
	if year == 0 && month == 0 {
		return "all"
	}
	return fmt.Sprintf("%04d-%02d", year, month)
}

func (s *ExpenseService) invalidate() {
	if s.summaries != nil {
		s.summaries.Purge()
	}
}

func (s *ExpenseService) publish(ctx context.Context, eventType, id string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping ledger event", "type", eventType)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, eventType, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", eventType,
			"expense_id", id,
			"error", err)
	}
}
