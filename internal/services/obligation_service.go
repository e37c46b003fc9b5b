package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"finflow/internal/core"
	"finflow/internal/metrics"
	"finflow/internal/notify"
	"finflow/internal/obligation"
	"finflow/internal/schedule"
	"finflow/internal/status"
	"finflow/internal/storage"
)

// Upcoming item kinds.
const (
	KindBill      = notify.KindBill
	KindRecurring = notify.KindRecurring
)

const maxUpcomingDays = 366

// RecurringView is an obligation with its status relative to today.
type RecurringView struct {
	core.RecurringObligation
	status.Result
}

// BillView is a bill with its status relative to today.
type BillView struct {
	core.BillReminder
	status.Result
}

// UpcomingItem is one due date in the merged upcoming view.
type UpcomingItem struct {
	Kind     string     `json:"kind"`
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Amount   core.Money `json:"amount"`
	Category string     `json:"category"`
	DueDate  core.Date  `json:"dueDate"`
	status.Result
}

// ObligationService manages recurring obligations and bill reminders.
type ObligationService struct {
	recurring storage.RecurringStore
	bills     storage.BillStore
	ledger    LedgerRecorder
	clock     core.Clock
	leadDays  int
	metrics   *metrics.Metrics
}

// NewObligationService wires the obligation stores. leadDays is the
// due-soon window used for recurring obligations; bills carry their own.
func NewObligationService(recurring storage.RecurringStore, bills storage.BillStore, ledger LedgerRecorder, clock core.Clock, leadDays int, m *metrics.Metrics) *ObligationService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &ObligationService{
		recurring: recurring,
		bills:     bills,
		ledger:    ledger,
		clock:     clock,
		leadDays:  leadDays,
		metrics:   m,
	}
}

func (s *ObligationService) CreateRecurring(ctx context.Context, o core.RecurringObligation) (core.RecurringObligation, error) {
	o.ID = ""
	o, err := obligation.NewRecurring(o, s.clock.Today())
	if err != nil {
		return core.RecurringObligation{}, err
	}
	if err := s.recurring.CreateRecurring(ctx, &o); err != nil {
		return core.RecurringObligation{}, fmt.Errorf("save recurring obligation: %w", err)
	}
	slog.InfoContext(ctx, "Recurring obligation created",
		"recurring_id", o.ID,
		"frequency", o.Frequency,
		"next_due", o.NextDueDate.String())
	return o, nil
}

func (s *ObligationService) ListRecurring(ctx context.Context) ([]RecurringView, error) {
	list, err := s.recurring.ListRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring obligations: %w", err)
	}
	today := s.clock.Today()
	out := make([]RecurringView, len(list))
	for i, o := range list {
		out[i] = RecurringView{RecurringObligation: o, Result: status.ClassifyRecurring(o, today, s.leadDays)}
	}
	return out, nil
}

// ToggleRecurring flips the active flag. NextDueDate stays frozen while the
// obligation is inactive and is not recomputed on reactivation, so missed
// periods remain visible as overdue.
func (s *ObligationService) ToggleRecurring(ctx context.Context, id string) (core.RecurringObligation, error) {
	o, err := s.recurring.GetRecurring(ctx, id)
	if err != nil {
		return core.RecurringObligation{}, err
	}
	o = obligation.Toggle(o)
	if o.Active && o.NextDueDate.IsEmpty() {
		if o, err = obligation.Project(o, s.clock.Today()); err != nil {
			return core.RecurringObligation{}, err
		}
	}
	if err := s.recurring.UpdateRecurring(ctx, o); err != nil {
		return core.RecurringObligation{}, fmt.Errorf("update recurring obligation: %w", err)
	}
	return o, nil
}

// FulfillRecurring marks the current period paid today: the obligation
// advances one period and a ledger entry is written in the same transaction.
func (s *ObligationService) FulfillRecurring(ctx context.Context, id string) (core.RecurringObligation, core.Expense, error) {
	o, err := s.recurring.GetRecurring(ctx, id)
	if err != nil {
		return core.RecurringObligation{}, core.Expense{}, err
	}
	next, entry, err := obligation.Fulfill(o, s.clock.Today())
	if err != nil {
		return core.RecurringObligation{}, core.Expense{}, err
	}
	if err := s.recurring.FulfillRecurring(ctx, next, &entry); err != nil {
		return core.RecurringObligation{}, core.Expense{}, fmt.Errorf("fulfil recurring obligation: %w", err)
	}
	s.metrics.Fulfilment("manual")
	if s.ledger != nil {
		s.ledger.Recorded(ctx, entry)
	}
	return next, entry, nil
}

func (s *ObligationService) DeleteRecurring(ctx context.Context, id string) error {
	return s.recurring.DeleteRecurring(ctx, id)
}

// CreateBill stores a new bill. A bill created as paid without a paid date
// is stamped with today.
func (s *ObligationService) CreateBill(ctx context.Context, b core.BillReminder) (core.BillReminder, error) {
	b.ID = ""
	if err := b.Validate(); err != nil {
		return core.BillReminder{}, err
	}
	if b.Paid && b.PaidDate.IsEmpty() {
		b.PaidDate = s.clock.Today()
	}
	if !b.Paid {
		b.PaidDate = core.Date{}
	}
	if err := s.bills.CreateBill(ctx, &b); err != nil {
		return core.BillReminder{}, fmt.Errorf("save bill: %w", err)
	}
	return b, nil
}

func (s *ObligationService) ListBills(ctx context.Context) ([]BillView, error) {
	list, err := s.bills.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	today := s.clock.Today()
	out := make([]BillView, len(list))
	for i, b := range list {
		out[i] = BillView{BillReminder: b, Result: status.ClassifyBill(b, today)}
	}
	return out, nil
}

func (s *ObligationService) PayBill(ctx context.Context, id string) (BillView, error) {
	return s.updateBill(ctx, id, func(b core.BillReminder) (core.BillReminder, error) {
		return obligation.MarkPaid(b, s.clock.Today()), nil
	})
}

func (s *ObligationService) UnpayBill(ctx context.Context, id string) (BillView, error) {
	return s.updateBill(ctx, id, func(b core.BillReminder) (core.BillReminder, error) {
		return obligation.MarkUnpaid(b), nil
	})
}

// SnoozeBill moves the due date to until. Earlier dates are rejected.
func (s *ObligationService) SnoozeBill(ctx context.Context, id string, until core.Date) (BillView, error) {
	return s.updateBill(ctx, id, func(b core.BillReminder) (core.BillReminder, error) {
		return obligation.Snooze(b, until)
	})
}

func (s *ObligationService) SnoozeBillBy(ctx context.Context, id string, days int) (BillView, error) {
	return s.updateBill(ctx, id, func(b core.BillReminder) (core.BillReminder, error) {
		return obligation.SnoozeBy(b, days)
	})
}

func (s *ObligationService) updateBill(ctx context.Context, id string, apply func(core.BillReminder) (core.BillReminder, error)) (BillView, error) {
	b, err := s.bills.GetBill(ctx, id)
	if err != nil {
		return BillView{}, err
	}
	if b, err = apply(b); err != nil {
		return BillView{}, err
	}
	if err := s.bills.UpdateBill(ctx, b); err != nil {
		return BillView{}, fmt.Errorf("update bill: %w", err)
	}
	return BillView{BillReminder: b, Result: status.ClassifyBill(b, s.clock.Today())}, nil
}

func (s *ObligationService) DeleteBill(ctx context.Context, id string) error {
	return s.bills.DeleteBill(ctx, id)
}

// Upcoming merges unpaid bills and active recurring obligations due within
// the next days, including everything already overdue, ordered by due date.
// Recurring obligations contribute every occurrence inside the window.
func (s *ObligationService) Upcoming(ctx context.Context, days int) ([]UpcomingItem, error) {
	if days < 0 || days > maxUpcomingDays {
		return nil, fmt.Errorf("%w: upcoming window of %d days", core.ErrDateOrdering, days)
	}
	today := s.clock.Today()
	end := today.AddDays(days)

	bills, err := s.bills.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	items := []UpcomingItem{}
	for _, b := range bills {
		if b.Paid || b.DueDate.After(end) {
			continue
		}
		items = append(items, UpcomingItem{
			Kind: KindBill, ID: b.ID, Name: b.Name, Amount: b.Amount, Category: b.Category,
			DueDate: b.DueDate, Result: status.ClassifyBill(b, today),
		})
	}

	recurring, err := s.recurring.ListRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring obligations: %w", err)
	}
	for _, o := range recurring {
		if !o.Active || o.NextDueDate.IsEmpty() || o.NextDueDate.After(end) {
			continue
		}
		from := o.NextDueDate
		if from.Before(today) {
			items = append(items, s.recurringItem(o, o.NextDueDate, today))
			from = today
		}
		dates, err := schedule.Occurrences(schedule.RuleOf(o), from, end)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", o.ID, err)
		}
		for _, d := range dates {
			items = append(items, s.recurringItem(o, d, today))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].DueDate.Equal(items[j].DueDate) {
			return items[i].DueDate.Before(items[j].DueDate)
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (s *ObligationService) recurringItem(o core.RecurringObligation, due, today core.Date) UpcomingItem {
	return UpcomingItem{
		Kind: KindRecurring, ID: o.ID, Name: o.Description, Amount: o.Amount, Category: o.Category,
		DueDate: due, Result: status.Classify(due, false, today, s.leadDays),
	}
}
