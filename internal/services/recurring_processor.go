package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"finflow/internal/core"
	"finflow/internal/metrics"
	"finflow/internal/notify"
	"finflow/internal/obligation"
	"finflow/internal/status"
	"finflow/internal/storage"
)

const notifyConcurrency = 4

// ReminderReport summarises one processor run.
type ReminderReport struct {
	Fulfilled int
	Reminded  int
	Failed    int
}

// ReminderProcessor runs the periodic obligation sweep: optional automatic
// fulfilment of due recurring obligations, then reminders for everything
// due soon or overdue.
type ReminderProcessor struct {
	recurring   storage.RecurringStore
	bills       storage.BillStore
	ledger      LedgerRecorder
	notifier    notify.Notifier
	clock       core.Clock
	leadDays    int
	autoFulfill bool
	metrics     *metrics.Metrics
}

type ReminderOptions struct {
	LeadDays    int
	AutoFulfill bool
}

func NewReminderProcessor(recurring storage.RecurringStore, bills storage.BillStore, ledger LedgerRecorder, notifier notify.Notifier, clock core.Clock, opts ReminderOptions, m *metrics.Metrics) *ReminderProcessor {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &ReminderProcessor{
		recurring:   recurring,
		bills:       bills,
		ledger:      ledger,
		notifier:    notifier,
		clock:       clock,
		leadDays:    opts.LeadDays,
		autoFulfill: opts.AutoFulfill,
		metrics:     m,
	}
}

// Run performs one sweep relative to today. Notification failures do not
// stop the sweep; the first one is returned after every reminder was tried.
func (p *ReminderProcessor) Run(ctx context.Context) (ReminderReport, error) {
	today := p.clock.Today()
	var report ReminderReport

	if p.autoFulfill {
		n, err := p.fulfilDue(ctx, today)
		report.Fulfilled = n
		if err != nil {
			return report, err
		}
	}

	reminders, err := p.collect(ctx, today)
	if err != nil {
		return report, err
	}

	var reminded, failed int64
	var g errgroup.Group
	g.SetLimit(notifyConcurrency)
	for _, r := range reminders {
		g.Go(func() error {
			if err := p.notifier.Notify(ctx, r); err != nil {
				atomic.AddInt64(&failed, 1)
				slog.ErrorContext(ctx, "Failed to send reminder", "kind", r.Kind, "id", r.ID, "error", err)
				return err
			}
			atomic.AddInt64(&reminded, 1)
			p.metrics.ReminderSent(r.Kind, string(r.Status))
			return nil
		})
	}
	err = g.Wait()
	report.Reminded = int(reminded)
	report.Failed = int(failed)

	slog.InfoContext(ctx, "Reminder sweep complete",
		"date", today.String(),
		"fulfilled", report.Fulfilled,
		"reminded", report.Reminded,
		"failed", report.Failed)
	if err != nil {
		return report, fmt.Errorf("send reminders: %w", err)
	}
	return report, nil
}

// fulfilDue catches up every active obligation whose next due date is on or
// before today. Each period is persisted atomically with its ledger entry, so
// a failure part way leaves the obligation at the last stored period.
func (p *ReminderProcessor) fulfilDue(ctx context.Context, today core.Date) (int, error) {
	list, err := p.recurring.ListRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring obligations: %w", err)
	}

	count := 0
	var errs []error
	for _, o := range list {
		steps, err := obligation.CatchUp(o, today)
		if err != nil {
			errs = append(errs, fmt.Errorf("catch up %s: %w", o.ID, err))
			continue
		}
		for _, step := range steps {
			entry := step.Entry
			if err := p.recurring.FulfillRecurring(ctx, step.Obligation, &entry); err != nil {
				errs = append(errs, fmt.Errorf("fulfil %s: %w", o.ID, err))
				break
			}
			count++
			p.metrics.Fulfilment("auto")
			if p.ledger != nil {
				p.ledger.Recorded(ctx, entry)
			}
			slog.InfoContext(ctx, "Recurring obligation fulfilled automatically",
				"recurring_id", o.ID,
				"due_date", entry.Date.String(),
				"next_due", step.Obligation.NextDueDate.String(),
				"amount_cents", entry.Amount.Cents)
		}
	}
	return count, errors.Join(errs...)
}

// collect builds the reminders for unpaid bills and active obligations that
// are due soon or overdue.
func (p *ReminderProcessor) collect(ctx context.Context, today core.Date) ([]notify.Reminder, error) {
	var out []notify.Reminder

	bills, err := p.bills.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	for _, b := range bills {
		res := status.ClassifyBill(b, today)
		if !res.Status.NeedsAttention() {
			continue
		}
		out = append(out, notify.Reminder{
			Kind: notify.KindBill, ID: b.ID, Name: b.Name, Amount: b.Amount, Category: b.Category,
			DueDate: b.DueDate, Status: res.Status, DaysDelta: res.DaysDelta,
		})
	}

	recurring, err := p.recurring.ListRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring obligations: %w", err)
	}
	for _, o := range recurring {
		res := status.ClassifyRecurring(o, today, p.leadDays)
		if !res.Status.NeedsAttention() {
			continue
		}
		out = append(out, notify.Reminder{
			Kind: notify.KindRecurring, ID: o.ID, Name: o.Description, Amount: o.Amount, Category: o.Category,
			DueDate: o.NextDueDate, Status: res.Status, DaysDelta: res.DaysDelta,
		})
	}
	return out, nil
}
