// Package obligation holds the state transitions of bills and recurring
// obligations. Every function takes a record by value and returns the
// updated copy.
package obligation

import (
	"fmt"

	"finflow/internal/core"
	"finflow/internal/schedule"
)

// MarkPaid sets a bill paid on ref. Paying an already paid bill is a no-op
// and keeps the original paid date.
func MarkPaid(b core.BillReminder, ref core.Date) core.BillReminder {
	if b.Paid {
		return b
	}
	b.Paid = true
	b.PaidDate = ref
	return b
}

// MarkUnpaid is the explicit reset of a paid bill.
func MarkUnpaid(b core.BillReminder) core.BillReminder {
	b.Paid = false
	b.PaidDate = core.Date{}
	return b
}

// Snooze moves the due date to newDue. Moving it backwards is rejected.
// The paid flag is never changed.
func Snooze(b core.BillReminder, newDue core.Date) (core.BillReminder, error) {
	if err := newDue.Validate(); err != nil {
		return b, err
	}
	if newDue.Before(b.DueDate) {
		return b, fmt.Errorf("%w: snooze to %s is before due date %s", core.ErrDateOrdering, newDue, b.DueDate)
	}
	b.DueDate = newDue
	return b, nil
}

// SnoozeBy pushes the due date forward by days.
func SnoozeBy(b core.BillReminder, days int) (core.BillReminder, error) {
	if days < 0 {
		return b, fmt.Errorf("%w: cannot snooze by %d days", core.ErrDateOrdering, days)
	}
	return Snooze(b, b.DueDate.AddDays(days))
}

// NewRecurring validates o and computes its first due date relative to ref.
// New obligations start active.
func NewRecurring(o core.RecurringObligation, ref core.Date) (core.RecurringObligation, error) {
	if err := o.Validate(); err != nil {
		return o, err
	}
	o.Active = true
	o.LastFulfilled = core.Date{}
	return Project(o, ref)
}

// Project recomputes NextDueDate as the earliest occurrence on or after ref.
// Inactive obligations are returned unchanged.
func Project(o core.RecurringObligation, ref core.Date) (core.RecurringObligation, error) {
	if !o.Active {
		return o, nil
	}
	next, err := schedule.InitialDueDate(o.StartDate, o.Frequency, ref)
	if err != nil {
		return o, err
	}
	o.NextDueDate = next
	return o, nil
}

// Toggle flips the active flag. Deactivating freezes NextDueDate; it only
// moves again through fulfilment.
func Toggle(o core.RecurringObligation) core.RecurringObligation {
	o.Active = !o.Active
	return o
}

// Fulfill is schedule.Fulfill exposed next to the other transitions.
func Fulfill(o core.RecurringObligation, ref core.Date) (core.RecurringObligation, core.Expense, error) {
	return schedule.Fulfill(o, ref)
}

// CatchUp fulfils o once per period that came due on or before ref, oldest
// first, and returns every intermediate state paired with its ledger entry.
// Each pair must be persisted atomically, in order.
func CatchUp(o core.RecurringObligation, ref core.Date) ([]Fulfilment, error) {
	var out []Fulfilment
	for o.Active && !o.NextDueDate.IsEmpty() && !o.NextDueDate.After(ref) {
		due := o.NextDueDate
		next, entry, err := schedule.Fulfill(o, due)
		if err != nil {
			return out, err
		}
		out = append(out, Fulfilment{Obligation: next, Entry: entry})
		o = next
	}
	return out, nil
}

// Fulfilment is one applied period of a recurring obligation.
type Fulfilment struct {
	Obligation core.RecurringObligation
	Entry      core.Expense
}
