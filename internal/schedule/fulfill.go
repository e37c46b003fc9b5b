package schedule

import (
	"errors"
	"fmt"

	"finflow/internal/core"
)

var ErrInactiveObligation = errors.New("obligation is inactive")

// Fulfill marks one period of o as paid on ref. It returns the obligation
// with NextDueDate advanced by one period and the ledger entry for the
// payment. The two results belong together: callers must persist both in a
// single write or neither.
func Fulfill(o core.RecurringObligation, ref core.Date) (core.RecurringObligation, core.Expense, error) {
	if !o.Active {
		return o, core.Expense{}, fmt.Errorf("fulfill %s: %w", o.ID, ErrInactiveObligation)
	}
	if err := ref.Validate(); err != nil {
		return o, core.Expense{}, err
	}
	rule := RuleOf(o)
	current := o.NextDueDate
	if current.IsEmpty() {
		current = o.StartDate
	}
	next, err := rule.Advance(current)
	if err != nil {
		return o, core.Expense{}, err
	}

	entry := core.Expense{
		Date:     ref,
		Title:    o.Description,
		Amount:   o.Amount,
		Category: o.Category,
		Type:     core.EntryExpense,
		Source:   core.SourceRecurring,
		SourceID: o.ID,
	}
	o.NextDueDate = next
	o.LastFulfilled = ref
	return o, entry, nil
}

// InitialDueDate is the earliest occurrence on or after ref: the start date
// itself when it has not passed yet.
func InitialDueDate(start core.Date, freq core.Frequency, ref core.Date) (core.Date, error) {
	return NextOccurrence(start, freq, ref.AddDays(-1))
}
