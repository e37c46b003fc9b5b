// Package status derives the display status of bills and recurring
// obligations relative to a reference date.
package status

import "finflow/internal/core"

// Status is the temporal state of an obligation.
type Status string

const (
	Paid     Status = "paid"
	Overdue  Status = "overdue"
	DueSoon  Status = "dueSoon"
	Upcoming Status = "upcoming"
	Inactive Status = "inactive"
)

// Result is a classification. DaysDelta is the signed number of days from
// the reference date to the due date; negative values are days overdue.
type Result struct {
	Status    Status `json:"status"`
	DaysDelta int    `json:"daysDelta"`
}

// Classify maps a due date to a status. Paid wins over every date check.
func Classify(due core.Date, paid bool, ref core.Date, leadDays int) Result {
	delta := ref.DaysUntil(due)
	switch {
	case paid:
		return Result{Status: Paid, DaysDelta: delta}
	case delta < 0:
		return Result{Status: Overdue, DaysDelta: delta}
	case delta <= leadDays:
		return Result{Status: DueSoon, DaysDelta: delta}
	default:
		return Result{Status: Upcoming, DaysDelta: delta}
	}
}

// ClassifyBill classifies a bill using its own lead days.
func ClassifyBill(b core.BillReminder, ref core.Date) Result {
	return Classify(b.DueDate, b.Paid, ref, b.ReminderLeadDays)
}

// ClassifyRecurring classifies the next due date of an obligation.
// Inactive obligations report Inactive but keep the computed delta.
func ClassifyRecurring(o core.RecurringObligation, ref core.Date, leadDays int) Result {
	r := Classify(o.NextDueDate, false, ref, leadDays)
	if !o.Active {
		r.Status = Inactive
	}
	return r
}

// NeedsAttention reports whether a status should trigger a reminder.
func (s Status) NeedsAttention() bool {
	return s == Overdue || s == DueSoon
}
