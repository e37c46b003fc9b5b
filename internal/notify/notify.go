// Package notify delivers reminders for bills and recurring obligations
// that are due soon or overdue.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"finflow/internal/core"
	"finflow/internal/status"
)

// Reminder kinds.
const (
	KindBill      = "bill"
	KindRecurring = "recurring"
)

// Reminder describes one obligation that needs attention.
type Reminder struct {
	Kind      string
	ID        string
	Name      string
	Amount    core.Money
	Category  string
	DueDate   core.Date
	Status    status.Status
	DaysDelta int
}

// Notifier delivers a reminder.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// Subject returns the message subject, distinguishing overdue from upcoming.
func (r Reminder) Subject() string {
	if r.Status == status.Overdue {
		return fmt.Sprintf("Overdue: %s", r.Name)
	}
	return fmt.Sprintf("Reminder: %s due %s", r.Name, dueIn(r.DaysDelta))
}

// Body returns the plain text message.
func (r Reminder) Body() string {
	var b strings.Builder
	what := "bill"
	if r.Kind == KindRecurring {
		what = "recurring payment"
	}
	if r.Status == status.Overdue {
		fmt.Fprintf(&b, "Your %s %q of %s was due on %s and is %d day(s) overdue.\n",
			what, r.Name, r.Amount, r.DueDate, -r.DaysDelta)
		b.WriteString("Please settle it as soon as possible.\n")
	} else {
		fmt.Fprintf(&b, "Your %s %q of %s is due on %s (%s).\n",
			what, r.Name, r.Amount, r.DueDate, dueIn(r.DaysDelta))
	}
	if r.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", r.Category)
	}
	b.WriteString("\nFinFlow")
	return b.String()
}

func dueIn(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// LogNotifier writes reminders to the log. It is the fallback when no SMTP
// server is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, r Reminder) error {
	slog.InfoContext(ctx, "Reminder",
		"kind", r.Kind,
		"id", r.ID,
		"name", r.Name,
		"status", r.Status,
		"due_date", r.DueDate.String(),
		"days_delta", r.DaysDelta,
		"amount_cents", r.Amount.Cents)
	return nil
}
