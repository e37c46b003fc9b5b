package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Ledger event types. The routing key is always the queue name; the type
// travels in the body so one queue carries the whole ledger history.
const (
	EventExpenseCreated = "expense.created"
	EventExpenseUpdated = "expense.updated"
	EventExpenseDeleted = "expense.deleted"
)

// LedgerEvent announces a ledger change. It carries only the entry id; the
// consumer loads the entry from the database so the message never goes stale.
type LedgerEvent struct {
	Type      string    `json:"type"`
	ExpenseID string    `json:"expenseId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType, expenseID string) *LedgerEvent {
	return &LedgerEvent{
		Type:      eventType,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

func (e *LedgerEvent) Validate() error {
	switch e.Type {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
	default:
		return fmt.Errorf("unknown ledger event type %q", e.Type)
	}
	if e.ExpenseID == "" {
		return errors.New("ledger event without expense id")
	}
	return nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var evt LedgerEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}
	return &evt, nil
}
