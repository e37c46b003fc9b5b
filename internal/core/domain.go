package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

const (
	EntryExpense EntryType = "expense"
	EntryIncome  EntryType = "income"
)

const (
	SourceManual    EntrySource = "manual"
	SourceRecurring EntrySource = "recurring"
)

const (
	SplitEqual      SplitStrategy = "equal"
	SplitPercentage SplitStrategy = "percentage"
	SplitCustom     SplitStrategy = "custom"
)

const maxTextLen = 200

type (
	Frequency     string
	EntryType     string
	EntrySource   string
	SplitStrategy string

	Money struct {
		Cents int64
	}

	// Expense is one ledger entry. Income is recorded with Type=income.
	Expense struct {
		ID        string      `json:"_id"`
		Date      Date        `json:"date"`
		Title     string      `json:"title"`
		Amount    Money       `json:"amount"`
		Category  string      `json:"category"`
		Type      EntryType   `json:"type"`
		Source    EntrySource `json:"source"`
		SourceID  string      `json:"sourceId,omitempty"`
		CreatedAt time.Time   `json:"createdAt"`
	}

	// RecurringObligation is a template that becomes a ledger entry every
	// time it is fulfilled. NextDueDate only moves through fulfilment.
	RecurringObligation struct {
		ID            string    `json:"_id"`
		Description   string    `json:"description"`
		Amount        Money     `json:"amount"`
		Category      string    `json:"category"`
		Frequency     Frequency `json:"frequency"`
		StartDate     Date      `json:"startDate"`
		NextDueDate   Date      `json:"nextDueDate"`
		Active        bool      `json:"active"`
		LastFulfilled Date      `json:"lastFulfilled"`
	}

	// BillReminder is a one-off bill. Paid is absorbing for status purposes.
	BillReminder struct {
		ID               string `json:"_id"`
		Name             string `json:"name"`
		Amount           Money  `json:"amount"`
		Category         string `json:"category"`
		DueDate          Date   `json:"dueDate"`
		ReminderLeadDays int    `json:"reminderDays"`
		Paid             bool   `json:"paid"`
		PaidDate         Date   `json:"paidDate"`
	}

	// Participant is one member of a split. Percentage is only an input
	// for the percentage strategy; Share always holds the allocated amount.
	Participant struct {
		Name       string          `json:"name"`
		Share      Money           `json:"share"`
		Percentage decimal.Decimal `json:"percentage"`
		IsPayer    bool            `json:"isPayer"`
		Settled    bool            `json:"settled"`
	}

	SplitExpense struct {
		ID           string        `json:"_id"`
		Title        string        `json:"title"`
		TotalAmount  Money         `json:"totalAmount"`
		Category     string        `json:"category"`
		Strategy     SplitStrategy `json:"splitType"`
		Participants []Participant `json:"members"`
		CreatedAt    time.Time     `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDateOrdering       = errors.New("date ordering violation")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrInvalidStrategy    = errors.New("invalid split strategy")
	ErrInvalidEntryType   = errors.New("invalid entry type")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidLeadDays    = errors.New("reminder lead days cannot be negative")
	ErrNoParticipants     = errors.New("split needs at least one participant")
	ErrEmptyParticipant   = errors.New("participant name cannot be empty")
	ErrNotFound           = errors.New("not found")
)

// ParseFrequency validates a frequency name.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// ParseSplitStrategy validates a strategy name.
func ParseSplitStrategy(s string) (SplitStrategy, error) {
	st := SplitStrategy(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
	return st, nil
}

func (s SplitStrategy) Valid() bool {
	switch s {
	case SplitEqual, SplitPercentage, SplitCustom:
		return true
	}
	return false
}

func (t EntryType) Valid() bool {
	return t == EntryExpense || t == EntryIncome
}

func validateText(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDescription
	}
	if len(s) > maxTextLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateCategory(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := validateText(e.Title); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := validateCategory(e.Category); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntryType, e.Type)
	}
	return nil
}

func (o RecurringObligation) Validate() error {
	if err := o.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !o.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, o.Frequency)
	}
	if err := validateText(o.Description); err != nil {
		return err
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	return validateCategory(o.Category)
}

func (b BillReminder) Validate() error {
	if err := b.DueDate.Validate(); err != nil {
		return fmt.Errorf("invalid due date: %w", err)
	}
	if err := validateText(b.Name); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.ReminderLeadDays < 0 {
		return ErrInvalidLeadDays
	}
	return validateCategory(b.Category)
}

// Validate checks the record shape. Reconciliation of shares is checked by
// the split package, not here.
func (s SplitExpense) Validate() error {
	if err := validateText(s.Title); err != nil {
		return err
	}
	if err := s.TotalAmount.Validate(); err != nil {
		return err
	}
	if !s.Strategy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, s.Strategy)
	}
	if err := validateCategory(s.Category); err != nil {
		return err
	}
	if len(s.Participants) == 0 {
		return ErrNoParticipants
	}
	for _, p := range s.Participants {
		if strings.TrimSpace(p.Name) == "" {
			return ErrEmptyParticipant
		}
	}
	return nil
}

// Settled is derived: true iff every participant has settled.
func (s SplitExpense) Settled() bool {
	if len(s.Participants) == 0 {
		return false
	}
	for _, p := range s.Participants {
		if !p.Settled {
			return false
		}
	}
	return true
}

// PayerIndex returns the index of the flagged payer, or 0 when none is set.
func (s SplitExpense) PayerIndex() int {
	for i, p := range s.Participants {
		if p.IsPayer {
			return i
		}
	}
	return 0
}

// Clone returns a copy whose participant slice can be mutated freely.
func (s SplitExpense) Clone() SplitExpense {
	out := s
	out.Participants = append([]Participant(nil), s.Participants...)
	return out
}
