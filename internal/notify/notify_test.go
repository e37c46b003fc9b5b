package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/jordan-wright/email"

	"finflow/internal/core"
	"finflow/internal/status"
)

func TestReminder_Messages(t *testing.T) {
	tests := []struct {
		name        string
		reminder    Reminder
		wantSubject string
		wantBody    []string
	}{
		{
			name: "overdue bill",
			reminder: Reminder{Kind: KindBill, ID: "b1", Name: "Electricity", Amount: core.Cents(8450),
				Category: "Bills & Utilities", DueDate: core.NewDate(2024, 3, 10), Status: status.Overdue, DaysDelta: -5},
			wantSubject: "Overdue: Electricity",
			wantBody:    []string{`bill "Electricity" of 84.50 was due on 2024-03-10`, "5 day(s) overdue", "Category: Bills & Utilities"},
		},
		{
			name: "recurring due tomorrow",
			reminder: Reminder{Kind: KindRecurring, ID: "r1", Name: "Rent", Amount: core.Cents(90000),
				DueDate: core.NewDate(2024, 3, 16), Status: status.DueSoon, DaysDelta: 1},
			wantSubject: "Reminder: Rent due tomorrow",
			wantBody:    []string{`recurring payment "Rent" of 900.00 is due on 2024-03-16 (tomorrow)`},
		},
		{
			name: "due today",
			reminder: Reminder{Kind: KindBill, Name: "Water", Amount: core.Cents(1200),
				DueDate: core.NewDate(2024, 3, 15), Status: status.DueSoon, DaysDelta: 0},
			wantSubject: "Reminder: Water due today",
		},
		{
			name: "due in days",
			reminder: Reminder{Kind: KindBill, Name: "Phone", Amount: core.Cents(1999),
				DueDate: core.NewDate(2024, 3, 18), Status: status.DueSoon, DaysDelta: 3},
			wantSubject: "Reminder: Phone due in 3 days",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reminder.Subject(); got != tt.wantSubject {
				t.Errorf("Subject() = %q, want %q", got, tt.wantSubject)
			}
			body := tt.reminder.Body()
			for _, want := range tt.wantBody {
				if !strings.Contains(body, want) {
					t.Errorf("Body() missing %q:\n%s", want, body)
				}
			}
		})
	}
}

func TestEmailNotifier_Notify(t *testing.T) {
	var (
		sent *email.Email
		addr string
		auth smtp.Auth
	)
	n := NewEmailNotifier(SMTPConfig{
		Host: "smtp.example.com", Port: "587", Username: "user", Password: "secret",
		From: "finflow@example.com", To: []string{"me@example.com"},
	})
	n.send = func(e *email.Email, a string, au smtp.Auth) error {
		sent, addr, auth = e, a, au
		return nil
	}

	r := Reminder{Kind: KindBill, ID: "b1", Name: "Internet", Amount: core.Cents(2999),
		DueDate: core.NewDate(2024, 3, 15), Status: status.DueSoon, DaysDelta: 2}
	if err := n.Notify(context.Background(), r); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if addr != "smtp.example.com:587" {
		t.Errorf("addr = %q", addr)
	}
	if auth == nil {
		t.Error("expected PLAIN auth when a username is configured")
	}
	if sent.From != "finflow@example.com" || len(sent.To) != 1 || sent.To[0] != "me@example.com" {
		t.Errorf("envelope = %s -> %v", sent.From, sent.To)
	}
	if sent.Subject != "Reminder: Internet due in 2 days" {
		t.Errorf("subject = %q", sent.Subject)
	}
}

func TestEmailNotifier_SendFailure(t *testing.T) {
	n := NewEmailNotifier(SMTPConfig{Host: "smtp.example.com", Port: "25", From: "a@example.com", To: []string{"b@example.com"}})
	n.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }

	err := n.Notify(context.Background(), Reminder{Kind: KindRecurring, ID: "r9", Name: "Gym", Status: status.Overdue, DaysDelta: -1})
	if err == nil || !strings.Contains(err.Error(), "recurring r9") {
		t.Errorf("Notify() error = %v", err)
	}
}
