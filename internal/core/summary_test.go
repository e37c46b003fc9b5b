package core

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []Expense{
		{Date: NewDate(2024, 3, 1), Title: "Salary", Amount: Cents(300000), Category: "Income", Type: EntryIncome, CreatedAt: base},
		{Date: NewDate(2024, 3, 2), Title: "Rent", Amount: Cents(120000), Category: "Bills & Utilities", Type: EntryExpense, CreatedAt: base},
		{Date: NewDate(2024, 3, 3), Title: "Groceries", Amount: Cents(15050), Category: "Food & Dining", Type: EntryExpense, CreatedAt: base},
		{Date: NewDate(2024, 3, 4), Title: "Pizza", Amount: Cents(2500), Category: "Food & Dining", Type: EntryExpense, CreatedAt: base},
		{Date: NewDate(2024, 3, 5), Title: "Bus", Amount: Cents(250), Category: "Transportation", Type: EntryExpense, CreatedAt: base},
		{Date: NewDate(2024, 3, 5), Title: "Cinema", Amount: Cents(1200), Category: "Entertainment", Type: EntryExpense, CreatedAt: base.Add(time.Hour)},
		{Date: NewDate(2024, 2, 28), Title: "Old", Amount: Cents(99900), Category: "Shopping", Type: EntryExpense, CreatedAt: base},
	}

	ov := Summarize(entries, 2024, 3)
	if ov.Income.Cents != 300000 {
		t.Fatalf("income: got %d", ov.Income.Cents)
	}
	if ov.Expense.Cents != 139000 {
		t.Fatalf("expense: got %d", ov.Expense.Cents)
	}
	if ov.Balance.Cents != 161000 {
		t.Fatalf("balance: got %d", ov.Balance.Cents)
	}
	if ov.SavingsRate.String() != "53.7" {
		t.Fatalf("savings rate: got %s", ov.SavingsRate)
	}
	if len(ov.ByCategory) != 4 || ov.ByCategory[0].Name != "Bills & Utilities" || ov.ByCategory[1].Amount.Cents != 17550 {
		t.Fatalf("unexpected categories %+v", ov.ByCategory)
	}
	if len(ov.Recent) != 5 || ov.Recent[0].Title != "Cinema" || ov.Recent[4].Title != "Rent" {
		t.Fatalf("unexpected recent entries %+v", ov.Recent)
	}
}

func TestSummarizeWithoutIncome(t *testing.T) {
	ov := Summarize([]Expense{{Date: NewDate(2024, 1, 1), Amount: Cents(100), Category: "Others", Type: EntryExpense}}, 0, 0)
	if !ov.SavingsRate.IsZero() || ov.Balance.Cents != -100 {
		t.Fatalf("unexpected overview %+v", ov)
	}
}
