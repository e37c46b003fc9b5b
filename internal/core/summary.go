package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

const recentEntries = 5

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthOverview is the dashboard summary for a specific year+month.
// Month 0 means the whole year; Year 0 means every entry.
type MonthOverview struct {
	Year        int              `json:"year"`
	Month       int              `json:"month"`
	Income      Money            `json:"totalIncome"`
	Expense     Money            `json:"totalExpense"`
	Balance     Money            `json:"balance"`
	SavingsRate decimal.Decimal  `json:"savingsRate"`
	ByCategory  []CategoryAmount `json:"byCategory"`
	Recent      []Expense        `json:"recent"`
}

// Summarize aggregates the entries that fall within the requested period.
// The savings rate is (income-expense)/income as a percentage with one
// decimal, or zero when there is no income.
func Summarize(entries []Expense, year, month int) MonthOverview {
	ov := MonthOverview{Year: year, Month: month, ByCategory: []CategoryAmount{}, Recent: []Expense{}}
	byCat := map[string]Money{}
	var inPeriod []Expense
	for _, e := range entries {
		if year != 0 && e.Date.Year() != year {
			continue
		}
		if month != 0 && e.Date.Month() != month {
			continue
		}
		inPeriod = append(inPeriod, e)
		switch e.Type {
		case EntryIncome:
			ov.Income = ov.Income.Add(e.Amount)
		default:
			ov.Expense = ov.Expense.Add(e.Amount)
			byCat[e.Category] = byCat[e.Category].Add(e.Amount)
		}
	}
	ov.Balance = ov.Income.Sub(ov.Expense)
	if !ov.Income.IsZero() {
		ov.SavingsRate = decimal.NewFromInt(ov.Balance.Cents).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(ov.Income.Cents)).
			Round(1)
	}

	for name, amt := range byCat {
		ov.ByCategory = append(ov.ByCategory, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		a, b := ov.ByCategory[i], ov.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})

	sort.SliceStable(inPeriod, func(i, j int) bool {
		a, b := inPeriod[i], inPeriod[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	if len(inPeriod) > recentEntries {
		inPeriod = inPeriod[:recentEntries]
	}
	ov.Recent = append(ov.Recent, inPeriod...)
	return ov
}
