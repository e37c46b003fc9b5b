// Package sheets defines the spreadsheet mirror of the ledger. Every ledger
// entry becomes one row keyed by the entry id in the first column.
package sheets

import (
	"context"

	"finflow/internal/core"
)

// Header is the first row of the ledger sheet.
var Header = []any{"ID", "Date", "Title", "Type", "Category", "Amount", "Source"}

// Ports for outbound adapters.
type (
	// LedgerWriter appends an entry and returns a reference to its row.
	// Appending an entry that is already mirrored overwrites its row in
	// place, so redelivered and edited entries never duplicate rows.
	LedgerWriter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// LedgerDeleter removes the row of an entry. A missing row is not an error.
	LedgerDeleter interface {
		DeleteEntry(ctx context.Context, id string) error
	}

	Mirror interface {
		LedgerWriter
		LedgerDeleter
	}
)

// Row renders e as sheet cells. Amounts are plain decimals so the sheet
// parses them as numbers.
func Row(e core.Expense) []any {
	return []any{e.ID, e.Date.String(), e.Title, string(e.Type), e.Category, e.Amount.String(), string(e.Source)}
}
