package http

import (
	"net/http"
	"strings"

	"finflow/internal/core"
	"finflow/internal/storage"
)

type expenseRequest struct {
	Title    string     `json:"title"`
	Amount   core.Money `json:"amount"`
	Category string     `json:"category"`
	Type     string     `json:"type"`
	Date     core.Date  `json:"date"`
}

func (req expenseRequest) expense() core.Expense {
	return core.Expense{
		Title:    strings.TrimSpace(req.Title),
		Amount:   req.Amount,
		Category: strings.TrimSpace(req.Category),
		Type:     core.EntryType(strings.ToLower(strings.TrimSpace(req.Type))),
		Date:     req.Date,
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	e, err := s.expenses.CreateExpense(r.Context(), req.expense())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(e).Write(w)
}

// handleUpdateExpense replaces an entry's fields. Omitted type and date keep
// their stored values.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	e, err := s.expenses.UpdateExpense(r.Context(), pathID(r), req.expense())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(e).Write(w)
}

// handleListExpenses supports ?year=&month=&type=&limit= filters.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	month, err := queryInt(r, "month", 0)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if limit < 0 {
		BadRequestError("limit cannot be negative").Write(w)
		return
	}
	entryType := core.EntryType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))

	list, err := s.expenses.ListExpenses(r.Context(), storage.ExpenseFilter{
		Year: year, Month: month, Type: entryType, Limit: limit,
	})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(list).Field("count", len(list)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteExpense(r.Context(), pathID(r)); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Field("message", "expense deleted").Write(w)
}

// handleSummary serves the dashboard totals; without year and month it
// covers the whole ledger.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	month, err := queryInt(r, "month", 0)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	ov, err := s.expenses.Summary(r.Context(), year, month)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(ov).Write(w)
}
