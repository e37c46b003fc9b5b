package http

import (
	"net/http"
	"strings"

	"finflow/internal/core"
)

type recurringRequest struct {
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Frequency   string     `json:"frequency"`
	StartDate   core.Date  `json:"startDate"`
}

type billRequest struct {
	Name             string     `json:"name"`
	Amount           core.Money `json:"amount"`
	Category         string     `json:"category"`
	DueDate          core.Date  `json:"dueDate"`
	ReminderLeadDays int        `json:"reminderDays"`
	Paid             bool       `json:"paid"`
}

// snoozeRequest moves a bill either to an explicit date or by a number of days.
type snoozeRequest struct {
	Until *core.Date `json:"until"`
	Days  *int       `json:"days"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	list, err := s.obligations.ListRecurring(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(list).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	freq, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	o, err := s.obligations.CreateRecurring(r.Context(), core.RecurringObligation{
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Frequency:   freq,
		StartDate:   req.StartDate,
	})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(o).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.obligations.DeleteRecurring(r.Context(), pathID(r)); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Field("message", "recurring obligation deleted").Write(w)
}

func (s *Server) handleToggleRecurring(w http.ResponseWriter, r *http.Request) {
	o, err := s.obligations.ToggleRecurring(r.Context(), pathID(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(o).Write(w)
}

// handleFulfillRecurring returns the advanced obligation and the ledger
// entry written for the fulfilled period.
func (s *Server) handleFulfillRecurring(w http.ResponseWriter, r *http.Request) {
	o, entry, err := s.obligations.FulfillRecurring(r.Context(), pathID(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(o).Field("expense", entry).Write(w)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	list, err := s.obligations.ListBills(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(list).Write(w)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	b, err := s.obligations.CreateBill(r.Context(), core.BillReminder{
		Name:             strings.TrimSpace(req.Name),
		Amount:           req.Amount,
		Category:         strings.TrimSpace(req.Category),
		DueDate:          req.DueDate,
		ReminderLeadDays: req.ReminderLeadDays,
		Paid:             req.Paid,
	})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(b).Write(w)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.obligations.DeleteBill(r.Context(), pathID(r)); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Field("message", "bill deleted").Write(w)
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.obligations.PayBill(r.Context(), pathID(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(b).Write(w)
}

func (s *Server) handleUnpayBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.obligations.UnpayBill(r.Context(), pathID(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(b).Write(w)
}

func (s *Server) handleSnoozeBill(w http.ResponseWriter, r *http.Request) {
	var req snoozeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}

	var err error
	var b any
	switch {
	case req.Until != nil && req.Days != nil:
		err = badRequest("provide either until or days, not both")
	case req.Until != nil:
		b, err = s.obligations.SnoozeBill(r.Context(), pathID(r), *req.Until)
	case req.Days != nil:
		b, err = s.obligations.SnoozeBillBy(r.Context(), pathID(r), *req.Days)
	default:
		err = badRequest("snooze needs until or days")
	}
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(b).Write(w)
}
