package http

import (
	"context"
	"net/http"
	"strings"

	"finflow/internal/core"
	"finflow/internal/services"
)

type splitRequest struct {
	Title        string             `json:"title"`
	TotalAmount  core.Money         `json:"totalAmount"`
	Category     string             `json:"category"`
	Strategy     string             `json:"splitType"`
	Participants []core.Participant `json:"members"`
}

func (req splitRequest) toSplit() (core.SplitExpense, error) {
	strategy, err := core.ParseSplitStrategy(req.Strategy)
	if err != nil {
		return core.SplitExpense{}, err
	}
	members := make([]core.Participant, len(req.Participants))
	for i, p := range req.Participants {
		p.Name = strings.TrimSpace(p.Name)
		members[i] = p
	}
	return core.SplitExpense{
		Title:        strings.TrimSpace(req.Title),
		TotalAmount:  req.TotalAmount,
		Category:     strings.TrimSpace(req.Category),
		Strategy:     strategy,
		Participants: members,
	}, nil
}

func (s *Server) decodeSplit(w http.ResponseWriter, r *http.Request) (core.SplitExpense, error) {
	var req splitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return core.SplitExpense{}, err
	}
	return req.toSplit()
}

func (s *Server) handleListSplits(w http.ResponseWriter, r *http.Request) {
	list, err := s.splits.List(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(list).Write(w)
}

func (s *Server) handleCreateSplit(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeSplit(w, r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	v, a, err := s.splits.Create(r.Context(), in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(v).Field("allocation", a).Write(w)
}

// handlePreviewSplit allocates without storing. A mismatch is a normal
// preview outcome and is reported inside the allocation.
func (s *Server) handlePreviewSplit(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeSplit(w, r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	a, err := s.splits.Preview(in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	b := NewJSONResponse().Data(a)
	if err := a.Err(); err != nil {
		b.Field("message", err.Error())
	}
	b.Write(w)
}

func (s *Server) handleUpdateSplit(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeSplit(w, r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	v, a, err := s.splits.Update(r.Context(), pathID(r), in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(v).Field("allocation", a).Write(w)
}

func (s *Server) handleDeleteSplit(w http.ResponseWriter, r *http.Request) {
	if err := s.splits.Delete(r.Context(), pathID(r)); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Field("message", "split deleted").Write(w)
}

func (s *Server) handlePayMember(w http.ResponseWriter, r *http.Request) {
	s.memberTransition(w, r, s.splits.PayMember)
}

func (s *Server) handleUnpayMember(w http.ResponseWriter, r *http.Request) {
	s.memberTransition(w, r, s.splits.UnpayMember)
}

func (s *Server) memberTransition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string, index int) (services.SplitView, error)) {
	index, err := pathIndex(r, "index")
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	v, err := apply(r.Context(), pathID(r), index)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(v).Write(w)
}

func (s *Server) handleSettleSplit(w http.ResponseWriter, r *http.Request) {
	v, err := s.splits.SettleAll(r.Context(), pathID(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(v).Write(w)
}

func (s *Server) handleUnsettleSplit(w http.ResponseWriter, r *http.Request) {
	v, err := s.splits.UnsettleAll(r.Context(), pathID(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(v).Write(w)
}

// handleOutstanding lists who still owes whom across every split.
func (s *Server) handleOutstanding(w http.ResponseWriter, r *http.Request) {
	debts, err := s.splits.Outstanding(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(debts).Write(w)
}
