package services

import (
	"context"
	"fmt"
	"log/slog"

	"finflow/internal/core"
	"finflow/internal/metrics"
	"finflow/internal/split"
	"finflow/internal/storage"
)

// SplitView is a split together with its derived settlement state.
type SplitView struct {
	core.SplitExpense
	Settled bool        `json:"settled"`
	State   split.State `json:"state"`
}

func viewOf(s core.SplitExpense) SplitView {
	return SplitView{SplitExpense: s, Settled: s.Settled(), State: split.StateOf(s)}
}

// SplitService persists split expenses. A split whose shares do not
// reconcile with its total is never stored.
type SplitService struct {
	store   storage.SplitStore
	metrics *metrics.Metrics
}

func NewSplitService(store storage.SplitStore, m *metrics.Metrics) *SplitService {
	return &SplitService{store: store, metrics: m}
}

// Preview allocates s without storing it. Mismatches are reported in the
// returned allocation, not as an error.
func (s *SplitService) Preview(in core.SplitExpense) (split.Allocation, error) {
	if err := in.Validate(); err != nil {
		return split.Allocation{}, err
	}
	_, a, err := split.Reallocate(in)
	return a, err
}

// Create allocates the shares of in and stores it. An allocation that does
// not reconcile fails with a *split.MismatchError.
func (s *SplitService) Create(ctx context.Context, in core.SplitExpense) (SplitView, split.Allocation, error) {
	in.ID = ""
	if err := in.Validate(); err != nil {
		return SplitView{}, split.Allocation{}, err
	}
	out, a, err := split.Reallocate(in)
	if err != nil {
		return SplitView{}, split.Allocation{}, err
	}
	if err := s.checkReconciled(ctx, a); err != nil {
		return SplitView{}, a, err
	}
	if err := s.store.CreateSplit(ctx, &out); err != nil {
		return SplitView{}, a, fmt.Errorf("save split: %w", err)
	}
	slog.InfoContext(ctx, "Split created",
		"split_id", out.ID,
		"strategy", out.Strategy,
		"participants", len(out.Participants),
		"amount_cents", out.TotalAmount.Cents)
	return viewOf(out), a, nil
}

// Update replaces the editable fields of a split. Shares are recomputed when
// the strategy, total or participant count changes and for strategies whose
// shares are derived; otherwise the submitted shares are only validated, so
// editing one custom share never rebalances the others.
func (s *SplitService) Update(ctx context.Context, id string, in core.SplitExpense) (SplitView, split.Allocation, error) {
	current, err := s.store.GetSplit(ctx, id)
	if err != nil {
		return SplitView{}, split.Allocation{}, err
	}
	in.ID = current.ID
	in.CreatedAt = current.CreatedAt
	if err := in.Validate(); err != nil {
		return SplitView{}, split.Allocation{}, err
	}

	structural := in.Strategy != current.Strategy ||
		in.TotalAmount != current.TotalAmount ||
		len(in.Participants) != len(current.Participants)

	var (
		out = in
		a   split.Allocation
	)
	if structural || in.Strategy != core.SplitCustom {
		if out, a, err = split.Reallocate(in); err != nil {
			return SplitView{}, split.Allocation{}, err
		}
	} else {
		a = split.Revalidate(in)
	}
	if err := s.checkReconciled(ctx, a); err != nil {
		return SplitView{}, a, err
	}
	if err := s.store.UpdateSplit(ctx, out); err != nil {
		return SplitView{}, a, fmt.Errorf("update split: %w", err)
	}
	return viewOf(out), a, nil
}

func (s *SplitService) checkReconciled(ctx context.Context, a split.Allocation) error {
	if err := a.Err(); err != nil {
		s.metrics.AllocationMismatch(string(a.Strategy))
		slog.WarnContext(ctx, "Split allocation does not reconcile",
			"strategy", a.Strategy,
			"discrepancy_cents", a.Discrepancy.Cents,
			"error", err)
		return err
	}
	return nil
}

func (s *SplitService) Get(ctx context.Context, id string) (SplitView, error) {
	sp, err := s.store.GetSplit(ctx, id)
	if err != nil {
		return SplitView{}, err
	}
	return viewOf(sp), nil
}

func (s *SplitService) List(ctx context.Context) ([]SplitView, error) {
	list, err := s.store.ListSplits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}
	out := make([]SplitView, len(list))
	for i, sp := range list {
		out[i] = viewOf(sp)
	}
	return out, nil
}

func (s *SplitService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteSplit(ctx, id)
}

func (s *SplitService) PayMember(ctx context.Context, id string, index int) (SplitView, error) {
	return s.transition(ctx, id, func(sp core.SplitExpense) (core.SplitExpense, error) {
		return split.SettleParticipant(sp, index)
	})
}

func (s *SplitService) UnpayMember(ctx context.Context, id string, index int) (SplitView, error) {
	return s.transition(ctx, id, func(sp core.SplitExpense) (core.SplitExpense, error) {
		return split.UnsettleParticipant(sp, index)
	})
}

func (s *SplitService) SettleAll(ctx context.Context, id string) (SplitView, error) {
	return s.transition(ctx, id, func(sp core.SplitExpense) (core.SplitExpense, error) {
		return split.SettleAll(sp), nil
	})
}

func (s *SplitService) UnsettleAll(ctx context.Context, id string) (SplitView, error) {
	return s.transition(ctx, id, func(sp core.SplitExpense) (core.SplitExpense, error) {
		return split.UnsettleAll(sp), nil
	})
}

func (s *SplitService) transition(ctx context.Context, id string, apply func(core.SplitExpense) (core.SplitExpense, error)) (SplitView, error) {
	sp, err := s.store.GetSplit(ctx, id)
	if err != nil {
		return SplitView{}, err
	}
	if sp, err = apply(sp); err != nil {
		return SplitView{}, err
	}
	if err := s.store.UpdateSplit(ctx, sp); err != nil {
		return SplitView{}, fmt.Errorf("update split: %w", err)
	}
	return viewOf(sp), nil
}

// Outstanding aggregates what every participant still owes across all splits.
func (s *SplitService) Outstanding(ctx context.Context) ([]split.Debt, error) {
	list, err := s.store.ListSplits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}
	return split.Outstanding(list), nil
}
