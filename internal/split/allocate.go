// Package split allocates a shared total across participants and tracks
// who has settled their share.
//
// Allocation never fails for totals that do not reconcile: the result is
// reported as invalid together with the discrepancy so the caller can refuse
// to persist the record. Errors are reserved for malformed requests.
package split

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"finflow/internal/core"
)

var (
	ErrAllocationMismatch  = errors.New("allocation does not reconcile with total")
	ErrInvalidRequest      = errors.New("invalid allocation request")
	ErrParticipantNotFound = errors.New("participant not found")
)

var (
	hundred = decimal.NewFromInt(100)
	// PercentEpsilon is the tolerance on the percentage sum.
	PercentEpsilon = decimal.RequireFromString("0.01")
)

// Request describes an allocation. Percentages is read for the percentage
// strategy and Amounts for the custom strategy; both must have Count entries
// when used. PayerIndex receives rounding remainders.
type Request struct {
	Total       core.Money
	Count       int
	Strategy    core.SplitStrategy
	Percentages []decimal.Decimal
	Amounts     []core.Money
	PayerIndex  int
}

// Allocation is the outcome of an allocation. Discrepancy is total minus the
// sum of shares: positive means under-allocated. PercentGap is 100 minus the
// sum of percentages and is only set for the percentage strategy.
type Allocation struct {
	Strategy    core.SplitStrategy `json:"strategy"`
	Total       core.Money         `json:"total"`
	Shares      []core.Money       `json:"shares"`
	Valid       bool               `json:"valid"`
	Discrepancy core.Money         `json:"discrepancy"`
	PercentGap  decimal.Decimal    `json:"percentGap"`
}

// MismatchError is the user facing form of an invalid allocation.
type MismatchError struct {
	Strategy    core.SplitStrategy
	Total       core.Money
	Discrepancy core.Money
	PercentGap  decimal.Decimal
}

func (e *MismatchError) Error() string {
	if e.Strategy == core.SplitPercentage {
		sum := hundred.Sub(e.PercentGap)
		return fmt.Sprintf("percentages sum to %s%%, need 100%%", sum.String())
	}
	sum := e.Total.Sub(e.Discrepancy)
	if e.Discrepancy.IsNegative() {
		return fmt.Sprintf("shares sum to %s, need %s (%s over-allocated)", sum, e.Total, e.Discrepancy.Abs())
	}
	return fmt.Sprintf("shares sum to %s, need %s (%s unallocated)", sum, e.Total, e.Discrepancy)
}

func (e *MismatchError) Unwrap() error { return ErrAllocationMismatch }

// Err returns nil for a valid allocation and a *MismatchError otherwise.
func (a Allocation) Err() error {
	if a.Valid {
		return nil
	}
	return &MismatchError{
		Strategy:    a.Strategy,
		Total:       a.Total,
		Discrepancy: a.Discrepancy,
		PercentGap:  a.PercentGap,
	}
}

// Allocate computes the participant shares for a request.
func Allocate(req Request) (Allocation, error) {
	if req.Count < 1 {
		return Allocation{}, fmt.Errorf("%w: need at least one participant", ErrInvalidRequest)
	}
	if req.Total.IsNegative() {
		return Allocation{}, fmt.Errorf("%w: negative total", core.ErrInvalidAmount)
	}
	payer := req.PayerIndex
	if payer < 0 || payer >= req.Count {
		payer = 0
	}

	switch req.Strategy {
	case core.SplitEqual:
		return allocateEqual(req.Total, req.Count, payer), nil
	case core.SplitPercentage:
		if len(req.Percentages) != req.Count {
			return Allocation{}, fmt.Errorf("%w: %d percentages for %d participants", ErrInvalidRequest, len(req.Percentages), req.Count)
		}
		return allocatePercentage(req.Total, req.Percentages, payer)
	case core.SplitCustom:
		if len(req.Amounts) != req.Count {
			return Allocation{}, fmt.Errorf("%w: %d amounts for %d participants", ErrInvalidRequest, len(req.Amounts), req.Count)
		}
		return allocateCustom(req.Total, req.Amounts)
	default:
		return Allocation{}, fmt.Errorf("%w: %q", core.ErrInvalidStrategy, req.Strategy)
	}
}

func allocateEqual(total core.Money, n, payer int) Allocation {
	base := total.Cents / int64(n)
	rem := total.Cents % int64(n)
	shares := make([]core.Money, n)
	for i := range shares {
		shares[i] = core.Cents(base)
	}
	shares[payer] = shares[payer].Add(core.Cents(rem))
	return Allocation{Strategy: core.SplitEqual, Total: total, Shares: shares, Valid: true}
}

func allocatePercentage(total core.Money, pcts []decimal.Decimal, payer int) (Allocation, error) {
	shares := make([]core.Money, len(pcts))
	sumPct := decimal.Zero
	for i, p := range pcts {
		if p.IsNegative() || p.GreaterThan(hundred) {
			return Allocation{}, fmt.Errorf("%w: percentage %s out of range", ErrInvalidRequest, p)
		}
		sumPct = sumPct.Add(p)
		shares[i] = total.Percent(p)
	}
	a := Allocation{
		Strategy:   core.SplitPercentage,
		Total:      total,
		Shares:     shares,
		PercentGap: hundred.Sub(sumPct),
	}
	a.Valid = a.PercentGap.Abs().LessThanOrEqual(PercentEpsilon)
	residual := total.Sub(core.Sum(shares...))
	if a.Valid && !residual.IsZero() {
		shares[payer] = shares[payer].Add(residual)
		residual = core.Money{}
	}
	a.Discrepancy = residual
	return a, nil
}

func allocateCustom(total core.Money, amounts []core.Money) (Allocation, error) {
	shares := make([]core.Money, len(amounts))
	for i, m := range amounts {
		if m.IsNegative() {
			return Allocation{}, fmt.Errorf("%w: negative share %s", core.ErrInvalidAmount, m)
		}
		shares[i] = m
	}
	sum := core.Sum(shares...)
	return Allocation{
		Strategy:    core.SplitCustom,
		Total:       total,
		Shares:      shares,
		Valid:       sum.ApproxEquals(total, core.DefaultEpsilon),
		Discrepancy: total.Sub(sum),
	}, nil
}

// RequestFor builds the allocation request implied by a split record:
// percentages and custom amounts are read from the participants.
func RequestFor(s core.SplitExpense) Request {
	req := Request{
		Total:      s.TotalAmount,
		Count:      len(s.Participants),
		Strategy:   s.Strategy,
		PayerIndex: s.PayerIndex(),
	}
	switch s.Strategy {
	case core.SplitPercentage:
		req.Percentages = make([]decimal.Decimal, len(s.Participants))
		for i, p := range s.Participants {
			req.Percentages[i] = p.Percentage
		}
	case core.SplitCustom:
		req.Amounts = make([]core.Money, len(s.Participants))
		for i, p := range s.Participants {
			req.Amounts[i] = p.Share
		}
	}
	return req
}

// Reallocate recomputes every share of s from its strategy, total and
// participant inputs. Settlement flags are left untouched.
func Reallocate(s core.SplitExpense) (core.SplitExpense, Allocation, error) {
	a, err := Allocate(RequestFor(s))
	if err != nil {
		return s, Allocation{}, err
	}
	out := s.Clone()
	for i := range out.Participants {
		out.Participants[i].Share = a.Shares[i]
		if s.Strategy != core.SplitPercentage {
			out.Participants[i].Percentage = decimal.Zero
		}
	}
	return out, a, nil
}

// Revalidate checks the stored shares of s against its total without
// changing any of them. Editing one share never rebalances the others.
func Revalidate(s core.SplitExpense) Allocation {
	shares := make([]core.Money, len(s.Participants))
	sumPct := decimal.Zero
	for i, p := range s.Participants {
		shares[i] = p.Share
		sumPct = sumPct.Add(p.Percentage)
	}
	sum := core.Sum(shares...)
	a := Allocation{
		Strategy:    s.Strategy,
		Total:       s.TotalAmount,
		Shares:      shares,
		Discrepancy: s.TotalAmount.Sub(sum),
		Valid:       len(shares) > 0 && sum.ApproxEquals(s.TotalAmount, core.DefaultEpsilon),
	}
	if s.Strategy == core.SplitPercentage {
		a.PercentGap = hundred.Sub(sumPct)
		a.Valid = a.Valid && a.PercentGap.Abs().LessThanOrEqual(PercentEpsilon)
	}
	return a
}
