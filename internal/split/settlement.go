package split

import (
	"fmt"
	"sort"

	"finflow/internal/core"
)

// State is the expense level settlement state. It is always derived from
// the participants and never stored.
type State string

const (
	Pending State = "pending"
	Settled State = "settled"
)

// StateOf returns Settled iff every participant has settled.
func StateOf(s core.SplitExpense) State {
	if s.Settled() {
		return Settled
	}
	return Pending
}

// SettleParticipant marks participant i as paid. Shares are never touched.
func SettleParticipant(s core.SplitExpense, i int) (core.SplitExpense, error) {
	return setParticipant(s, i, true)
}

// UnsettleParticipant reverts participant i to unpaid.
func UnsettleParticipant(s core.SplitExpense, i int) (core.SplitExpense, error) {
	return setParticipant(s, i, false)
}

func setParticipant(s core.SplitExpense, i int, settled bool) (core.SplitExpense, error) {
	if i < 0 || i >= len(s.Participants) {
		return s, fmt.Errorf("%w: index %d of %d", ErrParticipantNotFound, i, len(s.Participants))
	}
	out := s.Clone()
	out.Participants[i].Settled = settled
	return out, nil
}

// SettleAll force-sets every participant to paid.
func SettleAll(s core.SplitExpense) core.SplitExpense {
	return setAll(s, true)
}

// UnsettleAll resets every participant to unpaid, whatever their prior state.
func UnsettleAll(s core.SplitExpense) core.SplitExpense {
	return setAll(s, false)
}

func setAll(s core.SplitExpense, settled bool) core.SplitExpense {
	out := s.Clone()
	for i := range out.Participants {
		out.Participants[i].Settled = settled
	}
	return out
}

// Debt is an amount one participant still owes to the payer.
type Debt struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Amount core.Money `json:"amount"`
}

// Outstanding aggregates the unsettled shares of non-payers across splits,
// one entry per (debtor, payer) pair, largest first. Ties are ordered by
// debtor, then payer, so the result is deterministic.
func Outstanding(splits []core.SplitExpense) []Debt {
	type pair struct{ from, to string }
	owed := map[pair]core.Money{}
	for _, s := range splits {
		if len(s.Participants) == 0 {
			continue
		}
		payer := s.Participants[s.PayerIndex()].Name
		for _, p := range s.Participants {
			if p.Settled || p.Name == payer || p.Share.IsZero() {
				continue
			}
			k := pair{from: p.Name, to: payer}
			owed[k] = owed[k].Add(p.Share)
		}
	}
	debts := make([]Debt, 0, len(owed))
	for k, amt := range owed {
		debts = append(debts, Debt{From: k.from, To: k.to, Amount: amt})
	}
	sort.Slice(debts, func(i, j int) bool {
		if debts[i].Amount.Cents != debts[j].Amount.Cents {
			return debts[i].Amount.Cents > debts[j].Amount.Cents
		}
		if debts[i].From != debts[j].From {
			return debts[i].From < debts[j].From
		}
		return debts[i].To < debts[j].To
	})
	return debts
}
