package schedule

import (
	"finflow/internal/core"
)

// maxOccurrences bounds Occurrences for wide windows on daily rules.
const maxOccurrences = 1000

// NextOccurrence returns the earliest occurrence of the series (start, freq)
// strictly after ref. A start date after ref is returned unchanged.
func NextOccurrence(start core.Date, freq core.Frequency, ref core.Date) (core.Date, error) {
	s, err := StepperFor(freq)
	if err != nil {
		return core.Date{}, err
	}
	if err := start.Validate(); err != nil {
		return core.Date{}, err
	}
	if start.After(ref) {
		return start, nil
	}
	k := s.Elapsed(start, ref)
	next := s.Nth(start, k)
	for !next.After(ref) {
		k++
		next = s.Nth(start, k)
	}
	return next, nil
}

// AdvanceOnce adds one period to current. The result is derived from current
// alone, so a due date that was moved by hand keeps its new day. A clamped
// month end stays clamped: Jan 31 steps to Feb 29 and then to Mar 29. Use
// Rule.Advance when the series must return to its start's day of month.
func AdvanceOnce(current core.Date, freq core.Frequency) (core.Date, error) {
	s, err := StepperFor(freq)
	if err != nil {
		return core.Date{}, err
	}
	return s.Step(current, current.Day()), nil
}

// Rule is a recurrence series anchored at Start.
type Rule struct {
	Start     core.Date
	Frequency core.Frequency
}

// RuleOf returns the recurrence rule of an obligation.
func RuleOf(o core.RecurringObligation) Rule {
	return Rule{Start: o.StartDate, Frequency: o.Frequency}
}

// Next is NextOccurrence for the rule.
func (r Rule) Next(ref core.Date) (core.Date, error) {
	return NextOccurrence(r.Start, r.Frequency, ref)
}

// Advance adds one period to current. When current sits on a month end that
// was clamped below the start's day of month, the start's day is restored,
// so Jan 31 steps to Feb 29 and then to Mar 31. Any other day is kept.
func (r Rule) Advance(current core.Date) (core.Date, error) {
	s, err := StepperFor(r.Frequency)
	if err != nil {
		return core.Date{}, err
	}
	anchor := current.Day()
	if current.IsLastDayOfMonth() && r.Start.Day() > anchor {
		anchor = r.Start.Day()
	}
	return s.Step(current, anchor), nil
}

// Occurrences lists the due dates of the rule that fall within [from, to].
func Occurrences(r Rule, from, to core.Date) ([]core.Date, error) {
	if to.Before(from) {
		return nil, core.ErrDateOrdering
	}
	next, err := r.Next(from.AddDays(-1))
	if err != nil {
		return nil, err
	}
	var out []core.Date
	for !next.After(to) && len(out) < maxOccurrences {
		out = append(out, next)
		if next, err = r.Advance(next); err != nil {
			return nil, err
		}
	}
	return out, nil
}
