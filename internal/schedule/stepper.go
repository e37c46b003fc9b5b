// Package schedule projects recurring obligations forward in time.
//
// Each frequency has its own Stepper that knows how to jump to the k-th
// occurrence of a series in constant time and how to add a single period to
// an arbitrary due date. Month based frequencies clamp the day of month to the
// length of the target month (Jan 31 + 1 month = Feb 28/29).
package schedule

import (
	"fmt"

	"finflow/internal/core"
)

// Stepper is the per-frequency calendar arithmetic.
type Stepper interface {
	// Nth returns occurrence k of the series starting at start (k=0 is start).
	Nth(start core.Date, k int) core.Date
	// Elapsed returns how many whole periods separate start from ref, with
	// ref not before start. Nth(start, Elapsed(start, ref)) is never after ref.
	Elapsed(start, ref core.Date) int
	// Step adds exactly one period to current, clamping to anchorDay for
	// month based frequencies.
	Step(current core.Date, anchorDay int) core.Date
}

// DayStepper advances by a fixed number of days.
type DayStepper struct {
	Days int
}

func (s DayStepper) Nth(start core.Date, k int) core.Date {
	return start.AddDays(k * s.Days)
}

func (s DayStepper) Elapsed(start, ref core.Date) int {
	return start.DaysUntil(ref) / s.Days
}

func (s DayStepper) Step(current core.Date, _ int) core.Date {
	return current.AddDays(s.Days)
}

// MonthStepper advances by calendar months.
type MonthStepper struct {
	Months int
}

func (s MonthStepper) Nth(start core.Date, k int) core.Date {
	return start.AddMonthsClamped(k*s.Months, start.Day())
}

func (s MonthStepper) Elapsed(start, ref core.Date) int {
	return core.MonthsBetween(start, ref) / s.Months
}

func (s MonthStepper) Step(current core.Date, anchorDay int) core.Date {
	return current.AddMonthsClamped(s.Months, anchorDay)
}

// steppers maps frequencies to their calendar arithmetic.
var steppers = map[core.Frequency]Stepper{
	core.Daily:     DayStepper{Days: 1},
	core.Weekly:    DayStepper{Days: 7},
	core.Monthly:   MonthStepper{Months: 1},
	core.Quarterly: MonthStepper{Months: 3},
	core.Yearly:    MonthStepper{Months: 12},
}

// StepperFor returns the stepper for a frequency.
func StepperFor(freq core.Frequency) (Stepper, error) {
	s, ok := steppers[freq]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, freq)
	}
	return s, nil
}
