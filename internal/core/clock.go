package core

import "time"

// Clock supplies the reference date for status and scheduling decisions.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock and truncates it to the local calendar date.
type SystemClock struct{}

func (SystemClock) Today() Date {
	return DateOf(time.Now())
}

// FixedClock always returns the same date.
type FixedClock struct {
	Date Date
}

func (c FixedClock) Today() Date {
	return c.Date
}
