package core

import (
	"bytes"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date. The embedded time is always midnight UTC so that
// day arithmetic is exact and free of DST effects.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day. Out of range values are
// normalised the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// MustParseDate is ParseDate for literals in tests.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonthsClamped moves n calendar months forward using anchorDay as the
// preferred day of month, clamped to the length of the target month.
// Jan 31 + 1 month with anchor 31 is Feb 28 (or 29 in leap years).
func (d Date) AddMonthsClamped(n, anchorDay int) Date {
	total := d.Year()*12 + (d.Month() - 1) + n
	year, month := total/12, total%12+1
	day := anchorDay
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

const secondsPerDay = 24 * 60 * 60

// DaysUntil returns the signed number of days from d to other. It works on
// Unix day numbers because time.Duration overflows after about 292 years.
func (d Date) DaysUntil(other Date) int {
	return int((other.Unix() - d.Unix()) / secondsPerDay)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// IsLastDayOfMonth reports whether d is the final day of its month.
func (d Date) IsLastDayOfMonth() bool {
	return d.Day() == DaysInMonth(d.Year(), d.Month())
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthsBetween returns the whole calendar-month distance from a to b,
// ignoring days.
func MonthsBetween(a, b Date) int {
	return (b.Year()-a.Year())*12 + (b.Month() - a.Month())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(bytes.Trim(data, `"`)))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
