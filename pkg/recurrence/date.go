// Package recurrence expands stored family events into dated occurrences.
package recurrence

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format accepted on every input path.
const DateLayout = "2006-01-02"

// Date is a naive calendar date. It carries no time of day and no zone.
type Date struct {
	t time.Time
}

// NewDate builds a date, normalising overflowing components the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for literals; it panics on malformed input.
func MustDate(raw string) Date {
	d, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Year() int { return d.t.Year() }

func (d Date) Month() time.Month { return d.t.Month() }

func (d Date) Day() int { return d.t.Day() }

// Weekday follows time.Weekday, so Sunday is 0.
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// Time returns midnight of the date in loc (UTC when loc is nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// AddMonths steps n calendar months. A day that does not exist in the target
// month is clamped to that month's last day, so Jan 31 + 1 month is Feb 28/29.
func (d Date) AddMonths(n int) Date {
	total := int(d.Month()) - 1 + n
	year := d.Year() + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	day := d.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.t.Before(o.t):
		return -1
	case d.t.After(o.t):
		return 1
	default:
		return 0
	}
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the signed number of days from a to b. It counts from
// the Unix seconds of both midnights, since time.Duration saturates after
// roughly 292 years.
func DaysBetween(a, b Date) int {
	return int((b.t.Unix() - a.t.Unix()) / secondsPerDay)
}

// MonthsBetween returns the number of whole calendar months from a to b,
// rounded down. Only meaningful when a is not after b.
func MonthsBetween(a, b Date) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
