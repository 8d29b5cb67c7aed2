package recurrence

import (
	"strings"

	"github.com/samber/mo"
)

const (
	DefaultLookBackDays  = 1
	DefaultLookAheadDays = 14
)

// Range is a window of calendar days, inclusive on both ends.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewRange builds a range without validating the order of its bounds.
func NewRange(start, end Date) Range {
	return Range{Start: start, End: end}
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Valid reports whether the bounds are set and ordered.
func (r Range) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// Days returns the number of calendar days covered by the range.
func (r Range) Days() int {
	if !r.Valid() {
		return 0
	}
	return DaysBetween(r.Start, r.End) + 1
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Normalizer resolves optional, user supplied query bounds into a Range.
type Normalizer struct {
	clock     Clock
	lookBack  int
	lookAhead int
}

// NewNormalizer builds a normalizer. A negative look-back or a non-positive
// look-ahead falls back to the defaults.
func NewNormalizer(clock Clock, lookBackDays, lookAheadDays int) *Normalizer {
	if clock == nil {
		clock = SystemClock{}
	}
	if lookBackDays < 0 {
		lookBackDays = DefaultLookBackDays
	}
	if lookAheadDays <= 0 {
		lookAheadDays = DefaultLookAheadDays
	}
	return &Normalizer{clock: clock, lookBack: lookBackDays, lookAhead: lookAheadDays}
}

// Normalize never fails. A bound that is absent or unparseable takes its
// default; an inverted result collapses to [today, today+lookAhead].
func (n *Normalizer) Normalize(from, to mo.Option[string]) Range {
	today := Today(n.clock)
	defaultEnd := today.AddDays(n.lookAhead)

	start := parseBound(from).OrElse(today.AddDays(-n.lookBack))
	end := parseBound(to).OrElse(defaultEnd)

	if end.Before(start) {
		return Range{Start: today, End: defaultEnd}
	}
	return Range{Start: start, End: end}
}

// Default is Normalize with both bounds absent.
func (n *Normalizer) Default() Range {
	return n.Normalize(mo.None[string](), mo.None[string]())
}

// Day returns the single-day range offset days from today.
func (n *Normalizer) Day(offset int) Range {
	day := Today(n.clock).AddDays(offset)
	return Range{Start: day, End: day}
}

func parseBound(raw mo.Option[string]) mo.Option[Date] {
	value, ok := raw.Get()
	if !ok {
		return mo.None[Date]()
	}
	d, err := ParseDate(strings.TrimSpace(value))
	if err != nil {
		return mo.None[Date]()
	}
	return mo.Some(d)
}
