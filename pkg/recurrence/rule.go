package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// RuleType names a cadence on the wire and in storage.
type RuleType string

const (
	RuleNone    RuleType = "none"
	RuleDaily   RuleType = "daily"
	RuleWeekly  RuleType = "weekly"
	RuleMonthly RuleType = "monthly"
)

// Rule describes how an event repeats. The concrete types are None, Daily,
// Weekly, Monthly and Unknown; no other package can add variants.
type Rule interface {
	Type() RuleType
	isRule()
}

// Cadence holds what every repeating rule has in common.
type Cadence struct {
	Interval int
	Until    mo.Option[Date]
}

// Step is the interval clamped to at least 1.
func (c Cadence) Step() int {
	if c.Interval < 1 {
		return 1
	}
	return c.Interval
}

// None is a one-off event.
type None struct{}

type Daily struct {
	Cadence
}

// Weekly repeats every Interval weeks on the listed weekdays. An empty list
// means the anchor date's own weekday.
type Weekly struct {
	Cadence
	Weekdays []time.Weekday
}

type Monthly struct {
	Cadence
}

// Unknown keeps a stored rule whose type this build does not recognise.
type Unknown struct {
	Cadence
	Name string
}

func (None) Type() RuleType    { return RuleNone }
func (Daily) Type() RuleType   { return RuleDaily }
func (Weekly) Type() RuleType  { return RuleWeekly }
func (Monthly) Type() RuleType { return RuleMonthly }
func (u Unknown) Type() RuleType {
	return RuleType(u.Name)
}

func (None) isRule()    {}
func (Daily) isRule()   {}
func (Weekly) isRule()  {}
func (Monthly) isRule() {}
func (Unknown) isRule() {}

// Mask returns the weekday set for an anchor. Out of range entries are
// ignored; when nothing valid is left the anchor's weekday is used.
func (w Weekly) Mask(anchor Date) [7]bool {
	var mask [7]bool
	selected := false
	for _, wd := range w.Weekdays {
		if wd >= time.Sunday && wd <= time.Saturday {
			mask[wd] = true
			selected = true
		}
	}
	if !selected {
		mask[anchor.Weekday()] = true
	}
	return mask
}

// IsRecurring reports whether r can produce more than one occurrence.
func IsRecurring(r Rule) bool {
	if r == nil {
		return false
	}
	_, none := r.(None)
	return !none
}

// cadenceOf returns the shared cadence of a repeating rule.
func cadenceOf(r Rule) (Cadence, bool) {
	switch v := r.(type) {
	case Daily:
		return v.Cadence, true
	case Weekly:
		return v.Cadence, true
	case Monthly:
		return v.Cadence, true
	case Unknown:
		return v.Cadence, true
	default:
		return Cadence{}, false
	}
}
