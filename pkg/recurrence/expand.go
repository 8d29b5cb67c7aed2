package recurrence

import (
	"fmt"
	"iter"
)

// DefaultMaxOccurrences bounds the candidate dates examined per event per call.
const DefaultMaxOccurrences = 500

// UnknownRulePolicy decides what happens to rules with an unrecognised type.
type UnknownRulePolicy string

const (
	// UnknownRulesReject makes Expand fail with ErrUnknownRuleType.
	UnknownRulesReject UnknownRulePolicy = "reject"
	// UnknownRulesAsDaily expands unknown rules as a daily cadence.
	UnknownRulesAsDaily UnknownRulePolicy = "daily"
)

// Config tunes the engine.
type Config struct {
	MaxOccurrences int
	LookBackDays   int
	LookAheadDays  int
	UnknownRules   UnknownRulePolicy
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxOccurrences: DefaultMaxOccurrences,
		LookBackDays:   DefaultLookBackDays,
		LookAheadDays:  DefaultLookAheadDays,
		UnknownRules:   UnknownRulesReject,
	}
}

// Expander turns one event into its occurrences inside a range. It holds no
// mutable state and is safe for concurrent use.
type Expander struct {
	maxOccurrences int
	unknown        UnknownRulePolicy
}

func NewExpander(maxOccurrences int, unknown UnknownRulePolicy) *Expander {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	if unknown != UnknownRulesAsDaily {
		unknown = UnknownRulesReject
	}
	return &Expander{maxOccurrences: maxOccurrences, unknown: unknown}
}

// MaxOccurrences reports the configured cap.
func (e *Expander) MaxOccurrences() int {
	return e.maxOccurrences
}

// Expand returns the occurrences of ev inside r in ascending date order.
func (e *Expander) Expand(ev Event, r Range) ([]Occurrence, error) {
	occurrences, _, err := e.expand(ev, r)
	return occurrences, err
}

func (e *Expander) expand(ev Event, r Range) ([]Occurrence, bool, error) {
	if ev.Date.IsZero() || !r.Valid() {
		return nil, false, nil
	}

	cadence, repeating := cadenceOf(ev.Rule)
	if !repeating {
		if r.Contains(ev.Date) {
			return []Occurrence{occurrenceOn(ev, ev.Date)}, false, nil
		}
		return nil, false, nil
	}

	window := r
	if until, ok := cadence.Until.Get(); ok {
		if until.Before(r.Start) {
			return nil, false, nil
		}
		window.End = MinDate(r.End, until)
	}

	step := cadence.Step()
	switch rule := ev.Rule.(type) {
	case Daily:
		return e.collect(ev, window, dailySteps(ev.Date, step, window.Start, window.End), nil)
	case Weekly:
		mask := rule.Mask(ev.Date)
		first := MaxDate(ev.Date, window.Start)
		return e.collect(ev, window, calendarDays(first, window.End), func(day Date) bool {
			weeks := DaysBetween(ev.Date, day) / 7
			return !day.Before(ev.Date) && weeks%step == 0 && mask[day.Weekday()]
		})
	case Monthly:
		return e.collect(ev, window, monthlySteps(ev.Date, step, window.Start, window.End), nil)
	case Unknown:
		if e.unknown == UnknownRulesAsDaily {
			return e.collect(ev, window, dailySteps(ev.Date, step, window.Start, window.End), nil)
		}
		return nil, false, fmt.Errorf("event %s: %w: %q", ev.ID, ErrUnknownRuleType, rule.Name)
	default:
		return nil, false, fmt.Errorf("event %s: %w: %T", ev.ID, ErrUnknownRuleType, ev.Rule)
	}
}

func (e *Expander) collect(ev Event, window Range, candidates iter.Seq[Date], keep func(Date) bool) ([]Occurrence, bool, error) {
	days, truncated := take(candidates, e.maxOccurrences)
	occurrences := make([]Occurrence, 0, len(days))
	for _, day := range days {
		if !window.Contains(day) {
			continue
		}
		if keep != nil && !keep(day) {
			continue
		}
		occurrences = append(occurrences, occurrenceOn(ev, day))
	}
	return occurrences, truncated, nil
}
