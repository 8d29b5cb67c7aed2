package recurrence

import (
	"errors"
	"slices"
	"strings"

	"github.com/samber/mo"
)

// Rejection records an event the engine refused to expand.
type Rejection struct {
	EventID string
	Err     error
}

// ExpandResult is the outcome of a batch expansion.
type ExpandResult struct {
	Range       Range
	Occurrences []Occurrence
	// Truncated lists events that hit the occurrence cap.
	Truncated []string
	Rejected  []Rejection
}

// Engine combines range normalisation and expansion for a batch of events.
type Engine struct {
	normalizer *Normalizer
	expander   *Expander
}

// NewEngine builds an engine; zero config fields take their defaults.
func NewEngine(cfg Config, clock Clock) *Engine {
	return &Engine{
		normalizer: NewNormalizer(clock, cfg.LookBackDays, cfg.LookAheadDays),
		expander:   NewExpander(cfg.MaxOccurrences, cfg.UnknownRules),
	}
}

func (e *Engine) Normalizer() *Normalizer { return e.normalizer }

func (e *Engine) Expander() *Expander { return e.expander }

// NormalizeRange resolves raw query bounds; see Normalizer.Normalize.
func (e *Engine) NormalizeRange(from, to mo.Option[string]) Range {
	return e.normalizer.Normalize(from, to)
}

// ExpandAll normalises the bounds once and expands every event over the
// result, concatenating occurrences in input order.
func (e *Engine) ExpandAll(events []Event, from, to mo.Option[string]) ExpandResult {
	return e.ExpandRange(events, e.NormalizeRange(from, to))
}

// ExpandRange expands every event over an already normalised range.
func (e *Engine) ExpandRange(events []Event, r Range) ExpandResult {
	result := ExpandResult{Range: r, Occurrences: []Occurrence{}}
	for _, ev := range events {
		occurrences, truncated, err := e.expander.expand(ev, r)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{EventID: ev.ID, Err: err})
			continue
		}
		if truncated {
			result.Truncated = append(result.Truncated, ev.ID)
		}
		result.Occurrences = append(result.Occurrences, occurrences...)
	}
	return result
}

// Err joins the rejection errors, or returns nil when nothing was rejected.
func (r ExpandResult) Err() error {
	if len(r.Rejected) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Rejected))
	for _, rej := range r.Rejected {
		errs = append(errs, rej.Err)
	}
	return errors.Join(errs...)
}

// SortOccurrences orders occurrences by "date time" as plain strings, so an
// untimed occurrence sorts before any timed one on the same day. The sort is
// stable.
func SortOccurrences(occurrences []Occurrence) {
	slices.SortStableFunc(occurrences, func(a, b Occurrence) int {
		return strings.Compare(a.sortKey(), b.sortKey())
	})
}
