package recurrence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// ErrUnknownRuleType is returned for rule types outside none/daily/weekly/monthly.
var ErrUnknownRuleType = errors.New("unknown repeat rule type")

// RuleSpec is the JSON shape of a rule, as stored in events.repeat_rule and
// accepted by the API.
type RuleSpec struct {
	Type      string `json:"type"`
	Interval  int    `json:"interval,omitempty"`
	ByWeekday []int  `json:"by_weekday,omitempty"`
	Until     string `json:"until,omitempty"`
}

// ParseStoredRule decodes persisted rule text. It never fails: empty or
// malformed text is a one-off event and an unreadable until is dropped.
func ParseStoredRule(raw string) Rule {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return None{}
	}
	var spec RuleSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return None{}
	}
	return ruleFromSpec(spec, true)
}

// RuleFromSpec is the strict decoder used for client input.
func RuleFromSpec(spec RuleSpec) (Rule, error) {
	switch RuleType(strings.ToLower(strings.TrimSpace(spec.Type))) {
	case RuleNone, RuleDaily, RuleWeekly, RuleMonthly:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleType, spec.Type)
	}
	if spec.Until != "" {
		if _, err := ParseDate(spec.Until); err != nil {
			return nil, fmt.Errorf("invalid until: %w", err)
		}
	}
	for _, wd := range spec.ByWeekday {
		if wd < 0 || wd > 6 {
			return nil, fmt.Errorf("invalid weekday %d", wd)
		}
	}
	return ruleFromSpec(spec, false), nil
}

func ruleFromSpec(spec RuleSpec, lenient bool) Rule {
	cadence := Cadence{Interval: spec.Interval, Until: mo.None[Date]()}
	if spec.Until != "" {
		if until, err := ParseDate(strings.TrimSpace(spec.Until)); err == nil {
			cadence.Until = mo.Some(until)
		}
	}

	name := strings.ToLower(strings.TrimSpace(spec.Type))
	switch RuleType(name) {
	case "", RuleNone:
		return None{}
	case RuleDaily:
		return Daily{Cadence: cadence}
	case RuleWeekly:
		weekdays := make([]time.Weekday, 0, len(spec.ByWeekday))
		for _, wd := range spec.ByWeekday {
			if lenient && (wd < 0 || wd > 6) {
				continue
			}
			weekdays = append(weekdays, time.Weekday(wd))
		}
		return Weekly{Cadence: cadence, Weekdays: weekdays}
	case RuleMonthly:
		return Monthly{Cadence: cadence}
	default:
		return Unknown{Cadence: cadence, Name: spec.Type}
	}
}

// SpecFromRule is the inverse of RuleFromSpec. One-off events have no spec.
func SpecFromRule(r Rule) *RuleSpec {
	cadence, ok := cadenceOf(r)
	if !ok {
		return nil
	}
	spec := &RuleSpec{Type: string(r.Type()), Interval: cadence.Step()}
	if until, present := cadence.Until.Get(); present {
		spec.Until = until.String()
	}
	if weekly, isWeekly := r.(Weekly); isWeekly {
		for _, wd := range weekly.Weekdays {
			spec.ByWeekday = append(spec.ByWeekday, int(wd))
		}
	}
	return spec
}

// EncodeRule renders a rule for storage; one-off events store NULL.
func EncodeRule(r Rule) (*string, error) {
	spec := SpecFromRule(r)
	if spec == nil {
		return nil, nil
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode repeat rule: %w", err)
	}
	encoded := string(raw)
	return &encoded, nil
}
