package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dates(occurrences []Occurrence) []string {
	out := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occ.Date.String())
	}
	return out
}

func rangeOf(start, end string) Range {
	return NewRange(MustDate(start), MustDate(end))
}

func expandOrFail(t *testing.T, e *Expander, ev Event, r Range) []Occurrence {
	t.Helper()
	occurrences, err := e.Expand(ev, r)
	require.NoError(t, err)
	return occurrences
}

func TestExpandOneOffEvent(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{ID: "e1", Title: "Dentist", Date: MustDate("2024-01-05"), Time: "09:00", Rule: None{}}

	occurrences := expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-01-10"))
	require.Len(t, occurrences, 1)
	assert.Equal(t, "2024-01-05", occurrences[0].Date.String())
	assert.Equal(t, "09:00", occurrences[0].Time)

	assert.Empty(t, expandOrFail(t, e, ev, rangeOf("2024-01-06", "2024-01-10")))

	ev.Rule = nil
	assert.Len(t, expandOrFail(t, e, ev, rangeOf("2024-01-05", "2024-01-05")), 1)
}

func TestExpandDailyAlignsToAnchor(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{ID: "e1", Date: MustDate("2024-01-01"), Rule: Daily{Cadence{Interval: 2}}}

	got := expandOrFail(t, e, ev, rangeOf("2024-01-05", "2024-01-10"))
	assert.Equal(t, []string{"2024-01-05", "2024-01-07", "2024-01-09"}, dates(got))

	got = expandOrFail(t, e, ev, rangeOf("2024-01-06", "2024-01-10"))
	assert.Equal(t, []string{"2024-01-07", "2024-01-09"}, dates(got))
}

func TestExpandDailyBeforeAnchorStartsAtAnchor(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{Date: MustDate("2024-01-08"), Rule: Daily{Cadence{Interval: 3}}}

	got := expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-01-15"))
	assert.Equal(t, []string{"2024-01-08", "2024-01-11", "2024-01-14"}, dates(got))
}

func TestExpandDailyClampsInterval(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{Date: MustDate("2024-01-01"), Rule: Daily{Cadence{Interval: -4}}}

	got := expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-01-03"))
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates(got))
}

func TestExpandWeeklyWithWeekdayMask(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{
		Date: MustDate("2024-01-01"), // Monday
		Rule: Weekly{Cadence: Cadence{Interval: 1}, Weekdays: []time.Weekday{time.Monday, time.Wednesday}},
	}

	got := expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-01-10"))
	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10"}, dates(got))
}

func TestExpandWeeklyEveryOtherWeekDefaultMask(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{Date: MustDate("2024-01-01"), Rule: Weekly{Cadence: Cadence{Interval: 2}}}

	got := expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-01-31"))
	assert.Equal(t, []string{"2024-01-01", "2024-01-15", "2024-01-29"}, dates(got))
}

func TestExpandWeeklyCountsWeeksFromAnchor(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{
		Date: MustDate("2024-01-03"), // Wednesday
		Rule: Weekly{Cadence: Cadence{Interval: 2}, Weekdays: []time.Weekday{time.Monday, time.Wednesday}},
	}

	// Mon 8th is five days after the anchor, still inside the first cadence week.
	got := expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-01-22"))
	assert.Equal(t, []string{"2024-01-03", "2024-01-08", "2024-01-17", "2024-01-22"}, dates(got))
}

func TestExpandCenturiesOldAnchor(t *testing.T) {
	e := NewExpander(0, "")

	daily := Event{Date: MustDate("1700-01-01"), Rule: Daily{Cadence{Interval: 1}}}
	got, truncated, err := e.expand(daily, rangeOf("2024-01-01", "2024-01-10"))
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, got, 10)
	assert.Equal(t, "2024-01-01", got[0].Date.String())

	every3 := Event{Date: MustDate("1700-01-01"), Rule: Daily{Cadence{Interval: 3}}}
	assert.Equal(t, []string{"2024-01-01", "2024-01-04", "2024-01-07", "2024-01-10"},
		dates(expandOrFail(t, e, every3, rangeOf("2024-01-01", "2024-01-10"))))

	fortnightly := Event{
		Date: MustDate("1700-01-04"), // Monday
		Rule: Weekly{Cadence: Cadence{Interval: 2}, Weekdays: []time.Weekday{time.Monday}},
	}
	assert.Equal(t, []string{"2024-01-08", "2024-01-22"},
		dates(expandOrFail(t, e, fortnightly, rangeOf("2024-01-01", "2024-01-31"))))
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{Date: MustDate("2024-01-31"), Rule: Monthly{Cadence{Interval: 1}}}

	got := expandOrFail(t, e, ev, rangeOf("2024-02-01", "2024-03-31"))
	assert.Equal(t, []string{"2024-02-29", "2024-03-31"}, dates(got))

	got = expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-06-30"))
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31", "2024-06-30"}, dates(got))
}

func TestExpandMonthlyIntervalFastForward(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{Date: MustDate("2023-11-30"), Rule: Monthly{Cadence{Interval: 3}}}

	got := expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-12-31"))
	assert.Equal(t, []string{"2024-02-29", "2024-05-30", "2024-08-30", "2024-11-30"}, dates(got))
}

func TestExpandRespectsUntil(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{Date: MustDate("2024-01-01"), Rule: Daily{Cadence{Interval: 1, Until: mo.Some(MustDate("2024-01-03"))}}}

	got := expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-01-10"))
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates(got))

	ev.Rule = Weekly{Cadence: Cadence{Interval: 1, Until: mo.Some(MustDate("2023-12-31"))}}
	assert.Empty(t, expandOrFail(t, e, ev, rangeOf("2024-01-01", "2024-01-31")))
}

func TestExpandCapsCandidates(t *testing.T) {
	e := NewExpander(10, "")
	ev := Event{ID: "daily", Date: MustDate("2024-01-01"), Rule: Daily{Cadence{Interval: 1}}}

	occurrences, truncated, err := e.expand(ev, rangeOf("2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, occurrences, 10)
	assert.Equal(t, "2024-01-10", occurrences[9].Date.String())

	// weekly walks day by day, so the cap counts days rather than matches
	weekly := Event{ID: "weekly", Date: MustDate("2024-01-01"), Rule: Weekly{Cadence: Cadence{Interval: 1}}}
	e = NewExpander(7, "")
	occurrences, truncated, err = e.expand(weekly, rangeOf("2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, []string{"2024-01-01"}, dates(occurrences))

	occurrences, truncated, err = NewExpander(0, "").expand(ev, rangeOf("2024-01-01", "2024-01-31"))
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, occurrences, 31)
}

func TestExpandUnknownRule(t *testing.T) {
	ev := Event{ID: "e9", Date: MustDate("2024-01-01"), Rule: Unknown{Cadence: Cadence{Interval: 2}, Name: "yearly"}}

	_, err := NewExpander(0, UnknownRulesReject).Expand(ev, rangeOf("2024-01-01", "2024-01-05"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRuleType))

	got, err := NewExpander(0, UnknownRulesAsDaily).Expand(ev, rangeOf("2024-01-01", "2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "2024-01-05"}, dates(got))
}

func TestExpandCopiesEventFields(t *testing.T) {
	e := NewExpander(0, "")
	ev := Event{
		ID: "e1", FamilyID: "f1", CreatedBy: "u1", MemberID: "u2",
		Title: "Swim", Description: "Bring towel", Location: "Pool",
		Date: MustDate("2024-01-01"), Time: "17:30", AllDay: false,
		Rule: Daily{Cadence{Interval: 7}},
	}

	got := expandOrFail(t, e, ev, rangeOf("2024-01-08", "2024-01-08"))
	require.Len(t, got, 1)
	occ := got[0]
	assert.Equal(t, "2024-01-08", occ.Date.String())
	assert.Equal(t, "2024-01-01", occ.SeriesStart.String())
	assert.Equal(t, "Swim", occ.Title)
	assert.Equal(t, "17:30", occ.Time)
	assert.Equal(t, "Pool", occ.Location)
	assert.Equal(t, "u2", occ.MemberID)
	assert.Equal(t, ev.Rule, occ.Rule)
}

func TestExpandInvariants(t *testing.T) {
	e := NewExpander(0, "")
	rules := []Rule{
		None{},
		Daily{Cadence{Interval: 1}},
		Daily{Cadence{Interval: 5}},
		Weekly{Cadence: Cadence{Interval: 3}, Weekdays: []time.Weekday{time.Sunday, time.Thursday}},
		Weekly{Cadence: Cadence{Interval: 1}},
		Monthly{Cadence{Interval: 2}},
		Monthly{Cadence{Interval: 1, Until: mo.Some(MustDate("2024-04-15"))}},
	}
	anchors := []string{"1700-01-04", "2023-12-31", "2024-01-31", "2024-02-29", "2024-03-15"}
	ranges := []Range{
		rangeOf("2024-01-01", "2024-01-01"),
		rangeOf("2024-02-10", "2024-05-20"),
		rangeOf("2023-06-01", "2024-12-31"),
	}

	for _, rule := range rules {
		for _, anchor := range anchors {
			for _, r := range ranges {
				ev := Event{Date: MustDate(anchor), Rule: rule}
				first := expandOrFail(t, e, ev, r)
				second := expandOrFail(t, e, ev, r)
				assert.Equal(t, first, second, "expansion must be deterministic")
				assert.LessOrEqual(t, len(first), DefaultMaxOccurrences)

				for i, occ := range first {
					assert.True(t, r.Contains(occ.Date), "%s outside %s", occ.Date, r)
					assert.False(t, occ.Date.Before(ev.Date), "%s before anchor %s", occ.Date, ev.Date)
					if i > 0 {
						assert.True(t, first[i-1].Date.Before(occ.Date))
					}
					switch v := rule.(type) {
					case None:
						assert.Equal(t, ev.Date, occ.Date)
					case Daily:
						assert.Zero(t, DaysBetween(ev.Date, occ.Date)%v.Step())
					case Weekly:
						assert.True(t, v.Mask(ev.Date)[occ.Date.Weekday()])
						assert.Zero(t, (DaysBetween(ev.Date, occ.Date)/7)%v.Step())
					case Monthly:
						if until, ok := v.Until.Get(); ok {
							assert.False(t, occ.Date.After(until))
						}
					}
				}
			}
		}
	}
}
