package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(cfg Config) *Engine {
	clock := &MockClock{FixedNow: time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)}
	return NewEngine(cfg, clock)
}

func TestExpandAllKeepsInputOrder(t *testing.T) {
	engine := newTestEngine(DefaultConfig())
	events := []Event{
		{ID: "late", Title: "Late", Date: MustDate("2024-01-05"), Rule: None{}},
		{ID: "daily", Title: "Walk", Date: MustDate("2024-01-01"), Rule: Daily{Cadence{Interval: 1}}},
	}

	result := engine.ExpandAll(events, mo.Some("2024-01-04"), mo.Some("2024-01-05"))
	require.NoError(t, result.Err())
	assert.Equal(t, rangeOf("2024-01-04", "2024-01-05"), result.Range)

	ids := make([]string, 0, len(result.Occurrences))
	for _, occ := range result.Occurrences {
		ids = append(ids, occ.ID+"@"+occ.Date.String())
	}
	assert.Equal(t, []string{"late@2024-01-05", "daily@2024-01-04", "daily@2024-01-05"}, ids)
}

func TestExpandAllUsesDefaultWindow(t *testing.T) {
	engine := newTestEngine(DefaultConfig())
	events := []Event{{ID: "e1", Date: MustDate("2024-01-02"), Rule: None{}}}

	result := engine.ExpandAll(events, mo.None[string](), mo.Some("not-a-date"))
	assert.Equal(t, rangeOf("2024-01-02", "2024-01-17"), result.Range)
	assert.Len(t, result.Occurrences, 1)
}

func TestExpandAllReportsRejectedAndTruncated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxOccurrences = 5
	engine := newTestEngine(cfg)
	events := []Event{
		{ID: "odd", Date: MustDate("2024-01-01"), Rule: Unknown{Name: "hourly"}},
		{ID: "daily", Date: MustDate("2024-01-01"), Rule: Daily{Cadence{Interval: 1}}},
	}

	result := engine.ExpandRange(events, rangeOf("2024-01-01", "2024-01-31"))
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "odd", result.Rejected[0].EventID)
	assert.True(t, errors.Is(result.Err(), ErrUnknownRuleType))
	assert.Equal(t, []string{"daily"}, result.Truncated)
	assert.Len(t, result.Occurrences, 5)
}

func TestExpandAllEmptyInput(t *testing.T) {
	result := newTestEngine(DefaultConfig()).ExpandAll(nil, mo.None[string](), mo.None[string]())
	assert.NotNil(t, result.Occurrences)
	assert.Empty(t, result.Occurrences)
	assert.NoError(t, result.Err())
}

func TestSortOccurrencesPutsUntimedFirst(t *testing.T) {
	occurrences := []Occurrence{
		occurrenceOn(Event{Title: "b", Time: "10:00"}, MustDate("2024-01-02")),
		occurrenceOn(Event{Title: "c", Time: "09:00"}, MustDate("2024-01-01")),
		occurrenceOn(Event{Title: "a", AllDay: true}, MustDate("2024-01-01")),
		occurrenceOn(Event{Title: "d", Time: "09:00"}, MustDate("2024-01-01")),
	}

	SortOccurrences(occurrences)

	titles := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		titles = append(titles, occ.Title)
	}
	assert.Equal(t, []string{"a", "c", "d", "b"}, titles)
}
