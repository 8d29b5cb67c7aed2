package models

import (
	"time"

	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

// Event is a row of the events table. Date anchors recurring series and
// RepeatRule holds the rule JSON or NULL for one-off events.
type Event struct {
	ID          string    `db:"id"`
	FamilyID    string    `db:"family_id"`
	CreatedBy   *string   `db:"created_by"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	Date        time.Time `db:"date"`
	Time        *string   `db:"time"`
	RepeatRule  *string   `db:"repeat_rule"`
	AllDay      bool      `db:"all_day"`
	MemberID    *string   `db:"member_id"`
	Location    *string   `db:"location"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Rule decodes the stored rule. Corrupt JSON reads as a one-off event.
func (e Event) Rule() recurrence.Rule {
	return recurrence.ParseStoredRule(deref(e.RepeatRule))
}

// Recurrence converts the row into the engine's view of an event.
func (e Event) Recurrence() recurrence.Event {
	return recurrence.Event{
		ID:          e.ID,
		FamilyID:    e.FamilyID,
		CreatedBy:   deref(e.CreatedBy),
		MemberID:    deref(e.MemberID),
		Title:       e.Title,
		Description: deref(e.Description),
		Location:    deref(e.Location),
		Date:        recurrence.DateOf(e.Date),
		Time:        deref(e.Time),
		AllDay:      e.AllDay,
		Rule:        e.Rule(),
	}
}

// Recurrences converts a slice of rows preserving order.
func Recurrences(rows []Event) []recurrence.Event {
	out := make([]recurrence.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Recurrence())
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
