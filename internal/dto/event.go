package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/family-calendar-api/internal/models"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

// RuleInput is the repeat rule as accepted from clients.
type RuleInput struct {
	Type      string `json:"type" validate:"required,oneof=none daily weekly monthly"`
	Interval  int    `json:"interval" validate:"omitempty,min=1,max=366"`
	ByWeekday []int  `json:"by_weekday" validate:"omitempty,max=7,dive,min=0,max=6"`
	Until     string `json:"until" validate:"omitempty,datetime=2006-01-02"`
}

// Spec converts the input into the stored rule shape.
func (r RuleInput) Spec() recurrence.RuleSpec {
	return recurrence.RuleSpec{
		Type:      strings.ToLower(r.Type),
		Interval:  r.Interval,
		ByWeekday: r.ByWeekday,
		Until:     r.Until,
	}
}

// RuleField tells an absent repeat_rule apart from an explicit null.
type RuleField struct {
	Set  bool
	Rule *RuleInput
}

// UnmarshalJSON records that the field was present.
func (f *RuleField) UnmarshalJSON(data []byte) error {
	f.Set = true
	if strings.TrimSpace(string(data)) == "null" {
		f.Rule = nil
		return nil
	}
	var input RuleInput
	if err := json.Unmarshal(data, &input); err != nil {
		return err
	}
	f.Rule = &input
	return nil
}

// CreateEventRequest is the payload of POST /events.
type CreateEventRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Date        string     `json:"date" validate:"required,datetime=2006-01-02"`
	Time        *string    `json:"time" validate:"omitempty,datetime=15:04"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	RepeatRule  *RuleInput `json:"repeat_rule"`
	AllDay      bool       `json:"all_day"`
	MemberID    *string    `json:"member_id" validate:"omitempty,uuid"`
	Location    *string    `json:"location" validate:"omitempty,max=200"`
}

// UpdateEventRequest is the payload of PUT /events/:id. Absent fields keep
// their stored values.
type UpdateEventRequest struct {
	Title       *string   `json:"title" validate:"omitempty,max=200"`
	Date        *string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        *string   `json:"time" validate:"omitempty,datetime=15:04"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	RepeatRule  RuleField `json:"repeat_rule"`
	AllDay      *bool     `json:"all_day"`
	MemberID    *string   `json:"member_id" validate:"omitempty,uuid"`
	Location    *string   `json:"location" validate:"omitempty,max=200"`
}

// EventResponse is a stored event as returned by the API.
type EventResponse struct {
	ID          string               `json:"id"`
	FamilyID    string               `json:"family_id"`
	CreatedBy   *string              `json:"created_by"`
	Title       string               `json:"title"`
	Description *string              `json:"description"`
	Date        string               `json:"date"`
	Time        *string              `json:"time"`
	RepeatRule  *recurrence.RuleSpec `json:"repeat_rule"`
	AllDay      bool                 `json:"all_day"`
	MemberID    *string              `json:"member_id"`
	Location    *string              `json:"location"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewEventResponse maps a stored row.
func NewEventResponse(e models.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		FamilyID:    e.FamilyID,
		CreatedBy:   e.CreatedBy,
		Title:       e.Title,
		Description: e.Description,
		Date:        recurrence.DateOf(e.Date).String(),
		Time:        e.Time,
		RepeatRule:  recurrence.SpecFromRule(e.Rule()),
		AllDay:      e.AllDay,
		MemberID:    e.MemberID,
		Location:    e.Location,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// OccurrenceResponse is one dated instance of an event.
type OccurrenceResponse struct {
	ID          string               `json:"id"`
	FamilyID    string               `json:"family_id"`
	CreatedBy   *string              `json:"created_by"`
	MemberID    *string              `json:"member_id"`
	Title       string               `json:"title"`
	Description *string              `json:"description"`
	Location    *string              `json:"location"`
	Date        string               `json:"date"`
	SeriesStart string               `json:"series_start"`
	Time        *string              `json:"time"`
	AllDay      bool                 `json:"all_day"`
	RepeatRule  *recurrence.RuleSpec `json:"repeat_rule"`
}

// NewOccurrenceResponse maps an expanded occurrence.
func NewOccurrenceResponse(o recurrence.Occurrence) OccurrenceResponse {
	return OccurrenceResponse{
		ID:          o.ID,
		FamilyID:    o.FamilyID,
		CreatedBy:   nullable(o.CreatedBy),
		MemberID:    nullable(o.MemberID),
		Title:       o.Title,
		Description: nullable(o.Description),
		Location:    nullable(o.Location),
		Date:        o.Date.String(),
		SeriesStart: o.SeriesStart.String(),
		Time:        nullable(o.Time),
		AllDay:      o.AllDay,
		RepeatRule:  recurrence.SpecFromRule(o.Rule),
	}
}

// NewOccurrenceResponses maps a slice preserving order.
func NewOccurrenceResponses(occurrences []recurrence.Occurrence) []OccurrenceResponse {
	out := make([]OccurrenceResponse, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, NewOccurrenceResponse(o))
	}
	return out
}

// EventList is the body of GET /events.
type EventList struct {
	Events []OccurrenceResponse `json:"events"`
}

// EventListMeta describes how the list was produced.
type EventListMeta struct {
	Range     recurrence.Range `json:"range"`
	Truncated []string         `json:"truncated"`
	Rejected  []string         `json:"rejected"`
	CacheHit  bool             `json:"cache_hit"`
}

// Map renders the meta for the response envelope.
func (m EventListMeta) Map() map[string]interface{} {
	truncated := m.Truncated
	if truncated == nil {
		truncated = []string{}
	}
	rejected := m.Rejected
	if rejected == nil {
		rejected = []string{}
	}
	return map[string]interface{}{
		"range":     m.Range,
		"truncated": truncated,
		"rejected":  rejected,
		"cache_hit": m.CacheHit,
	}
}

// SummaryResponse is the body of GET /events/summary.
type SummaryResponse struct {
	Range   recurrence.Range `json:"range"`
	Count   int              `json:"count"`
	Summary string           `json:"summary"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
