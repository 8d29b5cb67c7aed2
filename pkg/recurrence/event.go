package recurrence

// Event is the read-only view of a stored event the engine works on.
type Event struct {
	ID          string
	FamilyID    string
	CreatedBy   string
	MemberID    string
	Title       string
	Description string
	Location    string
	// Date anchors the series: it is the first possible occurrence.
	Date Date
	// Time is an opaque label such as "09:00"; empty means unscheduled.
	Time   string
	AllDay bool
	Rule   Rule
}

// Occurrence is one dated instance of an Event. Every field is inherited
// from the event except Date; SeriesStart keeps the anchor.
type Occurrence struct {
	Event
	SeriesStart Date
}

// TimeLabel is what digests print in front of the title.
func (o Occurrence) TimeLabel() string {
	if o.AllDay || o.Time == "" {
		return "All day"
	}
	return o.Time
}

func (o Occurrence) sortKey() string {
	return o.Date.String() + " " + o.Time
}

func occurrenceOn(ev Event, day Date) Occurrence {
	occ := Occurrence{Event: ev, SeriesStart: ev.Date}
	occ.Date = day
	return occ
}
