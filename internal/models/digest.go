package models

// DigestKind selects which day a digest covers.
type DigestKind string

const (
	DigestMorning DigestKind = "morning"
	DigestEvening DigestKind = "evening"
)

// Valid reports whether k is a known digest kind.
func (k DigestKind) Valid() bool {
	return k == DigestMorning || k == DigestEvening
}

// DayOffset is the number of days from today the digest covers.
func (k DigestKind) DayOffset() int {
	if k == DigestEvening {
		return 1
	}
	return 0
}

// Title is the notification title.
func (k DigestKind) Title() string {
	if k == DigestEvening {
		return "Tomorrow's family schedule"
	}
	return "Today's family schedule"
}

// Digest is the notification a family receives for one day.
type Digest struct {
	Kind     DigestKind  `json:"kind"`
	FamilyID string      `json:"family_id"`
	Date     string      `json:"date"`
	Count    int         `json:"count"`
	Payload  PushPayload `json:"payload"`
}

// DigestRun reports the outcome of one scheduled digest.
type DigestRun struct {
	Kind       DigestKind `json:"kind"`
	Date       string     `json:"date"`
	Families   int        `json:"families"`
	Skipped    int        `json:"skipped"`
	Dispatched int        `json:"dispatched"`
	Failed     int        `json:"failed"`
}
