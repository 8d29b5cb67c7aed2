package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

const (
	defaultProductID = "-//Family Calendar//Feed//EN"
	defaultDuration  = time.Hour
)

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// FeedEvent is one stored event published in a calendar feed.
type FeedEvent struct {
	recurrence.Event
	MemberName string
	UpdatedAt  time.Time
}

// Feed is the content of an iCalendar subscription.
type Feed struct {
	Name        string
	Location    *time.Location
	GeneratedAt time.Time
	Refresh     time.Duration
	Events      []FeedEvent
}

// ICSExporter renders feeds as iCalendar documents. Series are published
// once with an RRULE instead of being expanded.
type ICSExporter struct {
	ProductID string
	UIDDomain string
}

// NewICSExporter constructs an ICS exporter. uidDomain qualifies event UIDs.
func NewICSExporter(uidDomain string) *ICSExporter {
	if uidDomain == "" {
		uidDomain = "family-calendar"
	}
	return &ICSExporter{ProductID: defaultProductID, UIDDomain: uidDomain}
}

// ContentType is the MIME type of the rendered document.
func (e *ICSExporter) ContentType() string { return "text/calendar; charset=utf-8" }

// Render serialises the feed. Events whose rule cannot be expressed fail the render.
func (e *ICSExporter) Render(feed Feed) ([]byte, error) {
	loc := feed.Location
	if loc == nil {
		loc = time.UTC
	}
	stamp := feed.GeneratedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.ProductID)
	if feed.Name != "" {
		cal.SetName(feed.Name)
		cal.SetXWRCalName(feed.Name)
	}
	cal.SetXWRTimezone(loc.String())
	if feed.Refresh > 0 {
		cal.SetRefreshInterval(isoDuration(feed.Refresh))
	}

	for _, fe := range feed.Events {
		start, allDay := eventStart(fe.Event, loc)

		vev := cal.AddEvent(fe.ID + "@" + e.UIDDomain)
		vev.SetDtStampTime(stamp)
		if !fe.UpdatedAt.IsZero() {
			vev.SetModifiedAt(fe.UpdatedAt)
		}
		vev.SetSummary(fe.Title)
		if fe.Description != "" {
			vev.SetDescription(fe.Description)
		}
		if fe.Location != "" {
			vev.SetLocation(fe.Location)
		}
		if fe.MemberName != "" {
			vev.AddProperty(ics.ComponentPropertyCategories, fe.MemberName)
		}
		if allDay {
			vev.SetAllDayStartAt(start)
			vev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		} else {
			vev.SetStartAt(start)
			vev.SetEndAt(start.Add(defaultDuration))
		}

		rule, err := RRuleValue(fe.Event, loc)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", fe.ID, err)
		}
		if rule != "" {
			vev.AddProperty(ics.ComponentPropertyRrule, rule)
		}
	}

	return []byte(cal.Serialize()), nil
}

// RRuleFor translates an event's rule into an RRULE anchored at the event
// start. It returns nil for one-off events.
//
// Monthly anchors past the 28th list every day from the 28th to the anchor
// day and keep the last one present, which lands on the month end in short
// months. Weekly rules start their weeks on the anchor weekday so interval
// counting lines up with whole weeks since the anchor.
func RRuleFor(ev recurrence.Event, loc *time.Location) (*rrule.RRule, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, _ := eventStart(ev, loc)

	opt := rrule.ROption{Dtstart: start}
	var cadence recurrence.Cadence
	switch r := ev.Rule.(type) {
	case nil, recurrence.None:
		return nil, nil
	case recurrence.Daily:
		opt.Freq = rrule.DAILY
		cadence = r.Cadence
	case recurrence.Weekly:
		opt.Freq = rrule.WEEKLY
		opt.Wkst = rruleWeekdays[ev.Date.Weekday()]
		mask := r.Mask(ev.Date)
		for wd, on := range mask {
			if on {
				opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
			}
		}
		cadence = r.Cadence
	case recurrence.Monthly:
		opt.Freq = rrule.MONTHLY
		if day := ev.Date.Day(); day > 28 {
			for d := 28; d <= day; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
		cadence = r.Cadence
	default:
		return nil, fmt.Errorf("%w: %q", recurrence.ErrUnknownRuleType, ev.Rule.Type())
	}

	opt.Interval = cadence.Step()
	if until, ok := cadence.Until.Get(); ok {
		opt.Until = until.AddDays(1).Time(loc).Add(-time.Second)
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	return rule, nil
}

// RRuleValue renders the RRULE property value for ev, or "" for one-off
// events. All-day events carry UNTIL as a DATE to match their DATE DTSTART.
func RRuleValue(ev recurrence.Event, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	rule, err := RRuleFor(ev, loc)
	if err != nil || rule == nil {
		return "", err
	}
	opt := rule.OrigOptions
	if _, allDay := eventStart(ev, loc); !allDay || opt.Until.IsZero() {
		return opt.RRuleString(), nil
	}
	until := opt.Until.In(loc).Format("20060102")
	opt.Until = time.Time{}
	return opt.RRuleString() + ";UNTIL=" + until, nil
}

// IsUnrepresentable reports whether RRuleFor failed because of the rule type.
func IsUnrepresentable(err error) bool {
	return errors.Is(err, recurrence.ErrUnknownRuleType)
}

func eventStart(ev recurrence.Event, loc *time.Location) (time.Time, bool) {
	day := ev.Date.Time(loc)
	if ev.AllDay || ev.Time == "" {
		return day, true
	}
	clock, err := time.Parse("15:04", strings.TrimSpace(ev.Time))
	if err != nil {
		return day, true
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), false
}

func isoDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("PT%dH", int(d/time.Hour))
	}
	minutes := int(d / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("PT%dM", minutes)
}
