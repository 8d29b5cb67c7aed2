package export

import (
	"fmt"
	"strings"

	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

// AgendaHeaders are the columns of an exported agenda.
var AgendaHeaders = []string{"Date", "Time", "Title", "Member", "Location", "Repeats"}

// AgendaDataset lays occurrences out in display order. memberNames maps
// user IDs to display names; unknown IDs render blank.
func AgendaDataset(familyName string, r recurrence.Range, occurrences []recurrence.Occurrence, memberNames map[string]string) Dataset {
	sorted := make([]recurrence.Occurrence, len(occurrences))
	copy(sorted, occurrences)
	recurrence.SortOccurrences(sorted)

	rows := make([][]string, 0, len(sorted))
	for _, occ := range sorted {
		rows = append(rows, []string{
			occ.Date.String(),
			occ.TimeLabel(),
			occ.Title,
			memberNames[occ.MemberID],
			occ.Location,
			describeRule(occ.Rule),
		})
	}

	title := "Family agenda"
	if name := strings.TrimSpace(familyName); name != "" {
		title = name + " agenda"
	}
	return Dataset{
		Title:    title,
		Subtitle: fmt.Sprintf("%s to %s", r.Start, r.End),
		Headers:  AgendaHeaders,
		Rows:     rows,
	}
}

func describeRule(r recurrence.Rule) string {
	switch rule := r.(type) {
	case nil, recurrence.None:
		return ""
	case recurrence.Daily:
		return every(rule.Step(), "day", "Daily")
	case recurrence.Weekly:
		return every(rule.Step(), "week", "Weekly")
	case recurrence.Monthly:
		return every(rule.Step(), "month", "Monthly")
	default:
		return string(r.Type())
	}
}

func every(step int, unit, single string) string {
	if step == 1 {
		return single
	}
	return fmt.Sprintf("Every %d %ss", step, unit)
}
