package recurrence

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// NoEventsSummary is the digest text for an empty day.
	NoEventsSummary = "No events scheduled."

	summaryLimit = 3
)

// Summarize renders a one-line digest of the earliest occurrences, e.g.
// "All day — Bins; 09:00 — Dentist +2 more".
func Summarize(occurrences []Occurrence) string {
	if len(occurrences) == 0 {
		return NoEventsSummary
	}

	sorted := slices.Clone(occurrences)
	SortOccurrences(sorted)

	top := sorted[:min(summaryLimit, len(sorted))]
	parts := make([]string, 0, len(top))
	for _, occ := range top {
		parts = append(parts, occ.TimeLabel()+" — "+occ.Title)
	}

	summary := strings.Join(parts, "; ")
	if remaining := len(sorted) - len(top); remaining > 0 {
		summary += fmt.Sprintf(" +%d more", remaining)
	}
	return summary
}
