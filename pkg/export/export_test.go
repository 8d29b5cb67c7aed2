package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

func agendaFixture() []recurrence.Occurrence {
	day := recurrence.MustDate("2024-03-11")
	return []recurrence.Occurrence{
		{Event: recurrence.Event{ID: "1", Title: "Swim", Time: "17:00", MemberID: "u1", Date: day, Rule: recurrence.Weekly{Cadence: recurrence.Cadence{Interval: 1}}}},
		{Event: recurrence.Event{ID: "2", Title: "Bins out", AllDay: true, Date: day, Rule: recurrence.Daily{Cadence: recurrence.Cadence{Interval: 2}}}},
		{Event: recurrence.Event{ID: "3", Title: "Dentist", Time: "09:30", Location: "High St", Date: day.AddDays(-1)}},
	}
}

func TestAgendaDatasetSortsAndLabels(t *testing.T) {
	r := recurrence.NewRange(recurrence.MustDate("2024-03-10"), recurrence.MustDate("2024-03-12"))
	data := AgendaDataset("Smith", r, agendaFixture(), map[string]string{"u1": "Ana"})

	assert.Equal(t, "Smith agenda", data.Title)
	assert.Equal(t, "2024-03-10 to 2024-03-12", data.Subtitle)
	require.Len(t, data.Rows, 3)
	assert.Equal(t, []string{"2024-03-10", "09:30", "Dentist", "", "High St", ""}, data.Rows[0])
	assert.Equal(t, []string{"2024-03-11", "All day", "Bins out", "", "", "Every 2 days"}, data.Rows[1])
	assert.Equal(t, []string{"2024-03-11", "17:00", "Swim", "Ana", "", "Weekly"}, data.Rows[2])
}

func TestCSVExporterRender(t *testing.T) {
	r := recurrence.NewRange(recurrence.MustDate("2024-03-10"), recurrence.MustDate("2024-03-12"))
	out, err := NewCSVExporter().Render(AgendaDataset("", r, agendaFixture(), nil))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, AgendaHeaders, records[0])
	assert.Equal(t, "Dentist", records[1][2])
}

func TestCSVExporterRejectsWideRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"a"}, Rows: [][]string{{"1", "2"}}})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	r := recurrence.NewRange(recurrence.MustDate("2024-03-10"), recurrence.MustDate("2024-03-12"))
	out, err := NewPDFExporter().Render(AgendaDataset("Müller", r, agendaFixture(), nil))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	empty, err := NewPDFExporter().Render(AgendaDataset("", r, nil, nil))
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}
