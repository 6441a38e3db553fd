package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"course_id", "room"},
		Rows: []map[string]string{
			{"course_id": "C001", "room": "1"},
			{"course_id": "C002"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"course_id", "room"}, {"C001", "1"}, {"C002", ""}}, records)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVExporterSpreadsheetSafety(t *testing.T) {
	data := Dataset{
		Headers: []string{"course_id", "name"},
		Rows:    []map[string]string{{"course_id": "C001", "name": "=HYPERLINK(\"x\")"}, {"course_id": "-5", "name": "Intro"}},
	}
	out, err := NewCSVExporter().WithBOM().Render(data)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("\ufeff")))
	assert.Contains(t, string(out), "\r\n")
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte("\ufeff")))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `'=HYPERLINK("x")`, records[1][1])
	assert.Equal(t, "'-5", records[2][0])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Board")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterPaginatesWideTables(t *testing.T) {
	data := Dataset{Headers: []string{"a", "b", "c", "d", "e", "f", "g"}}
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, map[string]string{"a": "C001", "g": "true"})
	}
	out, err := NewPDFExporter().Render(data, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Greater(t, bytes.Count(out, []byte("/Type /Page\n")), 1)

	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestICSExporterRender(t *testing.T) {
	start := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	exporter := NewICSExporter("")
	out, err := exporter.Render([]CalendarEntry{
		{UID: "ATL-C001", Summary: "C001 Foundations", Location: "Room 1", Start: start, End: start.AddDate(0, 0, 3)},
	}, "ATL")
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(bytes.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "C001 Foundations", events[0].GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20260303", events[0].GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20260306", events[0].GetProperty(ical.ComponentPropertyDtEnd).Value)

	_, err = exporter.Render([]CalendarEntry{{UID: "x", Start: start, End: start}}, "")
	assert.Error(t, err)
}
