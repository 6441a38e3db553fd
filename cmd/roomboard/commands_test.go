package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanBoard = `
events:
  - id: ATL
    name: Atlanta Spring
    first_day: 2026-03-01
    last_day: 2026-03-05
    room_count: 3
courses:
  - id: C001
    instructor: Beatrice
    name: Foundations
    duration_days: 3
  - id: C002
    instructor: Carl
    duration_days: 1
unavailability:
  - instructor: Carl
    start: 3/5/2026
    end: 3/5/2026
placements:
  - course_id: C001
    event_id: ATL
    room_number: 1
    start_day: 2
  - course_id: C002
    event_id: ATL
    room_number: 2
    start_day: 1
`

func writeBoard(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"roomboard", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestCheckCleanBoard(t *testing.T) {
	out, err := run(t, "check", writeBoard(t, cleanBoard))
	require.NoError(t, err)

	assert.Contains(t, out, "events          1 imported")
	assert.Contains(t, out, "placements      2 imported")
	assert.NotContains(t, out, "Instructor conflicts")
	assert.Contains(t, out, "Occupancy:")
	assert.Contains(t, out, "ATL")
}

func TestCheckReportsRowErrors(t *testing.T) {
	body := cleanBoard + `  - course_id: C999
    event_id: ATL
    start_day: 4
`
	out, err := run(t, "check", writeBoard(t, body))
	require.ErrorIs(t, err, errCheckFailed)

	assert.Contains(t, out, "placements      2 imported, 1 skipped")
	assert.Contains(t, out, `row 3 (C999): unknown course id "C999"`)
}

func TestCheckRequiresFile(t *testing.T) {
	_, err := run(t, "check")
	assert.Error(t, err)

	_, err = run(t, "check", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = run(t, "check", writeBoard(t, "events: [unclosed"))
	assert.Error(t, err)
}

func TestExportCSVToStdout(t *testing.T) {
	out, err := run(t, "export", "--event", "ATL", writeBoard(t, cleanBoard))
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Course ID", records[0][0])
	assert.Equal(t, "C002", records[1][0])
	assert.Equal(t, "C001", records[2][0])
}

func TestExportExcelCSV(t *testing.T) {
	out, err := run(t, "export", "--excel", writeBoard(t, cleanBoard))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\ufeffCourse ID,"))
}

func TestExportICSToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	out, err := run(t, "export", "--format", "ics", "--out", dir, writeBoard(t, cleanBoard))
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "placements_all_"))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(body), "BEGIN:VEVENT"))
}

func TestExportRejectsConflictCalendar(t *testing.T) {
	_, err := run(t, "export", "--kind", "conflicts", "--format", "ics", writeBoard(t, cleanBoard))
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--user", "ops", "--role", "EDITOR", "--secret", "s3cret")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, strings.Split(lines[0], "."), 3)
	assert.True(t, strings.HasPrefix(lines[1], "expires "))

	_, err = run(t, "token", "--user", "ops", "--role", "ROOT", "--secret", "s3cret")
	assert.Error(t, err)
}
