package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomboard/internal/models"
)

func seededBoard(t *testing.T) *Board {
	t.Helper()
	b := newATLBoard(t)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C001", Room: room(1), StartDay: 1}).Accepted)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C002", Room: room(1), StartDay: 2, Draft: true}).Accepted)
	require.NoError(t, b.Assign("ATL", "C003"))
	return b
}

func TestExportPlacementsCarriesDates(t *testing.T) {
	b := seededBoard(t)
	rows := b.ExportPlacements()
	require.Len(t, rows, 3)

	assert.Equal(t, "C003", rows[0].CourseID)
	assert.Nil(t, rows[0].FirstDay)
	assert.Nil(t, rows[0].RoomNumber)

	assert.Equal(t, "C001", rows[1].CourseID)
	assert.Equal(t, *mustDate(t, "2026-03-01"), *rows[1].FirstDay)
	assert.Equal(t, *mustDate(t, "2026-03-03"), *rows[1].LastDay)
	assert.Equal(t, 1, *rows[1].RoomNumber)
	assert.Equal(t, 3.0, rows[1].DurationDays)

	assert.Equal(t, "C002", rows[2].CourseID)
	assert.True(t, rows[2].Draft)
}

func TestExportImportRoundTrip(t *testing.T) {
	b := seededBoard(t)
	rows := b.ExportPlacements()

	restored := newATLBoard(t)
	report := restored.ImportPlacements(rows)
	require.False(t, report.Failed(), report.Errors)
	assert.Equal(t, 3, report.Imported)

	assert.Equal(t, b.Placements(""), restored.Placements(""))
	assert.True(t, restored.Consistent())

	again := restored.ImportPlacements(restored.ExportPlacements())
	require.False(t, again.Failed())
	assert.Equal(t, b.Placements(""), restored.Placements(""))
}

func TestExportImportRoundTripKeepsDraftPairs(t *testing.T) {
	b := newATLBoard(t)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C001", Room: room(1), StartDay: 1}).Accepted)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C002", Room: room(1), StartDay: 2, Draft: true}).Accepted)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C003", Room: room(1), StartDay: 2, Draft: true}).Accepted)
	require.True(t, b.Remove("ATL", "C001"))

	for _, id := range []string{"C002", "C003"} {
		p, ok := b.Placement("ATL", id)
		require.True(t, ok)
		require.True(t, p.Draft, id)
	}

	restored := newATLBoard(t)
	report := restored.ImportPlacements(b.ExportPlacements())
	require.False(t, report.Failed(), report.Errors)
	assert.Equal(t, b.Placements(""), restored.Placements(""))
}

func TestImportPlacementsReportsBadRows(t *testing.T) {
	b := newATLBoard(t)
	rows := []models.PlacementRow{
		{CourseID: "C002", FirstDay: mustDate(t, "2026-03-02"), RoomNumber: room(1)},
		{CourseID: "NOPE", EventID: "ATL", StartDay: 1},
		{CourseID: "C003"},
		{CourseID: "C003", EventID: "ATL", FirstDay: mustDate(t, "2026-04-01")},
		{CourseID: "C005", EventID: "ATL", RoomNumber: room(7), StartDay: 1},
		{CourseID: "C004", EventID: "ATL", FirstDay: mustDate(t, "2026-03-02"), RoomNumber: room(3)},
		{CourseID: "C001", EventID: "ATL", FirstDay: mustDate(t, "2026-03-01"), LastDay: mustDate(t, "2026-03-02"), RoomNumber: room(2)},
		{CourseID: "C003", EventID: "ATL", StartDay: 2, RoomNumber: room(2)},
	}

	report := b.ImportPlacements(rows)
	assert.Equal(t, 3, report.Imported)
	require.Len(t, report.Errors, 5)
	assert.Equal(t, []int{2, 3, 4, 5, 8}, []int{
		report.Errors[0].Row, report.Errors[1].Row, report.Errors[2].Row, report.Errors[3].Row, report.Errors[4].Row,
	})
	assert.Contains(t, report.Errors[4].Message, "C001")
	require.Len(t, report.Warnings, 2)
	assert.Contains(t, report.Warnings[0], "unavailable on day(s) 2, 3")
	assert.Contains(t, report.Warnings[1], "date span 2 differs from duration 3")

	p, ok := b.Placement("ATL", "C002")
	require.True(t, ok)
	assert.Equal(t, []int{2}, p.Days)

	conflicts := b.ConflictReport()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "C004", conflicts[0].CourseID)
	assert.True(t, b.Consistent())
}

func TestImportAppliesNonDraftsFirst(t *testing.T) {
	b := newATLBoard(t)
	report := b.ImportPlacements([]models.PlacementRow{
		{CourseID: "C002", EventID: "ATL", StartDay: 1, RoomNumber: room(1), Draft: true},
		{CourseID: "C001", EventID: "ATL", StartDay: 1, RoomNumber: room(1)},
	})
	require.False(t, report.Failed(), report.Errors)

	p, _ := b.Placement("ATL", "C002")
	assert.True(t, p.Draft)
	p, _ = b.Placement("ATL", "C001")
	assert.False(t, p.Draft)
}

func TestSnapshotRestore(t *testing.T) {
	b := seededBoard(t)
	snapshot := b.Snapshot()

	restored := NewBoard()
	report := restored.Restore(snapshot)
	require.False(t, report.Failed(), report.Errors)

	assert.Equal(t, b.Events(), restored.Events())
	assert.Equal(t, b.Courses(), restored.Courses())
	assert.Equal(t, b.Placements(""), restored.Placements(""))
	assert.Equal(t, []int{2, 3}, restored.BlockedDays("alfred", "ATL"))
}

func TestSnapshotRestoreKeepsUnavailabilityConflicts(t *testing.T) {
	b := newATLBoard(t)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C002", Room: room(1), StartDay: 4}).Accepted)
	b.LoadUnavailability(append(b.Unavailability(), models.UnavailabilityEntry{
		Instructor: "Carl", Start: *mustDate(t, "2026-03-04"), End: *mustDate(t, "2026-03-04"),
	}))
	require.Len(t, b.ConflictReport(), 1)

	restored := NewBoard()
	report := restored.Restore(b.Snapshot())
	require.False(t, report.Failed(), report.Errors)

	p, ok := restored.Placement("ATL", "C002")
	require.True(t, ok)
	assert.Equal(t, []int{4}, p.Days)
	assert.Equal(t, b.Placements(""), restored.Placements(""))
	assert.Equal(t, b.ConflictReport(), restored.ConflictReport())
}
