package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomboard/internal/models"
)

func courseIDs(courses []models.Course) []string {
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	return ids
}

func TestGapsIgnoreDrafts(t *testing.T) {
	b := newATLBoard(t)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C001", Room: room(1), StartDay: 1}).Accepted)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C003", Room: room(2), StartDay: 4}).Accepted)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C002", Room: room(2), StartDay: 4, Draft: true}).Accepted)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C005", Room: room(2), StartDay: 4, Draft: true}).Accepted)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C003", Room: room(3), StartDay: 4}).Accepted)

	p, _ := b.Placement("ATL", "C002")
	require.True(t, p.Draft, "drafts overlapping each other stay drafts")

	gaps, err := b.Gaps("ATL", 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Gap{{EventID: "ATL", Room: 1, StartDay: 4, Length: 2}}, gaps)

	gaps, err = b.Gaps("ATL", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.Gap{{EventID: "ATL", Room: 2, StartDay: 1, Length: 5}}, gaps)

	_, err = b.Gaps("ATL", 9)
	assert.ErrorIs(t, err, ErrInvalidRoom)
	_, err = b.Gaps("NOPE", 1)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestGapCandidatesFilterLengthAndAvailability(t *testing.T) {
	b := newATLBoard(t)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C001", Room: room(1), StartDay: 1}).Accepted)

	gap := models.Gap{EventID: "ATL", Room: 1, StartDay: 4, Length: 2}
	assert.Equal(t, []string{"C002", "C003", "C004", "C005"}, courseIDs(b.GapCandidates(gap)))

	early := models.Gap{EventID: "ATL", Room: 2, StartDay: 1, Length: 2}
	assert.Equal(t, []string{"C002", "C003", "C005"}, courseIDs(b.GapCandidates(early)))

	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C002", Room: room(3), StartDay: 1}).Accepted)
	assert.NotContains(t, courseIDs(b.GapCandidates(gap)), "C002")
}

func TestPromoteCommitsAndRevalidates(t *testing.T) {
	b := newATLBoard(t)
	require.True(t, b.Place(Proposal{EventID: "ATL", CourseID: "C001", Room: room(1), StartDay: 1}).Accepted)

	slot, err := b.OpenSlot("s1", models.Gap{EventID: "ATL", Room: 1, StartDay: 4, Length: 2})
	require.NoError(t, err)
	assert.Empty(t, slot.Candidates)

	_, err = b.AddCandidate("s1", "C004")
	require.NoError(t, err)
	slot, err = b.AddCandidate("s1", "C002")
	require.NoError(t, err)
	require.Len(t, slot.Candidates, 2)

	_, err = b.AddCandidate("s1", "C002")
	assert.ErrorIs(t, err, ErrAlreadyPending)
	_, ok := b.Placement("ATL", "C004")
	assert.False(t, ok, "pending candidates are not placements")

	outcome, err := b.Promote("s1", 0)
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
	assert.Equal(t, []int{4, 5}, outcome.Days)

	p, ok := b.Placement("ATL", "C004")
	require.True(t, ok)
	assert.False(t, p.Draft)
	assert.Equal(t, 1, *p.Room)

	slot, _ = b.Slot("s1")
	require.Len(t, slot.Candidates, 1)
	assert.Equal(t, "C002", slot.Candidates[0].CourseID)

	outcome, err = b.Promote("s1", 0)
	require.NoError(t, err)
	require.False(t, outcome.Accepted)
	assert.Equal(t, models.ReasonRoomConflict, outcome.Rejection.Reason)
	assert.Equal(t, []string{"C004"}, outcome.Rejection.CourseIDs)

	slot, _ = b.Slot("s1")
	assert.Len(t, slot.Candidates, 1, "rejected candidate stays pending")

	require.NoError(t, b.Discard("s1", 0))
	slot, _ = b.Slot("s1")
	assert.Empty(t, slot.Candidates)
	_, ok = b.Placement("ATL", "C002")
	assert.False(t, ok)

	_, err = b.Promote("s1", 0)
	assert.ErrorIs(t, err, ErrCandidateIndex)
}

func TestSlotLifecycle(t *testing.T) {
	b := newATLBoard(t)
	gap := models.Gap{EventID: "ATL", Room: 3, StartDay: 1, Length: 5}

	_, err := b.OpenSlot("s1", gap)
	require.NoError(t, err)
	_, err = b.OpenSlot("s1", gap)
	assert.ErrorIs(t, err, ErrSlotExists)
	_, err = b.OpenSlot("s2", models.Gap{EventID: "ATL", Room: 1, StartDay: 4, Length: 3})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	_, err = b.AddCandidate("nope", "C001")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = b.AddCandidate("s1", "NOPE")
	assert.ErrorIs(t, err, ErrUnknownCourse)

	_, err = b.AddCandidate("s1", "C003")
	require.NoError(t, err)
	assert.Len(t, b.Slots("ATL"), 1)
	assert.Empty(t, b.Slots("BOS"))

	_, err = b.RemoveCourse("C003")
	require.NoError(t, err)
	slot, _ := b.Slot("s1")
	assert.Empty(t, slot.Candidates)

	_, err = b.ApplyRoomCount("ATL", 2)
	require.NoError(t, err)
	_, ok := b.Slot("s1")
	assert.False(t, ok)
	assert.False(t, b.CloseSlot("s1"))
}
