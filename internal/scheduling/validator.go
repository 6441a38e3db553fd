package scheduling

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/roomboard/internal/models"
)

// Proposal is a user-initiated request to put a course on the timeline.
type Proposal struct {
	EventID  string
	CourseID string
	Room     *int
	StartDay int
	Draft    bool
}

// Validate checks a proposal against the current board without mutating it.
// Checks run in order and the first failure wins: fit, instructor, room.
func (b *Board) Validate(p Proposal) models.Outcome {
	return b.validate(p, true)
}

// validate runs the checks of Validate. Without checkInstructor, blocked days are
// ignored so stored placements that already collide with unavailability load as-is.
func (b *Board) validate(p Proposal, checkInstructor bool) models.Outcome {
	event, ok := b.events[p.EventID]
	if !ok {
		return reject(models.ReasonUnknownEvent, fmt.Sprintf("event %s does not exist", p.EventID))
	}
	course, ok := b.courses[p.CourseID]
	if !ok {
		return reject(models.ReasonUnknownCourse, fmt.Sprintf("course %s does not exist", p.CourseID))
	}
	if p.Room != nil && (*p.Room < 1 || *p.Room > event.RoomCount) {
		return reject(models.ReasonRoomOutOfRange, fmt.Sprintf("room %d is outside 1..%d at %s", *p.Room, event.RoomCount, event.ID))
	}

	length := course.OccupiedDays()
	if length < 1 {
		length = 1
	}
	if length > event.TotalDays {
		return reject(models.ReasonTooLong, fmt.Sprintf("course %s needs %d days but %s only has %d", course.ID, length, event.ID, event.TotalDays))
	}

	start, clamped := clampStart(p.StartDay, length, event.TotalDays)
	days := dayRange(start, length)

	if blocked := intersect(days, b.index.BlockedForCourse(course, event.ID)); checkInstructor && len(blocked) > 0 {
		outcome := reject(models.ReasonInstructorUnavailable, fmt.Sprintf("%s is unavailable at %s on day(s) %s", course.Instructor, event.ID, joinInts(blocked)))
		outcome.Rejection.Days = blocked
		return outcome
	}

	if p.Room != nil && !p.Draft {
		if conflicting := b.roomConflicts(event.ID, p.CourseID, *p.Room, days); len(conflicting) > 0 {
			outcome := reject(models.ReasonRoomConflict, fmt.Sprintf("room %d at %s is already taken by %s", *p.Room, event.ID, strings.Join(conflicting, ", ")))
			outcome.Rejection.CourseIDs = conflicting
			return outcome
		}
	}

	return models.Outcome{Accepted: true, StartDay: start, Days: days, Clamped: clamped}
}

// roomConflicts lists other non-draft placements in the room overlapping days.
func (b *Board) roomConflicts(eventID, courseID string, room int, days []int) []string {
	var ids []string
	for _, other := range b.store.ForEvent(eventID) {
		if other.CourseID == courseID || other.Draft || other.Room == nil || *other.Room != room {
			continue
		}
		if len(intersect(days, other.Days)) > 0 {
			ids = append(ids, other.CourseID)
		}
	}
	sort.Strings(ids)
	return ids
}

// clampStart pulls a start day back so the range ends on or before totalDays.
func clampStart(start, length, totalDays int) (int, bool) {
	clamped := false
	if start < 1 {
		start = 1
		clamped = true
	}
	if start+length-1 > totalDays {
		start = totalDays - length + 1
		clamped = true
	}
	if start < 1 {
		start = 1
	}
	return start, clamped
}

func dayRange(start, length int) []int {
	days := make([]int, length)
	for i := range days {
		days[i] = start + i
	}
	return days
}

func reject(reason models.RejectionReason, message string) models.Outcome {
	return models.Outcome{Rejection: &models.Rejection{Reason: reason, Message: message}}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
