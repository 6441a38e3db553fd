package scheduling

import (
	"fmt"
	"sort"

	"github.com/noah-isme/roomboard/internal/models"
)

// Gaps returns the maximal runs of days in a room not covered by any non-draft placement.
func (b *Board) Gaps(eventID string, room int) ([]models.Gap, error) {
	event, ok := b.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	}
	if room < 1 || room > event.RoomCount {
		return nil, fmt.Errorf("%w: room %d at %s", ErrInvalidRoom, room, eventID)
	}

	taken := make(map[int]bool, event.TotalDays)
	for _, rd := range b.store.OccupiedRoomDays(eventID) {
		if rd.Room == room {
			taken[rd.Day] = true
		}
	}

	var gaps []models.Gap
	start := 0
	for d := 1; d <= event.TotalDays+1; d++ {
		free := d <= event.TotalDays && !taken[d]
		switch {
		case free && start == 0:
			start = d
		case !free && start != 0:
			gaps = append(gaps, models.Gap{EventID: eventID, Room: room, StartDay: start, Length: d - start})
			start = 0
		}
	}
	return gaps, nil
}

// GapCandidates lists courses that fit the gap and whose instructors are free for
// all of it. Courses already holding a non-draft placement at the event are skipped.
func (b *Board) GapCandidates(gap models.Gap) []models.Course {
	var out []models.Course
	for _, course := range b.Courses() {
		length := course.OccupiedDays()
		if length < 1 || length > gap.Length {
			continue
		}
		if p, ok := b.Placement(gap.EventID, course.ID); ok && p.IsPlaced() && !p.Draft {
			continue
		}
		window := dayRange(gap.StartDay, gap.Length)
		if len(intersect(window, b.index.BlockedForCourse(course, gap.EventID))) > 0 {
			continue
		}
		out = append(out, course)
	}
	return out
}

// OpenSlot registers a named draft slot over a gap.
func (b *Board) OpenSlot(id string, gap models.Gap) (models.DraftSlot, error) {
	if _, exists := b.slots[id]; exists {
		return models.DraftSlot{}, fmt.Errorf("%w: %s", ErrSlotExists, id)
	}
	event, ok := b.events[gap.EventID]
	if !ok {
		return models.DraftSlot{}, fmt.Errorf("%w: %s", ErrUnknownEvent, gap.EventID)
	}
	if gap.Room < 1 || gap.Room > event.RoomCount {
		return models.DraftSlot{}, fmt.Errorf("%w: room %d at %s", ErrInvalidRoom, gap.Room, gap.EventID)
	}
	if gap.StartDay < 1 || gap.Length < 1 || gap.EndDay() > event.TotalDays {
		return models.DraftSlot{}, fmt.Errorf("%w: days %d..%d at %s", ErrInvalidDateRange, gap.StartDay, gap.EndDay(), gap.EventID)
	}
	slot := &models.DraftSlot{ID: id, Gap: gap}
	b.slots[id] = slot
	return cloneSlot(slot), nil
}

// Slot returns a draft slot by id.
func (b *Board) Slot(id string) (models.DraftSlot, bool) {
	slot, ok := b.slots[id]
	if !ok {
		return models.DraftSlot{}, false
	}
	return cloneSlot(slot), true
}

// Slots lists draft slots, optionally restricted to one event.
func (b *Board) Slots(eventID string) []models.DraftSlot {
	var out []models.DraftSlot
	for _, slot := range b.slots {
		if eventID == "" || slot.Gap.EventID == eventID {
			out = append(out, cloneSlot(slot))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CloseSlot drops a draft slot and its pending candidates.
func (b *Board) CloseSlot(id string) bool {
	if _, ok := b.slots[id]; !ok {
		return false
	}
	delete(b.slots, id)
	return true
}

// AddCandidate appends a course to a slot's pending list. Nothing is written to the store.
func (b *Board) AddCandidate(slotID, courseID string) (models.DraftSlot, error) {
	slot, ok := b.slots[slotID]
	if !ok {
		return models.DraftSlot{}, fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	if _, ok := b.courses[courseID]; !ok {
		return models.DraftSlot{}, fmt.Errorf("%w: %s", ErrUnknownCourse, courseID)
	}
	for _, c := range slot.Candidates {
		if c.CourseID == courseID {
			return models.DraftSlot{}, fmt.Errorf("%w: %s in %s", ErrAlreadyPending, courseID, slotID)
		}
	}
	slot.Candidates = append(slot.Candidates, models.DraftCandidate{CourseID: courseID})
	return cloneSlot(slot), nil
}

// Promote re-validates a pending candidate against the current board and commits it
// as a non-draft placement at the slot's room and first day. On success the course
// leaves every pending list; on rejection the candidate stays for retry or discard.
func (b *Board) Promote(slotID string, index int) (models.Outcome, error) {
	slot, ok := b.slots[slotID]
	if !ok {
		return models.Outcome{}, fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	if index < 0 || index >= len(slot.Candidates) {
		return models.Outcome{}, ErrCandidateIndex
	}
	candidate := slot.Candidates[index]
	room := slot.Gap.Room
	outcome := b.Place(Proposal{
		EventID:  slot.Gap.EventID,
		CourseID: candidate.CourseID,
		Room:     &room,
		StartDay: slot.Gap.StartDay,
	})
	if outcome.Accepted {
		b.dropCandidates(candidate.CourseID)
	}
	return outcome, nil
}

// Discard removes a pending candidate with no other effect.
func (b *Board) Discard(slotID string, index int) error {
	slot, ok := b.slots[slotID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	if index < 0 || index >= len(slot.Candidates) {
		return ErrCandidateIndex
	}
	slot.Candidates = append(slot.Candidates[:index], slot.Candidates[index+1:]...)
	return nil
}

func (b *Board) dropCandidates(courseID string) {
	for _, slot := range b.slots {
		kept := slot.Candidates[:0]
		for _, c := range slot.Candidates {
			if c.CourseID != courseID {
				kept = append(kept, c)
			}
		}
		slot.Candidates = kept
	}
}

func cloneSlot(slot *models.DraftSlot) models.DraftSlot {
	clone := *slot
	clone.Candidates = append([]models.DraftCandidate(nil), slot.Candidates...)
	return clone
}
