package scheduling

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/roomboard/internal/models"
)

// Board is the scheduling context: catalog, derived indices and placements of
// one board. It is not safe for concurrent use; callers serialise access.
type Board struct {
	events     map[string]models.Event
	eventOrder []string
	courses    map[string]models.Course
	duplicates map[string][]models.Course
	entries    []models.UnavailabilityEntry
	calendar   Calendar
	index      *UnavailabilityIndex
	store      *ScheduleStore
	slots      map[string]*models.DraftSlot
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	b := &Board{
		events:     make(map[string]models.Event),
		courses:    make(map[string]models.Course),
		duplicates: make(map[string][]models.Course),
		calendar:   make(Calendar),
		store:      NewScheduleStore(),
		slots:      make(map[string]*models.DraftSlot),
	}
	b.rebuildIndex()
	return b
}

// LoadEvents replaces every event. Rows with invalid dates are skipped and reported.
// Placements of vanished events are dropped; placements no longer fitting their
// event's rooms or days are stripped back to assignments.
func (b *Board) LoadEvents(events []models.Event) models.ImportReport {
	report := models.ImportReport{}
	accepted := make(map[string]models.Event, len(events))
	calendar := make(Calendar, len(events))
	order := make([]string, 0, len(events))

	for i, event := range events {
		row := i + 1
		event.ID = strings.TrimSpace(event.ID)
		if event.ID == "" {
			report.Errors = append(report.Errors, models.RowError{Row: row, Message: "event id is required"})
			continue
		}
		if _, dup := accepted[event.ID]; dup {
			report.Errors = append(report.Errors, models.RowError{Row: row, ID: event.ID, Message: "duplicate event id"})
			continue
		}
		if event.RoomCount == 0 {
			event.RoomCount = 1
		}
		if event.RoomCount < 0 {
			report.Errors = append(report.Errors, models.RowError{Row: row, ID: event.ID, Message: "room count must be at least 1"})
			continue
		}
		days, warning, err := ExpandEvent(event)
		if err != nil {
			report.Errors = append(report.Errors, models.RowError{Row: row, ID: event.ID, Message: err.Error()})
			continue
		}
		if warning != "" {
			report.Warnings = append(report.Warnings, warning)
		}
		event.TotalDays = len(days)
		accepted[event.ID] = event
		calendar[event.ID] = days
		order = append(order, event.ID)
		report.Imported++
	}

	b.events = accepted
	b.eventOrder = order
	b.calendar = calendar

	for _, p := range b.store.All() {
		event, ok := b.events[p.EventID]
		if !ok {
			b.store.Remove(p.Key())
			report.Warnings = append(report.Warnings, fmt.Sprintf("placement %s@%s dropped: event removed", p.CourseID, p.EventID))
			continue
		}
		if outOfRange(p, event) {
			b.strip(p)
			report.Warnings = append(report.Warnings, fmt.Sprintf("placement %s@%s unplaced: no longer fits event", p.CourseID, p.EventID))
		}
	}
	for id, slot := range b.slots {
		if _, ok := b.events[slot.Gap.EventID]; !ok {
			delete(b.slots, id)
		}
	}

	b.rebuildIndex()
	b.autoFinalize()
	return report
}

// LoadCourses replaces every course. Duplicate ids keep the first record active
// and are surfaced through DuplicateCourses until resolved.
func (b *Board) LoadCourses(courses []models.Course) models.ImportReport {
	report := models.ImportReport{}
	accepted := make(map[string]models.Course, len(courses))
	duplicates := make(map[string][]models.Course)

	for i, course := range courses {
		row := i + 1
		course.ID = strings.TrimSpace(course.ID)
		if course.ID == "" {
			report.Errors = append(report.Errors, models.RowError{Row: row, Message: "course id is required"})
			continue
		}
		if course.DurationDays <= 0 {
			report.Errors = append(report.Errors, models.RowError{Row: row, ID: course.ID, Message: "duration must be positive"})
			continue
		}
		if first, dup := accepted[course.ID]; dup {
			if len(duplicates[course.ID]) == 0 {
				duplicates[course.ID] = []models.Course{first}
			}
			duplicates[course.ID] = append(duplicates[course.ID], course)
			report.Warnings = append(report.Warnings, fmt.Sprintf("duplicate course id %s at row %d", course.ID, row))
			continue
		}
		accepted[course.ID] = course
		report.Imported++
	}

	previous := b.courses
	b.courses = accepted
	b.duplicates = duplicates

	for _, p := range b.store.All() {
		course, ok := b.courses[p.CourseID]
		if !ok {
			b.store.Remove(p.Key())
			b.dropCandidates(p.CourseID)
			report.Warnings = append(report.Warnings, fmt.Sprintf("placement %s@%s dropped: course removed", p.CourseID, p.EventID))
			continue
		}
		if old, ok := previous[p.CourseID]; ok && old.OccupiedDays() != course.OccupiedDays() && p.IsPlaced() {
			if warning := b.refit(p); warning != "" {
				report.Warnings = append(report.Warnings, warning)
			}
		}
	}

	b.autoFinalize()
	return report
}

// LoadUnavailability replaces every unavailability entry and rebuilds the index.
// Existing placements are left in place; collisions show up in ConflictReport.
func (b *Board) LoadUnavailability(entries []models.UnavailabilityEntry) models.ImportReport {
	report := models.ImportReport{}
	accepted := make([]models.UnavailabilityEntry, 0, len(entries))
	for i, entry := range entries {
		row := i + 1
		entry.Instructor = strings.TrimSpace(entry.Instructor)
		switch {
		case entry.Instructor == "":
			report.Errors = append(report.Errors, models.RowError{Row: row, Message: "instructor is required"})
			continue
		case entry.Start.IsZero() || entry.End.IsZero():
			report.Errors = append(report.Errors, models.RowError{Row: row, ID: entry.Instructor, Message: "start and end dates are required"})
			continue
		case DateOnly(entry.End).Before(DateOnly(entry.Start)):
			report.Errors = append(report.Errors, models.RowError{Row: row, ID: entry.Instructor, Message: "end date is before start date"})
			continue
		}
		entry.Start = DateOnly(entry.Start)
		entry.End = DateOnly(entry.End)
		accepted = append(accepted, entry)
		report.Imported++
	}
	b.entries = accepted
	b.rebuildIndex()
	if conflicts := b.ConflictReport(); len(conflicts) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d placement(s) now collide with instructor unavailability", len(conflicts)))
	}
	return report
}

// Event returns an event by id.
func (b *Board) Event(id string) (models.Event, bool) {
	event, ok := b.events[id]
	return event, ok
}

// Events returns events in load order.
func (b *Board) Events() []models.Event {
	out := make([]models.Event, 0, len(b.eventOrder))
	for _, id := range b.eventOrder {
		out = append(out, b.events[id])
	}
	return out
}

// Course returns the active record for a course id.
func (b *Board) Course(id string) (models.Course, bool) {
	course, ok := b.courses[id]
	return course, ok
}

// Courses returns the active courses ordered by id.
func (b *Board) Courses() []models.Course {
	out := make([]models.Course, 0, len(b.courses))
	for _, c := range b.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Unavailability returns the loaded unavailability entries.
func (b *Board) Unavailability() []models.UnavailabilityEntry {
	return append([]models.UnavailabilityEntry(nil), b.entries...)
}

// Days returns the calendar of an event.
func (b *Board) Days(eventID string) []models.Day {
	return append([]models.Day(nil), b.calendar.Days(eventID)...)
}

// BlockedDays returns the instructor's blocked days at an event.
func (b *Board) BlockedDays(instructor, eventID string) []int {
	return b.index.BlockedDays(instructor, eventID)
}

// HasCapacity reports whether an instructor has enough free days at an event.
func (b *Board) HasCapacity(instructor, eventID string, durationDays float64) bool {
	return b.index.HasCapacity(instructor, eventID, durationDays)
}

// Index exposes the current unavailability index.
func (b *Board) Index() *UnavailabilityIndex {
	return b.index
}

// Placement returns the placement of a course at an event.
func (b *Board) Placement(eventID, courseID string) (models.Placement, bool) {
	return b.store.Get(models.PlacementKey{EventID: eventID, CourseID: courseID})
}

// Placements returns the placements of an event, or all when eventID is empty.
func (b *Board) Placements(eventID string) []models.Placement {
	if eventID == "" {
		return b.store.All()
	}
	return b.store.ForEvent(eventID)
}

// IsAssigned reports whether the course is offered at any event.
func (b *Board) IsAssigned(courseID string) bool {
	return b.store.IsAssigned(courseID)
}

// AssignedEvents lists the events a course is offered at.
func (b *Board) AssignedEvents(courseID string) []string {
	return b.store.EventsFor(courseID)
}

// Place validates a proposal and, when accepted, writes the placement.
//
// A draft only stays a draft while it overlaps another placement in its room.
// The cleanup pass that follows every mutation commits drafts without such a
// counterpart, so a draft proposed onto a free slot comes back committed.
func (b *Board) Place(p Proposal) models.Outcome {
	outcome := b.place(p, true)
	if outcome.Accepted {
		b.autoFinalize()
	}
	return outcome
}

// place validates and writes without the draft cleanup pass.
func (b *Board) place(p Proposal, checkInstructor bool) models.Outcome {
	outcome := b.validate(p, checkInstructor)
	if !outcome.Accepted {
		return outcome
	}
	start := outcome.StartDay
	b.store.Set(models.Placement{
		EventID:  p.EventID,
		CourseID: p.CourseID,
		StartDay: &start,
		Days:     outcome.Days,
		Room:     copyInt(p.Room),
		Draft:    p.Draft,
	})
	return outcome
}

// Assign offers a course at an event without placing it. An existing placement is kept.
func (b *Board) Assign(eventID, courseID string) error {
	if _, ok := b.events[eventID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	}
	if _, ok := b.courses[courseID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCourse, courseID)
	}
	key := models.PlacementKey{EventID: eventID, CourseID: courseID}
	if _, ok := b.store.Get(key); ok {
		return nil
	}
	b.store.Set(models.Placement{EventID: eventID, CourseID: courseID})
	return nil
}

// Unplace strips room and days but keeps the course assigned to the event.
func (b *Board) Unplace(eventID, courseID string) bool {
	p, ok := b.store.Get(models.PlacementKey{EventID: eventID, CourseID: courseID})
	if !ok {
		return false
	}
	b.strip(p)
	b.autoFinalize()
	return true
}

// Remove deletes the placement and the assignment of a course at an event.
func (b *Board) Remove(eventID, courseID string) bool {
	if !b.store.Remove(models.PlacementKey{EventID: eventID, CourseID: courseID}) {
		return false
	}
	b.autoFinalize()
	return true
}

// RemoveCourse deletes a course and every placement referencing it.
func (b *Board) RemoveCourse(courseID string) ([]models.PlacementKey, error) {
	if _, ok := b.courses[courseID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCourse, courseID)
	}
	var removed []models.PlacementKey
	for _, p := range b.store.ForCourse(courseID) {
		b.store.Remove(p.Key())
		removed = append(removed, p.Key())
	}
	delete(b.courses, courseID)
	delete(b.duplicates, courseID)
	b.dropCandidates(courseID)
	b.autoFinalize()
	return removed, nil
}

// Finalize promotes a draft placement to non-draft after re-validating it.
func (b *Board) Finalize(eventID, courseID string) (models.Outcome, error) {
	p, ok := b.store.Get(models.PlacementKey{EventID: eventID, CourseID: courseID})
	if !ok {
		return models.Outcome{}, fmt.Errorf("%w: %s has no placement at %s", ErrUnknownCourse, courseID, eventID)
	}
	if !p.IsPlaced() {
		return reject(models.ReasonNotPlaced, fmt.Sprintf("course %s is not placed at %s", courseID, eventID)), nil
	}
	return b.Place(Proposal{EventID: eventID, CourseID: courseID, Room: p.Room, StartDay: *p.StartDay}), nil
}

// PlanEvents lists the placements a bulk event load would strip because their
// event now has fewer rooms. Nothing is changed.
func (b *Board) PlanEvents(events []models.Event) []models.Displacement {
	rooms := make(map[string]int, len(events))
	for _, event := range events {
		id := strings.TrimSpace(event.ID)
		if _, seen := rooms[id]; seen || id == "" {
			continue
		}
		count := event.RoomCount
		if count == 0 {
			count = 1
		}
		rooms[id] = count
	}
	var displaced []models.Displacement
	for _, p := range b.store.All() {
		count, ok := rooms[p.EventID]
		if !ok || count < 1 || p.Room == nil || *p.Room <= count {
			continue
		}
		displaced = append(displaced, models.Displacement{EventID: p.EventID, CourseID: p.CourseID, Room: *p.Room})
	}
	return displaced
}

// PlanRoomCount lists the placements a room-count change would strip. Nothing is changed.
func (b *Board) PlanRoomCount(eventID string, rooms int) ([]models.Displacement, error) {
	if _, ok := b.events[eventID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	}
	if rooms < 1 {
		return nil, ErrInvalidRoomCount
	}
	var displaced []models.Displacement
	for _, p := range b.store.ForEvent(eventID) {
		if p.Room != nil && *p.Room > rooms {
			displaced = append(displaced, models.Displacement{EventID: eventID, CourseID: p.CourseID, Room: *p.Room})
		}
	}
	return displaced, nil
}

// ApplyRoomCount changes the room count and strips the displaced placements,
// which stay assigned to the event. Callers confirm via PlanRoomCount first.
func (b *Board) ApplyRoomCount(eventID string, rooms int) ([]models.Displacement, error) {
	displaced, err := b.PlanRoomCount(eventID, rooms)
	if err != nil {
		return nil, err
	}
	event := b.events[eventID]
	event.RoomCount = rooms
	b.events[eventID] = event
	for _, d := range displaced {
		if p, ok := b.store.Get(models.PlacementKey{EventID: d.EventID, CourseID: d.CourseID}); ok {
			b.strip(p)
		}
	}
	for id, slot := range b.slots {
		if slot.Gap.EventID == eventID && slot.Gap.Room > rooms {
			delete(b.slots, id)
		}
	}
	b.autoFinalize()
	return displaced, nil
}

// DuplicateCourses lists course ids that appeared more than once in the last load.
func (b *Board) DuplicateCourses() []models.DuplicateCourse {
	out := make([]models.DuplicateCourse, 0, len(b.duplicates))
	for id, records := range b.duplicates {
		out = append(out, models.DuplicateCourse{ID: id, Records: append([]models.Course(nil), records...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResolveDuplicate keeps one record of a duplicated course id.
func (b *Board) ResolveDuplicate(courseID string, keep int) (models.Course, error) {
	records, ok := b.duplicates[courseID]
	if !ok {
		return models.Course{}, fmt.Errorf("%w: %s", ErrNoDuplicates, courseID)
	}
	if keep < 0 || keep >= len(records) {
		return models.Course{}, ErrDuplicateIndex
	}
	chosen := records[keep]
	previous := b.courses[courseID]
	b.courses[courseID] = chosen
	delete(b.duplicates, courseID)
	if previous.OccupiedDays() != chosen.OccupiedDays() {
		for _, p := range b.store.ForCourse(courseID) {
			if p.IsPlaced() {
				b.refit(p)
			}
		}
	}
	b.autoFinalize()
	return chosen, nil
}

// Rebuild regenerates every derived structure from the source records.
func (b *Board) Rebuild() {
	b.store.Rebuild()
	b.rebuildIndex()
	b.autoFinalize()
}

// Consistent reports whether the assignment index matches the placements.
func (b *Board) Consistent() bool {
	return b.store.Consistent()
}

func (b *Board) rebuildIndex() {
	b.index = BuildUnavailabilityIndex(b.entries, b.Events(), b.calendar)
}

// strip turns a placement back into a bare assignment.
func (b *Board) strip(p models.Placement) {
	p.StartDay = nil
	p.Days = nil
	p.Room = nil
	p.Draft = false
	b.store.Set(p)
}

// refit re-validates a placement after its course length changed.
func (b *Board) refit(p models.Placement) string {
	outcome := b.Validate(Proposal{EventID: p.EventID, CourseID: p.CourseID, Room: p.Room, StartDay: *p.StartDay, Draft: p.Draft})
	if !outcome.Accepted {
		b.strip(p)
		return fmt.Sprintf("placement %s@%s unplaced: %s", p.CourseID, p.EventID, outcome.Rejection.Message)
	}
	start := outcome.StartDay
	p.StartDay = &start
	p.Days = outcome.Days
	b.store.Set(p)
	return ""
}

// autoFinalize clears the draft flag on drafts that no longer overlap anything in their room.
func (b *Board) autoFinalize() {
	for _, p := range b.store.All() {
		if !p.Draft {
			continue
		}
		if p.Room != nil && p.IsPlaced() && b.overlapsAny(p) {
			continue
		}
		p.Draft = false
		b.store.Set(p)
	}
}

func (b *Board) overlapsAny(p models.Placement) bool {
	for _, other := range b.store.ForEvent(p.EventID) {
		if other.CourseID == p.CourseID || other.Room == nil || *other.Room != *p.Room {
			continue
		}
		if len(intersect(p.Days, other.Days)) > 0 {
			return true
		}
	}
	return false
}

func outOfRange(p models.Placement, event models.Event) bool {
	if p.Room != nil && *p.Room > event.RoomCount {
		return true
	}
	for _, d := range p.Days {
		if d < 1 || d > event.TotalDays {
			return true
		}
	}
	return false
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
