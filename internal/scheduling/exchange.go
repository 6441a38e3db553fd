package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/roomboard/internal/models"
)

// ExportPlacements renders every placement as a row. Dates come from the calendar;
// unplaced assignments carry no dates.
func (b *Board) ExportPlacements() []models.PlacementRow {
	placements := b.store.All()
	rows := make([]models.PlacementRow, 0, len(placements))
	for _, p := range placements {
		course := b.courses[p.CourseID]
		row := models.PlacementRow{
			CourseID:     p.CourseID,
			DurationDays: course.DurationDays,
			EventID:      p.EventID,
			RoomNumber:   copyInt(p.Room),
			Draft:        p.Draft,
		}
		if p.IsPlaced() {
			row.StartDay = p.Days[0]
			if first, ok := b.calendar.DateOf(p.EventID, p.Days[0]); ok {
				row.FirstDay = &first
			}
			if last, ok := b.calendar.DateOf(p.EventID, p.Days[len(p.Days)-1]); ok {
				row.LastDay = &last
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EventID != rows[j].EventID {
			return rows[i].EventID < rows[j].EventID
		}
		return rows[i].StartDay < rows[j].StartDay
	})
	return rows
}

// ImportPlacements replaces every placement with the given rows. Rows without an
// event id are matched to the first event whose calendar contains FirstDay.
// Non-draft rows are applied before drafts and drafts are settled once all rows
// are in. Bad rows are skipped and reported. Rows colliding with instructor
// unavailability are kept with a warning and show up in ConflictReport.
func (b *Board) ImportPlacements(rows []models.PlacementRow) models.ImportReport {
	report := models.ImportReport{}
	b.store.Reset()
	b.slots = make(map[string]*models.DraftSlot)

	order := make([]int, 0, len(rows))
	for i := range rows {
		if !rows[i].Draft {
			order = append(order, i)
		}
	}
	for i := range rows {
		if rows[i].Draft {
			order = append(order, i)
		}
	}

	for _, i := range order {
		row := rows[i]
		if err := b.importRow(row, &report); err != nil {
			report.Errors = append(report.Errors, models.RowError{Row: i + 1, ID: row.CourseID, Message: err.Error()})
			continue
		}
		report.Imported++
	}
	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].Row < report.Errors[j].Row })
	b.store.Rebuild()
	b.autoFinalize()
	return report
}

func (b *Board) importRow(row models.PlacementRow, report *models.ImportReport) error {
	course, ok := b.courses[row.CourseID]
	if !ok {
		return fmt.Errorf("unknown course id %q", row.CourseID)
	}

	eventID := row.EventID
	if eventID == "" {
		if row.FirstDay == nil {
			return fmt.Errorf("row has neither an event id nor a first day")
		}
		eventID = b.eventCovering(*row.FirstDay)
		if eventID == "" {
			return fmt.Errorf("no event covers %s", row.FirstDay.Format("2006-01-02"))
		}
	}
	event, ok := b.events[eventID]
	if !ok {
		return fmt.Errorf("unknown event id %q", eventID)
	}
	if row.RoomNumber != nil && (*row.RoomNumber < 1 || *row.RoomNumber > event.RoomCount) {
		return fmt.Errorf("room %d out of range 1..%d", *row.RoomNumber, event.RoomCount)
	}

	start := row.StartDay
	if row.FirstDay != nil {
		n, ok := b.calendar.DayOf(eventID, *row.FirstDay)
		if !ok {
			return fmt.Errorf("%s is outside event %s", row.FirstDay.Format("2006-01-02"), eventID)
		}
		start = n
		if row.LastDay != nil {
			if last, ok := b.calendar.DayOf(eventID, *row.LastDay); ok && last-n+1 != course.OccupiedDays() {
				report.Warnings = append(report.Warnings, fmt.Sprintf("course %s at %s: date span %d differs from duration %d", course.ID, eventID, last-n+1, course.OccupiedDays()))
			}
		}
	}
	if start < 1 {
		return b.Assign(eventID, course.ID)
	}

	outcome := b.place(Proposal{EventID: eventID, CourseID: course.ID, Room: row.RoomNumber, StartDay: start, Draft: row.Draft}, false)
	if !outcome.Accepted {
		return outcome.Rejection
	}
	if blocked := intersect(outcome.Days, b.index.BlockedForCourse(course, eventID)); len(blocked) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("course %s at %s: %s is unavailable on day(s) %s", course.ID, eventID, course.Instructor, joinInts(blocked)))
	}
	return nil
}

func (b *Board) eventCovering(date time.Time) string {
	for _, id := range b.eventOrder {
		if _, ok := b.calendar.DayOf(id, date); ok {
			return id
		}
	}
	return ""
}

// ConflictReport lists non-draft placements whose days intersect their instructor's blocked days.
func (b *Board) ConflictReport() []models.ConflictRow {
	var rows []models.ConflictRow
	for _, p := range b.store.All() {
		if p.Draft || !p.IsPlaced() {
			continue
		}
		course, ok := b.courses[p.CourseID]
		if !ok {
			continue
		}
		conflicts := intersect(p.Days, b.index.BlockedForCourse(course, p.EventID))
		if len(conflicts) == 0 {
			continue
		}
		rows = append(rows, models.ConflictRow{
			EventID:       p.EventID,
			CourseID:      p.CourseID,
			Instructor:    course.Instructor,
			ScheduledDays: [2]int{p.Days[0], p.Days[len(p.Days)-1]},
			ConflictDays:  conflicts,
		})
	}
	return rows
}

// Occupancy summarises room-day usage and fill rate for an event.
func (b *Board) Occupancy(eventID string) (models.OccupancyReport, error) {
	event, ok := b.events[eventID]
	if !ok {
		return models.OccupancyReport{}, fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	}
	occupied := b.store.OccupiedRoomDays(eventID)
	taken := make(map[models.RoomDay]bool, len(occupied))
	for _, rd := range occupied {
		taken[rd] = true
	}
	unbooked := make([]models.RoomDay, 0)
	for room := 1; room <= event.RoomCount; room++ {
		for d := 1; d <= event.TotalDays; d++ {
			rd := models.RoomDay{Room: room, Day: d}
			if !taken[rd] {
				unbooked = append(unbooked, rd)
			}
		}
	}
	rate, filled := b.store.FillRate(eventID, event.TotalDays)

	report := models.OccupancyReport{
		EventID:     eventID,
		TotalDays:   event.TotalDays,
		RoomCount:   event.RoomCount,
		Occupied:    occupied,
		Unbooked:    unbooked,
		FullyBooked: len(unbooked) == 0,
		FillRate:    rate,
		FilledDays:  filled,
	}
	for _, p := range b.store.ForEvent(eventID) {
		report.AssignedCount++
		if p.IsPlaced() {
			report.PlacedCount++
		}
	}
	return report, nil
}

// Snapshot captures the whole board in its persisted shape.
func (b *Board) Snapshot() models.Snapshot {
	courses := b.Courses()
	for _, dup := range b.DuplicateCourses() {
		courses = append(courses, dup.Records[1:]...)
	}
	return models.Snapshot{
		Events:         b.Events(),
		Courses:        courses,
		Unavailability: b.Unavailability(),
		Placements:     b.ExportPlacements(),
	}
}

// Restore replaces the whole board from a snapshot.
func (b *Board) Restore(snapshot models.Snapshot) models.ImportReport {
	b.store.Reset()
	b.slots = make(map[string]*models.DraftSlot)
	merged := models.ImportReport{}
	for _, report := range []models.ImportReport{
		b.LoadEvents(snapshot.Events),
		b.LoadCourses(snapshot.Courses),
		b.LoadUnavailability(snapshot.Unavailability),
		b.ImportPlacements(snapshot.Placements),
	} {
		merged.Imported += report.Imported
		merged.Errors = append(merged.Errors, report.Errors...)
		merged.Warnings = append(merged.Warnings, report.Warnings...)
	}
	return merged
}
