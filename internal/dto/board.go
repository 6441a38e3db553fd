package dto

import "github.com/noah-isme/roomboard/internal/models"

// EventInput is one event row of a catalog load. Dates are free-form strings
// parsed with the configured layouts.
type EventInput struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	TotalDays int    `json:"totalDays" yaml:"total_days"`
	RoomCount int    `json:"roomCount" yaml:"room_count"`
	FirstDay  string `json:"firstDay" yaml:"first_day"`
	LastDay   string `json:"lastDay" yaml:"last_day"`
	Location  string `json:"location" yaml:"location"`
	Notes     string `json:"notes" yaml:"notes"`
}

// CourseInput is one course row of a catalog load.
type CourseInput struct {
	ID           string  `json:"id" yaml:"id"`
	Instructor   string  `json:"instructor" yaml:"instructor"`
	Name         string  `json:"name" yaml:"name"`
	DurationDays float64 `json:"durationDays" yaml:"duration_days"`
	Topic        string  `json:"topic" yaml:"topic"`
}

// UnavailabilityInput is one instructor blackout row.
type UnavailabilityInput struct {
	Instructor string `json:"instructor" yaml:"instructor"`
	Start      string `json:"start" yaml:"start"`
	End        string `json:"end" yaml:"end"`
}

// PlacementRowInput is one row of a schedule import.
type PlacementRowInput struct {
	CourseID     string  `json:"courseId" yaml:"course_id"`
	DurationDays float64 `json:"durationDays" yaml:"duration_days"`
	FirstDay     string  `json:"firstDay" yaml:"first_day"`
	LastDay      string  `json:"lastDay" yaml:"last_day"`
	EventID      string  `json:"eventId" yaml:"event_id"`
	RoomNumber   *int    `json:"roomNumber" yaml:"room_number"`
	StartDay     int     `json:"startDay" yaml:"start_day"`
	Draft        bool    `json:"draft" yaml:"draft"`
}

// LoadEventsRequest replaces every event. A load that lowers room counts under
// existing placements requires Confirm.
type LoadEventsRequest struct {
	Events  []EventInput `json:"events" validate:"required"`
	Confirm bool         `json:"confirm"`
}

// LoadCoursesRequest replaces every course.
type LoadCoursesRequest struct {
	Courses []CourseInput `json:"courses" validate:"required"`
}

// LoadUnavailabilityRequest replaces every unavailability entry.
type LoadUnavailabilityRequest struct {
	Entries []UnavailabilityInput `json:"entries" validate:"required"`
}

// ImportPlacementsRequest replaces every placement.
type ImportPlacementsRequest struct {
	Rows []PlacementRowInput `json:"rows" validate:"required"`
}

// BoardFile is the offline board document replayed by the CLI.
type BoardFile struct {
	Events         []EventInput          `yaml:"events"`
	Courses        []CourseInput         `yaml:"courses"`
	Unavailability []UnavailabilityInput `yaml:"unavailability"`
	Placements     []PlacementRowInput   `yaml:"placements"`
}

// RoomCountRequest changes the room count of an event. Reductions that strip
// placements require Confirm.
type RoomCountRequest struct {
	Rooms   int  `json:"rooms" validate:"required,min=1"`
	Confirm bool `json:"confirm"`
}

// RoomCountResponse lists the placements that lost their room and days.
type RoomCountResponse struct {
	EventID   string                `json:"eventId"`
	Rooms     int                   `json:"rooms"`
	Displaced []models.Displacement `json:"displaced"`
}

// PlacementRequest proposes a placement. A nil Room assigns days without a room.
type PlacementRequest struct {
	EventID  string `json:"eventId" validate:"required"`
	CourseID string `json:"courseId" validate:"required"`
	Room     *int   `json:"room" validate:"omitempty,min=1"`
	StartDay int    `json:"startDay"`
	Draft    bool   `json:"draft"`
}

// AssignRequest offers a course at an event without placing it.
type AssignRequest struct {
	EventID  string `json:"eventId" validate:"required"`
	CourseID string `json:"courseId" validate:"required"`
}

// ResolveDuplicateRequest picks which record of a duplicated course id to keep.
type ResolveDuplicateRequest struct {
	Keep int `json:"keep" validate:"min=0"`
}

// OpenSlotRequest opens a draft slot over a free room/day range.
type OpenSlotRequest struct {
	EventID  string `json:"eventId" validate:"required"`
	Room     int    `json:"room" validate:"required,min=1"`
	StartDay int    `json:"startDay" validate:"required,min=1"`
	Length   int    `json:"length" validate:"required,min=1"`
}

// CandidateRequest adds a course to a draft slot.
type CandidateRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

// GapView is a free range with the courses that could fill it.
type GapView struct {
	models.Gap
	Candidates []models.Course `json:"candidates"`
}

// DayView renders one numbered day of an event.
type DayView struct {
	Number int    `json:"number"`
	Date   string `json:"date,omitempty"`
	Label  string `json:"label,omitempty"`
}

// EventView is an event with its expanded calendar.
type EventView struct {
	models.Event
	Days []DayView `json:"days"`
}

// CourseView is a course with its assignment state.
type CourseView struct {
	models.Course
	OccupiedDays int      `json:"occupiedDays"`
	Assigned     bool     `json:"assigned"`
	Events       []string `json:"events"`
}

// PlacementView is a placement with its course for board rendering.
type PlacementView struct {
	models.Placement
	Instructor string `json:"instructor"`
	CourseName string `json:"courseName"`
}

// ExportQuery selects what to render and how.
type ExportQuery struct {
	Kind    string `form:"kind" validate:"omitempty,oneof=placements conflicts"`
	Format  string `form:"format" validate:"required,oneof=csv pdf ics"`
	EventID string `form:"eventId"`
}
