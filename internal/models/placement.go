package models

import (
	"fmt"
	"strings"
	"time"
)

// PlacementKey identifies a placement by its (event, course) pair.
type PlacementKey struct {
	EventID  string `json:"event_id"`
	CourseID string `json:"course_id"`
}

// Placement binds a course to an event and optionally to a room and day range.
// A nil StartDay means the course is assigned to the event but not yet placed.
type Placement struct {
	EventID  string `db:"event_id" json:"event_id"`
	CourseID string `db:"course_id" json:"course_id"`
	StartDay *int   `db:"start_day" json:"start_day"`
	Days     []int  `db:"-" json:"days"`
	Room     *int   `db:"room" json:"room"`
	Draft    bool   `db:"draft" json:"draft"`
}

// Key returns the composite key of the placement.
func (p Placement) Key() PlacementKey {
	return PlacementKey{EventID: p.EventID, CourseID: p.CourseID}
}

// IsPlaced reports whether the placement occupies any day.
func (p Placement) IsPlaced() bool {
	return p.StartDay != nil && len(p.Days) > 0
}

// Clone returns a deep copy safe to hand out of the store.
func (p Placement) Clone() Placement {
	clone := p
	if p.StartDay != nil {
		v := *p.StartDay
		clone.StartDay = &v
	}
	if p.Room != nil {
		v := *p.Room
		clone.Room = &v
	}
	if p.Days != nil {
		clone.Days = append([]int(nil), p.Days...)
	}
	return clone
}

// RejectionReason enumerates why a proposed placement was refused.
type RejectionReason string

const (
	ReasonTooLong               RejectionReason = "TOO_LONG"
	ReasonInstructorUnavailable RejectionReason = "INSTRUCTOR_UNAVAILABLE"
	ReasonRoomConflict          RejectionReason = "ROOM_CONFLICT"
	ReasonUnknownEvent          RejectionReason = "UNKNOWN_EVENT"
	ReasonUnknownCourse         RejectionReason = "UNKNOWN_COURSE"
	ReasonRoomOutOfRange        RejectionReason = "ROOM_OUT_OF_RANGE"
	ReasonNotPlaced             RejectionReason = "NOT_PLACED"
)

// Rejection carries the structured reason a placement was refused.
type Rejection struct {
	Reason    RejectionReason `json:"reason"`
	Days      []int           `json:"days,omitempty"`
	CourseIDs []string        `json:"course_ids,omitempty"`
	Message   string          `json:"message"`
}

// Error lets a rejection travel as an error when a caller needs one.
func (r *Rejection) Error() string {
	if r == nil {
		return "<nil>"
	}
	return r.Message
}

// Outcome is the tagged result of validating a placement proposal.
type Outcome struct {
	Accepted  bool       `json:"accepted"`
	StartDay  int        `json:"start_day,omitempty"`
	Days      []int      `json:"days,omitempty"`
	Clamped   bool       `json:"clamped,omitempty"`
	Rejection *Rejection `json:"rejection,omitempty"`
}

// PlacementRow is the flat export/import shape of a placement. StartDay is only
// consulted when the event has no calendar dates to match FirstDay against.
type PlacementRow struct {
	CourseID     string     `db:"course_id" json:"course_id" yaml:"course_id"`
	DurationDays float64    `db:"duration_days" json:"duration_days" yaml:"duration_days"`
	FirstDay     *time.Time `db:"first_day" json:"first_day,omitempty" yaml:"first_day,omitempty"`
	LastDay      *time.Time `db:"last_day" json:"last_day,omitempty" yaml:"last_day,omitempty"`
	EventID      string     `db:"event_id" json:"event_id" yaml:"event_id"`
	RoomNumber   *int       `db:"room_number" json:"room_number,omitempty" yaml:"room_number,omitempty"`
	StartDay     int        `db:"start_day" json:"start_day,omitempty" yaml:"start_day,omitempty"`
	Draft        bool       `db:"draft" json:"draft,omitempty" yaml:"draft,omitempty"`
}

// ConflictRow lists a placement whose days collide with instructor unavailability.
type ConflictRow struct {
	EventID       string `json:"event_id"`
	CourseID      string `json:"course_id"`
	Instructor    string `json:"instructor"`
	ScheduledDays [2]int `json:"scheduled_days"`
	ConflictDays  []int  `json:"conflict_days"`
}

// RowError describes one rejected input row during a bulk load.
type RowError struct {
	Row     int    `json:"row"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	if e.ID != "" {
		return fmt.Sprintf("row %d (%s): %s", e.Row, e.ID, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ImportReport summarises a bulk load.
type ImportReport struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Failed reports whether any row was skipped.
func (r ImportReport) Failed() bool {
	return len(r.Errors) > 0
}

// Summary renders a one-line description for logs.
func (r ImportReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d imported", r.Imported)
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, ", %d skipped", len(r.Errors))
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, ", %d warnings", len(r.Warnings))
	}
	return b.String()
}
