package models

import "time"

// UnavailabilityEntry is a raw instructor-unavailable date range, inclusive on both ends.
type UnavailabilityEntry struct {
	Instructor string    `db:"instructor" json:"instructor" yaml:"instructor"`
	Start      time.Time `db:"start_date" json:"start" yaml:"start"`
	End        time.Time `db:"end_date" json:"end" yaml:"end"`
}

// Covers reports whether the date falls inside the entry.
func (u UnavailabilityEntry) Covers(date time.Time) bool {
	return !date.Before(u.Start) && !date.After(u.End)
}
