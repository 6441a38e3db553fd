package models

import "time"

// Event is a multi-day gathering with a fixed day count and parallel rooms.
type Event struct {
	ID        string     `db:"id" json:"id" yaml:"id"`
	Name      string     `db:"name" json:"name" yaml:"name"`
	TotalDays int        `db:"total_days" json:"total_days" yaml:"total_days"`
	RoomCount int        `db:"room_count" json:"room_count" yaml:"room_count"`
	FirstDay  *time.Time `db:"first_day" json:"first_day,omitempty" yaml:"first_day,omitempty"`
	LastDay   *time.Time `db:"last_day" json:"last_day,omitempty" yaml:"last_day,omitempty"`
	Location  string     `db:"location" json:"location,omitempty" yaml:"location,omitempty"`
	Notes     string     `db:"notes" json:"notes,omitempty" yaml:"notes,omitempty"`
}

// HasDateRange reports whether the event carries a calendar range.
func (e Event) HasDateRange() bool {
	return e.FirstDay != nil && e.LastDay != nil
}

// Day is one numbered day of an event.
type Day struct {
	EventID string    `json:"event_id"`
	Number  int       `json:"number"`
	Date    time.Time `json:"date"`
}

// Label renders the day's date the way the board displays it (M/D/YYYY).
func (d Day) Label() string {
	if d.Date.IsZero() {
		return ""
	}
	return d.Date.Format("1/2/2006")
}

// RoomDay is one (room, day) unit of capacity.
type RoomDay struct {
	Room int `json:"room"`
	Day  int `json:"day"`
}
