package models

import (
	"math"
	"strings"
)

// Course is an offering that can be placed into an event.
type Course struct {
	ID           string  `db:"id" json:"id" yaml:"id"`
	Instructor   string  `db:"instructor" json:"instructor" yaml:"instructor"`
	Name         string  `db:"name" json:"name" yaml:"name"`
	DurationDays float64 `db:"duration_days" json:"duration_days" yaml:"duration_days"`
	Topic        string  `db:"topic" json:"topic,omitempty" yaml:"topic,omitempty"`
}

// OccupiedDays is the whole number of day slots the course takes. Half days round up.
func (c Course) OccupiedDays() int {
	return OccupiedDays(c.DurationDays)
}

// Instructors splits the comma separated instructor field.
func (c Course) Instructors() []string {
	parts := strings.Split(c.Instructor, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// OccupiedDays converts a stated duration into occupied day slots.
func OccupiedDays(duration float64) int {
	if duration <= 0 {
		return 0
	}
	return int(math.Ceil(duration))
}
