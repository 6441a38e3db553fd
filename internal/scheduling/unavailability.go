package scheduling

import (
	"sort"
	"strings"

	"github.com/noah-isme/roomboard/internal/models"
)

// BlockKey identifies an (instructor, event) pair in the unavailability index.
type BlockKey struct {
	Instructor string
	EventID    string
}

// UnavailabilityIndex holds, per instructor and event, the sorted day numbers the
// instructor cannot teach. It is rebuilt wholesale from its inputs, never patched.
type UnavailabilityIndex struct {
	blocked   map[BlockKey][]int
	totalDays map[string]int
}

// BuildUnavailabilityIndex matches every entry against every event's calendar.
func BuildUnavailabilityIndex(entries []models.UnavailabilityEntry, events []models.Event, calendar Calendar) *UnavailabilityIndex {
	idx := &UnavailabilityIndex{
		blocked:   make(map[BlockKey][]int),
		totalDays: make(map[string]int, len(events)),
	}
	sets := make(map[BlockKey]map[int]struct{})

	for _, event := range events {
		idx.totalDays[event.ID] = len(calendar[event.ID])
	}

	for _, entry := range entries {
		start := DateOnly(entry.Start)
		end := DateOnly(entry.End)
		for _, name := range splitInstructors(entry.Instructor) {
			for _, event := range events {
				for _, d := range calendar[event.ID] {
					if d.Date.IsZero() || d.Date.Before(start) || d.Date.After(end) {
						continue
					}
					key := BlockKey{Instructor: name, EventID: event.ID}
					if sets[key] == nil {
						sets[key] = make(map[int]struct{})
					}
					sets[key][d.Number] = struct{}{}
				}
			}
		}
	}

	for key, set := range sets {
		days := make([]int, 0, len(set))
		for n := range set {
			days = append(days, n)
		}
		sort.Ints(days)
		idx.blocked[key] = days
	}
	return idx
}

// BlockedDays returns the sorted blocked day numbers, empty when none.
func (i *UnavailabilityIndex) BlockedDays(instructor, eventID string) []int {
	if i == nil {
		return []int{}
	}
	days := i.blocked[BlockKey{Instructor: normalizeInstructor(instructor), EventID: eventID}]
	return append([]int{}, days...)
}

// BlockedForCourse unions the blocked days of every instructor teaching the course.
func (i *UnavailabilityIndex) BlockedForCourse(course models.Course, eventID string) []int {
	names := course.Instructors()
	if len(names) == 1 {
		return i.BlockedDays(names[0], eventID)
	}
	set := make(map[int]struct{})
	for _, name := range names {
		for _, d := range i.BlockedDays(name, eventID) {
			set[d] = struct{}{}
		}
	}
	days := make([]int, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// HasCapacity is a count check only: it can pass when no contiguous free block
// of the right length exists. Placement validation is authoritative.
func (i *UnavailabilityIndex) HasCapacity(instructor, eventID string, durationDays float64) bool {
	if i == nil {
		return false
	}
	total, ok := i.totalDays[eventID]
	if !ok {
		return false
	}
	return total-len(i.BlockedDays(instructor, eventID)) >= models.OccupiedDays(durationDays)
}

// Entries returns a copy of the whole index.
func (i *UnavailabilityIndex) Entries() map[BlockKey][]int {
	out := make(map[BlockKey][]int, len(i.blocked))
	for key, days := range i.blocked {
		out[key] = append([]int(nil), days...)
	}
	return out
}

func normalizeInstructor(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func splitInstructors(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if n := normalizeInstructor(part); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func intersect(a, b []int) []int {
	set := make(map[int]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []int
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
