package scheduling

import (
	"sort"

	"github.com/noah-isme/roomboard/internal/models"
)

// ScheduleStore is the authoritative (event, course) -> placement map. Its
// mutators are the only code that touches the assignment index.
type ScheduleStore struct {
	placements  map[models.PlacementKey]*models.Placement
	assignments map[string]map[string]struct{}
}

// NewScheduleStore returns an empty store.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{
		placements:  make(map[models.PlacementKey]*models.Placement),
		assignments: make(map[string]map[string]struct{}),
	}
}

// Get returns a copy of the placement stored under key.
func (s *ScheduleStore) Get(key models.PlacementKey) (models.Placement, bool) {
	p, ok := s.placements[key]
	if !ok {
		return models.Placement{}, false
	}
	return p.Clone(), true
}

// Set writes or overwrites a placement and records the assignment.
func (s *ScheduleStore) Set(p models.Placement) {
	stored := p.Clone()
	if stored.StartDay == nil {
		stored.Days = nil
	} else {
		sort.Ints(stored.Days)
	}
	s.placements[stored.Key()] = &stored
	if s.assignments[stored.CourseID] == nil {
		s.assignments[stored.CourseID] = make(map[string]struct{})
	}
	s.assignments[stored.CourseID][stored.EventID] = struct{}{}
}

// Remove deletes a placement and its assignment entry.
func (s *ScheduleStore) Remove(key models.PlacementKey) bool {
	if _, ok := s.placements[key]; !ok {
		return false
	}
	delete(s.placements, key)
	if events := s.assignments[key.CourseID]; events != nil {
		delete(events, key.EventID)
		if len(events) == 0 {
			delete(s.assignments, key.CourseID)
		}
	}
	return true
}

// Reset drops every placement.
func (s *ScheduleStore) Reset() {
	s.placements = make(map[models.PlacementKey]*models.Placement)
	s.assignments = make(map[string]map[string]struct{})
}

// Len is the number of stored placements.
func (s *ScheduleStore) Len() int {
	return len(s.placements)
}

// All returns every placement ordered by event then course.
func (s *ScheduleStore) All() []models.Placement {
	out := make([]models.Placement, 0, len(s.placements))
	for _, p := range s.placements {
		out = append(out, p.Clone())
	}
	sortPlacements(out)
	return out
}

// ForEvent returns the placements of one event ordered by course.
func (s *ScheduleStore) ForEvent(eventID string) []models.Placement {
	var out []models.Placement
	for key, p := range s.placements {
		if key.EventID == eventID {
			out = append(out, p.Clone())
		}
	}
	sortPlacements(out)
	return out
}

// ForCourse returns the placements of one course ordered by event.
func (s *ScheduleStore) ForCourse(courseID string) []models.Placement {
	var out []models.Placement
	for key, p := range s.placements {
		if key.CourseID == courseID {
			out = append(out, p.Clone())
		}
	}
	sortPlacements(out)
	return out
}

// OccupiedRoomDays is the union of (room, day) pairs held by non-draft placements.
func (s *ScheduleStore) OccupiedRoomDays(eventID string) []models.RoomDay {
	set := make(map[models.RoomDay]struct{})
	for key, p := range s.placements {
		if key.EventID != eventID || p.Draft || p.Room == nil {
			continue
		}
		for _, d := range p.Days {
			set[models.RoomDay{Room: *p.Room, Day: d}] = struct{}{}
		}
	}
	out := make([]models.RoomDay, 0, len(set))
	for rd := range set {
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Room == out[j].Room {
			return out[i].Day < out[j].Day
		}
		return out[i].Room < out[j].Room
	})
	return out
}

// FillRate is the share of days covered by any placement in any room.
func (s *ScheduleStore) FillRate(eventID string, totalDays int) (float64, int) {
	if totalDays <= 0 {
		return 0, 0
	}
	filled := make(map[int]struct{})
	for key, p := range s.placements {
		if key.EventID != eventID {
			continue
		}
		for _, d := range p.Days {
			if d >= 1 && d <= totalDays {
				filled[d] = struct{}{}
			}
		}
	}
	return float64(len(filled)) / float64(totalDays), len(filled)
}

// IsAssigned reports whether the course is offered at any event.
func (s *ScheduleStore) IsAssigned(courseID string) bool {
	return len(s.assignments[courseID]) > 0
}

// EventsFor lists the events a course is assigned to.
func (s *ScheduleStore) EventsFor(courseID string) []string {
	events := make([]string, 0, len(s.assignments[courseID]))
	for eventID := range s.assignments[courseID] {
		events = append(events, eventID)
	}
	sort.Strings(events)
	return events
}

// Consistent checks the assignment index against the placements in both directions.
func (s *ScheduleStore) Consistent() bool {
	for key := range s.placements {
		if _, ok := s.assignments[key.CourseID][key.EventID]; !ok {
			return false
		}
	}
	for courseID, events := range s.assignments {
		if len(events) == 0 {
			return false
		}
		for eventID := range events {
			if _, ok := s.placements[models.PlacementKey{EventID: eventID, CourseID: courseID}]; !ok {
				return false
			}
		}
	}
	return true
}

// Rebuild regenerates the assignment index from the placements.
func (s *ScheduleStore) Rebuild() {
	s.assignments = make(map[string]map[string]struct{})
	for key := range s.placements {
		if s.assignments[key.CourseID] == nil {
			s.assignments[key.CourseID] = make(map[string]struct{})
		}
		s.assignments[key.CourseID][key.EventID] = struct{}{}
	}
}

func sortPlacements(items []models.Placement) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].EventID == items[j].EventID {
			return items[i].CourseID < items[j].CourseID
		}
		return items[i].EventID < items[j].EventID
	})
}
