package models

// OccupancyReport aggregates room-day usage for one event.
type OccupancyReport struct {
	EventID       string    `json:"event_id"`
	TotalDays     int       `json:"total_days"`
	RoomCount     int       `json:"room_count"`
	Occupied      []RoomDay `json:"occupied"`
	Unbooked      []RoomDay `json:"unbooked"`
	FullyBooked   bool      `json:"fully_booked"`
	FillRate      float64   `json:"fill_rate"`
	FilledDays    int       `json:"filled_days"`
	AssignedCount int       `json:"assigned_count"`
	PlacedCount   int       `json:"placed_count"`
}

// Gap is a maximal run of free days in one room.
type Gap struct {
	EventID  string `json:"event_id"`
	Room     int    `json:"room"`
	StartDay int    `json:"start_day"`
	Length   int    `json:"length"`
}

// EndDay is the last day covered by the gap.
func (g Gap) EndDay() int {
	return g.StartDay + g.Length - 1
}

// DraftCandidate is a course pending in a draft slot.
type DraftCandidate struct {
	CourseID string `json:"course_id"`
}

// DraftSlot holds tentative candidates for a free room/day range.
type DraftSlot struct {
	ID         string           `json:"id"`
	Gap        Gap              `json:"gap"`
	Candidates []DraftCandidate `json:"candidates"`
}

// Displacement is a placement a room-count reduction would strip.
type Displacement struct {
	EventID  string `json:"event_id"`
	CourseID string `json:"course_id"`
	Room     int    `json:"room"`
}

// DuplicateCourse groups course records sharing an id.
type DuplicateCourse struct {
	ID      string   `json:"id"`
	Records []Course `json:"records"`
}

// Snapshot is the full persisted state of a board.
type Snapshot struct {
	Events         []Event               `json:"events" yaml:"events"`
	Courses        []Course              `json:"courses" yaml:"courses"`
	Unavailability []UnavailabilityEntry `json:"unavailability" yaml:"unavailability"`
	Placements     []PlacementRow        `json:"placements" yaml:"placements"`
}
