package scheduling

import "errors"

// Caller mistakes. Expected placement outcomes are reported through models.Outcome instead.
var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrUnknownCourse    = errors.New("unknown course")
	ErrInvalidRoomCount = errors.New("room count must be at least 1")
	ErrInvalidRoom      = errors.New("room number out of range")
	ErrUnknownSlot      = errors.New("unknown draft slot")
	ErrSlotExists       = errors.New("draft slot already exists")
	ErrCandidateIndex   = errors.New("draft candidate index out of range")
	ErrDuplicateIndex   = errors.New("duplicate record index out of range")
	ErrNoDuplicates     = errors.New("course id has no duplicates")
	ErrInvalidDateRange = errors.New("invalid event date range")
	ErrAlreadyPending   = errors.New("course already pending in slot")
)
