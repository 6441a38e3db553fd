package models

import "time"

// SystemMetrics is a lightweight snapshot of runtime instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	PlacementsAccepted       uint64    `json:"placements_accepted"`
	PlacementsRejected       uint64    `json:"placements_rejected"`
	SavesSucceeded           uint64    `json:"saves_succeeded"`
	SavesFailed              uint64    `json:"saves_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// BoardStatus reports persistence health of the board.
type BoardStatus struct {
	Events          int        `json:"events"`
	Courses         int        `json:"courses"`
	Placements      int        `json:"placements"`
	Slots           int        `json:"slots"`
	Duplicates      int        `json:"duplicates"`
	Consistent      bool       `json:"consistent"`
	Persistence     bool       `json:"persistence"`
	PendingSave     bool       `json:"pending_save"`
	LastSavedAt     *time.Time `json:"last_saved_at,omitempty"`
	LastSaveError   string     `json:"last_save_error,omitempty"`
	LastSaveErrorAt *time.Time `json:"last_save_error_at,omitempty"`
}
