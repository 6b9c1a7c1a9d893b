package models

// SlotStateCounts aggregates terminal slot states for one reporting scope.
type SlotStateCounts struct {
	Total     int `db:"total" json:"total_slots"`
	Attended  int `db:"attended" json:"attended"`
	NoShows   int `db:"no_shows" json:"no_shows"`
	Cancelled int `db:"cancelled" json:"cancelled"`
}

// JustificationCounts aggregates no-show justification states.
type JustificationCounts struct {
	Pending   int `db:"pending" json:"pending"`
	Approved  int `db:"approved" json:"approved"`
	Rejected  int `db:"rejected" json:"rejected"`
}

// AttendanceReport is the payload returned by the reporting endpoints.
// Percentages are rounded to two decimals; AVAILABLE slots are excluded
// from every total.
type AttendanceReport struct {
	Scope               string               `json:"scope"`
	ScopeID             string               `json:"scope_id,omitempty"`
	TotalSlots          int                  `json:"total_slots"`
	Attended            int                  `json:"attended"`
	NoShows             int                  `json:"no_shows"`
	Cancelled           int                  `json:"cancelled"`
	AttendedPercent     float64              `json:"attended_percent"`
	NoShowPercent       float64              `json:"no_show_percent"`
	CancelledPercent    float64              `json:"cancelled_percent"`
	Justifications      *JustificationCounts `json:"justifications,omitempty"`
}
