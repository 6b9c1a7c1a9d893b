package models

import (
	"time"

	"github.com/lib/pq"
)

// Schedule is a month-scoped generator definition for a professional's
// appointment slots. Month is always the first day of the month.
// At most one schedule exists per (professional, month).
type Schedule struct {
	ID               string         `db:"id" json:"id"`
	ProfessionalID   string         `db:"professional_id" json:"professional_id"`
	Month            time.Time      `db:"month" json:"month"`
	StartTime        string         `db:"start_time" json:"start_time"`
	EndTime          string         `db:"end_time" json:"end_time"`
	SlotDurationMin  int            `db:"slot_duration_min" json:"slot_duration_min"`
	UnavailableDates pq.StringArray `db:"unavailable_dates" json:"unavailable_dates"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleDetail extends a schedule with owner metadata for listings.
type ScheduleDetail struct {
	Schedule
	ProfessionalName string `db:"professional_name" json:"professional_name"`
	Specialty        string `db:"specialty" json:"specialty"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	ProfessionalID string
	Month          *time.Time
	Page           int
	PageSize       int
}

// CreateScheduleRequest defines a new monthly schedule. Slots are generated
// immediately from this definition.
type CreateScheduleRequest struct {
	ProfessionalID   string   `json:"professional_id" validate:"required,uuid4"`
	Month            string   `json:"month" validate:"required,datetime=2006-01"`
	StartTime        string   `json:"start_time" validate:"required"`
	EndTime          string   `json:"end_time" validate:"required"`
	SlotDurationMin  int      `json:"slot_duration_min" validate:"required,gt=0"`
	UnavailableDates []string `json:"unavailable_dates" validate:"omitempty,dive,datetime=2006-01-02"`
}

// UpdateScheduleRequest edits a schedule definition. Existing slots are
// never regenerated by an edit.
type UpdateScheduleRequest struct {
	StartTime        *string  `json:"start_time,omitempty"`
	EndTime          *string  `json:"end_time,omitempty"`
	SlotDurationMin  *int     `json:"slot_duration_min,omitempty" validate:"omitempty,gt=0"`
	UnavailableDates []string `json:"unavailable_dates,omitempty" validate:"omitempty,dive,datetime=2006-01-02"`
}
