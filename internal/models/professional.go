package models

import (
	"time"

	"github.com/lib/pq"
)

// Professional represents a medical professional profile.
type Professional struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	LicenseNumber   string         `db:"license_number" json:"license_number"`
	Specialty       string         `db:"specialty" json:"specialty"`
	Phone           string         `db:"phone" json:"phone"`
	WorkStart       string         `db:"work_start" json:"work_start"`
	WorkEnd         string         `db:"work_end" json:"work_end"`
	AttendanceDays  pq.StringArray `db:"attendance_days" json:"attendance_days"`
	SlotDurationMin int            `db:"slot_duration_min" json:"slot_duration_min"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// ProfessionalFilter captures filtering criteria for listing professionals.
type ProfessionalFilter struct {
	Specialty string
	Search    string
	Page      int
	PageSize  int
}

// RegisterProfessionalRequest creates a user account together with its
// professional profile. Admin only.
type RegisterProfessionalRequest struct {
	Username        string   `json:"username" validate:"required,min=3,max=64"`
	Password        string   `json:"password" validate:"required,min=8"`
	FullName        string   `json:"full_name" validate:"required"`
	LicenseNumber   string   `json:"license_number" validate:"required"`
	Specialty       string   `json:"specialty" validate:"required"`
	Phone           string   `json:"phone"`
	WorkStart       string   `json:"work_start" validate:"required"`
	WorkEnd         string   `json:"work_end" validate:"required"`
	AttendanceDays  []string `json:"attendance_days" validate:"required,min=1,dive,required"`
	SlotDurationMin int      `json:"slot_duration_min" validate:"required,gt=0"`
	IP              string   `json:"-"`
	UserAgent       string   `json:"-"`
}

// UpdateProfessionalRequest updates the mutable fields of a profile.
type UpdateProfessionalRequest struct {
	Specialty       *string  `json:"specialty,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	WorkStart       *string  `json:"work_start,omitempty"`
	WorkEnd         *string  `json:"work_end,omitempty"`
	AttendanceDays  []string `json:"attendance_days,omitempty"`
	SlotDurationMin *int     `json:"slot_duration_min,omitempty" validate:"omitempty,gt=0"`
}
