package models

import "time"

// SlotState represents the lifecycle state of an appointment slot.
type SlotState string

const (
	SlotAvailable SlotState = "AVAILABLE"
	SlotReserved  SlotState = "RESERVED"
	SlotAttended  SlotState = "ATTENDED"
	SlotCancelled SlotState = "CANCELLED"
	SlotNoShow    SlotState = "NO_SHOW"
)

// Valid returns true when the state is a supported value.
func (s SlotState) Valid() bool {
	switch s {
	case SlotAvailable, SlotReserved, SlotAttended, SlotCancelled, SlotNoShow:
		return true
	default:
		return false
	}
}

// Terminal reports whether the state counts toward attendance reporting.
func (s SlotState) Terminal() bool {
	return s == SlotAttended || s == SlotCancelled || s == SlotNoShow
}

// Slot is one bookable time interval on a professional's calendar.
// (professional, date, start_time) is unique; an AVAILABLE slot has no patient.
type Slot struct {
	ID             string    `db:"id" json:"id"`
	ProfessionalID string    `db:"professional_id" json:"professional_id"`
	ScheduleID     *string   `db:"schedule_id" json:"schedule_id,omitempty"`
	PatientID      *string   `db:"patient_id" json:"patient_id,omitempty"`
	Date           time.Time `db:"date" json:"date"`
	StartTime      string    `db:"start_time" json:"start_time"`
	EndTime        string    `db:"end_time" json:"end_time"`
	State          SlotState `db:"state" json:"state"`
	VisitReason    *string   `db:"visit_reason" json:"visit_reason,omitempty"`
	CancelReason   *string   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Justification  *string   `db:"justification" json:"justification,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UpdateSlotRequest drives the role-dependent slot mutation endpoint:
// patients book or self-report an absence, professionals set the state.
type UpdateSlotRequest struct {
	State         *SlotState `json:"state,omitempty"`
	VisitReason   *string    `json:"visit_reason,omitempty"`
	Justification *string    `json:"justification,omitempty"`
}

// BookSlotRequest reserves an available slot for the calling patient.
type BookSlotRequest struct {
	VisitReason *string `json:"visit_reason,omitempty"`
}

// CancelSlotRequest cancels the calling patient's reservation. The reason
// is optional; a default is recorded when the patient gives none.
type CancelSlotRequest struct {
	Reason string `json:"reason"`
}

// ReportAbsenceRequest lets a patient explain a missed or upcoming absence.
type ReportAbsenceRequest struct {
	Justification string `json:"justification" validate:"required"`
}

// SlotFilter scopes slot listing queries.
type SlotFilter struct {
	ScheduleID     string
	ProfessionalID string
	PatientID      string
	State          *SlotState
	DateFrom       *time.Time
	DateTo         *time.Time
	// AvailableOnly restricts results to unassigned AVAILABLE slots, with an
	// optional carve-out for one patient's own RESERVED slots.
	AvailableOnly    bool
	OwnReservedFor   string
	Page             int
	PageSize         int
	SortBy           string
	SortOrder        string
}
