package models

import "time"

// NoShowState represents the justification state of a missed appointment.
type NoShowState string

const (
	NoShowPending     NoShowState = "PENDING"
	NoShowJustified   NoShowState = "JUSTIFIED"
	NoShowUnjustified NoShowState = "UNJUSTIFIED"
)

// Valid returns true when the state is a supported value.
func (s NoShowState) Valid() bool {
	switch s {
	case NoShowPending, NoShowJustified, NoShowUnjustified:
		return true
	default:
		return false
	}
}

// EvaluationAction is the decision applied to a pending justification.
type EvaluationAction string

const (
	EvaluationApprove EvaluationAction = "APPROVE"
	EvaluationReject  EvaluationAction = "REJECT"
)

// Valid returns true when the action is a supported value.
func (a EvaluationAction) Valid() bool {
	return a == EvaluationApprove || a == EvaluationReject
}

// NoShow records a missed appointment and its justification workflow state.
// SlotID is nullable for legacy rows but unique when present: at most one
// record exists per slot.
type NoShow struct {
	ID            string      `db:"id" json:"id"`
	SlotID        *string     `db:"slot_id" json:"slot_id,omitempty"`
	PatientID     string      `db:"patient_id" json:"patient_id"`
	Date          time.Time   `db:"date" json:"date"`
	Justification *string     `db:"justification" json:"justification,omitempty"`
	State         NoShowState `db:"state" json:"state"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
}

// SubmitJustificationRequest carries a patient's justification text.
type SubmitJustificationRequest struct {
	Justification string `json:"justification" validate:"required"`
}

// EvaluateJustificationRequest resolves a pending justification.
type EvaluateJustificationRequest struct {
	Action EvaluationAction `json:"action" validate:"required"`
	Note   *string          `json:"note,omitempty"`
}

// NoShowFilter scopes no-show listing queries.
type NoShowFilter struct {
	PatientID      string
	ProfessionalID string
	State          *NoShowState
	// SubmittedOnly keeps records whose justification text has been provided.
	SubmittedOnly bool
	Page          int
	PageSize      int
}
