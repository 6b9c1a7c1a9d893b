package models

import "time"

// Patient represents a patient profile linked to a user account.
type Patient struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	DocumentNumber    string    `db:"document_number" json:"document_number"`
	FullName          string    `db:"full_name" json:"full_name"`
	BirthDate         time.Time `db:"birth_date" json:"birth_date"`
	Phone             string    `db:"phone" json:"phone"`
	Email             *string   `db:"email" json:"email,omitempty"`
	Address           string    `db:"address" json:"address"`
	InsuranceProvider *string   `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsuranceNumber   *string   `db:"insurance_number" json:"insurance_number,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// PatientFilter captures filtering criteria for listing patients.
type PatientFilter struct {
	Search   string
	Page     int
	PageSize int
}

// RegisterPatientRequest creates a user account together with its patient
// profile in one transaction.
type RegisterPatientRequest struct {
	Username          string  `json:"username" validate:"required,min=3,max=64"`
	Password          string  `json:"password" validate:"required,min=8"`
	FullName          string  `json:"full_name" validate:"required"`
	DocumentNumber    string  `json:"document_number" validate:"required"`
	BirthDate         string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Phone             string  `json:"phone" validate:"required"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	Address           string  `json:"address"`
	InsuranceProvider *string `json:"insurance_provider,omitempty"`
	InsuranceNumber   *string `json:"insurance_number,omitempty"`
	IP                string  `json:"-"`
	UserAgent         string  `json:"-"`
}
