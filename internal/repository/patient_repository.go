package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saludgo/turnos-api/internal/models"
)

const patientColumns = `id, user_id, document_number, full_name, birth_date, phone, email, address, insurance_provider, insurance_number, created_at, updated_at`

// PatientRepository provides persistence for patient profiles.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository creates a new patient repository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// List returns patients with optional search and pagination.
func (r *PatientRepository) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error) {
	base := "FROM patients WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR document_number LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY full_name ASC LIMIT %d OFFSET %d", patientColumns, base, size, offset)
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	return patients, total, nil
}

// FindByID loads a patient by id.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	query := fmt.Sprintf("SELECT %s FROM patients WHERE id = $1 LIMIT 1", patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find patient by id: %w", err)
	}
	return &patient, nil
}

// FindByUserID loads the patient profile owned by a user account.
func (r *PatientRepository) FindByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	query := fmt.Sprintf("SELECT %s FROM patients WHERE user_id = $1 LIMIT 1", patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find patient by user id: %w", err)
	}
	return &patient, nil
}

// CreateWithTx stores a patient profile inside an existing transaction so the
// owning user row commits atomically with it.
func (r *PatientRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, patient *models.Patient) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	const query = `INSERT INTO patients (id, user_id, document_number, full_name, birth_date, phone, email, address, insurance_provider, insurance_number, created_at, updated_at) VALUES (:id, :user_id, :document_number, :full_name, :birth_date, :phone, :email, :address, :insurance_provider, :insurance_number, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// Delete removes a patient profile. Slots keep their history through the
// ON DELETE SET NULL policy on slots.patient_id.
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}
