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

const professionalColumns = `id, user_id, license_number, specialty, phone, work_start, work_end, attendance_days, slot_duration_min, created_at, updated_at`

// ProfessionalRepository provides persistence for professional profiles.
type ProfessionalRepository struct {
	db *sqlx.DB
}

// NewProfessionalRepository creates a new professional repository.
func NewProfessionalRepository(db *sqlx.DB) *ProfessionalRepository {
	return &ProfessionalRepository{db: db}
}

// List returns professionals with optional filtering and pagination.
func (r *ProfessionalRepository) List(ctx context.Context, filter models.ProfessionalFilter) ([]models.Professional, int, error) {
	base := "FROM professionals WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(specialty) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Specialty))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(license_number LIKE $%d OR LOWER(specialty) LIKE $%d)", len(args)+1, len(args)+1))
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY specialty ASC, license_number ASC LIMIT %d OFFSET %d", professionalColumns, base, size, offset)
	var professionals []models.Professional
	if err := r.db.SelectContext(ctx, &professionals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list professionals: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count professionals: %w", err)
	}

	return professionals, total, nil
}

// FindByID loads a professional by id.
func (r *ProfessionalRepository) FindByID(ctx context.Context, id string) (*models.Professional, error) {
	query := fmt.Sprintf("SELECT %s FROM professionals WHERE id = $1 LIMIT 1", professionalColumns)
	var prof models.Professional
	if err := r.db.GetContext(ctx, &prof, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find professional by id: %w", err)
	}
	return &prof, nil
}

// FindByUserID loads the professional profile owned by a user account.
func (r *ProfessionalRepository) FindByUserID(ctx context.Context, userID string) (*models.Professional, error) {
	query := fmt.Sprintf("SELECT %s FROM professionals WHERE user_id = $1 LIMIT 1", professionalColumns)
	var prof models.Professional
	if err := r.db.GetContext(ctx, &prof, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find professional by user id: %w", err)
	}
	return &prof, nil
}

// CreateWithTx stores a professional profile inside an existing transaction.
func (r *ProfessionalRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, prof *models.Professional) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if prof.ID == "" {
		prof.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if prof.CreatedAt.IsZero() {
		prof.CreatedAt = now
	}
	prof.UpdatedAt = now

	const query = `INSERT INTO professionals (id, user_id, license_number, specialty, phone, work_start, work_end, attendance_days, slot_duration_min, created_at, updated_at) VALUES (:id, :user_id, :license_number, :specialty, :phone, :work_start, :work_end, :attendance_days, :slot_duration_min, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, prof); err != nil {
		return fmt.Errorf("create professional: %w", err)
	}
	return nil
}

// Update modifies a professional profile.
func (r *ProfessionalRepository) Update(ctx context.Context, prof *models.Professional) error {
	prof.UpdatedAt = time.Now().UTC()
	const query = `UPDATE professionals SET license_number = :license_number, specialty = :specialty, phone = :phone, work_start = :work_start, work_end = :work_end, attendance_days = :attendance_days, slot_duration_min = :slot_duration_min, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, prof); err != nil {
		return fmt.Errorf("update professional: %w", err)
	}
	return nil
}

// Delete removes a professional. Schedules and slots cascade.
func (r *ProfessionalRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM professionals WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete professional: %w", err)
	}
	return nil
}
