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

const noShowColumns = `id, slot_id, patient_id, date, justification, state, created_at, updated_at, deleted_at`

// NoShowRepository provides persistence for no-show records.
type NoShowRepository struct {
	db *sqlx.DB
}

// NewNoShowRepository creates a new no-show repository.
func NewNoShowRepository(db *sqlx.DB) *NoShowRepository {
	return &NoShowRepository{db: db}
}

// List returns no-show records scoped by the filter, newest slot first.
func (r *NoShowRepository) List(ctx context.Context, filter models.NoShowFilter) ([]models.NoShow, int, error) {
	base := `FROM no_shows WHERE deleted_at IS NULL`
	var conditions []string
	var args []interface{}

	if filter.PatientID != "" {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)+1))
		args = append(args, filter.PatientID)
	}
	if filter.ProfessionalID != "" {
		conditions = append(conditions, fmt.Sprintf("slot_id IN (SELECT id FROM slots WHERE professional_id = $%d)", len(args)+1))
		args = append(args, filter.ProfessionalID)
	}
	if filter.State != nil {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, *filter.State)
	}
	if filter.SubmittedOnly {
		conditions = append(conditions, "justification IS NOT NULL")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC, created_at DESC LIMIT %d OFFSET %d", noShowColumns, base, size, offset)
	var records []models.NoShow
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list no-shows: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count no-shows: %w", err)
	}

	return records, total, nil
}

// FindByID loads a no-show record by id.
func (r *NoShowRepository) FindByID(ctx context.Context, id string) (*models.NoShow, error) {
	query := fmt.Sprintf("SELECT %s FROM no_shows WHERE id = $1 AND deleted_at IS NULL LIMIT 1", noShowColumns)
	var record models.NoShow
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find no-show by id: %w", err)
	}
	return &record, nil
}

// Upsert atomically gets-or-creates the record for a slot. The unique index
// on slot_id resolves concurrent marking paths: the insert wins once, every
// other caller updates the same row. Repeated calls never create duplicates.
func (r *NoShowRepository) Upsert(ctx context.Context, record *models.NoShow) (*models.NoShow, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO no_shows (id, slot_id, patient_id, date, justification, state, created_at, updated_at)
VALUES (:id, :slot_id, :patient_id, :date, :justification, :state, :created_at, :updated_at)
ON CONFLICT (slot_id) DO UPDATE SET
	justification = COALESCE(EXCLUDED.justification, no_shows.justification),
	state = EXCLUDED.state,
	updated_at = EXCLUDED.updated_at
RETURNING ` + noShowColumns

	rows, err := r.db.NamedQueryContext(ctx, query, record)
	if err != nil {
		return nil, fmt.Errorf("upsert no-show: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("upsert no-show: no row returned")
	}
	var stored models.NoShow
	if err := rows.StructScan(&stored); err != nil {
		return nil, fmt.Errorf("scan upserted no-show: %w", err)
	}
	return &stored, nil
}

// UpdateJustification stores new justification text and state.
func (r *NoShowRepository) UpdateJustification(ctx context.Context, id string, justification *string, state models.NoShowState) error {
	const query = `UPDATE no_shows SET justification = $2, state = $3, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, justification, state); err != nil {
		return fmt.Errorf("update no-show justification: %w", err)
	}
	return nil
}

// SoftDelete marks a record as deleted without losing history.
func (r *NoShowRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE no_shows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("soft delete no-show: %w", err)
	}
	return nil
}
