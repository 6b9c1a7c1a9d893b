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

const scheduleColumns = `id, professional_id, month, start_time, end_time, slot_duration_min, unavailable_dates, created_at, updated_at`

// ErrScheduleMonthTaken signals the (professional, month) uniqueness
// constraint fired.
var ErrScheduleMonthTaken = fmt.Errorf("schedule month already taken")

// ScheduleRepository provides persistence for monthly schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ProfessionalID != "" {
		conditions = append(conditions, fmt.Sprintf("professional_id = $%d", len(args)+1))
		args = append(args, filter.ProfessionalID)
	}
	if filter.Month != nil {
		conditions = append(conditions, fmt.Sprintf("month = $%d", len(args)+1))
		args = append(args, *filter.Month)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY month DESC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1 LIMIT 1", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule by id: %w", err)
	}
	return &sched, nil
}

// Create stores a new schedule. The unique index on (professional_id, month)
// is the authority for the one-schedule-per-month invariant; a violation is
// reported as ErrScheduleMonthTaken.
func (r *ScheduleRepository) Create(ctx context.Context, sched *models.Schedule) error {
	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sched.CreatedAt.IsZero() {
		sched.CreatedAt = now
	}
	sched.UpdatedAt = now

	const query = `INSERT INTO schedules (id, professional_id, month, start_time, end_time, slot_duration_min, unavailable_dates, created_at, updated_at) VALUES (:id, :professional_id, :month, :start_time, :end_time, :slot_duration_min, :unavailable_dates, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sched); err != nil {
		if IsUniqueViolation(err, "") {
			return ErrScheduleMonthTaken
		}
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update modifies a schedule definition. Already generated slots are left
// untouched: edits are not re-propagated.
func (r *ScheduleRepository) Update(ctx context.Context, sched *models.Schedule) error {
	sched.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET start_time = :start_time, end_time = :end_time, slot_duration_min = :slot_duration_min, unavailable_dates = :unavailable_dates, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sched); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule; its slots cascade.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
