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

const slotColumns = `id, professional_id, schedule_id, patient_id, date, start_time, end_time, state, visit_reason, cancel_reason, justification, created_at, updated_at`

// SlotRepository provides persistence for appointment slots. State
// transitions are single conditional updates so concurrent callers cannot
// both succeed; the unique index on (professional_id, date, start_time)
// backs the no-double-booking invariant.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// List returns slots matching the filter with total count.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error) {
	base := "FROM slots WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ScheduleID != "" {
		conditions = append(conditions, fmt.Sprintf("schedule_id = $%d", len(args)+1))
		args = append(args, filter.ScheduleID)
	}
	if filter.ProfessionalID != "" {
		conditions = append(conditions, fmt.Sprintf("professional_id = $%d", len(args)+1))
		args = append(args, filter.ProfessionalID)
	}
	if filter.PatientID != "" {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)+1))
		args = append(args, filter.PatientID)
	}
	if filter.State != nil {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, *filter.State)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.AvailableOnly {
		if filter.OwnReservedFor != "" {
			conditions = append(conditions, fmt.Sprintf("((state = 'AVAILABLE' AND patient_id IS NULL) OR (state = 'RESERVED' AND patient_id = $%d))", len(args)+1))
			args = append(args, filter.OwnReservedFor)
		} else {
			conditions = append(conditions, "state = 'AVAILABLE' AND patient_id IS NULL")
		}
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"date":       true,
		"start_time": true,
		"state":      true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	secondary := "start_time ASC"
	if order == "DESC" {
		secondary = "start_time DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, %s LIMIT %d OFFSET %d", slotColumns, base, sortBy, order, secondary, size, offset)
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list slots: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count slots: %w", err)
	}

	return slots, total, nil
}

// FindByID loads a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE id = $1 LIMIT 1", slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find slot by id: %w", err)
	}
	return &slot, nil
}

// Create stores a single manually defined slot.
func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO slots (id, professional_id, schedule_id, patient_id, date, start_time, end_time, state, visit_reason, cancel_reason, justification, created_at, updated_at) VALUES (:id, :professional_id, :schedule_id, :patient_id, :date, :start_time, :end_time, :state, :visit_reason, :cancel_reason, :justification, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		if IsUniqueViolation(err, "") {
			return fmt.Errorf("slot collision: %w", err)
		}
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// BulkCreate inserts a generated batch of slots within one transaction.
// An empty batch is a no-op, not an error.
func (r *SlotRepository) BulkCreate(ctx context.Context, slots []models.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create slots: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range slots {
		payload := slots[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err = tx.NamedExecContext(ctx, `INSERT INTO slots (id, professional_id, schedule_id, patient_id, date, start_time, end_time, state, visit_reason, cancel_reason, justification, created_at, updated_at) VALUES (:id, :professional_id, :schedule_id, :patient_id, :date, :start_time, :end_time, :state, :visit_reason, :cancel_reason, :justification, :created_at, :updated_at)`, &payload); err != nil {
			if IsUniqueViolation(err, "") {
				err = fmt.Errorf("slot collision during bulk insert: %w", err)
			} else {
				err = fmt.Errorf("bulk insert slot: %w", err)
			}
			return err
		}
		slots[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create slots: %w", err)
	}
	return nil
}

// Book atomically assigns a patient to an AVAILABLE, unassigned slot.
// It returns false when the slot was taken (or never existed) so the caller
// can distinguish by re-reading.
func (r *SlotRepository) Book(ctx context.Context, slotID, patientID string, visitReason *string) (bool, error) {
	const query = `UPDATE slots SET patient_id = $2, state = 'RESERVED', visit_reason = $3, updated_at = NOW() WHERE id = $1 AND state = 'AVAILABLE' AND patient_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, slotID, patientID, visitReason)
	if err != nil {
		return false, fmt.Errorf("book slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("book slot rows affected: %w", err)
	}
	return affected == 1, nil
}

// Cancel atomically moves a RESERVED slot held by the given patient to
// CANCELLED, storing the cancellation reason.
func (r *SlotRepository) Cancel(ctx context.Context, slotID, patientID string, reason string) (bool, error) {
	const query = `UPDATE slots SET state = 'CANCELLED', cancel_reason = $3, updated_at = NOW() WHERE id = $1 AND patient_id = $2 AND state = 'RESERVED'`
	res, err := r.db.ExecContext(ctx, query, slotID, patientID, reason)
	if err != nil {
		return false, fmt.Errorf("cancel slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel slot rows affected: %w", err)
	}
	return affected == 1, nil
}

// Transition atomically moves an occupied RESERVED slot to a terminal
// marking state (ATTENDED or NO_SHOW).
func (r *SlotRepository) Transition(ctx context.Context, slotID string, to models.SlotState) (bool, error) {
	const query = `UPDATE slots SET state = $2, updated_at = NOW() WHERE id = $1 AND state = 'RESERVED' AND patient_id IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, slotID, to)
	if err != nil {
		return false, fmt.Errorf("transition slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition slot rows affected: %w", err)
	}
	return affected == 1, nil
}

// SetJustification stores the patient-supplied absence text on the slot.
func (r *SlotRepository) SetJustification(ctx context.Context, slotID, justification string) error {
	const query = `UPDATE slots SET justification = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, slotID, justification); err != nil {
		return fmt.Errorf("set slot justification: %w", err)
	}
	return nil
}
