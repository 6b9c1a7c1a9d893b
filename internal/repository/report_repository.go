package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/saludgo/turnos-api/internal/models"
)

// ReportScope selects the slot population a report aggregates over.
type ReportScope struct {
	ProfessionalID string
	PatientID      string
	ScheduleID     string
}

// ReportRepository aggregates terminal slot states and justification
// counters. AVAILABLE slots never count toward report totals.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SlotStateCounts returns terminal state counts for the scope.
func (r *ReportRepository) SlotStateCounts(ctx context.Context, scope ReportScope) (*models.SlotStateCounts, error) {
	base := `SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE state = 'ATTENDED') AS attended,
	COUNT(*) FILTER (WHERE state = 'NO_SHOW') AS no_shows,
	COUNT(*) FILTER (WHERE state = 'CANCELLED') AS cancelled
FROM slots WHERE state <> 'AVAILABLE'`
	var args []interface{}

	switch {
	case scope.ProfessionalID != "":
		base += fmt.Sprintf(" AND professional_id = $%d", len(args)+1)
		args = append(args, scope.ProfessionalID)
	case scope.PatientID != "":
		base += fmt.Sprintf(" AND patient_id = $%d", len(args)+1)
		args = append(args, scope.PatientID)
	case scope.ScheduleID != "":
		base += fmt.Sprintf(" AND schedule_id = $%d", len(args)+1)
		args = append(args, scope.ScheduleID)
	}

	var counts models.SlotStateCounts
	if err := r.db.GetContext(ctx, &counts, base, args...); err != nil {
		return nil, fmt.Errorf("slot state counts: %w", err)
	}
	return &counts, nil
}

// JustificationCounts returns global no-show justification counters.
func (r *ReportRepository) JustificationCounts(ctx context.Context) (*models.JustificationCounts, error) {
	const query = `SELECT
	COUNT(*) FILTER (WHERE state = 'PENDING') AS pending,
	COUNT(*) FILTER (WHERE state = 'JUSTIFIED') AS approved,
	COUNT(*) FILTER (WHERE state = 'UNJUSTIFIED') AS rejected
FROM no_shows WHERE deleted_at IS NULL`

	var counts models.JustificationCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("justification counts: %w", err)
	}
	return &counts, nil
}
