package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/saludgo/turnos-api/internal/models"
)

func newNoShowRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var noShowTestColumns = []string{"id", "slot_id", "patient_id", "date", "justification", "state", "created_at", "updated_at", "deleted_at"}

func TestNoShowRepositoryUpsertReturnsStoredRow(t *testing.T) {
	db, mock, cleanup := newNoShowRepoMock(t)
	defer cleanup()
	repo := NewNoShowRepository(db)

	date := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(noShowTestColumns).
		AddRow("ns-1", "slot-1", "pat-1", date, nil, models.NoShowPending, time.Now(), time.Now(), nil)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (slot_id) DO UPDATE SET")).
		WillReturnRows(rows)

	slotID := "slot-1"
	stored, err := repo.Upsert(context.Background(), &models.NoShow{
		SlotID:    &slotID,
		PatientID: "pat-1",
		Date:      date,
		State:     models.NoShowPending,
	})
	require.NoError(t, err)
	require.Equal(t, "ns-1", stored.ID)
	require.Equal(t, models.NoShowPending, stored.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoShowRepositoryUpdateJustification(t *testing.T) {
	db, mock, cleanup := newNoShowRepoMock(t)
	defer cleanup()
	repo := NewNoShowRepository(db)

	text := "certificado adjunto"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE no_shows SET justification = $2, state = $3, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("ns-1", &text, models.NoShowJustified).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateJustification(context.Background(), "ns-1", &text, models.NoShowJustified))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoShowRepositoryListSubmittedForProfessional(t *testing.T) {
	db, mock, cleanup := newNoShowRepoMock(t)
	defer cleanup()
	repo := NewNoShowRepository(db)

	rows := sqlmock.NewRows(noShowTestColumns).
		AddRow("ns-1", "slot-1", "pat-1", time.Now(), "emergencia", models.NoShowPending, time.Now(), time.Now(), nil)

	mock.ExpectQuery(regexp.QuoteMeta("slot_id IN (SELECT id FROM slots WHERE professional_id = $1)")).
		WithArgs("prof-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM no_shows")).
		WithArgs("prof-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.NoShowFilter{ProfessionalID: "prof-1", SubmittedOnly: true})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoShowRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newNoShowRepoMock(t)
	defer cleanup()
	repo := NewNoShowRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE no_shows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("ns-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "ns-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
