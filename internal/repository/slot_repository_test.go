package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/saludgo/turnos-api/internal/models"
)

func newSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSlotRepositoryBookWinsRace(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET patient_id = $2, state = 'RESERVED', visit_reason = $3, updated_at = NOW() WHERE id = $1 AND state = 'AVAILABLE' AND patient_id IS NULL")).
		WithArgs("slot-1", "pat-1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	booked, err := repo.Book(context.Background(), "slot-1", "pat-1", nil)
	require.NoError(t, err)
	require.True(t, booked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryBookLosesRace(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("UPDATE slots SET patient_id").
		WithArgs("slot-1", "pat-1", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	booked, err := repo.Book(context.Background(), "slot-1", "pat-1", nil)
	require.NoError(t, err)
	require.False(t, booked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCancelGuardsOwnershipAndState(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET state = 'CANCELLED', cancel_reason = $3, updated_at = NOW() WHERE id = $1 AND patient_id = $2 AND state = 'RESERVED'")).
		WithArgs("slot-1", "pat-1", "viaje").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cancelled, err := repo.Cancel(context.Background(), "slot-1", "pat-1", "viaje")
	require.NoError(t, err)
	require.True(t, cancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryTransitionOnlyFromReserved(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET state = $2, updated_at = NOW() WHERE id = $1 AND state = 'RESERVED' AND patient_id IS NOT NULL")).
		WithArgs("slot-1", models.SlotNoShow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.Transition(context.Background(), "slot-1", models.SlotNoShow)
	require.NoError(t, err)
	require.False(t, moved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery("SELECT .+ FROM slots WHERE id = ").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListAvailableWithOwnReservations(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	columns := []string{"id", "professional_id", "schedule_id", "patient_id", "date", "start_time", "end_time", "state", "visit_reason", "cancel_reason", "justification", "created_at", "updated_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("slot-1", "prof-1", nil, nil, time.Now(), "08:00", "08:30", models.SlotAvailable, nil, nil, nil, time.Now(), time.Now()).
		AddRow("slot-2", "prof-1", nil, "pat-1", time.Now(), "08:30", "09:00", models.SlotReserved, nil, nil, nil, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("((state = 'AVAILABLE' AND patient_id IS NULL) OR (state = 'RESERVED' AND patient_id = $1))")).
		WithArgs("pat-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM slots")).
		WithArgs("pat-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	slots, total, err := repo.List(context.Background(), models.SlotFilter{AvailableOnly: true, OwnReservedFor: "pat-1"})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, 2, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryBulkCreateEmptyBatchSkipsDB(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	require.NoError(t, repo.BulkCreate(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryBulkCreateInsertsBatchInTx(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO slots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO slots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := []models.Slot{
		{ProfessionalID: "prof-1", Date: time.Now(), StartTime: "08:00", EndTime: "08:30", State: models.SlotAvailable},
		{ProfessionalID: "prof-1", Date: time.Now(), StartTime: "08:30", EndTime: "09:00", State: models.SlotAvailable},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), batch))
	require.NotEmpty(t, batch[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
