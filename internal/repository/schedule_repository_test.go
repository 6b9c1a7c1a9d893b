package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/saludgo/turnos-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO schedules").WillReturnResult(sqlmock.NewResult(0, 1))

	sched := &models.Schedule{
		ProfessionalID:  "prof-1",
		Month:           time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		StartTime:       "08:00",
		EndTime:         "12:00",
		SlotDurationMin: 30,
	}
	require.NoError(t, repo.Create(context.Background(), sched))
	require.NotEmpty(t, sched.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateDuplicateMonth(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO schedules").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "schedules_professional_id_month_key"})

	err := repo.Create(context.Background(), &models.Schedule{
		ProfessionalID:  "prof-1",
		Month:           time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		StartTime:       "08:00",
		EndTime:         "12:00",
		SlotDurationMin: 30,
	})
	require.ErrorIs(t, err, ErrScheduleMonthTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListFiltersByProfessionalAndMonth(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	month := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	columns := []string{"id", "professional_id", "month", "start_time", "end_time", "slot_duration_min", "unavailable_dates", "created_at", "updated_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("sched-1", "prof-1", month, "08:00", "12:00", 30, "{}", time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE 1=1 AND professional_id = $1 AND month = $2")).
		WithArgs("prof-1", month).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedules")).
		WithArgs("prof-1", month).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	schedules, total, err := repo.List(context.Background(), models.ScheduleFilter{ProfessionalID: "prof-1", Month: &month})
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "sched-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
