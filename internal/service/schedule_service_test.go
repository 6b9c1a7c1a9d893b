package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/repository"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

const testProfessionalID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"

type mockScheduleRepo struct {
	schedules map[string]models.Schedule
	createErr error
	deleted   []string
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	var out []models.Schedule
	for _, s := range m.schedules {
		if filter.ProfessionalID != "" && s.ProfessionalID != filter.ProfessionalID {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s, ok := m.schedules[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) Create(ctx context.Context, sched *models.Schedule) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.schedules == nil {
		m.schedules = make(map[string]models.Schedule)
	}
	m.schedules[sched.ID] = *sched
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, sched *models.Schedule) error {
	if _, ok := m.schedules[sched.ID]; !ok {
		return sql.ErrNoRows
	}
	m.schedules[sched.ID] = *sched
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	m.deleted = append(m.deleted, id)
	delete(m.schedules, id)
	return nil
}

type mockSlotBulkWriter struct {
	batches [][]models.Slot
}

func (m *mockSlotBulkWriter) BulkCreate(ctx context.Context, slots []models.Slot) error {
	m.batches = append(m.batches, slots)
	return nil
}

type passthroughLocker struct {
	keys []string
}

func (l *passthroughLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	return fn(ctx)
}

func newScheduleService(repo *mockScheduleRepo, slots *mockSlotBulkWriter, locker *passthroughLocker) *ScheduleService {
	professionals := &mockProfessionalReader{professionals: map[string]*models.Professional{
		testProfessionalID: {
			ID:             testProfessionalID,
			UserID:         "user-prof",
			AttendanceDays: []string{"MONDAY", "WEDNESDAY"},
		},
	}}
	var l scheduleLocker
	if locker != nil {
		l = locker
	}
	return NewScheduleService(repo, slots, professionals, l, nil, nil, nil, nil)
}

func marchScheduleRequest() models.CreateScheduleRequest {
	return models.CreateScheduleRequest{
		ProfessionalID:  testProfessionalID,
		Month:           "2025-03",
		StartTime:       "08:00",
		EndTime:         "10:00",
		SlotDurationMin: 30,
	}
}

func TestScheduleCreateGeneratesSlotBatch(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{}}
	slots := &mockSlotBulkWriter{}
	locker := &passthroughLocker{}
	svc := newScheduleService(repo, slots, locker)

	claims := professionalClaims(testProfessionalID)
	sched, count, err := svc.Create(context.Background(), claims, marchScheduleRequest())
	require.NoError(t, err)
	require.NotNil(t, sched)

	// March 2025 has five Mondays and four Wednesdays, four slots per day.
	assert.Equal(t, 36, count)
	require.Len(t, slots.batches, 1)
	assert.Len(t, slots.batches[0], 36)

	require.Len(t, locker.keys, 1)
	assert.Equal(t, "schedule:generate:"+testProfessionalID+":2025-03", locker.keys[0])

	stored, ok := repo.schedules[sched.ID]
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), stored.Month)
}

func TestScheduleCreateDuplicateMonthConflicts(t *testing.T) {
	repo := &mockScheduleRepo{createErr: repository.ErrScheduleMonthTaken}
	svc := newScheduleService(repo, &mockSlotBulkWriter{}, nil)

	_, _, err := svc.Create(context.Background(), adminClaims(), marchScheduleRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleExists.Code, appErrors.FromError(err).Code)
}

func TestScheduleCreateForeignProfessionalForbidden(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{}}
	svc := newScheduleService(repo, &mockSlotBulkWriter{}, nil)

	_, _, err := svc.Create(context.Background(), professionalClaims("prof-other"), marchScheduleRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScheduleCreateInvalidDefinitionRejected(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{}}
	slots := &mockSlotBulkWriter{}
	svc := newScheduleService(repo, slots, nil)

	req := marchScheduleRequest()
	req.StartTime = "10:00"
	req.EndTime = "08:00"

	_, _, err := svc.Create(context.Background(), adminClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.schedules)
	assert.Empty(t, slots.batches)
}

func TestScheduleCreateBadMonthFormatRejected(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{}}
	svc := newScheduleService(repo, &mockSlotBulkWriter{}, nil)

	req := marchScheduleRequest()
	req.Month = "03/2025"

	_, _, err := svc.Create(context.Background(), adminClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleUpdateNeverTouchesSlots(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{
		"sched-1": {
			ID:              "sched-1",
			ProfessionalID:  testProfessionalID,
			Month:           time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			StartTime:       "08:00",
			EndTime:         "10:00",
			SlotDurationMin: 30,
		},
	}}
	slots := &mockSlotBulkWriter{}
	svc := newScheduleService(repo, slots, nil)

	newEnd := "12:00"
	out, err := svc.Update(context.Background(), adminClaims(), "sched-1", models.UpdateScheduleRequest{EndTime: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, "12:00", out.EndTime)
	assert.Empty(t, slots.batches)
}

func TestScheduleUpdateInvertedWindowRejected(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{
		"sched-1": {
			ID:              "sched-1",
			ProfessionalID:  testProfessionalID,
			StartTime:       "08:00",
			EndTime:         "10:00",
			SlotDurationMin: 30,
		},
	}}
	svc := newScheduleService(repo, &mockSlotBulkWriter{}, nil)

	newEnd := "07:00"
	_, err := svc.Update(context.Background(), adminClaims(), "sched-1", models.UpdateScheduleRequest{EndTime: &newEnd})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleDeleteByOwner(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{
		"sched-1": {ID: "sched-1", ProfessionalID: testProfessionalID},
	}}
	svc := newScheduleService(repo, &mockSlotBulkWriter{}, nil)

	err := svc.Delete(context.Background(), professionalClaims(testProfessionalID), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sched-1"}, repo.deleted)
}

func TestScheduleDeleteMissing(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{}}
	svc := newScheduleService(repo, &mockSlotBulkWriter{}, nil)

	err := svc.Delete(context.Background(), adminClaims(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
