package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludgo/turnos-api/internal/models"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

type mockNoShowRepo struct {
	records map[string]models.NoShow
	deleted []string
}

func (m *mockNoShowRepo) List(ctx context.Context, filter models.NoShowFilter) ([]models.NoShow, int, error) {
	var out []models.NoShow
	for _, r := range m.records {
		if filter.PatientID != "" && r.PatientID != filter.PatientID {
			continue
		}
		if filter.SubmittedOnly && r.Justification == nil {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockNoShowRepo) FindByID(ctx context.Context, id string) (*models.NoShow, error) {
	if r, ok := m.records[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNoShowRepo) UpdateJustification(ctx context.Context, id string, justification *string, state models.NoShowState) error {
	r, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Justification = justification
	r.State = state
	r.UpdatedAt = time.Now().UTC()
	m.records[id] = r
	return nil
}

func (m *mockNoShowRepo) SoftDelete(ctx context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return sql.ErrNoRows
	}
	m.deleted = append(m.deleted, id)
	delete(m.records, id)
	return nil
}

type mockSlotReader struct {
	slots map[string]*models.Slot
}

func (m *mockSlotReader) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	if s, ok := m.slots[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func pendingNoShow(id, slotID, patientID string, justification *string) models.NoShow {
	sid := slotID
	return models.NoShow{
		ID:            id,
		SlotID:        &sid,
		PatientID:     patientID,
		Date:          time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		Justification: justification,
		State:         models.NoShowPending,
	}
}

func newNoShowService(repo *mockNoShowRepo, notifier *recordingNotifier) *NoShowService {
	slots := &mockSlotReader{slots: map[string]*models.Slot{
		"slot-1": {ID: "slot-1", ProfessionalID: "prof-1"},
	}}
	patients := &mockPatientReader{patients: map[string]*models.Patient{
		"pat-1": {ID: "pat-1", UserID: "user-pat-1"},
	}}
	var n noShowNotifier
	if notifier != nil {
		n = notifier
	}
	return NewNoShowService(repo, slots, patients, n, nil, nil)
}

func TestSubmitStoresJustificationAndKeepsPending(t *testing.T) {
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", nil),
	}}
	svc := newNoShowService(repo, nil)

	out, err := svc.Submit(context.Background(), patientClaims("pat-1"), "ns-1", models.SubmitJustificationRequest{Justification: "emergencia familiar"})
	require.NoError(t, err)
	require.NotNil(t, out.Justification)
	assert.Equal(t, "emergencia familiar", *out.Justification)
	assert.Equal(t, models.NoShowPending, out.State)
}

func TestSubmitRequiresText(t *testing.T) {
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", nil),
	}}
	svc := newNoShowService(repo, nil)

	_, err := svc.Submit(context.Background(), patientClaims("pat-1"), "ns-1", models.SubmitJustificationRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitForeignRecordForbidden(t *testing.T) {
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-2", nil),
	}}
	svc := newNoShowService(repo, nil)

	_, err := svc.Submit(context.Background(), patientClaims("pat-1"), "ns-1", models.SubmitJustificationRequest{Justification: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEvaluateApproveMovesToJustified(t *testing.T) {
	text := "emergencia familiar"
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", &text),
	}}
	notifier := &recordingNotifier{}
	svc := newNoShowService(repo, notifier)

	out, err := svc.Evaluate(context.Background(), professionalClaims("prof-1"), "ns-1", models.EvaluateJustificationRequest{Action: models.EvaluationApprove})
	require.NoError(t, err)
	assert.Equal(t, models.NoShowJustified, out.State)
	assert.Len(t, notifier.sent, 1)
}

func TestEvaluateRejectAppendsNote(t *testing.T) {
	text := "me quedé dormido"
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", &text),
	}}
	svc := newNoShowService(repo, nil)

	note := "motivo insuficiente"
	out, err := svc.Evaluate(context.Background(), professionalClaims("prof-1"), "ns-1", models.EvaluateJustificationRequest{Action: models.EvaluationReject, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, models.NoShowUnjustified, out.State)
	require.NotNil(t, out.Justification)
	assert.Equal(t, "me quedé dormido\n[Evaluación]: motivo insuficiente", *out.Justification)
}

func TestEvaluateWithoutJustificationStillApplies(t *testing.T) {
	// Professional-marked records carry no justification yet.
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", nil),
	}}
	svc := newNoShowService(repo, nil)

	note := "sin aviso previo"
	out, err := svc.Evaluate(context.Background(), professionalClaims("prof-1"), "ns-1", models.EvaluateJustificationRequest{Action: models.EvaluationReject, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, models.NoShowUnjustified, out.State)
	require.NotNil(t, out.Justification)
	assert.Contains(t, *out.Justification, "[Evaluación]: sin aviso previo")
}

func TestEvaluateOverridesEarlierVerdict(t *testing.T) {
	text := "emergencia"
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", &text),
	}}
	svc := newNoShowService(repo, nil)

	out, err := svc.Evaluate(context.Background(), professionalClaims("prof-1"), "ns-1", models.EvaluateJustificationRequest{Action: models.EvaluationApprove})
	require.NoError(t, err)
	assert.Equal(t, models.NoShowJustified, out.State)

	out, err = svc.Evaluate(context.Background(), professionalClaims("prof-1"), "ns-1", models.EvaluateJustificationRequest{Action: models.EvaluationReject})
	require.NoError(t, err)
	assert.Equal(t, models.NoShowUnjustified, out.State)
}

func TestResubmissionResetsEvaluatedRecord(t *testing.T) {
	text := "emergencia"
	record := pendingNoShow("ns-1", "slot-1", "pat-1", &text)
	record.State = models.NoShowUnjustified
	repo := &mockNoShowRepo{records: map[string]models.NoShow{"ns-1": record}}
	svc := newNoShowService(repo, nil)

	out, err := svc.Submit(context.Background(), patientClaims("pat-1"), "ns-1", models.SubmitJustificationRequest{Justification: "adjunto certificado médico"})
	require.NoError(t, err)
	assert.Equal(t, models.NoShowPending, out.State)

	// Once pending again the record can be re-evaluated.
	evaluated, err := svc.Evaluate(context.Background(), professionalClaims("prof-1"), "ns-1", models.EvaluateJustificationRequest{Action: models.EvaluationApprove})
	require.NoError(t, err)
	assert.Equal(t, models.NoShowJustified, evaluated.State)
}

func TestEvaluateInvalidActionRejected(t *testing.T) {
	text := "emergencia"
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", &text),
	}}
	svc := newNoShowService(repo, nil)

	_, err := svc.Evaluate(context.Background(), professionalClaims("prof-1"), "ns-1", models.EvaluateJustificationRequest{Action: "MAYBE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEvaluateForeignProfessionalForbidden(t *testing.T) {
	text := "emergencia"
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", &text),
	}}
	svc := newNoShowService(repo, nil)

	_, err := svc.Evaluate(context.Background(), professionalClaims("prof-2"), "ns-1", models.EvaluateJustificationRequest{Action: models.EvaluationApprove})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEvaluateByPatientForbidden(t *testing.T) {
	text := "emergencia"
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", &text),
	}}
	svc := newNoShowService(repo, nil)

	_, err := svc.Evaluate(context.Background(), patientClaims("pat-1"), "ns-1", models.EvaluateJustificationRequest{Action: models.EvaluationApprove})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestNoShowListScopesByRole(t *testing.T) {
	text := "emergencia"
	repo := &mockNoShowRepo{records: map[string]models.NoShow{
		"ns-1": pendingNoShow("ns-1", "slot-1", "pat-1", &text),
		"ns-2": pendingNoShow("ns-2", "slot-2", "pat-2", nil),
	}}
	svc := newNoShowService(repo, nil)

	mine, _, err := svc.List(context.Background(), patientClaims("pat-1"), models.NoShowFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "ns-1", mine[0].ID)

	all, _, err := svc.List(context.Background(), adminClaims(), models.NoShowFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNoShowDeleteMissingRecord(t *testing.T) {
	repo := &mockNoShowRepo{records: map[string]models.NoShow{}}
	svc := newNoShowService(repo, nil)

	err := svc.Delete(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
