package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/repository"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

type mockReportRepo struct {
	counts         models.SlotStateCounts
	justifications models.JustificationCounts
	countCalls     int
}

func (m *mockReportRepo) SlotStateCounts(ctx context.Context, scope repository.ReportScope) (*models.SlotStateCounts, error) {
	m.countCalls++
	counts := m.counts
	return &counts, nil
}

func (m *mockReportRepo) JustificationCounts(ctx context.Context) (*models.JustificationCounts, error) {
	just := m.justifications
	return &just, nil
}

type mockReportCache struct {
	entries map[string]models.AttendanceReport
	hits    int
}

func (m *mockReportCache) Get(ctx context.Context, key string, dest interface{}) error {
	if report, ok := m.entries[key]; ok {
		if out, ok := dest.(*models.AttendanceReport); ok {
			*out = report
			m.hits++
			return nil
		}
	}
	return appErrors.ErrCacheMiss
}

func (m *mockReportCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]models.AttendanceReport)
	}
	if report, ok := value.(*models.AttendanceReport); ok {
		m.entries[key] = *report
	}
	return nil
}

func (m *mockReportCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = map[string]models.AttendanceReport{}
	return nil
}

func TestGlobalReportComputesRoundedPercentages(t *testing.T) {
	repo := &mockReportRepo{
		counts:         models.SlotStateCounts{Total: 3, Attended: 1, NoShows: 1, Cancelled: 1},
		justifications: models.JustificationCounts{Pending: 2, Approved: 1, Rejected: 1},
	}
	svc := NewReportService(repo, nil, nil, 0, nil)

	report, err := svc.Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalSlots)
	assert.Equal(t, 33.33, report.AttendedPercent)
	assert.Equal(t, 33.33, report.NoShowPercent)
	assert.Equal(t, 33.33, report.CancelledPercent)
	require.NotNil(t, report.Justifications)
	assert.Equal(t, 2, report.Justifications.Pending)
}

func TestReportZeroTotalYieldsZeroPercent(t *testing.T) {
	repo := &mockReportRepo{counts: models.SlotStateCounts{}}
	svc := NewReportService(repo, nil, nil, 0, nil)

	report, err := svc.ByProfessional(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalSlots)
	assert.Equal(t, 0.0, report.AttendedPercent)
	assert.Equal(t, 0.0, report.NoShowPercent)
}

func TestReportCacheHitSkipsRepository(t *testing.T) {
	repo := &mockReportRepo{counts: models.SlotStateCounts{Total: 4, Attended: 2}}
	cache := &mockReportCache{}
	svc := NewReportService(repo, cache, nil, time.Minute, nil)

	first, err := svc.ByPatient(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.countCalls)

	second, err := svc.ByPatient(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.countCalls)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.TotalSlots, second.TotalSlots)
}

func TestReportCacheKeysAreScopeSpecific(t *testing.T) {
	repo := &mockReportRepo{counts: models.SlotStateCounts{Total: 1}}
	cache := &mockReportCache{}
	svc := NewReportService(repo, cache, nil, time.Minute, nil)

	_, err := svc.ByPatient(context.Background(), "pat-1")
	require.NoError(t, err)
	_, err = svc.ByProfessional(context.Background(), "prof-1")
	require.NoError(t, err)

	assert.Contains(t, cache.entries, "reports:patient:pat-1")
	assert.Contains(t, cache.entries, "reports:professional:prof-1")
	assert.Equal(t, 2, repo.countCalls)
}

func TestReportInvalidateDropsCache(t *testing.T) {
	repo := &mockReportRepo{counts: models.SlotStateCounts{Total: 1}}
	cache := &mockReportCache{}
	svc := NewReportService(repo, cache, nil, time.Minute, nil)

	_, err := svc.BySchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	svc.Invalidate(context.Background())
	assert.Empty(t, cache.entries)
}

func TestExportCSVContainsMetrics(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, nil, nil, 0, nil)
	report := &models.AttendanceReport{
		Scope:           "global",
		TotalSlots:      10,
		Attended:        7,
		AttendedPercent: 70,
	}

	payload, contentType, err := svc.Export(context.Background(), report, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "metric,value"))
	assert.Contains(t, body, "total_slots,10")
	assert.Contains(t, body, "attended_percent,70.00")
}

func TestExportPDFProducesDocument(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, nil, nil, 0, nil)
	report := &models.AttendanceReport{Scope: "professional", ScopeID: "prof-1", TotalSlots: 2}

	payload, contentType, err := svc.Export(context.Background(), report, ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportUnknownFormatRejected(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, nil, nil, 0, nil)

	_, _, err := svc.Export(context.Background(), &models.AttendanceReport{}, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
