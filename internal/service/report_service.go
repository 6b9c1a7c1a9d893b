package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/repository"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
	"github.com/saludgo/turnos-api/pkg/export"
)

type reportRepository interface {
	SlotStateCounts(ctx context.Context, scope repository.ReportScope) (*models.SlotStateCounts, error)
	JustificationCounts(ctx context.Context) (*models.JustificationCounts, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ExportFormat selects the rendering for a report download.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ReportService aggregates attendance statistics. Results are cached in
// Redis; AVAILABLE slots are excluded from every total and percentages are
// rounded to two decimals.
type ReportService struct {
	repo     reportRepository
	cache    reportCache
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	metrics  *MetricsService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewReportService constructs a ReportService. cache and metrics may be
// nil; without a cache every call hits the database.
func NewReportService(repo reportRepository, cache reportCache, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{
		repo:     repo,
		cache:    cache,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		metrics:  metrics,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Global reports across all professionals, including justification counters.
func (s *ReportService) Global(ctx context.Context) (*models.AttendanceReport, error) {
	return s.build(ctx, "global", "", repository.ReportScope{}, true)
}

// ByProfessional reports over one professional's slots.
func (s *ReportService) ByProfessional(ctx context.Context, professionalID string) (*models.AttendanceReport, error) {
	return s.build(ctx, "professional", professionalID, repository.ReportScope{ProfessionalID: professionalID}, false)
}

// ByPatient reports over one patient's slots.
func (s *ReportService) ByPatient(ctx context.Context, patientID string) (*models.AttendanceReport, error) {
	return s.build(ctx, "patient", patientID, repository.ReportScope{PatientID: patientID}, false)
}

// BySchedule reports over the slots of one monthly schedule.
func (s *ReportService) BySchedule(ctx context.Context, scheduleID string) (*models.AttendanceReport, error) {
	return s.build(ctx, "schedule", scheduleID, repository.ReportScope{ScheduleID: scheduleID}, false)
}

// Export renders a report as CSV or PDF bytes with its content type.
func (s *ReportService) Export(ctx context.Context, report *models.AttendanceReport, format ExportFormat) ([]byte, string, error) {
	dataset := export.Dataset{
		Headers: []string{"metric", "value"},
		Rows: []map[string]string{
			{"metric": "total_slots", "value": strconv.Itoa(report.TotalSlots)},
			{"metric": "attended", "value": strconv.Itoa(report.Attended)},
			{"metric": "no_shows", "value": strconv.Itoa(report.NoShows)},
			{"metric": "cancelled", "value": strconv.Itoa(report.Cancelled)},
			{"metric": "attended_percent", "value": formatPercent(report.AttendedPercent)},
			{"metric": "no_show_percent", "value": formatPercent(report.NoShowPercent)},
			{"metric": "cancelled_percent", "value": formatPercent(report.CancelledPercent)},
		},
	}
	if report.Justifications != nil {
		dataset.Rows = append(dataset.Rows,
			map[string]string{"metric": "justifications_pending", "value": strconv.Itoa(report.Justifications.Pending)},
			map[string]string{"metric": "justifications_approved", "value": strconv.Itoa(report.Justifications.Approved)},
			map[string]string{"metric": "justifications_rejected", "value": strconv.Itoa(report.Justifications.Rejected)},
		)
	}

	switch format {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case ExportPDF:
		title := "Reporte de asistencia"
		if report.ScopeID != "" {
			title = fmt.Sprintf("%s (%s %s)", title, report.Scope, report.ScopeID)
		}
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// Invalidate drops all cached reports. Called after bulk mutations such as
// schedule deletion.
func (s *ReportService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "reports:*"); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
}

func (s *ReportService) build(ctx context.Context, scope, scopeID string, repoScope repository.ReportScope, withJustifications bool) (*models.AttendanceReport, error) {
	cacheKey := fmt.Sprintf("reports:%s:%s", scope, scopeID)
	if s.cache != nil {
		var cached models.AttendanceReport
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("report cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	counts, err := s.repo.SlotStateCounts(ctx, repoScope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate slots")
	}

	report := &models.AttendanceReport{
		Scope:            scope,
		ScopeID:          scopeID,
		TotalSlots:       counts.Total,
		Attended:         counts.Attended,
		NoShows:          counts.NoShows,
		Cancelled:        counts.Cancelled,
		AttendedPercent:  percent(counts.Attended, counts.Total),
		NoShowPercent:    percent(counts.NoShows, counts.Total),
		CancelledPercent: percent(counts.Cancelled, counts.Total),
	}

	if withJustifications {
		just, err := s.repo.JustificationCounts(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate justifications")
		}
		report.Justifications = just
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

// percent returns part/total as a percentage rounded to two decimals. A
// zero total yields zero.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
