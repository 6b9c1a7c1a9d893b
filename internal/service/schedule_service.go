package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/repository"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Create(ctx context.Context, sched *models.Schedule) error
	Update(ctx context.Context, sched *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

type scheduleSlotRepository interface {
	BulkCreate(ctx context.Context, slots []models.Slot) error
}

type scheduleProfessionalRepository interface {
	FindByID(ctx context.Context, id string) (*models.Professional, error)
}

// scheduleLocker serialises slot generation per professional-month so two
// concurrent creates cannot interleave their batch inserts.
type scheduleLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type scheduleNotifier interface {
	Notify(userID string, kind models.NotificationKind, title, message string)
}

// ScheduleService manages monthly schedules and their slot generation.
type ScheduleService struct {
	schedules     scheduleRepository
	slots         scheduleSlotRepository
	professionals scheduleProfessionalRepository
	locker        scheduleLocker
	notifier      scheduleNotifier
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewScheduleService constructs a ScheduleService. locker, notifier and
// metrics may be nil; generation then runs unguarded and without
// notifications.
func NewScheduleService(schedules scheduleRepository, slots scheduleSlotRepository, professionals scheduleProfessionalRepository, locker scheduleLocker, notifier scheduleNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleService{
		schedules:     schedules,
		slots:         slots,
		professionals: professionals,
		locker:        locker,
		notifier:      notifier,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// List returns schedules matching the filter.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	items, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get fetches one schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	sched, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return sched, nil
}

// Create validates the definition, persists the schedule and generates its
// slot batch from the professional's attendance days. Days outside the
// attendance set and blackout dates yield no slots; an empty batch is
// valid. Returns the schedule and the number of slots generated.
func (s *ScheduleService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateScheduleRequest) (*models.Schedule, int, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	if err := s.authorizeOwner(actor, req.ProfessionalID); err != nil {
		return nil, 0, err
	}

	prof, err := s.professionals.FindByID(ctx, req.ProfessionalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "professional not found")
		}
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professional")
	}

	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "month must use YYYY-MM")
	}

	now := time.Now().UTC()
	sched := &models.Schedule{
		ID:               uuid.NewString(),
		ProfessionalID:   req.ProfessionalID,
		Month:            month,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		SlotDurationMin:  req.SlotDurationMin,
		UnavailableDates: req.UnavailableDates,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// Validate the definition by tiling before touching the database.
	batch, err := GenerateSlots(*sched, prof.AttendanceDays)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	generate := func(ctx context.Context) error {
		if err := s.schedules.Create(ctx, sched); err != nil {
			if errors.Is(err, repository.ErrScheduleMonthTaken) {
				return appErrors.Clone(appErrors.ErrScheduleExists, "")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
		}
		if err := s.slots.BulkCreate(ctx, batch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate slots")
		}
		return nil
	}

	if s.locker != nil {
		lockKey := fmt.Sprintf("schedule:generate:%s:%s", req.ProfessionalID, month.Format("2006-01"))
		err = s.locker.WithLock(ctx, lockKey, generate)
	} else {
		err = generate(ctx)
	}
	if err != nil {
		return nil, 0, appErrors.FromError(err)
	}

	s.metrics.ObserveSlotsGenerated(len(batch))
	s.logger.Info("schedule created",
		zap.String("schedule_id", sched.ID),
		zap.String("professional_id", sched.ProfessionalID),
		zap.String("month", month.Format("2006-01")),
		zap.Int("slots", len(batch)))

	if s.notifier != nil {
		s.notifier.Notify(prof.UserID, models.NotificationNewSchedule,
			"Nueva agenda creada",
			fmt.Sprintf("Se generaron %d turnos para %s", len(batch), month.Format("2006-01")))
	}

	return sched, len(batch), nil
}

// Update edits the schedule definition only. Slots already generated keep
// their original times; edits never regenerate.
func (s *ScheduleService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	sched, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(actor, sched.ProfessionalID); err != nil {
		return nil, err
	}

	if req.StartTime != nil {
		sched.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		sched.EndTime = *req.EndTime
	}
	if req.SlotDurationMin != nil {
		sched.SlotDurationMin = *req.SlotDurationMin
	}
	if req.UnavailableDates != nil {
		sched.UnavailableDates = req.UnavailableDates
	}

	start, err := parseClock(sched.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must use HH:MM")
	}
	end, err := parseClock(sched.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must use HH:MM")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	sched.UpdatedAt = time.Now().UTC()
	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return sched, nil
}

// Delete removes a schedule and all of its slots.
func (s *ScheduleService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	sched, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(actor, sched.ProfessionalID); err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.logger.Info("schedule deleted", zap.String("schedule_id", id))
	return nil
}

// authorizeOwner admits admins and the owning professional.
func (s *ScheduleService) authorizeOwner(actor *models.JWTClaims, professionalID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleProfessional && actor.ProfessionalID != nil && *actor.ProfessionalID == professionalID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "schedule belongs to another professional")
}
