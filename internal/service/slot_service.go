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
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

type slotRepository interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error)
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	Book(ctx context.Context, slotID, patientID string, visitReason *string) (bool, error)
	Cancel(ctx context.Context, slotID, patientID string, reason string) (bool, error)
	Transition(ctx context.Context, slotID string, to models.SlotState) (bool, error)
	SetJustification(ctx context.Context, slotID, justification string) error
}

type slotNoShowRepository interface {
	Upsert(ctx context.Context, record *models.NoShow) (*models.NoShow, error)
}

type slotPatientRepository interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
}

type slotProfessionalRepository interface {
	FindByID(ctx context.Context, id string) (*models.Professional, error)
}

type slotAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type slotNotifier interface {
	Notify(userID string, kind models.NotificationKind, title, message string)
}

// SlotService drives the slot lifecycle: browsing, booking, cancellation
// and the professional-side state transitions. Booking relies on the
// storage layer's conditional updates, so two concurrent requests for the
// same slot resolve to exactly one winner.
type SlotService struct {
	slots         slotRepository
	noShows       slotNoShowRepository
	patients      slotPatientRepository
	professionals slotProfessionalRepository
	audit         slotAuditWriter
	notifier      slotNotifier
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewSlotService constructs a SlotService. audit, notifier and metrics may
// be nil.
func NewSlotService(slots slotRepository, noShows slotNoShowRepository, patients slotPatientRepository, professionals slotProfessionalRepository, audit slotAuditWriter, notifier slotNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SlotService{
		slots:         slots,
		noShows:       noShows,
		patients:      patients,
		professionals: professionals,
		audit:         audit,
		notifier:      notifier,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// List applies the caller's visibility policy before querying. Patients see
// available slots plus their own reservations; professionals see their own
// calendar; admins see everything the filter asks for.
func (s *SlotService) List(ctx context.Context, actor *models.JWTClaims, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	switch actor.Role {
	case models.RolePatient:
		filter.AvailableOnly = true
		if actor.PatientID != nil {
			filter.OwnReservedFor = *actor.PatientID
		}
	case models.RoleProfessional:
		if actor.ProfessionalID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "no professional profile associated")
		}
		filter.ProfessionalID = *actor.ProfessionalID
	}

	items, total, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListOwn returns the calling patient's slots across all states.
func (s *SlotService) ListOwn(ctx context.Context, actor *models.JWTClaims, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error) {
	if actor == nil || actor.PatientID == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "no patient profile associated")
	}
	filter.PatientID = *actor.PatientID
	filter.AvailableOnly = false
	filter.OwnReservedFor = ""

	items, total, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListBySchedule returns the slots of one schedule with the caller's
// visibility policy applied.
func (s *SlotService) ListBySchedule(ctx context.Context, actor *models.JWTClaims, scheduleID string, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error) {
	filter.ScheduleID = scheduleID
	return s.List(ctx, actor, filter)
}

// Get fetches a slot, enforcing the caller's visibility.
func (s *SlotService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Slot, error) {
	slot, err := s.findSlot(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	switch actor.Role {
	case models.RolePatient:
		owned := slot.PatientID != nil && actor.PatientID != nil && *slot.PatientID == *actor.PatientID
		if slot.State != models.SlotAvailable && !owned {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another patient")
		}
	case models.RoleProfessional:
		if actor.ProfessionalID == nil || slot.ProfessionalID != *actor.ProfessionalID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another professional")
		}
	}
	return slot, nil
}

// Book reserves an available slot for the calling patient. The reservation
// is a single conditional update; losing a race surfaces as SLOT_UNAVAILABLE.
func (s *SlotService) Book(ctx context.Context, actor *models.JWTClaims, slotID string, req models.BookSlotRequest) (*models.Slot, error) {
	if actor == nil || actor.PatientID == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no patient profile associated")
	}

	booked, err := s.slots.Book(ctx, slotID, *actor.PatientID, req.VisitReason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book slot")
	}
	if !booked {
		// Distinguish a missing slot from one taken by someone else.
		if _, err := s.findSlot(ctx, slotID); err != nil {
			return nil, err
		}
		s.metrics.ObserveBooking("book", "lost")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}
	s.metrics.ObserveBooking("book", "won")

	slot, err := s.findSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, actor, models.AuditActionBooking, slotID, `{"action":"book"}`)
	s.notifyProfessional(ctx, slot, models.NotificationSlotReserved,
		"Turno reservado",
		fmt.Sprintf("Se reservó el turno del %s a las %s", slot.Date.Format("2006-01-02"), slot.StartTime))

	s.logger.Info("slot booked", zap.String("slot_id", slotID), zap.String("patient_id", *actor.PatientID))
	return slot, nil
}

// Cancel releases the calling patient's reservation. The slot moves to
// CANCELLED and stays off the available listings.
func (s *SlotService) Cancel(ctx context.Context, actor *models.JWTClaims, slotID string, req models.CancelSlotRequest) (*models.Slot, error) {
	if actor == nil || actor.PatientID == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no patient profile associated")
	}

	reason := req.Reason
	if reason == "" {
		reason = "Cancelado por el paciente"
	}

	cancelled, err := s.slots.Cancel(ctx, slotID, *actor.PatientID, reason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel slot")
	}
	if !cancelled {
		slot, err := s.findSlot(ctx, slotID)
		if err != nil {
			return nil, err
		}
		if slot.PatientID == nil || *slot.PatientID != *actor.PatientID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another patient")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only reserved slots can be cancelled")
	}
	s.metrics.ObserveBooking("cancel", "won")

	slot, err := s.findSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, actor, models.AuditActionBooking, slotID, `{"action":"cancel"}`)
	s.notifyProfessional(ctx, slot, models.NotificationSlotCancelled,
		"Turno cancelado",
		fmt.Sprintf("Se canceló el turno del %s a las %s", slot.Date.Format("2006-01-02"), slot.StartTime))

	s.logger.Info("slot cancelled", zap.String("slot_id", slotID), zap.String("patient_id", *actor.PatientID))
	return slot, nil
}

// MarkAttended records that the patient showed up. Professionals may only
// touch their own slots.
func (s *SlotService) MarkAttended(ctx context.Context, actor *models.JWTClaims, slotID string) (*models.Slot, error) {
	return s.transition(ctx, actor, slotID, models.SlotAttended)
}

// MarkNoShow records a missed appointment and opens its justification
// record in PENDING state. Repeating the call touches the same record.
func (s *SlotService) MarkNoShow(ctx context.Context, actor *models.JWTClaims, slotID string) (*models.Slot, error) {
	slot, err := s.transition(ctx, actor, slotID, models.SlotNoShow)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.NoShow{
		ID:        uuid.NewString(),
		SlotID:    &slot.ID,
		PatientID: *slot.PatientID,
		Date:      slot.Date,
		State:     models.NoShowPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.noShows.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record no-show")
	}

	s.notifyPatient(ctx, slot, models.NotificationSlotStateUpdated,
		"Inasistencia registrada",
		fmt.Sprintf("Se registró una inasistencia para el turno del %s. Podés cargar una justificación.", slot.Date.Format("2006-01-02")))

	return slot, nil
}

// ReportAbsence lets the owning patient declare they missed (or will miss)
// a reserved slot. The slot moves to NO_SHOW and the justification opens a
// PENDING record for the professional to evaluate.
func (s *SlotService) ReportAbsence(ctx context.Context, actor *models.JWTClaims, slotID string, req models.ReportAbsenceRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid justification payload")
	}
	if actor == nil || actor.PatientID == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no patient profile associated")
	}

	slot, err := s.findSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.PatientID == nil || *slot.PatientID != *actor.PatientID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another patient")
	}
	if slot.State != models.SlotReserved && slot.State != models.SlotNoShow {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "slot state does not accept a justification")
	}

	if slot.State == models.SlotReserved {
		moved, err := s.slots.Transition(ctx, slotID, models.SlotNoShow)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot state")
		}
		if !moved {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "slot state changed, retry the report")
		}
	}

	if err := s.slots.SetJustification(ctx, slotID, req.Justification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store justification")
	}

	now := time.Now().UTC()
	record := &models.NoShow{
		ID:            uuid.NewString(),
		SlotID:        &slot.ID,
		PatientID:     *actor.PatientID,
		Date:          slot.Date,
		Justification: &req.Justification,
		State:         models.NoShowPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.noShows.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update no-show record")
	}

	s.notifyProfessional(ctx, slot, models.NotificationSlotStateUpdated,
		"Inasistencia informada",
		fmt.Sprintf("El paciente informó que no asistirá al turno del %s a las %s", slot.Date.Format("2006-01-02"), slot.StartTime))

	return s.findSlot(ctx, slotID)
}

func (s *SlotService) transition(ctx context.Context, actor *models.JWTClaims, slotID string, to models.SlotState) (*models.Slot, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	slot, err := s.findSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleProfessional {
		if actor.ProfessionalID == nil || slot.ProfessionalID != *actor.ProfessionalID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another professional")
		}
	} else if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	moved, err := s.slots.Transition(ctx, slotID, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot state")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only reserved slots can change state")
	}

	slot, err = s.findSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, actor, models.AuditActionMutation, slotID, fmt.Sprintf(`{"state":%q}`, to))
	if to == models.SlotAttended {
		s.notifyPatient(ctx, slot, models.NotificationSlotStateUpdated,
			"Turno atendido",
			fmt.Sprintf("El turno del %s fue marcado como atendido", slot.Date.Format("2006-01-02")))
	}
	return slot, nil
}

func (s *SlotService) findSlot(ctx context.Context, id string) (*models.Slot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	return slot, nil
}

func (s *SlotService) writeAudit(ctx context.Context, actor *models.JWTClaims, action, slotID, detail string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "slot",
		ResourceID: &slotID,
		Detail:     []byte(detail),
	}); err != nil {
		s.logger.Warn("failed to record slot audit log", zap.Error(err))
	}
}

func (s *SlotService) notifyProfessional(ctx context.Context, slot *models.Slot, kind models.NotificationKind, title, message string) {
	if s.notifier == nil {
		return
	}
	prof, err := s.professionals.FindByID(ctx, slot.ProfessionalID)
	if err != nil {
		s.logger.Warn("failed to resolve professional for notification", zap.Error(err))
		return
	}
	s.notifier.Notify(prof.UserID, kind, title, message)
}

func (s *SlotService) notifyPatient(ctx context.Context, slot *models.Slot, kind models.NotificationKind, title, message string) {
	if s.notifier == nil || slot.PatientID == nil {
		return
	}
	patient, err := s.patients.FindByID(ctx, *slot.PatientID)
	if err != nil {
		s.logger.Warn("failed to resolve patient for notification", zap.Error(err))
		return
	}
	s.notifier.Notify(patient.UserID, kind, title, message)
}
