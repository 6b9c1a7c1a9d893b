package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saludgo/turnos-api/internal/models"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

type noShowRepository interface {
	List(ctx context.Context, filter models.NoShowFilter) ([]models.NoShow, int, error)
	FindByID(ctx context.Context, id string) (*models.NoShow, error)
	UpdateJustification(ctx context.Context, id string, justification *string, state models.NoShowState) error
	SoftDelete(ctx context.Context, id string) error
}

type noShowSlotRepository interface {
	FindByID(ctx context.Context, id string) (*models.Slot, error)
}

type noShowPatientRepository interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
}

type noShowNotifier interface {
	Notify(userID string, kind models.NotificationKind, title, message string)
}

// NoShowService runs the justification workflow: patients submit an
// explanation for a missed appointment, professionals or admins resolve it.
type NoShowService struct {
	noShows   noShowRepository
	slots     noShowSlotRepository
	patients  noShowPatientRepository
	notifier  noShowNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoShowService constructs a NoShowService. notifier may be nil.
func NewNoShowService(noShows noShowRepository, slots noShowSlotRepository, patients noShowPatientRepository, notifier noShowNotifier, validate *validator.Validate, logger *zap.Logger) *NoShowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NoShowService{
		noShows:   noShows,
		slots:     slots,
		patients:  patients,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// List applies the caller's visibility policy. Patients see their own
// records; professionals see submitted justifications on their own slots;
// admins see everything.
func (s *NoShowService) List(ctx context.Context, actor *models.JWTClaims, filter models.NoShowFilter) ([]models.NoShow, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	switch actor.Role {
	case models.RolePatient:
		if actor.PatientID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "no patient profile associated")
		}
		filter.PatientID = *actor.PatientID
	case models.RoleProfessional:
		if actor.ProfessionalID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "no professional profile associated")
		}
		filter.ProfessionalID = *actor.ProfessionalID
		filter.SubmittedOnly = true
	}

	items, total, err := s.noShows.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list no-shows")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get fetches one record, enforcing ownership.
func (s *NoShowService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.NoShow, error) {
	record, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Submit attaches (or replaces) the patient's justification text. A
// resubmission resets the record to PENDING so it is evaluated again.
func (s *NoShowService) Submit(ctx context.Context, actor *models.JWTClaims, id string, req models.SubmitJustificationRequest) (*models.NoShow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "justification text is required")
	}
	if actor == nil || actor.PatientID == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no patient profile associated")
	}

	record, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.PatientID != *actor.PatientID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "record belongs to another patient")
	}

	if err := s.noShows.UpdateJustification(ctx, id, &req.Justification, models.NoShowPending); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store justification")
	}

	s.logger.Info("justification submitted", zap.String("no_show_id", id), zap.String("patient_id", record.PatientID))
	return s.findRecord(ctx, id)
}

// Evaluate records a verdict on a no-show. APPROVE moves the record to
// JUSTIFIED, REJECT to UNJUSTIFIED; a later evaluation overrides an earlier
// one. An optional evaluator note is appended to the justification text.
func (s *NoShowService) Evaluate(ctx context.Context, actor *models.JWTClaims, id string, req models.EvaluateJustificationRequest) (*models.NoShow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	if !req.Action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be APPROVE or REJECT")
	}
	if actor == nil || (actor.Role != models.RoleProfessional && actor.Role != models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	record, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleProfessional {
		if err := s.authorizeProfessional(ctx, actor, record); err != nil {
			return nil, err
		}
	}
	state := models.NoShowJustified
	if req.Action == models.EvaluationReject {
		state = models.NoShowUnjustified
	}

	// Professional-marked records start without a justification; evaluation
	// applies anyway and a later verdict simply overwrites the earlier one.
	var justification string
	if record.Justification != nil {
		justification = *record.Justification
	}
	if req.Note != nil && *req.Note != "" {
		justification = fmt.Sprintf("%s\n[Evaluación]: %s", justification, *req.Note)
	}

	if err := s.noShows.UpdateJustification(ctx, id, &justification, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate justification")
	}

	s.notifyPatient(ctx, record, state)
	s.logger.Info("justification evaluated",
		zap.String("no_show_id", id),
		zap.String("state", string(state)),
		zap.String("evaluated_by", actor.UserID))

	return s.findRecord(ctx, id)
}

// Delete soft-deletes a record. Admin only; role enforcement lives in the
// router, ownership is not relevant here.
func (s *NoShowService) Delete(ctx context.Context, id string) error {
	if _, err := s.findRecord(ctx, id); err != nil {
		return err
	}
	if err := s.noShows.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}
	return nil
}

func (s *NoShowService) findRecord(ctx context.Context, id string) (*models.NoShow, error) {
	record, err := s.noShows.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no-show record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load no-show record")
	}
	return record, nil
}

func (s *NoShowService) authorizeRead(ctx context.Context, actor *models.JWTClaims, record *models.NoShow) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePatient:
		if actor.PatientID != nil && record.PatientID == *actor.PatientID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "record belongs to another patient")
	case models.RoleProfessional:
		return s.authorizeProfessional(ctx, actor, record)
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
}

// authorizeProfessional admits the professional owning the record's slot.
// Records without a slot reference stay admin-only.
func (s *NoShowService) authorizeProfessional(ctx context.Context, actor *models.JWTClaims, record *models.NoShow) error {
	if actor.ProfessionalID == nil || record.SlotID == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	slot, err := s.slots.FindByID(ctx, *record.SlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if slot.ProfessionalID != *actor.ProfessionalID {
		return appErrors.Clone(appErrors.ErrForbidden, "record belongs to another professional")
	}
	return nil
}

func (s *NoShowService) notifyPatient(ctx context.Context, record *models.NoShow, state models.NoShowState) {
	if s.notifier == nil {
		return
	}
	patient, err := s.patients.FindByID(ctx, record.PatientID)
	if err != nil {
		s.logger.Warn("failed to resolve patient for notification", zap.Error(err))
		return
	}
	title := "Justificación aprobada"
	message := "Tu justificación de inasistencia fue aprobada"
	if state == models.NoShowUnjustified {
		title = "Justificación rechazada"
		message = "Tu justificación de inasistencia fue rechazada"
	}
	s.notifier.Notify(patient.UserID, models.NotificationSlotStateUpdated, title, message)
}
