package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/saludgo/turnos-api/internal/models"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

type patientRepository interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error)
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	FindByUserID(ctx context.Context, userID string) (*models.Patient, error)
	Delete(ctx context.Context, id string) error
}

// PatientService exposes patient profile queries.
type PatientService struct {
	repo   patientRepository
	logger *zap.Logger
}

// NewPatientService constructs a PatientService.
func NewPatientService(repo patientRepository, logger *zap.Logger) *PatientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{repo: repo, logger: logger}
}

// List returns patients matching the filter. Admin and professionals only;
// enforcement lives in the router.
func (s *PatientService) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get fetches a profile by id. Patients may only read their own profile.
func (s *PatientService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Patient, error) {
	if actor != nil && actor.Role == models.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != id {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "profile belongs to another patient")
		}
	}
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

// Me returns the calling user's own patient profile.
func (s *PatientService) Me(ctx context.Context, actor *models.JWTClaims) (*models.Patient, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	patient, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no patient profile associated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}

// Delete removes a patient profile. Admin only.
func (s *PatientService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete patient")
	}
	s.logger.Info("patient deleted", zap.String("patient_id", id))
	return nil
}
