package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saludgo/turnos-api/internal/models"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

type professionalRepository interface {
	List(ctx context.Context, filter models.ProfessionalFilter) ([]models.Professional, int, error)
	FindByID(ctx context.Context, id string) (*models.Professional, error)
	FindByUserID(ctx context.Context, userID string) (*models.Professional, error)
	Update(ctx context.Context, prof *models.Professional) error
	Delete(ctx context.Context, id string) error
}

// ProfessionalService exposes professional profile queries and edits.
type ProfessionalService struct {
	repo      professionalRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessionalService constructs a ProfessionalService.
func NewProfessionalService(repo professionalRepository, validate *validator.Validate, logger *zap.Logger) *ProfessionalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfessionalService{repo: repo, validator: validate, logger: logger}
}

// List returns professionals matching the filter. Open to every
// authenticated role so patients can browse before booking.
func (s *ProfessionalService) List(ctx context.Context, filter models.ProfessionalFilter) ([]models.Professional, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professionals")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get fetches a profile by id.
func (s *ProfessionalService) Get(ctx context.Context, id string) (*models.Professional, error) {
	prof, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professional not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professional")
	}
	return prof, nil
}

// Me returns the calling user's own professional profile.
func (s *ProfessionalService) Me(ctx context.Context, actor *models.JWTClaims) (*models.Professional, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	prof, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no professional profile associated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professional")
	}
	return prof, nil
}

// Update edits a profile. Admins may edit anyone; professionals only
// themselves.
func (s *ProfessionalService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateProfessionalRequest) (*models.Professional, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if actor.Role == models.RoleProfessional && (actor.ProfessionalID == nil || *actor.ProfessionalID != id) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "profile belongs to another professional")
	}

	prof, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Specialty != nil {
		prof.Specialty = *req.Specialty
	}
	if req.Phone != nil {
		prof.Phone = *req.Phone
	}
	if req.WorkStart != nil {
		if _, err := parseClock(*req.WorkStart); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "work_start must use HH:MM")
		}
		prof.WorkStart = *req.WorkStart
	}
	if req.WorkEnd != nil {
		if _, err := parseClock(*req.WorkEnd); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "work_end must use HH:MM")
		}
		prof.WorkEnd = *req.WorkEnd
	}
	if req.AttendanceDays != nil {
		prof.AttendanceDays = req.AttendanceDays
	}
	if req.SlotDurationMin != nil {
		prof.SlotDurationMin = *req.SlotDurationMin
	}

	prof.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, prof); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update professional")
	}
	return prof, nil
}

// Delete removes a profile. Admin only.
func (s *ProfessionalService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete professional")
	}
	s.logger.Info("professional deleted", zap.String("professional_id", id))
	return nil
}
