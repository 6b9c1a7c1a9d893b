package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/service"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
	"github.com/saludgo/turnos-api/pkg/response"
)

// ScheduleHandler exposes monthly schedule endpoints.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param profesional query string false "Filter by professional"
// @Param mes query string false "Filter by month (YYYY-MM)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /agendas [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)

	var filter models.ScheduleFilter
	filter.ProfessionalID = c.Query("profesional")
	if raw := c.Query("mes"); raw != "" {
		month, err := time.Parse("2006-01", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "mes must use YYYY-MM"))
			return
		}
		filter.Month = &month
	}
	filter.Page, filter.PageSize = pageParams(c)

	// Professionals only ever see their own schedules.
	if claims != nil && claims.Role == models.RoleProfessional {
		if claims.ProfessionalID == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no professional profile associated"))
			return
		}
		filter.ProfessionalID = *claims.ProfessionalID
	}

	schedules, pagination, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get schedule detail
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /agendas/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)

	sched, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims != nil && claims.Role == models.RoleProfessional {
		if claims.ProfessionalID == nil || *claims.ProfessionalID != sched.ProfessionalID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "schedule belongs to another professional"))
			return
		}
	}
	response.JSON(c, http.StatusOK, sched, nil)
}

// Create godoc
// @Summary Create a schedule and generate its slots
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body models.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /agendas [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	claims := claimsFromContext(c)
	// Professionals create schedules for themselves; the id is implicit.
	if claims != nil && claims.Role == models.RoleProfessional && req.ProfessionalID == "" && claims.ProfessionalID != nil {
		req.ProfessionalID = *claims.ProfessionalID
	}

	sched, slotCount, err := h.schedules.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, sched, nil, map[string]interface{}{"slots_generated": slotCount})
}

// Update godoc
// @Summary Update a schedule definition
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body models.UpdateScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /agendas/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sched, err := h.schedules.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sched, nil)
}

// Delete godoc
// @Summary Delete a schedule and its slots
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /agendas/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
