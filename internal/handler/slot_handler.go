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

// SlotHandler exposes slot listing and lifecycle endpoints.
type SlotHandler struct {
	slots *service.SlotService
}

// NewSlotHandler constructs SlotHandler.
func NewSlotHandler(slots *service.SlotService) *SlotHandler {
	return &SlotHandler{slots: slots}
}

func slotFilterFromQuery(c *gin.Context) (models.SlotFilter, error) {
	var filter models.SlotFilter
	filter.ProfessionalID = c.Query("profesional")
	filter.ScheduleID = c.Query("agenda")
	if raw := c.Query("estado"); raw != "" {
		state := models.SlotState(raw)
		if !state.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown slot state")
		}
		filter.State = &state
	}
	if raw := c.Query("desde"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "desde must use YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("hasta"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "hasta must use YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	filter.Page, filter.PageSize = pageParams(c)
	return filter, nil
}

// List godoc
// @Summary List slots with the caller's visibility
// @Tags Slots
// @Produce json
// @Param profesional query string false "Filter by professional"
// @Param agenda query string false "Filter by schedule"
// @Param estado query string false "Filter by state"
// @Param desde query string false "Date from (YYYY-MM-DD)"
// @Param hasta query string false "Date to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /turnos [get]
func (h *SlotHandler) List(c *gin.Context) {
	filter, err := slotFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	slots, pagination, err := h.slots.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// ListOwn godoc
// @Summary List the calling patient's slots
// @Tags Slots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /turnos/mis-turnos [get]
func (h *SlotHandler) ListOwn(c *gin.Context) {
	filter, err := slotFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if filter.SortBy == "" {
		filter.SortBy = "date"
		filter.SortOrder = "desc"
	}

	slots, pagination, err := h.slots.ListOwn(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// ListBySchedule godoc
// @Summary List the slots of one schedule
// @Tags Slots
// @Produce json
// @Param agendaId path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /turnos/por-agenda/{agendaId} [get]
func (h *SlotHandler) ListBySchedule(c *gin.Context) {
	filter, err := slotFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	slots, pagination, err := h.slots.ListBySchedule(c.Request.Context(), claimsFromContext(c), c.Param("agendaId"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// Get godoc
// @Summary Get slot detail
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /turnos/{id} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	slot, err := h.slots.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Update godoc
// @Summary Mutate a slot according to the caller's role
// @Description Patients book an available slot (optionally with visit_reason)
// @Description or attach a justification to their own slot. Professionals and
// @Description admins set state to ATTENDED or NO_SHOW.
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body models.UpdateSlotRequest true "Mutation payload"
// @Success 200 {object} response.Envelope
// @Router /turnos/{id} [patch]
func (h *SlotHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var (
		slot *models.Slot
		err  error
	)
	switch claims.Role {
	case models.RolePatient:
		if req.Justification != nil {
			slot, err = h.slots.ReportAbsence(c.Request.Context(), claims, c.Param("id"), models.ReportAbsenceRequest{Justification: *req.Justification})
		} else {
			slot, err = h.slots.Book(c.Request.Context(), claims, c.Param("id"), models.BookSlotRequest{VisitReason: req.VisitReason})
		}
	case models.RoleProfessional, models.RoleAdmin:
		if req.State == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "state is required"))
			return
		}
		switch *req.State {
		case models.SlotAttended:
			slot, err = h.slots.MarkAttended(c.Request.Context(), claims, c.Param("id"))
		case models.SlotNoShow:
			slot, err = h.slots.MarkNoShow(c.Request.Context(), claims, c.Param("id"))
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidTransition, "state must be ATTENDED or NO_SHOW"))
			return
		}
	default:
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Cancel godoc
// @Summary Cancel the calling patient's reservation
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body models.CancelSlotRequest false "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /turnos/{id}/cancelar [post]
func (h *SlotHandler) Cancel(c *gin.Context) {
	var req models.CancelSlotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	slot, err := h.slots.Cancel(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// MarkNoShow godoc
// @Summary Mark a reserved slot as a no-show
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /turnos/{id}/marcar-inasistencia [patch]
func (h *SlotHandler) MarkNoShow(c *gin.Context) {
	slot, err := h.slots.MarkNoShow(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}
