package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/service"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
	"github.com/saludgo/turnos-api/pkg/response"
)

// NoShowHandler exposes the justification workflow endpoints.
type NoShowHandler struct {
	noShows *service.NoShowService
}

// NewNoShowHandler constructs NoShowHandler.
func NewNoShowHandler(noShows *service.NoShowService) *NoShowHandler {
	return &NoShowHandler{noShows: noShows}
}

func noShowFilterFromQuery(c *gin.Context) (models.NoShowFilter, error) {
	var filter models.NoShowFilter
	if raw := c.Query("estado"); raw != "" {
		state := models.NoShowState(raw)
		if !state.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown no-show state")
		}
		filter.State = &state
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter, nil
}

// List godoc
// @Summary List no-show records with the caller's visibility
// @Tags NoShows
// @Produce json
// @Param estado query string false "Filter by state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /inasistencias [get]
func (h *NoShowHandler) List(c *gin.Context) {
	filter, err := noShowFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, pagination, err := h.noShows.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ListOwn godoc
// @Summary List the calling patient's no-show records
// @Tags NoShows
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /inasistencias/mis-inasistencias [get]
func (h *NoShowHandler) ListOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || claims.PatientID == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no patient profile associated"))
		return
	}

	filter, err := noShowFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, pagination, err := h.noShows.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get one no-show record
// @Tags NoShows
// @Produce json
// @Param id path string true "No-show ID"
// @Success 200 {object} response.Envelope
// @Router /inasistencias/{id} [get]
func (h *NoShowHandler) Get(c *gin.Context) {
	record, err := h.noShows.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Justify godoc
// @Summary Submit a justification for a no-show
// @Tags NoShows
// @Accept json
// @Produce json
// @Param id path string true "No-show ID"
// @Param payload body models.SubmitJustificationRequest true "Justification payload"
// @Success 200 {object} response.Envelope
// @Router /inasistencias/{id}/justificar [post]
func (h *NoShowHandler) Justify(c *gin.Context) {
	var req models.SubmitJustificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.noShows.Submit(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Evaluate godoc
// @Summary Approve or reject a pending justification
// @Tags NoShows
// @Accept json
// @Produce json
// @Param id path string true "No-show ID"
// @Param payload body models.EvaluateJustificationRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Router /inasistencias/{id}/evaluar [patch]
func (h *NoShowHandler) Evaluate(c *gin.Context) {
	var req models.EvaluateJustificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.noShows.Evaluate(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Soft-delete a no-show record
// @Tags NoShows
// @Param id path string true "No-show ID"
// @Success 204
// @Router /inasistencias/{id} [delete]
func (h *NoShowHandler) Delete(c *gin.Context) {
	if err := h.noShows.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
