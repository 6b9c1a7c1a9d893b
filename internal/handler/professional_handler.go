package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/service"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
	"github.com/saludgo/turnos-api/pkg/response"
)

// ProfessionalHandler exposes professional endpoints.
type ProfessionalHandler struct {
	professionals *service.ProfessionalService
}

// NewProfessionalHandler constructs ProfessionalHandler.
func NewProfessionalHandler(professionals *service.ProfessionalService) *ProfessionalHandler {
	return &ProfessionalHandler{professionals: professionals}
}

// List godoc
// @Summary List professionals
// @Tags Professionals
// @Produce json
// @Param specialty query string false "Filter by specialty"
// @Param search query string false "Search by name or license"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /profesionales [get]
func (h *ProfessionalHandler) List(c *gin.Context) {
	var filter models.ProfessionalFilter
	filter.Specialty = c.Query("specialty")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)

	professionals, pagination, err := h.professionals.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professionals, pagination)
}

// Get godoc
// @Summary Get professional detail
// @Tags Professionals
// @Produce json
// @Param id path string true "Professional ID"
// @Success 200 {object} response.Envelope
// @Router /profesionales/{id} [get]
func (h *ProfessionalHandler) Get(c *gin.Context) {
	prof, err := h.professionals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prof, nil)
}

// Me godoc
// @Summary Get the calling user's professional profile
// @Tags Professionals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profesionales/me [get]
func (h *ProfessionalHandler) Me(c *gin.Context) {
	prof, err := h.professionals.Me(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prof, nil)
}

// Update godoc
// @Summary Update a professional profile
// @Tags Professionals
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body models.UpdateProfessionalRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /profesionales/{id} [put]
func (h *ProfessionalHandler) Update(c *gin.Context) {
	var req models.UpdateProfessionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	prof, err := h.professionals.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prof, nil)
}

// Delete godoc
// @Summary Delete a professional profile
// @Tags Professionals
// @Param id path string true "Professional ID"
// @Success 204
// @Router /profesionales/{id} [delete]
func (h *ProfessionalHandler) Delete(c *gin.Context) {
	if err := h.professionals.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
