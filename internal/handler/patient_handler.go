package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/service"
	"github.com/saludgo/turnos-api/pkg/response"
)

// PatientHandler exposes patient endpoints.
type PatientHandler struct {
	patients *service.PatientService
}

// NewPatientHandler constructs PatientHandler.
func NewPatientHandler(patients *service.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

// List godoc
// @Summary List patients
// @Tags Patients
// @Produce json
// @Param search query string false "Search by name or document"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /pacientes [get]
func (h *PatientHandler) List(c *gin.Context) {
	var filter models.PatientFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)

	patients, pagination, err := h.patients.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients, pagination)
}

// Get godoc
// @Summary Get patient detail
// @Tags Patients
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /pacientes/{id} [get]
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.patients.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Me godoc
// @Summary Get the calling user's patient profile
// @Tags Patients
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pacientes/me [get]
func (h *PatientHandler) Me(c *gin.Context) {
	patient, err := h.patients.Me(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Delete godoc
// @Summary Delete a patient profile
// @Tags Patients
// @Param id path string true "Patient ID"
// @Success 204
// @Router /pacientes/{id} [delete]
func (h *PatientHandler) Delete(c *gin.Context) {
	if err := h.patients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
