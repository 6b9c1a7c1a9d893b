package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/service"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
	"github.com/saludgo/turnos-api/pkg/response"
)

// ReportHandler exposes attendance report endpoints.
type ReportHandler struct {
	reports   *service.ReportService
	schedules *service.ScheduleService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, schedules *service.ScheduleService) *ReportHandler {
	return &ReportHandler{reports: reports, schedules: schedules}
}

// respond serves the report as JSON, CSV or PDF depending on ?formato=.
func (h *ReportHandler) respond(c *gin.Context, report *models.AttendanceReport) {
	format := c.Query("formato")
	if format == "" {
		response.JSON(c, http.StatusOK, report, nil)
		return
	}

	payload, contentType, err := h.reports.Export(c.Request.Context(), report, service.ExportFormat(format))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("reporte-%s.%s", report.Scope, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// Global godoc
// @Summary Global attendance report
// @Tags Reports
// @Produce json
// @Param formato query string false "Export format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Router /reportes/global [get]
func (h *ReportHandler) Global(c *gin.Context) {
	report, err := h.reports.Global(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, report)
}

// ByProfessional godoc
// @Summary Attendance report for one professional
// @Tags Reports
// @Produce json
// @Param id path string true "Professional ID"
// @Success 200 {object} response.Envelope
// @Router /reportes/{id}/profesional [get]
func (h *ReportHandler) ByProfessional(c *gin.Context) {
	claims := claimsFromContext(c)
	id := c.Param("id")
	if claims != nil && claims.Role == models.RoleProfessional {
		if claims.ProfessionalID == nil || *claims.ProfessionalID != id {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another professional"))
			return
		}
	}

	report, err := h.reports.ByProfessional(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, report)
}

// ByPatient godoc
// @Summary Attendance report for one patient
// @Tags Reports
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /reportes/{id}/paciente [get]
func (h *ReportHandler) ByPatient(c *gin.Context) {
	claims := claimsFromContext(c)
	id := c.Param("id")
	if claims != nil && claims.Role == models.RolePatient {
		if claims.PatientID == nil || *claims.PatientID != id {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another patient"))
			return
		}
	}

	report, err := h.reports.ByPatient(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, report)
}

// BySchedule godoc
// @Summary Attendance report for one schedule
// @Tags Reports
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /reportes/{id}/agenda [get]
func (h *ReportHandler) BySchedule(c *gin.Context) {
	claims := claimsFromContext(c)
	id := c.Param("id")

	if claims != nil && claims.Role == models.RoleProfessional {
		sched, err := h.schedules.Get(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		if claims.ProfessionalID == nil || *claims.ProfessionalID != sched.ProfessionalID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "schedule belongs to another professional"))
			return
		}
	}

	report, err := h.reports.BySchedule(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, report)
}
