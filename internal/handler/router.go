package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/saludgo/turnos-api/internal/middleware"
	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/repository"
	"github.com/saludgo/turnos-api/internal/service"
)

// Deps bundles everything the route table needs.
type Deps struct {
	Auth          *service.AuthService
	Users         *repository.UserRepository
	Metrics       *service.MetricsService
	AuthHandler   *AuthHandler
	Patients      *PatientHandler
	Professionals *ProfessionalHandler
	Schedules     *ScheduleHandler
	Slots         *SlotHandler
	NoShows       *NoShowHandler
	Reports       *ReportHandler
	Notifications *NotificationHandler
}

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(r *gin.Engine, d Deps) {
	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", d.AuthHandler.RegisterPatient)
		auth.POST("/login", d.AuthHandler.Login)
		auth.POST("/refresh", d.AuthHandler.Refresh)
		auth.POST("/logout", middleware.JWT(d.Auth), d.AuthHandler.Logout)
	}

	secured := v1.Group("")
	secured.Use(middleware.JWT(d.Auth))

	professionals := secured.Group("/profesionales")
	{
		professionals.POST("/registro",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(d.Users, models.AuditActionRegister, "professional"),
			d.AuthHandler.RegisterProfessional)
		professionals.GET("", d.Professionals.List)
		professionals.GET("/me", middleware.RequireRoles(models.RoleProfessional), d.Professionals.Me)
		professionals.GET("/:id", d.Professionals.Get)
		professionals.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional), d.Professionals.Update)
		professionals.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), d.Professionals.Delete)
	}

	patients := secured.Group("/pacientes")
	{
		patients.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional), d.Patients.List)
		patients.GET("/me", middleware.RequireRoles(models.RolePatient), d.Patients.Me)
		patients.GET("/:id", d.Patients.Get)
		patients.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), d.Patients.Delete)
	}

	schedules := secured.Group("/agendas")
	{
		schedules.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional), d.Schedules.List)
		schedules.POST("",
			middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional),
			middleware.Audit(d.Users, models.AuditActionMutation, "schedule"),
			d.Schedules.Create)
		schedules.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional), d.Schedules.Get)
		schedules.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional), d.Schedules.Update)
		schedules.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional), d.Schedules.Delete)
	}

	slots := secured.Group("/turnos")
	{
		slots.GET("", d.Slots.List)
		slots.GET("/mis-turnos", middleware.RequireRoles(models.RolePatient), d.Slots.ListOwn)
		slots.GET("/por-agenda/:agendaId", d.Slots.ListBySchedule)
		slots.GET("/:id", d.Slots.Get)
		slots.PATCH("/:id",
			middleware.Audit(d.Users, models.AuditActionBooking, "slot"),
			d.Slots.Update)
		slots.POST("/:id/cancelar", middleware.RequireRoles(models.RolePatient), d.Slots.Cancel)
		slots.PATCH("/:id/marcar-inasistencia",
			middleware.RequireRoles(models.RoleProfessional, models.RoleAdmin),
			d.Slots.MarkNoShow)
	}

	noShows := secured.Group("/inasistencias")
	{
		noShows.GET("", d.NoShows.List)
		noShows.GET("/mis-inasistencias", middleware.RequireRoles(models.RolePatient), d.NoShows.ListOwn)
		noShows.GET("/:id", d.NoShows.Get)
		noShows.POST("/:id/justificar", middleware.RequireRoles(models.RolePatient), d.NoShows.Justify)
		noShows.PATCH("/:id/evaluar", middleware.RequireRoles(models.RoleProfessional, models.RoleAdmin), d.NoShows.Evaluate)
		noShows.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), d.NoShows.Delete)
	}

	reports := secured.Group("/reportes")
	{
		reports.GET("/global", middleware.RequireRoles(models.RoleAdmin), d.Reports.Global)
		reports.GET("/:id/profesional", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional), d.Reports.ByProfessional)
		reports.GET("/:id/paciente", middleware.RequireRoles(models.RoleAdmin, models.RolePatient), d.Reports.ByPatient)
		reports.GET("/:id/agenda", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional), d.Reports.BySchedule)
	}

	notifications := secured.Group("/notificaciones")
	{
		notifications.GET("", d.Notifications.List)
		notifications.PATCH("/:id/leer", d.Notifications.MarkRead)
	}
}
