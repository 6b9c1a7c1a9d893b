package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/saludgo/turnos-api/api/swagger"
	"github.com/saludgo/turnos-api/internal/handler"
	"github.com/saludgo/turnos-api/internal/middleware"
	"github.com/saludgo/turnos-api/internal/repository"
	"github.com/saludgo/turnos-api/internal/service"
	"github.com/saludgo/turnos-api/pkg/cache"
	"github.com/saludgo/turnos-api/pkg/config"
	"github.com/saludgo/turnos-api/pkg/database"
	"github.com/saludgo/turnos-api/pkg/jobs"
	"github.com/saludgo/turnos-api/pkg/logger"
	corsmiddleware "github.com/saludgo/turnos-api/pkg/middleware/cors"
	reqidmiddleware "github.com/saludgo/turnos-api/pkg/middleware/requestid"
)

// @title Turnos API
// @version 1.0.0
// @description Medical appointment scheduling backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional: without it schedule generation runs unguarded and
	// reports skip the cache.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	professionalRepo := repository.NewProfessionalRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	noShowRepo := repository.NewNoShowRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	// Locker and cache repository both degrade gracefully when the redis
	// client is nil.
	locker := cache.NewLocker(redisClient, cfg.Booking.GenerationLockTTL)

	authSvc := service.NewAuthService(userRepo, patientRepo, professionalRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	metricsSvc := service.NewMetricsService()
	patientSvc := service.NewPatientService(patientRepo, logr)
	professionalSvc := service.NewProfessionalService(professionalRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, slotRepo, professionalRepo, locker, notificationSvc, metricsSvc, validate, logr)
	slotSvc := service.NewSlotService(slotRepo, noShowRepo, patientRepo, professionalRepo, userRepo, notificationSvc, metricsSvc, validate, logr)
	noShowSvc := service.NewNoShowService(noShowRepo, slotRepo, patientRepo, notificationSvc, validate, logr)
	reportSvc := service.NewReportService(reportRepo, cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.Deps{
		Auth:          authSvc,
		Users:         userRepo,
		Metrics:       metricsSvc,
		AuthHandler:   handler.NewAuthHandler(authSvc),
		Patients:      handler.NewPatientHandler(patientSvc),
		Professionals: handler.NewProfessionalHandler(professionalSvc),
		Schedules:     handler.NewScheduleHandler(scheduleSvc),
		Slots:         handler.NewSlotHandler(slotSvc),
		NoShows:       handler.NewNoShowHandler(noShowSvc),
		Reports:       handler.NewReportHandler(reportSvc, scheduleSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
