package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/boutique-booking-api/internal/handler"
	"github.com/noah-isme/boutique-booking-api/internal/middleware"
	"github.com/noah-isme/boutique-booking-api/internal/models"
	"github.com/noah-isme/boutique-booking-api/internal/repository"
	"github.com/noah-isme/boutique-booking-api/internal/service"
	"github.com/noah-isme/boutique-booking-api/pkg/cache"
	"github.com/noah-isme/boutique-booking-api/pkg/config"
	"github.com/noah-isme/boutique-booking-api/pkg/database"
	"github.com/noah-isme/boutique-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/boutique-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/boutique-booking-api/pkg/middleware/requestid"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, calendar caching disabled", "error", err)
		redisClient = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	validate := validator.New()
	metrics := service.NewMetricsService()

	apptRepo := repository.NewAppointmentRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, service.NewLogSender(logr), cfg.Notifications, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	calendarSvc := service.NewCalendarService(calendarRepo, cacheRepo, cfg.Calendar.CacheTTL, validate, metrics, logr)
	apptSvc := service.NewAppointmentService(apptRepo, calendarSvc, notificationSvc, metrics, validate, cfg.Booking.SlotDuration, logr)
	slotSvc := service.NewSlotService(apptRepo, apptRepo, cfg.Booking, logr)
	reminderSvc := service.NewReminderService(apptRepo, notificationSvc, metrics, cfg.Reminders, logr)
	reminderSvc.Start(ctx)

	apptHandler := handler.NewAppointmentHandler(apptSvc, slotSvc, notificationSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	reminderHandler := handler.NewReminderHandler(reminderSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		appointments := api.Group("/appointments")
		appointments.GET("", apptHandler.List)
		appointments.GET("/availability", apptHandler.Availability)
		appointments.GET("/:id", apptHandler.Get)
		appointments.GET("/:id/notifications", apptHandler.Notifications)
		appointments.POST("", middleware.Audit(auditRepo, models.AuditActionAppointmentCreate, "appointment"), apptHandler.Create)
		appointments.PATCH("/:id/status", middleware.Audit(auditRepo, models.AuditActionAppointmentTransition, "appointment"), apptHandler.Transition)
		appointments.PATCH("/:id/assignee", middleware.Audit(auditRepo, models.AuditActionAppointmentAssign, "appointment"), apptHandler.Assign)

		calendar := api.Group("/calendar")
		calendar.GET("", calendarHandler.Query)
		calendar.POST("/events", middleware.Audit(auditRepo, models.AuditActionCalendarEventCreate, "calendar_event"), calendarHandler.CreateEvent)
		calendar.DELETE("/events/:id", middleware.Audit(auditRepo, models.AuditActionCalendarEventDelete, "calendar_event"), calendarHandler.DeleteEvent)

		api.POST("/reminders/sweep", reminderHandler.Sweep)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
