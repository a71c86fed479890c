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
	"go.uber.org/zap"

	_ "github.com/opswindow/opswindow-api/api/swagger"
	"github.com/opswindow/opswindow-api/internal/handler"
	"github.com/opswindow/opswindow-api/internal/middleware"
	"github.com/opswindow/opswindow-api/internal/models"
	"github.com/opswindow/opswindow-api/internal/repository"
	"github.com/opswindow/opswindow-api/internal/scheduler"
	"github.com/opswindow/opswindow-api/internal/service"
	"github.com/opswindow/opswindow-api/pkg/cache"
	"github.com/opswindow/opswindow-api/pkg/config"
	"github.com/opswindow/opswindow-api/pkg/database"
	"github.com/opswindow/opswindow-api/pkg/logger"
	corsmiddleware "github.com/opswindow/opswindow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opswindow/opswindow-api/pkg/middleware/requestid"
	"github.com/opswindow/opswindow-api/pkg/notify"
	"github.com/opswindow/opswindow-api/pkg/storage"
)

// @title OpsWindow API
// @version 1.0.0
// @description Maintenance announcement and customer approval service
// @BasePath /
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, detail cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	announcementRepo := repository.NewAnnouncementRepository(db)
	recipientRepo := repository.NewRecipientRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer, cfg.Approval.TokenSecret, validate, logr)
	announcementService := service.NewAnnouncementService(announcementRepo, recipientRepo, activityRepo, cacheRepo, cfg.Cache.AnnouncementTTL, metrics, validate, logr)
	customerService := service.NewCustomerService(customerRepo, validate, logr)

	dispatcher := notify.NewWebPushDispatcher(notify.VAPIDConfig{
		PublicKey:  cfg.Notifications.VAPIDPublicKey,
		PrivateKey: cfg.Notifications.VAPIDPrivateKey,
		Subject:    cfg.Notifications.Subject,
		TTL:        cfg.Notifications.PushTTL,
	}, logr)
	notificationService := service.NewNotificationService(announcementRepo, recipientRepo, customerRepo, dispatcher,
		announcementService, activityRepo, authService, metrics,
		cfg.Approval.LinkBaseURL, cfg.Approval.TokenTTL, cfg.Notifications.Concurrency, logr)
	approvalService := service.NewApprovalService(authService, recipientRepo, announcementRepo, cacheRepo, metrics, logr)
	deadlineService := service.NewDeadlineService(announcementRepo, activityRepo, cacheRepo, metrics, logr)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.Dir)
	if err != nil {
		logr.Fatal("failed to prepare report archive", zap.Error(err))
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SigningSecret, cfg.Reports.LinkTTL)
	reportService := service.NewReportService(announcementService, reportStore, reportSigner, service.ReportConfig{
		LinkBaseURL:  cfg.Reports.LinkBaseURL,
		RetentionTTL: cfg.Reports.RetentionTTL,
	}, logr, nil, nil)

	announcementHandler := handler.NewAnnouncementHandler(announcementService, notificationService, reportService)
	customerHandler := handler.NewCustomerHandler(customerService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	authHandler := handler.NewAuthHandler(authService)
	reportHandler := handler.NewReportHandler(reportService)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Customer-facing approval links, scoped by the token in the path.
	approvals := r.Group("/approvals")
	{
		approvals.GET("/:token", approvalHandler.View)
		approvals.POST("/:token/approve", approvalHandler.Approve)
		approvals.POST("/:token/reject", approvalHandler.Reject)
	}

	// Archived report downloads, authorized by the signed token alone.
	r.GET("/reports/:token", reportHandler.Download)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	{
		announcements := protected.Group("/announcements")
		{
			announcements.POST("", announcementHandler.Create)
			announcements.GET("", announcementHandler.List)
			announcements.GET("/:id", announcementHandler.Get)
			announcements.PUT("/:id", announcementHandler.Update)
			announcements.DELETE("/:id", announcementHandler.Delete)
			announcements.PATCH("/:id/status", announcementHandler.UpdateStatus)
			announcements.POST("/:id/notifications", announcementHandler.SendNotifications)
			announcements.POST("/:id/reminders", announcementHandler.SendReminders)
			announcements.GET("/:id/report", announcementHandler.Report)
		}

		customers := protected.Group("/customers")
		customers.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleOperator))
		{
			customers.POST("", customerHandler.Create)
			customers.GET("", customerHandler.List)
			customers.GET("/:id", customerHandler.Get)
			customers.PUT("/:id", customerHandler.Update)
			customers.DELETE("/:id", customerHandler.Delete)
		}
	}

	var watcher *scheduler.DeadlineWatcher
	if cfg.Deadlines.Enabled {
		watcher = scheduler.NewDeadlineWatcher(deadlineService, cfg.Deadlines.CronSpec, logr)
		if err := watcher.Start(); err != nil {
			logr.Fatal("failed to start deadline watcher", zap.Error(err))
		}
	}

	var janitor *scheduler.ReportJanitor
	if cfg.Reports.CleanupCronSpec != "" {
		janitor = scheduler.NewReportJanitor(reportService, cfg.Reports.CleanupCronSpec, logr)
		if err := janitor.Start(); err != nil {
			logr.Fatal("failed to start report janitor", zap.Error(err))
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	if watcher != nil {
		watcher.Stop()
	}
	if janitor != nil {
		janitor.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
