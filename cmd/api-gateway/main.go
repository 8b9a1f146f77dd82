package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mohamedredwan17/etalem-api/api/swagger"
	"github.com/mohamedredwan17/etalem-api/internal/handler"
	"github.com/mohamedredwan17/etalem-api/internal/middleware"
	"github.com/mohamedredwan17/etalem-api/internal/repository"
	"github.com/mohamedredwan17/etalem-api/internal/service"
	"github.com/mohamedredwan17/etalem-api/pkg/cache"
	"github.com/mohamedredwan17/etalem-api/pkg/config"
	"github.com/mohamedredwan17/etalem-api/pkg/database"
	"github.com/mohamedredwan17/etalem-api/pkg/jobs"
	"github.com/mohamedredwan17/etalem-api/pkg/logger"
	corsmiddleware "github.com/mohamedredwan17/etalem-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mohamedredwan17/etalem-api/pkg/middleware/requestid"
	"github.com/mohamedredwan17/etalem-api/pkg/render"
	"github.com/mohamedredwan17/etalem-api/pkg/storage"
)

// @title Etalem Learning API
// @version 1.0.0
// @description Course progress, quiz attempts and asynchronous certificate generation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	store, err := storage.NewLocalStorage(cfg.Certificates.StorageDir, cfg.Certificates.PublicPath)
	if err != nil {
		logr.Sugar().Fatalw("failed to init certificate storage", "error", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)
	queue := jobs.NewFIFO("certificates", logr)

	authSvc := service.NewAuthService(cfg.JWT, logr)
	enrollmentSvc := service.NewEnrollmentService(courseRepo, enrollmentRepo, validate, logr)
	progressSvc := service.NewProgressService(courseRepo, enrollmentRepo, cacheRepo, metrics, logr)
	var contentSvc *service.ContentService
	if cfg.Content.CacheEnabled {
		contentSvc = service.NewContentService(courseRepo, quizRepo, enrollmentRepo, cacheRepo, cfg.Content.CacheTTL, logr)
	} else {
		contentSvc = service.NewContentService(courseRepo, quizRepo, enrollmentRepo, nil, cfg.Content.CacheTTL, logr)
	}
	attemptSvc := service.NewQuizAttemptService(quizRepo, enrollmentRepo, cacheRepo, validate, metrics, logr)
	certificateSvc := service.NewCertificateService(enrollmentRepo, courseRepo, quizRepo, queue, signer, logr)
	worker := service.NewCertificateWorker(certificateSvc, enrollmentRepo, studentRepo, courseRepo, render.NewPDFRenderer(), store, queue, cfg.Certificates.IdleBackoff, metrics, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, progressSvc)
	courseHandler := handler.NewCourseHandler(contentSvc)
	quizHandler := handler.NewQuizHandler(attemptSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc, store)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/certificates/download/:token", certificateHandler.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.POST("/enrollments", enrollmentHandler.Create)
		protected.GET("/enrollments", enrollmentHandler.List)
		protected.GET("/courses/:id/content", courseHandler.Content)
		protected.POST("/lessons/:id/complete", enrollmentHandler.CompleteLesson)
		protected.POST("/quizzes/:id/attempts", quizHandler.StartAttempt)
		protected.GET("/quizzes/:id/attempts", quizHandler.ListAttempts)
		protected.POST("/attempts/:id/submit", quizHandler.SubmitAttempt)
		protected.POST("/enrollments/:id/certificate", certificateHandler.Request)
		protected.GET("/enrollments/:id/certificate/status", certificateHandler.Status)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logr.Warn("certificate worker did not stop in time")
	}
	logr.Info("server stopped")
}
