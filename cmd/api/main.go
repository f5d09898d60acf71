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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/elective-portal-api/api/swagger"
	"github.com/noah-isme/elective-portal-api/internal/handler"
	"github.com/noah-isme/elective-portal-api/internal/repository"
	"github.com/noah-isme/elective-portal-api/internal/service"
	"github.com/noah-isme/elective-portal-api/pkg/cache"
	"github.com/noah-isme/elective-portal-api/pkg/config"
	"github.com/noah-isme/elective-portal-api/pkg/database"
	"github.com/noah-isme/elective-portal-api/pkg/jobs"
	"github.com/noah-isme/elective-portal-api/pkg/logger"
	"github.com/noah-isme/elective-portal-api/pkg/mail"
	"github.com/noah-isme/elective-portal-api/pkg/storage"
)

// @title Elective Portal API
// @version 1.0.0
// @description Elective catalog and selection admission service
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	app, err := buildApp(cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}

	app.notifications.Start(ctx)
	defer app.notifications.Stop()
	go app.exports.RunCleanup(ctx, cfg.Exports.CleanupInterval)
	go sweepVisitors(ctx, app.selectLimiter, time.Minute)
	go app.reconciler.RunEvery(ctx, cfg.Catalog.ReconcileInterval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	router        *gin.Engine
	notifications *service.NotificationService
	exports       *service.ExportService
	reconciler    *service.ReconcileService
	selectLimiter rateLimiter
}

type rateLimiter interface {
	Sweep() int
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	electiveRepo := repository.NewElectiveRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	trackRepo := repository.NewTrackRepository(db)
	limitRepo := repository.NewCategoryLimitRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cacheRepo != nil)

	authSvc := service.NewAuthService(userRepo, studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	electiveSvc := service.NewElectiveService(electiveRepo, cacheSvc, userRepo, cfg.Catalog.CacheTTL, validate, logr)
	checker := service.NewAdmissionChecker(studentRepo, electiveRepo, selectionRepo, limitRepo, logr)
	selectionSvc := service.NewSelectionService(service.SelectionServiceDeps{
		Checker:   checker,
		Writer:    service.NewSelectionWriter(selectionRepo, metrics, logr),
		Store:     selectionRepo,
		Electives: electiveRepo,
		Cache:     cacheSvc,
		Audit:     userRepo,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	trackSvc := service.NewTrackService(trackRepo, validate, logr)
	limitSvc := service.NewCategoryLimitService(limitRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)
	reconcileSvc := service.NewReconcileService(selectionRepo, cacheSvc, userRepo, logr)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(selectionRepo, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, validate, logr)

	notificationSvc := service.NewNotificationService(studentRepo, mail.NewSender(cfg.Mail, logr), metrics, service.NotificationConfig{
		BatchSize: cfg.Mail.BatchSize,
		Queue: jobs.QueueConfig{
			Workers:    cfg.Mail.Workers,
			MaxRetries: cfg.Mail.MaxRetries,
			RetryDelay: cfg.Mail.RetryDelay,
		},
	}, validate, logr)

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	deps := routeDeps{
		cfg:     cfg,
		logger:  logr,
		metrics: metrics,
		auth:    authSvc,
		audit:   userRepo,

		authHandler:         handler.NewAuthHandler(authSvc),
		electiveHandler:     handler.NewElectiveHandler(electiveSvc, selectionSvc),
		selectionHandler:    handler.NewSelectionHandler(selectionSvc),
		studentHandler:      handler.NewStudentHandler(studentSvc),
		trackHandler:        handler.NewTrackHandler(trackSvc, limitSvc),
		exportHandler:       handler.NewExportHandler(exportSvc),
		notificationHandler: handler.NewNotificationHandler(notificationSvc),
		maintenanceHandler:  handler.NewMaintenanceHandler(reconcileSvc, metrics),
		metricsHandler:      handler.NewMetricsHandler(metrics, checks),
	}
	router, limiter := newRouter(deps)

	return &application{
		router:        router,
		notifications: notificationSvc,
		exports:       exportSvc,
		reconciler:    reconcileSvc,
		selectLimiter: limiter,
	}, nil
}

func sweepVisitors(ctx context.Context, limiter rateLimiter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
