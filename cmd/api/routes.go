package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/elective-portal-api/internal/middleware"
	"github.com/noah-isme/elective-portal-api/internal/models"
	"github.com/noah-isme/elective-portal-api/pkg/config"
	"github.com/noah-isme/elective-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/elective-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/elective-portal-api/pkg/middleware/requestid"
)

type routeDeps struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics internalmiddleware.RequestObserver
	auth    internalmiddleware.TokenValidator
	audit   internalmiddleware.AuditWriter

	authHandler         *handler.AuthHandler
	electiveHandler     *handler.ElectiveHandler
	selectionHandler    *handler.SelectionHandler
	studentHandler      *handler.StudentHandler
	trackHandler        *handler.TrackHandler
	exportHandler       *handler.ExportHandler
	notificationHandler *handler.NotificationHandler
	maintenanceHandler  *handler.MaintenanceHandler
	metricsHandler      *handler.MetricsHandler
}

func newRouter(d routeDeps) (*gin.Engine, *internalmiddleware.RateLimiter) {
	if d.logger == nil {
		d.logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(d.metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", d.metricsHandler.Health)
	r.GET("/ready", d.metricsHandler.Ready)
	r.GET("/metrics", d.metricsHandler.Prometheus)

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := strings.TrimRight(d.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	requireAuth := internalmiddleware.JWT(d.auth)
	admin := internalmiddleware.RequireAdmin()
	student := internalmiddleware.RequireRoles(models.RoleStudent, models.RoleAdmin, models.RoleSuperAdmin)

	auth := api.Group("/auth")
	auth.POST("/register", d.authHandler.Register)
	auth.POST("/login", d.authHandler.Login)
	auth.POST("/refresh", d.authHandler.Refresh)
	auth.POST("/logout", requireAuth, d.authHandler.Logout)
	auth.GET("/me", requireAuth, d.authHandler.Me)
	auth.PUT("/password", requireAuth, d.authHandler.ChangePassword)

	limiter := internalmiddleware.NewRateLimiter(d.cfg.RateLimit.SelectionRPS, d.cfg.RateLimit.SelectionBurst)

	electives := api.Group("/electives")
	electives.GET("", internalmiddleware.OptionalJWT(d.auth), d.electiveHandler.List)
	electives.GET("/:id", internalmiddleware.OptionalJWT(d.auth), d.electiveHandler.Get)
	electives.POST("", requireAuth, admin, d.electiveHandler.Create)
	electives.PUT("/:id", requireAuth, admin, d.electiveHandler.Update)
	electives.DELETE("/:id", requireAuth, admin, d.electiveHandler.Deactivate)
	electives.POST("/select/:id", requireAuth, student, limiter.Middleware(), d.electiveHandler.Select)
	electives.POST("/:id/select", requireAuth, student, limiter.Middleware(), d.electiveHandler.Select)

	selections := api.Group("/selections", requireAuth)
	selections.GET("/me", student, d.selectionHandler.Mine)
	selections.GET("", admin, d.selectionHandler.List)
	selections.DELETE("/:id", student, d.selectionHandler.Drop)
	selections.PATCH("/:id/status", admin, d.selectionHandler.UpdateStatus)
	selections.POST("/export", admin, d.exportHandler.Generate)
	// Signed tokens authorise the download on their own.
	api.GET("/selections/exports/download", d.exportHandler.Download)

	students := api.Group("/students", requireAuth)
	students.GET("/me", student, d.studentHandler.Me)
	students.GET("", admin, d.studentHandler.List)
	students.GET("/:id", admin, d.studentHandler.Get)

	api.GET("/tracks", d.trackHandler.ListTracks)
	api.POST("/tracks", requireAuth, admin, internalmiddleware.Audit(d.audit, d.logger, models.AuditActionCreate, "track"), d.trackHandler.CreateTrack)
	api.GET("/category-limits", d.trackHandler.ListLimits)
	api.PUT("/category-limits", requireAuth, admin, internalmiddleware.Audit(d.audit, d.logger, models.AuditActionUpdate, "category_limit"), d.trackHandler.UpsertLimit)

	api.POST("/notifications", requireAuth, admin, internalmiddleware.Audit(d.audit, d.logger, models.AuditActionCreate, "notification"), d.notificationHandler.Broadcast)

	maintenance := api.Group("/maintenance", requireAuth, admin)
	maintenance.POST("/reconcile", d.maintenanceHandler.Reconcile)
	maintenance.GET("/stats", d.maintenanceHandler.Stats)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found", "code": "NOT_FOUND"})
	})

	return r, limiter
}
