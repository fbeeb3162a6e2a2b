package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/statusplus/portal-api/api/swagger"
	"github.com/statusplus/portal-api/internal/handler"
	"github.com/statusplus/portal-api/internal/middleware"
	"github.com/statusplus/portal-api/internal/models"
	"github.com/statusplus/portal-api/internal/repository"
	"github.com/statusplus/portal-api/internal/service"
	"github.com/statusplus/portal-api/internal/sheets"
	"github.com/statusplus/portal-api/pkg/cache"
	"github.com/statusplus/portal-api/pkg/config"
	"github.com/statusplus/portal-api/pkg/database"
	"github.com/statusplus/portal-api/pkg/logger"
	corsmiddleware "github.com/statusplus/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/statusplus/portal-api/pkg/middleware/requestid"
)

// @title Status Plus Portal API
// @version 1.0.0
// @description School announcement portal backed by a Google Sheets upstream
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	sheetsClient := sheets.NewClient(cfg.Sheets, logr, metricsSvc)
	sessionRepo := repository.NewSessionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authSvc := service.NewAuthService(sheetsClient, sessionRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	announcementSvc := service.NewAnnouncementService(sheetsClient, cacheRepo, sessionRepo, validate, logr, metricsSvc, cfg.Feed.CacheTTL)
	feedSvc := service.NewFeedService(announcementSvc, metricsSvc, logr, nil)
	sessionSvc := service.NewSessionService(cacheRepo, logr, cfg.Session.InactivityTimeout)

	authHandler := handler.NewAuthHandler(authSvc, sessionSvc)
	feedHandler := handler.NewFeedHandler(feedSvc)
	navHandler := handler.NewNavigationHandler(sessionSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	exportHandler := handler.NewExportHandler(announcementSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc), middleware.Activity(sessionSvc))
	protected.GET("/feed", feedHandler.Feed)
	protected.GET("/noticeboard", feedHandler.Noticeboard)
	protected.GET("/session/navigation", navHandler.State)
	protected.POST("/session/navigation/events", navHandler.Apply)

	admin := protected.Group("/announcements")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("", announcementHandler.List)
	admin.POST("", announcementHandler.Create)
	admin.PUT("/:id", announcementHandler.Update)
	admin.DELETE("/:id", announcementHandler.Delete)
	if cfg.Exports.Enabled {
		admin.GET("/export", exportHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
