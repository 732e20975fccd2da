package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wikiquest/wikiquest/config"
	"github.com/wikiquest/wikiquest/controllers"
	"github.com/wikiquest/wikiquest/middleware"
	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, progress *services.ProgressionService) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log and panics go to their own rolling file.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnf("gin logger unavailable, using default recovery: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, progress)
	progressController := controllers.NewProgressController(progress)
	checkInController := controllers.NewCheckInController(progress)
	questController := controllers.NewQuestController(progress)
	statsController := controllers.NewStatsController(db, progress)
	configController := controllers.NewConfigController(progress)

	api := r.Group("/api/v1")
	api.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public endpoints
	api.GET("/leaderboard", statsController.GetLeaderboard)
	api.GET("/stats", statsController.GetStats)
	api.GET("/config/levels", configController.GetLevels)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.GET("/progress/level", progressController.GetLevel)
	protected.GET("/progress/stats", progressController.GetStats)
	protected.POST("/progress/xp", progressController.AwardXP)
	protected.POST("/checkin", checkInController.DailyCheckIn)
	protected.GET("/checkin/status", checkInController.CheckInStatus)
	protected.GET("/quests", questController.ListQuests)
	protected.POST("/quests/:id/complete", questController.CompleteQuest)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
