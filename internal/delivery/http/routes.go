package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodlog/backend/config"
)

// RouterDeps are the optional collaborators of the router
type RouterDeps struct {
	Logger         *zap.Logger
	Observer       RequestObserver
	MetricsHandler http.Handler
}

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, deps RouterDeps) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger, deps.Observer))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	limited := router.Group("/api", RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))

	// Original single-endpoint contract
	limited.POST("/analyze-food", handler.AnalyzeFood)

	// API v1 routes
	v1 := limited.Group("/v1")
	{
		// Nutrition endpoints
		nutrition := v1.Group("/nutrition")
		{
			nutrition.POST("/analyze", handler.AnalyzeFood)
		}

		// Diary endpoints
		users := v1.Group("/users/:userId")
		{
			users.GET("", handler.GetProfile)
			users.PUT("", handler.SaveProfile)
			users.GET("/days", handler.ListDays)
			users.GET("/days/:date", handler.GetDay)
			users.POST("/days/:date/analyze", handler.AnalyzeIntoDay)
			users.POST("/days/:date/foods", handler.AddFood)
			users.PUT("/days/:date/foods/:foodId", handler.UpdateFood)
			users.DELETE("/days/:date/foods/:foodId", handler.DeleteFood)
		}
	}

	return router
}
