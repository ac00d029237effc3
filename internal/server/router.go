package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/studyrail/studyrail-backend/internal/http/handlers"
	"github.com/studyrail/studyrail-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName     string
	AllowOrigins    []string
	AuthMiddleware  *middleware.AuthMiddleware
	SectionHandler  *handlers.SectionHandler
	LessonHandler   *handlers.LessonHandler
	ProgressHandler *handlers.ProgressHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	allowOrigins := cfg.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		// Lesson views
		api.GET("/lessons/:id/sections", cfg.LessonHandler.ListSections)
		api.GET("/lessons/:id/completion", cfg.LessonHandler.GetCompletion)
		api.GET("/lessons/:id/stats", cfg.LessonHandler.GetStats)

		// Section authoring
		api.POST("/lessons/:id/sections", cfg.SectionHandler.CreateSection)
		api.GET("/lessons/:id/sections/next-position", cfg.SectionHandler.NextPosition)
		api.POST("/lessons/:id/sections/reorder", cfg.SectionHandler.ReorderSections)
		api.PATCH("/sections/:id", cfg.SectionHandler.UpdateSection)
		api.DELETE("/sections/:id", cfg.SectionHandler.DeleteSection)

		// Learner progress
		api.POST("/sections/:id/complete", cfg.ProgressHandler.MarkCompleted)
		api.POST("/sections/:id/time", cfg.ProgressHandler.RecordTime)
		api.POST("/sections/:id/attempt", cfg.ProgressHandler.RecordAttempt)
	}

	return router
}
