package app

import (
	"github.com/gin-gonic/gin"

	"github.com/studyrail/studyrail-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:     cfg.ServiceName,
		AllowOrigins:    cfg.AllowOrigins,
		AuthMiddleware:  middleware.Auth,
		SectionHandler:  handlers.Section,
		LessonHandler:   handlers.Lesson,
		ProgressHandler: handlers.Progress,
	})
}
