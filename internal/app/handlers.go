package app

import (
	"github.com/studyrail/studyrail-backend/internal/http/handlers"
	"github.com/studyrail/studyrail-backend/internal/platform/logger"
)

type Handlers struct {
	Section  *handlers.SectionHandler
	Lesson   *handlers.LessonHandler
	Progress *handlers.ProgressHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Section:  handlers.NewSectionHandler(services.Section),
		Lesson:   handlers.NewLessonHandler(services.Progression, services.Completion),
		Progress: handlers.NewProgressHandler(services.Progression),
	}
}
