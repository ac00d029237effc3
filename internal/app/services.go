package app

import (
	"gorm.io/gorm"

	redisclient "github.com/studyrail/studyrail-backend/internal/clients/redis"
	"github.com/studyrail/studyrail-backend/internal/platform/logger"
	"github.com/studyrail/studyrail-backend/internal/services"
)

type Services struct {
	Section     services.SectionService
	Progression services.ProgressionService
	Completion  services.CompletionService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) Services {
	log.Info("Wiring services...")

	// The view cache is optional: without REDIS_ADDR every read goes straight
	// to the store.
	var cache redisclient.ViewCache
	if c, err := redisclient.NewViewCache(log, cfg.ViewCacheTTL); err != nil {
		log.Warn("Could not init redis view cache, running without it", "error", err)
	} else {
		cache = c
	}

	var sectionCache services.ViewInvalidator
	var gatingCache services.GatingViewCache
	if cache != nil {
		sectionCache = cache
		gatingCache = cache
	}

	return Services{
		Section:     services.NewSectionService(db, log, reposet.Section, sectionCache),
		Progression: services.NewProgressionService(db, log, reposet.Section, reposet.SectionProgress, gatingCache),
		Completion:  services.NewCompletionService(db, log, reposet.Section, reposet.SectionProgress),
	}
}
