package app

import (
	"gorm.io/gorm"

	repos "github.com/studyrail/studyrail-backend/internal/data/repos/learning"
	"github.com/studyrail/studyrail-backend/internal/platform/logger"
)

type Repos struct {
	Section         repos.SectionRepo
	SectionProgress repos.SectionProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Section:         repos.NewSectionRepo(db, log),
		SectionProgress: repos.NewSectionProgressRepo(db, log),
	}
}
