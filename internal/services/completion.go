package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	repos "github.com/studyrail/studyrail-backend/internal/data/repos/learning"
	types "github.com/studyrail/studyrail-backend/internal/domain"
	"github.com/studyrail/studyrail-backend/internal/platform/apierr"
	"github.com/studyrail/studyrail-backend/internal/platform/logger"
)

// LessonStats summarises a user's progress across a whole lesson. Percent
// counts every section, required or not; TotalTimeSpentSeconds sums the time
// of every section the user has touched.
type LessonStats struct {
	TotalSections         int `json:"total_sections"`
	CompletedSections     int `json:"completed_sections"`
	Percent               int `json:"percent"`
	TotalTimeSpentSeconds int `json:"total_time_spent_seconds"`
}

type CompletionService interface {
	IsLessonCompleted(ctx context.Context, userID, lessonID uuid.UUID) (bool, error)
	GetStats(ctx context.Context, userID, lessonID uuid.UUID) (*LessonStats, error)
}

type completionService struct {
	db           *gorm.DB
	log          *logger.Logger
	sectionRepo  repos.SectionRepo
	progressRepo repos.SectionProgressRepo
}

func NewCompletionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sectionRepo repos.SectionRepo,
	progressRepo repos.SectionProgressRepo,
) CompletionService {
	return &completionService{
		db:           db,
		log:          baseLog.With("service", "CompletionService"),
		sectionRepo:  sectionRepo,
		progressRepo: progressRepo,
	}
}

// IsLessonCompleted is true once every required section has a completed
// progress row. A lesson with no required sections is vacuously complete.
func (s *completionService) IsLessonCompleted(ctx context.Context, userID, lessonID uuid.UUID) (bool, error) {
	sections, progressByID, err := s.load(ctx, userID, lessonID)
	if err != nil {
		return false, err
	}
	return lessonCompleted(sections, progressByID), nil
}

func (s *completionService) GetStats(ctx context.Context, userID, lessonID uuid.UUID) (*LessonStats, error) {
	sections, progressByID, err := s.load(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	return computeStats(sections, progressByID), nil
}

func (s *completionService) load(ctx context.Context, userID, lessonID uuid.UUID) ([]*types.Section, map[uuid.UUID]*types.SectionProgress, error) {
	if userID == uuid.Nil {
		return nil, nil, apierr.Validation("missing user id")
	}
	if lessonID == uuid.Nil {
		return nil, nil, apierr.Validation("missing lesson id")
	}

	sections, err := s.sectionRepo.GetByLessonIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		s.log.Warn("completion: load sections failed", "error", err, "lesson_id", lessonID)
		return nil, nil, err
	}
	sectionIDs := make([]uuid.UUID, 0, len(sections))
	for _, sec := range sections {
		sectionIDs = append(sectionIDs, sec.ID)
	}
	progressRows, err := s.progressRepo.GetByUserAndSectionIDs(ctx, nil, userID, sectionIDs)
	if err != nil {
		s.log.Warn("completion: load progress failed", "error", err, "lesson_id", lessonID, "user_id", userID)
		return nil, nil, err
	}
	return sections, progressBySectionID(progressRows), nil
}

func lessonCompleted(sections []*types.Section, progressByID map[uuid.UUID]*types.SectionProgress) bool {
	for _, sec := range sections {
		if !sec.Required {
			continue
		}
		p := progressByID[sec.ID]
		if p == nil || !p.Completed {
			return false
		}
	}
	return true
}

func computeStats(sections []*types.Section, progressByID map[uuid.UUID]*types.SectionProgress) *LessonStats {
	stats := &LessonStats{TotalSections: len(sections)}
	for _, sec := range sections {
		p := progressByID[sec.ID]
		if p == nil {
			continue
		}
		if p.Completed {
			stats.CompletedSections++
		}
		stats.TotalTimeSpentSeconds += p.TimeSpentSeconds
	}
	if stats.TotalSections == 0 {
		// Zero-division guard: an empty lesson reads as fully complete.
		stats.Percent = 100
		return stats
	}
	stats.Percent = int(math.Round(float64(stats.CompletedSections) / float64(stats.TotalSections) * 100))
	return stats
}
