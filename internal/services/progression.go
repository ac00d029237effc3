package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	repos "github.com/studyrail/studyrail-backend/internal/data/repos/learning"
	types "github.com/studyrail/studyrail-backend/internal/domain"
	"github.com/studyrail/studyrail-backend/internal/platform/apierr"
	"github.com/studyrail/studyrail-backend/internal/platform/logger"
)

var progressionTracer = otel.Tracer("studyrail/progression")

// SectionWithProgress is one row of the gated lesson view: the section, the
// caller's progress (nil when not started), the derived state, and whether
// the section is still locked behind unfinished prerequisites.
type SectionWithProgress struct {
	Section  *types.Section         `json:"section"`
	Progress *types.SectionProgress `json:"progress,omitempty"`
	State    string                 `json:"state"`
	Locked   bool                   `json:"locked"`
}

type ProgressionService interface {
	ListSectionsWithProgress(ctx context.Context, userID, lessonID uuid.UUID) ([]*SectionWithProgress, error)
	MarkSectionCompleted(ctx context.Context, userID, sectionID uuid.UUID, score *float64) (*types.SectionProgress, error)
	RecordTime(ctx context.Context, userID, sectionID uuid.UUID, seconds int) error
	RecordAttempt(ctx context.Context, userID, sectionID uuid.UUID) error
}

type progressionService struct {
	db           *gorm.DB
	log          *logger.Logger
	sectionRepo  repos.SectionRepo
	progressRepo repos.SectionProgressRepo
	cache        GatingViewCache
}

func NewProgressionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sectionRepo repos.SectionRepo,
	progressRepo repos.SectionProgressRepo,
	cache GatingViewCache,
) ProgressionService {
	return &progressionService{
		db:           db,
		log:          baseLog.With("service", "ProgressionService"),
		sectionRepo:  sectionRepo,
		progressRepo: progressRepo,
		cache:        cache,
	}
}

// ListSectionsWithProgress joins the lesson's sections with the user's
// progress rows and computes the locked flag per section. The two reads are
// not a transactional snapshot; sections change rarely and read skew is
// accepted.
func (s *progressionService) ListSectionsWithProgress(ctx context.Context, userID, lessonID uuid.UUID) ([]*SectionWithProgress, error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("missing user id")
	}
	if lessonID == uuid.Nil {
		return nil, apierr.Validation("missing lesson id")
	}

	ctx, span := progressionTracer.Start(ctx, "progression.ListSectionsWithProgress")
	defer span.End()

	if s.cache != nil {
		if raw, ok := s.cache.GetView(ctx, lessonID, userID); ok {
			var cached []*SectionWithProgress
			if err := json.Unmarshal(raw, &cached); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return cached, nil
			}
		}
	}

	sections, err := s.sectionRepo.GetByLessonIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		s.log.Warn("ListSectionsWithProgress: load sections failed", "error", err, "lesson_id", lessonID)
		return nil, err
	}

	sectionIDs := make([]uuid.UUID, 0, len(sections))
	for _, sec := range sections {
		sectionIDs = append(sectionIDs, sec.ID)
	}
	progressRows, err := s.progressRepo.GetByUserAndSectionIDs(ctx, nil, userID, sectionIDs)
	if err != nil {
		s.log.Warn("ListSectionsWithProgress: load progress failed", "error", err, "lesson_id", lessonID, "user_id", userID)
		return nil, err
	}
	progressByID := progressBySectionID(progressRows)

	locked := computeGating(sections, progressByID)

	view := make([]*SectionWithProgress, 0, len(sections))
	for _, sec := range sections {
		p := progressByID[sec.ID]
		view = append(view, &SectionWithProgress{
			Section:  sec,
			Progress: p,
			State:    p.State(),
			Locked:   locked[sec.ID],
		})
	}
	span.SetAttributes(attribute.Int("sections.count", len(view)))

	if s.cache != nil {
		if raw, err := json.Marshal(view); err == nil {
			s.cache.SetView(ctx, lessonID, userID, raw)
		}
	}
	return view, nil
}

// MarkSectionCompleted upserts the completed flag. Re-marking an already
// completed section is allowed and refreshes CompletedAt to the new call's
// timestamp; attempts and time spent are left untouched.
func (s *progressionService) MarkSectionCompleted(ctx context.Context, userID, sectionID uuid.UUID, score *float64) (*types.SectionProgress, error) {
	section, existing, err := s.loadForMutation(ctx, userID, sectionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := &types.SectionProgress{
		ID:          uuid.New(),
		UserID:      userID,
		SectionID:   sectionID,
		Completed:   true,
		CompletedAt: &now,
		Score:       score,
	}
	if existing != nil {
		row.ID = existing.ID
	}
	if err := s.progressRepo.Upsert(ctx, nil, row); err != nil {
		s.log.Warn("MarkSectionCompleted: upsert failed", "error", err, "section_id", sectionID, "user_id", userID)
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateView(ctx, section.LessonID, userID)
	}
	return s.progressRepo.GetByUserAndSectionID(ctx, nil, userID, sectionID)
}

// RecordTime adds elapsed seconds to the user's counter for the section,
// creating the progress record on first touch (NotStarted -> InProgress).
func (s *progressionService) RecordTime(ctx context.Context, userID, sectionID uuid.UUID, seconds int) error {
	if seconds <= 0 {
		return apierr.Validation("seconds must be positive")
	}
	section, _, err := s.loadForMutation(ctx, userID, sectionID)
	if err != nil {
		return err
	}
	if err := s.progressRepo.AddTimeSpent(ctx, nil, userID, sectionID, seconds); err != nil {
		s.log.Warn("RecordTime: increment failed", "error", err, "section_id", sectionID, "user_id", userID)
		return err
	}
	if s.cache != nil {
		s.cache.InvalidateView(ctx, section.LessonID, userID)
	}
	return nil
}

func (s *progressionService) RecordAttempt(ctx context.Context, userID, sectionID uuid.UUID) error {
	section, _, err := s.loadForMutation(ctx, userID, sectionID)
	if err != nil {
		return err
	}
	if err := s.progressRepo.AddAttempt(ctx, nil, userID, sectionID); err != nil {
		s.log.Warn("RecordAttempt: increment failed", "error", err, "section_id", sectionID, "user_id", userID)
		return err
	}
	if s.cache != nil {
		s.cache.InvalidateView(ctx, section.LessonID, userID)
	}
	return nil
}

// loadForMutation resolves the section, the caller's progress row (may be
// nil), and enforces gating: a locked section cannot be engaged with. A
// section the user already completed is always engageable, whatever its
// prerequisites look like now.
func (s *progressionService) loadForMutation(ctx context.Context, userID, sectionID uuid.UUID) (*types.Section, *types.SectionProgress, error) {
	if userID == uuid.Nil {
		return nil, nil, apierr.Validation("missing user id")
	}
	if sectionID == uuid.Nil {
		return nil, nil, apierr.Validation("missing section id")
	}

	rows, err := s.sectionRepo.GetByIDs(ctx, nil, []uuid.UUID{sectionID})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, nil, apierr.NotFound("section %s not found", sectionID)
	}
	section := rows[0]

	existing, err := s.progressRepo.GetByUserAndSectionID(ctx, nil, userID, sectionID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil && existing.Completed {
		return section, existing, nil
	}

	if len(section.Prerequisites) > 0 {
		siblings, err := s.sectionRepo.GetByLessonIDs(ctx, nil, []uuid.UUID{section.LessonID})
		if err != nil {
			return nil, nil, err
		}
		sectionIDs := make([]uuid.UUID, 0, len(siblings))
		for _, sib := range siblings {
			sectionIDs = append(sectionIDs, sib.ID)
		}
		progressRows, err := s.progressRepo.GetByUserAndSectionIDs(ctx, nil, userID, sectionIDs)
		if err != nil {
			return nil, nil, err
		}
		locked := computeGating(siblings, progressBySectionID(progressRows))
		if locked[sectionID] {
			return nil, nil, apierr.Conflict("section %s is locked", sectionID)
		}
	}
	return section, existing, nil
}

// computeGating marks a section locked when at least one prerequisite id is
// absent from the user's completed set. A prerequisite id that resolves to no
// live section therefore keeps its dependents locked; creation-side
// validation and delete rejection keep such ids from arising.
func computeGating(sections []*types.Section, progressByID map[uuid.UUID]*types.SectionProgress) map[uuid.UUID]bool {
	completed := make(map[uuid.UUID]bool, len(progressByID))
	for id, p := range progressByID {
		if p != nil && p.Completed {
			completed[id] = true
		}
	}

	locked := make(map[uuid.UUID]bool, len(sections))
	for _, sec := range sections {
		isLocked := false
		for _, prereq := range sec.Prerequisites {
			if !completed[prereq] {
				isLocked = true
				break
			}
		}
		locked[sec.ID] = isLocked
	}
	return locked
}

func progressBySectionID(rows []*types.SectionProgress) map[uuid.UUID]*types.SectionProgress {
	byID := make(map[uuid.UUID]*types.SectionProgress, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		byID[row.SectionID] = row
	}
	return byID
}
