package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	repos "github.com/studyrail/studyrail-backend/internal/data/repos/learning"
	types "github.com/studyrail/studyrail-backend/internal/domain"
	"github.com/studyrail/studyrail-backend/internal/platform/apierr"
	"github.com/studyrail/studyrail-backend/internal/platform/logger"
)

const reorderParallelism = 8

// SectionPatch carries the mutable section fields; nil means "leave as is".
type SectionPatch struct {
	Title         *string      `json:"title"`
	Kind          *string      `json:"kind"`
	ContentRef    *string      `json:"content_ref"`
	Required      *bool        `json:"required"`
	Position      *int         `json:"position"`
	Prerequisites *[]uuid.UUID `json:"prerequisites"`
}

// ReorderResult reports the per-section outcome of a reorder. Updates run in
// parallel and are not transactional: entries in Updated stay applied even
// when Failed is non-empty.
type ReorderResult struct {
	Updated []uuid.UUID      `json:"updated"`
	Failed  []ReorderFailure `json:"failed,omitempty"`
}

type ReorderFailure struct {
	SectionID uuid.UUID `json:"section_id"`
	Error     string    `json:"error"`
}

type SectionService interface {
	CreateSection(ctx context.Context, section *types.Section) (*types.Section, error)
	UpdateSection(ctx context.Context, sectionID uuid.UUID, patch SectionPatch) (*types.Section, error)
	DeleteSection(ctx context.Context, sectionID uuid.UUID) error
	NextPosition(ctx context.Context, lessonID uuid.UUID) (int, error)
	ReorderSections(ctx context.Context, lessonID uuid.UUID, orderedIDs []uuid.UUID) (*ReorderResult, error)
}

type sectionService struct {
	db          *gorm.DB
	log         *logger.Logger
	sectionRepo repos.SectionRepo
	cache       ViewInvalidator
}

func NewSectionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sectionRepo repos.SectionRepo,
	cache ViewInvalidator,
) SectionService {
	return &sectionService{
		db:          db,
		log:         baseLog.With("service", "SectionService"),
		sectionRepo: sectionRepo,
		cache:       cache,
	}
}

func (s *sectionService) CreateSection(ctx context.Context, section *types.Section) (*types.Section, error) {
	if section == nil {
		return nil, apierr.Validation("missing section")
	}
	if section.LessonID == uuid.Nil {
		return nil, apierr.Validation("missing lesson id")
	}
	if section.Kind == "" {
		section.Kind = types.SectionKindContent
	}
	if !types.ValidSectionKind(section.Kind) {
		return nil, apierr.Validation("unknown section kind %q", section.Kind)
	}
	if section.ID == uuid.Nil {
		section.ID = uuid.New()
	}

	siblings, err := s.sectionRepo.GetByLessonIDs(ctx, nil, []uuid.UUID{section.LessonID})
	if err != nil {
		s.log.Warn("CreateSection: load lesson sections failed", "error", err, "lesson_id", section.LessonID)
		return nil, err
	}
	if err := validatePrerequisites(section.ID, section.LessonID, section.Prerequisites, siblings); err != nil {
		return nil, err
	}
	if hasPrereqCycle(append(siblings, section)) {
		return nil, apierr.Validation("prerequisites introduce a cycle")
	}

	if section.Position == 0 {
		max, err := s.sectionRepo.MaxPosition(ctx, nil, section.LessonID)
		if err != nil {
			return nil, err
		}
		section.Position = max + types.PositionGap
	}

	created, err := s.sectionRepo.Create(ctx, nil, []*types.Section{section})
	if err != nil {
		s.log.Warn("CreateSection: insert failed", "error", err, "lesson_id", section.LessonID)
		return nil, err
	}
	if s.cache != nil {
		s.cache.BumpLessonEpoch(ctx, section.LessonID)
	}
	return created[0], nil
}

func (s *sectionService) UpdateSection(ctx context.Context, sectionID uuid.UUID, patch SectionPatch) (*types.Section, error) {
	if sectionID == uuid.Nil {
		return nil, apierr.Validation("missing section id")
	}

	existing, err := s.loadSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Kind != nil {
		if !types.ValidSectionKind(*patch.Kind) {
			return nil, apierr.Validation("unknown section kind %q", *patch.Kind)
		}
		updates["kind"] = *patch.Kind
	}
	if patch.ContentRef != nil {
		updates["content_ref"] = *patch.ContentRef
	}
	if patch.Required != nil {
		updates["required"] = *patch.Required
	}
	if patch.Position != nil {
		updates["position"] = *patch.Position
	}
	if patch.Prerequisites != nil {
		siblings, err := s.sectionRepo.GetByLessonIDs(ctx, nil, []uuid.UUID{existing.LessonID})
		if err != nil {
			return nil, err
		}
		prereqs := datatypes.NewJSONSlice(append([]uuid.UUID{}, (*patch.Prerequisites)...))
		if err := validatePrerequisites(sectionID, existing.LessonID, prereqs, siblings); err != nil {
			return nil, err
		}
		patched := make([]*types.Section, 0, len(siblings))
		for _, sib := range siblings {
			if sib.ID == sectionID {
				cp := *sib
				cp.Prerequisites = prereqs
				patched = append(patched, &cp)
				continue
			}
			patched = append(patched, sib)
		}
		if hasPrereqCycle(patched) {
			return nil, apierr.Validation("prerequisites introduce a cycle")
		}
		updates["prerequisites"] = prereqs
	}

	if len(updates) > 0 {
		if err := s.sectionRepo.Update(ctx, nil, sectionID, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.NotFound("section %s not found", sectionID)
			}
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.BumpLessonEpoch(ctx, existing.LessonID)
	}
	return s.loadSection(ctx, sectionID)
}

// DeleteSection refuses to delete a section other sections still depend on:
// a dangling prerequisite id would lock its dependents forever.
func (s *sectionService) DeleteSection(ctx context.Context, sectionID uuid.UUID) error {
	if sectionID == uuid.Nil {
		return apierr.Validation("missing section id")
	}

	existing, err := s.loadSection(ctx, sectionID)
	if err != nil {
		return err
	}

	siblings, err := s.sectionRepo.GetByLessonIDs(ctx, nil, []uuid.UUID{existing.LessonID})
	if err != nil {
		return err
	}
	for _, sib := range siblings {
		if sib.ID == sectionID {
			continue
		}
		for _, p := range sib.Prerequisites {
			if p == sectionID {
				return apierr.Conflict("section %s is a prerequisite of %s", sectionID, sib.ID)
			}
		}
	}

	if err := s.sectionRepo.SoftDeleteByIDs(ctx, nil, []uuid.UUID{sectionID}); err != nil {
		s.log.Warn("DeleteSection: delete failed", "error", err, "section_id", sectionID)
		return err
	}
	if s.cache != nil {
		s.cache.BumpLessonEpoch(ctx, existing.LessonID)
	}
	return nil
}

func (s *sectionService) NextPosition(ctx context.Context, lessonID uuid.UUID) (int, error) {
	if lessonID == uuid.Nil {
		return 0, apierr.Validation("missing lesson id")
	}
	max, err := s.sectionRepo.MaxPosition(ctx, nil, lessonID)
	if err != nil {
		return 0, err
	}
	return max + types.PositionGap, nil
}

// ReorderSections writes one position per section in parallel, outside any
// transaction. A failure mid-flight leaves already-applied positions in
// place; the result lists both outcomes per id.
func (s *sectionService) ReorderSections(ctx context.Context, lessonID uuid.UUID, orderedIDs []uuid.UUID) (*ReorderResult, error) {
	if lessonID == uuid.Nil {
		return nil, apierr.Validation("missing lesson id")
	}
	if len(orderedIDs) == 0 {
		return nil, apierr.Validation("missing section ids")
	}

	sections, err := s.sectionRepo.GetByLessonIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		return nil, err
	}
	current := make(map[uuid.UUID]bool, len(sections))
	for _, sec := range sections {
		current[sec.ID] = true
	}
	if len(orderedIDs) != len(sections) {
		return nil, apierr.Validation("reorder must list all %d sections of the lesson", len(sections))
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !current[id] {
			return nil, apierr.Validation("section %s does not belong to lesson %s", id, lessonID)
		}
		if seen[id] {
			return nil, apierr.Validation("section %s listed twice", id)
		}
		seen[id] = true
	}

	errsByIndex := make([]error, len(orderedIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reorderParallelism)
	for i, id := range orderedIDs {
		i, id := i, id
		g.Go(func() error {
			errsByIndex[i] = s.sectionRepo.UpdatePosition(gctx, nil, lessonID, id, (i+1)*types.PositionGap)
			return nil
		})
	}
	_ = g.Wait()

	res := &ReorderResult{}
	for i, id := range orderedIDs {
		if errsByIndex[i] != nil {
			res.Failed = append(res.Failed, ReorderFailure{SectionID: id, Error: errsByIndex[i].Error()})
			continue
		}
		res.Updated = append(res.Updated, id)
	}

	if s.cache != nil {
		s.cache.BumpLessonEpoch(ctx, lessonID)
	}
	if len(res.Failed) > 0 {
		s.log.Warn("ReorderSections: partial failure", "lesson_id", lessonID, "failed", len(res.Failed), "updated", len(res.Updated))
	}
	return res, nil
}

func (s *sectionService) loadSection(ctx context.Context, sectionID uuid.UUID) (*types.Section, error) {
	rows, err := s.sectionRepo.GetByIDs(ctx, nil, []uuid.UUID{sectionID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, apierr.NotFound("section %s not found", sectionID)
	}
	return rows[0], nil
}

func validatePrerequisites(sectionID, lessonID uuid.UUID, prereqs []uuid.UUID, lessonSections []*types.Section) error {
	if len(prereqs) == 0 {
		return nil
	}
	inLesson := make(map[uuid.UUID]bool, len(lessonSections))
	for _, sec := range lessonSections {
		inLesson[sec.ID] = true
	}
	for _, p := range prereqs {
		if p == sectionID {
			return apierr.Validation("section cannot be its own prerequisite")
		}
		if !inLesson[p] {
			return apierr.Validation("prerequisite %s is not a section of lesson %s", p, lessonID)
		}
	}
	return nil
}

// hasPrereqCycle runs a coloured DFS over the lesson's prerequisite graph.
func hasPrereqCycle(sections []*types.Section) bool {
	edges := make(map[uuid.UUID][]uuid.UUID, len(sections))
	for _, sec := range sections {
		edges[sec.ID] = sec.Prerequisites
	}

	const (
		white = 0
		grey  = 1
		black = 2
	)
	colour := make(map[uuid.UUID]int, len(edges))

	var visit func(id uuid.UUID) bool
	visit = func(id uuid.UUID) bool {
		colour[id] = grey
		for _, dep := range edges[id] {
			if _, ok := edges[dep]; !ok {
				continue
			}
			switch colour[dep] {
			case grey:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		colour[id] = black
		return false
	}

	for id := range edges {
		if colour[id] == white && visit(id) {
			return true
		}
	}
	return false
}
