package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	repos "github.com/studyrail/studyrail-backend/internal/data/repos/learning"
	"github.com/studyrail/studyrail-backend/internal/data/repos/testutil"
	types "github.com/studyrail/studyrail-backend/internal/domain"
	"github.com/studyrail/studyrail-backend/internal/platform/apierr"
)

type engineUnderTest struct {
	sections    SectionService
	progression ProgressionService
	completion  CompletionService
}

func newEngine(t *testing.T, tx *gorm.DB) engineUnderTest {
	t.Helper()
	log := testutil.Logger(t)
	sectionRepo := repos.NewSectionRepo(tx, log)
	progressRepo := repos.NewSectionProgressRepo(tx, log)
	return engineUnderTest{
		sections:    NewSectionService(tx, log, sectionRepo, nil),
		progression: NewProgressionService(tx, log, sectionRepo, progressRepo, nil),
		completion:  NewCompletionService(tx, log, sectionRepo, progressRepo),
	}
}

func mustCreate(t *testing.T, ctx context.Context, e engineUnderTest, lessonID uuid.UUID, required bool, prereqs ...uuid.UUID) *types.Section {
	t.Helper()
	created, err := e.sections.CreateSection(ctx, &types.Section{
		LessonID:      lessonID,
		Title:         "section",
		Kind:          types.SectionKindContent,
		Required:      required,
		Prerequisites: datatypes.NewJSONSlice(append([]uuid.UUID{}, prereqs...)),
	})
	if err != nil {
		t.Fatalf("CreateSection: %v", err)
	}
	return created
}

func viewByID(t *testing.T, ctx context.Context, e engineUnderTest, userID, lessonID uuid.UUID) map[uuid.UUID]*SectionWithProgress {
	t.Helper()
	view, err := e.progression.ListSectionsWithProgress(ctx, userID, lessonID)
	if err != nil {
		t.Fatalf("ListSectionsWithProgress: %v", err)
	}
	byID := make(map[uuid.UUID]*SectionWithProgress, len(view))
	for _, row := range view {
		byID[row.Section.ID] = row
	}
	return byID
}

// Walks the canonical lesson: A required, B required behind A, C optional
// behind A.
func TestLessonProgressionScenario(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	e := newEngine(t, tx)

	lessonID := uuid.New()
	userID := uuid.New()

	a := mustCreate(t, ctx, e, lessonID, true)
	b := mustCreate(t, ctx, e, lessonID, true, a.ID)
	c := mustCreate(t, ctx, e, lessonID, false, a.ID)

	view := viewByID(t, ctx, e, userID, lessonID)
	if view[c.ID].Section.Required {
		t.Fatal("optional section stored as required")
	}
	if view[a.ID].Locked || !view[b.ID].Locked || !view[c.ID].Locked {
		t.Fatalf("before progress: locked A=%v B=%v C=%v, want false/true/true",
			view[a.ID].Locked, view[b.ID].Locked, view[c.ID].Locked)
	}
	if view[a.ID].State != types.ProgressStateNotStarted {
		t.Fatalf("A state=%q, want %q", view[a.ID].State, types.ProgressStateNotStarted)
	}

	if done, err := e.completion.IsLessonCompleted(ctx, userID, lessonID); err != nil || done {
		t.Fatalf("IsLessonCompleted before progress: done=%v err=%v", done, err)
	}

	// Locked sections cannot be engaged with.
	if err := e.progression.RecordTime(ctx, userID, b.ID, 5); !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("RecordTime on locked section: got %v, want conflict", err)
	}

	// A goes in_progress first; completing must flip the existing row.
	if err := e.progression.RecordTime(ctx, userID, a.ID, 7); err != nil {
		t.Fatalf("RecordTime(A): %v", err)
	}
	view = viewByID(t, ctx, e, userID, lessonID)
	if view[a.ID].State != types.ProgressStateInProgress {
		t.Fatalf("A state=%q, want %q", view[a.ID].State, types.ProgressStateInProgress)
	}

	firstDone, err := e.progression.MarkSectionCompleted(ctx, userID, a.ID, nil)
	if err != nil {
		t.Fatalf("MarkSectionCompleted(A): %v", err)
	}
	if firstDone == nil || !firstDone.Completed || firstDone.CompletedAt == nil {
		t.Fatalf("completed row: %+v", firstDone)
	}
	if firstDone.TimeSpentSeconds != 7 {
		t.Fatalf("completion dropped accumulated time: %+v", firstDone)
	}

	view = viewByID(t, ctx, e, userID, lessonID)
	if view[b.ID].Locked || view[c.ID].Locked {
		t.Fatalf("after completing A: locked B=%v C=%v, want false/false", view[b.ID].Locked, view[c.ID].Locked)
	}
	if done, _ := e.completion.IsLessonCompleted(ctx, userID, lessonID); done {
		t.Fatal("lesson complete with B unfinished")
	}

	if _, err := e.progression.MarkSectionCompleted(ctx, userID, b.ID, nil); err != nil {
		t.Fatalf("MarkSectionCompleted(B): %v", err)
	}
	if done, _ := e.completion.IsLessonCompleted(ctx, userID, lessonID); !done {
		t.Fatal("lesson incomplete although all required sections are done")
	}

	stats, err := e.completion.GetStats(ctx, userID, lessonID)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalSections != 3 || stats.CompletedSections != 2 || stats.Percent != 67 {
		t.Fatalf("stats=%+v, want total=3 completed=2 percent=67", stats)
	}

	// Re-marking refreshes CompletedAt rather than preserving the first one.
	time.Sleep(10 * time.Millisecond)
	secondDone, err := e.progression.MarkSectionCompleted(ctx, userID, a.ID, nil)
	if err != nil {
		t.Fatalf("re-mark A: %v", err)
	}
	if !secondDone.Completed || secondDone.CompletedAt == nil {
		t.Fatalf("re-marked row: %+v", secondDone)
	}
	if !secondDone.CompletedAt.After(*firstDone.CompletedAt) {
		t.Fatalf("CompletedAt not refreshed: first=%v second=%v", firstDone.CompletedAt, secondDone.CompletedAt)
	}

	// Interaction continues to accumulate after completion.
	if err := e.progression.RecordTime(ctx, userID, a.ID, 30); err != nil {
		t.Fatalf("RecordTime after completion: %v", err)
	}
	if err := e.progression.RecordAttempt(ctx, userID, a.ID); err != nil {
		t.Fatalf("RecordAttempt after completion: %v", err)
	}
	view = viewByID(t, ctx, e, userID, lessonID)
	p := view[a.ID].Progress
	if p == nil || !p.Completed || p.TimeSpentSeconds != 37 || p.Attempts != 1 {
		t.Fatalf("A progress after post-completion interaction: %+v", p)
	}
}

func TestReorderSectionsPreservesRequestedOrder(t *testing.T) {
	// Reorder fans out one update per section; those writes cannot share a
	// single transaction connection, so this test runs on the pooled handle.
	db := testutil.DB(t)
	ctx := context.Background()
	e := newEngine(t, db)

	lessonID := uuid.New()
	userID := uuid.New()
	t.Cleanup(func() {
		db.Unscoped().Where("lesson_id = ?", lessonID).Delete(&types.Section{})
	})

	a := mustCreate(t, ctx, e, lessonID, true)
	b := mustCreate(t, ctx, e, lessonID, true)
	c := mustCreate(t, ctx, e, lessonID, true)

	res, err := e.sections.ReorderSections(ctx, lessonID, []uuid.UUID{c.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("ReorderSections: %v", err)
	}
	if len(res.Failed) != 0 || len(res.Updated) != 3 {
		t.Fatalf("reorder result: %+v", res)
	}

	view, err := e.progression.ListSectionsWithProgress(ctx, userID, lessonID)
	if err != nil {
		t.Fatalf("ListSectionsWithProgress: %v", err)
	}
	got := []uuid.UUID{view[0].Section.ID, view[1].Section.ID, view[2].Section.ID}
	want := []uuid.UUID{c.ID, a.ID, b.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d]=%s, want %s", i, got[i], want[i])
		}
	}
}

func TestReorderSectionsValidation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	e := newEngine(t, tx)

	lessonID := uuid.New()
	a := mustCreate(t, ctx, e, lessonID, true)
	mustCreate(t, ctx, e, lessonID, true)

	// Incomplete id list
	if _, err := e.sections.ReorderSections(ctx, lessonID, []uuid.UUID{a.ID}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("partial id list: got %v, want validation", err)
	}
	// Foreign section
	if _, err := e.sections.ReorderSections(ctx, lessonID, []uuid.UUID{a.ID, uuid.New()}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("foreign id: got %v, want validation", err)
	}
}

func TestSectionAuthoringGuards(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	e := newEngine(t, tx)

	lessonID := uuid.New()
	a := mustCreate(t, ctx, e, lessonID, true)
	b := mustCreate(t, ctx, e, lessonID, true, a.ID)

	// Gap-of-10 position allocation.
	if a.Position != 10 || b.Position != 20 {
		t.Fatalf("positions A=%d B=%d, want 10/20", a.Position, b.Position)
	}
	next, err := e.sections.NextPosition(ctx, lessonID)
	if err != nil || next != 30 {
		t.Fatalf("NextPosition=%d err=%v, want 30", next, err)
	}

	// A prerequisite from another lesson is rejected.
	other := mustCreate(t, ctx, e, uuid.New(), true)
	if _, err := e.sections.CreateSection(ctx, &types.Section{
		LessonID:      lessonID,
		Kind:          types.SectionKindContent,
		Prerequisites: datatypes.NewJSONSlice([]uuid.UUID{other.ID}),
	}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("cross-lesson prerequisite: got %v, want validation", err)
	}

	// Making A depend on B closes a loop.
	prereqs := []uuid.UUID{b.ID}
	if _, err := e.sections.UpdateSection(ctx, a.ID, SectionPatch{Prerequisites: &prereqs}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("cycle via update: got %v, want validation", err)
	}

	// A is still a prerequisite of B, so it cannot be deleted.
	if err := e.sections.DeleteSection(ctx, a.ID); !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("delete referenced section: got %v, want conflict", err)
	}
	// B depends on A but nothing depends on B.
	if err := e.sections.DeleteSection(ctx, b.ID); err != nil {
		t.Fatalf("delete leaf section: %v", err)
	}
	if err := e.sections.DeleteSection(ctx, a.ID); err != nil {
		t.Fatalf("delete after dependent removed: %v", err)
	}

	if err := e.sections.DeleteSection(ctx, uuid.New()); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("delete unknown section: got %v, want not found", err)
	}
}
