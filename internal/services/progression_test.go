package services

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/studyrail/studyrail-backend/internal/domain"
)

func section(id uuid.UUID, prereqs ...uuid.UUID) *types.Section {
	return &types.Section{
		ID:            id,
		LessonID:      uuid.Nil,
		Kind:          types.SectionKindContent,
		Required:      true,
		Prerequisites: datatypes.NewJSONSlice(append([]uuid.UUID{}, prereqs...)),
	}
}

func completedRow(sectionID uuid.UUID) *types.SectionProgress {
	return &types.SectionProgress{ID: uuid.New(), SectionID: sectionID, Completed: true}
}

func inProgressRow(sectionID uuid.UUID) *types.SectionProgress {
	return &types.SectionProgress{ID: uuid.New(), SectionID: sectionID, Completed: false}
}

func TestComputeGating(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	ghost := uuid.New() // never a section

	cases := []struct {
		name       string
		sections   []*types.Section
		progress   map[uuid.UUID]*types.SectionProgress
		wantLocked map[uuid.UUID]bool
	}{
		{
			name:       "no_prerequisites_never_locked",
			sections:   []*types.Section{section(a), section(b)},
			progress:   map[uuid.UUID]*types.SectionProgress{},
			wantLocked: map[uuid.UUID]bool{a: false, b: false},
		},
		{
			name:       "locked_until_prerequisite_completed",
			sections:   []*types.Section{section(a), section(b, a)},
			progress:   map[uuid.UUID]*types.SectionProgress{},
			wantLocked: map[uuid.UUID]bool{a: false, b: true},
		},
		{
			name:     "in_progress_prerequisite_still_locks",
			sections: []*types.Section{section(a), section(b, a)},
			progress: map[uuid.UUID]*types.SectionProgress{
				a: inProgressRow(a),
			},
			wantLocked: map[uuid.UUID]bool{a: false, b: true},
		},
		{
			name:     "completed_prerequisite_unlocks",
			sections: []*types.Section{section(a), section(b, a)},
			progress: map[uuid.UUID]*types.SectionProgress{
				a: completedRow(a),
			},
			wantLocked: map[uuid.UUID]bool{a: false, b: false},
		},
		{
			name:     "all_prerequisites_must_be_completed",
			sections: []*types.Section{section(a), section(b), section(c, a, b)},
			progress: map[uuid.UUID]*types.SectionProgress{
				a: completedRow(a),
			},
			wantLocked: map[uuid.UUID]bool{a: false, b: false, c: true},
		},
		{
			name:     "dangling_prerequisite_keeps_section_locked",
			sections: []*types.Section{section(a), section(b, ghost)},
			progress: map[uuid.UUID]*types.SectionProgress{
				a: completedRow(a),
			},
			wantLocked: map[uuid.UUID]bool{a: false, b: true},
		},
		{
			name:     "chain_unlocks_one_step_at_a_time",
			sections: []*types.Section{section(a), section(b, a), section(c, b)},
			progress: map[uuid.UUID]*types.SectionProgress{
				a: completedRow(a),
			},
			wantLocked: map[uuid.UUID]bool{a: false, b: false, c: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := computeGating(tc.sections, tc.progress)
			for id, want := range tc.wantLocked {
				if got[id] != want {
					t.Fatalf("locked[%s]=%v, want %v", id, got[id], want)
				}
			}
		})
	}
}

func TestProgressState(t *testing.T) {
	var missing *types.SectionProgress
	if got := missing.State(); got != types.ProgressStateNotStarted {
		t.Fatalf("nil record state=%q, want %q", got, types.ProgressStateNotStarted)
	}
	if got := inProgressRow(uuid.New()).State(); got != types.ProgressStateInProgress {
		t.Fatalf("in-progress state=%q, want %q", got, types.ProgressStateInProgress)
	}
	if got := completedRow(uuid.New()).State(); got != types.ProgressStateCompleted {
		t.Fatalf("completed state=%q, want %q", got, types.ProgressStateCompleted)
	}
}
