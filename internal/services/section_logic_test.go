package services

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/studyrail/studyrail-backend/internal/domain"
	"github.com/studyrail/studyrail-backend/internal/platform/apierr"
)

func TestHasPrereqCycle(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	cases := []struct {
		name     string
		sections []*types.Section
		want     bool
	}{
		{
			name:     "empty_graph",
			sections: nil,
			want:     false,
		},
		{
			name:     "line",
			sections: []*types.Section{section(a), section(b, a), section(c, b)},
			want:     false,
		},
		{
			name:     "diamond",
			sections: []*types.Section{section(a), section(b, a), section(c, a, b)},
			want:     false,
		},
		{
			name:     "self_loop",
			sections: []*types.Section{section(a, a)},
			want:     true,
		},
		{
			name:     "two_cycle",
			sections: []*types.Section{section(a, b), section(b, a)},
			want:     true,
		},
		{
			name:     "long_cycle",
			sections: []*types.Section{section(a, c), section(b, a), section(c, b)},
			want:     true,
		},
		{
			name:     "dangling_edge_ignored",
			sections: []*types.Section{section(a, uuid.New())},
			want:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := hasPrereqCycle(tc.sections); got != tc.want {
				t.Fatalf("hasPrereqCycle=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidatePrerequisites(t *testing.T) {
	lessonID := uuid.New()
	a := uuid.New()
	b := uuid.New()
	outsider := uuid.New()

	lessonSections := []*types.Section{section(a), section(b)}

	if err := validatePrerequisites(b, lessonID, datatypes.NewJSONSlice([]uuid.UUID{a}), lessonSections); err != nil {
		t.Fatalf("same-lesson prerequisite rejected: %v", err)
	}
	if err := validatePrerequisites(b, lessonID, nil, lessonSections); err != nil {
		t.Fatalf("empty prerequisites rejected: %v", err)
	}

	err := validatePrerequisites(b, lessonID, datatypes.NewJSONSlice([]uuid.UUID{outsider}), lessonSections)
	if err == nil || !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("cross-lesson prerequisite: got %v, want validation error", err)
	}

	err = validatePrerequisites(b, lessonID, datatypes.NewJSONSlice([]uuid.UUID{b}), lessonSections)
	if err == nil || !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("self prerequisite: got %v, want validation error", err)
	}
}
