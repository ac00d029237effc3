package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	types "github.com/studyrail/studyrail-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, position int, prereqs ...uuid.UUID) *types.Section {
	tb.Helper()
	return seedSection(tb, ctx, tx, lessonID, position, true, prereqs...)
}

func SeedOptionalSection(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, position int, prereqs ...uuid.UUID) *types.Section {
	tb.Helper()
	return seedSection(tb, ctx, tx, lessonID, position, false, prereqs...)
}

func seedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, position int, required bool, prereqs ...uuid.UUID) *types.Section {
	tb.Helper()
	s := &types.Section{
		ID:            uuid.New(),
		LessonID:      lessonID,
		Position:      position,
		Title:         "section",
		Kind:          types.SectionKindContent,
		Required:      required,
		Prerequisites: datatypes.NewJSONSlice(append([]uuid.UUID{}, prereqs...)),
		Metadata:      datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return s
}

func SeedProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, sectionID uuid.UUID, completed bool) *types.SectionProgress {
	tb.Helper()
	p := &types.SectionProgress{
		ID:        uuid.New(),
		UserID:    userID,
		SectionID: sectionID,
		Completed: completed,
		Metadata:  datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
	return p
}
