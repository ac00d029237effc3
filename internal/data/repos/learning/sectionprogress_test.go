package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studyrail/studyrail-backend/internal/data/repos/testutil"
	types "github.com/studyrail/studyrail-backend/internal/domain"
)

func TestSectionProgressRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewSectionProgressRepo(tx, testutil.Logger(t))

	lessonID := uuid.New()
	userID := uuid.New()
	section := testutil.SeedSection(t, ctx, tx, lessonID, 10)

	// Absence is NotStarted, not an error.
	row, err := repo.GetByUserAndSectionID(ctx, tx, userID, section.ID)
	if err != nil || row != nil {
		t.Fatalf("missing record: row=%+v err=%v", row, err)
	}

	// Counters create the record lazily on first touch.
	if err := repo.AddTimeSpent(ctx, tx, userID, section.ID, 15); err != nil {
		t.Fatalf("AddTimeSpent: %v", err)
	}
	row, err = repo.GetByUserAndSectionID(ctx, tx, userID, section.ID)
	if err != nil || row == nil {
		t.Fatalf("after first touch: row=%+v err=%v", row, err)
	}
	if row.TimeSpentSeconds != 15 || row.Completed {
		t.Fatalf("after first touch: %+v", row)
	}

	if err := repo.AddTimeSpent(ctx, tx, userID, section.ID, 5); err != nil {
		t.Fatalf("AddTimeSpent increment: %v", err)
	}
	if err := repo.AddAttempt(ctx, tx, userID, section.ID); err != nil {
		t.Fatalf("AddAttempt: %v", err)
	}
	if err := repo.AddAttempt(ctx, tx, userID, section.ID); err != nil {
		t.Fatalf("AddAttempt second: %v", err)
	}
	row, _ = repo.GetByUserAndSectionID(ctx, tx, userID, section.ID)
	if row.TimeSpentSeconds != 20 || row.Attempts != 2 {
		t.Fatalf("counters: time=%d attempts=%d, want 20/2", row.TimeSpentSeconds, row.Attempts)
	}

	// Upsert flips completion without losing counters.
	first := time.Now().UTC().Add(-time.Minute)
	up := &types.SectionProgress{
		ID:          row.ID,
		UserID:      userID,
		SectionID:   section.ID,
		Completed:   true,
		CompletedAt: &first,
	}
	if err := repo.Upsert(ctx, tx, up); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	row, _ = repo.GetByUserAndSectionID(ctx, tx, userID, section.ID)
	if !row.Completed || row.CompletedAt == nil || row.TimeSpentSeconds != 20 || row.Attempts != 2 {
		t.Fatalf("after completion upsert: %+v", row)
	}

	// A repeat completion overwrites CompletedAt with the newer stamp.
	second := time.Now().UTC()
	up.CompletedAt = &second
	if err := repo.Upsert(ctx, tx, up); err != nil {
		t.Fatalf("repeat Upsert: %v", err)
	}
	row, _ = repo.GetByUserAndSectionID(ctx, tx, userID, section.ID)
	if row.CompletedAt == nil || !row.CompletedAt.After(first) {
		t.Fatalf("CompletedAt not refreshed: %v", row.CompletedAt)
	}

	// Upsert creates when no record exists yet.
	otherUser := uuid.New()
	if err := repo.Upsert(ctx, tx, &types.SectionProgress{
		UserID:    otherUser,
		SectionID: section.ID,
		Completed: true,
	}); err != nil {
		t.Fatalf("Upsert create: %v", err)
	}
	rows, err := repo.GetByUserAndSectionIDs(ctx, tx, otherUser, []uuid.UUID{section.ID})
	if err != nil || len(rows) != 1 || !rows[0].Completed {
		t.Fatalf("GetByUserAndSectionIDs: err=%v rows=%+v", err, rows)
	}
}
