package learning

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/studyrail/studyrail-backend/internal/domain"
	"github.com/studyrail/studyrail-backend/internal/platform/logger"
)

type SectionProgressRepo interface {
	GetByUserAndSectionID(ctx context.Context, tx *gorm.DB, userID, sectionID uuid.UUID) (*types.SectionProgress, error)
	GetByUserAndSectionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sectionIDs []uuid.UUID) ([]*types.SectionProgress, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.SectionProgress) error
	AddTimeSpent(ctx context.Context, tx *gorm.DB, userID, sectionID uuid.UUID, deltaSeconds int) error
	AddAttempt(ctx context.Context, tx *gorm.DB, userID, sectionID uuid.UUID) error
}

type sectionProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionProgressRepo(db *gorm.DB, baseLog *logger.Logger) SectionProgressRepo {
	repoLog := baseLog.With("repo", "SectionProgressRepo")
	return &sectionProgressRepo{db: db, log: repoLog}
}

// GetByUserAndSectionID returns nil without error when no record exists:
// absence means the user has not started the section.
func (r *sectionProgressRepo) GetByUserAndSectionID(ctx context.Context, tx *gorm.DB, userID, sectionID uuid.UUID) (*types.SectionProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || sectionID == uuid.Nil {
		return nil, nil
	}

	var row types.SectionProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND section_id = ?", userID, sectionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *sectionProgressRepo) GetByUserAndSectionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sectionIDs []uuid.UUID) ([]*types.SectionProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SectionProgress
	if userID == uuid.Nil || len(sectionIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND section_id IN ?", userID, sectionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Upsert writes the completion fields keyed on unique user_id + section_id.
// On an existing row only completed, completed_at and score are touched;
// the counters keep whatever they have accumulated.
func (r *sectionProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.SectionProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	var existing types.SectionProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND section_id = ?", row.UserID, row.SectionID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return transaction.WithContext(ctx).Create(row).Error
	}
	if err != nil {
		return err
	}

	row.ID = existing.ID
	updates := map[string]interface{}{
		"completed":    row.Completed,
		"completed_at": row.CompletedAt,
		"updated_at":   time.Now().UTC(),
	}
	if row.Score != nil {
		updates["score"] = row.Score
	}
	return transaction.WithContext(ctx).
		Model(&types.SectionProgress{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error
}

// AddTimeSpent adds deltaSeconds to the counter in a single UPDATE so
// concurrent sessions for the same user cannot drop each other's increments.
// The row is created lazily on first touch.
func (r *sectionProgressRepo) AddTimeSpent(ctx context.Context, tx *gorm.DB, userID, sectionID uuid.UUID, deltaSeconds int) error {
	return r.addCounter(ctx, tx, userID, sectionID, "time_spent_seconds", deltaSeconds)
}

func (r *sectionProgressRepo) AddAttempt(ctx context.Context, tx *gorm.DB, userID, sectionID uuid.UUID) error {
	return r.addCounter(ctx, tx, userID, sectionID, "attempts", 1)
}

func (r *sectionProgressRepo) addCounter(ctx context.Context, tx *gorm.DB, userID, sectionID uuid.UUID, column string, delta int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || sectionID == uuid.Nil || delta == 0 {
		return nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.SectionProgress{}).
		Where("user_id = ? AND section_id = ?", userID, sectionID).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	row := &types.SectionProgress{
		ID:        uuid.New(),
		UserID:    userID,
		SectionID: sectionID,
	}
	switch column {
	case "time_spent_seconds":
		row.TimeSpentSeconds = delta
	case "attempts":
		row.Attempts = delta
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		// Another session may have created the row between the UPDATE and the
		// INSERT; retry the increment once.
		retry := transaction.WithContext(ctx).
			Model(&types.SectionProgress{}).
			Where("user_id = ? AND section_id = ?", userID, sectionID).
			Updates(map[string]interface{}{
				column:       gorm.Expr(column+" + ?", delta),
				"updated_at": time.Now().UTC(),
			})
		if retry.Error != nil {
			return err
		}
		if retry.RowsAffected == 0 {
			return err
		}
	}
	return nil
}
