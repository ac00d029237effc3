package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ProgressStateNotStarted = "not_started"
	ProgressStateInProgress = "in_progress"
	ProgressStateCompleted  = "completed"
)

// SectionProgress is the per-(user, section) record. It is created lazily on
// the first interaction and never hard-deleted by the engine. Attempts and
// TimeSpentSeconds only grow; Completed never transitions back to false.
type SectionProgress struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_section_progress_user_section" json:"user_id"`
	SectionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_section_progress_user_section" json:"section_id"`

	Completed        bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	Score            *float64   `gorm:"column:score" json:"score,omitempty"`
	Attempts         int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	TimeSpentSeconds int        `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SectionProgress) TableName() string { return "section_progress" }

// State derives the explicit progress state for a possibly-nil record.
func (p *SectionProgress) State() string {
	if p == nil {
		return ProgressStateNotStarted
	}
	if p.Completed {
		return ProgressStateCompleted
	}
	return ProgressStateInProgress
}
