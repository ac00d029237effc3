package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SectionKindContent = "content"
	SectionKindQuiz    = "quiz"
	SectionKindModel   = "model"
)

// PositionGap is the spacing between consecutive section positions. Leaving
// gaps lets an author insert a section between two neighbours without
// renumbering the whole lesson.
const PositionGap = 10

// Section is one orderable unit of a lesson: a content page, a quiz
// reference, or a 3D-model viewer reference. The lesson itself and the
// content behind ContentRef live in external services; both ids are opaque
// here.
type Section struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID uuid.UUID `gorm:"type:uuid;not null;index" json:"lesson_id"`
	Position int       `gorm:"column:position;not null" json:"position"`
	Title    string    `gorm:"column:title;not null" json:"title"`
	Kind     string    `gorm:"column:kind;not null;default:'content'" json:"kind"`

	ContentRef string `gorm:"column:content_ref" json:"content_ref"`

	// Required sections count toward lesson completion. Optional sections
	// are still gated by their prerequisites. No column default: gorm would
	// skip a false value on insert and the default would win.
	Required bool `gorm:"column:required;not null" json:"required"`

	// Prerequisites holds ids of sections in the same lesson that must be
	// completed before this one unlocks.
	Prerequisites datatypes.JSONSlice[uuid.UUID] `gorm:"type:jsonb" json:"prerequisites"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Section) TableName() string { return "section" }

func ValidSectionKind(kind string) bool {
	switch kind {
	case SectionKindContent, SectionKindQuiz, SectionKindModel:
		return true
	}
	return false
}
