package services

import (
	"context"

	"github.com/google/uuid"
)

// ViewInvalidator is the slice of the redis view cache the authoring side
// needs: section edits make every cached view of the lesson stale.
type ViewInvalidator interface {
	BumpLessonEpoch(ctx context.Context, lessonID uuid.UUID)
}

// GatingViewCache is the full cache surface used by the progression engine.
// The services accept a nil cache and skip it, so caching stays optional.
type GatingViewCache interface {
	ViewInvalidator
	GetView(ctx context.Context, lessonID, userID uuid.UUID) ([]byte, bool)
	SetView(ctx context.Context, lessonID, userID uuid.UUID, payload []byte)
	InvalidateView(ctx context.Context, lessonID, userID uuid.UUID)
}
