package domain

import (
	"github.com/studyrail/studyrail-backend/internal/domain/learning"
)

type Section = learning.Section
type SectionProgress = learning.SectionProgress

const (
	SectionKindContent = learning.SectionKindContent
	SectionKindQuiz    = learning.SectionKindQuiz
	SectionKindModel   = learning.SectionKindModel

	ProgressStateNotStarted = learning.ProgressStateNotStarted
	ProgressStateInProgress = learning.ProgressStateInProgress
	ProgressStateCompleted  = learning.ProgressStateCompleted

	PositionGap = learning.PositionGap
)

func ValidSectionKind(kind string) bool { return learning.ValidSectionKind(kind) }
