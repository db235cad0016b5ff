package repositories

import (
	"context"

	"github.com/siseonlab/voicecoach/domain/entities"
)

// CommandClassifier maps a transcript to one exercise-control action plus
// a confidence value. Implementations must honor the closed vocabulary:
// anything else is surfaced as a nil action.
type CommandClassifier interface {
	Classify(ctx context.Context, transcript string) (entities.Classification, error)
}

// LanguageUnderstanding is the full contract of the language-understanding
// backend: exercise-command classification plus the two single-shot-only
// operations, navigation commands and form-field normalization.
type LanguageUnderstanding interface {
	CommandClassifier

	// ParseNavCommand classifies against the navigation vocabulary
	// (navigate_home, navigate_profile, navigate_exercise,
	// stop_listening).
	ParseNavCommand(ctx context.Context, transcript string) (entities.Classification, error)

	// Normalize extracts a structured value from a transcript using a
	// field-specific hint (height, weight, birth, ...).
	Normalize(ctx context.Context, transcript, field string) (entities.FormValue, error)
}
