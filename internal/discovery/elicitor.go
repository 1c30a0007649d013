// Package discovery drives a project through the ordered requirement
// elicitation stages. The state machine itself is fully deterministic;
// all text generation and the advancement judgment are delegated through
// the Elicitor interface so the machine is unit-testable without any
// external generation.
package discovery

import (
	"context"

	"github.com/planfold/reqtrack/internal/types"
)

// Elicitor is the narrow boundary to the natural-language collaborator.
// Implementations may be non-deterministic (internal/ai) or fixed
// (StaticElicitor); the machine treats both identically.
type Elicitor interface {
	// GenerateQuestions produces the elicitation questions for a stage,
	// optionally informed by responses gathered so far.
	GenerateQuestions(ctx context.Context, stage types.Stage, domain string, previous map[string]string) (string, error)

	// GenerateSuggestions produces example answers for a stage
	GenerateSuggestions(ctx context.Context, stage types.Stage, domain string) (string, error)

	// GenerateFollowUp produces a follow-up probe for the latest response
	GenerateFollowUp(ctx context.Context, stage types.Stage, domain, response string, previous map[string]string) (string, error)

	// ShouldAdvance judges whether the stage's elicitation is sufficiently
	// complete after the given response.
	ShouldAdvance(ctx context.Context, stage types.Stage, domain, response string, previous map[string]string) (bool, error)

	// ParseRequirements derives structured requirement drafts from the
	// combined free-text responses of a project's sessions.
	ParseRequirements(ctx context.Context, projectID, text string) ([]types.RequirementDraft, error)
}
