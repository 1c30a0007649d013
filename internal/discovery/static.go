package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/planfold/reqtrack/internal/types"
)

// StageQuestions holds the fixed question and suggestion lists for one stage
type StageQuestions struct {
	Questions   []string `yaml:"questions"`
	Suggestions []string `yaml:"suggestions"`
}

// StaticElicitor is the deterministic Elicitor used when no AI
// collaborator is configured (and in tests). Questions come from a fixed
// per-stage lookup and the advancement decision is a simple response
// count threshold, so every run is reproducible.
type StaticElicitor struct {
	stages map[types.Stage]StageQuestions
	// advanceAfter is the number of recorded responses at which a stage
	// is judged complete
	advanceAfter int
}

// NewStaticElicitor creates a static elicitor with the built-in question
// sets and the default advancement threshold.
func NewStaticElicitor() *StaticElicitor {
	return &StaticElicitor{
		stages:       defaultStageQuestions(),
		advanceAfter: defaultAdvanceAfter,
	}
}

const defaultAdvanceAfter = 3

func defaultStageQuestions() map[types.Stage]StageQuestions {
	return map[types.Stage]StageQuestions{
		types.StageInitial: {
			Questions: []string{
				"What problem does this project solve, and for whom?",
				"What does success look like six months after launch?",
				"What exists today that this replaces or improves on?",
			},
			Suggestions: []string{
				"Describe the core workflow in one or two sentences",
				"Name the single most important outcome",
			},
		},
		types.StageStakeholders: {
			Questions: []string{
				"Who are the primary users of the system?",
				"Who else is affected: administrators, operators, integrators?",
				"Whose approval is required before release?",
			},
			Suggestions: []string{
				"List user roles rather than individual names",
				"Include anyone who consumes the system's output",
			},
		},
		types.StageFeatures: {
			Questions: []string{
				"What are the must-have capabilities for a first release?",
				"What should users be able to do that they cannot do today?",
				"Which capabilities are explicitly out of scope?",
			},
			Suggestions: []string{
				"Phrase each capability as 'user can ...'",
				"Separate must-have from nice-to-have",
			},
		},
		types.StageConstraints: {
			Questions: []string{
				"What technical constraints exist: platforms, languages, integrations?",
				"What budget, timeline, or staffing limits apply?",
				"Are there regulatory or compliance requirements?",
			},
			Suggestions: []string{
				"Name systems this must integrate with",
				"State hard deadlines and their reasons",
			},
		},
		types.StageQuality: {
			Questions: []string{
				"What performance targets matter: latency, throughput, scale?",
				"What availability and reliability is expected?",
				"What security and privacy requirements apply?",
			},
			Suggestions: []string{
				"Give numbers where possible (p99 latency, uptime percent)",
				"Note what data is sensitive and who may see it",
			},
		},
		types.StageFinalize: {
			Questions: []string{
				"Is anything captured so far wrong or missing?",
				"Which requirements are the riskiest or least certain?",
				"Who signs off on this requirement set?",
			},
			Suggestions: []string{
				"Review the earlier stages' answers before confirming",
			},
		},
	}
}

// GenerateQuestions returns the stage's fixed question list as a numbered block
func (s *StaticElicitor) GenerateQuestions(ctx context.Context, stage types.Stage, domain string, previous map[string]string) (string, error) {
	set, ok := s.stages[stage]
	if !ok || len(set.Questions) == 0 {
		return "", fmt.Errorf("%w: no questions defined for stage %s", types.ErrInvalidArgument, stage)
	}

	var b strings.Builder
	if domain != "" {
		fmt.Fprintf(&b, "Discovery for %q, stage %s:\n", domain, stage)
	}
	for i, q := range set.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return b.String(), nil
}

// GenerateSuggestions returns the stage's fixed suggestion list
func (s *StaticElicitor) GenerateSuggestions(ctx context.Context, stage types.Stage, domain string) (string, error) {
	set, ok := s.stages[stage]
	if !ok {
		return "", fmt.Errorf("%w: no suggestions defined for stage %s", types.ErrInvalidArgument, stage)
	}

	var b strings.Builder
	for _, sug := range set.Suggestions {
		fmt.Fprintf(&b, "- %s\n", sug)
	}
	return b.String(), nil
}

// GenerateFollowUp cycles through the stage's questions: the follow-up
// for the Nth response is question N+1, wrapping around.
func (s *StaticElicitor) GenerateFollowUp(ctx context.Context, stage types.Stage, domain, response string, previous map[string]string) (string, error) {
	set, ok := s.stages[stage]
	if !ok || len(set.Questions) == 0 {
		return "", fmt.Errorf("%w: no questions defined for stage %s", types.ErrInvalidArgument, stage)
	}
	return set.Questions[len(previous)%len(set.Questions)], nil
}

// ShouldAdvance judges a stage complete once enough responses are recorded
func (s *StaticElicitor) ShouldAdvance(ctx context.Context, stage types.Stage, domain, response string, previous map[string]string) (bool, error) {
	return len(previous) >= s.advanceAfter, nil
}

// ParseRequirements is the mechanical fallback for draft extraction: each
// non-empty response line becomes one functional, medium-priority draft.
// Stage headers from the combined text are skipped.
func (s *StaticElicitor) ParseRequirements(ctx context.Context, projectID, text string) ([]types.RequirementDraft, error) {
	var drafts []types.RequirementDraft
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		title := line
		if len(title) > 80 {
			title = title[:77] + "..."
		}
		drafts = append(drafts, types.RequirementDraft{
			Title:       title,
			Description: line,
			Type:        types.ReqTypeFunctional,
			Priority:    types.ReqPriorityMedium,
		})
	}
	return drafts, nil
}

// Compile-time check that StaticElicitor implements Elicitor
var _ Elicitor = (*StaticElicitor)(nil)
