package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planfold/reqtrack/internal/storage"
	"github.com/planfold/reqtrack/internal/types"
)

// Machine is the discovery state machine. One session exists per visited
// (project, stage) pair; advancing to the next stage never mutates the
// current session, it just creates a new one, so the full elicitation
// history is preserved.
type Machine struct {
	store    storage.Storage
	elicitor Elicitor
}

// NewMachine creates a discovery machine backed by the given store and
// elicitation collaborator.
func NewMachine(store storage.Storage, elicitor Elicitor) *Machine {
	return &Machine{store: store, elicitor: elicitor}
}

// BeginResult is the outcome of BeginOrResume
type BeginResult struct {
	Session     *types.DiscoverySession
	Questions   string
	Suggestions string
	// Created is true when this call created the session rather than
	// resuming an existing one
	Created bool
}

// BeginOrResume looks up the session keyed by (projectID, stage),
// creating it with empty responses when absent, and produces the stage's
// elicitation questions and suggestions. Stage values outside the
// canonical ordering are rejected before any lookup.
func (m *Machine) BeginOrResume(ctx context.Context, projectID, domain string, stage types.Stage) (*BeginResult, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: invalid stage: %s", types.ErrInvalidArgument, stage)
	}

	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, types.ErrNotFound)
	}

	session, err := m.store.GetSessionByProjectStage(ctx, projectID, stage)
	if err != nil {
		return nil, err
	}

	created := false
	if session == nil {
		session = &types.DiscoverySession{
			ProjectID: projectID,
			Domain:    domain,
			Stage:     stage,
			Responses: map[string]string{},
		}
		err = m.store.CreateSession(ctx, session)
		if errors.Is(err, types.ErrConflict) {
			// Lost a create race; the winner's session is the session
			session, err = m.store.GetSessionByProjectStage(ctx, projectID, stage)
			if err == nil && session == nil {
				err = fmt.Errorf("session for project %s stage %s: %w", projectID, stage, types.ErrNotFound)
			}
		}
		if err != nil {
			return nil, err
		}
		created = true
	}

	questions, err := m.elicitor.GenerateQuestions(ctx, stage, session.Domain, session.Responses)
	if err != nil {
		return nil, fmt.Errorf("generating questions for stage %s: %w", stage, err)
	}
	suggestions, err := m.elicitor.GenerateSuggestions(ctx, stage, session.Domain)
	if err != nil {
		return nil, fmt.Errorf("generating suggestions for stage %s: %w", stage, err)
	}

	return &BeginResult{
		Session:     session,
		Questions:   questions,
		Suggestions: suggestions,
		Created:     created,
	}, nil
}

// RecordResult is the outcome of RecordResponse
type RecordResult struct {
	Session *types.DiscoverySession
	// ResponseKey is the fresh unique key the response was stored under
	ResponseKey string
	// Advance is the collaborator's judgment that this stage is complete
	Advance bool
	// NextStage is set when Advance is true and a successor stage exists.
	// The current session's stage field is NOT mutated; the caller moves
	// on by calling BeginOrResume with NextStage.
	NextStage types.Stage
	HasNext   bool
	// FollowUp is a further probe, present only when not advancing
	FollowUp string
}

// RecordResponse appends a response to the existing session for
// (projectID, stage) and evaluates the advancement decision. A missing
// session is a caller error (ErrNotFound), never a silent creation:
// recording against a stage that was never begun means the caller skipped
// BeginOrResume.
func (m *Machine) RecordResponse(ctx context.Context, projectID string, stage types.Stage, domain, response string) (*RecordResult, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: invalid stage: %s", types.ErrInvalidArgument, stage)
	}

	session, err := m.store.GetSessionByProjectStage(ctx, projectID, stage)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("no discovery session found for project %s stage %s: %w",
			projectID, stage, types.ErrNotFound)
	}

	// Nanosecond timestamp plus a random suffix: two concurrent calls can
	// share a clock reading but never a key.
	key := fmt.Sprintf("response_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])

	if err := m.store.AddSessionResponse(ctx, session.ID, key, response); err != nil {
		return nil, err
	}
	session.Responses[key] = response
	session.UpdatedAt = time.Now()

	result := &RecordResult{Session: session, ResponseKey: key}

	advance, err := m.elicitor.ShouldAdvance(ctx, stage, session.Domain, response, session.Responses)
	if err != nil {
		return nil, fmt.Errorf("evaluating advancement for stage %s: %w", stage, err)
	}
	result.Advance = advance

	if advance {
		result.NextStage, result.HasNext = stage.Next()
	} else {
		followUp, err := m.elicitor.GenerateFollowUp(ctx, stage, session.Domain, response, session.Responses)
		if err != nil {
			return nil, fmt.Errorf("generating follow-up for stage %s: %w", stage, err)
		}
		result.FollowUp = followUp
	}

	return result, nil
}

// SynthesizeRequirements merges every session's responses for the project
// into one combined text, delegates draft extraction to the collaborator,
// and persists each resulting requirement. Fails when the project has no
// discovery sessions at all: elicitation must have happened first.
func (m *Machine) SynthesizeRequirements(ctx context.Context, projectID string) ([]*types.Requirement, error) {
	sessions, err := m.store.ListSessionsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no discovery sessions for project %s, run discovery first: %w",
			projectID, types.ErrNotFound)
	}

	combined := combineResponses(sessions)

	drafts, err := m.elicitor.ParseRequirements(ctx, projectID, combined)
	if err != nil {
		return nil, fmt.Errorf("parsing requirements from discovery responses: %w", err)
	}

	var created []*types.Requirement
	for _, draft := range drafts {
		req := &types.Requirement{
			ProjectID:   projectID,
			Title:       draft.Title,
			Description: draft.Description,
			Type:        draft.Type,
			Priority:    draft.Priority,
			Status:      types.ReqStatusDraft,
			Tags:        draft.Tags,
		}
		if req.Type == "" {
			req.Type = types.ReqTypeFunctional
		}
		if req.Priority == "" {
			req.Priority = types.ReqPriorityMedium
		}
		if err := m.store.CreateRequirement(ctx, req); err != nil {
			return created, fmt.Errorf("persisting synthesized requirement %q: %w", draft.Title, err)
		}
		created = append(created, req)
	}

	return created, nil
}

// combineResponses flattens sessions (already in stage order) into one
// text block, responses in insertion order within each stage.
func combineResponses(sessions []*types.DiscoverySession) string {
	var b strings.Builder
	for _, session := range sessions {
		fmt.Fprintf(&b, "## Stage: %s\n", session.Stage)

		keys := make([]string, 0, len(session.Responses))
		for key := range session.Responses {
			keys = append(keys, key)
		}
		// Keys embed a nanosecond timestamp, so lexicographic order is
		// recording order for keys of equal width.
		sort.Strings(keys)

		for _, key := range keys {
			fmt.Fprintf(&b, "- %s\n", session.Responses[key])
		}
		b.WriteString("\n")
	}
	return b.String()
}
