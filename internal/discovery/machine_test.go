package discovery

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/planfold/reqtrack/internal/storage"
	"github.com/planfold/reqtrack/internal/types"
)

// scriptedElicitor is a deterministic Elicitor whose advancement decisions
// are controlled by the test
type scriptedElicitor struct {
	advance bool
	drafts  []types.RequirementDraft
	// combinedText captures the text handed to ParseRequirements
	combinedText string
}

func (s *scriptedElicitor) GenerateQuestions(ctx context.Context, stage types.Stage, domain string, previous map[string]string) (string, error) {
	return "questions for " + string(stage), nil
}

func (s *scriptedElicitor) GenerateSuggestions(ctx context.Context, stage types.Stage, domain string) (string, error) {
	return "suggestions for " + string(stage), nil
}

func (s *scriptedElicitor) GenerateFollowUp(ctx context.Context, stage types.Stage, domain, response string, previous map[string]string) (string, error) {
	return "tell me more", nil
}

func (s *scriptedElicitor) ShouldAdvance(ctx context.Context, stage types.Stage, domain, response string, previous map[string]string) (bool, error) {
	return s.advance, nil
}

func (s *scriptedElicitor) ParseRequirements(ctx context.Context, projectID, text string) ([]types.RequirementDraft, error) {
	s.combinedText = text
	return s.drafts, nil
}

func setupMachine(t *testing.T, elicitor Elicitor) (*Machine, storage.Storage, *types.Project) {
	t.Helper()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewStorage(ctx, &storage.Config{Path: dbPath})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	project := &types.Project{Name: "Discovery Test"}
	if err := store.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	return NewMachine(store, elicitor), store, project
}

func TestBeginOrResumeCreatesThenResumes(t *testing.T) {
	ctx := context.Background()
	machine, _, project := setupMachine(t, &scriptedElicitor{})

	first, err := machine.BeginOrResume(ctx, project.ID, "web app", types.StageInitial)
	if err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}
	if !first.Created {
		t.Error("Expected first call to create the session")
	}
	if first.Questions == "" || first.Suggestions == "" {
		t.Error("Expected questions and suggestions")
	}

	second, err := machine.BeginOrResume(ctx, project.ID, "web app", types.StageInitial)
	if err != nil {
		t.Fatalf("Failed to resume: %v", err)
	}
	if second.Created {
		t.Error("Expected second call to resume, not create")
	}
	if second.Session.ID != first.Session.ID {
		t.Error("Resume must return the same session")
	}
}

func TestBeginOrResumeRejectsInvalidStage(t *testing.T) {
	ctx := context.Background()
	machine, _, project := setupMachine(t, &scriptedElicitor{})

	_, err := machine.BeginOrResume(ctx, project.ID, "", types.Stage("bogus"))
	if !types.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for bogus stage, got: %v", err)
	}
}

func TestBeginOrResumeRejectsMissingProject(t *testing.T) {
	machine, _, _ := setupMachine(t, &scriptedElicitor{})

	_, err := machine.BeginOrResume(context.Background(), "no-such-project", "", types.StageInitial)
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound for missing project, got: %v", err)
	}
}

func TestRecordResponseWithoutSessionFails(t *testing.T) {
	machine, _, project := setupMachine(t, &scriptedElicitor{})

	_, err := machine.RecordResponse(context.Background(), project.ID, types.StageInitial, "", "an answer")
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound when recording before begin, got: %v", err)
	}
}

func TestRecordResponseFollowUpWhenNotAdvancing(t *testing.T) {
	ctx := context.Background()
	elicitor := &scriptedElicitor{advance: false}
	machine, _, project := setupMachine(t, elicitor)

	if _, err := machine.BeginOrResume(ctx, project.ID, "", types.StageInitial); err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}

	result, err := machine.RecordResponse(ctx, project.ID, types.StageInitial, "", "a thin answer")
	if err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if result.Advance {
		t.Error("Expected no advancement")
	}
	if result.FollowUp != "tell me more" {
		t.Errorf("Expected follow-up probe, got: %q", result.FollowUp)
	}
	if result.ResponseKey == "" {
		t.Error("Expected a response key")
	}
}

func TestRecordResponseAdvancesWithoutMutatingSession(t *testing.T) {
	ctx := context.Background()
	elicitor := &scriptedElicitor{advance: true}
	machine, store, project := setupMachine(t, elicitor)

	if _, err := machine.BeginOrResume(ctx, project.ID, "", types.StageInitial); err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}

	result, err := machine.RecordResponse(ctx, project.ID, types.StageInitial, "", "a full answer")
	if err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if !result.Advance || !result.HasNext {
		t.Fatal("Expected advancement with a successor stage")
	}
	if result.NextStage != types.StageStakeholders {
		t.Errorf("Expected next stage stakeholders, got: %s", result.NextStage)
	}
	if result.FollowUp != "" {
		t.Error("No follow-up expected when advancing")
	}

	// The stored session keeps its stage; the next stage gets its own
	// session only when begun
	stored, err := store.GetSessionByProjectStage(ctx, project.ID, types.StageInitial)
	if err != nil || stored == nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if stored.Stage != types.StageInitial {
		t.Errorf("Session stage must not mutate on advance, got: %s", stored.Stage)
	}

	next, err := store.GetSessionByProjectStage(ctx, project.ID, types.StageStakeholders)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if next != nil {
		t.Error("Next stage session must not exist until begun")
	}
}

func TestRecordResponseTerminalStageHasNoNext(t *testing.T) {
	ctx := context.Background()
	elicitor := &scriptedElicitor{advance: true}
	machine, _, project := setupMachine(t, elicitor)

	if _, err := machine.BeginOrResume(ctx, project.ID, "", types.StageFinalize); err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}

	result, err := machine.RecordResponse(ctx, project.ID, types.StageFinalize, "", "all confirmed")
	if err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if !result.Advance {
		t.Fatal("Expected advancement")
	}
	if result.HasNext {
		t.Error("Finalize is terminal, no successor expected")
	}
}

func TestSynthesizeRequirements(t *testing.T) {
	ctx := context.Background()
	elicitor := &scriptedElicitor{
		advance: false,
		drafts: []types.RequirementDraft{
			{Title: "User login", Description: "SSO login", Type: types.ReqTypeFunctional, Priority: types.ReqPriorityHigh},
			{Title: "Fast page loads"},
		},
	}
	machine, store, project := setupMachine(t, elicitor)

	for _, stage := range []types.Stage{types.StageInitial, types.StageFeatures} {
		if _, err := machine.BeginOrResume(ctx, project.ID, "", stage); err != nil {
			t.Fatalf("Failed to begin %s: %v", stage, err)
		}
		if _, err := machine.RecordResponse(ctx, project.ID, stage, "", "answer for "+string(stage)); err != nil {
			t.Fatalf("Failed to record for %s: %v", stage, err)
		}
	}

	created, err := machine.SynthesizeRequirements(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to synthesize: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("Expected 2 requirements, got %d", len(created))
	}

	// Combined text covers both stages in order
	if !strings.Contains(elicitor.combinedText, "initial") ||
		!strings.Contains(elicitor.combinedText, "features") {
		t.Errorf("Combined text missing stages: %q", elicitor.combinedText)
	}
	if strings.Index(elicitor.combinedText, "initial") > strings.Index(elicitor.combinedText, "features") {
		t.Error("Stages must appear in canonical order")
	}

	// Defaults fill in unset draft fields; everything persists as draft
	second := created[1]
	if second.Type != types.ReqTypeFunctional || second.Priority != types.ReqPriorityMedium {
		t.Errorf("Expected defaults functional/medium, got %s/%s", second.Type, second.Priority)
	}
	for _, req := range created {
		if req.Status != types.ReqStatusDraft {
			t.Errorf("Expected draft status, got: %s", req.Status)
		}
	}

	stored, err := store.ListRequirementsByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to list requirements: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("Expected 2 persisted requirements, got %d", len(stored))
	}
}

func TestSynthesizeRequiresSessions(t *testing.T) {
	machine, _, project := setupMachine(t, &scriptedElicitor{})

	_, err := machine.SynthesizeRequirements(context.Background(), project.ID)
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound without sessions, got: %v", err)
	}
}
