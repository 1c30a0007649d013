package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/planfold/reqtrack/internal/types"
)

func makeSession(t *testing.T, store *SQLiteStorage, projectID string, stage types.Stage) *types.DiscoverySession {
	t.Helper()

	session := &types.DiscoverySession{
		ProjectID: projectID,
		Domain:    "web application",
		Stage:     stage,
	}
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to create session for %s: %v", stage, err)
	}
	return session
}

func TestSessionIdentityIsProjectAndStage(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "Sessions")

	created := makeSession(t, store, project.ID, types.StageInitial)

	got, err := store.GetSessionByProjectStage(ctx, project.ID, types.StageInitial)
	if err != nil {
		t.Fatalf("Failed to look up session: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatal("Lookup by (project, stage) must find the created session")
	}

	// A second session for the same (project, stage) violates identity
	dup := &types.DiscoverySession{ProjectID: project.ID, Stage: types.StageInitial}
	err = store.CreateSession(ctx, dup)
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate (project, stage), got: %v", err)
	}

	// A different stage for the same project is a distinct session
	other := makeSession(t, store, project.ID, types.StageFeatures)
	if other.ID == created.ID {
		t.Error("Different stages must get different sessions")
	}
}

func TestAddSessionResponseAccumulates(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "Responses")
	session := makeSession(t, store, project.ID, types.StageStakeholders)

	if err := store.AddSessionResponse(ctx, session.ID, "response_1", "admins and end users"); err != nil {
		t.Fatalf("Failed to add response: %v", err)
	}
	if err := store.AddSessionResponse(ctx, session.ID, "response_2", "a compliance auditor"); err != nil {
		t.Fatalf("Failed to add response: %v", err)
	}

	got, err := store.GetSessionByProjectStage(ctx, project.ID, types.StageStakeholders)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if len(got.Responses) != 2 {
		t.Fatalf("Expected 2 responses, got %d", len(got.Responses))
	}
	if got.Responses["response_1"] != "admins and end users" {
		t.Errorf("Unexpected response content: %s", got.Responses["response_1"])
	}

	// Duplicate keys are rejected, never silently overwritten
	err = store.AddSessionResponse(ctx, session.ID, "response_1", "overwrite attempt")
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate response key, got: %v", err)
	}
}

func TestListSessionsByProjectOrdersByStage(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "StageOrder")

	// Create out of canonical order
	makeSession(t, store, project.ID, types.StageFeatures)
	makeSession(t, store, project.ID, types.StageInitial)
	makeSession(t, store, project.ID, types.StageStakeholders)

	sessions, err := store.ListSessionsByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}

	want := []types.Stage{types.StageInitial, types.StageStakeholders, types.StageFeatures}
	for i, stage := range want {
		if sessions[i].Stage != stage {
			t.Errorf("Position %d: expected %s, got %s", i, stage, sessions[i].Stage)
		}
	}
}
