package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/planfold/reqtrack/internal/types"
)

func makeTechReq(t *testing.T, store *SQLiteStorage, projectID, title string) *types.TechnicalRequirement {
	t.Helper()

	req := &types.TechnicalRequirement{
		ProjectID: projectID,
		Title:     title,
		Type:      types.ReqTypeTechnical,
		Status:    types.TechStatusUnassigned,
	}
	if err := store.CreateTechRequirement(context.Background(), req); err != nil {
		t.Fatalf("Failed to create technical requirement %q: %v", title, err)
	}
	return req
}

func TestTechRequirementUniqueIDsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "Sequence")

	first := makeTechReq(t, store, project.ID, "first")
	second := makeTechReq(t, store, project.ID, "second")
	third := makeTechReq(t, store, project.ID, "third")

	if first.UniqueID != "TR-001" || second.UniqueID != "TR-002" || third.UniqueID != "TR-003" {
		t.Fatalf("Expected TR-001..TR-003, got: %s, %s, %s",
			first.UniqueID, second.UniqueID, third.UniqueID)
	}

	// Deleting must never free a number for reuse
	if _, err := store.DeleteTechRequirement(ctx, second.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	fourth := makeTechReq(t, store, project.ID, "fourth")
	if fourth.UniqueID != "TR-004" {
		t.Errorf("Expected TR-004 after a delete, got: %s", fourth.UniqueID)
	}
}

func TestTechRequirementCriteriaRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "Criteria")

	req := &types.TechnicalRequirement{
		ProjectID: project.ID,
		Title:     "API endpoint",
		Type:      types.ReqTypeTechnical,
		Status:    types.TechStatusAssigned,
		AcceptanceCriteria: []types.AcceptanceCriterion{
			{Description: "returns 200 on success"},
			{Description: "returns 404 for unknown ids"},
		},
	}
	if err := store.CreateTechRequirement(ctx, req); err != nil {
		t.Fatalf("Failed to create: %v", err)
	}

	got, err := store.GetTechRequirement(ctx, req.ID)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if len(got.AcceptanceCriteria) != 2 {
		t.Fatalf("Expected 2 criteria, got %d", len(got.AcceptanceCriteria))
	}
	if got.AcceptanceCriteria[0].Description != "returns 200 on success" {
		t.Errorf("Criteria order not preserved: %s", got.AcceptanceCriteria[0].Description)
	}

	byUnique, err := store.GetTechRequirementByUniqueID(ctx, got.UniqueID)
	if err != nil {
		t.Fatalf("Failed to get by unique id: %v", err)
	}
	if byUnique == nil || byUnique.ID != req.ID {
		t.Error("Lookup by unique id must find the same row")
	}
}

func TestTechDependencyEdges(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "Deps")

	auth := makeTechReq(t, store, project.ID, "auth service")
	db := makeTechReq(t, store, project.ID, "database schema")
	api := makeTechReq(t, store, project.ID, "public API")

	if err := store.AddTechDependency(ctx, auth.ID, db.ID); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}
	if err := store.AddTechDependency(ctx, api.ID, auth.ID); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}

	// Duplicate edges are absorbed, not errors
	if err := store.AddTechDependency(ctx, auth.ID, db.ID); err != nil {
		t.Fatalf("Duplicate edge must be a no-op, got: %v", err)
	}

	deps, err := store.GetTechDependencies(ctx, auth.ID)
	if err != nil {
		t.Fatalf("Failed to get dependencies: %v", err)
	}
	if len(deps) != 1 || deps[0].ID != db.ID {
		t.Fatalf("Expected auth to depend only on db, got %d deps", len(deps))
	}

	dependents, err := store.GetTechDependents(ctx, auth.ID)
	if err != nil {
		t.Fatalf("Failed to get dependents: %v", err)
	}
	if len(dependents) != 1 || dependents[0].ID != api.ID {
		t.Fatalf("Expected only api to depend on auth, got %d dependents", len(dependents))
	}

	edges, err := store.ListTechDependencyEdges(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to list edges: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("Expected 2 edges, got %d", len(edges))
	}

	removed, err := store.RemoveTechDependency(ctx, auth.ID, db.ID)
	if err != nil {
		t.Fatalf("Failed to remove edge: %v", err)
	}
	if !removed {
		t.Error("Expected removal to report true")
	}
	removed, err = store.RemoveTechDependency(ctx, auth.ID, db.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if removed {
		t.Error("Removing an absent edge must report false")
	}
}

func TestAddTechDependencySelfLoop(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "SelfLoop")
	req := makeTechReq(t, store, project.ID, "self")

	err := store.AddTechDependency(ctx, req.ID, req.ID)
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for self-loop, got: %v", err)
	}
}

func TestDeleteTechRequirementCascadesEdges(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "EdgeCascade")

	a := makeTechReq(t, store, project.ID, "a")
	b := makeTechReq(t, store, project.ID, "b")
	c := makeTechReq(t, store, project.ID, "c")

	if err := store.AddTechDependency(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}
	if err := store.AddTechDependency(ctx, b.ID, c.ID); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}

	// Deleting b removes edges on both sides of it
	if _, err := store.DeleteTechRequirement(ctx, b.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	edges, err := store.ListTechDependencyEdges(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to list edges: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("Expected no edges after deleting shared endpoint, got %d", len(edges))
	}
}

func TestTechRequirementSequenceSurvivesManyCreates(t *testing.T) {
	store := setupTestDB(t)
	project := makeProject(t, store, "Many")

	for i := 1; i <= 12; i++ {
		req := makeTechReq(t, store, project.ID, fmt.Sprintf("req %d", i))
		want := fmt.Sprintf("TR-%03d", i)
		if req.UniqueID != want {
			t.Fatalf("Expected %s, got %s", want, req.UniqueID)
		}
	}
}
