package sqlite

import (
	"context"
	"testing"

	"github.com/planfold/reqtrack/internal/types"
)

func TestRequirementTagsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "Tags")

	req := &types.Requirement{
		ProjectID: project.ID,
		Title:     "Tagged requirement",
		Type:      types.ReqTypeFunctional,
		Priority:  types.ReqPriorityHigh,
		Status:    types.ReqStatusDraft,
		Tags:      []string{"security", "auth"},
	}
	if err := store.CreateRequirement(ctx, req); err != nil {
		t.Fatalf("Failed to create requirement: %v", err)
	}

	got, err := store.GetRequirement(ctx, req.ID)
	if err != nil {
		t.Fatalf("Failed to get requirement: %v", err)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("Expected 2 tags, got %d", len(got.Tags))
	}
	// Tags come back sorted
	if got.Tags[0] != "auth" || got.Tags[1] != "security" {
		t.Errorf("Unexpected tags: %v", got.Tags)
	}

	// nil leaves tags untouched; a non-nil slice replaces the whole set
	title := "Renamed"
	updated, err := store.UpdateRequirement(ctx, req.ID, &types.RequirementUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if len(updated.Tags) != 2 {
		t.Errorf("Nil tags must leave the set untouched, got %v", updated.Tags)
	}

	updated, err = store.UpdateRequirement(ctx, req.ID, &types.RequirementUpdate{Tags: []string{"billing"}})
	if err != nil {
		t.Fatalf("Failed to update tags: %v", err)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "billing" {
		t.Errorf("Expected tag replacement, got %v", updated.Tags)
	}

	updated, err = store.UpdateRequirement(ctx, req.ID, &types.RequirementUpdate{Tags: []string{}})
	if err != nil {
		t.Fatalf("Failed to clear tags: %v", err)
	}
	if len(updated.Tags) != 0 {
		t.Errorf("Expected empty slice to clear tags, got %v", updated.Tags)
	}
}

func TestRequirementCriticalPriorityPersists(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "Critical")

	req := &types.Requirement{
		ProjectID: project.ID,
		Title:     "Data must never be lost",
		Type:      types.ReqTypeNonFunctional,
		Priority:  types.ReqPriorityCritical,
		Status:    types.ReqStatusApproved,
	}
	if err := store.CreateRequirement(ctx, req); err != nil {
		t.Fatalf("Failed to create critical requirement: %v", err)
	}

	got, err := store.GetRequirement(ctx, req.ID)
	if err != nil {
		t.Fatalf("Failed to get requirement: %v", err)
	}
	if got.Priority != types.ReqPriorityCritical {
		t.Errorf("Expected critical priority to round-trip, got: %s", got.Priority)
	}
}

func TestSearchRequirements(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "ReqSearch")

	for _, title := range []string{"Login with SSO", "Export reports", "Login rate limiting"} {
		req := &types.Requirement{
			ProjectID: project.ID,
			Title:     title,
			Type:      types.ReqTypeFunctional,
			Priority:  types.ReqPriorityMedium,
			Status:    types.ReqStatusDraft,
		}
		if err := store.CreateRequirement(ctx, req); err != nil {
			t.Fatalf("Failed to create requirement: %v", err)
		}
	}

	results, err := store.SearchRequirements(ctx, "login", project.ID)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 matches for 'login', got %d", len(results))
	}
}

func TestDeleteRequirement(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	project := makeProject(t, store, "ReqDelete")

	req := &types.Requirement{
		ProjectID: project.ID,
		Title:     "Doomed",
		Type:      types.ReqTypeFunctional,
		Priority:  types.ReqPriorityLow,
		Status:    types.ReqStatusDraft,
		Tags:      []string{"temp"},
	}
	if err := store.CreateRequirement(ctx, req); err != nil {
		t.Fatalf("Failed to create requirement: %v", err)
	}

	deleted, err := store.DeleteRequirement(ctx, req.ID)
	if err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if !deleted {
		t.Error("Expected delete to report true")
	}

	deleted, err = store.DeleteRequirement(ctx, req.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if deleted {
		t.Error("Second delete must report false")
	}
}
