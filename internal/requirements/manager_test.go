package requirements

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/planfold/reqtrack/internal/storage"
	"github.com/planfold/reqtrack/internal/types"
)

func setupManager(t *testing.T) (*Manager, *types.Project) {
	t.Helper()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewStorage(ctx, &storage.Config{Path: dbPath})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	project := &types.Project{Name: "Requirements Test"}
	if err := store.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	return NewManager(store), project
}

func makeTech(t *testing.T, mgr *Manager, projectID, title string) *types.TechnicalRequirement {
	t.Helper()

	req, err := mgr.CreateTech(context.Background(), CreateTechInput{
		ProjectID: projectID,
		Title:     title,
	})
	if err != nil {
		t.Fatalf("Failed to create %q: %v", title, err)
	}
	return req
}

func TestCreateAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	mgr, project := setupManager(t)

	req, err := mgr.Create(ctx, CreateRequirementInput{
		ProjectID: project.ID,
		Title:     "Searchable audit log",
		Type:      types.ReqTypeFunctional,
		Priority:  types.ReqPriorityHigh,
	})
	if err != nil {
		t.Fatalf("Failed to create: %v", err)
	}
	if req.Status != types.ReqStatusDraft {
		t.Errorf("Expected default status draft, got: %s", req.Status)
	}

	tech := makeTech(t, mgr, project.ID, "Background job queue")
	if tech.Status != types.TechStatusUnassigned {
		t.Errorf("Expected default status unassigned, got: %s", tech.Status)
	}
	if tech.Type != types.ReqTypeTechnical {
		t.Errorf("Expected default type technical, got: %s", tech.Type)
	}
	if tech.UniqueID == "" {
		t.Error("Expected a unique id")
	}
}

func TestCreateRejectsBadEnumsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	mgr, project := setupManager(t)

	_, err := mgr.Create(ctx, CreateRequirementInput{
		ProjectID: project.ID,
		Title:     "bad",
		Type:      types.RequirementType("wish"),
		Priority:  types.ReqPriorityLow,
	})
	if !types.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for bad type, got: %v", err)
	}

	reqs, err := mgr.ListByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(reqs) != 0 {
		t.Error("Rejected create must not persist anything")
	}
}

func TestCreateRejectsMissingProject(t *testing.T) {
	mgr, _ := setupManager(t)

	_, err := mgr.Create(context.Background(), CreateRequirementInput{
		ProjectID: "no-such-project",
		Title:     "orphan",
		Type:      types.ReqTypeFunctional,
		Priority:  types.ReqPriorityLow,
	})
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound, got: %v", err)
	}
}

func TestUpdateValidatesEnums(t *testing.T) {
	ctx := context.Background()
	mgr, project := setupManager(t)

	req, err := mgr.Create(ctx, CreateRequirementInput{
		ProjectID: project.ID,
		Title:     "valid",
		Type:      types.ReqTypeFunctional,
		Priority:  types.ReqPriorityLow,
	})
	if err != nil {
		t.Fatalf("Failed to create: %v", err)
	}

	bad := types.RequirementStatus("done-ish")
	_, err = mgr.Update(ctx, req.ID, &types.RequirementUpdate{Status: &bad})
	if !types.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for bad status, got: %v", err)
	}

	good := types.ReqStatusApproved
	updated, err := mgr.Update(ctx, req.ID, &types.RequirementUpdate{Status: &good})
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if updated.Status != types.ReqStatusApproved {
		t.Errorf("Expected approved, got: %s", updated.Status)
	}

	_, err = mgr.Update(ctx, "no-such-id", &types.RequirementUpdate{Status: &good})
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound for absent requirement, got: %v", err)
	}
}

func TestGetTechFallsBackToUniqueID(t *testing.T) {
	ctx := context.Background()
	mgr, project := setupManager(t)

	created := makeTech(t, mgr, project.ID, "lookup target")

	byID, err := mgr.GetTech(ctx, created.ID)
	if err != nil {
		t.Fatalf("Lookup by id failed: %v", err)
	}
	byUnique, err := mgr.GetTech(ctx, created.UniqueID)
	if err != nil {
		t.Fatalf("Lookup by unique id failed: %v", err)
	}
	if byID.ID != byUnique.ID {
		t.Error("Both lookups must resolve to the same row")
	}

	_, err = mgr.GetTech(ctx, "TR-999")
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound, got: %v", err)
	}
}

func TestAddDependencyRejectsCycles(t *testing.T) {
	ctx := context.Background()
	mgr, project := setupManager(t)

	a := makeTech(t, mgr, project.ID, "a")
	b := makeTech(t, mgr, project.ID, "b")
	c := makeTech(t, mgr, project.ID, "c")

	if err := mgr.AddDependency(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Failed to add a->b: %v", err)
	}
	if err := mgr.AddDependency(ctx, b.ID, c.ID); err != nil {
		t.Fatalf("Failed to add b->c: %v", err)
	}

	// Direct cycle
	err := mgr.AddDependency(ctx, b.ID, a.ID)
	if !types.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for direct cycle, got: %v", err)
	}

	// Transitive cycle: c -> a would close a -> b -> c -> a
	err = mgr.AddDependency(ctx, c.ID, a.ID)
	if !types.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for transitive cycle, got: %v", err)
	}

	// Self-loop
	err = mgr.AddDependency(ctx, a.ID, a.ID)
	if !types.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for self-loop, got: %v", err)
	}

	// A diamond is fine: a -> c alongside a -> b -> c
	if err := mgr.AddDependency(ctx, a.ID, c.ID); err != nil {
		t.Errorf("Diamond shape must be allowed, got: %v", err)
	}
}

func TestAddDependencyValidatesEndpoints(t *testing.T) {
	ctx := context.Background()
	mgr, project := setupManager(t)
	a := makeTech(t, mgr, project.ID, "a")

	err := mgr.AddDependency(ctx, a.ID, "no-such-id")
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound for missing dependency, got: %v", err)
	}
	err = mgr.AddDependency(ctx, "no-such-id", a.ID)
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound for missing dependent, got: %v", err)
	}
}

func TestRemoveDependency(t *testing.T) {
	ctx := context.Background()
	mgr, project := setupManager(t)

	a := makeTech(t, mgr, project.ID, "a")
	b := makeTech(t, mgr, project.ID, "b")

	if err := mgr.AddDependency(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}
	if err := mgr.RemoveDependency(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Failed to remove edge: %v", err)
	}

	err := mgr.RemoveDependency(ctx, a.ID, b.ID)
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound for absent edge, got: %v", err)
	}

	// With the edge gone, the reverse direction is legal again
	if err := mgr.AddDependency(ctx, b.ID, a.ID); err != nil {
		t.Errorf("Reverse edge must be legal after removal, got: %v", err)
	}
}

func TestDeleteTechRemovesCriteria(t *testing.T) {
	ctx := context.Background()
	mgr, project := setupManager(t)

	req, err := mgr.CreateTech(ctx, CreateTechInput{
		ProjectID:          project.ID,
		Title:              "with criteria",
		AcceptanceCriteria: []string{"does the thing", "does it fast"},
	})
	if err != nil {
		t.Fatalf("Failed to create: %v", err)
	}
	if len(req.AcceptanceCriteria) != 2 {
		t.Fatalf("Expected 2 criteria, got %d", len(req.AcceptanceCriteria))
	}

	if err := mgr.DeleteTech(ctx, req.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	_, err = mgr.GetTech(ctx, req.ID)
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound after delete, got: %v", err)
	}

	err = mgr.DeleteTech(ctx, req.ID)
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound for second delete, got: %v", err)
	}
}
