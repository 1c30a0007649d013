package types

import (
	"errors"
	"testing"
)

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{
			name: "valid task",
			task: Task{Title: "Build login page", ProjectID: "p-1"},
		},
		{
			name: "valid task with priority",
			task: Task{Title: "Build login page", ProjectID: "p-1", Priority: TaskPriorityHigh},
		},
		{
			name:    "missing title",
			task:    Task{ProjectID: "p-1"},
			wantErr: true,
		},
		{
			name:    "missing project",
			task:    Task{Title: "Orphan"},
			wantErr: true,
		},
		{
			name:    "bad priority",
			task:    Task{Title: "x", ProjectID: "p-1", Priority: "urgent"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Validate() error should wrap ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestRequirementValidate(t *testing.T) {
	valid := Requirement{
		ProjectID: "p-1",
		Title:     "Users can export data",
		Type:      ReqTypeFunctional,
		Priority:  ReqPriorityCritical,
		Status:    ReqStatusDraft,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid requirement, got %v", err)
	}

	badType := valid
	badType.Type = "wishlist"
	if err := badType.Validate(); err == nil {
		t.Error("expected error for unknown requirement type")
	}

	badPriority := valid
	badPriority.Priority = "urgent"
	if err := badPriority.Validate(); err == nil {
		t.Error("expected error for unknown priority")
	}

	badStatus := valid
	badStatus.Status = "pending"
	if err := badStatus.Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}

// TestCriticalPriorityIsFirstClass guards against reintroducing the silent
// critical-to-high downgrade: critical must validate on its own.
func TestCriticalPriorityIsFirstClass(t *testing.T) {
	if !ReqPriorityCritical.IsValid() {
		t.Fatal("critical must be a valid requirement priority")
	}
	if ReqPriorityCritical == ReqPriorityHigh {
		t.Fatal("critical must be distinct from high")
	}
}

func TestTechnicalRequirementValidate(t *testing.T) {
	valid := TechnicalRequirement{
		ProjectID: "p-1",
		Title:     "Expose REST API",
		Type:      ReqTypeTechnical,
		Status:    TechStatusUnassigned,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid technical requirement, got %v", err)
	}

	bad := valid
	bad.Status = "done"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown tech status")
	}
}

func TestStageOrdering(t *testing.T) {
	stages := AllStages()
	if len(stages) != 6 {
		t.Fatalf("expected 6 stages, got %d", len(stages))
	}
	if stages[0] != StageInitial {
		t.Errorf("expected first stage initial, got %s", stages[0])
	}
	if stages[len(stages)-1] != StageFinalize {
		t.Errorf("expected last stage finalize, got %s", stages[len(stages)-1])
	}

	// Every non-terminal stage advances to its immediate successor
	for i := 0; i < len(stages)-1; i++ {
		next, ok := stages[i].Next()
		if !ok {
			t.Errorf("stage %s should have a successor", stages[i])
		}
		if next != stages[i+1] {
			t.Errorf("stage %s: expected successor %s, got %s", stages[i], stages[i+1], next)
		}
	}

	// Terminal stage has no successor
	if _, ok := StageFinalize.Next(); ok {
		t.Error("finalize must not have a successor")
	}

	// Unknown stages are invalid and have no successor
	if Stage("planning").IsValid() {
		t.Error("unknown stage should not be valid")
	}
	if _, ok := Stage("planning").Next(); ok {
		t.Error("unknown stage must not have a successor")
	}
}

func TestTaskUpdateIsEmpty(t *testing.T) {
	var u TaskUpdate
	if !u.IsEmpty() {
		t.Error("zero update should be empty")
	}

	title := "new title"
	u.Title = &title
	if u.IsEmpty() {
		t.Error("update with title should not be empty")
	}

	u = TaskUpdate{ClearParent: true}
	if u.IsEmpty() {
		t.Error("clear-parent update should not be empty")
	}
}
