// Package tasktree maintains the forest of tasks per project: strict
// parent/child consistency, cascade deletion, and ordered reads. The
// parent pointer is the single source of truth; child lists are always
// derived by query, so concurrent inserts under one parent cannot lose
// updates to a cached list.
package tasktree

import (
	"context"
	"fmt"

	"github.com/planfold/reqtrack/internal/storage"
	"github.com/planfold/reqtrack/internal/types"
)

// Manager owns the task hierarchy invariants on top of the entity store
type Manager struct {
	store storage.Storage
}

// NewManager creates a task tree manager
func NewManager(store storage.Storage) *Manager {
	return &Manager{store: store}
}

// CreateTaskInput carries the fields for a new task
type CreateTaskInput struct {
	Title       string
	Description string
	ParentID    string
	ProjectID   string
	Priority    types.TaskPriority
	Position    *int
}

// Create validates referential integrity and persists a new task.
// The parent, when supplied, must exist (ErrNotFound otherwise) and must
// belong to the same project (ErrInvalidArgument otherwise). A missing
// parent is never silently accepted as an orphan entry.
func (m *Manager) Create(ctx context.Context, in CreateTaskInput) (*types.Task, error) {
	task := &types.Task{
		Title:       in.Title,
		Description: in.Description,
		ParentID:    in.ParentID,
		ProjectID:   in.ProjectID,
		Priority:    in.Priority,
		Position:    in.Position,
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	project, err := m.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", in.ProjectID, types.ErrNotFound)
	}

	if in.ParentID != "" {
		parent, err := m.store.GetTask(ctx, in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent task %s: %w", in.ParentID, types.ErrNotFound)
		}
		if parent.ProjectID != in.ProjectID {
			return nil, fmt.Errorf("%w: parent task %s belongs to project %s, not %s",
				types.ErrInvalidArgument, in.ParentID, parent.ProjectID, in.ProjectID)
		}
	}

	if err := m.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Update merges the supplied fields onto the task and returns the updated
// record. Project reassignment is rejected while the task still has a
// parent or children in the old project, unless the parent relationship
// is cleared in the same update. A reassignment must never split an edge
// across projects.
func (m *Manager) Update(ctx context.Context, id string, update *types.TaskUpdate) (*types.Task, error) {
	task, err := m.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if update == nil || update.IsEmpty() {
		return task, nil
	}

	if update.ParentID != nil && update.ClearParent {
		return nil, fmt.Errorf("%w: cannot both set and clear the parent", types.ErrInvalidArgument)
	}

	targetProject := task.ProjectID
	if update.ProjectID != nil && *update.ProjectID != task.ProjectID {
		project, err := m.store.GetProject(ctx, *update.ProjectID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, fmt.Errorf("project %s: %w", *update.ProjectID, types.ErrNotFound)
		}
		if task.ParentID != "" && !update.ClearParent && update.ParentID == nil {
			return nil, fmt.Errorf("%w: cannot move task %s to project %s while it has a parent in project %s",
				types.ErrInvalidArgument, id, *update.ProjectID, task.ProjectID)
		}
		if len(task.ChildTaskIDs) > 0 {
			return nil, fmt.Errorf("%w: cannot move task %s to another project while it has child tasks",
				types.ErrInvalidArgument, id)
		}
		targetProject = *update.ProjectID
	}

	if update.ParentID != nil {
		if err := m.validateNewParent(ctx, task, *update.ParentID, targetProject); err != nil {
			return nil, err
		}
	}

	updated, err := m.store.UpdateTask(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Deleted between the read and the write
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	return updated, nil
}

// validateNewParent checks a re-parenting target: it must exist, belong
// to the target project, and not sit inside the task's own subtree.
func (m *Manager) validateNewParent(ctx context.Context, task *types.Task, parentID, targetProject string) error {
	if parentID == "" {
		return fmt.Errorf("%w: parent id cannot be empty, use ClearParent to detach", types.ErrInvalidArgument)
	}
	if parentID == task.ID {
		return fmt.Errorf("%w: task %s cannot be its own parent", types.ErrInvalidArgument, task.ID)
	}

	parent, err := m.store.GetTask(ctx, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("parent task %s: %w", parentID, types.ErrNotFound)
	}
	if parent.ProjectID != targetProject {
		return fmt.Errorf("%w: parent task %s belongs to project %s, not %s",
			types.ErrInvalidArgument, parentID, parent.ProjectID, targetProject)
	}

	// Walk up from the new parent; hitting the task itself would fold the
	// subtree into a cycle.
	for ancestor := parent; ancestor.ParentID != ""; {
		if ancestor.ParentID == task.ID {
			return fmt.Errorf("%w: task %s is a descendant of %s", types.ErrInvalidArgument, parentID, task.ID)
		}
		ancestor, err = m.store.GetTask(ctx, ancestor.ParentID)
		if err != nil {
			return err
		}
		if ancestor == nil {
			break
		}
	}

	return nil
}

// Delete removes a task and its entire descendant subtree, returning the
// number of tasks removed. Unknown ids fail with ErrNotFound.
func (m *Manager) Delete(ctx context.Context, id string) (int, error) {
	deleted, err := m.store.DeleteTaskTree(ctx, id)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	return deleted, nil
}

// Complete marks a task completed. Idempotent: completing an already
// completed task succeeds and leaves it completed.
func (m *Manager) Complete(ctx context.Context, id string) (*types.Task, error) {
	completed := true
	return m.Update(ctx, id, &types.TaskUpdate{Completed: &completed})
}

// GetByID retrieves one task with its derived child id list
func (m *Manager) GetByID(ctx context.Context, id string) (*types.Task, error) {
	task, err := m.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	return task, nil
}

// GetChildren returns the direct children of a task in sibling order
// (position, then creation time).
func (m *Manager) GetChildren(ctx context.Context, parentID string) ([]*types.Task, error) {
	return m.store.ListTasksByParent(ctx, parentID)
}

// GetRoots returns all parentless tasks across projects
func (m *Manager) GetRoots(ctx context.Context) ([]*types.Task, error) {
	return m.store.ListRootTasks(ctx)
}

// GetRootsForProject returns a project's parentless tasks
func (m *Manager) GetRootsForProject(ctx context.Context, projectID string) ([]*types.Task, error) {
	return m.store.ListRootTasksByProject(ctx, projectID)
}

// GetByProject returns every task of a project, flat
func (m *Manager) GetByProject(ctx context.Context, projectID string) ([]*types.Task, error) {
	return m.store.ListTasksByProject(ctx, projectID)
}

// DeleteProject removes a project after cascading through everything it
// owns. The task cascade is the tree manager's responsibility, not the
// store's alone: each root subtree is deleted through the same path as a
// direct task delete before the project row goes away.
func (m *Manager) DeleteProject(ctx context.Context, projectID string) error {
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("project %s: %w", projectID, types.ErrNotFound)
	}

	roots, err := m.store.ListRootTasksByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, root := range roots {
		if _, err := m.store.DeleteTaskTree(ctx, root.ID); err != nil {
			return err
		}
	}

	deleted, err := m.store.DeleteProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("project %s: %w", projectID, types.ErrNotFound)
	}
	return nil
}
