package types

import (
	"fmt"
	"time"
)

// Project is the top-level ownership boundary. Tasks, requirements, and
// discovery sessions all belong to exactly one project and are removed
// when it is deleted.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks if the project has valid field values
func (p *Project) Validate() error {
	if len(p.Name) == 0 {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("%w: name must be 200 characters or less (got %d)", ErrInvalidArgument, len(p.Name))
	}
	return nil
}

// Task represents a unit of work, optionally nested under a parent task.
// ParentID is the single source of truth for the hierarchy; ChildTaskIDs
// is derived by query on read and is never persisted.
type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Completed    bool         `json:"completed"`
	ParentID     string       `json:"parent_id,omitempty"`
	ProjectID    string       `json:"project_id"`
	ChildTaskIDs []string     `json:"child_task_ids,omitempty"`
	Priority     TaskPriority `json:"priority,omitempty"`
	Position     *int         `json:"position,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Validate checks if the task has valid field values
func (t *Task) Validate() error {
	if len(t.Title) == 0 {
		return fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("%w: title must be 500 characters or less (got %d)", ErrInvalidArgument, len(t.Title))
	}
	if t.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidArgument)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority: %s", ErrInvalidArgument, t.Priority)
	}
	return nil
}

// TaskPriority is the three-level priority scale for tasks.
// Empty means unset.
type TaskPriority string

const (
	TaskPriorityNone   TaskPriority = ""
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// IsValid checks if the task priority value is valid
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityNone, TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// TaskUpdate carries a partial update for a task. Nil fields are left
// untouched. ClearParent detaches the task from its parent; it cannot be
// combined with a non-nil ParentID.
type TaskUpdate struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *TaskPriority
	Position    *int
	ProjectID   *string
	ParentID    *string
	ClearParent bool
}

// IsEmpty reports whether the update carries no changes
func (u *TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Completed == nil &&
		u.Priority == nil && u.Position == nil && u.ProjectID == nil &&
		u.ParentID == nil && !u.ClearParent
}

// TaskFilter is used to filter task queries
type TaskFilter struct {
	ProjectID *string
	Completed *bool
	Priority  *TaskPriority
	Limit     int
}
