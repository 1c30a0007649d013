package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planfold/reqtrack/internal/types"
)

// Sibling ordering: explicit position first (unset positions sort last),
// then creation time. Shared by every task listing.
const taskOrderBy = "ORDER BY position IS NULL, position ASC, created_at ASC"

const taskColumns = "id, title, description, completed, parent_id, project_id, priority, position, created_at, updated_at"

// CreateTask inserts a new task, generating an id when unset.
// Referential validation (parent existence, cross-project parenting) is
// the task tree manager's concern; the store only enforces shape.
func (s *SQLiteStorage) CreateTask(ctx context.Context, task *types.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	var parentID interface{}
	if task.ParentID != "" {
		parentID = task.ParentID
	}
	var position interface{}
	if task.Position != nil {
		position = *task.Position
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, completed, parent_id, project_id, priority, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Title, task.Description, task.Completed, parentID,
		task.ProjectID, string(task.Priority), position, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return storeErr("failed to insert task", err)
	}

	return nil
}

// GetTask retrieves a task by ID with its derived child id list.
// Returns (nil, nil) when absent.
func (s *SQLiteStorage) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to get task", err)
	}

	// Derive the child list from the authoritative parent pointers
	children, err := s.ListTasksByParent(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		task.ChildTaskIDs = append(task.ChildTaskIDs, child.ID)
	}

	return task, nil
}

// ListTasksByParent returns the direct children of a task in sibling order
func (s *SQLiteStorage) ListTasksByParent(ctx context.Context, parentID string) ([]*types.Task, error) {
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE parent_id = ? "+taskOrderBy, parentID)
}

// ListRootTasks returns all tasks without a parent, across projects
func (s *SQLiteStorage) ListRootTasks(ctx context.Context) ([]*types.Task, error) {
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE parent_id IS NULL "+taskOrderBy)
}

// ListRootTasksByProject returns the parentless tasks of one project
func (s *SQLiteStorage) ListRootTasksByProject(ctx context.Context, projectID string) ([]*types.Task, error) {
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE parent_id IS NULL AND project_id = ? "+taskOrderBy, projectID)
}

// ListTasksByProject returns every task of a project, flat
func (s *SQLiteStorage) ListTasksByProject(ctx context.Context, projectID string) ([]*types.Task, error) {
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? "+taskOrderBy, projectID)
}

// UpdateTask applies a partial update and returns the updated record, or
// (nil, nil) when the task does not exist. Cross-field consistency of the
// update (parent/project agreement) is validated by the tree manager.
func (s *SQLiteStorage) UpdateTask(ctx context.Context, id string, update *types.TaskUpdate) (*types.Task, error) {
	if update == nil || update.IsEmpty() {
		return s.GetTask(ctx, id)
	}

	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}

	if update.Title != nil {
		if len(*update.Title) == 0 || len(*update.Title) > 500 {
			return nil, fmt.Errorf("%w: title must be 1-500 characters", types.ErrInvalidArgument)
		}
		setClauses = append(setClauses, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		setClauses = append(setClauses, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Completed != nil {
		setClauses = append(setClauses, "completed = ?")
		args = append(args, *update.Completed)
	}
	if update.Priority != nil {
		if !update.Priority.IsValid() {
			return nil, fmt.Errorf("%w: invalid priority: %s", types.ErrInvalidArgument, *update.Priority)
		}
		setClauses = append(setClauses, "priority = ?")
		args = append(args, string(*update.Priority))
	}
	if update.Position != nil {
		setClauses = append(setClauses, "position = ?")
		args = append(args, *update.Position)
	}
	if update.ProjectID != nil {
		setClauses = append(setClauses, "project_id = ?")
		args = append(args, *update.ProjectID)
	}
	if update.ClearParent {
		setClauses = append(setClauses, "parent_id = NULL")
	} else if update.ParentID != nil {
		setClauses = append(setClauses, "parent_id = ?")
		args = append(args, *update.ParentID)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(setClauses, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, storeErr("failed to update task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeErr("failed to read rows affected", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return s.GetTask(ctx, id)
}

// DeleteTaskTree removes a task and its entire descendant subtree in a
// single statement, so a crash can never leave orphaned descendants.
// Returns the number of rows removed (0 when the root id is absent).
func (s *SQLiteStorage) DeleteTaskTree(ctx context.Context, id string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM tasks WHERE id = ?
			UNION ALL
			SELECT t.id FROM tasks t JOIN subtree s ON t.parent_id = s.id
		)
		DELETE FROM tasks WHERE id IN (SELECT id FROM subtree)
	`, id)
	if err != nil {
		return 0, storeErr("failed to delete task tree", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("failed to read rows affected", err)
	}
	return int(affected), nil
}

// SearchTasks finds tasks whose title or description contains the query,
// case-insensitive, with optional filters.
func (s *SQLiteStorage) SearchTasks(ctx context.Context, query string, filter types.TaskFilter) ([]*types.Task, error) {
	whereClauses := []string{}
	args := []interface{}{}

	if query != "" {
		whereClauses = append(whereClauses, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	if filter.ProjectID != nil {
		whereClauses = append(whereClauses, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Completed != nil {
		whereClauses = append(whereClauses, "completed = ?")
		args = append(args, *filter.Completed)
	}
	if filter.Priority != nil {
		whereClauses = append(whereClauses, "priority = ?")
		args = append(args, string(*filter.Priority))
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}
	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return s.queryTasks(ctx, fmt.Sprintf(
		"SELECT %s FROM tasks %s %s%s", taskColumns, whereSQL, taskOrderBy, limitSQL), args...)
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*types.Task, error) {
	var task types.Task
	var parentID sql.NullString
	var position sql.NullInt64
	var priority string

	err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Completed,
		&parentID, &task.ProjectID, &priority, &position,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		task.ParentID = parentID.String
	}
	if position.Valid {
		pos := int(position.Int64)
		task.Position = &pos
	}
	task.Priority = types.TaskPriority(priority)

	return &task, nil
}

func (s *SQLiteStorage) queryTasks(ctx context.Context, querySQL string, args ...interface{}) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, storeErr("failed to query tasks", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, storeErr("failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate tasks", err)
	}

	return tasks, nil
}
