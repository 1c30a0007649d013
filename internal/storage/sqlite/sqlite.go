package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/planfold/reqtrack/internal/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// storeErr wraps a driver failure so callers can branch with
// errors.Is(err, types.ErrStorageUnavailable). Missing rows never take
// this path; Get* methods return (nil, nil) for absence instead.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrStorageUnavailable, err)
}

// CreateProject creates a new project, generating an id when unset
func (s *SQLiteStorage) CreateProject(ctx context.Context, project *types.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, project.ID, project.Name, project.Description, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return storeErr("failed to insert project", err)
	}

	return nil
}

// GetProject retrieves a project by ID. Returns (nil, nil) when absent.
func (s *SQLiteStorage) GetProject(ctx context.Context, id string) (*types.Project, error) {
	var project types.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id).Scan(&project.ID, &project.Name, &project.Description,
		&project.CreatedAt, &project.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to get project", err)
	}

	return &project, nil
}

// ListProjects returns all projects ordered by creation time
func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, storeErr("failed to list projects", err)
	}
	defer rows.Close()

	var projects []*types.Project
	for rows.Next() {
		var project types.Project
		if err := rows.Scan(&project.ID, &project.Name, &project.Description,
			&project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, storeErr("failed to scan project", err)
		}
		projects = append(projects, &project)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate projects", err)
	}

	return projects, nil
}

// UpdateProject updates name and/or description. Returns (nil, nil) when
// the project does not exist.
func (s *SQLiteStorage) UpdateProject(ctx context.Context, id string, name, description *string) (*types.Project, error) {
	if name == nil && description == nil {
		return s.GetProject(ctx, id)
	}
	if name != nil {
		if len(*name) == 0 || len(*name) > 200 {
			return nil, fmt.Errorf("%w: name must be 1-200 characters", types.ErrInvalidArgument)
		}
	}

	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}
	if name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *name)
	}
	if description != nil {
		setClauses = append(setClauses, "description = ?")
		args = append(args, *description)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET "+strings.Join(setClauses, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, storeErr("failed to update project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeErr("failed to read rows affected", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return s.GetProject(ctx, id)
}

// DeleteProject removes a project and everything it owns: tasks,
// requirements, technical requirements (with criteria and dependency
// edges), and discovery sessions. Foreign keys do the fan-out; the single
// DELETE statement keeps the cascade atomic.
func (s *SQLiteStorage) DeleteProject(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, storeErr("failed to delete project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("failed to read rows affected", err)
	}
	return affected > 0, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
