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

// techSequencePrefix keys the sequence_counters row for technical
// requirement unique ids ("TR-001", "TR-002", ...).
const techSequencePrefix = "TR"

const techColumns = "id, unique_id, project_id, title, description, type, technical_stack, status, created_at, updated_at"

// CreateTechRequirement persists a technical requirement, allocating the
// next monotonic unique id and inserting any supplied acceptance criteria
// in the same transaction.
func (s *SQLiteStorage) CreateTechRequirement(ctx context.Context, req *types.TechnicalRequirement) error {
	if req.Status == "" {
		req.Status = types.TechStatusUnassigned
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	// Acquire a dedicated connection: the counter bump and the insert must
	// share one transaction, and we need raw BEGIN IMMEDIATE because
	// database/sql's BeginTx only supports DEFERRED mode on this driver.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return storeErr("failed to acquire connection", err)
	}
	defer conn.Close()

	// IMMEDIATE takes the write lock up front, serializing unique id
	// allocation across concurrent writers so numbers never collide.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return storeErr("failed to begin immediate transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if req.UniqueID == "" {
		// The counter is the sole authority: it only moves forward, so
		// deleted requirements leave gaps and numbers are never reused.
		var nextID int
		err = conn.QueryRowContext(ctx, `
			INSERT INTO sequence_counters (prefix, last_id) VALUES (?, 1)
			ON CONFLICT(prefix) DO UPDATE SET last_id = last_id + 1
			RETURNING last_id
		`, techSequencePrefix).Scan(&nextID)
		if err != nil {
			return storeErr("failed to allocate unique id", err)
		}
		req.UniqueID = fmt.Sprintf("%s-%03d", techSequencePrefix, nextID)
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO technical_requirements (id, unique_id, project_id, title, description, type, technical_stack, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.UniqueID, req.ProjectID, req.Title, req.Description,
		string(req.Type), req.TechnicalStack, string(req.Status),
		req.CreatedAt, req.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: technical_requirements.unique_id") {
			return fmt.Errorf("duplicate unique id %s: %w", req.UniqueID, types.ErrConflict)
		}
		return storeErr("failed to insert technical requirement", err)
	}

	for i := range req.AcceptanceCriteria {
		if req.AcceptanceCriteria[i].ID == "" {
			req.AcceptanceCriteria[i].ID = uuid.NewString()
		}
		_, err = conn.ExecContext(ctx, `
			INSERT INTO acceptance_criteria (id, tech_requirement_id, description, position)
			VALUES (?, ?, ?, ?)
		`, req.AcceptanceCriteria[i].ID, req.ID, req.AcceptanceCriteria[i].Description, i)
		if err != nil {
			return storeErr("failed to insert acceptance criterion", err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return storeErr("failed to commit technical requirement", err)
	}
	committed = true

	return nil
}

// GetTechRequirement retrieves a technical requirement by ID with its
// acceptance criteria in order. Returns (nil, nil) when absent.
func (s *SQLiteStorage) GetTechRequirement(ctx context.Context, id string) (*types.TechnicalRequirement, error) {
	return s.getTechRequirementWhere(ctx, "id = ?", id)
}

// GetTechRequirementByUniqueID retrieves by the human-readable sequence
// code (e.g. "TR-003"). Returns (nil, nil) when absent.
func (s *SQLiteStorage) GetTechRequirementByUniqueID(ctx context.Context, uniqueID string) (*types.TechnicalRequirement, error) {
	return s.getTechRequirementWhere(ctx, "unique_id = ?", uniqueID)
}

func (s *SQLiteStorage) getTechRequirementWhere(ctx context.Context, where string, arg interface{}) (*types.TechnicalRequirement, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+techColumns+" FROM technical_requirements WHERE "+where, arg)

	req, err := scanTechRequirement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to get technical requirement", err)
	}

	if err := s.loadCriteria(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListTechRequirementsByProject returns a project's technical requirements
// in unique id order, criteria included.
func (s *SQLiteStorage) ListTechRequirementsByProject(ctx context.Context, projectID string) ([]*types.TechnicalRequirement, error) {
	reqs, err := s.queryTechRequirements(ctx,
		"SELECT "+techColumns+" FROM technical_requirements WHERE project_id = ? ORDER BY unique_id ASC", projectID)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		if err := s.loadCriteria(ctx, req); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

// UpdateTechRequirement applies a partial update and returns the updated
// record, or (nil, nil) when absent. unique_id is immutable.
func (s *SQLiteStorage) UpdateTechRequirement(ctx context.Context, id string, update *types.TechRequirementUpdate) (*types.TechnicalRequirement, error) {
	if update == nil {
		return s.GetTechRequirement(ctx, id)
	}

	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}

	if update.Title != nil {
		if len(*update.Title) == 0 {
			return nil, fmt.Errorf("%w: title is required", types.ErrInvalidArgument)
		}
		setClauses = append(setClauses, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		setClauses = append(setClauses, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Type != nil {
		if !update.Type.IsValid() {
			return nil, fmt.Errorf("%w: invalid requirement type: %s", types.ErrInvalidArgument, *update.Type)
		}
		setClauses = append(setClauses, "type = ?")
		args = append(args, string(*update.Type))
	}
	if update.TechnicalStack != nil {
		setClauses = append(setClauses, "technical_stack = ?")
		args = append(args, *update.TechnicalStack)
	}
	if update.Status != nil {
		if !update.Status.IsValid() {
			return nil, fmt.Errorf("%w: invalid status: %s", types.ErrInvalidArgument, *update.Status)
		}
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*update.Status))
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE technical_requirements SET "+strings.Join(setClauses, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, storeErr("failed to update technical requirement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeErr("failed to read rows affected", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return s.GetTechRequirement(ctx, id)
}

// DeleteTechRequirement removes a technical requirement. Acceptance
// criteria and dependency edges referencing it (from either side) cascade
// via foreign keys. The sequence counter is untouched, so its number is
// never reassigned.
func (s *SQLiteStorage) DeleteTechRequirement(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM technical_requirements WHERE id = ?", id)
	if err != nil {
		return false, storeErr("failed to delete technical requirement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("failed to read rows affected", err)
	}
	return affected > 0, nil
}

// AddTechDependency inserts a directed dependency edge. Existence of both
// endpoints and acyclicity are the requirement manager's concern; the
// store enforces the no-self-loop and no-duplicate constraints.
func (s *SQLiteStorage) AddTechDependency(ctx context.Context, dependentID, dependencyID string) error {
	if dependentID == dependencyID {
		return fmt.Errorf("%w: a technical requirement cannot depend on itself", types.ErrInvalidArgument)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tr_dependencies (dependent_id, dependency_id, created_at)
		VALUES (?, ?, ?)
	`, dependentID, dependencyID, time.Now())
	if err != nil {
		return storeErr("failed to insert dependency edge", err)
	}
	return nil
}

// RemoveTechDependency deletes a dependency edge, reporting whether it existed
func (s *SQLiteStorage) RemoveTechDependency(ctx context.Context, dependentID, dependencyID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM tr_dependencies WHERE dependent_id = ? AND dependency_id = ?",
		dependentID, dependencyID)
	if err != nil {
		return false, storeErr("failed to delete dependency edge", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("failed to read rows affected", err)
	}
	return affected > 0, nil
}

// GetTechDependencies returns the technical requirements the given one
// depends on (outgoing edges).
func (s *SQLiteStorage) GetTechDependencies(ctx context.Context, id string) ([]*types.TechnicalRequirement, error) {
	return s.queryTechRequirements(ctx, `
		SELECT t.id, t.unique_id, t.project_id, t.title, t.description, t.type, t.technical_stack, t.status, t.created_at, t.updated_at
		FROM technical_requirements t
		JOIN tr_dependencies d ON t.id = d.dependency_id
		WHERE d.dependent_id = ?
		ORDER BY t.unique_id ASC
	`, id)
}

// GetTechDependents returns the technical requirements that depend on the
// given one (incoming edges).
func (s *SQLiteStorage) GetTechDependents(ctx context.Context, id string) ([]*types.TechnicalRequirement, error) {
	return s.queryTechRequirements(ctx, `
		SELECT t.id, t.unique_id, t.project_id, t.title, t.description, t.type, t.technical_stack, t.status, t.created_at, t.updated_at
		FROM technical_requirements t
		JOIN tr_dependencies d ON t.id = d.dependent_id
		WHERE d.dependency_id = ?
		ORDER BY t.unique_id ASC
	`, id)
}

// ListTechDependencyEdges returns every dependency edge within a project
func (s *SQLiteStorage) ListTechDependencyEdges(ctx context.Context, projectID string) ([]*types.TechDependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.dependent_id, d.dependency_id, d.created_at
		FROM tr_dependencies d
		JOIN technical_requirements t ON t.id = d.dependent_id
		WHERE t.project_id = ?
	`, projectID)
	if err != nil {
		return nil, storeErr("failed to query dependency edges", err)
	}
	defer rows.Close()

	var edges []*types.TechDependency
	for rows.Next() {
		var edge types.TechDependency
		if err := rows.Scan(&edge.DependentID, &edge.DependencyID, &edge.CreatedAt); err != nil {
			return nil, storeErr("failed to scan dependency edge", err)
		}
		edges = append(edges, &edge)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate dependency edges", err)
	}

	return edges, nil
}

func (s *SQLiteStorage) loadCriteria(ctx context.Context, req *types.TechnicalRequirement) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description FROM acceptance_criteria
		WHERE tech_requirement_id = ?
		ORDER BY position ASC
	`, req.ID)
	if err != nil {
		return storeErr("failed to query acceptance criteria", err)
	}
	defer rows.Close()

	var criteria []types.AcceptanceCriterion
	for rows.Next() {
		var c types.AcceptanceCriterion
		if err := rows.Scan(&c.ID, &c.Description); err != nil {
			return storeErr("failed to scan acceptance criterion", err)
		}
		criteria = append(criteria, c)
	}
	if err := rows.Err(); err != nil {
		return storeErr("failed to iterate acceptance criteria", err)
	}

	req.AcceptanceCriteria = criteria
	return nil
}

func scanTechRequirement(row rowScanner) (*types.TechnicalRequirement, error) {
	var req types.TechnicalRequirement
	var reqType, status string

	err := row.Scan(&req.ID, &req.UniqueID, &req.ProjectID, &req.Title,
		&req.Description, &reqType, &req.TechnicalStack, &status,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}

	req.Type = types.RequirementType(reqType)
	req.Status = types.TechStatus(status)
	return &req, nil
}

func (s *SQLiteStorage) queryTechRequirements(ctx context.Context, querySQL string, args ...interface{}) ([]*types.TechnicalRequirement, error) {
	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, storeErr("failed to query technical requirements", err)
	}
	defer rows.Close()

	var reqs []*types.TechnicalRequirement
	for rows.Next() {
		req, err := scanTechRequirement(rows)
		if err != nil {
			return nil, storeErr("failed to scan technical requirement", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate technical requirements", err)
	}

	return reqs, nil
}
