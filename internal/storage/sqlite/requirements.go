package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planfold/reqtrack/internal/types"
)

const requirementColumns = "id, project_id, title, description, type, priority, status, created_at, updated_at"

// CreateRequirement inserts a requirement with its tags in one transaction
func (s *SQLiteStorage) CreateRequirement(ctx context.Context, req *types.Requirement) error {
	if req.Status == "" {
		req.Status = types.ReqStatusDraft
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO requirements (id, project_id, title, description, type, priority, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.ProjectID, req.Title, req.Description,
		string(req.Type), string(req.Priority), string(req.Status),
		req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return storeErr("failed to insert requirement", err)
	}

	for _, tag := range req.Tags {
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO requirement_tags (requirement_id, tag) VALUES (?, ?)
		`, req.ID, tag)
		if err != nil {
			return storeErr("failed to insert tag", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("failed to commit requirement", err)
	}
	return nil
}

// GetRequirement retrieves a requirement by ID with its tags.
// Returns (nil, nil) when absent.
func (s *SQLiteStorage) GetRequirement(ctx context.Context, id string) (*types.Requirement, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+requirementColumns+" FROM requirements WHERE id = ?", id)

	req, err := scanRequirement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to get requirement", err)
	}

	if err := s.loadTags(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListRequirementsByProject returns a project's requirements with tags
func (s *SQLiteStorage) ListRequirementsByProject(ctx context.Context, projectID string) ([]*types.Requirement, error) {
	reqs, err := s.queryRequirements(ctx,
		"SELECT "+requirementColumns+" FROM requirements WHERE project_id = ? ORDER BY created_at ASC", projectID)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		if err := s.loadTags(ctx, req); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

// UpdateRequirement applies a partial update and returns the updated
// record, or (nil, nil) when the requirement does not exist. Enum fields
// must hold valid values regardless of what the caller checked.
func (s *SQLiteStorage) UpdateRequirement(ctx context.Context, id string, update *types.RequirementUpdate) (*types.Requirement, error) {
	if update == nil {
		return s.GetRequirement(ctx, id)
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
	if update.Priority != nil {
		if !update.Priority.IsValid() {
			return nil, fmt.Errorf("%w: invalid priority: %s", types.ErrInvalidArgument, *update.Priority)
		}
		setClauses = append(setClauses, "priority = ?")
		args = append(args, string(*update.Priority))
	}
	if update.Status != nil {
		if !update.Status.IsValid() {
			return nil, fmt.Errorf("%w: invalid status: %s", types.ErrInvalidArgument, *update.Status)
		}
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*update.Status))
	}
	args = append(args, id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE requirements SET "+strings.Join(setClauses, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, storeErr("failed to update requirement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeErr("failed to read rows affected", err)
	}
	if affected == 0 {
		return nil, nil
	}

	// Replace the tag set when the update carries one
	if update.Tags != nil {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM requirement_tags WHERE requirement_id = ?", id); err != nil {
			return nil, storeErr("failed to clear tags", err)
		}
		for _, tag := range update.Tags {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO requirement_tags (requirement_id, tag) VALUES (?, ?)", id, tag); err != nil {
				return nil, storeErr("failed to insert tag", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("failed to commit requirement update", err)
	}

	return s.GetRequirement(ctx, id)
}

// DeleteRequirement removes a requirement; tags cascade via foreign key
func (s *SQLiteStorage) DeleteRequirement(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM requirements WHERE id = ?", id)
	if err != nil {
		return false, storeErr("failed to delete requirement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("failed to read rows affected", err)
	}
	return affected > 0, nil
}

// SearchRequirements finds requirements whose title or description
// contains the query, case-insensitive, optionally scoped to a project.
func (s *SQLiteStorage) SearchRequirements(ctx context.Context, query, projectID string) ([]*types.Requirement, error) {
	whereClauses := []string{}
	args := []interface{}{}

	if query != "" {
		whereClauses = append(whereClauses, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	if projectID != "" {
		whereClauses = append(whereClauses, "project_id = ?")
		args = append(args, projectID)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	reqs, err := s.queryRequirements(ctx, fmt.Sprintf(
		"SELECT %s FROM requirements %s ORDER BY created_at ASC", requirementColumns, whereSQL), args...)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		if err := s.loadTags(ctx, req); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

func (s *SQLiteStorage) loadTags(ctx context.Context, req *types.Requirement) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tag FROM requirement_tags WHERE requirement_id = ?", req.ID)
	if err != nil {
		return storeErr("failed to query tags", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return storeErr("failed to scan tag", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return storeErr("failed to iterate tags", err)
	}

	sort.Strings(tags)
	req.Tags = tags
	return nil
}

func scanRequirement(row rowScanner) (*types.Requirement, error) {
	var req types.Requirement
	var reqType, priority, status string

	err := row.Scan(&req.ID, &req.ProjectID, &req.Title, &req.Description,
		&reqType, &priority, &status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}

	req.Type = types.RequirementType(reqType)
	req.Priority = types.RequirementPriority(priority)
	req.Status = types.RequirementStatus(status)
	return &req, nil
}

func (s *SQLiteStorage) queryRequirements(ctx context.Context, querySQL string, args ...interface{}) ([]*types.Requirement, error) {
	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, storeErr("failed to query requirements", err)
	}
	defer rows.Close()

	var reqs []*types.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, storeErr("failed to scan requirement", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate requirements", err)
	}

	return reqs, nil
}
