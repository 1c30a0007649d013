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

// CreateSession inserts a new discovery session. The (project, stage)
// pair is unique; a second insert for the same pair is a conflict rather
// than a silent replacement.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *types.DiscoverySession) error {
	if !session.Stage.IsValid() {
		return fmt.Errorf("%w: invalid stage: %s", types.ErrInvalidArgument, session.Stage)
	}
	if session.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", types.ErrInvalidArgument)
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Responses == nil {
		session.Responses = map[string]string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO discovery_sessions (id, project_id, domain, stage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.ID, session.ProjectID, session.Domain, string(session.Stage),
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("session already exists for project %s stage %s: %w",
				session.ProjectID, session.Stage, types.ErrConflict)
		}
		return storeErr("failed to insert discovery session", err)
	}

	return nil
}

// GetSessionByProjectStage looks up the session for one (project, stage)
// pair, responses included. Returns (nil, nil) when absent. This is the
// continuation lookup; sessions are never fetched by id.
func (s *SQLiteStorage) GetSessionByProjectStage(ctx context.Context, projectID string, stage types.Stage) (*types.DiscoverySession, error) {
	var session types.DiscoverySession
	var stageStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, domain, stage, created_at, updated_at
		FROM discovery_sessions
		WHERE project_id = ? AND stage = ?
	`, projectID, string(stage)).Scan(&session.ID, &session.ProjectID,
		&session.Domain, &stageStr, &session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to get discovery session", err)
	}
	session.Stage = types.Stage(stageStr)

	if err := s.loadResponses(ctx, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// ListSessionsByProject returns all of a project's sessions in canonical
// stage order, responses included.
func (s *SQLiteStorage) ListSessionsByProject(ctx context.Context, projectID string) ([]*types.DiscoverySession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, domain, stage, created_at, updated_at
		FROM discovery_sessions
		WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, storeErr("failed to query discovery sessions", err)
	}
	defer rows.Close()

	var sessions []*types.DiscoverySession
	for rows.Next() {
		var session types.DiscoverySession
		var stageStr string
		if err := rows.Scan(&session.ID, &session.ProjectID, &session.Domain,
			&stageStr, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, storeErr("failed to scan discovery session", err)
		}
		session.Stage = types.Stage(stageStr)
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate discovery sessions", err)
	}

	for _, session := range sessions {
		if err := s.loadResponses(ctx, session); err != nil {
			return nil, err
		}
	}

	// Stage order, not insertion order: callers walk the elicitation
	// history front to back.
	sortSessionsByStage(sessions)

	return sessions, nil
}

// AddSessionResponse records one response under a fresh key and bumps the
// session's updated_at. Each response is its own row, so concurrent
// recordings against the same session never overwrite each other.
func (s *SQLiteStorage) AddSessionResponse(ctx context.Context, sessionID, key, response string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO discovery_responses (session_id, key, response, created_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, key, response, time.Now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("response key %s already recorded: %w", key, types.ErrConflict)
		}
		return storeErr("failed to insert response", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE discovery_sessions SET updated_at = ? WHERE id = ?", time.Now(), sessionID)
	if err != nil {
		return storeErr("failed to touch session", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("failed to commit response", err)
	}
	return nil
}

func (s *SQLiteStorage) loadResponses(ctx context.Context, session *types.DiscoverySession) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, response FROM discovery_responses WHERE session_id = ?", session.ID)
	if err != nil {
		return storeErr("failed to query responses", err)
	}
	defer rows.Close()

	responses := map[string]string{}
	for rows.Next() {
		var key, response string
		if err := rows.Scan(&key, &response); err != nil {
			return storeErr("failed to scan response", err)
		}
		responses[key] = response
	}
	if err := rows.Err(); err != nil {
		return storeErr("failed to iterate responses", err)
	}

	session.Responses = responses
	return nil
}

func sortSessionsByStage(sessions []*types.DiscoverySession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Stage.Index() < sessions[j].Stage.Index()
	})
}
