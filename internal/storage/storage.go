// Package storage defines the persistence contract shared by the task
// tree manager, the discovery state machine, and the requirement model.
package storage

import (
	"context"

	"github.com/planfold/reqtrack/internal/storage/sqlite"
	"github.com/planfold/reqtrack/internal/types"
)

// Storage defines the interface for entity storage backends.
//
// Get* methods return (nil, nil) when the row is absent; a non-nil error
// always wraps types.ErrStorageUnavailable. Mapping absence to
// types.ErrNotFound is the callers' concern, so a missing row is never
// confused with a persistence failure.
type Storage interface {
	// Projects
	CreateProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, id string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]*types.Project, error)
	UpdateProject(ctx context.Context, id string, name, description *string) (*types.Project, error)
	// DeleteProject cascades to all owned tasks, requirements, technical
	// requirements (criteria and dependency edges), and discovery sessions.
	DeleteProject(ctx context.Context, id string) (bool, error)

	// Tasks. Child id lists are derived by query from the parent_id
	// pointers; no denormalized child array is ever persisted.
	CreateTask(ctx context.Context, task *types.Task) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasksByParent(ctx context.Context, parentID string) ([]*types.Task, error)
	ListRootTasks(ctx context.Context) ([]*types.Task, error)
	ListRootTasksByProject(ctx context.Context, projectID string) ([]*types.Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]*types.Task, error)
	UpdateTask(ctx context.Context, id string, update *types.TaskUpdate) (*types.Task, error)
	// DeleteTaskTree removes the task and its entire descendant subtree in
	// one transaction, returning the number of rows removed (0 if absent).
	DeleteTaskTree(ctx context.Context, id string) (int, error)
	SearchTasks(ctx context.Context, query string, filter types.TaskFilter) ([]*types.Task, error)

	// Requirements
	CreateRequirement(ctx context.Context, req *types.Requirement) error
	GetRequirement(ctx context.Context, id string) (*types.Requirement, error)
	ListRequirementsByProject(ctx context.Context, projectID string) ([]*types.Requirement, error)
	UpdateRequirement(ctx context.Context, id string, update *types.RequirementUpdate) (*types.Requirement, error)
	DeleteRequirement(ctx context.Context, id string) (bool, error)
	SearchRequirements(ctx context.Context, query, projectID string) ([]*types.Requirement, error)

	// Technical requirements. CreateTechRequirement assigns the next
	// monotonic unique id (e.g. "TR-004") from the per-store sequence
	// counter; numbers are never reused even after deletes.
	CreateTechRequirement(ctx context.Context, req *types.TechnicalRequirement) error
	GetTechRequirement(ctx context.Context, id string) (*types.TechnicalRequirement, error)
	GetTechRequirementByUniqueID(ctx context.Context, uniqueID string) (*types.TechnicalRequirement, error)
	ListTechRequirementsByProject(ctx context.Context, projectID string) ([]*types.TechnicalRequirement, error)
	UpdateTechRequirement(ctx context.Context, id string, update *types.TechRequirementUpdate) (*types.TechnicalRequirement, error)
	// DeleteTechRequirement cascades to acceptance criteria and to
	// dependency edges referencing the row on either side.
	DeleteTechRequirement(ctx context.Context, id string) (bool, error)

	// Dependency edges between technical requirements
	AddTechDependency(ctx context.Context, dependentID, dependencyID string) error
	RemoveTechDependency(ctx context.Context, dependentID, dependencyID string) (bool, error)
	GetTechDependencies(ctx context.Context, id string) ([]*types.TechnicalRequirement, error)
	GetTechDependents(ctx context.Context, id string) ([]*types.TechnicalRequirement, error)
	ListTechDependencyEdges(ctx context.Context, projectID string) ([]*types.TechDependency, error)

	// Discovery sessions. Continuation lookup is by (project, stage),
	// never by session id. Responses live in their own table keyed by
	// (session, key), so concurrent appends cannot lose data.
	CreateSession(ctx context.Context, session *types.DiscoverySession) error
	GetSessionByProjectStage(ctx context.Context, projectID string, stage types.Stage) (*types.DiscoverySession, error)
	ListSessionsByProject(ctx context.Context, projectID string) ([]*types.DiscoverySession, error)
	AddSessionResponse(ctx context.Context, sessionID, key, response string) error

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".reqtrack/reqtrack.db"
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".reqtrack/reqtrack.db",
	}
}

// NewStorage creates a new SQLite storage backend. Construction opens the
// database and initializes the schema; there is no implicit module-load
// side effect, callers own the instance lifetime.
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".reqtrack/reqtrack.db"
	}

	return sqlite.New(cfg.Path)
}
