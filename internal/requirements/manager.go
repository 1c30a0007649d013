// Package requirements provides validated CRUD over requirement and
// technical-requirement records: enum checking before any mutation,
// monotonic unique id assignment, acceptance criteria ownership, and an
// acyclic dependency graph between technical requirements.
package requirements

import (
	"context"
	"fmt"

	"github.com/planfold/reqtrack/internal/storage"
	"github.com/planfold/reqtrack/internal/types"
)

// Manager owns requirement validation and the dependency graph invariants
type Manager struct {
	store storage.Storage
}

// NewManager creates a requirement manager
func NewManager(store storage.Storage) *Manager {
	return &Manager{store: store}
}

// CreateRequirementInput carries the fields for a new requirement
type CreateRequirementInput struct {
	ProjectID   string
	Title       string
	Description string
	Type        types.RequirementType
	Priority    types.RequirementPriority
	Status      types.RequirementStatus
	Tags        []string
}

// Create validates and persists a requirement. Enum violations are
// rejected before any write; the owning project must exist.
func (m *Manager) Create(ctx context.Context, in CreateRequirementInput) (*types.Requirement, error) {
	req := &types.Requirement{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Priority:    in.Priority,
		Status:      in.Status,
		Tags:        in.Tags,
	}
	if req.Status == "" {
		req.Status = types.ReqStatusDraft
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	project, err := m.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", in.ProjectID, types.ErrNotFound)
	}

	if err := m.store.CreateRequirement(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Get retrieves a requirement, failing with ErrNotFound when absent
func (m *Manager) Get(ctx context.Context, id string) (*types.Requirement, error) {
	req, err := m.store.GetRequirement(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("requirement %s: %w", id, types.ErrNotFound)
	}
	return req, nil
}

// ListByProject returns a project's requirements
func (m *Manager) ListByProject(ctx context.Context, projectID string) ([]*types.Requirement, error) {
	return m.store.ListRequirementsByProject(ctx, projectID)
}

// Search finds requirements matching the query text
func (m *Manager) Search(ctx context.Context, query, projectID string) ([]*types.Requirement, error) {
	return m.store.SearchRequirements(ctx, query, projectID)
}

// Update applies a partial update. Enum fields are validated before the
// write reaches the store, so bad input never causes a partial mutation.
func (m *Manager) Update(ctx context.Context, id string, update *types.RequirementUpdate) (*types.Requirement, error) {
	if update != nil {
		if update.Type != nil && !update.Type.IsValid() {
			return nil, fmt.Errorf("%w: invalid requirement type: %s", types.ErrInvalidArgument, *update.Type)
		}
		if update.Priority != nil && !update.Priority.IsValid() {
			return nil, fmt.Errorf("%w: invalid priority: %s", types.ErrInvalidArgument, *update.Priority)
		}
		if update.Status != nil && !update.Status.IsValid() {
			return nil, fmt.Errorf("%w: invalid status: %s", types.ErrInvalidArgument, *update.Status)
		}
	}

	updated, err := m.store.UpdateRequirement(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("requirement %s: %w", id, types.ErrNotFound)
	}
	return updated, nil
}

// Delete removes a requirement, failing with ErrNotFound when absent
func (m *Manager) Delete(ctx context.Context, id string) error {
	deleted, err := m.store.DeleteRequirement(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("requirement %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// CreateTechInput carries the fields for a new technical requirement
type CreateTechInput struct {
	ProjectID          string
	Title              string
	Description        string
	Type               types.RequirementType
	TechnicalStack     string
	Status             types.TechStatus
	AcceptanceCriteria []string
}

// CreateTech validates and persists a technical requirement, allocating
// its unique id and storing any acceptance criteria as owned rows.
func (m *Manager) CreateTech(ctx context.Context, in CreateTechInput) (*types.TechnicalRequirement, error) {
	req := &types.TechnicalRequirement{
		ProjectID:      in.ProjectID,
		Title:          in.Title,
		Description:    in.Description,
		Type:           in.Type,
		TechnicalStack: in.TechnicalStack,
		Status:         in.Status,
	}
	if req.Status == "" {
		req.Status = types.TechStatusUnassigned
	}
	if req.Type == "" {
		req.Type = types.ReqTypeTechnical
	}
	for _, desc := range in.AcceptanceCriteria {
		req.AcceptanceCriteria = append(req.AcceptanceCriteria, types.AcceptanceCriterion{Description: desc})
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	project, err := m.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", in.ProjectID, types.ErrNotFound)
	}

	if err := m.store.CreateTechRequirement(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// GetTech retrieves a technical requirement by id, falling back to the
// human-readable unique id ("TR-003") when the id does not match.
func (m *Manager) GetTech(ctx context.Context, id string) (*types.TechnicalRequirement, error) {
	req, err := m.store.GetTechRequirement(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req, err = m.store.GetTechRequirementByUniqueID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if req == nil {
		return nil, fmt.Errorf("technical requirement %s: %w", id, types.ErrNotFound)
	}
	return req, nil
}

// ListTechByProject returns a project's technical requirements
func (m *Manager) ListTechByProject(ctx context.Context, projectID string) ([]*types.TechnicalRequirement, error) {
	return m.store.ListTechRequirementsByProject(ctx, projectID)
}

// UpdateTech applies a partial update to a technical requirement
func (m *Manager) UpdateTech(ctx context.Context, id string, update *types.TechRequirementUpdate) (*types.TechnicalRequirement, error) {
	if update != nil {
		if update.Type != nil && !update.Type.IsValid() {
			return nil, fmt.Errorf("%w: invalid requirement type: %s", types.ErrInvalidArgument, *update.Type)
		}
		if update.Status != nil && !update.Status.IsValid() {
			return nil, fmt.Errorf("%w: invalid status: %s", types.ErrInvalidArgument, *update.Status)
		}
	}

	updated, err := m.store.UpdateTechRequirement(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("technical requirement %s: %w", id, types.ErrNotFound)
	}
	return updated, nil
}

// DeleteTech removes a technical requirement together with its acceptance
// criteria and every dependency edge touching it.
func (m *Manager) DeleteTech(ctx context.Context, id string) error {
	deleted, err := m.store.DeleteTechRequirement(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("technical requirement %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// AddDependency records that dependent requires dependency. Both
// endpoints must exist and share a project, self-loops are rejected, and
// an edge that would close a cycle is rejected with ErrInvalidArgument:
// consumers may treat the graph as a DAG.
func (m *Manager) AddDependency(ctx context.Context, dependentID, dependencyID string) error {
	if dependentID == dependencyID {
		return fmt.Errorf("%w: a technical requirement cannot depend on itself", types.ErrInvalidArgument)
	}

	dependent, err := m.store.GetTechRequirement(ctx, dependentID)
	if err != nil {
		return err
	}
	if dependent == nil {
		return fmt.Errorf("technical requirement %s: %w", dependentID, types.ErrNotFound)
	}
	dependency, err := m.store.GetTechRequirement(ctx, dependencyID)
	if err != nil {
		return err
	}
	if dependency == nil {
		return fmt.Errorf("technical requirement %s: %w", dependencyID, types.ErrNotFound)
	}
	if dependent.ProjectID != dependency.ProjectID {
		return fmt.Errorf("%w: %s and %s belong to different projects",
			types.ErrInvalidArgument, dependent.UniqueID, dependency.UniqueID)
	}

	cyclic, err := m.wouldCycle(ctx, dependentID, dependencyID)
	if err != nil {
		return err
	}
	if cyclic {
		return fmt.Errorf("%w: dependency %s -> %s would create a cycle",
			types.ErrInvalidArgument, dependent.UniqueID, dependency.UniqueID)
	}

	return m.store.AddTechDependency(ctx, dependentID, dependencyID)
}

// wouldCycle reports whether dependencyID already (transitively) depends
// on dependentID, which the new edge would close into a cycle.
// Depth-first over the outgoing dependency edges.
func (m *Manager) wouldCycle(ctx context.Context, dependentID, dependencyID string) (bool, error) {
	visited := map[string]bool{}
	stack := []string{dependencyID}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == dependentID {
			return true, nil
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		deps, err := m.store.GetTechDependencies(ctx, current)
		if err != nil {
			return false, err
		}
		for _, dep := range deps {
			if !visited[dep.ID] {
				stack = append(stack, dep.ID)
			}
		}
	}

	return false, nil
}

// RemoveDependency deletes a dependency edge, failing with ErrNotFound
// when the edge does not exist.
func (m *Manager) RemoveDependency(ctx context.Context, dependentID, dependencyID string) error {
	removed, err := m.store.RemoveTechDependency(ctx, dependentID, dependencyID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("dependency %s -> %s: %w", dependentID, dependencyID, types.ErrNotFound)
	}
	return nil
}

// Dependencies returns what the given technical requirement depends on
func (m *Manager) Dependencies(ctx context.Context, id string) ([]*types.TechnicalRequirement, error) {
	return m.store.GetTechDependencies(ctx, id)
}

// Dependents returns what depends on the given technical requirement
func (m *Manager) Dependents(ctx context.Context, id string) ([]*types.TechnicalRequirement, error) {
	return m.store.GetTechDependents(ctx, id)
}
