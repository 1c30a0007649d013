package types

import (
	"fmt"
	"time"
)

// Requirement is a natural-language-describable need attached to a project
type Requirement struct {
	ID          string              `json:"id"`
	ProjectID   string              `json:"project_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Type        RequirementType     `json:"type"`
	Priority    RequirementPriority `json:"priority"`
	Status      RequirementStatus   `json:"status"`
	Tags        []string            `json:"tags,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Validate checks if the requirement has valid field values
func (r *Requirement) Validate() error {
	if len(r.Title) == 0 {
		return fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if r.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidArgument)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: invalid requirement type: %s", ErrInvalidArgument, r.Type)
	}
	if !r.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority: %s", ErrInvalidArgument, r.Priority)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status: %s", ErrInvalidArgument, r.Status)
	}
	return nil
}

// RequirementType categorizes the kind of requirement
type RequirementType string

const (
	ReqTypeFunctional    RequirementType = "functional"
	ReqTypeTechnical     RequirementType = "technical"
	ReqTypeNonFunctional RequirementType = "non-functional"
	ReqTypeUserStory     RequirementType = "user_story"
)

// IsValid checks if the requirement type value is valid
func (t RequirementType) IsValid() bool {
	switch t {
	case ReqTypeFunctional, ReqTypeTechnical, ReqTypeNonFunctional, ReqTypeUserStory:
		return true
	}
	return false
}

// RequirementPriority is the four-level priority scale for requirements.
// critical is a first-class persisted value; it is never downgraded to
// high at the storage boundary.
type RequirementPriority string

const (
	ReqPriorityLow      RequirementPriority = "low"
	ReqPriorityMedium   RequirementPriority = "medium"
	ReqPriorityHigh     RequirementPriority = "high"
	ReqPriorityCritical RequirementPriority = "critical"
)

// IsValid checks if the requirement priority value is valid
func (p RequirementPriority) IsValid() bool {
	switch p {
	case ReqPriorityLow, ReqPriorityMedium, ReqPriorityHigh, ReqPriorityCritical:
		return true
	}
	return false
}

// RequirementStatus tracks a requirement through review
type RequirementStatus string

const (
	ReqStatusDraft       RequirementStatus = "draft"
	ReqStatusProposed    RequirementStatus = "proposed"
	ReqStatusApproved    RequirementStatus = "approved"
	ReqStatusRejected    RequirementStatus = "rejected"
	ReqStatusImplemented RequirementStatus = "implemented"
	ReqStatusVerified    RequirementStatus = "verified"
)

// IsValid checks if the requirement status value is valid
func (s RequirementStatus) IsValid() bool {
	switch s {
	case ReqStatusDraft, ReqStatusProposed, ReqStatusApproved,
		ReqStatusRejected, ReqStatusImplemented, ReqStatusVerified:
		return true
	}
	return false
}

// RequirementUpdate carries a partial update for a requirement.
// Nil fields are left untouched.
type RequirementUpdate struct {
	Title       *string
	Description *string
	Type        *RequirementType
	Priority    *RequirementPriority
	Status      *RequirementStatus
	Tags        []string // nil = untouched, empty = clear all
}

// RequirementDraft is a structured requirement extracted from free text by
// the elicitation collaborator, before it is persisted.
type RequirementDraft struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Type        RequirementType     `json:"type"`
	Priority    RequirementPriority `json:"priority"`
	Tags        []string            `json:"tags,omitempty"`
}

// TechnicalRequirement is an engineering-facing requirement with a
// human-readable sequence id (e.g. "TR-003"), a technology stack
// description, owned acceptance criteria, and dependency edges onto
// other technical requirements.
type TechnicalRequirement struct {
	ID                 string                `json:"id"`
	UniqueID           string                `json:"unique_id"`
	ProjectID          string                `json:"project_id"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	Type               RequirementType       `json:"type"`
	TechnicalStack     string                `json:"technical_stack,omitempty"`
	Status             TechStatus            `json:"status"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// Validate checks if the technical requirement has valid field values
func (r *TechnicalRequirement) Validate() error {
	if len(r.Title) == 0 {
		return fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if r.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidArgument)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: invalid requirement type: %s", ErrInvalidArgument, r.Type)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status: %s", ErrInvalidArgument, r.Status)
	}
	return nil
}

// TechStatus tracks assignment and delivery of a technical requirement
type TechStatus string

const (
	TechStatusUnassigned TechStatus = "unassigned"
	TechStatusAssigned   TechStatus = "assigned"
	TechStatusInProgress TechStatus = "in_progress"
	TechStatusReview     TechStatus = "review"
	TechStatusCompleted  TechStatus = "completed"
)

// IsValid checks if the technical requirement status value is valid
func (s TechStatus) IsValid() bool {
	switch s {
	case TechStatusUnassigned, TechStatusAssigned, TechStatusInProgress,
		TechStatusReview, TechStatusCompleted:
		return true
	}
	return false
}

// AcceptanceCriterion is one verifiable condition owned exclusively by a
// technical requirement; deleted together with its owner.
type AcceptanceCriterion struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// TechDependency is a directed edge between technical requirements:
// DependentID cannot be completed before DependencyID. No self-loops,
// and the edge set is kept acyclic at insertion time.
type TechDependency struct {
	DependentID  string    `json:"dependent_id"`
	DependencyID string    `json:"dependency_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TechRequirementUpdate carries a partial update for a technical requirement
type TechRequirementUpdate struct {
	Title          *string
	Description    *string
	Type           *RequirementType
	TechnicalStack *string
	Status         *TechStatus
}
