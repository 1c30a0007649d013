package types

import "time"

// Stage is one step in the fixed ordered sequence of the requirement
// discovery state machine. The ordering is total and terminal at finalize.
type Stage string

const (
	StageInitial      Stage = "initial"
	StageStakeholders Stage = "stakeholders"
	StageFeatures     Stage = "features"
	StageConstraints  Stage = "constraints"
	StageQuality      Stage = "quality"
	StageFinalize     Stage = "finalize"
)

// stageOrder is the canonical ordering used by Next and StageIndex.
// Every stage value in the system must appear here exactly once.
var stageOrder = []Stage{
	StageInitial,
	StageStakeholders,
	StageFeatures,
	StageConstraints,
	StageQuality,
	StageFinalize,
}

// AllStages returns the canonical ordered stage sequence
func AllStages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// IsValid checks if the stage value is valid
func (s Stage) IsValid() bool {
	for _, stage := range stageOrder {
		if s == stage {
			return true
		}
	}
	return false
}

// Index returns the position of the stage in the canonical ordering,
// or -1 for an unknown stage.
func (s Stage) Index() int {
	for i, stage := range stageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// Next returns the immediate successor stage. ok is false when s is the
// terminal stage (or not a valid stage at all).
func (s Stage) Next() (next Stage, ok bool) {
	i := s.Index()
	if i < 0 || i == len(stageOrder)-1 {
		return "", false
	}
	return stageOrder[i+1], true
}

// DiscoverySession accumulates elicitation responses for one
// (project, stage) pair. Look-up for continuation purposes is always by
// that composite key, never by id; one session exists per visited stage,
// so prior stages' history is preserved.
type DiscoverySession struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	Domain    string            `json:"domain"`
	Stage     Stage             `json:"stage"`
	Responses map[string]string `json:"responses"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
