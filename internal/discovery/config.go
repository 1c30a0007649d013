package discovery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/planfold/reqtrack/internal/types"
	"gopkg.in/yaml.v3"
)

// ConfigFile represents the structure of .reqtrack/discovery.yaml, which
// lets a project override the built-in static question sets without
// touching code.
type ConfigFile struct {
	// AdvanceAfter overrides the response count at which the static
	// elicitor judges a stage complete (0 = keep default)
	AdvanceAfter int `yaml:"advance_after"`

	// Stages maps stage names to question/suggestion overrides. Stages
	// not listed keep their built-in questions.
	Stages map[string]StageQuestions `yaml:"stages"`
}

// LoadStaticElicitor builds a StaticElicitor from
// .reqtrack/discovery.yaml when present, or the built-in defaults when
// not. Unknown stage names in the file are an error rather than being
// silently ignored.
func LoadStaticElicitor(projectRoot string) (*StaticElicitor, error) {
	elicitor := NewStaticElicitor()

	configPath := filepath.Join(projectRoot, ".reqtrack", "discovery.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return elicitor, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	if cfg.AdvanceAfter > 0 {
		elicitor.advanceAfter = cfg.AdvanceAfter
	}
	for name, set := range cfg.Stages {
		stage := types.Stage(name)
		if !stage.IsValid() {
			return nil, fmt.Errorf("%w: unknown stage %q in %s", types.ErrInvalidArgument, name, configPath)
		}
		existing := elicitor.stages[stage]
		if len(set.Questions) > 0 {
			existing.Questions = set.Questions
		}
		if len(set.Suggestions) > 0 {
			existing.Suggestions = set.Suggestions
		}
		elicitor.stages[stage] = existing
	}

	return elicitor, nil
}
