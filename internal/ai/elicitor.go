// Package ai implements the requirement elicitor on top of the Anthropic
// API: stage question generation, follow-up probes, stage advancement
// judgment, and synthesis of structured requirement drafts from free-text
// discovery responses.
package ai

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/planfold/reqtrack/internal/discovery"
	"github.com/planfold/reqtrack/internal/types"
)

// Model selection is tiered by task complexity: the default model handles
// question generation and requirement synthesis, the simple model handles
// advancement judgments and follow-up probes, which need far less
// reasoning and cost a fraction per call.
//
// Environment variable overrides:
// - REQTRACK_MODEL_DEFAULT: Override default model (default: Sonnet)
// - REQTRACK_MODEL_SIMPLE: Override model for simple tasks (default: Haiku)
const (
	// ModelSonnet is the high-end model for complex reasoning tasks
	ModelSonnet = "claude-sonnet-4-5-20250929"

	// ModelHaiku is the cost-efficient model for simple tasks
	ModelHaiku = "claude-3-5-haiku-20241022"
)

// GetDefaultModel returns the default model, checking REQTRACK_MODEL_DEFAULT first
func GetDefaultModel() string {
	if model := os.Getenv("REQTRACK_MODEL_DEFAULT"); model != "" {
		return model
	}
	return ModelSonnet
}

// GetSimpleTaskModel returns the model for simple tasks, checking REQTRACK_MODEL_SIMPLE first
func GetSimpleTaskModel() string {
	if model := os.Getenv("REQTRACK_MODEL_SIMPLE"); model != "" {
		return model
	}
	return ModelHaiku
}

// AnthropicElicitor generates elicitation content through the Anthropic
// API, with retry, circuit breaking, and throughput limits around every
// call.
type AnthropicElicitor struct {
	client         *anthropic.Client
	model          string
	simpleModel    string
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
	limiter        *rate.Limiter
}

var _ discovery.Elicitor = (*AnthropicElicitor)(nil)

// Config holds elicitor configuration
type Config struct {
	APIKey      string // Anthropic API key (if empty, reads from ANTHROPIC_API_KEY env var)
	Model       string // Model for complex tasks (default: GetDefaultModel())
	SimpleModel string // Model for advancement/follow-up calls (default: GetSimpleTaskModel())
	Retry       RetryConfig
}

// NewAnthropicElicitor creates an elicitor backed by the Anthropic API
func NewAnthropicElicitor(cfg *Config) (*AnthropicElicitor, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}
	simpleModel := cfg.SimpleModel
	if simpleModel == "" {
		simpleModel = GetSimpleTaskModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var circuitBreaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		circuitBreaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	var concurrencySem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	var limiter *rate.Limiter
	if retry.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(retry.RequestsPerSecond), 1)
	}

	return &AnthropicElicitor{
		client:         &client,
		model:          model,
		simpleModel:    simpleModel,
		retry:          retry,
		circuitBreaker: circuitBreaker,
		concurrencySem: concurrencySem,
		limiter:        limiter,
	}, nil
}

// complete sends a single-turn prompt and returns the concatenated text blocks
func (e *AnthropicElicitor) complete(ctx context.Context, operation, model, prompt string) (string, error) {
	var response *anthropic.Message
	err := e.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := e.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// GenerateQuestions produces the elicitation questions for a stage
func (e *AnthropicElicitor) GenerateQuestions(ctx context.Context, stage types.Stage, domain string, previous map[string]string) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, `You are a requirements analyst guiding a discovery conversation for a software project.

Project domain: %s
Current discovery stage: %s (%s)

Produce 3-5 focused questions for this stage as a numbered list. Ask about concrete specifics, not generalities. Do not include any preamble or closing text.`,
		domain, stage, stageFocus(stage))

	if len(previous) > 0 {
		prompt.WriteString("\n\nAnswers gathered so far in this stage:\n")
		prompt.WriteString(formatResponses(previous))
		prompt.WriteString("\nAvoid re-asking anything already answered.")
	}

	return e.complete(ctx, "generate questions", e.model, prompt.String())
}

// GenerateSuggestions produces example answers for a stage
func (e *AnthropicElicitor) GenerateSuggestions(ctx context.Context, stage types.Stage, domain string) (string, error) {
	prompt := fmt.Sprintf(`You are a requirements analyst. For a software project in the domain "%s", currently in the %s discovery stage (%s), give 2-3 brief example answers a stakeholder might provide, as a bulleted list. No preamble.`,
		domain, stage, stageFocus(stage))
	return e.complete(ctx, "generate suggestions", e.model, prompt)
}

// GenerateFollowUp produces a follow-up probe for the latest response
func (e *AnthropicElicitor) GenerateFollowUp(ctx context.Context, stage types.Stage, domain, response string, previous map[string]string) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, `You are a requirements analyst in the %s discovery stage (%s) for a project in the domain "%s".

The stakeholder just answered:
%s

`, stage, stageFocus(stage), domain, response)
	if len(previous) > 0 {
		prompt.WriteString("Earlier answers in this stage:\n")
		prompt.WriteString(formatResponses(previous))
		prompt.WriteString("\n")
	}
	prompt.WriteString("Ask ONE short follow-up question that digs into the most important gap or ambiguity in the latest answer. Output only the question.")

	return e.complete(ctx, "generate follow-up", e.simpleModel, prompt.String())
}

// advanceJudgment is the expected shape of the advancement response
type advanceJudgment struct {
	Advance   bool   `json:"advance"`
	Reasoning string `json:"reasoning"`
}

// ShouldAdvance judges whether the stage has gathered enough to move on
func (e *AnthropicElicitor) ShouldAdvance(ctx context.Context, stage types.Stage, domain, response string, previous map[string]string) (bool, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, `You are judging whether a requirements discovery stage is complete.

Stage: %s (%s)
Project domain: %s

Latest answer:
%s

`, stage, stageFocus(stage), domain, response)
	if len(previous) > 0 {
		fmt.Fprintf(&prompt, "Earlier answers (%d):\n%s\n", len(previous), formatResponses(previous))
	}
	prompt.WriteString(`Has this stage gathered enough substance to move to the next stage? Respond with JSON only:
{"advance": true or false, "reasoning": "one sentence"}`)

	text, err := e.complete(ctx, "advancement judgment", e.simpleModel, prompt.String())
	if err != nil {
		return false, err
	}

	result := Parse[advanceJudgment](text, "advancement judgment")
	if !result.Success {
		return false, fmt.Errorf("failed to parse advancement judgment: %s (response: %s)",
			result.Error, truncateString(text, 200))
	}
	return result.Data.Advance, nil
}

// draftJSON is the wire shape of a synthesized requirement draft
type draftJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
}

// ParseRequirements derives structured requirement drafts from combined
// free-text discovery responses. Invalid enum values coming back from the
// model are normalized rather than rejected.
func (e *AnthropicElicitor) ParseRequirements(ctx context.Context, projectID, text string) ([]types.RequirementDraft, error) {
	prompt := fmt.Sprintf(`You are a requirements analyst. Below are the collected answers from a requirements discovery conversation, grouped by stage. Synthesize them into discrete, testable requirements.

%s

Respond with a JSON array only. Each element:
{"title": "short imperative title", "description": "one or two sentences", "type": "functional|technical|non-functional|user_story", "priority": "low|medium|high|critical"}`,
		text)

	responseText, err := e.complete(ctx, "requirement synthesis", e.model, prompt)
	if err != nil {
		return nil, err
	}

	result := Parse[[]draftJSON](responseText, "requirement synthesis")
	if !result.Success {
		return nil, fmt.Errorf("failed to parse synthesized requirements: %s (response: %s)",
			result.Error, truncateString(responseText, 200))
	}

	drafts := make([]types.RequirementDraft, 0, len(result.Data))
	for _, d := range result.Data {
		if strings.TrimSpace(d.Title) == "" {
			continue
		}
		draft := types.RequirementDraft{
			Title:       strings.TrimSpace(d.Title),
			Description: strings.TrimSpace(d.Description),
			Type:        types.RequirementType(d.Type),
			Priority:    types.RequirementPriority(d.Priority),
		}
		if !draft.Type.IsValid() {
			draft.Type = types.ReqTypeFunctional
		}
		if !draft.Priority.IsValid() {
			draft.Priority = types.ReqPriorityMedium
		}
		drafts = append(drafts, draft)
	}

	fmt.Printf("Synthesized %d requirement drafts for project %s\n", len(drafts), projectID)
	return drafts, nil
}

// HealthCheck reports whether the elicitor can take traffic. A single
// cheap API round trip verifies connectivity when the circuit is closed.
func (e *AnthropicElicitor) HealthCheck(ctx context.Context) error {
	if e.circuitBreaker != nil {
		state, failures, _ := e.circuitBreaker.GetMetrics()
		if state == CircuitOpen {
			return fmt.Errorf("circuit breaker is open after %d failures", failures)
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := e.client.Messages.New(probeCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.simpleModel),
		MaxTokens: 8,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("anthropic API unreachable: %w", err)
	}
	return nil
}

// stageFocus names what each stage is trying to learn, for prompt context
func stageFocus(stage types.Stage) string {
	switch stage {
	case types.StageInitial:
		return "project purpose, problem statement, and success criteria"
	case types.StageStakeholders:
		return "users, roles, and affected parties"
	case types.StageFeatures:
		return "concrete capabilities and workflows"
	case types.StageConstraints:
		return "technical, budget, timeline, and compliance limits"
	case types.StageQuality:
		return "performance, reliability, security, and usability targets"
	case types.StageFinalize:
		return "gaps, priorities, and confirmation of scope"
	default:
		return "requirements"
	}
}

// formatResponses renders gathered responses in a stable order
func formatResponses(responses map[string]string) string {
	keys := make([]string, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		fmt.Fprintf(&b, "%d. %s\n", i+1, responses[k])
	}
	return b.String()
}
