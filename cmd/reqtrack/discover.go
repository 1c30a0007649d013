package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planfold/reqtrack/internal/ai"
	"github.com/planfold/reqtrack/internal/discovery"
	"github.com/planfold/reqtrack/internal/types"
)

var (
	discoverDomain string
	discoverStage  string
	discoverStatic bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover <project-id>",
	Short: "Run the staged requirement discovery conversation",
	Long: `Run an interactive requirement discovery conversation for a project.

Discovery moves through six fixed stages: initial, stakeholders,
features, constraints, quality, and finalize. Each answer is recorded
against the current stage's session; the collaborator decides when a
stage has gathered enough to advance. Re-running discover resumes where
the project left off.

With ANTHROPIC_API_KEY set, questions and advancement judgments come
from the API. Without it (or with --static), a built-in question set is
used and stages advance after a fixed number of answers. Question sets
can be customized in .reqtrack/discovery.yaml.

Commands inside the conversation:
  skip      advance to the next stage without recording
  status    show per-stage progress
  exit      leave the conversation (progress is saved)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		projectID := args[0]

		stage := types.Stage(discoverStage)
		if discoverStage == "" {
			stage = resumeStage(ctx, projectID)
		}

		machine := discovery.NewMachine(store, buildElicitor())
		if err := runDiscoverLoop(ctx, machine, projectID, stage); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <project-id>",
	Short: "Synthesize requirements from recorded discovery responses",
	Long: `Derive structured requirements from everything gathered across the
project's discovery sessions and persist them as drafts.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		machine := discovery.NewMachine(store, buildElicitor())

		reqs, err := machine.SynthesizeRequirements(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s Synthesized %d requirement(s)\n\n", green("✓"), len(reqs))
		for _, r := range reqs {
			printRequirementLine(r)
		}
		fmt.Println()
	},
}

// buildElicitor picks the Anthropic-backed elicitor when an API key is
// available and not overridden, falling back to the static question sets
// (with any .reqtrack/discovery.yaml customization applied).
func buildElicitor() discovery.Elicitor {
	if !discoverStatic && os.Getenv("ANTHROPIC_API_KEY") != "" {
		elicitor, err := ai.NewAnthropicElicitor(&ai.Config{})
		if err == nil {
			return elicitor
		}
		fmt.Fprintf(os.Stderr, "warning: AI elicitor unavailable, using static questions: %v\n", err)
	}

	cwd, err := os.Getwd()
	if err == nil {
		elicitor, err := discovery.LoadStaticElicitor(cwd)
		if err == nil {
			return elicitor
		}
		fmt.Fprintf(os.Stderr, "warning: ignoring .reqtrack/discovery.yaml: %v\n", err)
	}
	return discovery.NewStaticElicitor()
}

// resumeStage finds the furthest stage with an existing session, so a
// re-run continues the conversation instead of restarting it.
func resumeStage(ctx context.Context, projectID string) types.Stage {
	sessions, err := store.ListSessionsByProject(ctx, projectID)
	if err != nil || len(sessions) == 0 {
		return types.StageInitial
	}
	// Sessions come back in canonical stage order
	return sessions[len(sessions)-1].Stage
}

func runDiscoverLoop(ctx context.Context, machine *discovery.Machine, projectID string, stage types.Stage) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            color.New(color.FgCyan).Sprint("> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("\n%s\n", cyan("=== Requirement Discovery ==="))
	fmt.Printf("%s\n\n", gray("Answer freely. Type 'skip' to move on, 'status' for progress, 'exit' to leave."))

	begin, err := machine.BeginOrResume(ctx, projectID, discoverDomain, stage)
	if err != nil {
		return err
	}
	printStageIntro(begin, stage)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Printf("\n%s Progress saved\n", green("✓"))
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "exit", "quit":
			fmt.Printf("%s Progress saved\n", green("✓"))
			return nil

		case "status":
			if err := printDiscoverStatus(ctx, projectID); err != nil {
				return err
			}
			continue

		case "skip":
			next, ok := stage.Next()
			if !ok {
				fmt.Printf("%s Already at the final stage\n", yellow("!"))
				continue
			}
			stage = next
			begin, err = machine.BeginOrResume(ctx, projectID, discoverDomain, stage)
			if err != nil {
				return err
			}
			printStageIntro(begin, stage)
			continue
		}

		result, err := machine.RecordResponse(ctx, projectID, stage, discoverDomain, line)
		if err != nil {
			return err
		}

		if result.Advance {
			if !result.HasNext {
				fmt.Printf("\n%s Discovery complete. Run 'reqtrack synthesize %s' to derive requirements.\n\n",
					green("✓"), projectID)
				return nil
			}
			fmt.Printf("\n%s Stage %s complete\n", green("✓"), stage)
			stage = result.NextStage
			begin, err = machine.BeginOrResume(ctx, projectID, discoverDomain, stage)
			if err != nil {
				return err
			}
			printStageIntro(begin, stage)
			continue
		}

		if result.FollowUp != "" {
			fmt.Printf("\n%s\n\n", result.FollowUp)
		}
	}
}

func printStageIntro(begin *discovery.BeginResult, stage types.Stage) {
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%s %s\n\n", yellow("Stage:"), stage)
	fmt.Println(begin.Questions)
	if begin.Suggestions != "" {
		fmt.Printf("\n%s\n%s\n", gray("For example:"), gray(begin.Suggestions))
	}
	fmt.Println()
}

func printDiscoverStatus(ctx context.Context, projectID string) error {
	sessions, err := store.ListSessionsByProject(ctx, projectID)
	if err != nil {
		return err
	}

	visited := make(map[types.Stage]*types.DiscoverySession, len(sessions))
	for _, s := range sessions {
		visited[s.Stage] = s
	}

	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Println()
	for _, stage := range types.AllStages() {
		if s, ok := visited[stage]; ok {
			fmt.Printf("  %s %-13s %d response(s)\n", green("●"), stage, len(s.Responses))
		} else {
			fmt.Printf("  %s %-13s %s\n", gray("○"), stage, gray("not started"))
		}
	}
	fmt.Println()
	return nil
}

func init() {
	discoverCmd.Flags().StringVar(&discoverDomain, "domain", "", "Project domain hint for question generation")
	discoverCmd.Flags().StringVar(&discoverStage, "stage", "", "Start at a specific stage instead of resuming")
	discoverCmd.Flags().BoolVar(&discoverStatic, "static", false, "Use built-in questions even when an API key is set")
	synthesizeCmd.Flags().BoolVar(&discoverStatic, "static", false, "Use the static parser even when an API key is set")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(synthesizeCmd)
}
