package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planfold/reqtrack/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show tracker status",
	Long:  `Display projects, task completion, requirement counts, and discovery progress.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== reqtrack status ==="))

		var projects []*types.Project
		if len(args) == 1 {
			p, err := store.GetProject(ctx, args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if p == nil {
				fmt.Fprintf(os.Stderr, "Error: project not found: %s\n", args[0])
				os.Exit(1)
			}
			projects = []*types.Project{p}
		} else {
			all, err := store.ListProjects(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			projects = all
		}

		if len(projects) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n\n", gray("No projects"))
			return
		}

		for _, p := range projects {
			printProjectStatus(cmd, p)
		}
	},
}

func printProjectStatus(cmd *cobra.Command, p *types.Project) {
	ctx := cmd.Context()

	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%s %s\n", yellow(p.Name), gray("("+p.ID+")"))

	tasks, err := store.ListTasksByProject(ctx, p.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	if len(tasks) > 0 {
		pct := float64(completed) / float64(len(tasks)) * 100
		fmt.Printf("  Tasks:        %s (%.0f%%)\n",
			green(fmt.Sprintf("%d/%d", completed, len(tasks))), pct)
	} else {
		fmt.Printf("  Tasks:        %s\n", gray("none"))
	}

	reqs, err := store.ListRequirementsByProject(ctx, p.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	techReqs, err := store.ListTechRequirementsByProject(ctx, p.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  Requirements: %d (%d technical)\n", len(reqs)+len(techReqs), len(techReqs))

	sessions, err := store.ListSessionsByProject(ctx, p.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	total := len(types.AllStages())
	if len(sessions) == 0 {
		fmt.Printf("  Discovery:    %s\n", gray("not started"))
	} else {
		last := sessions[len(sessions)-1]
		fmt.Printf("  Discovery:    stage %d/%d (%s)\n", last.Stage.Index()+1, total, last.Stage)
	}

	fmt.Println()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
