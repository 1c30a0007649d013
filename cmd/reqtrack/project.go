package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planfold/reqtrack/internal/tasktree"
	"github.com/planfold/reqtrack/internal/types"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectDescription string

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		project := &types.Project{
			Name:        args[0],
			Description: projectDescription,
		}
		if err := store.CreateProject(cmd.Context(), project); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Created project %s (%s)\n", green("✓"), project.Name, cyan(project.ID))
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Run: func(cmd *cobra.Command, args []string) {
		projects, err := store.ListProjects(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(projects) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray("No projects. Create one with 'reqtrack project create <name>'"))
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		for _, p := range projects {
			fmt.Printf("%s  %s\n", cyan(p.ID), p.Name)
			if p.Description != "" {
				fmt.Printf("    %s\n", p.Description)
			}
		}
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project with its task and requirement counts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		project, err := store.GetProject(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if project == nil {
			fmt.Fprintf(os.Stderr, "Error: project not found: %s\n", args[0])
			os.Exit(1)
		}

		tasks, err := store.ListTasksByProject(ctx, project.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		reqs, err := store.ListRequirementsByProject(ctx, project.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		techReqs, err := store.ListTechRequirementsByProject(ctx, project.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n", cyan(project.Name))
		if project.Description != "" {
			fmt.Printf("%s\n", project.Description)
		}
		fmt.Printf("%s %s\n", gray("ID:"), project.ID)
		fmt.Printf("%s %s\n", gray("Created:"), project.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()

		completed := 0
		for _, t := range tasks {
			if t.Completed {
				completed++
			}
		}
		fmt.Printf("Tasks:                  %d (%d completed)\n", len(tasks), completed)
		fmt.Printf("Requirements:           %d\n", len(reqs))
		fmt.Printf("Technical requirements: %d\n", len(techReqs))
		fmt.Println()
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project and everything it owns",
	Long: `Delete a project together with all of its tasks (entire subtrees),
requirements, technical requirements, and discovery sessions.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		trees := tasktree.NewManager(store)
		if err := trees.DeleteProject(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Deleted project %s\n", green("✓"), args[0])
	},
}

func init() {
	projectCreateCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
