package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planfold/reqtrack/internal/requirements"
	"github.com/planfold/reqtrack/internal/types"
)

var reqCmd = &cobra.Command{
	Use:   "req",
	Short: "Manage requirements and technical requirements",
}

var (
	reqProject  string
	reqDesc     string
	reqType     string
	reqPriority string
	reqStatus   string
	reqTags     []string
	reqNewTitle string

	techStack    string
	techStatus   string
	techCriteria []string
)

var reqAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a requirement",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := requirements.NewManager(store).Create(cmd.Context(), requirements.CreateRequirementInput{
			ProjectID:   reqProject,
			Title:       args[0],
			Description: reqDesc,
			Type:        types.RequirementType(reqType),
			Priority:    types.RequirementPriority(reqPriority),
			Status:      types.RequirementStatus(reqStatus),
			Tags:        reqTags,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Created requirement %s (%s)\n", green("✓"), req.Title, cyan(req.ID))
	},
}

var reqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's requirements",
	Run: func(cmd *cobra.Command, args []string) {
		reqs, err := requirements.NewManager(store).ListByProject(cmd.Context(), reqProject)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(reqs) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray("No requirements"))
			return
		}
		for _, r := range reqs {
			printRequirementLine(r)
		}
	},
}

var reqShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a requirement",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		r, err := requirements.NewManager(store).Get(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n", cyan(r.Title))
		if r.Description != "" {
			fmt.Printf("%s\n", r.Description)
		}
		fmt.Printf("%s %s\n", gray("ID:"), r.ID)
		fmt.Printf("%s %s / %s / %s\n", gray("Type/Priority/Status:"), r.Type, r.Priority, r.Status)
		if len(r.Tags) > 0 {
			fmt.Printf("%s %s\n", gray("Tags:"), strings.Join(r.Tags, ", "))
		}
		fmt.Println()
	},
}

var reqUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update requirement fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		update := &types.RequirementUpdate{}
		if cmd.Flags().Changed("title") {
			update.Title = &reqNewTitle
		}
		if cmd.Flags().Changed("description") {
			update.Description = &reqDesc
		}
		if cmd.Flags().Changed("type") {
			t := types.RequirementType(reqType)
			update.Type = &t
		}
		if cmd.Flags().Changed("priority") {
			p := types.RequirementPriority(reqPriority)
			update.Priority = &p
		}
		if cmd.Flags().Changed("status") {
			s := types.RequirementStatus(reqStatus)
			update.Status = &s
		}
		if cmd.Flags().Changed("tags") {
			update.Tags = reqTags
		}

		r, err := requirements.NewManager(store).Update(cmd.Context(), args[0], update)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Updated requirement %s\n", green("✓"), r.ID)
	},
}

var reqDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a requirement",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := requirements.NewManager(store).Delete(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Deleted requirement %s\n", green("✓"), args[0])
	},
}

var reqSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search requirements by title and description",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reqs, err := requirements.NewManager(store).Search(cmd.Context(), args[0], reqProject)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(reqs) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray("No matching requirements"))
			return
		}
		for _, r := range reqs {
			printRequirementLine(r)
		}
	},
}

func printRequirementLine(r *types.Requirement) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Printf("%s %s %s\n", priorityBadge(r.Priority), r.Title,
		gray(fmt.Sprintf("(%s, %s, %s)", r.ID, r.Type, r.Status)))
}

func priorityBadge(p types.RequirementPriority) string {
	switch p {
	case types.ReqPriorityCritical:
		return color.New(color.FgRed, color.Bold).Sprint("[critical]")
	case types.ReqPriorityHigh:
		return color.New(color.FgRed).Sprint("[high]")
	case types.ReqPriorityMedium:
		return color.New(color.FgYellow).Sprint("[medium]")
	default:
		return color.New(color.FgHiBlack).Sprint("[low]")
	}
}

// --- technical requirements ---

var techCmd = &cobra.Command{
	Use:   "tech",
	Short: "Manage technical requirements",
}

var techAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a technical requirement",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := requirements.NewManager(store).CreateTech(cmd.Context(), requirements.CreateTechInput{
			ProjectID:          reqProject,
			Title:              args[0],
			Description:        reqDesc,
			Type:               types.RequirementType(reqType),
			TechnicalStack:     techStack,
			Status:             types.TechStatus(techStatus),
			AcceptanceCriteria: techCriteria,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Created %s: %s (%s)\n", green("✓"), cyan(req.UniqueID), req.Title, req.ID)
	},
}

var techListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's technical requirements",
	Run: func(cmd *cobra.Command, args []string) {
		reqs, err := requirements.NewManager(store).ListTechByProject(cmd.Context(), reqProject)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(reqs) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray("No technical requirements"))
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, r := range reqs {
			fmt.Printf("%s %s %s\n", cyan(r.UniqueID), r.Title,
				gray(fmt.Sprintf("(%s, %s)", r.Status, r.ID)))
		}
	},
}

var techShowCmd = &cobra.Command{
	Use:   "show <id|unique-id>",
	Short: "Show a technical requirement with criteria and dependencies",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		mgr := requirements.NewManager(store)

		r, err := mgr.GetTech(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s %s\n", cyan(r.UniqueID), r.Title)
		if r.Description != "" {
			fmt.Printf("%s\n", r.Description)
		}
		fmt.Printf("%s %s\n", gray("ID:"), r.ID)
		fmt.Printf("%s %s / %s\n", gray("Type/Status:"), r.Type, r.Status)
		if r.TechnicalStack != "" {
			fmt.Printf("%s %s\n", gray("Stack:"), r.TechnicalStack)
		}

		if len(r.AcceptanceCriteria) > 0 {
			fmt.Printf("\n%s\n", gray("Acceptance criteria:"))
			for i, c := range r.AcceptanceCriteria {
				fmt.Printf("  %d. %s\n", i+1, c.Description)
			}
		}

		deps, err := mgr.Dependencies(ctx, r.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(deps) > 0 {
			fmt.Printf("\n%s\n", gray("Depends on:"))
			for _, d := range deps {
				fmt.Printf("  %s %s\n", d.UniqueID, d.Title)
			}
		}

		dependents, err := mgr.Dependents(ctx, r.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(dependents) > 0 {
			fmt.Printf("\n%s\n", gray("Required by:"))
			for _, d := range dependents {
				fmt.Printf("  %s %s\n", d.UniqueID, d.Title)
			}
		}
		fmt.Println()
	},
}

var techUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update technical requirement fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		update := &types.TechRequirementUpdate{}
		if cmd.Flags().Changed("title") {
			update.Title = &reqNewTitle
		}
		if cmd.Flags().Changed("description") {
			update.Description = &reqDesc
		}
		if cmd.Flags().Changed("type") {
			t := types.RequirementType(reqType)
			update.Type = &t
		}
		if cmd.Flags().Changed("status") {
			s := types.TechStatus(techStatus)
			update.Status = &s
		}
		if cmd.Flags().Changed("stack") {
			update.TechnicalStack = &techStack
		}

		r, err := requirements.NewManager(store).UpdateTech(cmd.Context(), args[0], update)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Updated %s\n", green("✓"), r.UniqueID)
	},
}

var techDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a technical requirement and its dependency edges",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := requirements.NewManager(store).DeleteTech(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Deleted technical requirement %s\n", green("✓"), args[0])
	},
}

var techDependCmd = &cobra.Command{
	Use:   "depend <dependent-id> <dependency-id>",
	Short: "Record that one technical requirement depends on another",
	Long: `Record a directed dependency edge. Self-dependencies and edges that
would create a cycle are rejected.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := requirements.NewManager(store).AddDependency(cmd.Context(), args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %s now depends on %s\n", green("✓"), args[0], args[1])
	},
}

var techUndependCmd = &cobra.Command{
	Use:   "undepend <dependent-id> <dependency-id>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := requirements.NewManager(store).RemoveDependency(cmd.Context(), args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Removed dependency %s -> %s\n", green("✓"), args[0], args[1])
	},
}

func init() {
	reqAddCmd.Flags().StringVarP(&reqProject, "project", "p", "", "Project ID (required)")
	reqAddCmd.Flags().StringVarP(&reqDesc, "description", "d", "", "Description")
	reqAddCmd.Flags().StringVar(&reqType, "type", "functional", "Type: functional, technical, non-functional, or user_story")
	reqAddCmd.Flags().StringVar(&reqPriority, "priority", "medium", "Priority: low, medium, high, or critical")
	reqAddCmd.Flags().StringVar(&reqStatus, "status", "", "Status (default: draft)")
	reqAddCmd.Flags().StringSliceVar(&reqTags, "tags", nil, "Comma-separated tags")
	_ = reqAddCmd.MarkFlagRequired("project")

	reqListCmd.Flags().StringVarP(&reqProject, "project", "p", "", "Project ID (required)")
	_ = reqListCmd.MarkFlagRequired("project")
	reqSearchCmd.Flags().StringVarP(&reqProject, "project", "p", "", "Limit to a project")

	reqUpdateCmd.Flags().StringVar(&reqNewTitle, "title", "", "New title")
	reqUpdateCmd.Flags().StringVarP(&reqDesc, "description", "d", "", "New description")
	reqUpdateCmd.Flags().StringVar(&reqType, "type", "", "New type")
	reqUpdateCmd.Flags().StringVar(&reqPriority, "priority", "", "New priority")
	reqUpdateCmd.Flags().StringVar(&reqStatus, "status", "", "New status")
	reqUpdateCmd.Flags().StringSliceVar(&reqTags, "tags", nil, "Replacement tag set")

	techAddCmd.Flags().StringVarP(&reqProject, "project", "p", "", "Project ID (required)")
	techAddCmd.Flags().StringVarP(&reqDesc, "description", "d", "", "Description")
	techAddCmd.Flags().StringVar(&reqType, "type", "technical", "Requirement type")
	techAddCmd.Flags().StringVar(&techStack, "stack", "", "Technical stack (e.g. \"Go, SQLite\")")
	techAddCmd.Flags().StringVar(&techStatus, "status", "", "Status (default: unassigned)")
	techAddCmd.Flags().StringSliceVar(&techCriteria, "criteria", nil, "Acceptance criteria")
	_ = techAddCmd.MarkFlagRequired("project")

	techListCmd.Flags().StringVarP(&reqProject, "project", "p", "", "Project ID (required)")
	_ = techListCmd.MarkFlagRequired("project")

	techUpdateCmd.Flags().StringVar(&reqNewTitle, "title", "", "New title")
	techUpdateCmd.Flags().StringVarP(&reqDesc, "description", "d", "", "New description")
	techUpdateCmd.Flags().StringVar(&reqType, "type", "", "New type")
	techUpdateCmd.Flags().StringVar(&techStatus, "status", "", "New status")
	techUpdateCmd.Flags().StringVar(&techStack, "stack", "", "New technical stack")

	techCmd.AddCommand(techAddCmd)
	techCmd.AddCommand(techListCmd)
	techCmd.AddCommand(techShowCmd)
	techCmd.AddCommand(techUpdateCmd)
	techCmd.AddCommand(techDeleteCmd)
	techCmd.AddCommand(techDependCmd)
	techCmd.AddCommand(techUndependCmd)

	reqCmd.AddCommand(reqAddCmd)
	reqCmd.AddCommand(reqListCmd)
	reqCmd.AddCommand(reqShowCmd)
	reqCmd.AddCommand(reqUpdateCmd)
	reqCmd.AddCommand(reqDeleteCmd)
	reqCmd.AddCommand(reqSearchCmd)
	reqCmd.AddCommand(techCmd)
	rootCmd.AddCommand(reqCmd)
}
