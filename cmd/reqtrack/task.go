package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planfold/reqtrack/internal/tasktree"
	"github.com/planfold/reqtrack/internal/types"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage hierarchical tasks",
}

var (
	taskProject     string
	taskParent      string
	taskDescFlag    string
	taskPriority    string
	taskPosition    int
	taskCompleted   bool
	taskNewTitle    string
	taskNewParent   string
	taskClearParent bool
	taskNewProject  string
)

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task, optionally under a parent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := tasktree.CreateTaskInput{
			Title:       args[0],
			Description: taskDescFlag,
			ProjectID:   taskProject,
			ParentID:    taskParent,
			Priority:    types.TaskPriority(taskPriority),
		}
		if cmd.Flags().Changed("position") {
			pos := taskPosition
			in.Position = &pos
		}

		task, err := tasktree.NewManager(store).Create(cmd.Context(), in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Created task %s (%s)\n", green("✓"), task.Title, cyan(task.ID))
	},
}

var taskTreeCmd = &cobra.Command{
	Use:   "tree [task-id]",
	Short: "Show the task tree",
	Long: `Show the task tree rooted at the given task, or all root tasks of a
project when --project is set, or every root task otherwise.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		trees := tasktree.NewManager(store)

		var roots []*types.Task
		var err error
		switch {
		case len(args) == 1:
			var root *types.Task
			root, err = trees.GetByID(ctx, args[0])
			if root != nil {
				roots = []*types.Task{root}
			}
		case taskProject != "":
			roots, err = trees.GetRootsForProject(ctx, taskProject)
		default:
			roots, err = trees.GetRoots(ctx)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(roots) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray("No tasks"))
			return
		}

		for _, root := range roots {
			printTaskTree(ctx, trees, root, "")
		}
	},
}

// printTaskTree renders a subtree with box-drawing connectors
func printTaskTree(ctx context.Context, trees *tasktree.Manager, task *types.Task, prefix string) {
	fmt.Printf("%s%s %s %s\n", prefix, taskIcon(task), task.Title, taskMeta(task))

	children, err := trees.GetChildren(ctx, task.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	childPrefix := prefix + "  "
	for _, child := range children {
		printTaskTree(ctx, trees, child, childPrefix)
	}
}

func taskIcon(task *types.Task) string {
	if task.Completed {
		return color.New(color.FgGreen).Sprint("✓")
	}
	return color.New(color.FgHiBlack).Sprint("○")
}

func taskMeta(task *types.Task) string {
	gray := color.New(color.FgHiBlack).SprintFunc()
	meta := task.ID
	if task.Priority != types.TaskPriorityNone {
		meta += " " + string(task.Priority)
	}
	return gray("(" + meta + ")")
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered",
	Run: func(cmd *cobra.Command, args []string) {
		filter := types.TaskFilter{}
		if taskProject != "" {
			filter.ProjectID = &taskProject
		}
		if cmd.Flags().Changed("completed") {
			filter.Completed = &taskCompleted
		}

		tasks, err := store.SearchTasks(cmd.Context(), "", filter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		for _, t := range tasks {
			fmt.Printf("%s %s %s\n", taskIcon(t), t.Title, taskMeta(t))
		}
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task with its children",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		task, err := tasktree.NewManager(store).GetByID(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s %s\n", taskIcon(task), cyan(task.Title))
		if task.Description != "" {
			fmt.Printf("%s\n", task.Description)
		}
		fmt.Printf("%s %s\n", gray("ID:"), task.ID)
		fmt.Printf("%s %s\n", gray("Project:"), task.ProjectID)
		if task.ParentID != "" {
			fmt.Printf("%s %s\n", gray("Parent:"), task.ParentID)
		}
		if task.Priority != types.TaskPriorityNone {
			fmt.Printf("%s %s\n", gray("Priority:"), task.Priority)
		}
		if len(task.ChildTaskIDs) > 0 {
			fmt.Printf("%s %d\n", gray("Children:"), len(task.ChildTaskIDs))
		}
		fmt.Println()
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update task fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		update := &types.TaskUpdate{ClearParent: taskClearParent}
		if cmd.Flags().Changed("title") {
			update.Title = &taskNewTitle
		}
		if cmd.Flags().Changed("description") {
			update.Description = &taskDescFlag
		}
		if cmd.Flags().Changed("completed") {
			update.Completed = &taskCompleted
		}
		if cmd.Flags().Changed("priority") {
			p := types.TaskPriority(taskPriority)
			update.Priority = &p
		}
		if cmd.Flags().Changed("position") {
			pos := taskPosition
			update.Position = &pos
		}
		if cmd.Flags().Changed("parent") {
			update.ParentID = &taskNewParent
		}
		if cmd.Flags().Changed("project") {
			update.ProjectID = &taskNewProject
		}

		task, err := tasktree.NewManager(store).Update(cmd.Context(), args[0], update)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Updated task %s\n", green("✓"), task.ID)
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		task, err := tasktree.NewManager(store).Complete(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Completed %s\n", green("✓"), task.Title)
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task and its entire subtree",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		count, err := tasktree.NewManager(store).Delete(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Deleted %d task(s)\n", green("✓"), count)
	},
}

var taskSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tasks by title and description",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filter := types.TaskFilter{}
		if taskProject != "" {
			filter.ProjectID = &taskProject
		}

		tasks, err := store.SearchTasks(cmd.Context(), args[0], filter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(tasks) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray("No matching tasks"))
			return
		}
		for _, t := range tasks {
			fmt.Printf("%s %s %s\n", taskIcon(t), t.Title, taskMeta(t))
		}
	},
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskProject, "project", "p", "", "Project ID (required)")
	taskAddCmd.Flags().StringVar(&taskParent, "parent", "", "Parent task ID")
	taskAddCmd.Flags().StringVarP(&taskDescFlag, "description", "d", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "", "Priority: low, medium, or high")
	taskAddCmd.Flags().IntVar(&taskPosition, "position", 0, "Ordering position among siblings")
	_ = taskAddCmd.MarkFlagRequired("project")

	taskTreeCmd.Flags().StringVarP(&taskProject, "project", "p", "", "Limit to a project's roots")
	taskListCmd.Flags().StringVarP(&taskProject, "project", "p", "", "Limit to a project")
	taskListCmd.Flags().BoolVar(&taskCompleted, "completed", false, "Filter by completion state")
	taskSearchCmd.Flags().StringVarP(&taskProject, "project", "p", "", "Limit to a project")

	taskUpdateCmd.Flags().StringVar(&taskNewTitle, "title", "", "New title")
	taskUpdateCmd.Flags().StringVarP(&taskDescFlag, "description", "d", "", "New description")
	taskUpdateCmd.Flags().BoolVar(&taskCompleted, "completed", false, "Completion state")
	taskUpdateCmd.Flags().StringVar(&taskPriority, "priority", "", "Priority: low, medium, or high")
	taskUpdateCmd.Flags().IntVar(&taskPosition, "position", 0, "Ordering position among siblings")
	taskUpdateCmd.Flags().StringVar(&taskNewParent, "parent", "", "New parent task ID")
	taskUpdateCmd.Flags().BoolVar(&taskClearParent, "clear-parent", false, "Detach from parent (make a root task)")
	taskUpdateCmd.Flags().StringVar(&taskNewProject, "project", "", "Move to another project (root tasks without children only)")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskTreeCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskSearchCmd)
	rootCmd.AddCommand(taskCmd)
}
