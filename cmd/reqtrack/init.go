package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planfold/reqtrack/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Initialize a reqtrack database in the current directory",
	Long: `Initialize a new tracker by creating a .reqtrack/ directory with a
SQLite database.

If no name is provided, the current directory name is used.

Example:
  cd ~/myproject
  reqtrack init            # Creates .reqtrack/myproject.db
  reqtrack init myapp      # Creates .reqtrack/myapp.db`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}

		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get current directory: %v\n", err)
			os.Exit(1)
		}

		path, err := storage.InitTracker(cwd, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Opening once applies the schema
		ctx := context.Background()
		db, err := storage.NewStorage(ctx, &storage.Config{Path: path})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize database: %v\n", err)
			os.Exit(1)
		}
		_ = db.Close()

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s Initialized reqtrack\n\n", green("✓"))
		fmt.Printf("  Database: %s\n", cyan(path))
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("reqtrack project create \"My Project\""))
		fmt.Printf("  %s\n", gray("reqtrack discover <project-id>"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
