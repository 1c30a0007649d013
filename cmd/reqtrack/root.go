// reqtrack is a CLI for hierarchical task trees and AI-assisted
// requirement discovery, backed by a per-project SQLite database under
// .reqtrack/.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planfold/reqtrack/internal/storage"
)

var (
	dbPath string

	// store is initialized by the root PersistentPreRunE for every
	// command except init and help
	store storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "reqtrack",
	Short: "Task trees and requirement discovery for software projects",
	Long: `reqtrack tracks hierarchical task trees with cascading lifecycle and
guides requirement discovery through a staged elicitation conversation.

Data lives in .reqtrack/<project>.db in the current directory. Run
'reqtrack init' once per project to create it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init creates the database itself; help and completion need none
		switch cmd.Name() {
		case "init", "help", "completion", "__complete":
			return nil
		}

		path := dbPath
		if path == "" {
			discovered, err := storage.DiscoverDatabase()
			if err != nil {
				return err
			}
			path = discovered
		}

		s, err := storage.NewStorage(cmd.Context(), &storage.Config{Path: path})
		if err != nil {
			return fmt.Errorf("failed to open database %s: %w", path, err)
		}
		store = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			if err := store.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close database: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: auto-discover .reqtrack/*.db)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
