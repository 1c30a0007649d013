package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiscoverDatabase looks for .reqtrack/*.db in the current directory only.
// Returns the absolute path to the database file, or an error if not found.
//
// Only the current directory is checked, never parents: a tracker nested
// inside another project must not silently pick up the outer project's
// database.
//
// If REQTRACK_DB_PATH is set it is used directly without discovery, which
// also gives tests an isolation hook.
func DiscoverDatabase() (string, error) {
	if dbPath := os.Getenv("REQTRACK_DB_PATH"); dbPath != "" {
		return dbPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return discoverDatabaseInDir(dir)
}

// discoverDatabaseInDir checks for .reqtrack/*.db in the specified
// directory only.
func discoverDatabaseInDir(dir string) (string, error) {
	trackDir := filepath.Join(dir, ".reqtrack")

	if info, err := os.Stat(trackDir); err == nil && info.IsDir() {
		entries, err := os.ReadDir(trackDir)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".db") {
					dbPath := filepath.Join(trackDir, entry.Name())
					absPath, err := filepath.Abs(dbPath)
					if err != nil {
						return "", fmt.Errorf("failed to get absolute path: %w", err)
					}
					return absPath, nil
				}
			}
		}
	}

	return "", fmt.Errorf(
		"no .reqtrack/*.db found in %s\n"+
			"  Run 'reqtrack init' to initialize a tracker in this directory\n"+
			"  Or use --db to specify the database path explicitly",
		dir)
}

// InitTracker creates a new .reqtrack directory with an empty database
// path. Returns the path the database should be created at; the schema is
// applied on first connection.
func InitTracker(projectDir, name string) (string, error) {
	if _, err := os.Stat(projectDir); os.IsNotExist(err) {
		return "", fmt.Errorf("directory does not exist: %s", projectDir)
	}

	trackDir := filepath.Join(projectDir, ".reqtrack")
	if err := os.MkdirAll(trackDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create .reqtrack directory: %w", err)
	}

	dbName := name
	if dbName == "" {
		dbName = filepath.Base(projectDir)
	}
	if !strings.HasSuffix(dbName, ".db") {
		dbName += ".db"
	}

	dbPath := filepath.Join(trackDir, dbName)

	if _, err := os.Stat(dbPath); err == nil {
		return "", fmt.Errorf("database already exists: %s", dbPath)
	}

	return dbPath, nil
}
