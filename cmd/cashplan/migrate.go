package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cashplan/internal/storage"
)

var flagSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQLite schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := sqlitePath()
		if err != nil {
			return err
		}
		if err := storage.RunMigrations(path); err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert applied migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := sqlitePath()
		if err != nil {
			return err
		}
		if err := storage.RollbackMigrations(path, flagSteps); err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := sqlitePath()
		if err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&flagSteps, "steps", 1, "Number of migrations to revert")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

// sqlitePath resolves the database path without opening the store, which
// would migrate it.
func sqlitePath() (string, error) {
	if flagDemo {
		return "", fmt.Errorf("migrate needs the sqlite backend, not --demo")
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.SQLiteDBPath, nil
}

func printVersion(cmd *cobra.Command, path string) error {
	version, dirty, err := storage.MigrationVersion(path)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d (%s)\n", path, version, state)
	return nil
}
