/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/binpoints/apiserver/config"
	"github.com/binpoints/apiserver/internal/db"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Runs the embedded migrations for the configured DB_DRIVER
(postgres, pgx, mysql or sqlite).`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *db.Migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		})
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *db.Migrator) error {
			if err := m.Down(migrateDownSteps); err != nil {
				return err
			}
			slog.Info("migrations rolled back", "steps", migrateDownSteps)
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *db.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)

	migrateDownCmd.Flags().IntVarP(&migrateDownSteps, "steps", "n", 1, "number of migrations to roll back (0 rolls back all)")
}

func withMigrator(cmd *cobra.Command, fn func(*db.Migrator) error) error {
	cfg := config.LoadConfig()
	m, err := db.NewMigrator(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		_ = m.Close()
	}()
	return fn(m)
}
