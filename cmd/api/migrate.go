package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MiguelGP111/micampofresco/internal/infra/app"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
)

// NewMigrateCmd groups the schema migration subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL migrations.`,
	}

	for _, sub := range []struct {
		use, short string
	}{
		{"up", "Apply all pending migrations"},
		{"down", "Roll back the most recent migration"},
		{"status", "Show applied and pending migrations"},
	} {
		command := sub.use
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd, command)
			},
		})
	}

	return cmd
}

func runMigrate(cmd *cobra.Command, command string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Backend != config.BackendPostgres {
		return fmt.Errorf("migrate requires store.backend %q, got %q", config.BackendPostgres, cfg.Store.Backend)
	}

	if err := app.Migrate(commandContext(cmd), cfg, command); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	cmd.Printf("migrate %s completed\n", command)
	return nil
}
