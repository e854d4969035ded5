package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/reddit-outreach/internal/config"
	"github.com/JakeFAU/reddit-outreach/internal/storage/postgres"
)

var (
	migrateUp   = postgres.MigrateUp
	migrateDown = postgres.MigrateDown
)

func newMigrateCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate up|down [steps]",
		Short:     "Apply or roll back the Postgres schema",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down"},
		// Migrations only need the DSN; skip building the full application.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Database.DSN == "" {
				return fmt.Errorf("database.dsn is required for migrations")
			}
			out := cmd.OutOrStdout()
			switch args[0] {
			case "up":
				if len(args) > 1 {
					return fmt.Errorf("migrate up takes no step count")
				}
				if err := migrateUp(cfg.Database.DSN); err != nil {
					return err
				}
				fmt.Fprintln(out, "✓ Migrations applied")
			case "down":
				steps := 1
				if len(args) > 1 {
					steps, err = strconv.Atoi(args[1])
					if err != nil || steps <= 0 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[1])
					}
				}
				if err := migrateDown(cfg.Database.DSN, steps); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Rolled back %d migration(s)\n", steps)
			default:
				return fmt.Errorf("unknown migrate direction %q (want up or down)", args[0])
			}
			return nil
		},
	}
	return cmd
}
