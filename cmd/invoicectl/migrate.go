package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fekuna/omnipos-invoice-service/config"
	"github.com/fekuna/omnipos-invoice-service/internal/bootstrap"
	"github.com/fekuna/omnipos-invoice-service/internal/database"
)

func migrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply the SQL migrations embedded in the binary that are not yet recorded
in schema_migrations. With --dry-run the pending files are only listed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			appLogger := bootstrap.NewLogger(cfg)
			defer appLogger.Sync()

			db, err := bootstrap.NewPostgres(cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			m := database.NewMigrator(db, appLogger)
			if dryRun {
				pending, err := m.Pending(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return nil
				}
				for _, name := range pending {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			n, err := m.Up(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	return cmd
}
