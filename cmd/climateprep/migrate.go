package main

import (
	"fmt"

	"climateprep/adapters/store"
	"climateprep/internal/migration"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the report database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg := a.cfg.Database
			if dbCfg.InMemory() {
				return fmt.Errorf("DATABASE_URL is empty; the in-memory store needs no migration")
			}

			ctx := cmd.Context()
			db, err := store.Open(ctx, dbCfg.Driver, dbCfg.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner()
			if err := runner.Run(ctx, db); err != nil {
				return err
			}
			versions, err := migration.AppliedVersions(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (applied: %v)\n", dbCfg.Driver, runner.Version(), versions)
			return nil
		},
	}
}
