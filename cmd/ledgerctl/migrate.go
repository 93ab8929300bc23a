package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-finance-tracker/internal/bunstore"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db := app.Store().DB
			if err := bunstore.Migrate(db); err != nil {
				return err
			}
			version, dirty, err := bunstore.SchemaVersion(db)
			if err != nil {
				return err
			}
			app.Logger().Info("schema up to date", "version", version, "dirty", dirty)
			return printJSON(cmd.OutOrStdout(), map[string]any{"version": version, "dirty": dirty})
		},
	}
}
