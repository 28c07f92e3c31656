package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Install the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, db, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if err := a.migrate(cmd.Context(), store); err != nil {
				return err
			}
			a.log.Info("schema up to date")
			return nil
		},
	}
}
