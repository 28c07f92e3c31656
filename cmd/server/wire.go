package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/newsroom-rundown/internal/service"
	"github.com/iliyamo/newsroom-rundown/internal/wire"
)

func newImportWireCmd(a *app) *cobra.Command {
	var station uint64
	cmd := &cobra.Command{
		Use:   "import-wire <feed-url>",
		Short: "Import a wire feed as draft stories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if station == 0 {
				return errors.New("--station is required")
			}
			store, db, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			im := wire.NewImporter(service.NewStoryService(store, a.log), a.log)
			res, err := im.Import(cmd.Context(), station, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %d created, %d duplicate, %d skipped\n",
				res.Feed, res.Source, res.Created, res.Duplicate, res.Skipped)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&station, "station", 0, "station the stories belong to")
	return cmd
}
