package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iliyamo/newsroom-rundown/internal/service"
)

func newRundownCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rundown",
		Short: "Inspect rundowns",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <rundown-id>",
		Short: "Print a rundown as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid rundown id %q", args[0])
			}
			store, db, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			svc := service.NewRundownService(store, nil, a.log, a.cfg.AddItemMaxRetries)
			rd, err := svc.GetRundown(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rundown %d (show instance %d) %s\n", rd.ID, rd.ShowInstanceID, rd.Status)
			fmt.Fprintln(out, rundownTable(rd))
			return nil
		},
	})
	return cmd
}
