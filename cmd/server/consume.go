package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/newsroom-rundown/internal/queue"
)

func newConsumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Append rundown change events to the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log.WithField("path", a.cfg.EventsLogPath).Info("audit consumer starting")
			err := queue.NewConsumer(a.cfg.RabbitURL, a.cfg.EventsLogPath, a.log).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
