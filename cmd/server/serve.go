package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/newsroom-rundown/internal/config"
	"github.com/iliyamo/newsroom-rundown/internal/handler"
	"github.com/iliyamo/newsroom-rundown/internal/queue"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
	"github.com/iliyamo/newsroom-rundown/internal/router"
	"github.com/iliyamo/newsroom-rundown/internal/service"
	"github.com/iliyamo/newsroom-rundown/internal/wire"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", true, "install the schema before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, autoMigrate bool) error {
	store, db, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if autoMigrate {
		if err := a.migrate(ctx, store); err != nil {
			return err
		}
	}

	var events service.EventPublisher
	if a.cfg.EventsEnabled {
		events = queue.NewPublisher(a.cfg.RabbitURL, a.log)
		a.log.Info("rundown change events enabled")
	}

	rdb := config.NewRedisClient(ctx, a.cfg.Redis)
	if rdb == nil {
		a.log.Warn("redis unavailable; cache off and rate limit per process")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	rundowns := service.NewRundownService(store, events, a.log, a.cfg.AddItemMaxRetries)
	shows := service.NewShowSchedulingService(store, rundowns, a.log)
	stories := service.NewStoryService(store, a.log)

	e := router.New(router.Deps{
		Cfg:      a.cfg,
		Log:      a.log,
		Redis:    rdb,
		Ping:     db.PingContext,
		Auth:     handler.NewAuthHandler(a.cfg, repository.NewUserRepo(db, store.Dialect()), repository.NewTokenRepo(db), a.log),
		Rundowns: handler.NewRundownHandler(rundowns),
		Shows:    handler.NewShowHandler(shows),
		Stories:  handler.NewStoryHandler(stories),
		Wire:     handler.NewWireHandler(wire.NewImporter(stories, a.log)),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithField("addr", a.cfg.Addr()).WithField("env", a.cfg.Env).Info("listening")
		if err := e.Start(a.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("shutting down")
		return e.Shutdown(sctx)
	})
	if a.cfg.EventsConsumerEnabled {
		c := queue.NewConsumer(a.cfg.RabbitURL, a.cfg.EventsLogPath, a.log)
		g.Go(func() error {
			if err := c.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
