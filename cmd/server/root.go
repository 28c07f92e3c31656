package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/newsroom-rundown/internal/config"
	"github.com/iliyamo/newsroom-rundown/internal/database"
	"github.com/iliyamo/newsroom-rundown/internal/logging"
	"github.com/iliyamo/newsroom-rundown/internal/repository"
)

// app is the state shared by every subcommand once the persistent
// pre-run has loaded configuration.
type app struct {
	cfg config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "newsroomd",
		Short:         "Newsroom rundown service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.Configure(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	serve := newServeCmd(a)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newMigrateCmd(a),
		newRundownCmd(a),
		newImportWireCmd(a),
		newConsumeCmd(a),
	)
	return root
}

// openStore connects to the configured backend.  The caller owns the
// returned *sql.DB.
func (a *app) openStore() (*repository.SQLStore, *sql.DB, error) {
	var (
		db      *sql.DB
		dialect repository.Dialect
		err     error
	)
	switch a.cfg.StoreDriver {
	case config.DriverSQLite:
		dialect = repository.DialectSQLite
		db, err = database.OpenSQLite(a.cfg.SQLitePath)
	default:
		dialect = repository.DialectMySQL
		db, err = database.OpenMySQL(a.cfg.DBUser, a.cfg.DBPass, a.cfg.DBHost, a.cfg.DBPort, a.cfg.DBName)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", a.cfg.StoreDriver, err)
	}
	a.log.WithField("driver", a.cfg.StoreDriver).Info("store connected")
	return repository.NewSQLStore(db, dialect), db, nil
}

func (a *app) migrate(ctx context.Context, store *repository.SQLStore) error {
	if err := database.Migrate(ctx, store.DB(), store.Dialect()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
