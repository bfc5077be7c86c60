package main

import (
	"context"
	"os"

	"orgsync-api/core/config"
	"orgsync-api/core/database"
	"orgsync-api/core/logger"
	"orgsync-api/core/server"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	flagNoWorker bool
	flagMigrate  bool
)

// cfg is loaded by the root PersistentPreRunE before any subcommand runs.
var cfg *config.Config

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orgsync-api",
		Short:         "Organization calendar sync service",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			logger.Init(os.Stdout, cfg.App.LogLevel)
			return nil
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with an embedded sync worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServer(cmd.Context(), func(ctx context.Context, srv *server.Server) error {
				if flagMigrate {
					if err := srv.Migrate(ctx); err != nil {
						return err
					}
				}
				return srv.Serve(ctx, !flagNoWorker)
			})
		},
	}

	cmd.Flags().BoolVar(&flagNoWorker, "no-worker", false, "do not consume the sync queue in this process")
	cmd.Flags().BoolVar(&flagMigrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume the calendar sync queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServer(cmd.Context(), func(ctx context.Context, srv *server.Server) error {
				return srv.Work(ctx)
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.InitDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(cmd.Context(), db.SQLx().DB)
		},
	}
}

func withServer(ctx context.Context, fn func(context.Context, *server.Server) error) error {
	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer srv.Close()
	return fn(ctx, srv)
}
