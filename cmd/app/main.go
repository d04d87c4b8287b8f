package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"placedir/internal/bootstrap"
	common "placedir/pkg"
	"placedir/pkg/config"
	"placedir/pkg/mlog"
	"placedir/pkg/mzap"
	httpx "placedir/pkg/net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	logger := mzap.InitializeLogger()

	root := &cobra.Command{
		Use:   "placedir",
		Short: "placedir serves the geographic place directory and review API",
	}

	root.AddCommand(serveCmd(logger), migrateCmd(logger), reindexAllCmd(logger))

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Errorf("placedir: %v", err)
		_ = logger.Sync()

		os.Exit(1)
	}
}

func serveCmd(logger mlog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API and background maintenance tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.New()
			if err != nil {
				fmt.Fprintf(os.Stderr, "placedir: load config: %v\n", err)
				os.Exit(1)
			}

			conns, err := bootstrap.NewConnections(ctx, cfg, logger)
			if err != nil {
				logger.Errorf("placedir: serve: %v", err)
				os.Exit(1)
			}

			svc, err := bootstrap.NewServices(ctx, conns, cfg, logger)
			if err != nil {
				logger.Errorf("placedir: serve: %v", err)
				os.Exit(1)
			}

			tokens := httpx.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

			server := bootstrap.NewServer(cfg, svc, tokens, logger)
			sweeper := &bootstrap.Sweeper{
				Users:    svc.Users,
				Interval: time.Duration(cfg.TokenSweepIntervalSeconds) * time.Second,
				Logger:   logger,
			}

			launcher := common.NewLauncher(
				common.WithLogger(logger),
				common.RunApp("http", server),
				common.RunApp("token-sweeper", sweeper),
			)

			launcher.Run()

			return nil
		},
	}
}

func migrateCmd(logger mlog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "run pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				fmt.Fprintf(os.Stderr, "placedir: load config: %v\n", err)
				os.Exit(1)
			}

			if err := bootstrap.RunMigrations(cfg, logger); err != nil {
				logger.Errorf("placedir: migrate: %v", err)
				os.Exit(2)
			}

			return nil
		},
	}
}

func reindexAllCmd(logger mlog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex-all",
		Short: "rebuild the search index from the current store state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.New()
			if err != nil {
				fmt.Fprintf(os.Stderr, "placedir: load config: %v\n", err)
				os.Exit(1)
			}

			conns, err := bootstrap.NewConnections(ctx, cfg, logger)
			if err != nil {
				logger.Errorf("placedir: reindex-all: %v", err)
				os.Exit(3)
			}

			svc, err := bootstrap.NewServices(ctx, conns, cfg, logger)
			if err != nil {
				logger.Errorf("placedir: reindex-all: %v", err)
				os.Exit(3)
			}

			n, err := svc.Command.ReindexAll(ctx)
			if err != nil {
				logger.Errorf("placedir: reindex-all: %v", err)
				os.Exit(3)
			}

			logger.Infof("placedir: reindex-all: indexed %d place(s)", n)

			return nil
		},
	}
}
