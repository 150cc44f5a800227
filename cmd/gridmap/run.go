package main

import (
	"context"
	"fmt"
	"os"

	"github.com/JonMunkholm/gridmap/internal/config"
	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/JonMunkholm/gridmap/internal/runner"
	"github.com/JonMunkholm/gridmap/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var (
		pipelinesFile string
		databaseURL   string
		output        string
	)
	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Run a pipeline from a pipelines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			set, err := config.LoadPipelines(pipelinesFile, 0)
			if err != nil {
				return err
			}
			p, err := set.Get(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			opts := runner.Options{}
			if databaseURL != "" {
				pool, err := connect(ctx, databaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				opts.Store = store.New(pool)
			}

			rep, err := runner.New(opts).RunPipeline(ctx, p)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), output, rep, core.Fields(p.Specs())); err != nil {
				return err
			}
			if rep.HasIssue(core.ErrEmptyInput) {
				return errEmptyInput
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&pipelinesFile, "pipelines", "p", envOr("PIPELINES_FILE", "pipelines.yaml"), "Pipelines file")
	f.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Persist the run to this Postgres database")
	f.StringVarP(&output, "output", "o", outputJSON, "Output format: json, ndjson or csv")
	return cmd
}

// connect opens a pool and makes sure the run tables exist.
func connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := store.New(pool).EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
