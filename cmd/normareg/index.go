package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/metalagman/normareg/internal/appfx"
	"github.com/metalagman/normareg/internal/indexer"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [repo-path]",
		Short: "Index a repository's source files into the vector index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			repoPath := cfg.RepoPath
			if len(args) == 1 {
				repoPath = args[0]
			}

			var ix *indexer.Indexer
			app := fx.New(
				fx.Supply(cfg),
				appfx.Module,
				fx.NopLogger,
				fx.Populate(&ix),
			)
			if err := app.Err(); err != nil {
				return fmt.Errorf("build app: %w", err)
			}

			ctx := context.Background()
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("start app: %w", err)
			}
			defer func() { _ = app.Stop(context.Background()) }()

			res, err := ix.Run(ctx, repoPath)
			if err != nil {
				return err
			}
			fmt.Printf("indexed=%d deleted=%d skipped=%d\n", res.Indexed, res.Deleted, res.Skipped)
			return nil
		},
	}
	return cmd
}
