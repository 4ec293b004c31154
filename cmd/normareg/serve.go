package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/metalagman/normareg/internal/api"
	"github.com/metalagman/normareg/internal/appfx"
	"go.uber.org/fx"
)

func serveCmd() *cobra.Command {
	var addrOverride string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := api.ValidateOpenAPIContract(); err != nil {
				return fmt.Errorf("openapi self-check failed: %w", err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			addr := cfg.HTTPAddr
			if addrOverride != "" {
				addr = addrOverride
			}

			var server *api.Server
			app := fx.New(
				fx.Supply(cfg),
				appfx.Module,
				fx.NopLogger,
				fx.Populate(&server),
			)
			if err := app.Err(); err != nil {
				return fmt.Errorf("build app: %w", err)
			}

			ctx := cmd.Context()
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("start app: %w", err)
			}
			defer func() { _ = app.Stop(context.Background()) }()

			fmt.Printf("normareg listening on %s\n", addr)
			return http.ListenAndServe(addr, server.Routes())
		},
	}
	cmd.Flags().StringVar(&addrOverride, "addr", "", "override http_addr from config")
	return cmd
}
