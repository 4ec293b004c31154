package main

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/metalagman/normareg/internal/appfx"
	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/config"
	"github.com/metalagman/normareg/internal/orchestrator"
)

var cfgFile string
var debug bool

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// withApp builds the fx composition root and runs fn against the resources
// it provides, tearing everything down afterward, mirroring cmd/norma's
// openDB-then-defer-close shape but generalized to fx's lifecycle hooks.
func withApp(fn func(ctx context.Context, orch *orchestrator.Orchestrator, store *audit.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var orch *orchestrator.Orchestrator
	var store *audit.Store

	app := fx.New(
		fx.Supply(cfg),
		appfx.Module,
		fx.NopLogger,
		fx.Populate(&orch, &store),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	defer func() { _ = app.Stop(ctx) }()

	return fn(ctx, orch, store)
}
