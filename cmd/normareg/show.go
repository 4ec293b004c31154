package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/orchestrator"
)

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <execution_id>",
		Short: "Render a persisted execution's technical spec as formatted Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, orch *orchestrator.Orchestrator, _ *audit.Store) error {
				st, err := orch.GetAudit(ctx, args[0])
				if errors.Is(err, audit.ErrNotFound) {
					return fmt.Errorf("no audit record for execution_id %s", args[0])
				}
				if err != nil {
					return err
				}
				if st.TechnicalSpec == "" {
					fmt.Println("(no technical_spec recorded for this execution)")
					return nil
				}

				renderer, err := glamour.NewTermRenderer(
					glamour.WithAutoStyle(),
					glamour.WithWordWrap(100),
				)
				if err != nil {
					return fmt.Errorf("build markdown renderer: %w", err)
				}
				out, err := renderer.Render(st.TechnicalSpec)
				if err != nil {
					return fmt.Errorf("render technical_spec: %w", err)
				}
				fmt.Print(out)
				return nil
			})
		},
	}
	return cmd
}
