package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/orchestrator"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect persisted audit records",
	}
	cmd.AddCommand(auditGetCmd())
	cmd.AddCommand(auditListCmd())
	return cmd
}

func auditGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <execution_id>",
		Short: "Retrieve one audit record by execution id",
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
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			})
		},
	}
}

func auditListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, orch *orchestrator.Orchestrator, _ *audit.Store) error {
				records, err := orch.ListAudit(ctx, limit)
				if err != nil {
					return err
				}
				for _, r := range records {
					changed := "unknown"
					if r.ChangeDetected != nil {
						changed = fmt.Sprintf("%t", *r.ChangeDetected)
					}
					fmt.Printf("%s\trisk=%s\tchange=%s\ttimestamp=%s\n",
						r.ExecutionID, r.RiskLevel, changed, r.ExecutionTimestamp.Format("2006-01-02T15:04:05Z07:00"))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records to list")
	return cmd
}
