package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/orchestrator"
)

func analyzeCmd() *cobra.Command {
	var repoPath string
	var textFile string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the six-stage pipeline against regulatory text",
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readRegulatoryText(textFile)
			if err != nil {
				return err
			}

			return withApp(func(ctx context.Context, orch *orchestrator.Orchestrator, _ *audit.Store) error {
				res, err := orch.Analyze(ctx, text, repoPath)
				if err != nil && res.State == nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res.State); encErr != nil {
					return encErr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&repoPath, "repo", "", "repository path to analyze impact against (defaults to REPO_PATH config)")
	cmd.Flags().StringVar(&textFile, "file", "-", "path to regulatory text file, or - for stdin")
	return cmd
}

func readRegulatoryText(path string) (string, error) {
	if path == "-" || path == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
