package main

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/orchestrator"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyze_regulation MCP tool over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, orch *orchestrator.Orchestrator, _ *audit.Store) error {
				server := mcp.NewServer(&mcp.Implementation{Name: "normareg", Version: "1.0.0"}, nil)

				mcp.AddTool(server, &mcp.Tool{
					Name:        "analyze_regulation",
					Description: "Analyze regulatory text against a source-code repository and return the structured model, impacted files, impact analysis, technical spec, and Kiro developer prompt.",
				}, analyzeToolHandler(orch))

				return server.Run(ctx, &mcp.StdioTransport{})
			})
		},
	}
}

// analyzeInput is the analyze_regulation tool's request payload.
type analyzeInput struct {
	RegulatoryText string `json:"regulatory_text" jsonschema:"the regulatory text to analyze"`
	RepoPath       string `json:"repo_path,omitempty" jsonschema:"repository path to check for impact, defaults to the server's configured repo_path"`
}

// analyzeOutput is the analyze_regulation tool's response payload.
type analyzeOutput struct {
	ExecutionID    string `json:"execution_id"`
	ChangeDetected bool   `json:"change_detected"`
	RiskLevel      string `json:"risk_level"`
	TechnicalSpec  string `json:"technical_spec"`
	KiroPrompt     string `json:"kiro_prompt"`
	Error          string `json:"error,omitempty"`
}

func analyzeToolHandler(orch *orchestrator.Orchestrator) func(context.Context, *mcp.CallToolRequest, analyzeInput) (*mcp.CallToolResult, analyzeOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in analyzeInput) (*mcp.CallToolResult, analyzeOutput, error) {
		res, err := orch.Analyze(ctx, in.RegulatoryText, in.RepoPath)
		if err != nil && res.State == nil {
			return nil, analyzeOutput{}, fmt.Errorf("analyze: %w", err)
		}

		out := analyzeOutput{
			ExecutionID:   res.State.ExecutionID,
			RiskLevel:     string(res.State.RiskLevel),
			TechnicalSpec: res.State.TechnicalSpec,
			KiroPrompt:    res.State.KiroPrompt,
			Error:         res.State.Error,
		}
		if res.State.ChangeDetected != nil {
			out.ChangeDetected = *res.State.ChangeDetected
		}
		return nil, out, nil
	}
}
