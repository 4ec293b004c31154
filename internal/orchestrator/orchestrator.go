// Package orchestrator drives one end-to-end regulatory-impact analysis run:
// it assigns an execution_id, invokes the Graph Executor, renders the
// Mermaid visualization, and saves the audit record, following a
// lock/prepare/execute/persist/log lifecycle shape as a single fixed pass
// rather than an iterating loop.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/graph"
	"github.com/metalagman/normareg/internal/state"
	"github.com/metalagman/normareg/internal/visualizer"
)

// ErrEmptyText is returned when the input regulatory text is blank,
// mirroring main.py's 400-with-no-audit-record input validation.
var ErrEmptyText = errors.New("orchestrator: regulatory text cannot be empty")

// DefaultBudget is the soft end-to-end run budget enforced at the API
// boundary when the caller does not override it.
const DefaultBudget = 120 * time.Second

// Orchestrator wires the Graph Executor, Audit Store, and Visualizer
// together behind a single Analyze call.
type Orchestrator struct {
	Executor *graph.Executor
	Audit    *audit.Store
	Log      zerolog.Logger
	Budget   time.Duration
}

// Result is the complete outcome of one run, whether it finished cleanly or
// halted partway through with an error recorded on State.
type Result struct {
	State              *state.SharedState
	GraphVisualization string
}

// Analyze runs one pipeline execution against rawText and repoPath. The
// audit record is saved exactly once regardless of outcome: a clean run, a
// halted (partial) run, or an audit-store failure that is logged but does
// not fail the call — matching "Audit Store unavailable: best-effort save;
// final API response still returned."
//
// A client-disconnect cancellation of ctx does not stop the run: Analyze
// derives its own budget-bound context internally rather than tying
// execution lifetime to the caller's, per "on client disconnect the run
// continues to completion and is audited."
func (o *Orchestrator) Analyze(ctx context.Context, rawText, repoPath string) (Result, error) {
	if strings.TrimSpace(rawText) == "" {
		return Result{}, ErrEmptyText
	}

	budget := o.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	if repoPath == "" && o.Executor != nil {
		repoPath = o.Executor.RepoPath
	}

	executionID := uuid.NewString()
	s := state.New(executionID, rawText, repoPath, time.Now().UTC())

	o.Log.Info().Str("execution_id", executionID).Msg("analyze started")

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
	defer cancel()

	runErr := o.Executor.Run(runCtx, s)
	if runErr != nil {
		o.Log.Error().Err(runErr).Str("execution_id", executionID).Msg("pipeline halted")
	}

	if o.Audit != nil {
		if err := o.Audit.Save(context.WithoutCancel(ctx), s); err != nil {
			o.Log.Error().Err(err).Str("execution_id", executionID).Msg("audit save failed")
		}
	}

	viz := visualizer.Mermaid(s)

	if runErr != nil {
		return Result{State: s, GraphVisualization: viz}, fmt.Errorf("pipeline execution failed: %w", runErr)
	}

	o.Log.Info().Str("execution_id", executionID).Msg("analyze completed")
	return Result{State: s, GraphVisualization: viz}, nil
}

// ErrAuditUnavailable is returned when no audit store is configured.
var ErrAuditUnavailable = errors.New("orchestrator: audit store unavailable")

// GetAudit retrieves a previously persisted execution by id.
func (o *Orchestrator) GetAudit(ctx context.Context, executionID string) (*state.SharedState, error) {
	if o.Audit == nil {
		return nil, ErrAuditUnavailable
	}
	return o.Audit.Get(ctx, executionID)
}

// ListAudit retrieves the most recent persisted executions.
func (o *Orchestrator) ListAudit(ctx context.Context, limit int) ([]*state.SharedState, error) {
	if o.Audit == nil {
		return nil, ErrAuditUnavailable
	}
	return o.Audit.List(ctx, limit)
}
