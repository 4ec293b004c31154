// Package graph runs the six pipeline agents over a SharedState in a fixed
// sequence, grounded on original_source/backend/orchestrator/graph.py's
// _wrap_agent fail-halt semantics and the ADK Agent/InvocationContext wiring
// pattern. It never loops: it is a single pass over six named stages.
package graph

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"

	"github.com/metalagman/normareg/internal/agents"
	"github.com/metalagman/normareg/internal/embedding"
	"github.com/metalagman/normareg/internal/llmgateway"
	"github.com/metalagman/normareg/internal/state"
	"github.com/metalagman/normareg/internal/vectorindex"
)

// StageName identifies one of the six fixed pipeline stages, in order.
type StageName string

const (
	StageSentinel      StageName = "sentinel"
	StageTranslator    StageName = "translator"
	StageCodeReader    StageName = "code_reader"
	StageImpact        StageName = "impact"
	StageSpecGenerator StageName = "spec_generator"
	StageKiroPrompt    StageName = "kiro_prompt"
)

// agentNames maps each stage to the capitalized name state.Error reports it
// under, e.g. "Sentinel: malformed regulatory text".
var agentNames = map[StageName]string{
	StageSentinel:      "Sentinel",
	StageTranslator:    "Translator",
	StageCodeReader:    "CodeReader",
	StageImpact:        "Impact",
	StageSpecGenerator: "SpecGenerator",
	StageKiroPrompt:    "KiroPrompt",
}

// Executor wires the six agents together with the resources they need
// (LLM gateway, vector index, embedding encoder) and drives them through
// SharedState in the order the pipeline requires.
type Executor struct {
	Gateway         llmgateway.Gateway
	Index           *vectorindex.Index
	Encoder         embedding.Encoder
	RepoPath        string
	KeywordBoost    agents.CodeReaderKeywordBoost
	SearchThreshold float64
	Log             zerolog.Logger
}

type stage struct {
	name StageName
	run  func(ctx context.Context, s *state.SharedState) error
}

func (ex *Executor) stages() []stage {
	return []stage{
		{StageSentinel, func(ctx context.Context, s *state.SharedState) error {
			return agents.Sentinel(ctx, ex.Gateway, s)
		}},
		{StageTranslator, func(ctx context.Context, s *state.SharedState) error {
			return agents.Translator(ctx, ex.Gateway, s)
		}},
		{StageCodeReader, func(ctx context.Context, s *state.SharedState) error {
			return agents.CodeReader(ctx, ex.Encoder, ex.Index, ex.KeywordBoost, ex.SearchThreshold, ex.Log, s)
		}},
		{StageImpact, func(ctx context.Context, s *state.SharedState) error {
			repoPath := s.RepoPath
			if repoPath == "" {
				repoPath = ex.RepoPath
			}
			return agents.Impact(ctx, ex.Gateway, repoPath, ex.Log, s)
		}},
		{StageSpecGenerator, func(ctx context.Context, s *state.SharedState) error {
			return agents.SpecGenerator(ctx, ex.Gateway, s)
		}},
		{StageKiroPrompt, func(_ context.Context, s *state.SharedState) error {
			return agents.KiroPrompt(s)
		}},
	}
}

// Run executes every stage in order, halting at the first failure and
// recording it on SharedState.Error, mirroring _wrap_agent's catch-set-error
// semantics: a fatal stage error stops the pipeline but does not panic the
// caller.
func (ex *Executor) Run(ctx context.Context, s *state.SharedState) error {
	for _, st := range ex.stages() {
		ex.Log.Info().Str("agent", string(st.name)).Str("execution_id", s.ExecutionID).Msg("agent_start")
		start := time.Now()

		err := st.run(ctx, s)

		elapsed := time.Since(start)
		if err != nil {
			s.Error = fmt.Sprintf("%s: %v", agentNames[st.name], err)
			ex.Log.Error().Err(err).Str("agent", string(st.name)).Str("execution_id", s.ExecutionID).
				Dur("elapsed", elapsed).Msg("agent_end")
			return fmt.Errorf("%s stage failed: %w", st.name, err)
		}

		if verr := s.Validate(); verr != nil {
			s.Error = fmt.Sprintf("%s: %v", agentNames[st.name], verr)
			ex.Log.Error().Err(verr).Str("agent", string(st.name)).Str("execution_id", s.ExecutionID).
				Dur("elapsed", elapsed).Msg("agent_end")
			return fmt.Errorf("%s stage produced invalid state: %w", st.name, verr)
		}

		ex.Log.Info().Str("agent", string(st.name)).Str("execution_id", s.ExecutionID).
			Dur("elapsed", elapsed).Msg("agent_end")
	}
	return nil
}

// Agent wraps the Executor as an ADK agent.Agent so it composes with other
// ADK-driven surfaces, following the agent.Config{Run: ...} pattern. The
// pipeline itself needs no ADK session state, so the closure only honors
// cancellation via ctx.Ended() and otherwise runs the fixed stage sequence
// directly.
func (ex *Executor) Agent(s *state.SharedState) (agent.Agent, error) {
	return agent.New(agent.Config{
		Name:        "NormaregGraphExecutor",
		Description: "Runs the six-stage regulatory impact analysis pipeline once, without looping.",
		Run:         ex.runAsADKAgent(s),
	})
}

func (ex *Executor) runAsADKAgent(s *state.SharedState) func(agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
		return func(yield func(*session.Event, error) bool) {
			if ctx.Ended() {
				return
			}
			if err := ex.Run(context.Background(), s); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}
