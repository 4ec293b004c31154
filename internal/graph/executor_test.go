package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/metalagman/normareg/internal/embedding"
	"github.com/metalagman/normareg/internal/state"
)

type stubGateway struct {
	err error
}

func (g *stubGateway) Generate(_ context.Context, _ string, _ int) (string, error) {
	return "", g.err
}

func TestRun_HaltsAtFirstStageFailureWithCapitalizedAgentName(t *testing.T) {
	t.Parallel()

	ex := &Executor{
		Gateway: &stubGateway{err: errors.New("llm unreachable")},
		Encoder: embedding.New(8),
		Log:     zerolog.Nop(),
	}
	s := &state.SharedState{RawRegulatoryText: "texto sem palavras-chave reconhecidas"}

	err := ex.Run(context.Background(), s)
	if err == nil {
		t.Fatal("Run() error = nil, want a sentinel stage failure")
	}
	if s.Error == "" {
		t.Fatal("expected state.Error to be set")
	}
	const want = "Sentinel: "
	if len(s.Error) < len(want) || s.Error[:len(want)] != want {
		t.Fatalf("state.Error = %q, want prefix %q", s.Error, want)
	}
	// Translator never ran: ChangeDetected/RiskLevel were never even set
	// by Sentinel, since it halted before assigning them.
	if s.RegulatoryModel != nil {
		t.Fatalf("expected pipeline to halt before Translator, got RegulatoryModel = %+v", s.RegulatoryModel)
	}
}
