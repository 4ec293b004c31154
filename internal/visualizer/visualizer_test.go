package visualizer

import (
	"strings"
	"testing"

	"github.com/metalagman/normareg/internal/state"
)

func TestMermaid_ContainsAllStagesAndChain(t *testing.T) {
	t.Parallel()

	changed := true
	s := &state.SharedState{
		ChangeDetected:  &changed,
		RiskLevel:       state.RiskHigh,
		RegulatoryModel: &state.RegulatoryModel{Title: "Nova regra Pix"},
		ImpactedFiles:   []state.ImpactedFile{{FilePath: "a.py"}},
		ImpactAnalysis:  []state.Impact{{FilePath: "a.py"}},
		TechnicalSpec:   "# spec",
		KiroPrompt:      "CONTEXT:\n...",
	}

	out := Mermaid(s)
	if !strings.HasPrefix(out, "graph LR\n") {
		t.Fatalf("expected graph LR header, got: %s", out)
	}
	for _, want := range []string{"Start([Input Text])", "End([Complete])", "Start --> Sentinel", "KiroPrompt --> End"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestMermaid_TruncatesLongTitle(t *testing.T) {
	t.Parallel()

	s := &state.SharedState{RegulatoryModel: &state.RegulatoryModel{Title: strings.Repeat("x", 50)}}
	out := Mermaid(s)
	if !strings.Contains(out, strings.Repeat("x", 30)+"...") {
		t.Fatalf("expected truncated title, got: %s", out)
	}
}

func TestPlainText_ReflectsNotRunStages(t *testing.T) {
	t.Parallel()

	out := PlainText(&state.SharedState{})
	if !strings.Contains(out, "Sentinel: not run") || !strings.Contains(out, "KiroPrompt: not run") {
		t.Fatalf("expected not-run markers, got: %s", out)
	}
}
