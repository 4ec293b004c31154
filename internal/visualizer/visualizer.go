// Package visualizer renders a text diagram of a completed pipeline run,
// grounded on original_source/backend/services/graph_visualizer.py's
// generate_mermaid_diagram. The original's export_png() shells out to the
// external mmdc CLI to rasterize the diagram; that step has no in-corpus Go
// analog and no consumer needing a raster image, so only the text diagram
// is ported (see DESIGN.md).
package visualizer

import (
	"fmt"
	"strings"

	"github.com/metalagman/normareg/internal/state"
)

const maxTitleLen = 30

// Mermaid renders the completed SharedState as a Mermaid graph LR diagram:
// one annotated node per pipeline stage, chained start-to-end.
func Mermaid(s *state.SharedState) string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	b.WriteString("    Start([Input Text])\n")

	nodes := []string{"Start"}

	sentinelLabel := "Sentinel"
	if s.ChangeDetected != nil {
		sentinelLabel = fmt.Sprintf("Sentinel[Sentinel<br/>Change: %t<br/>Risk: %s]", *s.ChangeDetected, defaultRisk(s.RiskLevel))
	} else {
		sentinelLabel = "Sentinel[Sentinel]"
	}
	fmt.Fprintf(&b, "    %s\n", sentinelLabel)
	nodes = append(nodes, "Sentinel")

	translatorLabel := "Translator[Translator]"
	if s.RegulatoryModel != nil {
		translatorLabel = fmt.Sprintf("Translator[Translator<br/>%s]", truncateTitle(s.RegulatoryModel.Title))
	}
	fmt.Fprintf(&b, "    %s\n", translatorLabel)
	nodes = append(nodes, "Translator")

	fmt.Fprintf(&b, "    CodeReader[CodeReader<br/>%d files]\n", len(s.ImpactedFiles))
	nodes = append(nodes, "CodeReader")

	fmt.Fprintf(&b, "    Impact[Impact<br/>%d impacts]\n", len(s.ImpactAnalysis))
	nodes = append(nodes, "Impact")

	specLabel := "SpecGenerator[SpecGenerator]"
	if s.TechnicalSpec != "" {
		specLabel = "SpecGenerator[SpecGenerator<br/>Spec Created]"
	}
	fmt.Fprintf(&b, "    %s\n", specLabel)
	nodes = append(nodes, "SpecGenerator")

	kiroLabel := "KiroPrompt[KiroPrompt]"
	if s.KiroPrompt != "" {
		kiroLabel = "KiroPrompt[KiroPrompt<br/>Prompt Generated]"
	}
	fmt.Fprintf(&b, "    %s\n", kiroLabel)
	nodes = append(nodes, "KiroPrompt")

	b.WriteString("    End([Complete])\n")
	nodes = append(nodes, "End")

	for i := 0; i < len(nodes)-1; i++ {
		fmt.Fprintf(&b, "    %s --> %s\n", nodes[i], nodes[i+1])
	}

	return b.String()
}

// PlainText renders a fallback, non-Mermaid summary list of the same
// stages, for callers that cannot render Mermaid syntax.
func PlainText(s *state.SharedState) string {
	var b strings.Builder
	b.WriteString("Pipeline execution summary:\n")

	if s.ChangeDetected != nil {
		fmt.Fprintf(&b, "1. Sentinel: change_detected=%t, risk_level=%s\n", *s.ChangeDetected, defaultRisk(s.RiskLevel))
	} else {
		b.WriteString("1. Sentinel: not run\n")
	}

	if s.RegulatoryModel != nil {
		fmt.Fprintf(&b, "2. Translator: %s\n", s.RegulatoryModel.Title)
	} else {
		b.WriteString("2. Translator: not run\n")
	}

	fmt.Fprintf(&b, "3. CodeReader: %d impacted files\n", len(s.ImpactedFiles))
	fmt.Fprintf(&b, "4. Impact: %d impact entries\n", len(s.ImpactAnalysis))

	if s.TechnicalSpec != "" {
		b.WriteString("5. SpecGenerator: spec created\n")
	} else {
		b.WriteString("5. SpecGenerator: not run\n")
	}

	if s.KiroPrompt != "" {
		b.WriteString("6. KiroPrompt: prompt generated\n")
	} else {
		b.WriteString("6. KiroPrompt: not run\n")
	}

	return b.String()
}

func truncateTitle(title string) string {
	if len(title) <= maxTitleLen {
		return title
	}
	return title[:maxTitleLen] + "..."
}

func defaultRisk(r state.RiskLevel) state.RiskLevel {
	if r == "" {
		return state.RiskLow
	}
	return r
}
