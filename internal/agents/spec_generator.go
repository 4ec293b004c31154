package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/metalagman/normareg/internal/llmgateway"
	"github.com/metalagman/normareg/internal/state"
)

var impactTypeDisplayNames = map[state.ImpactType]string{
	state.ImpactSchemaChange:  "Database Schema Changes",
	state.ImpactBusinessLogic: "Business Logic",
	state.ImpactValidation:    "Validation Rules",
	state.ImpactAPIContract:   "API Contracts",
}

var severityEmoji = map[state.Severity]string{
	state.SeverityHigh:   "🔴",
	state.SeverityMedium: "🟡",
	state.SeverityLow:    "🟢",
}

// SpecGenerator produces a Markdown technical specification from the
// RegulatoryModel and impact analysis, grounded on
// spec_generator_agent/_generate_technical_spec in spec_generator.py.
func SpecGenerator(ctx context.Context, gw llmgateway.Gateway, s *state.SharedState) error {
	if s.RegulatoryModel == nil {
		return fmt.Errorf("regulatory model is required but not set")
	}
	if len(s.ImpactAnalysis) == 0 {
		s.TechnicalSpec = generateMinimalSpec(s.RegulatoryModel)
		return nil
	}

	s.TechnicalSpec = generateTechnicalSpec(ctx, gw, s.RegulatoryModel, s.ImpactAnalysis)
	return nil
}

func generateTechnicalSpec(ctx context.Context, gw llmgateway.Gateway, m *state.RegulatoryModel, impacts []state.Impact) string {
	title := m.Title
	if title == "" {
		title = "Technical Specification"
	}

	overview := generateOverview(ctx, gw, m)
	affected := generateAffectedComponents(impacts)
	changes := generateRequiredChanges(impacts)
	criteria := generateAcceptanceCriteria(ctx, gw, m)
	effort := calculateEstimatedEffort(impacts)

	var b strings.Builder
	fmt.Fprintf(&b, "# Technical Specification: %s\n\n", title)
	b.WriteString("## Overview\n\n")
	b.WriteString(overview)
	b.WriteString("\n\n## Affected Components\n\n")
	b.WriteString(affected)
	b.WriteString("\n\n## Required Changes\n\n")
	b.WriteString(changes)
	b.WriteString("\n\n## Acceptance Criteria\n\n")
	b.WriteString(criteria)
	b.WriteString("\n\n## Estimated Effort\n\n")
	b.WriteString(effort)
	b.WriteString("\n")
	return b.String()
}

func generateOverview(ctx context.Context, gw llmgateway.Gateway, m *state.RegulatoryModel) string {
	systemsText := "N/A"
	if len(m.AffectedSystems) > 0 {
		systemsText = strings.Join(m.AffectedSystems, ", ")
	}

	var reqLines strings.Builder
	for _, r := range m.Requirements {
		reqLines.WriteString("- ")
		reqLines.WriteString(r)
		reqLines.WriteString("\n")
	}

	deadlinesText := "Nenhum prazo específico mencionado"
	if len(m.Deadlines) > 0 {
		var dl strings.Builder
		for i, d := range m.Deadlines {
			if i > 0 {
				dl.WriteString("\n")
			}
			fmt.Fprintf(&dl, "- %s: %s", nonEmpty(d.Date), nonEmpty(d.Description))
		}
		deadlinesText = dl.String()
	}

	var b strings.Builder
	b.WriteString("Crie um resumo executivo conciso (2-3 parágrafos) para uma especificação técnica.\n\n")
	b.WriteString("MUDANÇA REGULATÓRIA:\n")
	b.WriteString(m.Description)
	b.WriteString("\n\nREQUISITOS:\n")
	b.WriteString(reqLines.String())
	fmt.Fprintf(&b, "\nSISTEMAS AFETADOS: %s\n\n", systemsText)
	b.WriteString("PRAZOS:\n")
	b.WriteString(deadlinesText)
	b.WriteString("\n\nEscreva um resumo que:\n")
	b.WriteString("1. Explique o propósito da mudança regulatória\n")
	b.WriteString("2. Destaque os principais requisitos técnicos\n")
	b.WriteString("3. Mencione os sistemas impactados e prazos relevantes\n\nResumo:")

	overview, err := gw.Generate(ctx, b.String(), 500)
	if err != nil {
		return fmt.Sprintf("%s\n\nSistemas Afetados: %s", m.Description, systemsText)
	}
	return strings.TrimSpace(overview)
}

func generateAffectedComponents(impacts []state.Impact) string {
	var order []state.ImpactType
	grouped := map[state.ImpactType][]state.Impact{}
	for _, impact := range impacts {
		if _, ok := grouped[impact.ImpactType]; !ok {
			order = append(order, impact.ImpactType)
		}
		grouped[impact.ImpactType] = append(grouped[impact.ImpactType], impact)
	}

	var sections []string
	for _, impactType := range order {
		name, ok := impactTypeDisplayNames[impactType]
		if !ok {
			name = titleCase(strings.ReplaceAll(string(impactType), "_", " "))
		}
		sections = append(sections, fmt.Sprintf("### %s\n", name))

		for _, impact := range grouped[impactType] {
			severity := strings.ToUpper(string(impact.Severity))
			emoji := severityEmoji[impact.Severity]
			if emoji == "" {
				emoji = "⚪"
			}
			sections = append(sections, fmt.Sprintf("- %s **%s** (Severity: %s)", emoji, impact.FilePath, severity))
		}
		sections = append(sections, "")
	}

	return strings.Join(sections, "\n")
}

func generateRequiredChanges(impacts []state.Impact) string {
	var sections []string
	for _, impact := range impacts {
		description := impact.Description
		if description == "" {
			description = "No description available"
		}

		sections = append(sections, fmt.Sprintf("### %s\n", impact.FilePath))
		sections = append(sections, fmt.Sprintf("**Impact Type:** %s", titleCase(strings.ReplaceAll(string(impact.ImpactType), "_", " "))))
		sections = append(sections, fmt.Sprintf("**Severity:** %s\n", strings.ToUpper(string(impact.Severity))))
		sections = append(sections, "**Description:**")
		sections = append(sections, description+"\n")
		sections = append(sections, "**Required Changes:**")
		for _, change := range impact.SuggestedChanges {
			sections = append(sections, "- "+change)
		}
		sections = append(sections, "")
	}
	return strings.Join(sections, "\n")
}

func generateAcceptanceCriteria(ctx context.Context, gw llmgateway.Gateway, m *state.RegulatoryModel) string {
	if len(m.Requirements) == 0 {
		return "- All code changes must be reviewed and tested\n- System must maintain backward compatibility where possible"
	}

	var reqLines strings.Builder
	for i, r := range m.Requirements {
		fmt.Fprintf(&reqLines, "%d. %s\n", i+1, r)
	}

	var b strings.Builder
	b.WriteString("Converta os seguintes requisitos regulatórios em critérios de aceitação testáveis.\n\n")
	b.WriteString("REQUISITOS REGULATÓRIOS:\n")
	b.WriteString(reqLines.String())
	b.WriteString("\nPara cada requisito, crie um critério de aceitação que:\n")
	b.WriteString("- Seja específico e mensurável\n")
	b.WriteString("- Possa ser testado/verificado\n")
	b.WriteString(`- Use formato "GIVEN/WHEN/THEN" ou "O sistema DEVE..."` + "\n\n")
	b.WriteString(`Liste os critérios de aceitação (um por linha, começando com "-"):` + "\n\nCritérios:")

	resp, err := gw.Generate(ctx, b.String(), 800)
	if err != nil {
		var criteria []string
		for _, r := range m.Requirements {
			criteria = append(criteria, "- Verify implementation of: "+r)
		}
		return strings.Join(criteria, "\n")
	}

	var formatted []string
	for _, line := range strings.Split(strings.TrimSpace(resp), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "-") {
			line = "- " + line
		}
		formatted = append(formatted, line)
	}
	if len(formatted) == 0 {
		return "- Verify compliance with all regulatory requirements"
	}
	return strings.Join(formatted, "\n")
}

func calculateEstimatedEffort(impacts []state.Impact) string {
	weights := map[state.Severity]int{state.SeverityHigh: 3, state.SeverityMedium: 2, state.SeverityLow: 1}
	counts := map[state.Severity]int{state.SeverityHigh: 0, state.SeverityMedium: 0, state.SeverityLow: 0}
	total := 0

	for _, impact := range impacts {
		sev := state.Severity(strings.ToLower(string(impact.Severity)))
		if _, ok := counts[sev]; ok {
			counts[sev]++
			total += weights[sev]
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Total Effort Points:** %d\n\n", total)
	b.WriteString("**Breakdown by Severity:**\n")
	fmt.Fprintf(&b, "- High Severity: %d files (×3 points = %d points)\n", counts[state.SeverityHigh], counts[state.SeverityHigh]*3)
	fmt.Fprintf(&b, "- Medium Severity: %d files (×2 points = %d points)\n", counts[state.SeverityMedium], counts[state.SeverityMedium]*2)
	fmt.Fprintf(&b, "- Low Severity: %d files (×1 point = %d points)\n\n", counts[state.SeverityLow], counts[state.SeverityLow]*1)
	fmt.Fprintf(&b, "**Estimated Timeline:** %d developer-days\n\n", total)
	b.WriteString("**Recommendation:**\n")

	switch {
	case total <= 5:
		b.WriteString("This is a small change that can likely be completed in a single sprint.")
	case total <= 15:
		b.WriteString("This is a medium-sized change requiring careful planning and testing across multiple sprints.")
	default:
		b.WriteString("This is a large change requiring significant effort. Consider breaking into phases and allocating multiple sprints.")
	}

	return b.String()
}

func generateMinimalSpec(m *state.RegulatoryModel) string {
	title := m.Title
	if title == "" {
		title = "Technical Specification"
	}
	description := m.Description
	if description == "" {
		description = "No description available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Technical Specification: %s\n\n", title)
	b.WriteString("## Overview\n\n")
	b.WriteString(description)
	b.WriteString("\n\n## Affected Components\n\nNo impacted components identified.\n\n")
	b.WriteString("## Required Changes\n\nNo specific changes identified. Manual analysis required.\n\n")
	b.WriteString("## Acceptance Criteria\n\n")
	b.WriteString("- Review regulatory requirements manually\n- Identify affected systems and components\n- Implement necessary changes to ensure compliance\n\n")
	b.WriteString("## Estimated Effort\n\nUnable to estimate - no impact analysis available.\n")
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
