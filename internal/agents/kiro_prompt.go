package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/metalagman/normareg/internal/state"
)

var kiroTypeDisplayNames = map[state.ImpactType]string{
	state.ImpactSchemaChange:  "Database Schema Changes",
	state.ImpactBusinessLogic: "Business Logic Updates",
	state.ImpactValidation:    "Validation Rule Updates",
	state.ImpactAPIContract:   "API Contract Modifications",
}

var kiroSeverityOrder = map[state.Severity]int{
	state.SeverityHigh:   0,
	state.SeverityMedium: 1,
	state.SeverityLow:    2,
}

// KiroPrompt generates a deterministic, plain-text development prompt from
// the accumulated pipeline state, grounded on kiro_prompt_agent/
// _generate_kiro_prompt in kiro_prompt.py.
func KiroPrompt(s *state.SharedState) error {
	if s.RegulatoryModel == nil {
		return fmt.Errorf("regulatory model is required but not set")
	}

	context := kiroContext(s.RegulatoryModel)
	objective := kiroObjective(s.RegulatoryModel)
	instructions := kiroSpecificInstructions(s.ImpactAnalysis)
	modifications := kiroFileModifications(s.ImpactAnalysis)
	validation := kiroValidationSteps(s.TechnicalSpec, s.RegulatoryModel)
	constraints := kiroConstraints()

	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	b.WriteString(context)
	b.WriteString("\n\nOBJECTIVE:\n")
	b.WriteString(objective)
	b.WriteString("\n\nSPECIFIC INSTRUCTIONS:\n")
	b.WriteString(instructions)
	b.WriteString("\n\nFILE MODIFICATIONS:\n")
	b.WriteString(modifications)
	b.WriteString("\n\nVALIDATION STEPS:\n")
	b.WriteString(validation)
	b.WriteString("\n\nCONSTRAINTS:\n")
	b.WriteString(constraints)
	b.WriteString("\n")

	s.KiroPrompt = b.String()
	return nil
}

func kiroContext(m *state.RegulatoryModel) string {
	title := m.Title
	if title == "" {
		title = "Regulatory Change"
	}
	description := m.Description
	if description == "" {
		description = "No description available"
	}

	parts := []string{
		"Regulatory Change: " + title,
		"",
		"Description: " + description,
	}

	if len(m.Requirements) > 0 {
		parts = append(parts, "", "Key Requirements:")
		for i, req := range m.Requirements {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, req))
		}
	}

	if len(m.Deadlines) > 0 {
		parts = append(parts, "", "Deadlines:")
		for _, d := range m.Deadlines {
			parts = append(parts, fmt.Sprintf("- %s: %s", nonEmpty(d.Date), nonEmpty(d.Description)))
		}
	}

	if len(m.AffectedSystems) > 0 {
		parts = append(parts, "", "Affected Systems: "+strings.Join(m.AffectedSystems, ", "))
	}

	return strings.Join(parts, "\n")
}

func kiroObjective(m *state.RegulatoryModel) string {
	title := m.Title
	if title == "" {
		title = "regulatory requirements"
	}
	return "Implement changes to comply with " + title
}

func kiroSpecificInstructions(impacts []state.Impact) string {
	if len(impacts) == 0 {
		return "1. Review regulatory requirements manually\n2. Identify affected code components\n3. Implement necessary changes"
	}

	sorted := make([]state.Impact, len(impacts))
	copy(sorted, impacts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return severityRank(sorted[i].Severity) < severityRank(sorted[j].Severity)
	})

	var order []state.ImpactType
	grouped := map[state.ImpactType][]state.Impact{}
	for _, impact := range sorted {
		if _, ok := grouped[impact.ImpactType]; !ok {
			order = append(order, impact.ImpactType)
		}
		grouped[impact.ImpactType] = append(grouped[impact.ImpactType], impact)
	}

	var instructions []string
	step := 1
	for _, impactType := range order {
		name, ok := kiroTypeDisplayNames[impactType]
		if !ok {
			name = titleCase(strings.ReplaceAll(string(impactType), "_", " "))
		}
		instructions = append(instructions, fmt.Sprintf("%d. %s:", step, name))
		step++

		for _, impact := range grouped[impactType] {
			instructions = append(instructions, fmt.Sprintf("   - [%s] %s", strings.ToUpper(string(impact.Severity)), impact.FilePath))
			if impact.Description != "" {
				instructions = append(instructions, "     "+impact.Description)
			}
		}
		instructions = append(instructions, "")
	}

	instructions = append(instructions, fmt.Sprintf("%d. Run all existing tests to ensure no regressions", step))
	step++
	instructions = append(instructions, fmt.Sprintf("%d. Add new tests to cover regulatory compliance scenarios", step))
	step++
	instructions = append(instructions, fmt.Sprintf("%d. Update documentation to reflect changes", step))

	return strings.Join(instructions, "\n")
}

func severityRank(s state.Severity) int {
	if rank, ok := kiroSeverityOrder[s]; ok {
		return rank
	}
	return 1
}

func kiroFileModifications(impacts []state.Impact) string {
	if len(impacts) == 0 {
		return "No specific file modifications identified. Manual analysis required."
	}

	var modifications []string
	for _, impact := range impacts {
		modifications = append(modifications, fmt.Sprintf("- %s (%s, %s severity):", impact.FilePath, impact.ImpactType, impact.Severity))
		if len(impact.SuggestedChanges) > 0 {
			for _, change := range impact.SuggestedChanges {
				modifications = append(modifications, "  * "+change)
			}
		} else {
			modifications = append(modifications, "  * Review and update as needed")
		}
		modifications = append(modifications, "")
	}
	return strings.Join(modifications, "\n")
}

func kiroValidationSteps(technicalSpec string, m *state.RegulatoryModel) string {
	var steps []string
	stepNum := 1

	if technicalSpec != "" {
		for _, criterion := range extractAcceptanceCriteria(technicalSpec) {
			steps = append(steps, fmt.Sprintf("%d. %s", stepNum, criterion))
			stepNum++
		}
	}

	if len(steps) == 0 && len(m.Requirements) > 0 {
		for _, req := range m.Requirements {
			steps = append(steps, fmt.Sprintf("%d. Verify implementation of: %s", stepNum, req))
			stepNum++
		}
	}

	if len(steps) == 0 {
		steps = append(steps, fmt.Sprintf("%d. Verify all code changes are implemented correctly", stepNum))
		stepNum++
	}

	steps = append(steps, fmt.Sprintf("%d. Verify compliance with regulatory requirements", stepNum))
	stepNum++
	steps = append(steps, fmt.Sprintf("%d. Run existing test suite and ensure all tests pass", stepNum))
	stepNum++
	steps = append(steps, fmt.Sprintf("%d. Perform manual testing of affected functionality", stepNum))
	stepNum++
	steps = append(steps, fmt.Sprintf("%d. Review changes with compliance team", stepNum))

	return strings.Join(steps, "\n")
}

// extractAcceptanceCriteria scans a technical spec's Markdown for the
// "## Acceptance Criteria" section and pulls out its bullet items,
// grounded on kiro_prompt.py's _extract_acceptance_criteria.
func extractAcceptanceCriteria(technicalSpec string) []string {
	var criteria []string
	inSection := false

	for _, line := range strings.Split(technicalSpec, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.Contains(line, "## Acceptance Criteria") || strings.Contains(strings.ToLower(line), "## acceptance criteria") {
			inSection = true
			continue
		}
		if inSection && strings.HasPrefix(trimmed, "##") {
			break
		}
		if inSection && strings.HasPrefix(trimmed, "-") {
			if criterion := strings.TrimSpace(strings.TrimPrefix(trimmed, "-")); criterion != "" {
				criteria = append(criteria, criterion)
			}
		}
	}
	return criteria
}

func kiroConstraints() string {
	return strings.Join([]string{
		"- Maintain backward compatibility where possible",
		"- Follow existing code patterns and conventions",
		"- Update documentation for all changes",
		"- Ensure all changes are properly tested",
		"- Add comments explaining regulatory compliance logic",
		"- Consider performance implications of changes",
		"- Ensure error handling is robust",
		"- Follow security best practices",
		"- Keep changes minimal and focused on requirements",
	}, "\n")
}
