package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/metalagman/normareg/internal/llmgateway"
	"github.com/metalagman/normareg/internal/state"
)

var impactFallbackDescriptions = map[state.ImpactType]string{
	state.ImpactSchemaChange:  "Database schema modifications may be required to support new regulatory requirements.",
	state.ImpactBusinessLogic: "Business logic updates needed to implement regulatory compliance rules.",
	state.ImpactValidation:    "Validation rules must be updated to enforce new regulatory constraints.",
	state.ImpactAPIContract:   "API contracts may need modifications to support regulatory data requirements.",
}

// Impact analyzes each identified code file against the RegulatoryModel and
// produces a per-file technical impact assessment, grounded on
// impact_agent/_analyze_file_impact in impact.py. A file that cannot be
// read is skipped, mirroring the original's per-file try/except/continue
// loop rather than failing the whole agent; a file whose LLM analysis call
// fails still gets an entry, built by fallbackImpact.
func Impact(ctx context.Context, gw llmgateway.Gateway, repoPath string, log zerolog.Logger, s *state.SharedState) error {
	if s.RegulatoryModel == nil {
		return fmt.Errorf("regulatory model is required but not set")
	}
	if len(s.ImpactedFiles) == 0 {
		s.ImpactAnalysis = []state.Impact{}
		return nil
	}

	analysis := make([]state.Impact, 0, len(s.ImpactedFiles))
	for _, f := range s.ImpactedFiles {
		if f.FilePath == "" {
			continue
		}

		content, err := loadFileContent(repoPath, f.FilePath)
		if err != nil {
			log.Warn().Err(err).Str("file_path", f.FilePath).Msg("failed to load file for impact analysis")
			continue
		}

		analysis = append(analysis, analyzeFileImpact(ctx, gw, f.FilePath, content, s.RegulatoryModel))
	}

	s.ImpactAnalysis = analysis
	return nil
}

func loadFileContent(repoPath, filePath string) (string, error) {
	fullPath := filepath.Join(repoPath, filePath)
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", fullPath)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is not a file: %s", fullPath)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", fullPath, err)
	}
	return string(data), nil
}

// classifyImpactType mirrors impact.py's _classify_impact_type ordering
// exactly: database models first, then validators, then API layer, then
// services/domain, defaulting to business logic.
func classifyImpactType(filePath string) state.ImpactType {
	lower := strings.ToLower(filePath)

	if strings.Contains(lower, "database") && strings.Contains(lower, "models.py") {
		return state.ImpactSchemaChange
	}
	if strings.Contains(lower, "validators.py") || strings.Contains(lower, "validator") {
		return state.ImpactValidation
	}
	if strings.Contains(lower, "api") && (strings.Contains(lower, "endpoints.py") || strings.Contains(lower, "schemas.py")) {
		return state.ImpactAPIContract
	}
	if strings.Contains(lower, "services") || strings.Contains(lower, "domain") {
		return state.ImpactBusinessLogic
	}
	return state.ImpactBusinessLogic
}

func analyzeFileImpact(ctx context.Context, gw llmgateway.Gateway, filePath, content string, m *state.RegulatoryModel) state.Impact {
	impactType := classifyImpactType(filePath)

	prompt := buildImpactPrompt(filePath, impactType, content, m)
	resp, err := gw.Generate(ctx, prompt, 1500)
	if err != nil {
		return fallbackImpact(filePath, impactType)
	}

	severity, description, changes := parseImpactResponse(resp)
	return state.Impact{
		FilePath:         filePath,
		ImpactType:       impactType,
		Severity:         severity,
		Description:      description,
		SuggestedChanges: changes,
	}
}

func buildImpactPrompt(filePath string, impactType state.ImpactType, content string, m *state.RegulatoryModel) string {
	var reqLines strings.Builder
	for _, r := range m.Requirements {
		reqLines.WriteString("- ")
		reqLines.WriteString(r)
		reqLines.WriteString("\n")
	}

	var b strings.Builder
	b.WriteString("Analise o impacto de uma mudança regulatória em um arquivo de código.\n\n")
	b.WriteString("MUDANÇA REGULATÓRIA:\n")
	fmt.Fprintf(&b, "Título: %s\n", nonEmpty(m.Title))
	fmt.Fprintf(&b, "Descrição: %s\n\n", nonEmpty(m.Description))
	b.WriteString("Requisitos:\n")
	b.WriteString(reqLines.String())
	fmt.Fprintf(&b, "\nSistemas Afetados: %s\n\n", strings.Join(m.AffectedSystems, ", "))
	b.WriteString("ARQUIVO A ANALISAR:\n")
	fmt.Fprintf(&b, "Caminho: %s\n", filePath)
	fmt.Fprintf(&b, "Tipo de Impacto: %s\n\n", impactType)
	b.WriteString("Conteúdo (primeiros 1500 caracteres):\n")
	b.WriteString(truncate(content, 1500))
	b.WriteString("\n\nTAREFA:\n")
	b.WriteString("1. Avalie a SEVERIDADE do impacto (LOW, MEDIUM, HIGH):\n")
	b.WriteString("   - HIGH: Mudanças obrigatórias complexas, múltiplas alterações necessárias\n")
	b.WriteString("   - MEDIUM: Mudanças moderadas, algumas alterações necessárias\n")
	b.WriteString("   - LOW: Mudanças simples ou mínimas\n\n")
	b.WriteString("2. Descreva o IMPACTO: Por que este arquivo precisa ser modificado?\n\n")
	b.WriteString("3. Liste MUDANÇAS SUGERIDAS: Modificações específicas necessárias (3-5 itens)\n\n")
	b.WriteString("Responda no formato:\nSEVERIDADE: [LOW/MEDIUM/HIGH]\nDESCRIÇÃO: [explicação do impacto]\nMUDANÇAS:\n- [mudança 1]\n- [mudança 2]\n- [mudança 3]\n\nResposta:")
	return b.String()
}

func nonEmpty(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// parseImpactResponse mirrors impact.py's _parse_impact_response line-prefix
// state machine: SEVERIDADE:/DESCRIÇÃO:/MUDANÇAS: section markers, with
// unmarked lines appended to the running description while inside that
// section.
func parseImpactResponse(resp string) (state.Severity, string, []string) {
	severity := state.SeverityMedium
	description := "Impact analysis pending"
	var changes []string

	section := ""
	for _, rawLine := range strings.Split(strings.TrimSpace(resp), "\n") {
		line := strings.TrimSpace(rawLine)
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "SEVERIDADE:") || strings.HasPrefix(upper, "SEVERITY:"):
			value := strings.ToUpper(afterColon(line))
			switch {
			case strings.Contains(value, "HIGH") || strings.Contains(value, "ALTO") || strings.Contains(value, "ALTA"):
				severity = state.SeverityHigh
			case strings.Contains(value, "MEDIUM") || strings.Contains(value, "MÉDIO") || strings.Contains(value, "MEDIA"):
				severity = state.SeverityMedium
			case strings.Contains(value, "LOW") || strings.Contains(value, "BAIXO") || strings.Contains(value, "BAIXA"):
				severity = state.SeverityLow
			}
		case strings.HasPrefix(upper, "DESCRIÇÃO:") || strings.HasPrefix(upper, "DESCRIPTION:") || strings.HasPrefix(upper, "IMPACTO:"):
			description = afterColon(line)
			section = "description"
		case strings.HasPrefix(upper, "MUDANÇAS:") || strings.HasPrefix(upper, "CHANGES:") || strings.HasPrefix(upper, "SUGESTÕES:"):
			section = "changes"
		case section == "changes" && strings.HasPrefix(line, "-"):
			if change := strings.TrimSpace(strings.TrimPrefix(line, "-")); change != "" {
				changes = append(changes, change)
			}
		case section == "description" && line != "" && !strings.HasPrefix(line, "-"):
			if !containsAny(upper, "MUDANÇAS:", "CHANGES:", "SEVERIDADE:", "SEVERITY:") {
				description += " " + line
			}
		}
	}

	if len(changes) == 0 {
		changes = []string{"Review and update code to comply with regulatory requirements"}
	}

	description = strings.TrimSpace(description)
	if description == "" || description == "Impact analysis pending" {
		description = "This file requires modifications to comply with the regulatory changes."
	}

	return severity, description, changes
}

func afterColon(line string) string {
	idx := strings.IndexByte(line, ':')
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func fallbackImpact(filePath string, impactType state.ImpactType) state.Impact {
	description, ok := impactFallbackDescriptions[impactType]
	if !ok {
		description = "Code modifications required for regulatory compliance."
	}

	return state.Impact{
		FilePath:    filePath,
		ImpactType:  impactType,
		Severity:    state.SeverityMedium,
		Description: description,
		SuggestedChanges: []string{
			fmt.Sprintf("Review %s against regulatory requirements", filePath),
			"Update code to implement required compliance rules",
			"Add or modify validation logic as needed",
			"Update tests to cover new regulatory scenarios",
		},
	}
}
