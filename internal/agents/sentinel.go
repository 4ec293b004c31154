package agents

import (
	"context"
	"strings"

	"github.com/metalagman/normareg/internal/llmgateway"
	"github.com/metalagman/normareg/internal/state"
)

// changeKeywords signal that regulatory text describes a change to
// existing rules, grounded verbatim on original_source/backend/agents/
// sentinel.py's CHANGE_KEYWORDS list.
var changeKeywords = []string{
	"alteração", "nova regra", "obrigatório", "mudança", "modificação",
	"atualização", "revisão", "novo requisito", "deve", "deverá", "é necessário",
}

var highUrgencyKeywords = []string{
	"imediato", "urgente", "prazo curto", "obrigatório", "compliance",
	"penalidade", "multa", "sanção",
}

var mediumUrgencyKeywords = []string{
	"recomendado", "sugerido", "prazo moderado", "gradual", "transição",
}

// textExcerptLen bounds how much of the raw text is sent to the LLM per
// call, matching sentinel.py's text[:2000] truncation.
const textExcerptLen = 2000

// Sentinel detects whether raw regulatory text describes a change and
// assigns a coarse risk level, grounded on sentinel_agent/_detect_changes/
// _assess_risk in sentinel.py. Two or more keyword hits short-circuit the
// change-detection LLM call; otherwise the LLM is asked a yes/no question,
// with the keywords listed as cues, and its answer is parsed defensively.
// Risk assessment may still call the LLM when no urgency keyword matches.
func Sentinel(ctx context.Context, gw llmgateway.Gateway, s *state.SharedState) error {
	changed, err := detectChanges(ctx, gw, s.RawRegulatoryText)
	if err != nil {
		return err
	}
	s.ChangeDetected = &changed

	s.RiskLevel = assessRisk(ctx, gw, s.RawRegulatoryText, changed)
	return nil
}

func detectChanges(ctx context.Context, gw llmgateway.Gateway, text string) (bool, error) {
	lower := strings.ToLower(text)
	matches := countMatches(lower, changeKeywords)
	if matches >= 2 {
		return true, nil
	}

	prompt := buildChangeDetectionPrompt(text)
	resp, err := gw.Generate(ctx, prompt, 50)
	if err != nil {
		// No keywords at all and the LLM is unavailable: this is the
		// one case sentinel.py treats as a critical, propagated failure.
		if matches == 0 {
			return false, err
		}
		return true, nil
	}
	return strings.Contains(strings.ToLower(resp), "sim"), nil
}

func assessRisk(ctx context.Context, gw llmgateway.Gateway, text string, changeDetected bool) state.RiskLevel {
	if !changeDetected {
		return state.RiskLow
	}

	lower := strings.ToLower(text)
	high := countMatches(lower, highUrgencyKeywords)
	medium := countMatches(lower, mediumUrgencyKeywords)

	switch {
	case high >= 2:
		return state.RiskHigh
	case high >= 1 || medium >= 1:
		return state.RiskMedium
	}

	prompt := buildRiskAssessmentPrompt(text)
	resp, err := gw.Generate(ctx, prompt, 10)
	if err != nil {
		if high > 0 {
			return state.RiskMedium
		}
		return state.RiskLow
	}

	respLower := strings.ToLower(strings.TrimSpace(resp))
	switch {
	case strings.Contains(respLower, "alto") || strings.Contains(respLower, "high"):
		return state.RiskHigh
	case strings.Contains(respLower, "médio") || strings.Contains(respLower, "medio") || strings.Contains(respLower, "medium"):
		return state.RiskMedium
	default:
		return state.RiskLow
	}
}

func countMatches(lowerText string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lowerText, kw) {
			count++
		}
	}
	return count
}

func excerpt(text string) string {
	if len(text) > textExcerptLen {
		return text[:textExcerptLen]
	}
	return text
}

func buildChangeDetectionPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Analise o seguinte texto regulatório e determine se ele descreve mudanças ou alterações em regras existentes.\n\n")
	b.WriteString("Texto:\n")
	b.WriteString(excerpt(text))
	b.WriteString("\n\nPalavras-chave indicativas de mudança: " + strings.Join(changeKeywords, ", "))
	b.WriteString("\n\nResponda apenas com \"SIM\" se o texto descreve mudanças/alterações, ou \"NÃO\" se é apenas informativo.\nResposta:")
	return b.String()
}

func buildRiskAssessmentPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Analise o seguinte texto regulatório e classifique o nível de risco para implementação.\n\n")
	b.WriteString("Texto:\n")
	b.WriteString(excerpt(text))
	b.WriteString("\n\nCritérios:\n")
	b.WriteString("- ALTO: Mudanças obrigatórias com prazos próximos, penalidades mencionadas\n")
	b.WriteString("- MÉDIO: Mudanças recomendadas ou prazos moderados\n")
	b.WriteString("- BAIXO: Informativo ou prazos distantes\n\n")
	b.WriteString("Responda apenas com: ALTO, MÉDIO ou BAIXO\nResposta:")
	return b.String()
}
