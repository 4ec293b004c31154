package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/metalagman/normareg/internal/llmgateway"
	"github.com/metalagman/normareg/internal/state"
)

// systemKeywords drives the fallback model's affected_systems guess,
// grounded on translator.py's _create_fallback_model system_keywords list.
var systemKeywords = []string{"pix", "pagamento", "transferência", "ted", "doc"}

// Translator extracts a structured RegulatoryModel from raw regulatory
// text, grounded on translator_agent/_extract_structured_data in
// translator.py. An LLM that returns unparsable or invalid JSON falls back
// to a minimal heuristic model rather than failing the pipeline.
func Translator(ctx context.Context, gw llmgateway.Gateway, s *state.SharedState) error {
	model, err := extractRegulatoryModel(ctx, gw, s.RawRegulatoryText)
	if err != nil {
		return err
	}
	s.RegulatoryModel = model
	return nil
}

func extractRegulatoryModel(ctx context.Context, gw llmgateway.Gateway, text string) (*state.RegulatoryModel, error) {
	resp, err := gw.Generate(ctx, buildTranslatorPrompt(text), 2000)
	if err != nil {
		return fallbackRegulatoryModel(text), nil
	}

	model, ok := parseRegulatoryModel(resp)
	if !ok {
		return fallbackRegulatoryModel(text), nil
	}
	if err := validateRegulatoryModel(model); err != nil {
		return fallbackRegulatoryModel(text), nil
	}
	if err := testRoundTrip(model); err != nil {
		return fallbackRegulatoryModel(text), nil
	}
	return model, nil
}

func parseRegulatoryModel(resp string) (*state.RegulatoryModel, bool) {
	var model state.RegulatoryModel
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp)), &model); err == nil {
		return &model, true
	}

	raw, ok := llmgateway.ExtractJSON([]byte(resp))
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, false
	}
	return &model, true
}

// validateRegulatoryModel mirrors translator.py's _validate_regulatory_model:
// title and description must be non-empty, the list fields must be present
// (json.Unmarshal into a nil slice leaves them nil, which is the only
// "missing" state representable after decoding).
func validateRegulatoryModel(m *state.RegulatoryModel) error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("regulatory model must have a non-empty title")
	}
	if strings.TrimSpace(m.Description) == "" {
		return fmt.Errorf("regulatory model must have a non-empty description")
	}
	if m.Requirements == nil {
		return fmt.Errorf("regulatory model must have requirements list (can be empty)")
	}
	if m.Deadlines == nil {
		return fmt.Errorf("regulatory model must have deadlines list (can be empty)")
	}
	if m.AffectedSystems == nil {
		return fmt.Errorf("regulatory model must have affected_systems list (can be empty)")
	}
	for _, d := range m.Deadlines {
		if d.Date == "" || d.Description == "" {
			return fmt.Errorf("deadline must have date and description: %+v", d)
		}
	}
	return nil
}

// testRoundTrip is the Go analog of translator.py's
// _test_round_trip_serialization: serialize, deserialize, and compare.
func testRoundTrip(m *state.RegulatoryModel) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal regulatory model: %w", err)
	}
	var restored state.RegulatoryModel
	if err := json.Unmarshal(data, &restored); err != nil {
		return fmt.Errorf("unmarshal regulatory model: %w", err)
	}

	data2, err := json.Marshal(&restored)
	if err != nil {
		return fmt.Errorf("marshal restored regulatory model: %w", err)
	}
	if string(data) != string(data2) {
		return fmt.Errorf("round-trip serialization produced a different model")
	}
	return nil
}

func fallbackRegulatoryModel(text string) *state.RegulatoryModel {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx != -1 {
		firstLine = text[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)

	title := "Regulatory Change"
	if firstLine != "" {
		title = truncate(firstLine, 100)
	}

	description := "No description available"
	if strings.TrimSpace(text) != "" {
		description = strings.TrimSpace(truncate(text, 500))
	}

	lower := strings.ToLower(text)
	var affected []string
	for _, kw := range systemKeywords {
		if strings.Contains(lower, kw) {
			affected = append(affected, capitalize(kw))
		}
	}
	if len(affected) == 0 {
		affected = []string{"Unknown"}
	}

	return &state.RegulatoryModel{
		Title:           title,
		Description:     description,
		Requirements:    []string{"Manual review required - LLM extraction failed"},
		Deadlines:       []state.Deadline{},
		AffectedSystems: affected,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildTranslatorPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Analise o seguinte texto regulatório e extraia informações estruturadas.\n\n")
	b.WriteString("Texto Regulatório:\n")
	b.WriteString(text)
	b.WriteString("\n\nExtraia as seguintes informações e retorne APENAS um objeto JSON válido (sem texto adicional):\n\n")
	b.WriteString(`{
  "title": "Título breve da mudança regulatória",
  "description": "Descrição detalhada do que a regulação estabelece",
  "requirements": ["Requisito 1", "Requisito 2", "..."],
  "deadlines": [{"date": "YYYY-MM-DD", "description": "Descrição do prazo"}],
  "affected_systems": ["Sistema 1", "Sistema 2", "..."]
}`)
	b.WriteString("\n\nInstruções:\n")
	b.WriteString("- title: Crie um título conciso (máximo 100 caracteres)\n")
	b.WriteString("- description: Resuma o propósito e escopo da regulação\n")
	b.WriteString(`- requirements: Liste itens acionáveis específicos (use verbos como "deve", "precisa")` + "\n")
	b.WriteString("- deadlines: Extraia todas as datas mencionadas no formato YYYY-MM-DD\n")
	b.WriteString(`- affected_systems: Identifique sistemas mencionados (ex: "Pix", "pagamentos", "transferências")` + "\n\n")
	b.WriteString("JSON:")
	return b.String()
}
