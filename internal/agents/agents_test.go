package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"

	"github.com/metalagman/normareg/internal/embedding"
	"github.com/metalagman/normareg/internal/state"
	"github.com/metalagman/normareg/internal/vectorindex"
)

type stubGateway struct {
	response string
	err      error
}

func (g *stubGateway) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func TestSentinel_KeywordShortcutSkipsLLM(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{err: errors.New("should not be called")}
	s := &state.SharedState{RawRegulatoryText: "Esta é uma alteração obrigatória que estabelece nova regra."}

	if err := Sentinel(context.Background(), gw, s); err != nil {
		t.Fatalf("Sentinel() error = %v", err)
	}
	if s.ChangeDetected == nil || !*s.ChangeDetected {
		t.Fatalf("expected change_detected=true from keyword shortcut")
	}
}

func TestSentinel_NoKeywordsFallsBackToLLM(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{response: "SIM, claramente."}
	s := &state.SharedState{RawRegulatoryText: "Texto neutro sem palavras chave relevantes aqui."}

	if err := Sentinel(context.Background(), gw, s); err != nil {
		t.Fatalf("Sentinel() error = %v", err)
	}
	if s.ChangeDetected == nil || !*s.ChangeDetected {
		t.Fatalf("expected change_detected=true from LLM response containing SIM")
	}
}

func TestSentinel_NoChangeMeansLowRisk(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{response: "NÃO"}
	s := &state.SharedState{RawRegulatoryText: "Apenas um comunicado informativo sem relevância."}

	if err := Sentinel(context.Background(), gw, s); err != nil {
		t.Fatalf("Sentinel() error = %v", err)
	}
	if s.RiskLevel != state.RiskLow {
		t.Fatalf("RiskLevel = %q, want low", s.RiskLevel)
	}
}

func TestSentinel_CriticalFailureWhenNoKeywordsAndLLMFails(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{err: errors.New("llm down")}
	s := &state.SharedState{RawRegulatoryText: "Texto sem nenhuma palavra chave relevante por aqui."}

	if err := Sentinel(context.Background(), gw, s); err == nil {
		t.Fatalf("expected error when no keywords matched and LLM failed")
	}
}

func TestTranslator_ParsesValidJSON(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{response: `{
		"title": "Nova regra Pix",
		"description": "Estabelece novas regras para chaves Pix",
		"requirements": ["Validar formato de chave"],
		"deadlines": [{"date": "2024-12-01", "description": "Prazo final"}],
		"affected_systems": ["Pix"]
	}`}
	s := &state.SharedState{RawRegulatoryText: "RESOLUÇÃO BCB"}

	if err := Translator(context.Background(), gw, s); err != nil {
		t.Fatalf("Translator() error = %v", err)
	}
	if s.RegulatoryModel == nil || s.RegulatoryModel.Title != "Nova regra Pix" {
		t.Fatalf("unexpected regulatory model: %+v", s.RegulatoryModel)
	}
}

func TestTranslator_FallsBackOnInvalidJSON(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{response: "not json at all"}
	s := &state.SharedState{RawRegulatoryText: "Primeira linha do texto\nResto do conteúdo aqui envolvendo pix e ted."}

	if err := Translator(context.Background(), gw, s); err != nil {
		t.Fatalf("Translator() error = %v", err)
	}
	if s.RegulatoryModel == nil {
		t.Fatalf("expected fallback regulatory model")
	}
	if s.RegulatoryModel.Title != "Primeira linha do texto" {
		t.Fatalf("title = %q", s.RegulatoryModel.Title)
	}
	found := map[string]bool{}
	for _, sys := range s.RegulatoryModel.AffectedSystems {
		found[sys] = true
	}
	if !found["Pix"] || !found["Ted"] {
		t.Fatalf("expected system keyword detection, got %+v", s.RegulatoryModel.AffectedSystems)
	}
}

func TestTranslator_FallsBackOnMissingRequiredField(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{response: `{"title": "", "description": "x", "requirements": [], "deadlines": [], "affected_systems": []}`}
	s := &state.SharedState{RawRegulatoryText: "Conteúdo regulatório qualquer sem título válido."}

	if err := Translator(context.Background(), gw, s); err != nil {
		t.Fatalf("Translator() error = %v", err)
	}
	if s.RegulatoryModel.Title == "" {
		t.Fatalf("expected fallback title to be non-empty")
	}
}

func TestGenerateSearchQuery_CombinesFieldsAndLimitsRequirements(t *testing.T) {
	t.Parallel()

	m := &state.RegulatoryModel{
		Title:           "Title",
		Description:     "Desc",
		Requirements:    []string{"r1", "r2", "r3", "r4", "r5", "r6"},
		AffectedSystems: []string{"Pix", "TED"},
	}

	got := generateSearchQuery(m)
	if !strings.Contains(got, "Title") || !strings.Contains(got, "Desc") {
		t.Fatalf("query missing title/description: %q", got)
	}
	if strings.Contains(got, "r6") {
		t.Fatalf("expected requirements truncated to first 5, got %q", got)
	}
	if !strings.Contains(got, "Systems: Pix TED") {
		t.Fatalf("expected systems suffix, got %q", got)
	}
}

func TestCodeReader_NoRegulatoryModelReturnsEmpty(t *testing.T) {
	t.Parallel()

	s := &state.SharedState{}
	if err := CodeReader(context.Background(), nil, nil, false, 0, zerolog.Nop(), s); err != nil {
		t.Fatalf("CodeReader() error = %v", err)
	}
	if s.ImpactedFiles == nil || len(s.ImpactedFiles) != 0 {
		t.Fatalf("expected empty non-nil impacted files, got %+v", s.ImpactedFiles)
	}
}

func TestCodeReader_DegradesOnVectorIndexFailure(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT file_path, content, embedding FROM embeddings").
		WillReturnError(errors.New("connection refused"))

	idx := vectorindex.New(db)
	s := &state.SharedState{
		RegulatoryModel: &state.RegulatoryModel{Title: "Nova regra", Requirements: []string{"r1"}},
	}

	if err := CodeReader(context.Background(), embedding.New(32), idx, false, 0, zerolog.Nop(), s); err != nil {
		t.Fatalf("CodeReader() error = %v, want nil (non-fatal degrade)", err)
	}
	if s.ImpactedFiles == nil || len(s.ImpactedFiles) != 0 {
		t.Fatalf("expected empty non-nil impacted files on search failure, got %+v", s.ImpactedFiles)
	}
}

func TestClassifyImpactType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want state.ImpactType
	}{
		{"backend/database/models.py", state.ImpactSchemaChange},
		{"backend/domain/validators.py", state.ImpactValidation},
		{"backend/api/endpoints.py", state.ImpactAPIContract},
		{"backend/api/schemas.py", state.ImpactAPIContract},
		{"backend/services/pix_service.py", state.ImpactBusinessLogic},
		{"backend/domain/entities.py", state.ImpactBusinessLogic},
		{"backend/unknown/file.py", state.ImpactBusinessLogic},
	}

	for _, tc := range cases {
		if got := classifyImpactType(tc.path); got != tc.want {
			t.Errorf("classifyImpactType(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestParseImpactResponse(t *testing.T) {
	t.Parallel()

	resp := "SEVERIDADE: ALTO\nDESCRIÇÃO: Mudança crítica no validador\nMUDANÇAS:\n- Atualizar regex\n- Adicionar teste\n"
	severity, description, changes := parseImpactResponse(resp)

	if severity != state.SeverityHigh {
		t.Fatalf("severity = %q, want high", severity)
	}
	if !strings.Contains(description, "crítica") {
		t.Fatalf("description = %q", description)
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %+v, want 2 items", changes)
	}
}

func TestParseImpactResponse_DefaultsWhenUnparsable(t *testing.T) {
	t.Parallel()

	severity, description, changes := parseImpactResponse("resposta sem estrutura reconhecida")
	if severity != state.SeverityMedium {
		t.Fatalf("severity = %q, want medium default", severity)
	}
	if description == "" {
		t.Fatalf("expected non-empty fallback description")
	}
	if len(changes) != 1 {
		t.Fatalf("expected one default suggested change, got %+v", changes)
	}
}

func TestImpact_NoImpactedFilesReturnsEmpty(t *testing.T) {
	t.Parallel()

	s := &state.SharedState{RegulatoryModel: &state.RegulatoryModel{Title: "x"}}
	if err := Impact(context.Background(), &stubGateway{}, "/tmp", zerolog.Nop(), s); err != nil {
		t.Fatalf("Impact() error = %v", err)
	}
	if len(s.ImpactAnalysis) != 0 {
		t.Fatalf("expected empty impact analysis")
	}
}

func TestImpact_RequiresRegulatoryModel(t *testing.T) {
	t.Parallel()

	s := &state.SharedState{}
	if err := Impact(context.Background(), &stubGateway{}, "/tmp", zerolog.Nop(), s); err == nil {
		t.Fatalf("expected error when regulatory model is missing")
	}
}

func TestCalculateEstimatedEffort_Weighting(t *testing.T) {
	t.Parallel()

	impacts := []state.Impact{
		{Severity: state.SeverityHigh},
		{Severity: state.SeverityHigh},
		{Severity: state.SeverityMedium},
		{Severity: state.SeverityLow},
	}
	got := calculateEstimatedEffort(impacts)
	if !strings.Contains(got, "Total Effort Points:** 9") {
		t.Fatalf("expected total weight 9 (3+3+2+1), got: %s", got)
	}
}

func TestSpecGenerator_NoImpactAnalysisProducesMinimalSpec(t *testing.T) {
	t.Parallel()

	s := &state.SharedState{RegulatoryModel: &state.RegulatoryModel{Title: "T", Description: "D"}}
	if err := SpecGenerator(context.Background(), &stubGateway{}, s); err != nil {
		t.Fatalf("SpecGenerator() error = %v", err)
	}
	if !strings.Contains(s.TechnicalSpec, "No impacted components identified") {
		t.Fatalf("expected minimal spec markers, got: %s", s.TechnicalSpec)
	}
}

func TestKiroPrompt_RequiresRegulatoryModel(t *testing.T) {
	t.Parallel()

	s := &state.SharedState{}
	if err := KiroPrompt(s); err == nil {
		t.Fatalf("expected error when regulatory model is missing")
	}
}

func TestKiroPrompt_ContainsAllSections(t *testing.T) {
	t.Parallel()

	s := &state.SharedState{
		RegulatoryModel: &state.RegulatoryModel{Title: "Nova regra", Description: "desc", Requirements: []string{"req1"}},
		ImpactAnalysis: []state.Impact{
			{FilePath: "a.py", ImpactType: state.ImpactValidation, Severity: state.SeverityHigh, Description: "d", SuggestedChanges: []string{"c1"}},
		},
	}
	if err := KiroPrompt(s); err != nil {
		t.Fatalf("KiroPrompt() error = %v", err)
	}

	for _, section := range []string{"CONTEXT:", "OBJECTIVE:", "SPECIFIC INSTRUCTIONS:", "FILE MODIFICATIONS:", "VALIDATION STEPS:", "CONSTRAINTS:"} {
		if !strings.Contains(s.KiroPrompt, section) {
			t.Fatalf("kiro prompt missing section %q", section)
		}
	}
}

func TestExtractAcceptanceCriteria(t *testing.T) {
	t.Parallel()

	spec := "# Spec\n\n## Acceptance Criteria\n\n- First criterion\n- Second criterion\n\n## Estimated Effort\n\n- not a criterion"
	got := extractAcceptanceCriteria(spec)
	if len(got) != 2 || got[0] != "First criterion" || got[1] != "Second criterion" {
		t.Fatalf("unexpected criteria: %+v", got)
	}
}
