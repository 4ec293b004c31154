// Package state defines the shared state object passed through the normareg
// agent pipeline, mirroring the fields every agent reads from and writes to.
package state

import "time"

// Deadline is a single date extracted from regulatory text.
type Deadline struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// RegulatoryModel is the structured representation produced by the
// Translator agent from raw regulatory text.
type RegulatoryModel struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Requirements    []string   `json:"requirements"`
	Deadlines       []Deadline `json:"deadlines"`
	AffectedSystems []string   `json:"affected_systems"`
}

// ImpactedFile is a code file identified as relevant by the CodeReader agent.
type ImpactedFile struct {
	FilePath       string  `json:"file_path"`
	RelevanceScore float64 `json:"relevance_score"`
	Snippet        string  `json:"snippet"`
}

// ImpactType categorizes the kind of change a file requires.
type ImpactType string

// Severity is the assessed magnitude of an impact.
type Severity string

const (
	ImpactSchemaChange  ImpactType = "schema_change"
	ImpactBusinessLogic ImpactType = "business_logic"
	ImpactValidation    ImpactType = "validation"
	ImpactAPIContract   ImpactType = "api_contract"

	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Impact is the technical-impact analysis for a single file.
type Impact struct {
	FilePath         string     `json:"file_path"`
	ImpactType       ImpactType `json:"impact_type"`
	Severity         Severity   `json:"severity"`
	Description      string     `json:"description"`
	SuggestedChanges []string   `json:"suggested_changes"`
}

// RiskLevel is the Sentinel agent's coarse urgency classification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SharedState is the single mutable object threaded through all six pipeline
// agents. Each agent reads the fields it needs and writes the fields it owns;
// no agent clears a field another agent wrote.
type SharedState struct {
	// Input.
	ExecutionID        string    `json:"execution_id"`
	RawRegulatoryText  string    `json:"raw_regulatory_text"`
	RepoPath           string    `json:"repo_path,omitempty"`
	ExecutionTimestamp time.Time `json:"execution_timestamp"`

	// Sentinel outputs.
	ChangeDetected *bool     `json:"change_detected,omitempty"`
	RiskLevel      RiskLevel `json:"risk_level,omitempty"`

	// Translator outputs.
	RegulatoryModel *RegulatoryModel `json:"regulatory_model,omitempty"`

	// CodeReader outputs.
	ImpactedFiles []ImpactedFile `json:"impacted_files"`

	// Impact outputs.
	ImpactAnalysis []Impact `json:"impact_analysis"`

	// SpecGenerator outputs.
	TechnicalSpec string `json:"technical_spec,omitempty"`

	// PromptBuilder outputs.
	KiroPrompt string `json:"kiro_prompt,omitempty"`

	// Set by the Graph Executor if any agent returns a fatal error.
	Error string `json:"error,omitempty"`
}

// New returns a SharedState ready for the first agent in the pipeline, with
// the list-typed fields defaulting to empty (never nil) slices so JSON
// encodes them as `[]` rather than `null`.
func New(executionID, rawText, repoPath string, now time.Time) *SharedState {
	return &SharedState{
		ExecutionID:        executionID,
		RawRegulatoryText:  rawText,
		RepoPath:           repoPath,
		ExecutionTimestamp: now,
		ImpactedFiles:      []ImpactedFile{},
		ImpactAnalysis:     []Impact{},
	}
}

// Failed reports whether the pipeline halted with a fatal error.
func (s *SharedState) Failed() bool {
	return s.Error != ""
}
