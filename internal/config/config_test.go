package config

import "testing"

func TestValidate_RejectsUnknownLLMType(t *testing.T) {
	t.Parallel()

	cfg := Config{LLMType: "unknown", DatabaseURL: "postgres://x", RepoPath: ".", EmbeddingDim: 384}
	if err := cfg.validate(); err == nil {
		t.Fatal("validate returned nil error, want error")
	}
}

func TestValidate_RequiresOpenAIAPIKeyForOpenAIBackend(t *testing.T) {
	t.Parallel()

	cfg := Config{LLMType: LLMBackendOpenAI, DatabaseURL: "postgres://x", RepoPath: ".", EmbeddingDim: 384}
	if err := cfg.validate(); err == nil {
		t.Fatal("validate returned nil error, want error")
	}

	cfg.OpenAIAPIKey = "sk-test"
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
}

func TestValidate_RequiresGeminiAPIKeyForGeminiBackend(t *testing.T) {
	t.Parallel()

	cfg := Config{LLMType: LLMBackendGemini, DatabaseURL: "postgres://x", RepoPath: ".", EmbeddingDim: 384}
	if err := cfg.validate(); err == nil {
		t.Fatal("validate returned nil error, want error")
	}

	cfg.GeminiAPIKey = "test-key"
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
}

func TestValidate_AllowsOllamaBackendWithoutAPIKeys(t *testing.T) {
	t.Parallel()

	cfg := Config{LLMType: LLMBackendOllama, DatabaseURL: "postgres://x", RepoPath: ".", EmbeddingDim: 384}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
}

func TestValidateSettings_AllowsWellFormedSettings(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"llm_type":     "ollama-local",
		"database_url": "postgres://localhost:5432/normareg",
		"repo_path":    ".",
	}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("ValidateSettings returned error: %v", err)
	}
}

func TestValidateSettings_RejectsUnknownLLMType(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"llm_type":     "not-a-backend",
		"database_url": "postgres://localhost:5432/normareg",
		"repo_path":    ".",
	}
	if err := ValidateSettings(settings); err == nil {
		t.Fatal("ValidateSettings returned nil error, want error")
	}
}

func TestRedacted_BlanksAPIKeys(t *testing.T) {
	t.Parallel()

	cfg := Config{OpenAIAPIKey: "sk-real", GeminiAPIKey: "real-key"}
	red := cfg.Redacted()
	if red.OpenAIAPIKey != "***" || red.GeminiAPIKey != "***" {
		t.Fatalf("expected redacted keys, got %+v", red)
	}
	if cfg.OpenAIAPIKey != "sk-real" {
		t.Fatalf("Redacted must not mutate the receiver, got %q", cfg.OpenAIAPIKey)
	}
}

func TestRedacted_LeavesEmptyKeysEmpty(t *testing.T) {
	t.Parallel()

	red := Config{}.Redacted()
	if red.OpenAIAPIKey != "" || red.GeminiAPIKey != "" {
		t.Fatalf("expected empty keys to stay empty, got %+v", red)
	}
}
