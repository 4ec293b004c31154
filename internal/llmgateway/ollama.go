package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaGateway talks to a local Ollama server's /api/generate endpoint.
// No Ollama client library exists anywhere in the retrieved corpus, so this
// is a direct net/http port of backend/services/llm.py's OllamaLLM.generate.
type OllamaGateway struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama constructs a Gateway backed by a local Ollama instance.
func NewOllama(baseURL, model string, timeout time.Duration) *OllamaGateway {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama2"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options ollamaOptions  `json:"options"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Generate posts a completion request to Ollama and returns the response
// text, mapping transport failures into the gateway's error taxonomy.
func (g *OllamaGateway) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{NumPredict: maxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ollama response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrLLMRateLimited, resp.StatusCode)
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrLLMAuthError, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: status %d: %s", ErrLLMUnavailable, resp.StatusCode, string(raw))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMInvalidOutput, err)
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", fmt.Errorf("%w", ErrLLMEmptyResponse)
	}
	return parsed.Response, nil
}

var _ Gateway = (*OllamaGateway)(nil)
