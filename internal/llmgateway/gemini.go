package llmgateway

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiGateway calls Google's Gemini API directly through
// google.golang.org/genai's Models.GenerateContent entry point, for plain
// text generation rather than ADK-agent content routing.
type GeminiGateway struct {
	client *genai.Client
	model  string
}

// NewGemini constructs a Gemini-backed Gateway.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", ErrLLMAuthError)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", ErrLLMUnavailable, err)
	}

	return &GeminiGateway{client: client, model: model}, nil
}

// Generate issues a single-turn generation call with maxTokens as the
// output token cap.
func (g *GeminiGateway) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)},
	)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", ErrLLMEmptyResponse
	}
	return out, nil
}

func classifyGeminiError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "API_KEY_INVALID"):
		return fmt.Errorf("%w: %v", ErrLLMAuthError, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("%w: %v", ErrLLMRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
}

var _ Gateway = (*GeminiGateway)(nil)
