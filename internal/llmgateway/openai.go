package llmgateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAIGateway wraps the OpenAI Responses API for one-shot text generation
// from a single prompt string.
type OpenAIGateway struct {
	model  string
	client openai.Client
}

// NewOpenAI constructs an OpenAI-backed Gateway.
func NewOpenAI(apiKey, model string, timeout time.Duration) (*OpenAIGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: openai api key is required", ErrLLMAuthError)
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIGateway{
		model: model,
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithRequestTimeout(timeout),
		),
	}, nil
}

// Generate issues a single Responses API call with prompt as the input and
// maxTokens as the request's MaxOutputTokens cap.
func (g *OpenAIGateway) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		MaxOutputTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if msg := strings.TrimSpace(resp.Error.Message); msg != "" {
		return "", fmt.Errorf("%w: %s", ErrLLMInvalidOutput, msg)
	}

	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", ErrLLMEmptyResponse
	}
	return out, nil
}

func classifyOpenAIError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "invalid_api_key"):
		return fmt.Errorf("%w: %v", ErrLLMAuthError, err)
	case strings.Contains(msg, "429"):
		return fmt.Errorf("%w: %v", ErrLLMRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
}

var _ Gateway = (*OpenAIGateway)(nil)
