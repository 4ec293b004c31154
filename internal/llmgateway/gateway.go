// Package llmgateway provides a pluggable LLM backend abstraction with a
// uniform Generate(prompt, maxTokens) contract, one implementation per
// backend (Ollama, OpenAI, Gemini) behind a shared interface.
package llmgateway

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Gateway generates text from a prompt through one of three backends.
type Gateway interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Sentinel errors forming the gateway's error taxonomy. Callers type-switch
// or errors.Is against these to decide whether a failure is retryable.
var (
	ErrLLMUnavailable   = errors.New("llm unavailable")
	ErrLLMRateLimited   = errors.New("llm rate limited")
	ErrLLMInvalidOutput = errors.New("llm returned invalid output")
	ErrLLMAuthError     = errors.New("llm authentication failed")
	ErrLLMEmptyResponse = errors.New("llm returned an empty response")
)

// ExtractJSON finds the first balanced-looking JSON value (object or array)
// embedded in free-form LLM output. An object is preferred; an array is
// matched only when the output holds no object.
func ExtractJSON(data []byte) ([]byte, bool) {
	if obj, ok := extractBalanced(data, '{', '}'); ok {
		return obj, true
	}
	return extractBalanced(data, '[', ']')
}

func extractBalanced(data []byte, open, close byte) ([]byte, bool) {
	start := bytes.IndexByte(data, open)
	end := bytes.LastIndexByte(data, close)
	if start == -1 || end == -1 || start >= end {
		return nil, false
	}
	return data[start : end+1], true
}

type retryingGateway struct {
	inner      Gateway
	maxRetries uint64
}

// WithRetry wraps a Gateway with exponential backoff over ErrLLMUnavailable
// and ErrLLMRateLimited, the two taxonomy errors that represent a transient
// condition rather than a bad prompt or bad credentials. Auth and parse
// failures pass through on the first attempt.
func WithRetry(g Gateway, maxRetries uint64) Gateway {
	return &retryingGateway{inner: g, maxRetries: maxRetries}
}

func (g *retryingGateway) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewExponential(200*time.Millisecond))

	var out string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := g.inner.Generate(ctx, prompt, maxTokens)
		if err != nil {
			if errors.Is(err, ErrLLMUnavailable) || errors.Is(err, ErrLLMRateLimited) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = res
		return nil
	})
	return out, err
}

type minTokensGateway struct {
	inner Gateway
	floor int
}

// WithMinTokens raises every Generate call's maxTokens up to floor, so a
// caller that asks for a small completion doesn't starve a backend that
// spends part of its budget on internal reasoning before producing output.
func WithMinTokens(g Gateway, floor int) Gateway {
	return &minTokensGateway{inner: g, floor: floor}
}

func (g *minTokensGateway) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens < g.floor {
		maxTokens = g.floor
	}
	return g.inner.Generate(ctx, prompt, maxTokens)
}
