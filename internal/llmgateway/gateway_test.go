package llmgateway

import (
	"context"
	"errors"
	"testing"
)

type stubGenerator struct {
	failures int
	err      error
	response string
}

func (g *stubGenerator) Generate(_ context.Context, _ string, _ int) (string, error) {
	if g.failures > 0 {
		g.failures--
		return "", g.err
	}
	return g.response, nil
}

type capturingGenerator struct {
	gotMaxTokens int
}

func (g *capturingGenerator) Generate(_ context.Context, _ string, maxTokens int) (string, error) {
	g.gotMaxTokens = maxTokens
	return "ok", nil
}

func TestWithMinTokens_RaisesBelowFloor(t *testing.T) {
	t.Parallel()

	inner := &capturingGenerator{}
	gw := WithMinTokens(inner, 64)

	if _, err := gw.Generate(context.Background(), "prompt", 10); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if inner.gotMaxTokens != 64 {
		t.Fatalf("gotMaxTokens = %d, want 64", inner.gotMaxTokens)
	}
}

func TestWithMinTokens_LeavesAboveFloorUntouched(t *testing.T) {
	t.Parallel()

	inner := &capturingGenerator{}
	gw := WithMinTokens(inner, 64)

	if _, err := gw.Generate(context.Background(), "prompt", 2000); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if inner.gotMaxTokens != 2000 {
		t.Fatalf("gotMaxTokens = %d, want 2000", inner.gotMaxTokens)
	}
}

func TestWithRetry_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	inner := &stubGenerator{failures: 2, err: ErrLLMUnavailable, response: "ok"}
	gw := WithRetry(inner, 5)

	got, err := gw.Generate(context.Background(), "prompt", 10)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "ok" {
		t.Fatalf("got %q, want ok", got)
	}
}

func TestWithRetry_DoesNotRetryAuthErrors(t *testing.T) {
	t.Parallel()

	inner := &stubGenerator{failures: 1, err: ErrLLMAuthError}
	gw := WithRetry(inner, 5)

	_, err := gw.Generate(context.Background(), "prompt", 10)
	if !errors.Is(err, ErrLLMAuthError) {
		t.Fatalf("expected ErrLLMAuthError to pass through immediately, got %v", err)
	}
	if inner.failures != 0 {
		t.Fatalf("expected exactly one attempt, inner.failures = %d", inner.failures)
	}
}

func TestExtractJSON_Object(t *testing.T) {
	t.Parallel()

	data := []byte("here is the result: {\"title\": \"x\", \"n\": 1} thanks")
	got, ok := ExtractJSON(data)
	if !ok {
		t.Fatalf("expected ok")
	}
	if string(got) != `{"title": "x", "n": 1}` {
		t.Fatalf("got %q", got)
	}
}

func TestExtractJSON_Array(t *testing.T) {
	t.Parallel()

	data := []byte("sure, [\"a\", \"b\"] is the list")
	got, ok := ExtractJSON(data)
	if !ok {
		t.Fatalf("expected ok")
	}
	if string(got) != `["a", "b"]` {
		t.Fatalf("got %q", got)
	}
}

func TestExtractJSON_PrefersObjectOverArray(t *testing.T) {
	t.Parallel()

	data := []byte(`{"items": [1,2,3]}`)
	got, ok := ExtractJSON(data)
	if !ok {
		t.Fatalf("expected ok")
	}
	if string(got) != `{"items": [1,2,3]}` {
		t.Fatalf("got %q", got)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	t.Parallel()

	_, ok := ExtractJSON([]byte("no structured data here"))
	if ok {
		t.Fatalf("expected not ok")
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	t.Parallel()

	// closing brace precedes opening brace: not extractable as balanced.
	_, ok := ExtractJSON([]byte("} weird {"))
	if ok {
		t.Fatalf("expected not ok for inverted braces")
	}
}
