package api

import "testing"

func TestValidateOpenAPIContract(t *testing.T) {
	t.Parallel()

	if err := ValidateOpenAPIContract(); err != nil {
		t.Fatalf("expected embedded openapi.yaml to validate and cover all routes, got: %v", err)
	}
}
