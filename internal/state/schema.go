package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// sharedStateSchema is the JSON-Schema draft-07 contract for SharedState.
const sharedStateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "execution_id": { "type": "string", "minLength": 1 },
    "raw_regulatory_text": { "type": "string" },
    "repo_path": { "type": "string" },
    "execution_timestamp": { "type": "string" },
    "change_detected": { "type": ["boolean", "null"] },
    "risk_level": { "type": "string", "enum": ["", "low", "medium", "high"] },
    "regulatory_model": {
      "type": ["object", "null"],
      "properties": {
        "title": { "type": "string" },
        "description": { "type": "string" },
        "requirements": { "type": "array", "items": { "type": "string" } },
        "deadlines": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "date": { "type": "string" },
              "description": { "type": "string" }
            },
            "required": ["date", "description"]
          }
        },
        "affected_systems": { "type": "array", "items": { "type": "string" } }
      },
      "required": ["title", "description", "requirements", "deadlines", "affected_systems"]
    },
    "impacted_files": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "file_path": { "type": "string" },
          "relevance_score": { "type": "number", "minimum": 0, "maximum": 1 },
          "snippet": { "type": "string" }
        },
        "required": ["file_path", "relevance_score", "snippet"]
      }
    },
    "impact_analysis": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "file_path": { "type": "string" },
          "impact_type": { "type": "string", "enum": ["schema_change", "business_logic", "validation", "api_contract"] },
          "severity": { "type": "string", "enum": ["low", "medium", "high"] },
          "description": { "type": "string" },
          "suggested_changes": { "type": "array", "items": { "type": "string" } }
        },
        "required": ["file_path", "impact_type", "severity", "description", "suggested_changes"]
      }
    },
    "technical_spec": { "type": "string" },
    "kiro_prompt": { "type": "string" },
    "error": { "type": "string" }
  },
  "required": ["execution_id", "raw_regulatory_text", "impacted_files", "impact_analysis"]
}`

var schemaLoader = gojsonschema.NewStringLoader(sharedStateSchema)

// Validate checks the SharedState against its JSON schema. Per spec, a
// schema violation is a fatal pipeline error, not a recoverable one.
func (s *SharedState) Validate() error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal shared state: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate shared state schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)

	return fmt.Errorf("shared state schema violation: %s", strings.Join(errs, "; "))
}
