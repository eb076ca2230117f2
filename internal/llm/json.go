package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// appendSchemaInstructions extends the system instructions with the expected
// JSON schema for providers without a schema-constrained output mode.
func appendSchemaInstructions(instructions string, schema map[string]interface{}) string {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return instructions
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(instructions))
	b.WriteString("\n\nRespond with a single JSON object matching this JSON schema, with no surrounding prose:\n")
	b.Write(encoded)
	return b.String()
}

// UnmarshalJSONResponse parses a JSON object out of a model response,
// stripping markdown code fences and stray prose around the object.
func UnmarshalJSONResponse(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("invalid JSON response from AI")
}
