package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON strictly decodes a model completion into v. Models routinely
// wrap JSON in markdown fences or lead with prose, so the decoder first
// trims fences and then falls back to the outermost {...} span. Anything
// that still fails to decode is reported as an error; callers must never
// treat a failed decode as an empty result.
func DecodeJSON(completion string, v any) error {
	s := strings.TrimSpace(completion)
	if s == "" {
		return fmt.Errorf("empty completion")
	}

	s = stripFences(s)

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	// Fall back to the outermost object span.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("completion contains no JSON object")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
