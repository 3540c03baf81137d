package agentship

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripCodeFence removes a single surrounding ```json ... ``` or ``` ... ```
// wrapper before JSON parsing is attempted on a non-streaming run's final
// content.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop an optional language tag on the fence's opening line ("json").
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseStructuredOutput strips an optional Markdown code fence, then
// attempts to parse the result as JSON into target. If that fails and
// target has exactly one JSON field, the raw (fence-stripped) content is
// assigned to that field instead. Any other failure is fatal to the turn.
//
// target must be a pointer to a struct with exactly one exported field for
// the single-field fallback to apply; ParseStructuredOutput inspects the
// struct's JSON tags via a throwaway json.Marshal probe rather than
// reflection, keeping this independent of any per-agent generated schema
// type.
func ParseStructuredOutput(content string, target any) error {
	cleaned := stripCodeFence(content)

	firstErr := json.Unmarshal([]byte(cleaned), target)
	if firstErr == nil {
		return nil
	}

	fields, err := singleStringField(target)
	if err != nil {
		return fmt.Errorf("parse structured output: %w", firstErr)
	}
	if len(fields) != 1 {
		return fmt.Errorf("parse structured output: not valid JSON and output schema has %d fields (need exactly 1 for raw-string fallback): %w", len(fields), firstErr)
	}

	wrapped := fmt.Sprintf(`{%q: %s}`, fields[0], mustMarshalString(cleaned))
	if err := json.Unmarshal([]byte(wrapped), target); err != nil {
		return fmt.Errorf("parse structured output: raw-string fallback failed: %w", err)
	}
	return nil
}

func mustMarshalString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// singleStringField probes target's JSON shape by marshaling its zero
// value and reading back the object's keys, letting ParseStructuredOutput
// find the lone field name without importing a reflection-based schema
// walker (kin-openapi is reserved for tool parameter schemas, not output
// schemas — see DESIGN.md).
func singleStringField(target any) ([]string, error) {
	data, err := json.Marshal(target)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("output target is not a JSON object: %w", err)
	}
	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	return fields, nil
}
