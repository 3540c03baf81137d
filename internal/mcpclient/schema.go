package mcpclient

import "encoding/json"

// schemaToMap converts an MCP tool's typed InputSchema (whatever concrete
// shape the mcp-go SDK gives it) into a plain map[string]any JSON-Schema
// document, the form internal/toolbuilder's kin-openapi-based parameter
// descriptor builder expects.
func schemaToMap(schema any) (map[string]any, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
