package toolbuilder

import (
	"encoding/json"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ParamDescriptor is the structural, typed description of one tool
// parameter, built once per tool from its raw JSON-Schema and then reused
// to generate the LLM-facing tool spec and the prompt's tool docs.
// Invocation arguments are not validated against it before a tool runs.
type ParamDescriptor struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// BuildParamDescriptors parses a raw JSON-Schema "object" document (as
// every MCP tool's InputSchema and every function tool's declared schema
// arrive) via kin-openapi and flattens its top-level properties into
// ParamDescriptors, sorted by name for deterministic prompt rendering.
func BuildParamDescriptors(raw map[string]any) ([]ParamDescriptor, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var schema openapi3.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}

	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}

	params := make([]ParamDescriptor, 0, len(schema.Properties))
	for name, ref := range schema.Properties {
		prop := ref.Value
		typ := "any"
		desc := ""
		if prop != nil {
			if prop.Type != nil && len(*prop.Type) > 0 {
				typ = (*prop.Type)[0]
			}
			desc = prop.Description
		}
		params = append(params, ParamDescriptor{
			Name:        name,
			Type:        typ,
			Required:    required[name],
			Description: desc,
		})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params, nil
}

// convertExclusiveBoundsToNumeric rewrites draft-04-style boolean
// exclusiveMinimum/exclusiveMaximum (a boolean modifier alongside
// minimum/maximum) into the draft-06+ numeric form, where the exclusive
// key carries the bound itself; a false modifier is dropped and the plain
// bound kept. This is the same normalization an MCP tool loader applies
// before handing a schema to the LLM provider SDK (some providers' schema
// validators reject the boolean form).
func convertExclusiveBoundsToNumeric(schema map[string]any) {
	convertSchemaRecursive(schema)
}

func convertSchemaRecursive(node any) {
	m, ok := node.(map[string]any)
	if !ok {
		return
	}
	for _, boundKey := range []string{"minimum", "maximum"} {
		exclusiveKey := "exclusive" + capitalize(boundKey)
		if excl, ok := m[exclusiveKey].(bool); ok {
			if excl {
				if bound, ok := m[boundKey]; ok {
					m[exclusiveKey] = bound
					delete(m, boundKey)
				}
			} else {
				delete(m, exclusiveKey)
			}
		}
	}
	if props, ok := m["properties"].(map[string]any); ok {
		for _, v := range props {
			convertSchemaRecursive(v)
		}
	}
	if items, ok := m["items"]; ok {
		convertSchemaRecursive(items)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-32) + s[1:]
}
