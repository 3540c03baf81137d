package toolbuilder

import "testing"

func TestBuildParamDescriptors(t *testing.T) {
	raw := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "search text"},
			"limit": map[string]any{"type": "integer"},
		},
		"required": []any{"query"},
	}

	params, err := BuildParamDescriptors(raw)
	if err != nil {
		t.Fatalf("BuildParamDescriptors: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(params))
	}
	// sorted by name: "limit" before "query"
	if params[0].Name != "limit" || params[1].Name != "query" {
		t.Fatalf("expected sorted [limit query], got %v", params)
	}
	if !params[1].Required {
		t.Error("expected 'query' to be required")
	}
	if params[0].Required {
		t.Error("expected 'limit' to not be required")
	}
	if params[1].Description != "search text" {
		t.Errorf("expected description preserved, got %q", params[1].Description)
	}
}

func TestBuildParamDescriptors_Empty(t *testing.T) {
	params, err := BuildParamDescriptors(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params != nil {
		t.Errorf("expected nil params for empty schema, got %v", params)
	}
}

func TestConvertExclusiveBoundsToNumeric(t *testing.T) {
	schema := map[string]any{
		"type":             "object",
		"minimum":          float64(0),
		"exclusiveMinimum": true,
		"properties": map[string]any{
			"nested": map[string]any{
				"maximum":          float64(100),
				"exclusiveMaximum": false,
			},
		},
	}
	convertExclusiveBoundsToNumeric(schema)

	if _, ok := schema["minimum"]; ok {
		t.Error("expected 'minimum' removed after converting the boolean modifier to numeric exclusiveMinimum")
	}
	if schema["exclusiveMinimum"] != float64(0) {
		t.Errorf("expected exclusiveMinimum to take the numeric bound, got %v", schema["exclusiveMinimum"])
	}

	nested := schema["properties"].(map[string]any)["nested"].(map[string]any)
	if _, ok := nested["exclusiveMaximum"]; ok {
		t.Error("expected exclusiveMaximum=false to be dropped entirely (the numeric form has no boolean modifier)")
	}
	if nested["maximum"] != float64(100) {
		t.Error("expected 'maximum' preserved when exclusiveMaximum was false")
	}
}
