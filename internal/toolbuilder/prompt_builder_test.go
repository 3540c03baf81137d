package toolbuilder

import (
	"context"
	"strings"
	"testing"
)

func TestPromptBuilder_Build(t *testing.T) {
	got := NewPromptBuilder("You are a helpful agent.").
		WithSection("Context", "The user works in Go.").
		Build()
	want := "You are a helpful agent.\n\n# Context\n\nThe user works in Go."
	if got != want {
		t.Errorf("Build() =\n%q\nwant\n%q", got, want)
	}
}

func TestPromptBuilder_SkipsEmptySections(t *testing.T) {
	got := NewPromptBuilder("base").WithSection("Empty", "   ").Build()
	if got != "base" {
		t.Errorf("expected empty section to be skipped, got %q", got)
	}
}

func TestPromptBuilder_WithToolDocs_DocumentsEveryTool(t *testing.T) {
	tools := []Tool{
		{
			Name:        "search",
			Description: "Search the web",
			Parameters:  []ParamDescriptor{{Name: "query", Type: "string", Required: true}},
			Invoke:      func(context.Context, map[string]any) (string, error) { return "", nil },
		},
	}
	prompt := NewPromptBuilder("base").WithToolDocs(tools).Build()
	if !strings.Contains(prompt, "search") || !strings.Contains(prompt, "query") {
		t.Errorf("expected tool docs to mention tool and parameter names, got %q", prompt)
	}

	documented := DocumentedToolNames(tools)
	if !documented["search"] {
		t.Error("expected 'search' to be a documented tool name")
	}
}
