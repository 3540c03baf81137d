package toolbuilder

import (
	"context"
	"testing"

	"github.com/agentship/agentship/internal/config"
)

func TestCreateTools_FunctionTool(t *testing.T) {
	funcs := NewFunctionRegistry()
	funcs.Register("echo", FunctionSchema{
		Description: "Echoes its input",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []any{"text"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	})

	mgr := NewManager(funcs, nil, nil, nil)
	cfg := &config.AgentConfig{
		AgentName: "tester",
		Tools: []config.ToolDeclaration{
			{Kind: config.ToolKindFunction, RegistryName: "echo"},
		},
	}

	tools, err := mgr.CreateTools(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("CreateTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("expected one tool named 'echo', got %+v", tools)
	}

	out, err := tools[0].Invoke(context.Background(), map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "hi" {
		t.Errorf("expected 'hi', got %q", out)
	}
}

func TestCreateTools_AllDeclarationsFail_ReturnsError(t *testing.T) {
	mgr := NewManager(NewFunctionRegistry(), nil, nil, nil)
	cfg := &config.AgentConfig{
		AgentName: "tester",
		Tools: []config.ToolDeclaration{
			{Kind: config.ToolKindFunction, RegistryName: "missing"},
		},
	}
	if _, err := mgr.CreateTools(context.Background(), cfg, ""); err == nil {
		t.Fatal("expected error when every tool declaration fails to resolve")
	}
}

func TestCreateTools_PartialFailureStillSucceeds(t *testing.T) {
	funcs := NewFunctionRegistry()
	funcs.Register("good", FunctionSchema{
		Handler: func(context.Context, map[string]any) (any, error) { return "ok", nil },
	})
	mgr := NewManager(funcs, nil, nil, nil)
	cfg := &config.AgentConfig{
		AgentName: "tester",
		Tools: []config.ToolDeclaration{
			{Kind: config.ToolKindFunction, RegistryName: "good"},
			{Kind: config.ToolKindFunction, RegistryName: "missing"},
		},
	}
	tools, err := mgr.CreateTools(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("expected partial success, got error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "good" {
		t.Fatalf("expected only the resolvable tool, got %+v", tools)
	}
}

type fakeSubAgent struct {
	reply string
	// seen records the ChatRequest the sub-agent was actually invoked with,
	// so a test can assert user_id/session_id propagation.
	seen *ChatRequest
}

func (f fakeSubAgent) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	if f.seen != nil {
		*f.seen = req
	}
	return ChatResponse{Output: f.reply}, nil
}

func TestCreateTools_AgentTool(t *testing.T) {
	agents := NewAgentRegistry()
	agents.Register("researcher", fakeSubAgent{reply: "42"})

	mgr := NewManager(nil, agents, nil, nil)
	cfg := &config.AgentConfig{
		AgentName: "tester",
		Tools: []config.ToolDeclaration{
			{Kind: config.ToolKindAgent, RegistryName: "researcher"},
		},
	}
	tools, err := mgr.CreateTools(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("CreateTools: %v", err)
	}
	out, err := tools[0].Invoke(context.Background(), map[string]any{"input": "what is the answer?"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "42" {
		t.Errorf("expected '42', got %q", out)
	}
}

// TestCreateTools_AgentTool_PropagatesRunContext mirrors the sub-agent
// scenario: a turn's user_id/session_id, once seeded onto ctx by the
// calling engine, must reach the sub-agent as that same user_id and a
// sub-session id distinct from the parent's (not a zero-value RunContext).
func TestCreateTools_AgentTool_PropagatesRunContext(t *testing.T) {
	var seen ChatRequest
	agents := NewAgentRegistry()
	agents.Register("researcher", fakeSubAgent{reply: "ok", seen: &seen})

	mgr := NewManager(nil, agents, nil, nil)
	cfg := &config.AgentConfig{
		AgentName: "tester",
		Tools: []config.ToolDeclaration{
			{Kind: config.ToolKindAgent, RegistryName: "researcher"},
		},
	}
	tools, err := mgr.CreateTools(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("CreateTools: %v", err)
	}

	ctx := WithRunContext(context.Background(), RunContext{UserID: "U", SessionID: "S"})
	if _, err := tools[0].Invoke(ctx, map[string]any{"input": "go"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if seen.UserID != "U" {
		t.Errorf("expected sub-agent to see user_id 'U', got %q", seen.UserID)
	}
	if seen.SessionID == "S" || seen.SessionID == "" {
		t.Errorf("expected a sub-session id distinct from 'S', got %q", seen.SessionID)
	}
}
