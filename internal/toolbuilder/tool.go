package toolbuilder

import "context"

// Tool is the engine-agnostic shape every tool AgentShip builds for an
// agent implements. Engine adapters (internal/engine) wrap a Tool into
// whichever concrete shape the underlying SDK needs (fantasy.AgentTool for
// the native engine, an eino tool.InvokableTool for the orchestrated one).
type Tool struct {
	Name        string
	Description string
	Parameters  []ParamDescriptor
	Kind        ToolKind
	Invoke      func(ctx context.Context, arguments map[string]any) (string, error)
}

// ToolKind distinguishes the three ways a tool can be declared in an
// AgentConfig's tools list, carried through to the StreamEvent so a
// listener can tell a function call from an MCP call from a sub-agent
// delegation.
type ToolKind string

const (
	KindFunction ToolKind = "function"
	KindAgent    ToolKind = "agent"
	KindMCP      ToolKind = "mcp"
)
