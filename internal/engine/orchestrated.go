package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"

	"github.com/agentship/agentship/internal/message"
	"github.com/agentship/agentship/internal/observability"
	"github.com/agentship/agentship/internal/session"
	"github.com/agentship/agentship/internal/streamevent"
	"github.com/agentship/agentship/internal/toolbuilder"
)

// OrchestratedEngine delegates the tool loop to eino's ReAct runner instead
// of hand-rolling it, a framework-provided alternative to NativeEngine.
// Control flow is grounded on the same eino-based loop
// Agent.GenerateWithLoopAndStreaming used as NativeEngine's template (see
// DESIGN.md): here the loop itself lives inside react.Agent, and this type
// only adapts construction, session bookkeeping, and event mapping.
type OrchestratedEngine struct {
	Model    react.ToolCallingChatModel
	Tools    []toolbuilder.Tool
	Service  session.SessionService
	Observer observability.Observer

	agent *react.Agent
}

func (e *OrchestratedEngine) EngineName() string { return "orchestrated" }

func (e *OrchestratedEngine) Capabilities() Capabilities {
	return Capabilities{
		SupportedProviders:   []string{"openai", "claude", "ollama"},
		SupportsSSEStreaming: true,
		SupportsToolCalling:  true,
		SupportsBidiStream:   false,
		// Preserve the conservative default: the underlying eino/provider
		// stack can do multimodal, but nothing in this core exercises that
		// path yet.
		SupportsMultimodal: false,
		Notes:              "delegates the tool loop to eino's ReAct runner",
	}
}

// Rebuild discards the compiled react.Agent so the next Run/RunStream call
// recompiles it against the current Tools/Model, picking up a changed
// AgentConfig (e.g. a reloaded tool set).
func (e *OrchestratedEngine) Rebuild(ctx context.Context) error {
	e.agent = nil
	return nil
}

func (e *OrchestratedEngine) ensureAgent(ctx context.Context) (*react.Agent, error) {
	if e.agent != nil {
		return e.agent, nil
	}
	tools := make([]tool.BaseTool, 0, len(e.Tools))
	for _, t := range e.Tools {
		tools = append(tools, einoToolAdapter{t})
	}
	a, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: e.Model,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: tools},
	})
	if err != nil {
		return nil, fmt.Errorf("build eino ReAct agent: %w", err)
	}
	e.agent = a
	return a, nil
}

func (e *OrchestratedEngine) observer() observability.Observer {
	if e.Observer != nil {
		return e.Observer
	}
	return observability.NoopObserver{}
}

func (e *OrchestratedEngine) ensureSession(ctx context.Context, req Request) error {
	if e.Service == nil {
		return nil
	}
	err := e.Service.CreateSession(ctx, "agentship", req.UserID, req.SessionID)
	if err != nil && !session.IsAlreadyExists(err) {
		return fmt.Errorf("ensure orchestrated session: %w", err)
	}
	return nil
}

func toEinoMessages(history []message.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		role := schema.User
		switch m.Role {
		case message.RoleAssistant:
			role = schema.Assistant
		case message.RoleSystem:
			role = schema.System
		case message.RoleTool:
			role = schema.Tool
		}
		out = append(out, &schema.Message{Role: role, Content: m.Content()})
	}
	return out
}

func (e *OrchestratedEngine) Run(ctx context.Context, req Request) (Response, error) {
	ctx = toolbuilder.WithRunContext(ctx, toolbuilder.RunContext{UserID: req.UserID, SessionID: req.SessionID})
	obs := e.observer()
	obs.BeforeAgent(ctx, observability.CallbackContext{"engine": "orchestrated", "session_id": req.SessionID})
	defer obs.AfterAgent(ctx, observability.CallbackContext{"engine": "orchestrated"})

	if err := e.ensureSession(ctx, req); err != nil {
		return Response{}, err
	}
	agent, err := e.ensureAgent(ctx)
	if err != nil {
		return Response{}, err
	}

	obs.BeforeModel(ctx, observability.CallbackContext{"engine": "orchestrated"})
	result, err := agent.Generate(ctx, toEinoMessages(req.Messages))
	if err != nil {
		return Response{}, fmt.Errorf("orchestrated engine generate: %w", err)
	}
	obs.AfterModel(ctx, observability.CallbackContext{"engine": "orchestrated", "decision": einoDecision(result)})

	history := append([]message.Message(nil), req.Messages...)
	history = append(history, message.Message{Role: message.RoleAssistant, Parts: []message.ContentPart{message.TextContent{Text: result.Content}}})
	return Response{Content: result.Content, Messages: history}, nil
}

// einoDecision renders the same "final response"/"call tools: X, Y"
// decision label NativeEngine's AfterModel callback uses, from the eino
// runner's single consolidated result (the runner's internal rounds aren't
// individually observable from here, see DESIGN.md).
func einoDecision(result *schema.Message) string {
	if result == nil || len(result.ToolCalls) == 0 {
		return "final response"
	}
	names := make([]string, len(result.ToolCalls))
	for i, tc := range result.ToolCalls {
		names[i] = tc.Function.Name
	}
	return "call tools: " + strings.Join(names, ", ")
}

// streamDecision is einoDecision's counterpart for the streaming path, built
// from every tool name observed across the whole stream rather than a
// single consolidated schema.Message.
func streamDecision(toolNames []string) string {
	if len(toolNames) == 0 {
		return "final response"
	}
	return "call tools: " + strings.Join(toolNames, ", ")
}

// RunStream iterates the runner's event stream and maps each chunk to the
// normalized StreamEvent shape: a function-call part becomes tool_call, a
// function-response part becomes tool_result, a text part becomes content.
func (e *OrchestratedEngine) RunStream(ctx context.Context, req Request) (<-chan streamevent.Event, error) {
	ctx = toolbuilder.WithRunContext(ctx, toolbuilder.RunContext{UserID: req.UserID, SessionID: req.SessionID})
	if err := e.ensureSession(ctx, req); err != nil {
		return nil, err
	}
	agent, err := e.ensureAgent(ctx)
	if err != nil {
		return nil, err
	}

	e.observer().BeforeModel(ctx, observability.CallbackContext{"engine": "orchestrated"})
	reader, err := agent.Stream(ctx, toEinoMessages(req.Messages))
	if err != nil {
		return nil, fmt.Errorf("orchestrated engine stream: %w", err)
	}

	out := make(chan streamevent.Event, 16)
	go e.pump(ctx, reader, out)
	return out, nil
}

func (e *OrchestratedEngine) pump(ctx context.Context, reader *schema.StreamReader[*schema.Message], out chan<- streamevent.Event) {
	defer close(out)
	defer reader.Close()
	obs := e.observer()

	emit := func(ev streamevent.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	if !emit(streamevent.Thinking("")) {
		return
	}

	var toolNames []string
	for {
		chunk, err := reader.Recv()
		if err != nil {
			if err.Error() == "EOF" {
				obs.AfterModel(ctx, observability.CallbackContext{"engine": "orchestrated", "decision": streamDecision(toolNames)})
				emit(streamevent.Done())
				return
			}
			emit(streamevent.Err(err.Error()))
			emit(streamevent.Done())
			return
		}
		for _, tc := range chunk.ToolCalls {
			toolNames = append(toolNames, tc.Function.Name)
			if !emit(streamevent.ToolCall(tc.ID, tc.Function.Name, "function", parseArguments(tc.Function.Arguments))) {
				return
			}
		}
		if chunk.Role == schema.Tool {
			if !emit(streamevent.ToolResult(chunk.ToolCallID, chunk.Name, streamevent.TruncateResult(chunk.Content), false)) {
				return
			}
			continue
		}
		if chunk.Content != "" {
			if !emit(streamevent.Content(chunk.Content)) {
				return
			}
		}
	}
}

var _ Engine = (*OrchestratedEngine)(nil)

// einoToolAdapter wraps a toolbuilder.Tool as an eino tool.InvokableTool,
// the orchestrated-engine counterpart of native.go's toolbuilderAdapter.
type einoToolAdapter struct {
	tool toolbuilder.Tool
}

func (a einoToolAdapter) Info(ctx context.Context) (*schema.ToolInfo, error) {
	props := make(map[string]*jsonschema.Schema, len(a.tool.Parameters))
	var required []string
	for _, p := range a.tool.Parameters {
		props[p.Name] = &jsonschema.Schema{Type: p.Type, Description: p.Description}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &schema.ToolInfo{
		Name: a.tool.Name,
		Desc: a.tool.Description,
		ParamsOneOf: schema.NewParamsOneOfByJSONSchema(&jsonschema.Schema{
			Type:       "object",
			Properties: props,
			Required:   required,
		}),
	}, nil
}

func (a einoToolAdapter) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	args := parseArguments(argumentsInJSON)
	result, err := a.tool.Invoke(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool %s: %s", a.tool.Name, err.Error()), nil
	}
	return result, nil
}

var _ tool.InvokableTool = einoToolAdapter{}
