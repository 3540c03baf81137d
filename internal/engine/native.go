package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"charm.land/fantasy"

	"github.com/agentship/agentship/internal/message"
	"github.com/agentship/agentship/internal/observability"
	"github.com/agentship/agentship/internal/session"
	"github.com/agentship/agentship/internal/streamevent"
	"github.com/agentship/agentship/internal/toolbuilder"
)

// DefaultMaxToolRounds is the native engine's tool-loop round cap when an
// AgentConfig doesn't override it.
const DefaultMaxToolRounds = 10

const exhaustedMessage = "Max tool iterations reached. Please try again."

// structuredOutputProviders are the provider families the response-format
// hint is sent to: only these accept {"type":"json_object"} without
// erroring.
var structuredOutputProviders = map[string]bool{
	"openai":    true,
	"gemini":    true,
	"vertex_ai": true,
}

// NativeEngine drives inference directly against a fantasy.LanguageModel,
// running its own tool loop rather than delegating to a framework runner.
// Its control flow mirrors an eino-based Agent.GenerateWithLoopAndStreaming
// (see DESIGN.md), generalized from eino's schema.Message/
// ToolCallingChatModel to fantasy's Message/LanguageModel/AgentTool types.
type NativeEngine struct {
	Model         fantasy.LanguageModel
	Provider      string
	Temperature   float64
	Tools         []toolbuilder.Tool
	Store         *session.NativeStore
	Observer      observability.Observer
	MaxToolRounds int
}

func (e *NativeEngine) EngineName() string { return "native" }

func (e *NativeEngine) Capabilities() Capabilities {
	return Capabilities{
		SupportedProviders:   []string{"openai", "claude", "gemini", "ollama"},
		SupportsSSEStreaming: true,
		SupportsToolCalling:  true,
		SupportsBidiStream:   false,
		SupportsMultimodal:   false,
		Notes:                "hand-rolled tool loop against charm.land/fantasy",
	}
}

// Rebuild is a no-op for the native engine: its tool set and system prompt
// are rebuilt by the caller (pkg/agentship) each time CreateTools runs, so
// there is no cached compiled graph to discard here, unlike the
// orchestrated engine's eino runnable.
func (e *NativeEngine) Rebuild(ctx context.Context) error { return nil }

func (e *NativeEngine) maxRounds() int {
	if e.MaxToolRounds > 0 {
		return e.MaxToolRounds
	}
	return DefaultMaxToolRounds
}

func (e *NativeEngine) observer() observability.Observer {
	if e.Observer != nil {
		return e.Observer
	}
	return observability.NoopObserver{}
}

func (e *NativeEngine) threadID(req Request) string {
	return session.ThreadID(req.UserID, req.SessionID)
}

func toolByName(tools []toolbuilder.Tool) map[string]toolbuilder.Tool {
	m := make(map[string]toolbuilder.Tool, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return m
}

// Run executes the tool loop to completion and returns the final content
// and updated message history. It is the non-streaming counterpart of
// RunStream, sharing the same callModel/executeRound steps.
func (e *NativeEngine) Run(ctx context.Context, req Request) (Response, error) {
	ctx = toolbuilder.WithRunContext(ctx, toolbuilder.RunContext{UserID: req.UserID, SessionID: req.SessionID})
	obs := e.observer()
	obs.BeforeAgent(ctx, observability.CallbackContext{"engine": "native", "session_id": req.SessionID})
	defer obs.AfterAgent(ctx, observability.CallbackContext{"engine": "native"})

	history := append([]message.Message(nil), req.Messages...)
	byName := toolByName(e.Tools)

	for round := 0; round < e.maxRounds(); round++ {
		obs.BeforeModel(ctx, observability.CallbackContext{"round": round})
		assistant, toolCalls, err := e.callModel(ctx, history)
		if err != nil {
			return Response{}, fmt.Errorf("native engine round %d: %w", round, err)
		}
		obs.AfterModel(ctx, observability.CallbackContext{"round": round, "decision": modelDecision(toolCalls)})
		history = append(history, assistant)

		if len(toolCalls) == 0 {
			return Response{Content: assistant.Content(), Messages: history}, nil
		}

		history = e.executeRound(ctx, req, byName, toolCalls, history, nil)
	}

	history = append(history, message.Message{Role: message.RoleAssistant, Parts: []message.ContentPart{message.TextContent{Text: exhaustedMessage}}})
	return Response{Content: exhaustedMessage, Messages: history}, nil
}

// RunStream runs the same state machine as Run, emitting a StreamEvent for
// every content chunk, tool call, and tool result. True token-level
// streaming against fantasy.LanguageModel is not exercised by anything in
// the retrieval pack (see DESIGN.md); each round's full response is emitted
// as a single content event rather than incremental deltas, which still
// satisfies the stream's ordering and termination invariants.
func (e *NativeEngine) RunStream(ctx context.Context, req Request) (<-chan streamevent.Event, error) {
	out := make(chan streamevent.Event, 16)
	go func() {
		defer close(out)
		e.runStream(ctx, req, out)
	}()
	return out, nil
}

func (e *NativeEngine) runStream(ctx context.Context, req Request, out chan<- streamevent.Event) {
	ctx = toolbuilder.WithRunContext(ctx, toolbuilder.RunContext{UserID: req.UserID, SessionID: req.SessionID})
	emit := func(ev streamevent.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	obs := e.observer()
	obs.BeforeAgent(ctx, observability.CallbackContext{"engine": "native", "session_id": req.SessionID})
	defer obs.AfterAgent(ctx, observability.CallbackContext{"engine": "native"})

	if !emit(streamevent.Thinking("")) {
		return
	}

	history := append([]message.Message(nil), req.Messages...)
	byName := toolByName(e.Tools)

	for round := 0; round < e.maxRounds(); round++ {
		if ctx.Err() != nil {
			return
		}

		obs.BeforeModel(ctx, observability.CallbackContext{"round": round})
		assistant, toolCalls, err := e.callModel(ctx, history)
		if err != nil {
			emit(streamevent.Err(err.Error()))
			emit(streamevent.Done())
			return
		}
		obs.AfterModel(ctx, observability.CallbackContext{"round": round, "decision": modelDecision(toolCalls)})
		history = append(history, assistant)

		if text := assistant.Content(); text != "" {
			if !emit(streamevent.Content(text)) {
				return
			}
		}

		if len(toolCalls) == 0 {
			emit(streamevent.Done())
			return
		}

		history = e.executeRound(ctx, req, byName, toolCalls, history, func(ev streamevent.Event) { emit(ev) })
	}

	emit(streamevent.Content(exhaustedMessage))
	emit(streamevent.Done())
}

// executeRound runs every tool call from a single LLM turn, in order,
// appending tool-role messages to history and optionally emitting
// tool_call/tool_result events as it goes; a tool_result always follows its
// tool_call in the same request.
func (e *NativeEngine) executeRound(ctx context.Context, req Request, byName map[string]toolbuilder.Tool, calls []message.ToolCall, history []message.Message, emit func(streamevent.Event)) []message.Message {
	obs := e.observer()
	for _, call := range calls {
		args := parseArguments(call.Input)
		tool, ok := byName[call.Name]
		toolType := "function"
		if ok {
			toolType = string(tool.Kind)
		}

		rewritten := rewritePlaceholderUserID(args, req.UserID)
		if emit != nil {
			emit(streamevent.ToolCall(call.ID, call.Name, toolType, rewritten))
		}

		obs.BeforeTool(ctx, observability.CallbackContext{"tool": call.Name, "session_id": req.SessionID, "type": toolType})
		result, isError := e.invokeTool(ctx, tool, ok, call.Name, rewritten)
		obs.AfterTool(ctx, observability.CallbackContext{"tool": call.Name, "is_error": boolLabel(isError)})

		truncated := streamevent.TruncateResult(result)
		if emit != nil {
			emit(streamevent.ToolResult(call.ID, call.Name, truncated, isError))
		}

		history = append(history, message.Message{
			Role: message.RoleTool,
			Parts: []message.ContentPart{message.ToolResult{
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    result,
				IsError:    isError,
			}},
		})
	}
	return history
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// invokeTool runs a single tool invocation, converting a panic-free error
// into the descriptive string the LLM sees rather than propagating it:
// this keeps the tool-call conversation intact since many providers reject
// a turn with an unanswered tool_call.
func (e *NativeEngine) invokeTool(ctx context.Context, tool toolbuilder.Tool, found bool, name string, args map[string]any) (string, bool) {
	if !found {
		return fmt.Sprintf("Error executing tool %s: tool not found", name), true
	}
	result, err := tool.Invoke(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool %s: %s", name, err.Error()), true
	}
	return result, false
}

// modelDecision renders the AfterModel callback's decision string: "final
// response" when the model returned no tool calls, or "call tools: X, Y"
// naming every tool it requested, in the order requested.
func modelDecision(toolCalls []message.ToolCall) string {
	if len(toolCalls) == 0 {
		return "final response"
	}
	names := make([]string, len(toolCalls))
	for i, c := range toolCalls {
		names[i] = c.Name
	}
	return "call tools: " + strings.Join(names, ", ")
}

func parseArguments(input string) map[string]any {
	if strings.TrimSpace(input) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return map[string]any{}
	}
	return args
}

// callModel calls the LLM for one round, retrying on 429, and returns the
// assistant message plus any tool calls it requested.
func (e *NativeEngine) callModel(ctx context.Context, history []message.Message) (message.Message, []message.ToolCall, error) {
	fantasyMessages := make([]fantasy.Message, 0, len(history))
	for _, m := range history {
		fantasyMessages = append(fantasyMessages, m.ToFantasyMessages()...)
	}

	opts := []fantasy.CallOption{fantasy.WithTools(toAgentTools(e.Tools)), fantasy.WithTemperature(e.Temperature)}
	if structuredOutputProviders[e.Provider] {
		opts = append(opts, fantasy.WithResponseFormat(fantasy.ResponseFormatJSON))
	}

	resp, err := callWithRetry(ctx, func() (*fantasy.Response, error) {
		return e.Model.Generate(ctx, fantasyMessages, opts...)
	})
	if err != nil {
		return message.Message{}, nil, err
	}

	assistant := message.FromFantasyMessage(fantasy.Message{Role: fantasy.MessageRoleAssistant, Content: resp.Content})
	return assistant, assistant.ToolCalls(), nil
}

func toAgentTools(tools []toolbuilder.Tool) []fantasy.AgentTool {
	out := make([]fantasy.AgentTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolbuilderAdapter{t})
	}
	return out
}

var _ Engine = (*NativeEngine)(nil)
