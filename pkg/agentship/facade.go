// Package agentship is the facade and router glue that sits above every
// other package in this module: the one surface an HTTP/SSE transport, a
// CLI, or an embedding Go application talks to. It wires together config
// loading (internal/config), the MCP subsystem (internal/mcpregistry,
// internal/mcpmanager), the tool manager (internal/toolbuilder), a session
// store (internal/session), and one of the two engines (internal/engine)
// into a single Agent exposing a Chat/ChatStream contract, and caches built
// Agent instances by name so repeated lookups for the same agent share one
// running instance.
package agentship

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"charm.land/fantasy"
	"github.com/cloudwego/eino/flow/agent/react"

	"github.com/agentship/agentship/internal/config"
	"github.com/agentship/agentship/internal/engine"
	"github.com/agentship/agentship/internal/mcpmanager"
	"github.com/agentship/agentship/internal/mcpregistry"
	"github.com/agentship/agentship/internal/message"
	"github.com/agentship/agentship/internal/observability"
	"github.com/agentship/agentship/internal/session"
	"github.com/agentship/agentship/internal/streamevent"
	"github.com/agentship/agentship/internal/toolbuilder"
)

// AgentChatRequest is the input to one turn of conversation with a named
// agent. Query is either a plain string or a JSON-marshalable structured
// value.
type AgentChatRequest struct {
	AgentName string
	UserID    string
	SessionID string
	Sender    string
	Query     any
	Features  map[string]string
	Artifacts []string
}

// AgentChatResponse is the outcome of one turn. Fatal-to-turn errors are
// reported here with Success=false and a human-readable Error rather than
// as a Go error, so a caller always gets a response to show the user.
type AgentChatResponse struct {
	AgentName string
	UserID    string
	SessionID string
	Success   bool
	Content   string
	Error     string
}

// ModelResolver keeps concrete LLM provider SDKs out of this core: given a
// provider+model identifier from an AgentConfig, it returns the client the
// chosen engine drives inference through. An embedding application supplies
// the real implementation (wiring fantasy's provider packages / eino's
// model components); this core never imports a provider SDK directly.
type ModelResolver interface {
	Native(ctx context.Context, provider, model string) (fantasy.LanguageModel, error)
	Orchestrated(ctx context.Context, provider, model string) (react.ToolCallingChatModel, error)
}

// Dependencies are the shared, process-wide collaborators every Agent is
// built against. Functions/Agents/MCPRegistry/MCPManager may be nil when an
// AgentConfig never declares the corresponding tool kind.
type Dependencies struct {
	Functions   *toolbuilder.FunctionRegistry
	Agents      *toolbuilder.AgentRegistry
	MCPRegistry *mcpregistry.Registry
	MCPManager  *mcpmanager.Manager
	Models      ModelResolver
	Observer    observability.Observer
}

// Agent is one configured, runnable agent: an AgentConfig plus the tool
// set, system prompt, session store, and engine built from it.
type Agent struct {
	name string
	cfg  *config.AgentConfig
	deps Dependencies

	mu           sync.RWMutex
	tools        []toolbuilder.Tool
	systemPrompt string
	eng          engine.Engine
	store        session.Store
	nativeStore  *session.NativeStore
}

// NewAgent validates cfg, builds its tool set and engine, and registers it
// in deps.Agents (if non-nil) as a toolbuilder.SubAgent under its own name
// so other agents can declare it as an "agent" tool.
func NewAgent(ctx context.Context, cfg *config.AgentConfig, deps Dependencies) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{name: cfg.AgentName, cfg: cfg, deps: deps}
	if err := a.build(ctx); err != nil {
		return nil, fmt.Errorf("build agent %q: %w", cfg.AgentName, err)
	}
	if deps.Agents != nil {
		deps.Agents.Register(a.name, subAgentAdapter{a})
	}
	return a, nil
}

// Name returns the agent's configured name.
func (a *Agent) Name() string { return a.name }

func (a *Agent) observer() observability.Observer {
	if a.deps.Observer != nil {
		return a.deps.Observer
	}
	return observability.NoopObserver{}
}

// build (re)compiles the tool set, prompt, and engine for the current cfg.
// Called once from NewAgent and again from Rebuild after a config change.
func (a *Agent) build(ctx context.Context) error {
	toolMgr := toolbuilder.NewManager(a.deps.Functions, a.deps.Agents, a.deps.MCPRegistry, a.deps.MCPManager)
	tools, err := toolMgr.CreateTools(ctx, a.cfg, a.name)
	if err != nil {
		return err
	}

	prompt := toolbuilder.NewPromptBuilder(a.cfg.InstructionTemplate).WithToolDocs(tools).Build()
	nativeStore := session.NewNativeStore(a.name)

	var eng engine.Engine
	var store session.Store

	switch a.cfg.ExecutionEngine {
	case config.EngineNative:
		if a.deps.Models == nil {
			return fmt.Errorf("no ModelResolver configured for native agent %q", a.name)
		}
		model, err := a.deps.Models.Native(ctx, a.cfg.Provider, a.cfg.Model)
		if err != nil {
			return fmt.Errorf("resolve native model: %w", err)
		}
		eng = &engine.NativeEngine{
			Model:         model,
			Provider:      a.cfg.Provider,
			Temperature:   a.cfg.Temperature,
			Tools:         tools,
			Store:         nativeStore,
			Observer:      a.observer(),
			MaxToolRounds: a.cfg.EffectiveMaxToolRounds(engine.DefaultMaxToolRounds),
		}
		store = nativeStore
	case config.EngineOrchestrated:
		if a.deps.Models == nil {
			return fmt.Errorf("no ModelResolver configured for orchestrated agent %q", a.name)
		}
		model, err := a.deps.Models.Orchestrated(ctx, a.cfg.Provider, a.cfg.Model)
		if err != nil {
			return fmt.Errorf("resolve orchestrated model: %w", err)
		}
		orchStore := session.NewOrchestratedStore(a.name, nil)
		eng = &engine.OrchestratedEngine{
			Model:    model,
			Tools:    tools,
			Service:  orchStore.Service(),
			Observer: a.observer(),
		}
		store = orchStore
	default:
		return fmt.Errorf("unknown execution_engine %q", a.cfg.ExecutionEngine)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools = tools
	a.systemPrompt = prompt
	a.eng = eng
	a.store = store
	a.nativeStore = nativeStore
	return nil
}

// Rebuild discards and recompiles the agent's tool set, prompt, and engine
// against its current AgentConfig, after a config change. The session
// store's persisted history is untouched.
func (a *Agent) Rebuild(ctx context.Context) error {
	if err := a.build(ctx); err != nil {
		return err
	}
	a.mu.RLock()
	eng := a.eng
	a.mu.RUnlock()
	return eng.Rebuild(ctx)
}

// Tools returns the agent's currently compiled tool set, mostly useful for
// introspection/tests (e.g. asserting PromptBuilder/CreateTools parity).
func (a *Agent) Tools() []toolbuilder.Tool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tools
}

func queryText(q any) string {
	if q == nil {
		return ""
	}
	if s, ok := q.(string); ok {
		return s
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Sprintf("%v", q)
	}
	return string(data)
}

// prepareTurn ensures the session exists, loads any persisted history, and
// returns both the full message list an engine Request needs (system
// prompt + history + the new user turn) and the history-without-system-
// prompt slice new turns get appended onto before being persisted back.
func (a *Agent) prepareTurn(ctx context.Context, req AgentChatRequest) (full, base []message.Message, threadID string, err error) {
	a.mu.RLock()
	store := a.store
	nativeStore := a.nativeStore
	prompt := a.systemPrompt
	a.mu.RUnlock()

	if err := store.EnsureSessionExists(ctx, req.UserID, req.SessionID); err != nil {
		return nil, nil, "", fmt.Errorf("ensure session: %w", err)
	}
	threadID = session.ThreadID(req.UserID, req.SessionID)

	cp, err := nativeStore.GetCheckpointer(ctx)
	if err != nil {
		return nil, nil, threadID, fmt.Errorf("open checkpointer: %w", err)
	}
	checkpoint, err := cp.Load(ctx, threadID)
	if err != nil {
		return nil, nil, threadID, fmt.Errorf("load checkpoint: %w", err)
	}
	if checkpoint != nil {
		base, err = unmarshalHistory(checkpoint.State)
		if err != nil {
			return nil, nil, threadID, fmt.Errorf("decode checkpoint: %w", err)
		}
	}

	userMsg := message.Message{Role: message.RoleUser, Parts: []message.ContentPart{message.TextContent{Text: queryText(req.Query)}}}
	full = make([]message.Message, 0, len(base)+2)
	full = append(full, message.Message{Role: message.RoleSystem, Parts: []message.ContentPart{message.TextContent{Text: prompt}}})
	full = append(full, base...)
	full = append(full, userMsg)

	base = append(append([]message.Message(nil), base...), userMsg)
	return full, base, threadID, nil
}

// persist saves history back to the checkpointer, logging (not failing)
// the turn on a storage error: the user-facing answer already completed,
// and a checkpoint write failure shouldn't discard it (see DESIGN.md).
func (a *Agent) persist(ctx context.Context, threadID string, history []message.Message) {
	data, err := marshalHistory(history)
	if err != nil {
		a.observer().AfterAgent(ctx, observability.CallbackContext{"warning": "encode checkpoint failed: " + err.Error()})
		return
	}
	a.mu.RLock()
	nativeStore := a.nativeStore
	a.mu.RUnlock()
	cp, err := nativeStore.GetCheckpointer(ctx)
	if err != nil {
		a.observer().AfterAgent(ctx, observability.CallbackContext{"warning": "open checkpointer failed: " + err.Error()})
		return
	}
	if err := cp.Save(ctx, threadID, data); err != nil {
		a.observer().AfterAgent(ctx, observability.CallbackContext{"warning": "save checkpoint failed: " + err.Error()})
	}
}

// Chat runs one non-streaming turn.
func (a *Agent) Chat(ctx context.Context, req AgentChatRequest) AgentChatResponse {
	resp := AgentChatResponse{AgentName: a.name, UserID: req.UserID, SessionID: req.SessionID}

	full, base, threadID, err := a.prepareTurn(ctx, req)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	a.mu.RLock()
	eng := a.eng
	a.mu.RUnlock()

	out, err := eng.Run(ctx, engine.Request{UserID: req.UserID, SessionID: req.SessionID, Messages: full})
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	// out.Messages == full + every turn the engine appended; drop the
	// leading system message before persisting (system prompt is rebuilt
	// fresh from config every turn, never itself persisted).
	if len(out.Messages) >= len(full) {
		a.persist(ctx, threadID, out.Messages[1:])
	} else {
		a.persist(ctx, threadID, base)
	}

	resp.Success = true
	resp.Content = out.Content
	return resp
}

func argsToJSON(args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ChatStream runs one streaming turn: the facade emits the leading
// `session` event, then relays every event the engine produces unmodified,
// accumulating enough of the transcript to persist it once the engine's
// channel closes.
func (a *Agent) ChatStream(ctx context.Context, req AgentChatRequest) <-chan streamevent.Event {
	out := make(chan streamevent.Event, 16)
	go a.runStream(ctx, req, out)
	return out
}

func (a *Agent) runStream(ctx context.Context, req AgentChatRequest, out chan<- streamevent.Event) {
	defer close(out)
	emit := func(ev streamevent.Event) {
		select {
		case out <- ev.WithAgent(a.name):
		case <-ctx.Done():
		}
	}

	full, base, threadID, err := a.prepareTurn(ctx, req)
	if err != nil {
		emit(streamevent.Session(req.UserID, req.SessionID, threadID))
		emit(streamevent.Err(err.Error()))
		emit(streamevent.Done())
		return
	}
	emit(streamevent.Session(req.UserID, req.SessionID, threadID))

	a.mu.RLock()
	eng := a.eng
	a.mu.RUnlock()

	events, err := eng.RunStream(ctx, engine.Request{UserID: req.UserID, SessionID: req.SessionID, Messages: full})
	if err != nil {
		emit(streamevent.Err(err.Error()))
		emit(streamevent.Done())
		return
	}

	var assistantText strings.Builder
	var toolCallParts []message.ContentPart
	var toolResultMsgs []message.Message
	for ev := range events {
		switch ev.Kind {
		case streamevent.KindContent:
			if ev.Content != nil {
				assistantText.WriteString(ev.Content.Text)
			}
		case streamevent.KindToolCall:
			if tc := ev.ToolCall; tc != nil {
				toolCallParts = append(toolCallParts, message.ToolCall{ID: tc.ID, Name: tc.Name, Input: argsToJSON(tc.Arguments), Finished: true})
			}
		case streamevent.KindToolResult:
			if tr := ev.ToolResult; tr != nil {
				toolResultMsgs = append(toolResultMsgs, message.Message{
					Role:  message.RoleTool,
					Parts: []message.ContentPart{message.ToolResult{ToolCallID: tr.ID, Name: tr.Name, Content: tr.Result, IsError: tr.IsError}},
				})
			}
		}
		emit(ev)
	}

	updated := append([]message.Message(nil), base...)
	var assistantParts []message.ContentPart
	assistantParts = append(assistantParts, toolCallParts...)
	if assistantText.Len() > 0 {
		assistantParts = append(assistantParts, message.TextContent{Text: assistantText.String()})
	}
	if len(assistantParts) > 0 {
		updated = append(updated, message.Message{Role: message.RoleAssistant, Parts: assistantParts})
	}
	updated = append(updated, toolResultMsgs...)
	a.persist(ctx, threadID, updated)
}

// subAgentAdapter lets *Agent satisfy toolbuilder.SubAgent (a narrower
// Chat contract than the facade's own AgentChatRequest/Response) so an
// "agent" tool declaration can delegate to it without toolbuilder needing
// to import this package (which would be a cycle: toolbuilder -> agentship
// -> toolbuilder).
type subAgentAdapter struct{ agent *Agent }

func (s subAgentAdapter) Chat(ctx context.Context, req toolbuilder.ChatRequest) (toolbuilder.ChatResponse, error) {
	resp := s.agent.Chat(ctx, AgentChatRequest{
		AgentName: s.agent.name,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Query:     req.Input,
	})
	if !resp.Success {
		return toolbuilder.ChatResponse{}, fmt.Errorf("sub-agent %q: %s", s.agent.name, resp.Error)
	}
	return toolbuilder.ChatResponse{Output: resp.Content}, nil
}

var _ toolbuilder.SubAgent = subAgentAdapter{}
