package toolbuilder

import (
	"context"
	"fmt"
	"sync"
)

// FunctionHandler is a statically registered callable a "function" tool
// declaration resolves to. Go has no equivalent of the prototype's
// dotted-import-path tool resolution ("import this callable by string
// path"); registering handlers by name ahead of time is the idiomatic Go
// substitute (see the internal/toolbuilder entry in DESIGN.md).
type FunctionHandler func(ctx context.Context, arguments map[string]any) (any, error)

// FunctionSchema pairs a registered handler with the JSON-Schema that
// describes its parameters, since the schema can't be introspected from a
// plain Go func value.
type FunctionSchema struct {
	Description string
	InputSchema map[string]any
	Handler     FunctionHandler
}

// FunctionRegistry is a process-wide, name-keyed catalog of function tool
// implementations.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]FunctionSchema
}

// NewFunctionRegistry builds an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: make(map[string]FunctionSchema)}
}

// Register adds or replaces a named function tool implementation.
func (r *FunctionRegistry) Register(name string, schema FunctionSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = schema
}

// Get looks up a registered function tool by name.
func (r *FunctionRegistry) Get(name string) (FunctionSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.funcs[name]
	return s, ok
}

// ChatRequest/ChatResponse is the minimal sub-agent delegation contract an
// "agent" tool declaration invokes through.
type ChatRequest struct {
	UserID    string
	SessionID string
	Input     string
}

type ChatResponse struct {
	Output string
}

// SubAgent is anything an "agent" tool declaration can delegate to: another
// AgentShip agent, addressed by name rather than by a direct reference, so
// agents can be declared and wired independently of load order.
type SubAgent interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// AgentRegistry is a process-wide, name-keyed catalog of SubAgents,
// generalizing the prototype's "agent class registry" to Go.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]SubAgent
}

func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]SubAgent)}
}

func (r *AgentRegistry) Register(name string, agent SubAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[name] = agent
}

func (r *AgentRegistry) Get(name string) (SubAgent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

var errNotFound = func(kind, name string) error {
	return fmt.Errorf("%s %q not found in registry", kind, name)
}
