// Package engine implements the tool-loop state machine that drives an
// agent's turn: the native engine (a hand-rolled loop against
// charm.land/fantasy) and the orchestrated engine (a thin wrapper around
// eino's ReAct runner), both behind the same Engine interface, plus a
// middleware engine that wraps either.
package engine

import (
	"context"

	"github.com/agentship/agentship/internal/message"
	"github.com/agentship/agentship/internal/streamevent"
)

// Capabilities describes what an engine implementation supports, so a
// caller can make decisions (e.g. whether to offer streaming) without a
// type switch on the concrete engine.
type Capabilities struct {
	SupportedProviders   []string
	SupportsSSEStreaming bool
	SupportsToolCalling  bool
	SupportsBidiStream   bool
	SupportsMultimodal   bool
	Notes                string
}

// Request is the prepared input to a single turn: the full message history
// (system + prior turns + the new user message), already resolved by the
// caller from the session store and the agent's instruction template.
type Request struct {
	UserID    string
	SessionID string
	Messages  []message.Message
}

// Response is the result of a non-streaming run.
type Response struct {
	// Content is the final assistant text as the model returned it. The
	// engines do not parse it into a structured output schema;
	// pkg/agentship.ParseStructuredOutput is a separate helper for that.
	Content string
	// Messages is the full updated history, including every tool-call and
	// tool-result message appended during the loop, for the caller to
	// persist back to the session store.
	Messages []message.Message
}

// Engine is the component that executes an agent's turn(s), owns the tool
// loop, and produces the stream. NativeEngine and OrchestratedEngine are
// the two concrete implementations; MiddlewareEngine wraps either.
type Engine interface {
	EngineName() string
	Capabilities() Capabilities
	// Rebuild discards any cached internal state (compiled tool set, system
	// prompt) so the next Run/RunStream picks up a changed AgentConfig.
	Rebuild(ctx context.Context) error
	Run(ctx context.Context, req Request) (Response, error)
	RunStream(ctx context.Context, req Request) (<-chan streamevent.Event, error)
}

// Middleware transforms a Request before Run/RunStream and a Response
// after. Streaming is pass-through: middlewares never see or mutate
// individual StreamEvents, only the Request going in.
type Middleware interface {
	BeforeRun(ctx context.Context, req Request) (Request, error)
	AfterRun(ctx context.Context, resp Response) (Response, error)
}

// MiddlewareEngine wraps an Engine with an ordered chain of Middlewares:
// BeforeRun runs in order on the way in, AfterRun runs in reverse order on
// the way out, the same hook-chain idiom pkg/kit's BeforeTurn/AfterTurn
// hooks use, generalized to the engine boundary.
type MiddlewareEngine struct {
	inner       Engine
	middlewares []Middleware
}

// NewMiddlewareEngine wraps inner with middlewares, applied in the given
// order on BeforeRun and in reverse on AfterRun.
func NewMiddlewareEngine(inner Engine, middlewares ...Middleware) *MiddlewareEngine {
	return &MiddlewareEngine{inner: inner, middlewares: middlewares}
}

func (e *MiddlewareEngine) EngineName() string          { return e.inner.EngineName() }
func (e *MiddlewareEngine) Capabilities() Capabilities   { return e.inner.Capabilities() }
func (e *MiddlewareEngine) Rebuild(ctx context.Context) error { return e.inner.Rebuild(ctx) }

func (e *MiddlewareEngine) before(ctx context.Context, req Request) (Request, error) {
	for _, mw := range e.middlewares {
		var err error
		req, err = mw.BeforeRun(ctx, req)
		if err != nil {
			return req, err
		}
	}
	return req, nil
}

func (e *MiddlewareEngine) after(ctx context.Context, resp Response) (Response, error) {
	for i := len(e.middlewares) - 1; i >= 0; i-- {
		var err error
		resp, err = e.middlewares[i].AfterRun(ctx, resp)
		if err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (e *MiddlewareEngine) Run(ctx context.Context, req Request) (Response, error) {
	req, err := e.before(ctx, req)
	if err != nil {
		return Response{}, err
	}
	resp, err := e.inner.Run(ctx, req)
	if err != nil {
		return Response{}, err
	}
	return e.after(ctx, resp)
}

// RunStream applies BeforeRun to the request but passes stream events
// through unmodified, per spec: middlewares may not mutate a stream in
// this core.
func (e *MiddlewareEngine) RunStream(ctx context.Context, req Request) (<-chan streamevent.Event, error) {
	req, err := e.before(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.inner.RunStream(ctx, req)
}

var _ Engine = (*MiddlewareEngine)(nil)
