// Package observability defines the Observer callback surface engines
// invoke around agent/model/tool execution. AgentShip ships a no-op
// implementation; wiring a real tracer (Opik or otherwise) is left to the
// embedding application as an external collaborator.
package observability

import "context"

// CallbackContext carries whatever the caller wants an Observer to see
// about the current step; its shape deliberately mirrors the loose
// dict-of-kwargs the prototype's callbacks accept.
type CallbackContext map[string]any

// Observer receives before/after notifications around agent runs, model
// calls, and tool calls.
type Observer interface {
	BeforeAgent(ctx context.Context, cc CallbackContext)
	AfterAgent(ctx context.Context, cc CallbackContext)
	BeforeModel(ctx context.Context, cc CallbackContext)
	AfterModel(ctx context.Context, cc CallbackContext)
	BeforeTool(ctx context.Context, cc CallbackContext)
	AfterTool(ctx context.Context, cc CallbackContext)
}

// NoopObserver discards every callback. It is the default Observer for an
// AgentConfig with no observability provider configured.
type NoopObserver struct{}

func (NoopObserver) BeforeAgent(context.Context, CallbackContext) {}
func (NoopObserver) AfterAgent(context.Context, CallbackContext)  {}
func (NoopObserver) BeforeModel(context.Context, CallbackContext) {}
func (NoopObserver) AfterModel(context.Context, CallbackContext)  {}
func (NoopObserver) BeforeTool(context.Context, CallbackContext)  {}
func (NoopObserver) AfterTool(context.Context, CallbackContext)   {}

var _ Observer = NoopObserver{}

// LoggingObserver narrates every callback through a Logger, for local
// development when no real tracer is configured. Grounded on the same
// debug-logging idiom MCPToolManager uses.
type LoggingObserver struct {
	Log func(msg string)
}

func (o LoggingObserver) emit(step string, cc CallbackContext) {
	if o.Log == nil {
		return
	}
	o.Log(step + ": " + formatContext(cc))
}

func formatContext(cc CallbackContext) string {
	if len(cc) == 0 {
		return "{}"
	}
	out := "{"
	first := true
	for k, v := range cc {
		if !first {
			out += ", "
		}
		first = false
		out += k + "="
		switch vv := v.(type) {
		case string:
			out += vv
		default:
			out += "<value>"
		}
	}
	return out + "}"
}

func (o LoggingObserver) BeforeAgent(_ context.Context, cc CallbackContext) { o.emit("before_agent", cc) }
func (o LoggingObserver) AfterAgent(_ context.Context, cc CallbackContext)  { o.emit("after_agent", cc) }
func (o LoggingObserver) BeforeModel(_ context.Context, cc CallbackContext) { o.emit("before_model", cc) }
func (o LoggingObserver) AfterModel(_ context.Context, cc CallbackContext)  { o.emit("after_model", cc) }
func (o LoggingObserver) BeforeTool(_ context.Context, cc CallbackContext)  { o.emit("before_tool", cc) }
func (o LoggingObserver) AfterTool(_ context.Context, cc CallbackContext)   { o.emit("after_tool", cc) }

var _ Observer = LoggingObserver{}
