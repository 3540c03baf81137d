// Package streamevent defines the tagged-union streaming protocol every
// engine emits: a strictly ordered sequence of events that always
// terminates with a Done event, even after an Error event.
package streamevent

import "time"

// Kind identifies the shape of a StreamEvent's payload.
type Kind string

const (
	KindThinking   Kind = "thinking"
	KindContent    Kind = "content"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
	KindSession    Kind = "session"
	KindDone       Kind = "done"
	KindError      Kind = "error"
)

// Event is one item in a run's stream. Exactly one of the payload fields is
// populated, matching Kind. Agent and Timestamp are stamped by the facade
// that owns the run, not by the engine that constructs the payload, so a
// single relay point fills them for every event an engine emits regardless
// of which constructor below built it.
type Event struct {
	Kind      Kind      `json:"type"`
	Agent     string    `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Thinking   *ThinkingPayload   `json:"thinking,omitempty"`
	Content    *ContentPayload    `json:"content,omitempty"`
	ToolCall   *ToolCallPayload   `json:"tool_call,omitempty"`
	ToolResult *ToolResultPayload `json:"tool_result,omitempty"`
	Session    *SessionPayload    `json:"session,omitempty"`
	Error      *ErrorPayload      `json:"error,omitempty"`
}

// WithAgent returns a copy of e stamped with the originating agent name and
// the current time, leaving the payload untouched. Used at the point where a
// per-engine event channel is relayed into a facade-level stream.
func (e Event) WithAgent(agent string) Event {
	e.Agent = agent
	e.Timestamp = time.Now()
	return e
}

// ThinkingPayload carries extended-reasoning output, when the provider and
// engine support it.
type ThinkingPayload struct {
	Text string `json:"text"`
}

// ContentPayload carries a chunk (event-based streaming) or the full
// response text (token-based/none streaming) of assistant output.
type ContentPayload struct {
	Text string `json:"text"`
}

// ToolCallPayload announces a tool invocation the engine is about to make.
type ToolCallPayload struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	ToolType  string         `json:"tool_type"` // "function" | "agent" | "mcp"
}

// ToolResultPayload carries the outcome of a tool invocation. Result is
// always a string (truncated by the caller to a reasonable size before
// emission); IsError distinguishes a tool-level failure from a normal
// result, mirroring the "errors are converted to result strings, never
// propagated" rule.
type ToolResultPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Result   string `json:"result"`
	IsError  bool   `json:"is_error"`
}

// SessionPayload announces the thread/session identity a run is attached
// to. Always the first event of a run.
type SessionPayload struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	ThreadID  string `json:"thread_id"`
}

// ErrorPayload carries a run-level failure. An Error event is always
// followed by a Done event, never the terminal event itself.
type ErrorPayload struct {
	Message string `json:"message"`
}

func Thinking(text string) Event { return Event{Kind: KindThinking, Thinking: &ThinkingPayload{Text: text}} }

func Content(text string) Event { return Event{Kind: KindContent, Content: &ContentPayload{Text: text}} }

func ToolCall(id, name, toolType string, args map[string]any) Event {
	return Event{Kind: KindToolCall, ToolCall: &ToolCallPayload{ID: id, Name: name, ToolType: toolType, Arguments: args}}
}

func ToolResult(id, name, result string, isError bool) Event {
	return Event{Kind: KindToolResult, ToolResult: &ToolResultPayload{ID: id, Name: name, Result: result, IsError: isError}}
}

func Session(userID, sessionID, threadID string) Event {
	return Event{Kind: KindSession, Session: &SessionPayload{UserID: userID, SessionID: sessionID, ThreadID: threadID}}
}

func Done() Event { return Event{Kind: KindDone} }

func Err(message string) Event { return Event{Kind: KindError, Error: &ErrorPayload{Message: message}} }

const toolResultTruncateLimit = 500

// TruncateResult caps a tool result string the same way the orchestrated
// engine's ADK-backed formatter does (`str(...)[:500]`), so large tool
// outputs don't dominate the stream.
func TruncateResult(s string) string {
	if len(s) <= toolResultTruncateLimit {
		return s
	}
	return s[:toolResultTruncateLimit]
}
