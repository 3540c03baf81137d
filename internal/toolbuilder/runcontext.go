package toolbuilder

import (
	"context"
	"fmt"
)

// RunContext carries the identity of the turn currently executing through
// to any agent tool it invokes, the same way the prototype threads
// RunContext/InvocationContext down through nested agent calls. It also
// tracks delegation depth so a cycle of agents calling each other as tools
// can't recurse forever.
type RunContext struct {
	UserID    string
	SessionID string
	Depth     int
}

// MaxDelegationDepth bounds how many agent-as-tool hops a single turn may
// make. Chosen to comfortably cover legitimate multi-hop delegation chains
// while still failing fast on a misconfigured cycle (see DESIGN.md).
const MaxDelegationDepth = 8

type runContextKey struct{}

// WithRunContext attaches rc to ctx for the duration of a tool invocation.
// An rc with Depth 0 inherits the delegation depth of any RunContext already
// on ctx, so an engine that re-seeds the user/session ids at the start of a
// sub-agent's run does not reset the count ChildRunContext checks.
func WithRunContext(ctx context.Context, rc RunContext) context.Context {
	if rc.Depth == 0 {
		if parent, ok := RunContextFrom(ctx); ok {
			rc.Depth = parent.Depth
		}
	}
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFrom retrieves the RunContext attached by WithRunContext, if
// any. The zero value has an empty UserID/SessionID and Depth 0.
func RunContextFrom(ctx context.Context) (RunContext, bool) {
	rc, ok := ctx.Value(runContextKey{}).(RunContext)
	return rc, ok
}

// ChildRunContext derives the RunContext a sub-agent invocation should run
// with: same user, a synthetic sub-session id distinct from the parent's,
// and an incremented depth. It returns an error once MaxDelegationDepth is
// exceeded so a cyclic agent-tool graph fails the turn instead of hanging.
func ChildRunContext(ctx context.Context, subAgentName string) (RunContext, error) {
	parent, _ := RunContextFrom(ctx)
	if parent.Depth >= MaxDelegationDepth {
		return RunContext{}, fmt.Errorf("agent delegation depth exceeded %d calling %q; likely a cycle", MaxDelegationDepth, subAgentName)
	}
	child := RunContext{
		UserID:    parent.UserID,
		SessionID: fmt.Sprintf("%s::%s#%d", parent.SessionID, subAgentName, parent.Depth+1),
		Depth:     parent.Depth + 1,
	}
	return child, nil
}
