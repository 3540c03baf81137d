// Package mcpclient implements the per-transport MCP clients: one
// subprocess+session pairing per stdio server, and one authenticated
// HTTP/SSE client per remote server.
package mcpclient

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentship/agentship/internal/mcpregistry"
)

// Client is the transport-agnostic MCP client surface every engine tool
// adapter is built against.
type Client interface {
	ListTools(ctx context.Context) ([]mcpregistry.MCPToolInfo, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (string, error)
	Close(ctx context.Context) error
}

// Logger is the narrow structured-debug interface every client accepts,
// mirroring an injectable DebugLogger.
type Logger interface {
	LogDebug(msg string)
	IsDebugEnabled() bool
}

type noopLogger struct{}

func (noopLogger) LogDebug(string)      {}
func (noopLogger) IsDebugEnabled() bool { return false }

// NoopLogger is a Logger that discards everything.
var NoopLogger Logger = noopLogger{}

func extractText(content []mcp.Content) string {
	for _, block := range content {
		if tc, ok := block.(mcp.TextContent); ok && tc.Text != "" {
			return tc.Text
		}
	}
	return ""
}
