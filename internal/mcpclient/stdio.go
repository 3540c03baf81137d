package mcpclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentship/agentship/internal/mcpregistry"
)

// schedulerToken identifies "which goroutine tree" a StdioClient was
// connected from. Go has no equivalent of Python's per-coroutine event
// loop identity, so this generalizes the prototype's event-loop-mismatch
// check to the thing that actually matters for a subprocess+session pair
// in Go: whether the context under which it was opened has since been
// cancelled. A cancelled context is the Go signal that the caller that
// owned the connection is gone and the pipe should be re-established.
type schedulerToken struct {
	ctx context.Context
}

func (s schedulerToken) stale() bool {
	return s.ctx == nil || s.ctx.Err() != nil
}

// StdioClient is an MCP client over a subprocess's stdin/stdout. It holds
// one subprocess and one initialized session for its lifetime, reconnecting
// transparently if the owning context has gone away since the session was
// established (the Go analogue of the prototype's event-loop-identity
// check).
type StdioClient struct {
	cfg    mcpregistry.MCPServerConfig
	logger Logger

	mu        sync.Mutex
	client    mcpgo.MCPClient
	connected bool
	owner     schedulerToken
}

// NewStdioClient builds a StdioClient for cfg. cfg.Transport must be
// TransportStdio with a non-empty Command.
func NewStdioClient(cfg mcpregistry.MCPServerConfig, logger Logger) (*StdioClient, error) {
	if cfg.Transport != mcpregistry.TransportStdio || len(cfg.Command) == 0 {
		return nil, fmt.Errorf("StdioClient requires transport=stdio and a non-empty command")
	}
	if logger == nil {
		logger = NoopLogger
	}
	return &StdioClient{cfg: cfg, logger: logger}, nil
}

func (c *StdioClient) ensureConnected(ctx context.Context) (mcpgo.MCPClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected && !c.owner.stale() {
		return c.client, nil
	}
	if c.connected {
		c.logger.LogDebug(fmt.Sprintf("mcpclient: owning context gone for %s, reconnecting", c.cfg.ID))
		c.closeLocked()
	}

	command := c.cfg.Command[0]
	args := c.cfg.Command[1:]
	var env []string
	for k, v := range c.cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	stdioTransport := transport.NewStdio(command, env, args...)
	cl := mcpgo.NewClient(stdioTransport)
	if err := stdioTransport.Start(ctx); err != nil {
		return nil, fmt.Errorf("start stdio transport for %s: %w", c.cfg.ID, err)
	}
	time.Sleep(100 * time.Millisecond)

	initCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
	defer cancel()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{Name: "agentship", Version: "1.0.0"}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := cl.Initialize(initCtx, initRequest); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("initialize stdio MCP server %s: %w", c.cfg.ID, err)
	}

	c.client = cl
	c.connected = true
	c.owner = schedulerToken{ctx: ctx}
	return c.client, nil
}

func (c *StdioClient) ListTools(ctx context.Context) ([]mcpregistry.MCPToolInfo, error) {
	cl, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	result, err := cl.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools on %s: %w", c.cfg.ID, err)
	}
	infos := make([]mcpregistry.MCPToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, _ := schemaToMap(t.InputSchema)
		infos = append(infos, mcpregistry.MCPToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return infos, nil
}

func (c *StdioClient) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	cl, err := c.ensureConnected(ctx)
	if err != nil {
		return "", err
	}
	var args any
	if len(arguments) > 0 {
		args = arguments
	} else {
		args = map[string]any{}
	}
	result, err := cl.CallTool(ctx, mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params:  mcp.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		return "", fmt.Errorf("call tool %s on %s: %w", name, c.cfg.ID, err)
	}
	if result.IsError {
		msg := extractText(result.Content)
		if msg == "" {
			msg = "tool call failed"
		}
		return "", fmt.Errorf("%s", msg)
	}
	if text := extractText(result.Content); text != "" {
		return text, nil
	}
	return "", nil
}

func (c *StdioClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

// closeLocked tears down the current client. Errors whose message names
// a cancel-scope/task-group cleanup race (the exact class of noise the
// prototype's stdio client swallows from anyio) are logged at debug level
// rather than returned, since they carry no actionable signal once the
// client has already delivered every response it needed to.
func (c *StdioClient) closeLocked() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	c.connected = false
	c.owner = schedulerToken{}
	if err != nil && !isCleanupNoise(err) {
		return fmt.Errorf("close stdio client %s: %w", c.cfg.ID, err)
	}
	if err != nil {
		c.logger.LogDebug(fmt.Sprintf("mcpclient: ignoring cleanup noise closing %s: %v", c.cfg.ID, err))
	}
	return nil
}

func isCleanupNoise(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "cancel scope")
}
