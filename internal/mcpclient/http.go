package mcpclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	mcpgo "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentship/agentship/internal/mcpregistry"
)

// HTTPClient is an MCP client over SSE or streamable-HTTP, authenticated via
// a TokenStore when the server config requires it. One HTTPClient is bound
// to a single userID, matching the prototype's per-(server, user) client
// cache key.
type HTTPClient struct {
	cfg        mcpregistry.MCPServerConfig
	userID     string
	tokenStore TokenStore
	logger     Logger

	mu        sync.Mutex
	client    mcpgo.MCPClient
	connected bool
}

// NewHTTPClient builds an HTTPClient for cfg (transport sse or http) scoped
// to userID. tokenStore may be nil when cfg.Auth.Type is AuthNone.
func NewHTTPClient(cfg mcpregistry.MCPServerConfig, userID string, tokenStore TokenStore, logger Logger) (*HTTPClient, error) {
	if cfg.Transport != mcpregistry.TransportSSE && cfg.Transport != mcpregistry.TransportHTTP {
		return nil, fmt.Errorf("HTTPClient requires transport sse or http")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("HTTPClient requires a non-empty URL")
	}
	if logger == nil {
		logger = NoopLogger
	}
	return &HTTPClient{cfg: cfg, userID: userID, tokenStore: tokenStore, logger: logger}, nil
}

func (c *HTTPClient) authHeaders(ctx context.Context) (map[string]string, error) {
	headers := map[string]string{"Accept": "text/event-stream, application/json"}
	if c.cfg.Auth.Type == mcpregistry.AuthNone || c.tokenStore == nil {
		return headers, nil
	}
	tok, err := c.tokenStore.Get(ctx, c.userID, c.cfg.ID)
	if err != nil {
		return nil, err
	}
	headers["Authorization"] = "Bearer " + tok.AccessToken
	return headers, nil
}

func (c *HTTPClient) ensureConnected(ctx context.Context) (mcpgo.MCPClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return c.client, nil
	}

	headers, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	var cl mcpgo.MCPClient
	if c.cfg.Transport == mcpregistry.TransportHTTP {
		cl, err = mcpgo.NewStreamableHttpClient(c.cfg.URL, transport.WithHTTPHeaders(headers))
	} else {
		cl, err = mcpgo.NewSSEMCPClient(c.cfg.URL, transport.WithHeaders(headers))
	}
	if err != nil {
		return nil, fmt.Errorf("build MCP client for %s: %w", c.cfg.ID, err)
	}
	if err := cl.Start(ctx); err != nil {
		return nil, fmt.Errorf("start MCP client for %s: %w", c.cfg.ID, err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{Name: "agentship", Version: "1.0.0"}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}
	if _, err := cl.Initialize(ctx, initRequest); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("initialize MCP server %s: %w", c.cfg.ID, err)
	}

	c.client = cl
	c.connected = true
	return c.client, nil
}

// reconnectOn401 tears down the current connection when err indicates an
// authorization failure, so the next call rebuilds it with a freshly
// refreshed token rather than retrying against a connection pinned to a
// stale Authorization header.
func (c *HTTPClient) reconnectOn401(err error) {
	if err == nil || !strings.Contains(err.Error(), "401") {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		_ = c.client.Close()
	}
	c.client = nil
	c.connected = false
}

func (c *HTTPClient) ListTools(ctx context.Context) ([]mcpregistry.MCPToolInfo, error) {
	cl, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	result, err := cl.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.reconnectOn401(err)
		return nil, fmt.Errorf("list tools on %s: %w", c.cfg.ID, err)
	}
	if c.tokenStore != nil {
		_ = c.tokenStore.Touch(ctx, c.userID, c.cfg.ID)
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

func (c *HTTPClient) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
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
		c.reconnectOn401(err)
		return "", fmt.Errorf("call tool %s on %s: %w", name, c.cfg.ID, err)
	}
	if c.tokenStore != nil {
		_ = c.tokenStore.Touch(ctx, c.userID, c.cfg.ID)
	}
	if result.IsError {
		msg := extractText(result.Content)
		if msg == "" {
			msg = "tool call failed"
		}
		return "", fmt.Errorf("%s", msg)
	}
	return extractText(result.Content), nil
}

func (c *HTTPClient) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	c.connected = false
	if err != nil {
		return fmt.Errorf("close MCP client %s: %w", c.cfg.ID, err)
	}
	return nil
}
