// Package mcpmanager caches one MCP client per (server, owner) pair so
// that concurrent agents never share a subprocess or authenticated session
// behind each other's backs.
package mcpmanager

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentship/agentship/internal/mcpclient"
	"github.com/agentship/agentship/internal/mcpregistry"
)

const defaultMCPUserIDEnv = "MCP_DEFAULT_USER_ID"
const defaultMCPUserID = "agentship"

// DefaultUserID returns the owner key used for MCP clients invoked outside
// of any specific agent/user context, i.e. the degenerate "shared client"
// case for an empty owner.
func DefaultUserID() string {
	if v := os.Getenv(defaultMCPUserIDEnv); v != "" {
		return v
	}
	return defaultMCPUserID
}

// Manager is the process-wide MCP client cache.
type Manager struct {
	mu         sync.Mutex
	clients    map[string]mcpclient.Client
	tokenStore mcpclient.TokenStore
	logger     mcpclient.Logger
}

// NewManager builds a Manager. tokenStore is used for any HTTP/SSE server
// whose auth type requires one; it may be nil if no such server is ever
// requested.
func NewManager(tokenStore mcpclient.TokenStore, logger mcpclient.Logger) *Manager {
	if logger == nil {
		logger = mcpclient.NoopLogger
	}
	return &Manager{
		clients:    make(map[string]mcpclient.Client),
		tokenStore: tokenStore,
		logger:     logger,
	}
}

func cacheKey(serverID, owner string) string {
	if owner == "" {
		return serverID
	}
	return serverID + ":" + owner
}

// GetClient returns the cached client for (cfg.ID, owner), creating it on
// first use. An empty owner degenerates to a shared client keyed only by
// server id.
func (m *Manager) GetClient(ctx context.Context, cfg mcpregistry.MCPServerConfig, owner string) (mcpclient.Client, error) {
	key := cacheKey(cfg.ID, owner)

	m.mu.Lock()
	if cl, ok := m.clients[key]; ok {
		m.mu.Unlock()
		return cl, nil
	}
	m.mu.Unlock()

	cl, err := m.createClient(cfg, owner)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.clients[key]; ok {
		// Lost the race to another caller; discard ours and use theirs.
		_ = cl.Close(ctx)
		return existing, nil
	}
	m.clients[key] = cl
	m.logger.LogDebug(fmt.Sprintf("mcpmanager: created client for server %s (owner=%s)", cfg.ID, ownerLabel(owner)))
	return cl, nil
}

func ownerLabel(owner string) string {
	if owner == "" {
		return "<shared>"
	}
	return owner
}

func (m *Manager) createClient(cfg mcpregistry.MCPServerConfig, owner string) (mcpclient.Client, error) {
	switch cfg.Transport {
	case mcpregistry.TransportStdio:
		return mcpclient.NewStdioClient(cfg, m.logger)
	case mcpregistry.TransportSSE, mcpregistry.TransportHTTP:
		userID := owner
		if userID == "" {
			userID = DefaultUserID()
		}
		return mcpclient.NewHTTPClient(cfg, userID, m.tokenStore, m.logger)
	default:
		return nil, fmt.Errorf("unsupported MCP transport %q for server %q", cfg.Transport, cfg.ID)
	}
}

// CloseAll closes every cached client concurrently, collecting (not
// aborting on) individual close errors, and clears the cache.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	clients := make(map[string]mcpclient.Client, len(m.clients))
	for k, v := range m.clients {
		clients[k] = v
	}
	m.clients = make(map[string]mcpclient.Client)
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var errs []error
	for key, cl := range clients {
		key, cl := key, cl
		g.Go(func() error {
			if err := cl.Close(gctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("close %s: %w", key, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		joined := errs[0]
		for _, e := range errs[1:] {
			joined = fmt.Errorf("%w; %w", joined, e)
		}
		return joined
	}
	return nil
}
