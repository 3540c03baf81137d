package toolbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentship/agentship/internal/config"
	"github.com/agentship/agentship/internal/mcpmanager"
	"github.com/agentship/agentship/internal/mcpregistry"
)

// Manager builds the Tool set for an AgentConfig from its ToolDeclarations,
// resolving function/agent declarations through the registries and MCP
// declarations through the MCP registry + client manager.
type Manager struct {
	functions *FunctionRegistry
	agents    *AgentRegistry
	mcpReg    *mcpregistry.Registry
	mcpMgr    *mcpmanager.Manager
}

// NewManager builds a tool Manager. mcpReg/mcpMgr may be nil if cfg.Tools
// never contains an MCP reference.
func NewManager(functions *FunctionRegistry, agents *AgentRegistry, mcpReg *mcpregistry.Registry, mcpMgr *mcpmanager.Manager) *Manager {
	return &Manager{functions: functions, agents: agents, mcpReg: mcpReg, mcpMgr: mcpMgr}
}

// CreateTools builds every tool an AgentConfig declares. owner scopes MCP
// client lookups (see internal/mcpmanager); an empty owner uses the shared
// client. MCP servers are discovered concurrently since tool discovery is
// one round-trip per server and agents commonly reference several.
//
// A tool declaration that fails to resolve is dropped with its error
// recorded rather than aborting the whole build, the same tolerance
// MCPToolManager.LoadTools applies to individual MCP servers — unless
// every declaration fails, in which case CreateTools returns an error so a
// fully broken agent config is caught at startup.
func (m *Manager) CreateTools(ctx context.Context, cfg *config.AgentConfig, owner string) ([]Tool, error) {
	type result struct {
		tools []Tool
		err   error
	}

	results := make([]result, len(cfg.Tools))
	var wg sync.WaitGroup
	for i, decl := range cfg.Tools {
		i, decl := i, decl
		wg.Add(1)
		go func() {
			defer wg.Done()
			tools, err := m.buildDeclaration(ctx, decl, owner)
			results[i] = result{tools: tools, err: err}
		}()
	}
	wg.Wait()

	var all []Tool
	var errs []string
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err.Error())
			continue
		}
		all = append(all, r.tools...)
	}

	if len(all) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("no tools could be resolved for agent %q: %s", cfg.AgentName, strings.Join(errs, "; "))
	}
	return all, nil
}

func (m *Manager) buildDeclaration(ctx context.Context, decl config.ToolDeclaration, owner string) ([]Tool, error) {
	switch decl.Kind {
	case config.ToolKindFunction:
		return m.buildFunctionTool(decl)
	case config.ToolKindAgent:
		return m.buildAgentTool(decl)
	case config.ToolKindMCP:
		return m.buildMCPTools(ctx, decl, owner)
	default:
		return nil, fmt.Errorf("unknown tool declaration kind %q", decl.Kind)
	}
}

func (m *Manager) buildFunctionTool(decl config.ToolDeclaration) ([]Tool, error) {
	if m.functions == nil {
		return nil, fmt.Errorf("function tool %q declared but no FunctionRegistry configured", decl.RegistryName)
	}
	schema, ok := m.functions.Get(decl.RegistryName)
	if !ok {
		return nil, errNotFound("function", decl.RegistryName)
	}
	params, err := BuildParamDescriptors(schema.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("parse schema for function tool %q: %w", decl.RegistryName, err)
	}
	name := decl.Name
	if name == "" {
		name = decl.RegistryName
	}
	handler := schema.Handler
	return []Tool{{
		Name:        name,
		Description: schema.Description,
		Parameters:  params,
		Kind:        KindFunction,
		Invoke: func(ctx context.Context, arguments map[string]any) (string, error) {
			out, err := handler(ctx, arguments)
			if err != nil {
				return "", err
			}
			return stringifyResult(out)
		},
	}}, nil
}

func (m *Manager) buildAgentTool(decl config.ToolDeclaration) ([]Tool, error) {
	if m.agents == nil {
		return nil, fmt.Errorf("agent tool %q declared but no AgentRegistry configured", decl.RegistryName)
	}
	sub, ok := m.agents.Get(decl.RegistryName)
	if !ok {
		return nil, errNotFound("agent", decl.RegistryName)
	}
	name := decl.Name
	if name == "" {
		name = decl.RegistryName
	}
	return []Tool{{
		Name:        name,
		Description: fmt.Sprintf("Delegate to the %q sub-agent", decl.RegistryName),
		Parameters: []ParamDescriptor{
			{Name: "input", Type: "string", Required: true, Description: "Instruction passed to the sub-agent"},
		},
		Kind: KindAgent,
		Invoke: func(ctx context.Context, arguments map[string]any) (string, error) {
			input, _ := arguments["input"].(string)
			child, err := ChildRunContext(ctx, decl.RegistryName)
			if err != nil {
				return "", err
			}
			resp, err := sub.Chat(WithRunContext(ctx, child), ChatRequest{
				UserID:    child.UserID,
				SessionID: child.SessionID,
				Input:     input,
			})
			if err != nil {
				return "", err
			}
			return resp.Output, nil
		},
	}}, nil
}

func (m *Manager) buildMCPTools(ctx context.Context, decl config.ToolDeclaration, owner string) ([]Tool, error) {
	if m.mcpReg == nil || m.mcpMgr == nil {
		return nil, fmt.Errorf("mcp tool reference %q declared but no MCP registry/manager configured", decl.ServerID)
	}
	serverCfg, ok := m.mcpReg.GetServer(decl.ServerID)
	if !ok {
		return nil, fmt.Errorf("mcp server %q not found in registry", decl.ServerID)
	}

	client, err := m.mcpMgr.GetClient(ctx, serverCfg, owner)
	if err != nil {
		return nil, fmt.Errorf("connect to mcp server %q: %w", decl.ServerID, err)
	}

	infos, err := client.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools on mcp server %q: %w", decl.ServerID, err)
	}

	allow := toSet(decl.AllowedTools)
	deny := toSet(serverCfg.Tools) // unused; the registry-level allow-list is applied below, nil means "all"
	_ = deny

	tools := make([]Tool, 0, len(infos))
	for _, info := range infos {
		if len(allow) > 0 && !allow[info.Name] {
			continue
		}
		if serverCfg.Tools != nil && !contains(serverCfg.Tools, info.Name) {
			continue
		}
		convertExclusiveBoundsToNumeric(info.InputSchema)
		params, err := BuildParamDescriptors(info.InputSchema)
		if err != nil {
			continue
		}
		prefixedName := decl.ServerID + "__" + info.Name
		originalName := info.Name
		tools = append(tools, Tool{
			Name:        prefixedName,
			Description: info.Description,
			Parameters:  params,
			Kind:        KindMCP,
			Invoke: func(ctx context.Context, arguments map[string]any) (string, error) {
				return client.CallTool(ctx, originalName, arguments)
			},
		})
	}
	return tools, nil
}

func stringifyResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal function tool result: %w", err)
	}
	return string(data), nil
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}

func contains(items []string, s string) bool {
	for _, i := range items {
		if i == s {
			return true
		}
	}
	return false
}

// DiscoverServers concurrently lists tools from every server referenced by
// cfg.MCPServers, for callers that want to warm the connection/tool cache
// before the first turn rather than lazily on first use.
func (m *Manager) DiscoverServers(ctx context.Context, cfg *config.AgentConfig, owner string) error {
	if m.mcpReg == nil || m.mcpMgr == nil || len(cfg.MCPServers) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range cfg.MCPServers {
		id := id
		g.Go(func() error {
			serverCfg, ok := m.mcpReg.GetServer(id)
			if !ok {
				return fmt.Errorf("mcp server %q not found in registry", id)
			}
			client, err := m.mcpMgr.GetClient(gctx, serverCfg, owner)
			if err != nil {
				return err
			}
			_, err = client.ListTools(gctx)
			return err
		})
	}
	return g.Wait()
}
