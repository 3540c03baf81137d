package mcpregistry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// bareVarPattern matches the plain ${VAR} grammar used in MCP server
// definitions (as opposed to internal/config's richer ${env://VAR:-default}
// grammar used for kit's own config file).
var bareVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func resolveEnvVarString(s string) string {
	return bareVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := bareVarPattern.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

func resolveEnvVars(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = resolveEnvVarString(v)
	}
	return out
}

// Registry is the global MCP server definitions registry: a process-wide
// catalog of MCPServerConfig entries loaded from a single file, keyed by id.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]MCPServerConfig
}

var (
	instanceMu sync.Mutex
	instance   *Registry
)

// GetInstance returns the process-wide Registry singleton, loading it from
// the first config file found (see findConfigFile) on first use.
func GetInstance() (*Registry, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return instance, nil
	}
	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	reg, err := Load(path)
	if err != nil {
		return nil, err
	}
	instance = reg
	return instance, nil
}

// ResetInstance clears the singleton (for tests).
func ResetInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}

// findConfigFile resolves the registry file path by priority: the
// MCP_SERVERS_CONFIG env var, then .mcp.settings.json, then
// mcp_servers.yaml, then mcp_servers.json, all relative to the working
// directory.
func findConfigFile() (string, error) {
	if p := os.Getenv("MCP_SERVERS_CONFIG"); p != "" {
		return p, nil
	}
	candidates := []string{".mcp.settings.json", "mcp_servers.yaml", "mcp_servers.json"}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no MCP server config file found (tried %v and $MCP_SERVERS_CONFIG)", candidates)
}

// Load reads and parses a registry file (YAML or JSON by extension),
// accepting either a top-level "servers" or "mcpServers" key. Entries that
// fail to normalize are skipped with their error recorded rather than
// aborting the whole load, mirroring the prototype's per-entry tolerance.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read MCP registry %q: %w", path, err)
	}

	var root map[string]any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("parse MCP registry %q: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("parse MCP registry %q: %w", path, err)
		}
	}

	raw, ok := root["servers"].(map[string]any)
	if !ok {
		raw, _ = root["mcpServers"].(map[string]any)
	}

	servers := make(map[string]MCPServerConfig, len(raw))
	for id, entryAny := range raw {
		entry, ok := entryAny.(map[string]any)
		if !ok {
			fmt.Fprintf(os.Stderr, "mcpregistry: skipping non-object entry %q\n", id)
			continue
		}
		cfg, err := normalizeServerConfig(id, entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcpregistry: skipping entry %q: %v\n", id, err)
			continue
		}
		servers[id] = cfg
	}

	return &Registry{servers: servers}, nil
}

// normalizeServerConfig builds an MCPServerConfig from one raw entry,
// auto-detecting the transport from the presence of url vs command,
// resolving ${VAR} references in the command list and env map, and copying
// auth/tools/timeout/max_retries as-is (auth's own env references are
// resolved by the MCP client at connect time, not here).
func normalizeServerConfig(id string, entry map[string]any) (MCPServerConfig, error) {
	cfg := MCPServerConfig{ID: id, Timeout: 30, MaxRetries: 3}

	url, hasURL := entry["url"].(string)
	commandRaw, hasCommand := entry["command"]

	switch {
	case hasURL && url != "":
		cfg.URL = url
		if t, ok := entry["transport"].(string); ok && t == string(TransportHTTP) {
			cfg.Transport = TransportHTTP
		} else {
			cfg.Transport = TransportSSE
		}
	case hasCommand:
		cfg.Transport = TransportStdio
		cmd := normalizeCommand(commandRaw)
		if argsRaw, ok := entry["args"].([]any); ok {
			cmd = append(cmd, toStringSlice(argsRaw)...)
		}
		for i, c := range cmd {
			cmd[i] = resolveEnvVarString(c)
		}
		cfg.Command = cmd
	default:
		return cfg, fmt.Errorf("entry has neither url nor command, cannot detect transport")
	}

	if env, ok := entry["env"].(map[string]any); ok {
		m := make(map[string]string, len(env))
		for k, v := range env {
			if s, ok := v.(string); ok {
				m[k] = s
			}
		}
		cfg.Env = resolveEnvVars(m)
	}

	if tools, ok := entry["tools"].([]any); ok {
		cfg.Tools = toStringSlice(tools)
	}

	if timeout, ok := entry["timeout"].(int); ok {
		cfg.Timeout = timeout
	} else if f, ok := entry["timeout"].(float64); ok {
		cfg.Timeout = int(f)
	}
	if retries, ok := entry["max_retries"].(int); ok {
		cfg.MaxRetries = retries
	} else if f, ok := entry["max_retries"].(float64); ok {
		cfg.MaxRetries = int(f)
	}

	if authRaw, ok := entry["auth"].(map[string]any); ok {
		cfg.Auth = parseAuthConfig(authRaw)
	} else {
		cfg.Auth = MCPAuthConfig{Type: AuthNone}
	}

	return cfg, nil
}

func normalizeCommand(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		return toStringSlice(v)
	}
	return nil
}

func toStringSlice(v []any) []string {
	out := make([]string, 0, len(v))
	for _, item := range v {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseAuthConfig(raw map[string]any) MCPAuthConfig {
	auth := MCPAuthConfig{Type: AuthNone}
	if t, ok := raw["type"].(string); ok {
		auth.Type = MCPAuthType(t)
	}
	if v, ok := raw["token_var"].(string); ok {
		auth.TokenVar = v
	}
	if v, ok := raw["api_key_var"].(string); ok {
		auth.APIKeyVar = v
	}
	if v, ok := raw["client_id_env"].(string); ok {
		auth.ClientIDEnv = v
	}
	if v, ok := raw["client_secret_env"].(string); ok {
		auth.ClientSecretEnv = v
	}
	if scopes, ok := raw["scopes"].([]any); ok {
		auth.Scopes = toStringSlice(scopes)
	}
	return auth
}

// GetServer returns the server config for id, and whether it was found.
func (r *Registry) GetServer(id string) (MCPServerConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.servers[id]
	return cfg, ok
}

// GetServers returns a copy of all registered server configs.
func (r *Registry) GetServers() map[string]MCPServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]MCPServerConfig, len(r.servers))
	for k, v := range r.servers {
		out[k] = v
	}
	return out
}

// ListServerIDs returns the ids of all registered servers.
func (r *Registry) ListServerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	return ids
}
