package mcpregistry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistryFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp_servers.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write registry file: %v", err)
	}
	return path
}

func TestLoad_DetectsStdioTransport(t *testing.T) {
	path := writeRegistryFile(t, `
servers:
  github:
    command: npx
    args: ["-y", "@modelcontextprotocol/server-github"]
    env:
      GITHUB_TOKEN: ${GITHUB_TOKEN}
`)
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, ok := reg.GetServer("github")
	if !ok {
		t.Fatal("expected server 'github' to be registered")
	}
	if cfg.Transport != TransportStdio {
		t.Errorf("expected stdio transport, got %q", cfg.Transport)
	}
	wantCmd := []string{"npx", "-y", "@modelcontextprotocol/server-github"}
	if len(cfg.Command) != len(wantCmd) {
		t.Fatalf("expected command %v, got %v", wantCmd, cfg.Command)
	}
	for i := range wantCmd {
		if cfg.Command[i] != wantCmd[i] {
			t.Errorf("command[%d] = %q, want %q", i, cfg.Command[i], wantCmd[i])
		}
	}
	if cfg.Env["GITHUB_TOKEN"] != "ghp_test" {
		t.Errorf("expected GITHUB_TOKEN resolved to ghp_test, got %q", cfg.Env["GITHUB_TOKEN"])
	}
}

func TestLoad_URLWithoutTransportDetectsSSE(t *testing.T) {
	path := writeRegistryFile(t, `
servers:
  search:
    url: https://mcp.example.com/sse
    timeout: 45
`)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, ok := reg.GetServer("search")
	if !ok {
		t.Fatal("expected server 'search' to be registered")
	}
	if cfg.Transport != TransportSSE {
		t.Errorf("expected sse transport, got %q", cfg.Transport)
	}
	if cfg.Timeout != 45 {
		t.Errorf("expected timeout 45, got %d", cfg.Timeout)
	}
}

func TestLoad_SkipsBadEntriesWithoutAborting(t *testing.T) {
	path := writeRegistryFile(t, `
servers:
  broken:
    nothing: here
  good:
    url: https://mcp.example.com
`)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should tolerate a single bad entry, got error: %v", err)
	}
	if _, ok := reg.GetServer("broken"); ok {
		t.Error("expected 'broken' entry to be skipped")
	}
	if _, ok := reg.GetServer("good"); !ok {
		t.Error("expected 'good' entry to still be loaded")
	}
}

func TestMCPServerReference_Resolve(t *testing.T) {
	base := MCPServerConfig{
		ID:      "github",
		Timeout: 30,
		Env:     map[string]string{"GITHUB_TOKEN": "base-token"},
		Tools:   []string{"search_repos"},
	}
	override := 60
	ref := MCPServerReference{
		ID:      "github",
		Timeout: &override,
		Env:     map[string]string{"EXTRA": "value"},
	}

	resolved := ref.Resolve(base)
	if resolved.Timeout != 60 {
		t.Errorf("expected overridden timeout 60, got %d", resolved.Timeout)
	}
	if resolved.Env["GITHUB_TOKEN"] != "base-token" || resolved.Env["EXTRA"] != "value" {
		t.Errorf("expected merged env, got %v", resolved.Env)
	}
	if len(resolved.Tools) != 1 || resolved.Tools[0] != "search_repos" {
		t.Errorf("expected base tools preserved when ref.Tools is nil, got %v", resolved.Tools)
	}
	if base.Env["EXTRA"] != "" {
		t.Error("Resolve must not mutate the base config's env map")
	}
}

func TestFindConfigFile_EnvOverride(t *testing.T) {
	t.Setenv("MCP_SERVERS_CONFIG", "/some/custom/path.yaml")
	path, err := findConfigFile()
	if err != nil {
		t.Fatalf("findConfigFile: %v", err)
	}
	if path != "/some/custom/path.yaml" {
		t.Errorf("expected MCP_SERVERS_CONFIG to take priority, got %q", path)
	}
}
