package mcpmanager

import (
	"os"
	"testing"

	"github.com/agentship/agentship/internal/mcpregistry"
)

func unsupportedTransportConfig() mcpregistry.MCPServerConfig {
	return mcpregistry.MCPServerConfig{ID: "bogus", Transport: "carrier-pigeon"}
}

func TestDefaultUserID(t *testing.T) {
	os.Unsetenv(defaultMCPUserIDEnv)
	if got := DefaultUserID(); got != "agentship" {
		t.Errorf("expected default %q, got %q", "agentship", got)
	}

	t.Setenv(defaultMCPUserIDEnv, "custom-user")
	if got := DefaultUserID(); got != "custom-user" {
		t.Errorf("expected env override %q, got %q", "custom-user", got)
	}
}

func TestCacheKey_EmptyOwnerDegeneratesToShared(t *testing.T) {
	if got := cacheKey("github", ""); got != "github" {
		t.Errorf("expected bare server id for empty owner, got %q", got)
	}
	if got := cacheKey("github", "user-1"); got != "github:user-1" {
		t.Errorf("expected scoped key, got %q", got)
	}
}

func TestCreateClient_UnsupportedTransport(t *testing.T) {
	m := NewManager(nil, nil)
	_, err := m.createClient(unsupportedTransportConfig(), "")
	if err == nil {
		t.Fatal("expected error for unsupported transport")
	}
}
