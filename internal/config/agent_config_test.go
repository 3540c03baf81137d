package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_AlternateEngineKeys(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected ExecutionEngine
	}{
		{
			name:     "execution_engine wins",
			body:     "llm_provider_name: openai\nllm_model: gpt-4o-mini\nagent_name: a\nexecution_engine: native\nexecution_backend: orchestrated\n",
			expected: EngineNative,
		},
		{
			name:     "execution_backend fallback",
			body:     "llm_provider_name: openai\nllm_model: gpt-4o-mini\nagent_name: a\nexecution_backend: native\n",
			expected: EngineNative,
		},
		{
			name:     "runtime fallback",
			body:     "llm_provider_name: openai\nllm_model: gpt-4o-mini\nagent_name: a\nruntime: native\n",
			expected: EngineNative,
		},
		{
			name:     "default is orchestrated",
			body:     "llm_provider_name: openai\nllm_model: gpt-4o-mini\nagent_name: a\n",
			expected: EngineOrchestrated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.body)
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.ExecutionEngine != tt.expected {
				t.Errorf("expected engine %q, got %q", tt.expected, cfg.ExecutionEngine)
			}
		})
	}
}

func TestValidate_ModelProviderMismatch(t *testing.T) {
	cfg := &AgentConfig{
		Provider:        "openai",
		Model:           "claude-opus-4-1",
		ExecutionEngine: EngineNative,
		StreamingMode:   StreamingNone,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for model/provider mismatch")
	}
}

func TestValidate_VertexAIRequiresOrchestrated(t *testing.T) {
	cfg := &AgentConfig{
		Provider:        "gemini",
		Model:           "gemini-2.5-pro",
		ExecutionEngine: EngineNative,
		StreamingMode:   StreamingNone,
		Memory:          MemoryConfig{Enabled: true, Backend: SessionBackendVertexAI},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: vertexai memory backend requires orchestrated engine")
	}

	cfg.ExecutionEngine = EngineOrchestrated
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error once engine is orchestrated, got %v", err)
	}
}

func TestValidate_UnknownEngineAndStreamingMode(t *testing.T) {
	cfg := &AgentConfig{
		Provider:        "openai",
		Model:           "gpt-4o-mini",
		ExecutionEngine: "bogus",
		StreamingMode:   StreamingNone,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown execution engine")
	}

	cfg.ExecutionEngine = EngineNative
	cfg.StreamingMode = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown streaming mode")
	}
}

func TestEffectiveMaxToolRounds(t *testing.T) {
	cfg := &AgentConfig{}
	if got := cfg.EffectiveMaxToolRounds(10); got != 10 {
		t.Errorf("expected fallback 10, got %d", got)
	}
	n := 3
	cfg.MaxToolRounds = &n
	if got := cfg.EffectiveMaxToolRounds(10); got != 3 {
		t.Errorf("expected override 3, got %d", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
