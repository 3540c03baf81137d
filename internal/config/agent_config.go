package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ExecutionEngine selects which engine runs an agent's tool loop.
type ExecutionEngine string

const (
	EngineNative       ExecutionEngine = "native"
	EngineOrchestrated ExecutionEngine = "orchestrated"
)

func (e ExecutionEngine) valid() bool {
	return e == EngineNative || e == EngineOrchestrated
}

// StreamingMode selects how an agent's run is surfaced as StreamEvents.
type StreamingMode string

const (
	StreamingNone       StreamingMode = "none"
	StreamingEventBased StreamingMode = "event_based"
	StreamingTokenBased StreamingMode = "token_based"
)

func (m StreamingMode) valid() bool {
	return m == StreamingNone || m == StreamingEventBased || m == StreamingTokenBased
}

// SessionBackend selects the checkpoint/session persistence strategy.
type SessionBackend string

const (
	SessionBackendMemory   SessionBackend = "memory"
	SessionBackendSQL      SessionBackend = "sql"
	SessionBackendVertexAI SessionBackend = "vertexai"
)

// MemoryConfig controls whether an agent's turns are persisted across calls.
type MemoryConfig struct {
	Enabled bool           `yaml:"enabled"`
	Backend SessionBackend `yaml:"backend"`
}

// ToolDeclarationKind distinguishes the three tool shapes AgentConfig.Tools can
// describe. Go has no dotted-import-path equivalent to the prototype's
// "import this callable" strings, so function and agent tools are resolved
// through name-keyed registries instead (see toolbuilder.FunctionRegistry
// and toolbuilder.AgentRegistry).
type ToolDeclarationKind string

const (
	ToolKindFunction ToolDeclarationKind = "function"
	ToolKindAgent    ToolDeclarationKind = "agent"
	ToolKindMCP      ToolDeclarationKind = "mcp_ref"
)

// ToolDeclaration is one raw entry from an AgentConfig's tools list. Which
// fields matter depends on Kind; internal/toolbuilder is the sole
// interpreter of this structure, mirroring the prototype's "BaseAgent class
// is responsible for interpreting this structure" comment.
type ToolDeclaration struct {
	Kind ToolDeclarationKind `yaml:"kind"`

	// ToolKindFunction / ToolKindAgent
	Name         string `yaml:"name"`
	RegistryName string `yaml:"registry_name"`

	// ToolKindMCP
	ServerID     string   `yaml:"server_id"`
	AllowedTools []string `yaml:"allowed_tools"`
}

// ProviderModelSet is the allowed model set for one LLM provider, mirroring
// LLMProviderConfig.models in the prototype.
var ProviderModelSet = map[string][]string{
	"openai":    {"gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini", "o3-mini"},
	"claude":    {"claude-opus-4-1", "claude-sonnet-4-5", "claude-3-5-haiku"},
	"gemini":    {"gemini-2.5-pro", "gemini-2.5-flash"},
	"ollama":    {}, // locally-managed model names, not a fixed set
	"vertex_ai": {"gemini-2.5-pro", "gemini-2.5-flash"},
}

func modelAllowed(provider, model string) bool {
	allowed, ok := ProviderModelSet[provider]
	if !ok {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, m := range allowed {
		if m == model {
			return true
		}
	}
	return false
}

// AgentConfig is the fully resolved configuration for one agent definition.
type AgentConfig struct {
	Provider    string  `yaml:"llm_provider_name"`
	Model       string  `yaml:"llm_model"`
	Temperature float64 `yaml:"temperature"`

	ExecutionEngine ExecutionEngine `yaml:"execution_engine"`

	AgentName           string `yaml:"agent_name"`
	Description         string `yaml:"description"`
	InstructionTemplate string `yaml:"instruction_template"`

	Tags  []string          `yaml:"tags"`
	Tools []ToolDeclaration `yaml:"tools"`

	Memory MemoryConfig `yaml:"memory"`

	StreamingMode StreamingMode `yaml:"streaming_mode"`

	// MaxToolRounds overrides the engine's default tool-loop round cap
	// (supplemented from the prototype; see SPEC_FULL.md).
	MaxToolRounds *int `yaml:"max_tool_rounds"`

	MCPServers []string `yaml:"mcp_servers"`
}

type rawAgentConfig struct {
	Provider            string            `yaml:"llm_provider_name"`
	Model               string            `yaml:"llm_model"`
	Temperature         float64           `yaml:"temperature"`
	ExecutionEngine     string            `yaml:"execution_engine"`
	ExecutionBackend    string            `yaml:"execution_backend"`
	Runtime             string            `yaml:"runtime"`
	AgentName           string            `yaml:"agent_name"`
	Description         string            `yaml:"description"`
	InstructionTemplate string            `yaml:"instruction_template"`
	Tags                []string          `yaml:"tags"`
	Tools               []ToolDeclaration `yaml:"tools"`
	Memory              *MemoryConfig     `yaml:"memory"`
	StreamingMode       string            `yaml:"streaming_mode"`
	MaxToolRounds       *int              `yaml:"max_tool_rounds"`
	MCPServers          []string          `yaml:"mcp_servers"`
}

// Load reads and parses an AgentConfig from a YAML file, accepting the
// prototype's alternate engine-selector keys (execution_engine,
// execution_backend, runtime) in that priority order, and does not validate
// it. Use LoadAndValidate for the common case.
func Load(path string) (*AgentConfig, error) {
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve agent config path %q: %w", path, err)
		}
		path = abs
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent config %q: %w", path, err)
	}

	var raw rawAgentConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse agent config %q: %w", path, err)
	}

	engine := raw.ExecutionEngine
	if engine == "" {
		engine = raw.ExecutionBackend
	}
	if engine == "" {
		engine = raw.Runtime
	}
	if engine == "" {
		engine = string(EngineOrchestrated)
	}

	streaming := raw.StreamingMode
	if streaming == "" {
		streaming = string(StreamingNone)
	}

	memory := MemoryConfig{}
	if raw.Memory != nil {
		memory = *raw.Memory
	}

	cfg := &AgentConfig{
		Provider:            raw.Provider,
		Model:               raw.Model,
		Temperature:         raw.Temperature,
		ExecutionEngine:     ExecutionEngine(engine),
		AgentName:           raw.AgentName,
		Description:         raw.Description,
		InstructionTemplate: raw.InstructionTemplate,
		Tags:                raw.Tags,
		Tools:               raw.Tools,
		Memory:              memory,
		StreamingMode:       StreamingMode(streaming),
		MaxToolRounds:       raw.MaxToolRounds,
		MCPServers:          raw.MCPServers,
	}
	return cfg, nil
}

// Validate checks the cross-field invariants the prototype enforces in
// AgentConfig.__init__: the engine and streaming mode must be one of the
// known values, the model must belong to the provider's model set, and a
// VertexAI memory backend requires the orchestrated engine.
func (c *AgentConfig) Validate() error {
	if !c.ExecutionEngine.valid() {
		return fmt.Errorf("execution_engine must be one of [native orchestrated], got %q", c.ExecutionEngine)
	}
	if !c.StreamingMode.valid() {
		return fmt.Errorf("streaming_mode must be one of [none event_based token_based], got %q", c.StreamingMode)
	}
	if !modelAllowed(c.Provider, c.Model) {
		return fmt.Errorf("model %q is not compatible with provider %q (available: %v)",
			c.Model, c.Provider, ProviderModelSet[c.Provider])
	}
	if c.Memory.Enabled && c.Memory.Backend == SessionBackendVertexAI && c.ExecutionEngine != EngineOrchestrated {
		return fmt.Errorf("vertexai memory backend requires execution_engine=%q, got %q", EngineOrchestrated, c.ExecutionEngine)
	}
	return nil
}

// LoadAndValidate loads an AgentConfig and validates it in one step.
func LoadAndValidate(path string) (*AgentConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config %q: %w", path, err)
	}
	return cfg, nil
}

// EffectiveMaxToolRounds returns MaxToolRounds if set, else the supplied
// engine default.
func (c *AgentConfig) EffectiveMaxToolRounds(fallback int) int {
	if c.MaxToolRounds != nil {
		return *c.MaxToolRounds
	}
	return fallback
}
