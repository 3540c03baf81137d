package agentship

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentship/agentship/internal/config"
)

// ClassRegistry is the facade's agent-class registry: a name-keyed catalog
// of AgentConfigs, building and caching the *Agent singleton for a name on
// first Get. Filesystem discovery of agent config files is an external
// collaborator's job; callers register already-loaded AgentConfigs via
// Register.
type ClassRegistry struct {
	deps Dependencies

	mu      sync.Mutex
	configs map[string]*config.AgentConfig
	agents  map[string]*Agent
}

// NewClassRegistry builds an empty ClassRegistry. deps is shared by every
// Agent the registry builds.
func NewClassRegistry(deps Dependencies) *ClassRegistry {
	return &ClassRegistry{
		deps:    deps,
		configs: make(map[string]*config.AgentConfig),
		agents:  make(map[string]*Agent),
	}
}

// Register adds or replaces an AgentConfig under its own AgentName,
// invalidating any already-built instance so the next Get rebuilds it.
func (r *ClassRegistry) Register(cfg *config.AgentConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.AgentName] = cfg
	delete(r.agents, cfg.AgentName)
}

// RegisterFile loads an AgentConfig from path and registers it, the one
// filesystem touch point this core provides: a thin pass-through to
// config.LoadAndValidate rather than a discovery mechanism.
func (r *ClassRegistry) RegisterFile(path string) error {
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return err
	}
	r.Register(cfg)
	return nil
}

// Names lists every registered agent name.
func (r *ClassRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	return names
}

// Get returns the cached *Agent for name, building it from its registered
// AgentConfig on first use.
func (r *ClassRegistry) Get(ctx context.Context, name string) (*Agent, error) {
	r.mu.Lock()
	if a, ok := r.agents[name]; ok {
		r.mu.Unlock()
		return a, nil
	}
	cfg, ok := r.configs[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("agent %q is not registered", name)
	}

	a, err := NewAgent(ctx, cfg, r.deps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.agents[name]; ok {
		// Lost the race to another caller building the same agent; keep
		// theirs so every caller observes the same singleton instance.
		return existing, nil
	}
	r.agents[name] = a
	return a, nil
}

// Reset clears every built *Agent instance (not the registered configs),
// forcing the next Get to rebuild. Intended for tests.
func (r *ClassRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*Agent)
}
