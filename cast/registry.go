package cast

import (
	"fmt"
	"sync"
)

// Registry holds named cast configs so call sites can pick a remapping by
// name, typically one per external API surface. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]*Config)}
}

// Register stores cfg under name, replacing any previous config.
func (r *Registry) Register(name string, cfg *Config) {
	r.mu.Lock()
	r.configs[name] = cfg
	r.mu.Unlock()
}

// Lookup returns the config registered under name.
func (r *Registry) Lookup(name string) (*Config, error) {
	r.mu.RLock()
	cfg, ok := r.configs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no cast config registered as %q", name)
	}
	return cfg, nil
}

// Names returns the registered config names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	return names
}
