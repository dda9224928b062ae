package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/transmute/transmute/pkg/types"
	"github.com/transmute/transmute/pkg/utils"
)

// Factory constructs a plugin value from config-supplied options. The
// returned value still goes through Register for capability resolution.
type Factory func(options map[string]any) (any, error)

// Registry maps plugin names to factories so config-driven pipelines can
// resolve plugins by name, the same way database drivers self-register.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Add binds a factory to a name. Re-binding an existing name is an error;
// plugin identity is fixed for the process lifetime.
func (r *Registry) Add(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("plugin factory requires a name")
	}
	if factory == nil {
		return fmt.Errorf("plugin factory %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("plugin factory %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Names returns all registered factory names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve instantiates and registers the plugin described by cfg.
func (r *Registry) Resolve(cfg types.PluginConfig) (*Registered, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown plugin %q", cfg.Name)
	}

	value, err := factory(cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", cfg.Name, err)
	}

	reg, err := Register(value)
	if err != nil {
		return nil, err
	}

	// Config-level filter and parallelism override the plugin's own hints.
	if len(cfg.Include) > 0 || len(cfg.Exclude) > 0 {
		filter, err := utils.NewFilter(cfg.Include, cfg.Exclude)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", cfg.Name, err)
		}
		reg.filter = filter
	}
	if cfg.Parallelism > 0 {
		reg.parallelism = cfg.Parallelism
	}
	if reg.name == "anonymous" || reg.name == "" {
		reg.name = cfg.Name
	}

	return reg, nil
}

// defaultRegistry backs the package-level registration API.
var defaultRegistry = NewRegistry()

// AddFactory registers a factory in the default registry. It panics on a
// duplicate name, matching the driver-registration convention for
// init()-time registration.
func AddFactory(name string, factory Factory) {
	if err := defaultRegistry.Add(name, factory); err != nil {
		panic(err)
	}
}

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	return defaultRegistry
}
