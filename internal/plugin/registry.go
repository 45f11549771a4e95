package plugin

import (
	"fmt"
	"log/slog"
	"sort"
)

// Factory builds a plugin instance from the opaque option map of a stage
// definition.
type Factory func(options map[string]any) (Plugin, error)

// Module is the interface builtin modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps plugin type names to their factories for a single
// application instance.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for a plugin type. Registering the same type
// twice is a programmer error.
func (r *Registry) Register(pluginType string, f Factory) {
	if _, exists := r.factories[pluginType]; exists {
		panic(fmt.Sprintf("plugin factory %q already registered", pluginType))
	}
	slog.Debug("Registering plugin factory.", "type", pluginType)
	r.factories[pluginType] = f
}

// Lookup returns the factory for a plugin type.
func (r *Registry) Lookup(pluginType string) (Factory, bool) {
	f, ok := r.factories[pluginType]
	return f, ok
}

// Types returns all registered plugin type names, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
