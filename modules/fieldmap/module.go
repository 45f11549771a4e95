// Package fieldmap provides a transform plugin that renames row fields
// according to a declared mapping. Its contracts are dynamic; the
// mapping itself is checked for internal consistency at construction.
package fieldmap

import (
	"fmt"
	"sort"

	"github.com/vk/flowgridgo/internal/plugin"
)

// Module implements the plugin.Module interface for this package.
type Module struct{}

// Register registers the fieldmap transform factory.
func (m *Module) Register(r *plugin.Registry) {
	r.Register("fieldmap", New)
}

// Options is the decoded option set of a fieldmap stage.
type Options struct {
	// Mapping maps source field names to destination field names.
	Mapping map[string]string `mapstructure:"mapping"`
	// KeepUnmapped forwards fields absent from the mapping unchanged;
	// when false they are dropped.
	KeepUnmapped bool `mapstructure:"keep_unmapped"`
}

// Transform is a constructed fieldmap instance.
type Transform struct {
	options Options
}

// New builds a fieldmap transform from its option map.
func New(options map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return &Transform{options: opts}, nil
}

// Name returns the plugin type name.
func (t *Transform) Name() string { return "fieldmap" }

// SelfValidate rejects an empty mapping, empty names, and two sources
// mapped onto the same destination.
func (t *Transform) SelfValidate() error {
	if len(t.options.Mapping) == 0 {
		return fmt.Errorf("fieldmap requires a non-empty mapping")
	}
	sources := make([]string, 0, len(t.options.Mapping))
	for src := range t.options.Mapping {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	destinations := make(map[string]string, len(sources))
	for _, src := range sources {
		dst := t.options.Mapping[src]
		if src == "" || dst == "" {
			return fmt.Errorf("mapping entries must have non-empty source and destination")
		}
		if prev, dup := destinations[dst]; dup {
			return fmt.Errorf("fields %q and %q both map to %q", prev, src, dst)
		}
		destinations[dst] = src
	}
	return nil
}

// Apply renames the fields of one row according to the mapping.
func (t *Transform) Apply(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for name, value := range row {
		if dst, mapped := t.options.Mapping[name]; mapped {
			out[dst] = value
		} else if t.options.KeepUnmapped {
			out[name] = value
		}
	}
	return out
}
