// Package discard provides a sink plugin that accepts any row and drops
// it, keeping only a count. It is the terminal stage for pipelines whose
// interesting effects happen upstream.
package discard

import (
	"sync/atomic"

	"github.com/vk/flowgridgo/internal/plugin"
)

// Module implements the plugin.Module interface for this package.
type Module struct{}

// Register registers the discard sink factory.
func (m *Module) Register(r *plugin.Registry) {
	r.Register("discard", New)
}

// Sink is a constructed discard instance.
type Sink struct {
	count atomic.Int64
}

// New builds a discard sink. It takes no options.
func New(options map[string]any) (plugin.Plugin, error) {
	if err := plugin.DecodeOptions(options, &struct{}{}); err != nil {
		return nil, err
	}
	return &Sink{}, nil
}

// Name returns the plugin type name.
func (s *Sink) Name() string { return "discard" }

// SelfValidate always passes; the sink has nothing to misdeclare.
func (s *Sink) SelfValidate() error { return nil }

// Write drops one row.
func (s *Sink) Write(row map[string]any) {
	s.count.Add(1)
}

// Count returns how many rows have been dropped.
func (s *Sink) Count() int64 {
	return s.count.Load()
}
