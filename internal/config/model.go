// Package config holds the unified, format-agnostic representation of a
// pipeline definition. Loaders (HCL, YAML) translate their source format
// into this model; the builder consumes only the model and never sees the
// source format.
package config

import "fmt"

// Model is the root of a loaded definition.
type Model struct {
	Pipeline *Pipeline
}

// Pipeline is one pipeline definition: an ordered list of stages.
type Pipeline struct {
	Name   string
	Stages []*Stage
}

// Stage returns the stage with the given instance name.
func (p *Pipeline) Stage(name string) (*Stage, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Stage is the format-agnostic representation of one node definition.
// Which fields are meaningful depends on Kind.
type Stage struct {
	// Kind is one of source, transform, gate, aggregation, coalesce, sink.
	Kind string
	// Type is the plugin type for plugin stages; empty for framework stages.
	Type string
	// Name is the unique instance name within the pipeline.
	Name string
	// Input names the upstream stage; empty for sources and for stages
	// fed through routes or branches.
	Input string

	// Options is the opaque plugin configuration.
	Options map[string]any

	// Mode and Fields declare the stage's schema contract, if any.
	Mode   string
	Fields []*FieldDef

	// Routes maps route labels to target stage names (gates).
	Routes map[string]string
	// Branches holds fork branch bindings (fork gates).
	Branches *Branches

	// Coalesce-only fields.
	Fork     string
	Policy   string
	Strategy string
	Quorum   int
	Select   string
	Timeout  string

	// Trigger is the aggregation completion rule.
	Trigger string
}

// FieldDef declares one field of a stage contract.
type FieldDef struct {
	Name         string
	OriginalName string
	Type         string
	Required     bool
}

// Branches is the declarative branch configuration of a fork gate. The
// list form of the source syntax is sugar for an identity mapping
// {name: name}; the map form binds a branch to the connection a
// per-branch transform chain produces. Order preserves declaration order.
type Branches struct {
	Order    []string
	Bindings map[string]string
}

// NewIdentityBranches builds the list-form sugar: each branch maps to
// itself.
func NewIdentityBranches(names []string) *Branches {
	b := &Branches{Bindings: make(map[string]string, len(names))}
	for _, n := range names {
		b.Order = append(b.Order, n)
		b.Bindings[n] = n
	}
	return b
}

// Validate checks the internal consistency of the branch set.
func (b *Branches) Validate() error {
	if len(b.Order) == 0 {
		return fmt.Errorf("branches: at least one branch is required")
	}
	seen := make(map[string]bool, len(b.Order))
	for _, name := range b.Order {
		if name == "" {
			return fmt.Errorf("branches: empty branch name")
		}
		if seen[name] {
			return fmt.Errorf("branches: duplicate branch %q", name)
		}
		seen[name] = true
		if _, ok := b.Bindings[name]; !ok {
			return fmt.Errorf("branches: branch %q has no binding", name)
		}
	}
	return nil
}
