package node

import (
	"fmt"
	"time"
)

// PluginConfig is the opaque configuration of a source, transform, or
// sink node. The engine serializes it but never interprets it; only the
// plugin does.
type PluginConfig struct {
	Name    string
	Options map[string]any
}

// GateConfig holds the framework-controlled fields of a gate node:
// conditional routes and, for fork gates, the branch bindings.
type GateConfig struct {
	Name string
	// Routes maps a route label to the target stage name.
	Routes map[string]string
	// Branches maps a branch identity to the connection its per-branch
	// chain produces; an identity binding maps the branch to itself.
	// Nil for non-fork gates.
	Branches map[string]string
	// BranchOrder preserves the declaration order of the branches.
	BranchOrder []string
}

// IsFork reports whether the gate duplicates rows across branches.
func (g *GateConfig) IsFork() bool { return len(g.BranchOrder) > 0 }

// AggregationConfig holds the framework-controlled fields of an
// aggregation node.
type AggregationConfig struct {
	Name    string
	Trigger string
	Options map[string]any
}

// CoalesceConfig holds the framework-controlled fields of a coalesce
// node: the branch set it waits on, its completion policy, and its merge
// strategy.
type CoalesceConfig struct {
	Name     string
	Fork     string
	Branches []string
	Policy   MergePolicy
	Strategy MergeStrategy
	Quorum   int
	Select   string
	Timeout  time.Duration
}

// Config is a tagged variant: exactly one of the per-kind payloads is set,
// matching the node kind. Access goes through narrow-or-fail methods so a
// read of, say, a gate-only field from a source node fails loudly at the
// access site rather than returning an absent value.
type Config struct {
	kind     Kind
	plugin   *PluginConfig
	gate     *GateConfig
	agg      *AggregationConfig
	coalesce *CoalesceConfig
}

// NewPluginConfig builds the config variant for a plugin node kind.
func NewPluginConfig(kind Kind, cfg PluginConfig) (Config, error) {
	if !kind.IsPlugin() {
		return Config{}, fmt.Errorf("node config: %s is not a plugin kind", kind)
	}
	return Config{kind: kind, plugin: &cfg}, nil
}

// NewGateConfig builds the config variant for a gate node.
func NewGateConfig(cfg GateConfig) Config {
	return Config{kind: KindGate, gate: &cfg}
}

// NewAggregationConfig builds the config variant for an aggregation node.
func NewAggregationConfig(cfg AggregationConfig) Config {
	return Config{kind: KindAggregation, agg: &cfg}
}

// NewCoalesceConfig builds the config variant for a coalesce node.
func NewCoalesceConfig(cfg CoalesceConfig) Config {
	return Config{kind: KindCoalesce, coalesce: &cfg}
}

// Kind returns the discriminator of this config variant.
func (c Config) Kind() Kind { return c.kind }

// Plugin narrows the variant to plugin configuration.
func (c Config) Plugin() (*PluginConfig, error) {
	if c.plugin == nil {
		return nil, fmt.Errorf("node config: %s node carries no plugin configuration", c.kind)
	}
	return c.plugin, nil
}

// Gate narrows the variant to gate configuration.
func (c Config) Gate() (*GateConfig, error) {
	if c.gate == nil {
		return nil, fmt.Errorf("node config: %s node carries no gate configuration", c.kind)
	}
	return c.gate, nil
}

// Aggregation narrows the variant to aggregation configuration.
func (c Config) Aggregation() (*AggregationConfig, error) {
	if c.agg == nil {
		return nil, fmt.Errorf("node config: %s node carries no aggregation configuration", c.kind)
	}
	return c.agg, nil
}

// Coalesce narrows the variant to coalesce configuration.
func (c Config) Coalesce() (*CoalesceConfig, error) {
	if c.coalesce == nil {
		return nil, fmt.Errorf("node config: %s node carries no coalesce configuration", c.kind)
	}
	return c.coalesce, nil
}

// Serialize converts the variant to a generic record form for hashing and
// audit emission. Every variant serializes; the encoding is lossless.
func (c Config) Serialize() (map[string]any, error) {
	switch c.kind {
	case KindSource, KindTransform, KindSink:
		p, err := c.Plugin()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":    c.kind.String(),
			"name":    p.Name,
			"options": p.Options,
		}, nil
	case KindGate:
		g, err := c.Gate()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":         c.kind.String(),
			"name":         g.Name,
			"routes":       g.Routes,
			"branches":     g.Branches,
			"branch_order": g.BranchOrder,
		}, nil
	case KindAggregation:
		a, err := c.Aggregation()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":    c.kind.String(),
			"name":    a.Name,
			"trigger": a.Trigger,
			"options": a.Options,
		}, nil
	case KindCoalesce:
		co, err := c.Coalesce()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":       c.kind.String(),
			"name":       co.Name,
			"fork":       co.Fork,
			"branches":   co.Branches,
			"policy":     co.Policy.String(),
			"strategy":   co.Strategy.String(),
			"quorum":     co.Quorum,
			"select":     co.Select,
			"timeout_ms": co.Timeout.Milliseconds(),
		}, nil
	default:
		return nil, fmt.Errorf("node config: unhandled kind %s", c.kind)
	}
}
