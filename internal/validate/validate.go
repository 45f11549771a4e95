// Package validate implements the edge-compatibility pass of pipeline
// validation: once topology is fully wired, every edge's effective
// producer schema is checked against its consumer's declared input
// contract. Plugin self-validation has already happened at instance
// construction, and the schema-blind structural pass runs after this one.
package validate

import (
	"fmt"
	"strings"

	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/node"
)

// CompatibilityError reports a producer/consumer schema mismatch across
// one edge, naming both nodes, both plugins, the route label, and the
// offending fields.
type CompatibilityError struct {
	FromID     string
	ToID       string
	FromPlugin string
	ToPlugin   string
	Label      string
	Missing    []string
	Mismatched []string
}

func (e *CompatibilityError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required fields [%s]", strings.Join(e.Missing, ", ")))
	}
	if len(e.Mismatched) > 0 {
		parts = append(parts, fmt.Sprintf("type mismatches [%s]", strings.Join(e.Mismatched, ", ")))
	}
	return fmt.Sprintf("edge %s (%s) -[%s]-> %s (%s): %s",
		e.FromID, e.FromPlugin, e.Label, e.ToID, e.ToPlugin, strings.Join(parts, "; "))
}

// Edges runs compatibility validation over the whole graph. All findings
// are collected and reported as one fatal error.
func Edges(g *graph.Graph) error {
	var errs []string

	for _, e := range g.Edges() {
		if err := checkEdge(g, e); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, n := range g.Nodes() {
		switch n.Kind() {
		case node.KindGate:
			if err := checkGateSchemas(n); err != nil {
				errs = append(errs, err.Error())
			}
		case node.KindCoalesce:
			if err := checkCoalesceBranches(g, n); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("edge compatibility validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// checkEdge compares one edge's effective producer schema with its
// consumer's declared input contract. A nil schema on either side means
// compatible with anything.
func checkEdge(g *graph.Graph, e *node.Edge) error {
	producer, err := g.EffectiveProducerSchema(e.From.String())
	if err != nil {
		return err
	}
	consumer, _ := g.Node(e.To.String())
	want := consumer.InputContract()
	if producer == nil || want == nil {
		return nil
	}

	var missing, mismatched []string
	for _, f := range want.Fields() {
		got, present := producer.FieldByName(f.NormalizedName)
		if !present {
			if f.Required {
				missing = append(missing, f.NormalizedName)
			}
			continue
		}
		if f.Type == contract.TypeUnknown || got.Type == contract.TypeUnknown {
			continue
		}
		if got.Type != f.Type {
			mismatched = append(mismatched, fmt.Sprintf("%s: want %s, got %s", f.NormalizedName, f.Type, got.Type))
		}
	}
	if len(missing) == 0 && len(mismatched) == 0 {
		return nil
	}

	from, _ := g.Node(e.From.String())
	return &CompatibilityError{
		FromID:     from.ID(),
		ToID:       consumer.ID(),
		FromPlugin: from.Plugin(),
		ToPlugin:   consumer.Plugin(),
		Label:      e.Label,
		Missing:    missing,
		Mismatched: mismatched,
	}
}

// checkGateSchemas enforces that a gate does not transform data: if it
// declares schemas at all, input and output must be identical.
func checkGateSchemas(n *node.Node) error {
	in, out := n.InputContract(), n.OutputContract()
	if in == nil && out == nil {
		return nil
	}
	if in == nil || out == nil {
		return fmt.Errorf("gate %s declares only one of input/output schema; gates do not transform data", n.ID())
	}
	if !in.Equal(out) {
		return fmt.Errorf("gate %s input and output schemas differ; gates do not transform data", n.ID())
	}
	return nil
}

// checkCoalesceBranches verifies the incoming branches of a union-strategy
// coalesce still merge cleanly; nested and select tolerate divergence by
// construction.
func checkCoalesceBranches(g *graph.Graph, n *node.Node) error {
	cfg, err := n.Config().Coalesce()
	if err != nil {
		return err
	}
	if cfg.Strategy != node.StrategyUnion {
		return nil
	}

	var merged *contract.Contract
	for _, e := range g.IncomingEdges(n.ID()) {
		schema, err := g.EffectiveProducerSchema(e.From.String())
		if err != nil {
			return err
		}
		if schema == nil {
			continue
		}
		if merged == nil {
			merged = schema
			continue
		}
		next, err := merged.Merge(schema)
		if err != nil {
			return fmt.Errorf("coalesce %s: incoming branches do not merge: %w", n.ID(), err)
		}
		merged = next
	}
	return nil
}
