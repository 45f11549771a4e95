package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/node"
	"github.com/vk/flowgridgo/internal/nodeid"
)

func declared(name string, vt contract.ValueType, required bool) contract.Field {
	return contract.Field{NormalizedName: name, OriginalName: name, Type: vt, Required: required, Source: contract.SourceDeclared}
}

func pluginNode(t *testing.T, name string, kind node.Kind, in, out *contract.Contract) *node.Node {
	t.Helper()
	cfg, err := node.NewPluginConfig(kind, node.PluginConfig{Name: name})
	require.NoError(t, err)
	digest := fmt.Sprintf("%012x", len(name)*31+int(kind))
	return node.New(nodeid.New(kind.String(), name, digest), name, kind, name+"_plugin", cfg, in, out)
}

func gateNode(t *testing.T, name string, in, out *contract.Contract) *node.Node {
	t.Helper()
	cfg := node.NewGateConfig(node.GateConfig{Name: name})
	digest := fmt.Sprintf("%012x", len(name)*37)
	return node.New(nodeid.New("gate", name, digest), name, node.KindGate, "gate", cfg, in, out)
}

func coalesceNode(t *testing.T, name string, strategy node.MergeStrategy, branches []string) *node.Node {
	t.Helper()
	cfg := node.NewCoalesceConfig(node.CoalesceConfig{
		Name:     name,
		Branches: branches,
		Policy:   node.PolicyRequireAll,
		Strategy: strategy,
	})
	digest := fmt.Sprintf("%012x", len(name)*41)
	return node.New(nodeid.New("coalesce", name, digest), name, node.KindCoalesce, "coalesce", cfg, nil, nil)
}

func wire(t *testing.T, g *graph.Graph, from, to *node.Node, label string, mode node.EdgeMode) {
	t.Helper()
	require.NoError(t, g.AddEdge(&node.Edge{From: from.Address(), To: to.Address(), Label: label, Mode: mode}))
}

func buildGraph(t *testing.T, nodes ...*node.Node) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
	return g
}

func TestEdges_CompatiblePipeline(t *testing.T) {
	t.Parallel()

	schema := contract.MustNew(contract.ModeFlexible,
		declared("id", contract.TypeInteger, true),
		declared("score", contract.TypeFloat, false),
	)
	src := pluginNode(t, "seed", node.KindSource, nil, schema)
	sink := pluginNode(t, "drop", node.KindSink, contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true)), nil)

	g := buildGraph(t, src, sink)
	wire(t, g, src, sink, "default", node.MoveEdge)

	assert.NoError(t, Edges(g))
}

func TestEdges_NilSchemasAreCompatible(t *testing.T) {
	t.Parallel()

	src := pluginNode(t, "seed", node.KindSource, nil, nil)
	sink := pluginNode(t, "drop", node.KindSink, contract.MustNew(contract.ModeFixed, declared("id", contract.TypeInteger, true)), nil)

	g := buildGraph(t, src, sink)
	wire(t, g, src, sink, "default", node.MoveEdge)

	// A dynamic producer is compatible with any consumer.
	assert.NoError(t, Edges(g))
}

func TestEdges_MissingRequiredField(t *testing.T) {
	t.Parallel()

	producer := contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true))
	consumer := contract.MustNew(contract.ModeFlexible,
		declared("id", contract.TypeInteger, true),
		declared("score", contract.TypeFloat, true),
	)
	src := pluginNode(t, "seed", node.KindSource, nil, producer)
	sink := pluginNode(t, "drop", node.KindSink, consumer, nil)

	g := buildGraph(t, src, sink)
	wire(t, g, src, sink, "default", node.MoveEdge)

	err := Edges(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edge compatibility validation failed")
	assert.Contains(t, err.Error(), "missing required fields [score]")
	assert.Contains(t, err.Error(), src.ID())
	assert.Contains(t, err.Error(), sink.ID())
}

func TestEdges_MissingOptionalFieldIsFine(t *testing.T) {
	t.Parallel()

	producer := contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true))
	consumer := contract.MustNew(contract.ModeFlexible,
		declared("id", contract.TypeInteger, true),
		declared("score", contract.TypeFloat, false),
	)
	src := pluginNode(t, "seed", node.KindSource, nil, producer)
	sink := pluginNode(t, "drop", node.KindSink, consumer, nil)

	g := buildGraph(t, src, sink)
	wire(t, g, src, sink, "default", node.MoveEdge)

	assert.NoError(t, Edges(g))
}

func TestEdges_TypeMismatch(t *testing.T) {
	t.Parallel()

	producer := contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeString, true))
	consumer := contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true))
	src := pluginNode(t, "seed", node.KindSource, nil, producer)
	sink := pluginNode(t, "drop", node.KindSink, consumer, nil)

	g := buildGraph(t, src, sink)
	wire(t, g, src, sink, "default", node.MoveEdge)

	err := Edges(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id: want integer, got string")
}

func TestEdges_UnknownTypeTolerated(t *testing.T) {
	t.Parallel()

	producer := contract.MustNew(contract.ModeFlexible, declared("blob", contract.TypeUnknown, true))
	consumer := contract.MustNew(contract.ModeFlexible, declared("blob", contract.TypeString, true))
	src := pluginNode(t, "seed", node.KindSource, nil, producer)
	sink := pluginNode(t, "drop", node.KindSink, consumer, nil)

	g := buildGraph(t, src, sink)
	wire(t, g, src, sink, "default", node.MoveEdge)

	assert.NoError(t, Edges(g))
}

func TestEdges_ResolvesThroughPassThroughGate(t *testing.T) {
	t.Parallel()

	producer := contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true))
	consumer := contract.MustNew(contract.ModeFlexible, declared("score", contract.TypeFloat, true))
	src := pluginNode(t, "seed", node.KindSource, nil, producer)
	gate := gateNode(t, "router", nil, nil)
	sink := pluginNode(t, "drop", node.KindSink, consumer, nil)

	g := buildGraph(t, src, gate, sink)
	wire(t, g, src, gate, "default", node.MoveEdge)
	wire(t, g, gate, sink, "keep", node.MoveEdge)

	// The gate carries no schema; the check sees the source's schema
	// through it and still catches the missing field.
	err := Edges(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields [score]")
}

func TestEdges_GateSchemas(t *testing.T) {
	t.Parallel()

	schema := contract.MustNew(contract.ModeFixed, declared("id", contract.TypeInteger, true))
	other := contract.MustNew(contract.ModeFixed, declared("id", contract.TypeString, true))

	t.Run("matched schemas pass", func(t *testing.T) {
		t.Parallel()
		gate := gateNode(t, "router", schema, schema)
		g := buildGraph(t, gate)
		assert.NoError(t, Edges(g))
	})

	t.Run("one-sided schema fails", func(t *testing.T) {
		t.Parallel()
		gate := gateNode(t, "router", schema, nil)
		g := buildGraph(t, gate)
		err := Edges(g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gates do not transform data")
	})

	t.Run("differing schemas fail", func(t *testing.T) {
		t.Parallel()
		gate := gateNode(t, "router", schema, other)
		g := buildGraph(t, gate)
		err := Edges(g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gates do not transform data")
	})
}

func TestEdges_CoalesceUnionBranches(t *testing.T) {
	t.Parallel()

	t.Run("mergeable branches pass", func(t *testing.T) {
		t.Parallel()
		a := pluginNode(t, "left", node.KindTransform, nil, contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true)))
		b := pluginNode(t, "right", node.KindTransform, nil, contract.MustNew(contract.ModeFlexible, declared("score", contract.TypeFloat, true)))
		join := coalesceNode(t, "join", node.StrategyUnion, []string{"a", "b"})

		g := buildGraph(t, a, b, join)
		wire(t, g, a, join, "a", node.MoveEdge)
		wire(t, g, b, join, "b", node.MoveEdge)

		assert.NoError(t, Edges(g))
	})

	t.Run("conflicting branches fail", func(t *testing.T) {
		t.Parallel()
		a := pluginNode(t, "left", node.KindTransform, nil, contract.MustNew(contract.ModeFlexible, declared("x", contract.TypeInteger, true)))
		b := pluginNode(t, "right", node.KindTransform, nil, contract.MustNew(contract.ModeFlexible, declared("x", contract.TypeString, true)))
		join := coalesceNode(t, "join", node.StrategyUnion, []string{"a", "b"})

		g := buildGraph(t, a, b, join)
		wire(t, g, a, join, "a", node.MoveEdge)
		wire(t, g, b, join, "b", node.MoveEdge)

		err := Edges(g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incoming branches do not merge")
	})

	t.Run("nested strategy tolerates divergence", func(t *testing.T) {
		t.Parallel()
		a := pluginNode(t, "left", node.KindTransform, nil, contract.MustNew(contract.ModeFlexible, declared("x", contract.TypeInteger, true)))
		b := pluginNode(t, "right", node.KindTransform, nil, contract.MustNew(contract.ModeFlexible, declared("x", contract.TypeString, true)))
		join := coalesceNode(t, "join", node.StrategyNested, []string{"a", "b"})

		g := buildGraph(t, a, b, join)
		wire(t, g, a, join, "a", node.MoveEdge)
		wire(t, g, b, join, "b", node.MoveEdge)

		assert.NoError(t, Edges(g))
	})
}

func TestCompatibilityError_Message(t *testing.T) {
	t.Parallel()

	err := &CompatibilityError{
		FromID:     "source.static.aaaaaaaaaaaa",
		ToID:       "sink.discard.bbbbbbbbbbbb",
		FromPlugin: "static",
		ToPlugin:   "discard",
		Label:      "default",
		Missing:    []string{"score"},
		Mismatched: []string{"id: want integer, got string"},
	}
	msg := err.Error()
	assert.Contains(t, msg, "source.static.aaaaaaaaaaaa")
	assert.Contains(t, msg, "-[default]->")
	assert.Contains(t, msg, "missing required fields [score]")
	assert.Contains(t, msg, "type mismatches [id: want integer, got string]")
}
