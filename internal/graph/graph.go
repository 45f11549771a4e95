// Package graph owns the execution graph: the frozen node and edge store,
// topology queries, effective-schema resolution through pass-through
// nodes, and the schema-blind structural validation pass.
//
// A Graph is populated by the builder during the multi-phase construction
// and then frozen; after Freeze every mutator fails. Readers need no
// locking because the graph never changes once built.
package graph

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/node"
	"github.com/vk/flowgridgo/internal/nodeid"
)

// ConstructionError reports malformed topology: dangling references,
// duplicate identities, ambiguous merge points, and similar definition
// defects. It is fatal at build time.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return "graph construction: " + e.Reason
}

// Errorf builds a ConstructionError from a format string.
func Errorf(format string, args ...any) *ConstructionError {
	return &ConstructionError{Reason: fmt.Sprintf(format, args...)}
}

// Graph is the node/edge store for one pipeline build.
type Graph struct {
	nodes  map[string]*node.Node
	byName map[string]*node.Node
	order  []string

	edges    []*node.Edge
	incoming map[string][]*node.Edge
	outgoing map[string][]*node.Edge

	branchFirst map[string]*nodeid.Address
	branchOrder []string

	frozen bool
}

// New creates an empty, unfrozen graph.
func New() *Graph {
	return &Graph{
		nodes:       make(map[string]*node.Node),
		byName:      make(map[string]*node.Node),
		incoming:    make(map[string][]*node.Edge),
		outgoing:    make(map[string][]*node.Edge),
		branchFirst: make(map[string]*nodeid.Address),
	}
}

// AddNode registers a frozen node. Node identities and instance names must
// be unique within one graph.
func (g *Graph) AddNode(n *node.Node) error {
	if g.frozen {
		return Errorf("graph is frozen")
	}
	id := n.ID()
	if _, exists := g.nodes[id]; exists {
		return Errorf("duplicate node identity %s", id)
	}
	if _, exists := g.byName[n.Name()]; exists {
		return Errorf("duplicate node name %q", n.Name())
	}
	g.nodes[id] = n
	g.byName[n.Name()] = n
	g.order = append(g.order, id)
	return nil
}

// AddEdge wires a directed edge between two existing nodes.
func (g *Graph) AddEdge(e *node.Edge) error {
	if g.frozen {
		return Errorf("graph is frozen")
	}
	from := e.From.String()
	to := e.To.String()
	if from == to {
		return Errorf("self-referential edge not allowed: %s", from)
	}
	if _, ok := g.nodes[from]; !ok {
		return Errorf("edge source node not found: %s", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return Errorf("edge destination node not found: %s", to)
	}
	g.edges = append(g.edges, e)
	g.incoming[to] = append(g.incoming[to], e)
	g.outgoing[from] = append(g.outgoing[from], e)
	return nil
}

// SetBranchFirst records the first node a forked row routes into for a
// branch identity: the coalesce node itself for identity branches, the
// first transform for branches with a per-branch chain.
func (g *Graph) SetBranchFirst(branch string, addr *nodeid.Address) error {
	if g.frozen {
		return Errorf("graph is frozen")
	}
	if _, exists := g.branchFirst[branch]; exists {
		return Errorf("duplicate branch identity %q", branch)
	}
	if _, ok := g.nodes[addr.String()]; !ok {
		return Errorf("branch %q routes to unknown node %s", branch, addr)
	}
	g.branchFirst[branch] = addr
	g.branchOrder = append(g.branchOrder, branch)
	return nil
}

// Freeze makes the graph read-only for the remainder of the process.
func (g *Graph) Freeze() { g.frozen = true }

// Node retrieves a node by its identity string.
func (g *Graph) Node(id string) (*node.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeByName retrieves a node by its instance name.
func (g *Graph) NodeByName(name string) (*node.Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*node.Node {
	out := make([]*node.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*node.Edge {
	out := make([]*node.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// IncomingEdges returns all edges terminating at a node.
func (g *Graph) IncomingEdges(id string) []*node.Edge {
	edges := g.incoming[id]
	out := make([]*node.Edge, len(edges))
	copy(out, edges)
	return out
}

// OutgoingEdges returns all edges originating at a node.
func (g *Graph) OutgoingEdges(id string) []*node.Edge {
	edges := g.outgoing[id]
	out := make([]*node.Edge, len(edges))
	copy(out, edges)
	return out
}

// BranchFirstNodes returns the branch identity to first-node mapping in
// branch declaration order.
func (g *Graph) BranchFirstNodes() map[string]*nodeid.Address {
	out := make(map[string]*nodeid.Address, len(g.branchFirst))
	for k, v := range g.branchFirst {
		out[k] = v
	}
	return out
}

// BranchOrder returns the branch identities in declaration order.
func (g *Graph) BranchOrder() []string {
	out := make([]string, len(g.branchOrder))
	copy(out, g.branchOrder)
	return out
}
