package graph

import (
	"fmt"
	"sort"

	"github.com/vk/flowgridgo/internal/node"
)

// Problem is one structural finding. Validate reports problems without
// deciding fatality; the build orchestrator decides what aborts.
type Problem struct {
	NodeID string
	Detail string
}

func (p Problem) String() string {
	if p.NodeID == "" {
		return p.Detail
	}
	return fmt.Sprintf("%s: %s", p.NodeID, p.Detail)
}

// Validate runs the schema-blind structural pass: acyclicity, sink
// reachability from the sources, and gate route targets pointing at
// declared nodes. Anything schema-shaped has already been checked by the
// compatibility pass and is not re-checked here.
func (g *Graph) Validate() []Problem {
	var problems []Problem
	problems = append(problems, g.checkCycles()...)
	problems = append(problems, g.checkReachability()...)
	problems = append(problems, g.checkRouteTargets()...)
	return problems
}

// checkCycles runs a depth-first search with a recursion-stack set.
func (g *Graph) checkCycles() []Problem {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var problems []Problem

	var visit func(id string) bool
	visit = func(id string) bool {
		visiting[id] = true
		for _, e := range g.outgoing[id] {
			next := e.To.String()
			if visiting[next] {
				problems = append(problems, Problem{NodeID: next, Detail: "cycle detected involving this node"})
				return true
			}
			if !visited[next] {
				if visit(next) {
					return true
				}
			}
		}
		delete(visiting, id)
		visited[id] = true
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if visit(id) {
				// Report the first cycle only; untangling one usually
				// changes the rest.
				break
			}
		}
	}
	return problems
}

// checkReachability verifies every sink is reachable from some source.
func (g *Graph) checkReachability() []Problem {
	reached := make(map[string]bool)
	var queue []string
	for _, id := range g.order {
		if g.nodes[id].Kind() == node.KindSource {
			reached[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.outgoing[id] {
			next := e.To.String()
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}

	var problems []Problem
	for _, id := range g.order {
		if g.nodes[id].Kind() == node.KindSink && !reached[id] {
			problems = append(problems, Problem{NodeID: id, Detail: "sink is not reachable from any source"})
		}
	}
	return problems
}

// checkRouteTargets verifies gate routes point at declared nodes.
func (g *Graph) checkRouteTargets() []Problem {
	var problems []Problem
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind() != node.KindGate {
			continue
		}
		gate, err := n.Config().Gate()
		if err != nil {
			problems = append(problems, Problem{NodeID: id, Detail: err.Error()})
			continue
		}
		labels := make([]string, 0, len(gate.Routes))
		for label := range gate.Routes {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			target := gate.Routes[label]
			if _, ok := g.byName[target]; !ok {
				problems = append(problems, Problem{
					NodeID: id,
					Detail: fmt.Sprintf("route %q targets undeclared node %q", label, target),
				})
			}
		}
	}
	return problems
}
