package graph

import (
	"github.com/vk/flowgridgo/internal/contract"
)

// EffectiveProducerSchema resolves the schema actually flowing out of a
// node. If the node carries an output schema, that schema is returned. A
// pass-through node (a gate with no schema of its own) is resolved by
// walking backward: zero incoming edges is a construction bug; one edge
// recurses; multiple edges must all resolve to the same schema, otherwise
// the merge point is ambiguous. Any other node without an output schema is
// dynamic and resolves to nil.
func (g *Graph) EffectiveProducerSchema(id string) (*contract.Contract, error) {
	return g.effectiveSchema(id, make(map[string]bool))
}

func (g *Graph) effectiveSchema(id string, walking map[string]bool) (*contract.Contract, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, Errorf("effective schema: unknown node %s", id)
	}
	if out := n.OutputContract(); out != nil {
		return out, nil
	}
	if !n.PassThrough() {
		// Dynamic producer: compatible with anything.
		return nil, nil
	}
	if walking[id] {
		return nil, Errorf("effective schema: cycle through pass-through node %s", id)
	}
	walking[id] = true
	defer delete(walking, id)

	incoming := g.incoming[id]
	switch len(incoming) {
	case 0:
		return nil, Errorf("pass-through node %s has no incoming edges", id)
	case 1:
		return g.effectiveSchema(incoming[0].From.String(), walking)
	default:
		var resolved *contract.Contract
		for i, e := range incoming {
			schema, err := g.effectiveSchema(e.From.String(), walking)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				resolved = schema
				continue
			}
			if !resolved.Equal(schema) {
				return nil, Errorf("ambiguous merge point at %s: incoming schemas disagree", id)
			}
		}
		return resolved, nil
	}
}
