// Package node defines the immutable vertices and edges of the execution
// graph: node kinds, the tagged per-kind configuration variants, and the
// frozen Node itself. Nodes are constructed once, fully populated, during
// graph build and never mutated afterward.
package node

import "fmt"

// Kind discriminates the roles a node can play in a pipeline.
type Kind int

const (
	KindSource Kind = iota
	KindTransform
	KindGate
	KindAggregation
	KindCoalesce
	KindSink
)

var kindNames = map[Kind]string{
	KindSource:      "source",
	KindTransform:   "transform",
	KindGate:        "gate",
	KindAggregation: "aggregation",
	KindCoalesce:    "coalesce",
	KindSink:        "sink",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind tag from a definition file back to its Kind.
func ParseKind(tag string) (Kind, error) {
	for k, name := range kindNames {
		if name == tag {
			return k, nil
		}
	}
	return KindSource, fmt.Errorf("unrecognized node kind %q", tag)
}

// IsPlugin reports whether nodes of this kind carry opaque plugin
// configuration rather than framework-controlled fields.
func (k Kind) IsPlugin() bool {
	switch k {
	case KindSource, KindTransform, KindSink:
		return true
	default:
		return false
	}
}
