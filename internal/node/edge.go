package node

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/nodeid"
)

// EdgeMode distinguishes how a row travels along an edge.
type EdgeMode int

const (
	// MoveEdge: the row travels once.
	MoveEdge EdgeMode = iota
	// CopyEdge: the row is duplicated, used for fork branches.
	CopyEdge
)

func (m EdgeMode) String() string {
	switch m {
	case MoveEdge:
		return "move"
	case CopyEdge:
		return "copy"
	default:
		return fmt.Sprintf("EdgeMode(%d)", int(m))
	}
}

// Edge is a directed, labeled connection between two nodes.
type Edge struct {
	From  *nodeid.Address
	To    *nodeid.Address
	Label string
	Mode  EdgeMode
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -[%s/%s]-> %s", e.From, e.Label, e.Mode, e.To)
}
