package node

import (
	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/nodeid"
)

// Node is a single frozen vertex in the execution graph. Everything it
// carries, including its schema contracts, is computed before construction;
// there is no mutation path on a constructed node.
type Node struct {
	id     *nodeid.Address
	name   string
	kind   Kind
	plugin string
	config Config
	input  *contract.Contract
	output *contract.Contract
}

// New constructs a fully-populated node. The input and output contracts
// may be nil for dynamic or pass-through nodes.
func New(id *nodeid.Address, name string, kind Kind, plugin string, config Config, input, output *contract.Contract) *Node {
	return &Node{
		id:     id,
		name:   name,
		kind:   kind,
		plugin: plugin,
		config: config,
		input:  input,
		output: output,
	}
}

// ID returns the canonical string form of the node's address.
func (n *Node) ID() string { return n.id.String() }

// Address returns the structured node address.
func (n *Node) Address() *nodeid.Address { return n.id }

// Name returns the human-readable instance name from the definition.
func (n *Node) Name() string { return n.name }

// Kind returns the node's discriminator.
func (n *Node) Kind() Kind { return n.kind }

// Plugin returns the plugin identity; for framework nodes this is the
// kind name.
func (n *Node) Plugin() string { return n.plugin }

// Config returns the node's tagged configuration variant.
func (n *Node) Config() Config { return n.config }

// InputContract returns the declared input schema, or nil when dynamic.
func (n *Node) InputContract() *contract.Contract { return n.input }

// OutputContract returns the declared output schema, or nil for
// pass-through and dynamic nodes.
func (n *Node) OutputContract() *contract.Contract { return n.output }

// PassThrough reports whether schema resolution must walk backward through
// this node: a gate that carries no schema of its own.
func (n *Node) PassThrough() bool {
	return n.kind == KindGate && n.output == nil
}
