package graph

import (
	"fmt"
	"strings"

	"github.com/Flamefire/oneDNN/kernels"
	"github.com/gomlx/gopjrt/dtypes"
)

// NodeID is the stable identity of a Node within its owning Graph.
type NodeID int

// ValueID is the stable identity of a Value within its owning Graph.
type ValueID int

// InvalidNodeID is the producer id of graph-input values.
const InvalidNodeID = NodeID(-1)

// PortRef addresses one slot of a node: for consumers the input index, for
// producers the output index.
type PortRef struct {
	Node NodeID
	Idx  int
}

// Node is one operation of the host graph. Nodes are created through
// Graph.AddOp and mutated only by the fusion rewriter.
type Node struct {
	id    NodeID
	graph *Graph
	kind  OpKind

	inputs  []ValueID
	outputs []ValueID
	attrs   map[string]any

	// Only set on OpKindFusedPartition nodes.
	partition PartitionKind
	kernel    kernels.Kernel
}

// ID returns the node's identity in its owning graph.
func (n *Node) ID() NodeID { return n.id }

// Graph returns the owning graph.
func (n *Node) Graph() *Graph { return n.graph }

// Kind returns the operation kind tag.
func (n *Node) Kind() OpKind { return n.kind }

// NumInputs returns the number of input value-slots.
func (n *Node) NumInputs() int { return len(n.inputs) }

// NumOutputs returns the number of output value-slots.
func (n *Node) NumOutputs() int { return len(n.outputs) }

// Input returns the value feeding input slot i.
func (n *Node) Input(i int) ValueID { return n.inputs[i] }

// Output returns the value produced at output slot i.
func (n *Node) Output(i int) ValueID { return n.outputs[i] }

// Inputs returns a copy of the input value-slots, in order.
func (n *Node) Inputs() []ValueID {
	out := make([]ValueID, len(n.inputs))
	copy(out, n.inputs)
	return out
}

// Outputs returns a copy of the output value-slots, in order.
func (n *Node) Outputs() []ValueID {
	out := make([]ValueID, len(n.outputs))
	copy(out, n.outputs)
	return out
}

// AddOutput appends an output value-slot with the given element type and
// dimensions, and returns its id.
func (n *Node) AddOutput(dtype dtypes.DType, dims ...int) ValueID {
	v := n.graph.newValue(dtype, dims, PortRef{Node: n.id, Idx: len(n.outputs)})
	n.outputs = append(n.outputs, v)
	return v
}

// SetAttr sets a named attribute. It returns the node to allow chaining.
func (n *Node) SetAttr(name string, value any) *Node {
	if n.attrs == nil {
		n.attrs = make(map[string]any)
	}
	n.attrs[name] = value
	return n
}

// Attr returns the raw attribute value, or nil if absent.
func (n *Node) Attr(name string) any {
	return n.attrs[name]
}

// AttrString returns a string attribute.
func (n *Node) AttrString(name string) (string, bool) {
	s, ok := n.attrs[name].(string)
	return s, ok
}

// AttrInt returns an int64 attribute.
func (n *Node) AttrInt(name string) (int64, bool) {
	i, ok := n.attrs[name].(int64)
	return i, ok
}

// AttrInts returns an []int64 attribute.
func (n *Node) AttrInts(name string) ([]int64, bool) {
	is, ok := n.attrs[name].([]int64)
	return is, ok
}

// AttrFloats returns a []float64 attribute.
func (n *Node) AttrFloats(name string) ([]float64, bool) {
	fs, ok := n.attrs[name].([]float64)
	return fs, ok
}

// AttrBool returns a bool attribute.
func (n *Node) AttrBool(name string) (bool, bool) {
	b, ok := n.attrs[name].(bool)
	return b, ok
}

// Partition returns the dispatch classification of a fused node, or
// PartitionUndefined for ordinary nodes.
func (n *Node) Partition() PartitionKind { return n.partition }

// Kernel returns the kernel handle bound to a fused node, or nil.
func (n *Node) Kernel() kernels.Kernel { return n.kernel }

// String returns a short description of the node for diagnostics.
func (n *Node) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d:%s(", n.id, n.kind)
	for i, in := range n.inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "v%d", in)
	}
	b.WriteString(")")
	if n.kind == OpKindFusedPartition {
		fmt.Fprintf(&b, "[%s]", n.partition)
	}
	return b.String()
}

// Value is one edge of the host graph: a single producer output slot fanned
// out to zero or more consumer input slots.
type Value struct {
	id        ValueID
	dtype     dtypes.DType
	dims      []int
	producer  PortRef // Node == InvalidNodeID for graph inputs.
	consumers []PortRef
}

// ID returns the value's identity in its owning graph.
func (v *Value) ID() ValueID { return v.id }

// DType returns the element type of the value.
func (v *Value) DType() dtypes.DType { return v.dtype }

// Dims returns the value's dimensions. The returned slice must not be mutated.
func (v *Value) Dims() []int { return v.dims }

// Producer returns the output slot that produces this value. For graph inputs
// the Node field is InvalidNodeID.
func (v *Value) Producer() PortRef { return v.producer }

// Consumers returns the input slots consuming this value, in attachment order.
// The returned slice must not be mutated.
func (v *Value) Consumers() []PortRef { return v.consumers }
