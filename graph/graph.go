// Package graph holds the host dataflow graph the fusion engine optimizes:
// operation nodes with an open kind vocabulary, typed value edges and named
// attributes.
//
// The graph is arena-style storage: it owns a mapping from stable NodeID to
// node record and from ValueID to value record, and every producer/consumer
// link is an id lookup, never a pointer cycle. Construction (AddInput, AddOp,
// Node.AddOutput, MarkOutput) happens once, up-front; after that the graph is
// mutated only by committed fusion rewrites, which strictly shrink the node
// count while preserving the graph's boundary connectivity.
package graph

import (
	"slices"

	"github.com/Flamefire/oneDNN/kernels"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"golang.org/x/exp/maps"
)

// Graph is a host dataflow graph. It is not safe for concurrent mutation;
// independent graphs can be processed fully in parallel.
type Graph struct {
	name string

	nodes  map[NodeID]*Node
	values map[ValueID]*Value

	nextNode  NodeID
	nextValue ValueID

	inputs  []ValueID
	outputs []ValueID
}

// New creates an empty host graph.
func New(name string) *Graph {
	return &Graph{
		name:   name,
		nodes:  make(map[NodeID]*Node),
		values: make(map[ValueID]*Value),
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// AddInput creates a graph-input value with the given element type and
// dimensions.
func (g *Graph) AddInput(dtype dtypes.DType, dims ...int) ValueID {
	v := g.newValue(dtype, dims, PortRef{Node: InvalidNodeID})
	g.inputs = append(g.inputs, v)
	return v
}

// AddOp creates a node of the given kind consuming the given values, in order.
// Output value-slots are added afterwards with Node.AddOutput.
func (g *Graph) AddOp(kind OpKind, inputs ...ValueID) *Node {
	n := &Node{
		id:     g.nextNode,
		graph:  g,
		kind:   kind,
		inputs: slices.Clone(inputs),
	}
	g.nextNode++
	for idx, in := range inputs {
		v := g.mustValue(in)
		v.consumers = append(v.consumers, PortRef{Node: n.id, Idx: idx})
	}
	g.nodes[n.id] = n
	return n
}

// MarkOutput declares v as a graph output. A value may be marked more than
// once (it then occupies several output positions).
func (g *Graph) MarkOutput(v ValueID) {
	g.mustValue(v)
	g.outputs = append(g.outputs, v)
}

// Inputs returns the graph-input values, in declaration order.
func (g *Graph) Inputs() []ValueID { return slices.Clone(g.inputs) }

// Outputs returns the graph-output values, in declaration order.
func (g *Graph) Outputs() []ValueID { return slices.Clone(g.outputs) }

// IsOutput reports whether v occupies at least one graph-output position.
func (g *Graph) IsOutput(v ValueID) bool {
	return slices.Contains(g.outputs, v)
}

// Node returns the node with the given id, or nil if it does not exist (it may
// have been removed by a rewrite).
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// Value returns the value with the given id, or nil.
func (g *Graph) Value(id ValueID) *Value { return g.values[id] }

// NumNodes returns the current number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NodeIDs returns the ids of all current nodes in ascending (creation) order.
// Ascending ids are a topological order: AddOp only accepts already-created
// values, so a node's producers always have smaller ids.
func (g *Graph) NodeIDs() []NodeID {
	ids := maps.Keys(g.nodes)
	slices.Sort(ids)
	return ids
}

// Producer returns the node and output index producing v, or (nil, -1) if v is
// a graph input.
func (g *Graph) Producer(v ValueID) (*Node, int) {
	ref := g.mustValue(v).producer
	if ref.Node == InvalidNodeID {
		return nil, -1
	}
	return g.nodes[ref.Node], ref.Idx
}

// RewireConsumer redirects one consumer slot from its current value to
// newValue. The consumer's identity and argument position are unchanged.
func (g *Graph) RewireConsumer(ref PortRef, newValue ValueID) {
	n := g.nodes[ref.Node]
	if n == nil {
		exceptions.Panicf("graph %q: RewireConsumer: node #%d does not exist", g.name, ref.Node)
	}
	old := g.mustValue(n.inputs[ref.Idx])
	pos := slices.Index(old.consumers, ref)
	if pos < 0 {
		exceptions.Panicf("graph %q: RewireConsumer: node #%d input %d is not a consumer of v%d",
			g.name, ref.Node, ref.Idx, old.id)
	}
	old.consumers = slices.Delete(old.consumers, pos, pos+1)
	n.inputs[ref.Idx] = newValue
	g.mustValue(newValue).consumers = append(g.mustValue(newValue).consumers, ref)
}

// ReplaceOutput replaces every graph-output position holding old with newValue.
func (g *Graph) ReplaceOutput(old, newValue ValueID) {
	g.mustValue(newValue)
	for i, v := range g.outputs {
		if v == old {
			g.outputs[i] = newValue
		}
	}
}

// RemoveNode deletes a node and the values it produces. It is a fatal error if
// any produced value still has consumers or occupies a graph-output position:
// callers must rewire those first.
func (g *Graph) RemoveNode(id NodeID) {
	n := g.nodes[id]
	if n == nil {
		exceptions.Panicf("graph %q: RemoveNode: node #%d does not exist", g.name, id)
	}
	for _, out := range n.outputs {
		v := g.mustValue(out)
		if len(v.consumers) > 0 {
			exceptions.Panicf("graph %q: RemoveNode: %s output v%d still has %d consumer(s)",
				g.name, n, out, len(v.consumers))
		}
		if g.IsOutput(out) {
			exceptions.Panicf("graph %q: RemoveNode: %s output v%d is still a graph output",
				g.name, n, out)
		}
	}
	for idx, in := range n.inputs {
		v := g.mustValue(in)
		ref := PortRef{Node: id, Idx: idx}
		if pos := slices.Index(v.consumers, ref); pos >= 0 {
			v.consumers = slices.Delete(v.consumers, pos, pos+1)
		}
	}
	for _, out := range n.outputs {
		delete(g.values, out)
	}
	delete(g.nodes, id)
}

// BindKernel tags a fused node with its partition kind and kernel handle.
// Only OpKindFusedPartition nodes may carry a kernel.
func (n *Node) BindKernel(kind PartitionKind, k kernels.Kernel) *Node {
	if n.kind != OpKindFusedPartition {
		exceptions.Panicf("graph %q: BindKernel on %s, only %s nodes take kernels",
			n.graph.name, n, OpKindFusedPartition)
	}
	n.partition = kind
	n.kernel = k
	return n
}

func (g *Graph) newValue(dtype dtypes.DType, dims []int, producer PortRef) ValueID {
	v := &Value{
		id:       g.nextValue,
		dtype:    dtype,
		dims:     slices.Clone(dims),
		producer: producer,
	}
	g.nextValue++
	g.values[v.id] = v
	return v.id
}

func (g *Graph) mustValue(id ValueID) *Value {
	v := g.values[id]
	if v == nil {
		exceptions.Panicf("graph %q: value v%d does not exist", g.name, id)
	}
	return v
}
