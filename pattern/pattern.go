// Package pattern implements the declarative templates the fusion engine
// searches for in a host graph.
//
// A pattern Graph is assembled imperatively, once, ahead of any matching:
// append a single-kind (or kind-set) op node, wiring its inputs to
// already-appended nodes; append an alternation over nested pattern graphs;
// append a bounded repetition of a nested pattern graph; then declare which
// node slots are the pattern's input and output ports. Construction is pure
// data assembly: it performs no matching, and malformed graphs are reported
// by Validate at registration time, never at match time.
//
// Typical usage:
//
//	ppool := pg.AppendAlternation([]graph.OpKind{graph.OpKindAvgPool, graph.OpKindMaxPool})
//	body := pattern.NewGraph("binary")
//	...
//	pg.AppendRepetition(body, pattern.PortPair{}, 1, pattern.MaxRepetition,
//		pattern.In(0, ppool, 0))
package pattern

import (
	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/types"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// MaxRepetition is the "unbounded" upper limit for AppendRepetition. Matching
// is still bounded by the finite host graph.
const MaxRepetition = 1 << 30

// DecisionFn is a boolean guard evaluated against the host node tentatively
// bound to a pattern position. It must be a pure function of the node's
// attributes and value shapes: bindings are speculative and may be undone.
type DecisionFn func(n *graph.Node) bool

// Node is one position of a pattern graph: an op node, an alternation or a
// repetition. Implementations are sealed to this package.
type Node interface {
	// InEdges returns the declared input wiring of this node.
	InEdges() []InEdge

	// Decisions returns the decision predicates attached to this node.
	Decisions() []DecisionFn

	owner() *Graph
}

// InEdge wires input slot Input of the node being appended to output slot
// Output of an already-appended Producer.
type InEdge struct {
	Input    int
	Producer Node
	Output   int
}

// In builds an InEdge: input slot `input` of the node being appended reads
// from output slot `output` of producer.
func In(input int, producer Node, output int) InEdge {
	return InEdge{Input: input, Producer: producer, Output: output}
}

// Port names one slot of a pattern node as a composition port: for input
// ports Idx is an input slot, for output ports an output slot.
type Port struct {
	Node Node
	Idx  int
}

// PortPair declares how repetitions chain: output slot Output of one instance
// of the body feeds input slot Input of the next. The zero value chains output
// 0 into input 0, the common case.
type PortPair struct {
	Output int
	Input  int
}

type base struct {
	graph     *Graph
	inEdges   []InEdge
	decisions []DecisionFn
}

func (b *base) InEdges() []InEdge       { return b.inEdges }
func (b *base) Decisions() []DecisionFn { return b.decisions }
func (b *base) owner() *Graph           { return b.graph }

// AppendDecisionFn attaches a decision predicate. All attached predicates must
// evaluate true for a binding at this position to be accepted.
func (b *base) AppendDecisionFn(fn DecisionFn) {
	b.decisions = append(b.decisions, fn)
}

// OpNode matches a single host node whose kind is a member of a fixed set.
type OpNode struct {
	base
	kinds               types.Set[graph.OpKind]
	allowInternalInputs bool
}

// MatchesKind reports whether kind is in the permitted set.
func (p *OpNode) MatchesKind(kind graph.OpKind) bool { return p.kinds.Has(kind) }

// AllowInternalInputs lifts the default requirement that input slots not
// constrained by a pattern edge are produced outside the match.
func (p *OpNode) AllowInternalInputs() *OpNode {
	p.allowInternalInputs = true
	return p
}

// InternalInputsAllowed reports whether AllowInternalInputs was called.
func (p *OpNode) InternalInputsAllowed() bool { return p.allowInternalInputs }

// AlternationNode matches exactly one of an ordered list of nested pattern
// graphs. Earlier alternatives are preferred: declaration order is a tie-break.
type AlternationNode struct {
	base
	alternatives []*Graph
}

// Alternatives returns the nested graphs, in declaration order.
func (p *AlternationNode) Alternatives() []*Graph { return p.alternatives }

// RepetitionNode matches between Min and Max chained instances of a nested
// pattern graph.
type RepetitionNode struct {
	base
	body     *Graph
	min, max int
	chain    PortPair
}

// Body returns the repeated sub-template.
func (p *RepetitionNode) Body() *Graph { return p.body }

// Min returns the inclusive minimum repeat count (0 makes the repetition
// optional).
func (p *RepetitionNode) Min() int { return p.min }

// Max returns the inclusive maximum repeat count.
func (p *RepetitionNode) Max() int { return p.max }

// Chain returns the output→input port pair successive instances chain on.
func (p *RepetitionNode) Chain() PortPair { return p.chain }

// Graph is a pattern template: a set of pattern nodes connected by declared
// edges, with named input/output ports exposed for composition. A Graph can be
// embedded as a sub-template inside an alternation or a repetition.
type Graph struct {
	name  string
	nodes []Node

	inPorts  map[int]Port
	outPorts map[int]Port

	errs []error // construction findings, surfaced by Validate.
}

// NewGraph creates an empty pattern graph. The name appears in validation and
// match diagnostics.
func NewGraph(name string) *Graph {
	return &Graph{
		name:     name,
		inPorts:  make(map[int]Port),
		outPorts: make(map[int]Port),
	}
}

// Name returns the pattern graph's name.
func (g *Graph) Name() string { return g.name }

// Nodes returns the pattern nodes in append order. The first-appended node is
// the anchor position a match attempt starts from.
func (g *Graph) Nodes() []Node { return g.nodes }

// AppendOp appends a node matching a single op kind.
func (g *Graph) AppendOp(kind graph.OpKind, in ...InEdge) *OpNode {
	return g.AppendAlternation([]graph.OpKind{kind}, in...)
}

// AppendAlternation appends a node matching any op kind of the given
// non-empty set.
func (g *Graph) AppendAlternation(kinds []graph.OpKind, in ...InEdge) *OpNode {
	p := &OpNode{kinds: types.SetWith(kinds...)}
	if len(kinds) == 0 {
		g.errs = append(g.errs, errors.Errorf("op node #%d has an empty kind set", len(g.nodes)))
	}
	g.append(&p.base, p, in)
	return p
}

// AppendAlternationGraphs appends a node matching exactly one of the given
// nested pattern graphs, tried in order.
func (g *Graph) AppendAlternationGraphs(alternatives []*Graph, in ...InEdge) *AlternationNode {
	p := &AlternationNode{alternatives: alternatives}
	if len(alternatives) == 0 {
		g.errs = append(g.errs, errors.Errorf("alternation node #%d has no alternatives", len(g.nodes)))
	}
	for i, alt := range alternatives {
		if alt == nil {
			g.errs = append(g.errs, errors.Errorf("alternation node #%d: alternative %d is nil", len(g.nodes), i))
		}
	}
	g.append(&p.base, p, in)
	return p
}

// AppendRepetition appends a node matching min..max chained instances of body.
// Use MaxRepetition for an unbounded maximum. With min == 0 the repetition is
// optional: zero instances alias the node's input port to its output port.
func (g *Graph) AppendRepetition(body *Graph, chain PortPair, min, max int, in ...InEdge) *RepetitionNode {
	p := &RepetitionNode{body: body, min: min, max: max, chain: chain}
	switch {
	case body == nil:
		g.errs = append(g.errs, errors.Errorf("repetition node #%d has a nil body", len(g.nodes)))
	case min < 0 || max < 1 || max < min:
		g.errs = append(g.errs, errors.Errorf("repetition node #%d has invalid bounds [%d, %d]", len(g.nodes), min, max))
	}
	g.append(&p.base, p, in)
	return p
}

func (g *Graph) append(b *base, n Node, in []InEdge) {
	b.graph = g
	b.inEdges = in
	seen := types.MakeSet[int](len(in))
	for _, e := range in {
		if e.Input < 0 || e.Output < 0 {
			g.errs = append(g.errs, errors.Errorf("node #%d has an in-edge with negative slot (%d ← %d)", len(g.nodes), e.Input, e.Output))
			continue
		}
		if seen.Has(e.Input) {
			g.errs = append(g.errs, errors.Errorf("node #%d declares input slot %d twice", len(g.nodes), e.Input))
		}
		seen.Insert(e.Input)
		if e.Producer == nil || e.Producer.owner() != g || !g.appended(e.Producer) {
			g.errs = append(g.errs, errors.Errorf("node #%d has an in-edge from a node not previously appended to this graph", len(g.nodes)))
		}
	}
	g.nodes = append(g.nodes, n)
}

func (g *Graph) appended(n Node) bool {
	for _, have := range g.nodes {
		if have == n {
			return true
		}
	}
	return false
}

// CreateInputPort declares that pattern input port `port` is input slot
// `input` of node n: the host value feeding that slot becomes the
// corresponding input of the fused node.
func (g *Graph) CreateInputPort(port int, n Node, input int) {
	g.createPort(g.inPorts, "input", port, n, input)
}

// CreateOutputPort declares that pattern output port `port` is output slot
// `output` of node n: the host value produced there becomes the corresponding
// output of the fused node, and may keep external consumers. All other edges
// of the matched region are internal-only.
func (g *Graph) CreateOutputPort(port int, n Node, output int) {
	g.createPort(g.outPorts, "output", port, n, output)
}

func (g *Graph) createPort(ports map[int]Port, which string, port int, n Node, idx int) {
	if port < 0 || idx < 0 {
		g.errs = append(g.errs, errors.Errorf("%s port %d declared with negative slot %d", which, port, idx))
		return
	}
	if _, dup := ports[port]; dup {
		g.errs = append(g.errs, errors.Errorf("%s port %d declared twice", which, port))
		return
	}
	if n == nil || n.owner() != g || !g.appended(n) {
		g.errs = append(g.errs, errors.Errorf("%s port %d references a node not appended to this graph", which, port))
		return
	}
	ports[port] = Port{Node: n, Idx: idx}
}

// InputPort returns declared input port i.
func (g *Graph) InputPort(i int) (Port, bool) {
	p, ok := g.inPorts[i]
	return p, ok
}

// OutputPort returns declared output port i.
func (g *Graph) OutputPort(i int) (Port, bool) {
	p, ok := g.outPorts[i]
	return p, ok
}

// NumInputPorts returns the number of declared input ports.
func (g *Graph) NumInputPorts() int { return len(g.inPorts) }

// NumOutputPorts returns the number of declared output ports.
func (g *Graph) NumOutputPorts() int { return len(g.outPorts) }

// InputPorts returns the declared input ports, dense by port number. Only
// valid after a successful Validate.
func (g *Graph) InputPorts() []Port { return densePorts(g.inPorts) }

// OutputPorts returns the declared output ports, dense by port number. Only
// valid after a successful Validate.
func (g *Graph) OutputPorts() []Port { return densePorts(g.outPorts) }

func densePorts(ports map[int]Port) []Port {
	out := make([]Port, len(ports))
	for port, p := range ports {
		if port >= 0 && port < len(out) {
			out[port] = p
		}
	}
	return out
}

// Validate checks the pattern graph is well-formed, recursing into nested
// graphs. All findings are combined into the returned error. The fusion
// registry calls this at registration time and treats any error as fatal.
func (g *Graph) Validate() error {
	return g.validate(true)
}

func (g *Graph) validate(topLevel bool) error {
	err := multierr.Combine(g.errs...)
	if len(g.nodes) == 0 {
		err = multierr.Append(err, errors.Errorf("pattern graph has no nodes"))
	}
	for port := range g.inPorts {
		if port >= len(g.inPorts) {
			err = multierr.Append(err, errors.Errorf("input ports are not contiguous: port %d declared with only %d ports", port, len(g.inPorts)))
		}
	}
	for port := range g.outPorts {
		if port >= len(g.outPorts) {
			err = multierr.Append(err, errors.Errorf("output ports are not contiguous: port %d declared with only %d ports", port, len(g.outPorts)))
		}
	}
	if topLevel && len(g.outPorts) == 0 {
		err = multierr.Append(err, errors.Errorf("top-level pattern graph declares no output port"))
	}
	for i, n := range g.nodes {
		switch p := n.(type) {
		case *AlternationNode:
			for ai, alt := range p.alternatives {
				if alt == nil {
					continue
				}
				if sub := alt.validate(false); sub != nil {
					err = multierr.Append(err, errors.WithMessagef(sub, "node #%d alternative %d (%s)", i, ai, alt.name))
				}
			}
		case *RepetitionNode:
			if p.body == nil {
				continue
			}
			if sub := p.body.validate(false); sub != nil {
				err = multierr.Append(err, errors.WithMessagef(sub, "node #%d repetition body (%s)", i, p.body.name))
			}
			if _, ok := p.body.inPorts[p.chain.Input]; !ok {
				err = multierr.Append(err, errors.Errorf("node #%d: repetition body %q does not declare chained input port %d", i, p.body.name, p.chain.Input))
			}
			if _, ok := p.body.outPorts[p.chain.Output]; !ok {
				err = multierr.Append(err, errors.Errorf("node #%d: repetition body %q does not declare chained output port %d", i, p.body.name, p.chain.Output))
			}
		}
		// Edges and ports that land on a composite node must be resolvable
		// through the nested graphs' own declared ports.
		for _, e := range n.InEdges() {
			err = multierr.Append(err, requirePort(e.Producer, false, e.Output, i))
			if isComposite(n) {
				err = multierr.Append(err, requirePort(n, true, e.Input, i))
			}
		}
	}
	for port, p := range g.inPorts {
		if isComposite(p.Node) {
			err = multierr.Append(err, errors.WithMessagef(requirePort(p.Node, true, p.Idx, -1), "input port %d", port))
		}
	}
	for port, p := range g.outPorts {
		if isComposite(p.Node) {
			err = multierr.Append(err, errors.WithMessagef(requirePort(p.Node, false, p.Idx, -1), "output port %d", port))
		}
	}
	if err != nil {
		return errors.WithMessagef(err, "pattern %q", g.name)
	}
	return nil
}

func isComposite(n Node) bool {
	switch n.(type) {
	case *AlternationNode, *RepetitionNode:
		return true
	}
	return false
}

// requirePort checks that a slot referenced on a composite node is exposed as
// a declared port by every nested graph that may stand in for it.
func requirePort(n Node, input bool, idx int, at int) error {
	var err error
	check := func(sub *Graph, what string) {
		if sub == nil {
			return
		}
		ports := sub.outPorts
		which := "output"
		if input {
			ports = sub.inPorts
			which = "input"
		}
		if _, ok := ports[idx]; !ok {
			err = multierr.Append(err, errors.Errorf(
				"%s %q does not declare %s port %d (referenced by node #%d)", what, sub.name, which, idx, at))
		}
	}
	switch p := n.(type) {
	case *AlternationNode:
		for _, alt := range p.alternatives {
			check(alt, "alternative")
		}
	case *RepetitionNode:
		check(p.body, "repetition body")
	}
	return err
}
