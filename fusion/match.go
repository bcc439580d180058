package fusion

import (
	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/pattern"
	"github.com/Flamefire/oneDNN/types"
)

// Match is a complete binding of a pattern template onto host nodes. It is
// built incrementally during search and either fully produced or discarded;
// callers never observe a partial binding. A Match holds no claim on the host
// graph until Commit.
type Match struct {
	reg  *Registered
	host *graph.Graph

	nodes []graph.NodeID // matched host nodes, in binding order.
	set   types.Set[graph.NodeID]

	// inputs holds the fused node's future inputs: the pattern's declared
	// input ports first, then any extra external producers of the matched
	// region, in discovery order.
	inputs        []graph.ValueID
	numPortInputs int

	// outputs holds the host values at the pattern's declared output ports.
	outputs []graph.ValueID
}

// Pattern returns the registered pattern this match binds.
func (m *Match) Pattern() *Registered { return m.reg }

// Nodes returns the matched host nodes, in binding order.
func (m *Match) Nodes() []graph.NodeID { return m.nodes }

// Inputs returns the future fused-node inputs: declared ports first, then
// extra external inputs of the matched region.
func (m *Match) Inputs() []graph.ValueID { return m.inputs }

// NumPortInputs returns how many of Inputs are declared pattern ports; the
// remainder are extra external inputs discovered during matching.
func (m *Match) NumPortInputs() int { return m.numPortInputs }

// Outputs returns the host values at the declared output ports, in port order.
func (m *Match) Outputs() []graph.ValueID { return m.outputs }

// Match attempts to bind the pattern template to the host graph, anchoring
// the first-appended pattern node at the given host node. It returns
// (nil, false) when the pattern does not apply, an expected, frequent
// outcome rather than an error. The host graph is never mutated by matching;
// tentative bindings live in an undo journal and failed branches roll back
// without observable side effects.
func (r *Registered) Match(hostGraph *graph.Graph, anchor *graph.Node) (*Match, bool) {
	if anchor == nil {
		return nil, false
	}
	m := &matcher{
		host:        hostGraph,
		used:        types.MakeSet[graph.NodeID](),
		constrained: make(map[graph.NodeID]types.Set[int]),
	}
	fr := newFrame()
	first := r.pg.Nodes()[0]
	if !m.anchorNode(fr, first, anchor) {
		return nil, false
	}
	if !m.runWorklist(fr, r.pg) {
		return nil, false
	}
	return m.finalize(r, fr)
}

// compBinding records how a matched composite (alternation or repetition)
// resolves its composition ports to host values. inRefs additionally maps an
// input port to the bound host slot behind it, when one exists (a
// zero-instance repetition has none); checkInEdges uses it to mark slots fed
// by declared pattern edges as constrained.
type compBinding struct {
	in     map[int]graph.ValueID
	out    map[int]graph.ValueID
	inRefs map[int]graph.PortRef
}

// frame is the binding scope of one pattern-graph instantiation. Repetition
// bodies get a fresh frame per instance, so the same pattern node can bind a
// different host node in every iteration.
type frame struct {
	bound map[pattern.Node]*graph.Node
	comps map[pattern.Node]*compBinding
}

func newFrame() *frame {
	return &frame{
		bound: make(map[pattern.Node]*graph.Node),
		comps: make(map[pattern.Node]*compBinding),
	}
}

type journalEntry struct {
	fr   *frame
	pn   pattern.Node
	host graph.NodeID // only valid for op bindings (comp == false).
	comp bool
}

// matcher carries the global state of one match attempt: the one-to-one host
// reservation set and the undo journal. A failure at any depth rolls back to
// the checkpoint taken at that depth, so sibling alternatives start clean.
type matcher struct {
	host    *graph.Graph
	used    types.Set[graph.NodeID]
	journal []journalEntry

	// constrained tracks, per bound host node, the input slots explained by
	// pattern edges (including nested-graph seeding ports). The remaining
	// slots must be fed from outside the match unless the pattern node allows
	// internal inputs.
	constrained map[graph.NodeID]types.Set[int]
}

func (m *matcher) checkpoint() int { return len(m.journal) }

func (m *matcher) rollback(cp int) {
	for i := len(m.journal) - 1; i >= cp; i-- {
		e := m.journal[i]
		if e.comp {
			delete(e.fr.comps, e.pn)
		} else {
			delete(e.fr.bound, e.pn)
			m.used.Discard(e.host)
			delete(m.constrained, e.host)
		}
	}
	m.journal = m.journal[:cp]
}

// bindOp tentatively binds an op-position to a host node and recursively
// satisfies the position's declared in-edges by walking the host graph in
// producer direction. On failure everything this call bound is undone.
// seedSlots are host input slots explained by a nested-graph seeding port
// rather than by one of q's own in-edges.
func (m *matcher) bindOp(fr *frame, q *pattern.OpNode, h *graph.Node, seedSlots ...int) bool {
	if h == nil {
		return false
	}
	if prev, ok := fr.bound[q]; ok {
		return prev == h
	}
	if m.used.Has(h.ID()) {
		// Already reserved for another position; bindings are one-to-one.
		return false
	}
	if !q.MatchesKind(h.Kind()) {
		return false
	}
	if brk, _ := h.AttrBool(graph.AttrFuseBreak); brk {
		return false
	}
	for _, fn := range q.Decisions() {
		if !fn(h) {
			return false
		}
	}
	cp := m.checkpoint()
	fr.bound[q] = h
	m.used.Insert(h.ID())
	cs := types.SetWith(seedSlots...)
	m.constrained[h.ID()] = cs
	m.journal = append(m.journal, journalEntry{fr: fr, pn: q, host: h.ID()})
	for _, e := range q.InEdges() {
		if e.Input >= h.NumInputs() {
			m.rollback(cp)
			return false
		}
		cs.Insert(e.Input)
		if !m.resolveProducer(fr, e.Producer, e.Output, h.Input(e.Input)) {
			m.rollback(cp)
			return false
		}
	}
	return true
}

// resolveProducer checks (and if needed, matches) that pattern node p
// produces host value hv at output slot outIdx.
func (m *matcher) resolveProducer(fr *frame, p pattern.Node, outIdx int, hv graph.ValueID) bool {
	switch q := p.(type) {
	case *pattern.OpNode:
		pn, pidx := m.host.Producer(hv)
		if pn == nil || pidx != outIdx {
			return false
		}
		return m.bindOp(fr, q, pn)
	default:
		if cb, ok := fr.comps[p]; ok {
			return cb.out[outIdx] == hv
		}
		return m.matchCompositeBackward(fr, p, outIdx, hv)
	}
}

// runWorklist binds the remaining nodes of pg, sweeping in append order until
// every position is resolved. A node becomes bindable once one of its
// in-edges has a resolved producer: its candidates are then the consumers of
// that producer's host value at the declared slot.
func (m *matcher) runWorklist(fr *frame, pg *pattern.Graph) bool {
	for {
		progress, allDone := false, true
		for _, q := range pg.Nodes() {
			if m.resolved(fr, q) {
				continue
			}
			allDone = false
			switch st := m.tryBind(fr, q); st {
			case bindOK:
				progress = true
			case bindDead:
				return false
			}
		}
		if allDone {
			return true
		}
		if !progress {
			return false
		}
	}
}

func (m *matcher) resolved(fr *frame, q pattern.Node) bool {
	if _, ok := fr.bound[q]; ok {
		return true
	}
	_, ok := fr.comps[q]
	return ok
}

type bindStatus int

const (
	bindNotReady bindStatus = iota
	bindOK
	bindDead
)

// tryBind attempts to bind q through its first in-edge with a resolved
// producer. bindNotReady means no such edge exists yet; bindDead means a
// handle was available but every candidate failed, so the whole instantiation
// cannot succeed. The seeding edge only picks the candidates: op nodes
// re-check every declared edge in bindOp, composites in checkInEdges.
func (m *matcher) tryBind(fr *frame, q pattern.Node) bindStatus {
	for _, e := range q.InEdges() {
		hv, ok := m.producedValue(fr, e.Producer, e.Output)
		if !ok {
			continue
		}
		if m.seedAtValue(fr, q, e.Input, hv) {
			return bindOK
		}
		return bindDead
	}
	return bindNotReady
}

// producedValue resolves the host value pattern node p produces at slot
// outIdx, if p is already bound.
func (m *matcher) producedValue(fr *frame, p pattern.Node, outIdx int) (graph.ValueID, bool) {
	if h, ok := fr.bound[p]; ok {
		if outIdx >= h.NumOutputs() {
			return 0, false
		}
		return h.Output(outIdx), true
	}
	if cb, ok := fr.comps[p]; ok {
		hv, ok := cb.out[outIdx]
		return hv, ok
	}
	return 0, false
}

// seedAtValue matches pattern node n consuming host value hv at input slot
// `slot`, walking the host graph in consumer direction. For op nodes each
// consumer of hv at that slot is tried in attachment order; the first that
// matches wins, failed candidates are rolled back.
func (m *matcher) seedAtValue(fr *frame, n pattern.Node, slot int, hv graph.ValueID) bool {
	switch q := n.(type) {
	case *pattern.OpNode:
		for _, ref := range m.host.Value(hv).Consumers() {
			if ref.Idx != slot {
				continue
			}
			cp := m.checkpoint()
			if m.bindOp(fr, q, m.host.Node(ref.Node), slot) {
				return true
			}
			m.rollback(cp)
		}
		return false
	case *pattern.AlternationNode:
		return m.altForward(fr, q, slot, hv)
	case *pattern.RepetitionNode:
		return m.repForward(fr, q, slot, hv)
	}
	return false
}

// matchNested matches one instantiation of nested graph B seeded by host
// value hv flowing into B's input port `inPort`. On success it returns the
// resolved port bindings of the instance.
func (m *matcher) matchNested(b *pattern.Graph, inPort int, hv graph.ValueID) (*compBinding, bool) {
	p, ok := b.InputPort(inPort)
	if !ok {
		return nil, false
	}
	cp := m.checkpoint()
	sfr := newFrame()
	if !m.seedAtValue(sfr, p.Node, p.Idx, hv) || !m.runWorklist(sfr, b) {
		m.rollback(cp)
		return nil, false
	}
	cb, ok := m.resolvePorts(sfr, b)
	if !ok {
		m.rollback(cp)
		return nil, false
	}
	return cb, true
}

// altForward matches an alternation consuming hv at slot, trying alternatives
// in declared order: the first that matches wins.
func (m *matcher) altForward(fr *frame, alt *pattern.AlternationNode, slot int, hv graph.ValueID) bool {
	for _, b := range alt.Alternatives() {
		cp := m.checkpoint()
		cb, ok := m.matchNested(b, slot, hv)
		if !ok {
			continue
		}
		if !m.acceptComposite(fr, alt, cb) {
			m.rollback(cp)
			continue
		}
		return true
	}
	return false
}

// repForward greedily matches a repetition consuming hv: chain instances of
// the body until the body no longer matches or the maximum is reached. A
// final count below the minimum discards the whole chain. With zero instances
// (min 0) the repetition's input aliases its output: hv passes through.
func (m *matcher) repForward(fr *frame, rep *pattern.RepetitionNode, slot int, hv graph.ValueID) bool {
	cp := m.checkpoint()
	chain := rep.Chain()
	cur := hv
	count := 0
	var first *compBinding // first instance's port bindings.
	for count < rep.Max() {
		seedSlot := slot
		if count > 0 {
			seedSlot = chain.Input
		}
		cb, ok := m.matchNested(rep.Body(), seedSlot, cur)
		if !ok {
			break
		}
		out, ok := cb.out[chain.Output]
		if !ok {
			m.rollback(cp)
			return false
		}
		if count == 0 {
			first = cb
		}
		cur = out
		count++
	}
	if count < rep.Min() {
		m.rollback(cp)
		return false
	}
	cb := &compBinding{
		in:     map[int]graph.ValueID{},
		out:    map[int]graph.ValueID{chain.Output: cur},
		inRefs: map[int]graph.PortRef{},
	}
	if first != nil {
		for port, v := range first.in {
			cb.in[port] = v
		}
		for port, ref := range first.inRefs {
			cb.inRefs[port] = ref
		}
	}
	cb.in[slot] = hv
	if count == 0 {
		cb.in[chain.Input] = hv
		// Pass-through: skip decision predicates, no node of ours produces cur.
		if !m.checkInEdges(fr, rep, cb, false) {
			m.rollback(cp)
			return false
		}
		fr.comps[rep] = cb
		m.journal = append(m.journal, journalEntry{fr: fr, pn: rep, comp: true})
		return true
	}
	if !m.acceptComposite(fr, rep, cb) {
		m.rollback(cp)
		return false
	}
	return true
}

// matchCompositeBackward matches a composite that produces hv at output slot
// outIdx, walking the host graph in producer direction.
func (m *matcher) matchCompositeBackward(fr *frame, p pattern.Node, outIdx int, hv graph.ValueID) bool {
	switch q := p.(type) {
	case *pattern.AlternationNode:
		for _, b := range q.Alternatives() {
			cp := m.checkpoint()
			cb, ok := m.matchNestedBackward(b, outIdx, hv)
			if !ok {
				continue
			}
			if !m.acceptComposite(fr, q, cb) {
				m.rollback(cp)
				continue
			}
			return true
		}
		return false
	case *pattern.RepetitionNode:
		cp := m.checkpoint()
		chain := q.Chain()
		cur := hv
		count := 0
		var first *compBinding // earliest instance's port bindings.
		for count < q.Max() {
			cb, ok := m.matchNestedBackward(q.Body(), chain.Output, cur)
			if !ok {
				break
			}
			in, ok := cb.in[chain.Input]
			if !ok {
				m.rollback(cp)
				return false
			}
			first = cb
			cur = in
			count++
		}
		if count < q.Min() {
			m.rollback(cp)
			return false
		}
		cb := &compBinding{
			in:     map[int]graph.ValueID{},
			out:    map[int]graph.ValueID{outIdx: hv, chain.Output: hv},
			inRefs: map[int]graph.PortRef{},
		}
		if first != nil {
			for port, v := range first.in {
				cb.in[port] = v
			}
			for port, ref := range first.inRefs {
				cb.inRefs[port] = ref
			}
		}
		cb.in[chain.Input] = cur
		if count == 0 {
			if !m.checkInEdges(fr, q, cb, false) {
				m.rollback(cp)
				return false
			}
			fr.comps[q] = cb
			m.journal = append(m.journal, journalEntry{fr: fr, pn: q, comp: true})
			return true
		}
		if !m.acceptComposite(fr, q, cb) {
			m.rollback(cp)
			return false
		}
		return true
	}
	return false
}

// matchNestedBackward matches one instantiation of nested graph B whose
// output port outPort produces hv.
func (m *matcher) matchNestedBackward(b *pattern.Graph, outPort int, hv graph.ValueID) (*compBinding, bool) {
	p, ok := b.OutputPort(outPort)
	if !ok {
		return nil, false
	}
	cp := m.checkpoint()
	sfr := newFrame()
	if !m.seedProducer(sfr, p.Node, p.Idx, hv) || !m.runWorklist(sfr, b) {
		m.rollback(cp)
		return nil, false
	}
	cb, ok := m.resolvePorts(sfr, b)
	if !ok {
		m.rollback(cp)
		return nil, false
	}
	return cb, true
}

// seedProducer matches pattern node n producing hv at output slot `slot`.
func (m *matcher) seedProducer(fr *frame, n pattern.Node, slot int, hv graph.ValueID) bool {
	switch q := n.(type) {
	case *pattern.OpNode:
		pn, pidx := m.host.Producer(hv)
		if pn == nil || pidx != slot {
			return false
		}
		return m.bindOp(fr, q, pn)
	default:
		return m.matchCompositeBackward(fr, n, slot, hv)
	}
}

// acceptComposite records a matched composite's port bindings, evaluates its
// attached decision predicates against the host node producing its first
// output port, and verifies every declared in-edge against the resolved
// input-port values.
func (m *matcher) acceptComposite(fr *frame, p pattern.Node, cb *compBinding) bool {
	if decisions := p.Decisions(); len(decisions) > 0 {
		rep := m.representative(cb)
		if rep == nil {
			return false
		}
		for _, fn := range decisions {
			if !fn(rep) {
				return false
			}
		}
	}
	if !m.checkInEdges(fr, p, cb, true) {
		return false
	}
	fr.comps[p] = cb
	m.journal = append(m.journal, journalEntry{fr: fr, pn: p, comp: true})
	return true
}

// checkInEdges verifies the declared in-edges of a matched composite: for
// each edge, the producer pattern node must produce exactly the host value
// the composite resolved at that input port. Producers not yet bound are
// matched backward from that value, which is also how a pattern node reachable
// only through a composite edge gets bound at all. With requireAll false,
// edges whose input port has no resolved value are skipped: a zero-instance
// repetition has no instance to feed.
func (m *matcher) checkInEdges(fr *frame, p pattern.Node, cb *compBinding, requireAll bool) bool {
	for _, e := range p.InEdges() {
		hv, ok := cb.in[e.Input]
		if !ok {
			if requireAll {
				return false
			}
			continue
		}
		if !m.resolveProducer(fr, e.Producer, e.Output, hv) {
			return false
		}
		if ref, ok := cb.inRefs[e.Input]; ok {
			// The slot behind the port is explained by this pattern edge.
			if cs := m.constrained[ref.Node]; cs != nil {
				cs.Insert(ref.Idx)
			}
		}
	}
	return true
}

func (m *matcher) representative(cb *compBinding) *graph.Node {
	for idx := 0; ; idx++ {
		hv, ok := cb.out[idx]
		if !ok {
			return nil
		}
		if n, _ := m.host.Producer(hv); n != nil {
			return n
		}
	}
}

// resolvePorts maps a fully-matched graph instantiation's declared ports to
// host values.
func (m *matcher) resolvePorts(fr *frame, pg *pattern.Graph) (*compBinding, bool) {
	cb := &compBinding{
		in:     make(map[int]graph.ValueID, pg.NumInputPorts()),
		out:    make(map[int]graph.ValueID, pg.NumOutputPorts()),
		inRefs: make(map[int]graph.PortRef, pg.NumInputPorts()),
	}
	for i := 0; i < pg.NumInputPorts(); i++ {
		p, _ := pg.InputPort(i)
		hv, ok := m.portValueIn(fr, p)
		if !ok {
			return nil, false
		}
		cb.in[i] = hv
		if ref, ok := m.portRefIn(fr, p); ok {
			cb.inRefs[i] = ref
		}
	}
	for i := 0; i < pg.NumOutputPorts(); i++ {
		p, _ := pg.OutputPort(i)
		hv, ok := m.portValueOut(fr, p)
		if !ok {
			return nil, false
		}
		cb.out[i] = hv
	}
	return cb, true
}

// portRefIn resolves an input port to the bound host slot behind it.
func (m *matcher) portRefIn(fr *frame, p pattern.Port) (graph.PortRef, bool) {
	if h, ok := fr.bound[p.Node]; ok {
		if p.Idx >= h.NumInputs() {
			return graph.PortRef{}, false
		}
		return graph.PortRef{Node: h.ID(), Idx: p.Idx}, true
	}
	if cb, ok := fr.comps[p.Node]; ok {
		ref, ok := cb.inRefs[p.Idx]
		return ref, ok
	}
	return graph.PortRef{}, false
}

func (m *matcher) portValueIn(fr *frame, p pattern.Port) (graph.ValueID, bool) {
	if h, ok := fr.bound[p.Node]; ok {
		if p.Idx >= h.NumInputs() {
			return 0, false
		}
		return h.Input(p.Idx), true
	}
	if cb, ok := fr.comps[p.Node]; ok {
		hv, ok := cb.in[p.Idx]
		return hv, ok
	}
	return 0, false
}

func (m *matcher) portValueOut(fr *frame, p pattern.Port) (graph.ValueID, bool) {
	if h, ok := fr.bound[p.Node]; ok {
		if p.Idx >= h.NumOutputs() {
			return 0, false
		}
		return h.Output(p.Idx), true
	}
	if cb, ok := fr.comps[p.Node]; ok {
		hv, ok := cb.out[p.Idx]
		return hv, ok
	}
	return 0, false
}

// anchorNode binds the designated (first-appended) pattern node to the anchor
// host node proposed by the driver.
func (m *matcher) anchorNode(fr *frame, n pattern.Node, anchor *graph.Node) bool {
	switch q := n.(type) {
	case *pattern.OpNode:
		return m.bindOp(fr, q, anchor)
	case *pattern.AlternationNode:
		for _, b := range q.Alternatives() {
			cp := m.checkpoint()
			sfr := newFrame()
			if m.anchorNode(sfr, b.Nodes()[0], anchor) && m.runWorklist(sfr, b) {
				if cb, ok := m.resolvePorts(sfr, b); ok && m.acceptComposite(fr, q, cb) {
					return true
				}
			}
			m.rollback(cp)
		}
		return false
	case *pattern.RepetitionNode:
		// First instance anchored, remaining instances chained forward.
		cp := m.checkpoint()
		chain := q.Chain()
		sfr := newFrame()
		if !(m.anchorNode(sfr, q.Body().Nodes()[0], anchor) && m.runWorklist(sfr, q.Body())) {
			m.rollback(cp)
			return false
		}
		first, ok := m.resolvePorts(sfr, q.Body())
		if !ok {
			m.rollback(cp)
			return false
		}
		in, okIn := first.in[chain.Input]
		cur, okOut := first.out[chain.Output]
		if !okIn || !okOut {
			m.rollback(cp)
			return false
		}
		count := 1
		for count < q.Max() {
			cb, ok := m.matchNested(q.Body(), chain.Input, cur)
			if !ok {
				break
			}
			out, ok := cb.out[chain.Output]
			if !ok {
				m.rollback(cp)
				return false
			}
			cur = out
			count++
		}
		if count < q.Min() {
			m.rollback(cp)
			return false
		}
		cb := &compBinding{
			in:     map[int]graph.ValueID{},
			out:    map[int]graph.ValueID{chain.Output: cur},
			inRefs: map[int]graph.PortRef{},
		}
		for port, v := range first.in {
			cb.in[port] = v
		}
		for port, ref := range first.inRefs {
			cb.inRefs[port] = ref
		}
		cb.in[chain.Input] = in
		if !m.acceptComposite(fr, q, cb) {
			m.rollback(cp)
			return false
		}
		return true
	}
	return false
}
