package fusion

import (
	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/pattern"
	"github.com/Flamefire/oneDNN/types"
)

// finalize verifies a structurally complete binding and assembles the Match.
// Verification failures are treated exactly like a structural no-match: the
// binding is discarded silently and the host graph is untouched.
func (m *matcher) finalize(r *Registered, fr *frame) (*Match, bool) {
	var nodes []graph.NodeID
	set := types.MakeSet[graph.NodeID]()
	for _, e := range m.journal {
		if !e.comp {
			nodes = append(nodes, e.host)
			set.Insert(e.host)
		}
	}
	if len(nodes) == 0 {
		return nil, false
	}

	// Input slots not explained by a pattern edge must be fed from outside
	// the match, unless the position opted into internal inputs.
	for _, e := range m.journal {
		if e.comp {
			continue
		}
		q := e.pn.(*pattern.OpNode)
		if q.InternalInputsAllowed() {
			continue
		}
		h := m.host.Node(e.host)
		cs := m.constrained[e.host]
		for idx := 0; idx < h.NumInputs(); idx++ {
			if cs.Has(idx) {
				continue
			}
			if pn, _ := m.host.Producer(h.Input(idx)); pn != nil && set.Has(pn.ID()) {
				return nil, false
			}
		}
	}

	pg := r.pg
	outputs := make([]graph.ValueID, pg.NumOutputPorts())
	exposed := types.MakeSet[graph.ValueID]()
	for i := range outputs {
		p, _ := pg.OutputPort(i)
		hv, ok := m.portValueOut(fr, p)
		if !ok {
			return nil, false
		}
		pn, _ := m.host.Producer(hv)
		if pn == nil || !set.Has(pn.ID()) {
			// An exposed output must be produced inside the matched region.
			return nil, false
		}
		outputs[i] = hv
		exposed.Insert(hv)
	}

	// Boundary safety: every edge of the matched region not routed to a
	// declared output port is internal-only: it must have no consumer
	// outside the match and must not be a graph output.
	for _, id := range nodes {
		h := m.host.Node(id)
		for oi := 0; oi < h.NumOutputs(); oi++ {
			v := h.Output(oi)
			if exposed.Has(v) {
				continue
			}
			if m.host.IsOutput(v) {
				return nil, false
			}
			for _, ref := range m.host.Value(v).Consumers() {
				if !set.Has(ref.Node) {
					return nil, false
				}
			}
		}
	}

	// Fused-node inputs: declared input ports in port order, then any extra
	// external producers feeding the region, in binding/slot order.
	inputs := make([]graph.ValueID, 0, pg.NumInputPorts())
	seen := types.MakeSet[graph.ValueID]()
	for i := 0; i < pg.NumInputPorts(); i++ {
		p, _ := pg.InputPort(i)
		hv, ok := m.portValueIn(fr, p)
		if !ok {
			return nil, false
		}
		if pn, _ := m.host.Producer(hv); pn != nil && set.Has(pn.ID()) {
			// A declared input port must be fed from outside the match.
			return nil, false
		}
		inputs = append(inputs, hv)
		seen.Insert(hv)
	}
	numPort := len(inputs)
	for _, id := range nodes {
		h := m.host.Node(id)
		for idx := 0; idx < h.NumInputs(); idx++ {
			hv := h.Input(idx)
			if seen.Has(hv) {
				continue
			}
			if pn, _ := m.host.Producer(hv); pn == nil || !set.Has(pn.ID()) {
				inputs = append(inputs, hv)
				seen.Insert(hv)
			}
		}
	}

	return &Match{
		reg:           r,
		host:          m.host,
		nodes:         nodes,
		set:           set,
		inputs:        inputs,
		numPortInputs: numPort,
		outputs:       outputs,
	}, true
}
