package fusion

import (
	"slices"

	"github.com/Flamefire/oneDNN/graph"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Commit replaces the matched region with a single fused node bound to the
// pattern's kernel.
//
// The kernel factory runs before any graph mutation: if it fails, the error
// is returned and the host graph is exactly as it was. After that point the
// replacement cannot fail; it completes atomically with respect to graph
// consistency. Every external consumer of a declared output port is rewired
// to the fused node's corresponding output, keeping its identity and argument
// position; then the matched nodes and their now-internal edges are removed.
//
// Committing a match whose host nodes were already consumed by an earlier
// commit is a programmer error (the driver must not schedule overlapping
// matches) and panics.
func (m *Match) Commit() (*graph.Node, error) {
	g := m.host
	for _, id := range m.nodes {
		if g.Node(id) == nil {
			exceptions.Panicf("fusion: commit of %q: matched host node #%d no longer exists, overlapping commits?",
				m.reg.Name(), id)
		}
	}

	kern, err := m.reg.def.CreateKernel()
	if err != nil {
		return nil, errors.WithMessagef(err, "fusion: pattern %q kernel factory", m.reg.Name())
	}

	fused := g.AddOp(graph.OpKindFusedPartition, m.inputs...)
	fused.BindKernel(m.reg.def.Kind, kern)
	newOuts := make([]graph.ValueID, len(m.outputs))
	for i, old := range m.outputs {
		ov := g.Value(old)
		newOuts[i] = fused.AddOutput(ov.DType(), ov.Dims()...)
	}

	for i, old := range m.outputs {
		for _, ref := range slices.Clone(g.Value(old).Consumers()) {
			if !m.set.Has(ref.Node) {
				g.RewireConsumer(ref, newOuts[i])
			}
		}
		g.ReplaceOutput(old, newOuts[i])
	}

	// Remove matched nodes consumers-first; the boundary-safety invariant
	// guarantees the region peels off completely.
	remaining := slices.Clone(m.nodes)
	for len(remaining) > 0 {
		removedAny := false
		for i := 0; i < len(remaining); {
			if m.removable(remaining[i]) {
				g.RemoveNode(remaining[i])
				remaining = slices.Delete(remaining, i, i+1)
				removedAny = true
			} else {
				i++
			}
		}
		if !removedAny {
			exceptions.Panicf("fusion: commit of %q could not remove matched nodes %v, graph left inconsistent?",
				m.reg.Name(), remaining)
		}
	}

	if klog.V(1).Enabled() {
		klog.Infof("fusion: %q fused %d node(s) of graph %q into %s (kernel %s/%s)",
			m.reg.Name(), len(m.nodes), g.Name(), fused, kern.Name(), kern.ID())
	}
	return fused, nil
}

func (m *Match) removable(id graph.NodeID) bool {
	n := m.host.Node(id)
	for oi := 0; oi < n.NumOutputs(); oi++ {
		v := n.Output(oi)
		if len(m.host.Value(v).Consumers()) > 0 || m.host.IsOutput(v) {
			return false
		}
	}
	return true
}
