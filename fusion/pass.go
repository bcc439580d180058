package fusion

import (
	"sync"

	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/internal/workerspool"
	"k8s.io/klog/v2"
)

// Status is the outcome of one pattern attempt at one anchor.
type Status int

//go:generate go tool enumer -type=Status -trimprefix=Status -output=gen_status_enumer.go pass.go

const (
	StatusNoMatch Status = iota
	StatusCommitted
	StatusKernelFailure
)

// Attempt records one pattern/anchor attempt that got further than a plain
// no-match, for diagnostics.
type Attempt struct {
	Pattern string
	Anchor  graph.NodeID
	Status  Status
	Err     error // Set for StatusKernelFailure.
}

// PassResult summarizes one fusion pass over one host graph.
type PassResult struct {
	// Attempts holds the committed and kernel-failure attempts, in the order
	// they happened.
	Attempts []Attempt

	// Committed is the number of committed rewrites.
	Committed int

	// NoMatches counts the attempts where the pattern simply did not apply.
	NoMatches int
}

// RunPass runs all patterns applicable to the engine kind over the host
// graph, in registry rank order: each pattern is offered every current node
// as an anchor, in ascending id (graph) order, and a successful match is
// committed immediately, so later attempts observe the residual graph.
//
// On a kernel-factory failure the anchor's nodes stay in the graph and
// lower-priority patterns get their chance at them later in the same pass.
//
// The sequence of commits is deterministic for a fixed graph, registry and
// engine kind.
func RunPass(g *graph.Graph, r *Registry, engine graph.EngineKind) *PassResult {
	res := &PassResult{}
	for _, reg := range r.PatternsFor(engine) {
		for _, id := range g.NodeIDs() {
			n := g.Node(id)
			if n == nil || n.Kind() == graph.OpKindFusedPartition {
				// Removed by an earlier commit in this pass, or already fused.
				continue
			}
			m, ok := reg.Match(g, n)
			if !ok {
				res.NoMatches++
				continue
			}
			if _, err := m.Commit(); err != nil {
				klog.V(1).Infof("fusion: %q matched at anchor #%d of graph %q but commit failed: %v",
					reg.Name(), id, g.Name(), err)
				res.Attempts = append(res.Attempts, Attempt{
					Pattern: reg.Name(), Anchor: id, Status: StatusKernelFailure, Err: err})
				continue
			}
			res.Attempts = append(res.Attempts, Attempt{
				Pattern: reg.Name(), Anchor: id, Status: StatusCommitted})
			res.Committed++
		}
	}
	klog.V(2).Infof("fusion: pass over graph %q: %d committed, %d no-match", g.Name(), res.Committed, res.NoMatches)
	return res
}

// RunPasses fuses independent host graphs in parallel. Each graph is owned
// exclusively by one worker for the duration of its pass, so no locking is
// needed; results are indexed like the input.
func RunPasses(gs []*graph.Graph, r *Registry, engine graph.EngineKind, pool *workerspool.Pool) []*PassResult {
	if pool == nil {
		pool = workerspool.New()
	}
	results := make([]*PassResult, len(gs))
	var wg sync.WaitGroup
	for i, g := range gs {
		wg.Add(1)
		pool.WaitToStart(func() {
			defer wg.Done()
			results[i] = RunPass(g, r, engine)
		})
	}
	wg.Wait()
	return results
}
