package fusion_test

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Flamefire/oneDNN/fusion"
	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/kernels"
	"github.com/Flamefire/oneDNN/pattern"
)

// buildPoolRelu is a two-position template: MaxPool feeding ReLU.
func buildPoolRelu(pg *pattern.Graph) {
	pool := pg.AppendOp(graph.OpKindMaxPool)
	relu := pg.AppendOp(graph.OpKindReLU, pattern.In(0, pool, 0))
	pg.CreateInputPort(0, pool, 0)
	pg.CreateOutputPort(0, relu, 0)
}

// poolReluGraph builds x → MaxPool → ReLU → output.
func poolReluGraph() (*graph.Graph, *graph.Node, *graph.Node) {
	g := graph.New("pool_relu")
	x := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
	pool := g.AddOp(graph.OpKindMaxPool, x)
	pv := pool.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	relu := g.AddOp(graph.OpKindReLU, pv)
	rv := relu.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	g.MarkOutput(rv)
	return g, pool, relu
}

func register(r *fusion.Registry, name string, priority float32, engine graph.EngineKind,
	build func(*pattern.Graph), factory kernels.Factory) *fusion.Registered {
	if factory == nil {
		factory = kernels.FloatPooling
	}
	return r.Register(fusion.Def{
		Name:         name,
		Priority:     priority,
		Engine:       engine,
		Kind:         graph.PartitionPoolingPostOps,
		Build:        build,
		CreateKernel: factory,
	})
}

func TestRegisterPanicsOnBadDef(t *testing.T) {
	r := fusion.NewRegistry()
	ok := fusion.Def{
		Name:         "ok",
		Build:        buildPoolRelu,
		CreateKernel: kernels.FloatPooling,
	}

	bad := ok
	bad.Name = ""
	require.Panics(t, func() { r.Register(bad) })

	bad = ok
	bad.Build = nil
	require.Panics(t, func() { r.Register(bad) })

	bad = ok
	bad.CreateKernel = nil
	require.Panics(t, func() { r.Register(bad) })

	// A template failing validation is rejected at registration, not at match.
	bad = ok
	bad.Build = func(pg *pattern.Graph) { pg.AppendOp(graph.OpKindMaxPool) } // no output port
	require.Panics(t, func() { r.Register(bad) })
}

func TestPatternsForOrderAndEngineFilter(t *testing.T) {
	r := fusion.NewRegistry()
	register(r, "low", 1.0, graph.EngineAny, buildPoolRelu, nil)
	register(r, "high", 2.0, graph.EngineAny, buildPoolRelu, nil)
	register(r, "tied_first", 1.5, graph.EngineAny, buildPoolRelu, nil)
	register(r, "tied_second", 1.5, graph.EngineAny, buildPoolRelu, nil)
	register(r, "gpu_only", 3.0, graph.EngineGPU, buildPoolRelu, nil)

	names := func(regs []*fusion.Registered) []string {
		out := make([]string, len(regs))
		for i, reg := range regs {
			out[i] = reg.Name()
		}
		return out
	}

	// Descending priority, registration order breaking ties; the GPU-only
	// pattern is never offered to the CPU.
	assert.Equal(t, []string{"high", "tied_first", "tied_second", "low"},
		names(r.PatternsFor(graph.EngineCPU)))
	assert.Equal(t, []string{"gpu_only", "high", "tied_first", "tied_second", "low"},
		names(r.PatternsFor(graph.EngineGPU)))
}

func TestMatchSimpleChain(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_relu", 1.0, graph.EngineAny, buildPoolRelu, nil)
	g, pool, relu := poolReluGraph()

	m, ok := reg.Match(g, pool)
	require.True(t, ok)
	assert.ElementsMatch(t, []graph.NodeID{pool.ID(), relu.ID()}, m.Nodes())
	assert.Equal(t, []graph.ValueID{pool.Input(0)}, m.Inputs())
	assert.Equal(t, []graph.ValueID{relu.Output(0)}, m.Outputs())

	// Matching never mutates the host graph.
	assert.Equal(t, 2, g.NumNodes())

	// The ReLU is not a valid anchor: the first-appended position is the pool.
	_, ok = reg.Match(g, relu)
	assert.False(t, ok)
}

func TestMatchRejectsBoundaryViolations(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_relu", 1.0, graph.EngineAny, buildPoolRelu, nil)

	// The pool→relu edge is internal to the match; an external consumer on it
	// makes the rewrite lossy, so the match must be rejected.
	g, pool, _ := poolReluGraph()
	spy := g.AddOp(graph.OpKindSigmoid, pool.Output(0))
	sv := spy.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	g.MarkOutput(sv)
	_, ok := reg.Match(g, pool)
	assert.False(t, ok)

	// Same when the internal edge is a graph output.
	g, pool, _ = poolReluGraph()
	g.MarkOutput(pool.Output(0))
	_, ok = reg.Match(g, pool)
	assert.False(t, ok)
}

func TestMatchRejectsFuseBreak(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_relu", 1.0, graph.EngineAny, buildPoolRelu, nil)
	g, pool, relu := poolReluGraph()
	relu.SetAttr(graph.AttrFuseBreak, true)
	_, ok := reg.Match(g, pool)
	assert.False(t, ok)
}

func TestMatchDecisionPredicates(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "strided_pool_relu", 1.0, graph.EngineAny, func(pg *pattern.Graph) {
		pool := pg.AppendOp(graph.OpKindMaxPool)
		pool.AppendDecisionFn(func(n *graph.Node) bool {
			_, ok := n.AttrInts(graph.AttrStrides)
			return ok
		})
		relu := pg.AppendOp(graph.OpKindReLU, pattern.In(0, pool, 0))
		pg.CreateInputPort(0, pool, 0)
		pg.CreateOutputPort(0, relu, 0)
	}, nil)

	g, pool, _ := poolReluGraph()
	_, ok := reg.Match(g, pool)
	assert.False(t, ok, "predicate must gate the binding")

	pool.SetAttr(graph.AttrStrides, []int64{2, 2})
	_, ok = reg.Match(g, pool)
	assert.True(t, ok)
}

// buildPoolBinaries is pool followed by one-or-more binary post-ops.
func buildPoolBinaries(allowInternal bool) func(pg *pattern.Graph) {
	return func(pg *pattern.Graph) {
		pool := pg.AppendOp(graph.OpKindMaxPool)
		body := pattern.NewGraph("binary")
		bin := body.AppendAlternation([]graph.OpKind{graph.OpKindAdd, graph.OpKindMultiply})
		if allowInternal {
			bin.AllowInternalInputs()
		}
		body.CreateInputPort(0, bin, 0)
		body.CreateOutputPort(0, bin, 0)
		rep := pg.AppendRepetition(body, pattern.PortPair{}, 1, pattern.MaxRepetition,
			pattern.In(0, pool, 0))
		pg.CreateInputPort(0, pool, 0)
		pg.CreateOutputPort(0, rep, 0)
	}
}

func TestMatchRepetitionGreedyChain(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_binaries", 1.0, graph.EngineAny, buildPoolBinaries(false), nil)

	g := graph.New("chain")
	x := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
	c1 := g.AddInput(dtypes.Float32, 1, 4, 4, 4)
	c2 := g.AddInput(dtypes.Float32, 1, 4, 4, 4)
	c3 := g.AddInput(dtypes.Float32, 1, 4, 4, 4)
	pool := g.AddOp(graph.OpKindMaxPool, x)
	pv := pool.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	add := g.AddOp(graph.OpKindAdd, pv, c1)
	av := add.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	mul := g.AddOp(graph.OpKindMultiply, av, c2)
	mv := mul.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	add2 := g.AddOp(graph.OpKindAdd, mv, c3)
	g.MarkOutput(add2.AddOutput(dtypes.Float32, 1, 4, 4, 4))

	m, ok := reg.Match(g, pool)
	require.True(t, ok)
	// Greedy: the chain swallows all three post-ops.
	assert.Len(t, m.Nodes(), 4)
	// Declared port first, then the free binary operands in discovery order.
	assert.Equal(t, []graph.ValueID{x, c1, c2, c3}, m.Inputs())
	assert.Equal(t, []graph.ValueID{add2.Output(0)}, m.Outputs())
}

func TestMatchRepetitionMinimumNotMet(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_binaries", 1.0, graph.EngineAny, buildPoolBinaries(false), nil)

	// Bare pool: zero post-ops is below the minimum of one.
	g := graph.New("bare")
	x := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
	pool := g.AddOp(graph.OpKindMaxPool, x)
	g.MarkOutput(pool.AddOutput(dtypes.Float32, 1, 4, 4, 4))
	_, ok := reg.Match(g, pool)
	assert.False(t, ok)
}

func TestMatchOptionalRepetitionPassThrough(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_opt", 1.0, graph.EngineAny, func(pg *pattern.Graph) {
		pool := pg.AppendOp(graph.OpKindMaxPool)
		body := pattern.NewGraph("act")
		act := body.AppendOp(graph.OpKindSigmoid)
		body.CreateInputPort(0, act, 0)
		body.CreateOutputPort(0, act, 0)
		rep := pg.AppendRepetition(body, pattern.PortPair{}, 0, pattern.MaxRepetition,
			pattern.In(0, pool, 0))
		pg.CreateInputPort(0, pool, 0)
		pg.CreateOutputPort(0, rep, 0)
	}, nil)

	// With zero instances the repetition's output aliases its input: a bare
	// pool still matches, exposing the pool's own output.
	g := graph.New("bare")
	x := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
	pool := g.AddOp(graph.OpKindMaxPool, x)
	pv := pool.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	g.MarkOutput(pv)

	m, ok := reg.Match(g, pool)
	require.True(t, ok)
	assert.Equal(t, []graph.NodeID{pool.ID()}, m.Nodes())
	assert.Equal(t, []graph.ValueID{pv}, m.Outputs())
}

func TestMatchAlternationPrefersDeclarationOrder(t *testing.T) {
	reluOnly := func() *pattern.Graph {
		b := pattern.NewGraph("relu_only")
		relu := b.AppendOp(graph.OpKindReLU)
		b.CreateInputPort(0, relu, 0)
		b.CreateOutputPort(0, relu, 0)
		return b
	}
	reluSigmoid := func() *pattern.Graph {
		b := pattern.NewGraph("relu_sigmoid")
		relu := b.AppendOp(graph.OpKindReLU)
		sig := b.AppendOp(graph.OpKindSigmoid, pattern.In(0, relu, 0))
		b.CreateInputPort(0, relu, 0)
		b.CreateOutputPort(0, sig, 0)
		return b
	}
	build := func(alts []*pattern.Graph) func(pg *pattern.Graph) {
		return func(pg *pattern.Graph) {
			pool := pg.AppendOp(graph.OpKindMaxPool)
			alt := pg.AppendAlternationGraphs(alts, pattern.In(0, pool, 0))
			pg.CreateInputPort(0, pool, 0)
			pg.CreateOutputPort(0, alt, 0)
		}
	}

	host := func() (*graph.Graph, *graph.Node) {
		g := graph.New("host")
		x := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
		pool := g.AddOp(graph.OpKindMaxPool, x)
		pv := pool.AddOutput(dtypes.Float32, 1, 4, 4, 4)
		relu := g.AddOp(graph.OpKindReLU, pv)
		rv := relu.AddOutput(dtypes.Float32, 1, 4, 4, 4)
		sig := g.AddOp(graph.OpKindSigmoid, rv)
		g.MarkOutput(sig.AddOutput(dtypes.Float32, 1, 4, 4, 4))
		return g, pool
	}

	// Both alternatives can match; the first declared wins.
	r := fusion.NewRegistry()
	long := register(r, "long_first", 1.0, graph.EngineAny,
		build([]*pattern.Graph{reluSigmoid(), reluOnly()}), nil)
	g, pool := host()
	m, ok := long.Match(g, pool)
	require.True(t, ok)
	assert.Len(t, m.Nodes(), 3)

	short := register(r, "short_first", 1.0, graph.EngineAny,
		build([]*pattern.Graph{reluOnly(), reluSigmoid()}), nil)
	g, pool = host()
	m, ok = short.Match(g, pool)
	require.True(t, ok)
	assert.Len(t, m.Nodes(), 2)
}

// buildPoolJoin declares a join: a nested Add whose slot 0 takes the MaxPool
// output and whose slot 1 takes an AvgPool output, both wired through the
// alternation's declared edges. With forked true the AvgPool also consumes
// the pool output; otherwise it is a free position only the alternation's
// second edge can bind.
func buildPoolJoin(forked bool) func(pg *pattern.Graph) {
	return func(pg *pattern.Graph) {
		mp := pg.AppendOp(graph.OpKindMaxPool)
		var ap *pattern.OpNode
		if forked {
			ap = pg.AppendOp(graph.OpKindAvgPool, pattern.In(0, mp, 0))
		} else {
			ap = pg.AppendOp(graph.OpKindAvgPool)
		}
		join := pattern.NewGraph("join")
		add := join.AppendOp(graph.OpKindAdd)
		join.CreateInputPort(0, add, 0)
		join.CreateInputPort(1, add, 1)
		join.CreateOutputPort(0, add, 0)
		alt := pg.AppendAlternationGraphs([]*pattern.Graph{join},
			pattern.In(0, mp, 0), pattern.In(1, ap, 0))
		pg.CreateInputPort(0, mp, 0)
		if !forked {
			pg.CreateInputPort(1, ap, 0)
		}
		pg.CreateOutputPort(0, alt, 0)
	}
}

func TestMatchCompositeEdgeMismatchRejected(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_join", 1.0, graph.EngineAny, buildPoolJoin(true), nil)

	// Conforming host: the same AvgPool feeds the Add's second slot.
	g := graph.New("join")
	x := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
	pool := g.AddOp(graph.OpKindMaxPool, x)
	pv := pool.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	avg := g.AddOp(graph.OpKindAvgPool, pv)
	av := avg.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	add := g.AddOp(graph.OpKindAdd, pv, av)
	g.MarkOutput(add.AddOutput(dtypes.Float32, 1, 4, 4, 4))
	m, ok := reg.Match(g, pool)
	require.True(t, ok)
	assert.Len(t, m.Nodes(), 3)

	// Violating host: the Add's second slot is fed by a second AvgPool over an
	// unrelated value, while the declared one dangles. Every declared edge of
	// a composite must hold, not just the one that seeded it.
	g = graph.New("forked")
	x = g.AddInput(dtypes.Float32, 1, 8, 8, 4)
	y := g.AddInput(dtypes.Float32, 1, 4, 4, 4)
	pool = g.AddOp(graph.OpKindMaxPool, x)
	pv = pool.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	avg = g.AddOp(graph.OpKindAvgPool, pv)
	avg.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	other := g.AddOp(graph.OpKindAvgPool, y)
	ov := other.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	add = g.AddOp(graph.OpKindAdd, pv, ov)
	g.MarkOutput(add.AddOutput(dtypes.Float32, 1, 4, 4, 4))
	_, ok = reg.Match(g, pool)
	assert.False(t, ok)
}

func TestMatchCompositeEdgeBindsProducerBackward(t *testing.T) {
	// The AvgPool position has no edges of its own: the alternation's second
	// declared edge is the only path that can bind it.
	r := fusion.NewRegistry()
	reg := register(r, "pool_join_free", 1.0, graph.EngineAny, buildPoolJoin(false), nil)

	g := graph.New("join")
	x := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
	y := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
	pool := g.AddOp(graph.OpKindMaxPool, x)
	pv := pool.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	avg := g.AddOp(graph.OpKindAvgPool, y)
	av := avg.AddOutput(dtypes.Float32, 1, 4, 4, 4)
	add := g.AddOp(graph.OpKindAdd, pv, av)
	g.MarkOutput(add.AddOutput(dtypes.Float32, 1, 4, 4, 4))

	m, ok := reg.Match(g, pool)
	require.True(t, ok)
	assert.ElementsMatch(t, []graph.NodeID{pool.ID(), avg.ID(), add.ID()}, m.Nodes())
	assert.Equal(t, []graph.ValueID{x, y}, m.Inputs())
	assert.Equal(t, 2, m.NumPortInputs())
}

func TestMatchInternalInputsRule(t *testing.T) {
	// The Add's second operand comes from inside the matched region (the pool
	// output feeds both slots). Without the opt-in this is rejected.
	host := func() (*graph.Graph, *graph.Node) {
		g := graph.New("diamond")
		x := g.AddInput(dtypes.Float32, 1, 8, 8, 4)
		pool := g.AddOp(graph.OpKindMaxPool, x)
		pv := pool.AddOutput(dtypes.Float32, 1, 4, 4, 4)
		add := g.AddOp(graph.OpKindAdd, pv, pv)
		g.MarkOutput(add.AddOutput(dtypes.Float32, 1, 4, 4, 4))
		return g, pool
	}

	r := fusion.NewRegistry()
	strict := register(r, "strict", 1.0, graph.EngineAny, buildPoolBinaries(false), nil)
	g, pool := host()
	_, ok := strict.Match(g, pool)
	assert.False(t, ok)

	relaxed := register(r, "relaxed", 1.0, graph.EngineAny, buildPoolBinaries(true), nil)
	g, pool = host()
	m, ok := relaxed.Match(g, pool)
	require.True(t, ok)
	assert.Len(t, m.Nodes(), 2)
	// The internally-fed slot contributes no extra input.
	assert.Equal(t, []graph.ValueID{g.Node(pool.ID()).Input(0)}, m.Inputs())
}

func TestCommitRewritesAtomically(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_relu", 1.0, graph.EngineAny, buildPoolRelu, nil)
	g, pool, relu := poolReluGraph()
	x := pool.Input(0)

	m, ok := reg.Match(g, pool)
	require.True(t, ok)
	fused, err := m.Commit()
	require.NoError(t, err)

	// One fused node replaces the region; boundary connectivity is preserved.
	assert.Equal(t, 1, g.NumNodes())
	assert.Nil(t, g.Node(pool.ID()))
	assert.Nil(t, g.Node(relu.ID()))
	assert.Equal(t, graph.OpKindFusedPartition, fused.Kind())
	assert.Equal(t, graph.PartitionPoolingPostOps, fused.Partition())
	require.NotNil(t, fused.Kernel())
	assert.Equal(t, "pooling_fwd", fused.Kernel().Name())

	assert.Equal(t, []graph.ValueID{x}, fused.Inputs())
	assert.Equal(t, []graph.ValueID{x}, g.Inputs())
	assert.Equal(t, []graph.ValueID{fused.Output(0)}, g.Outputs())

	// Output value keeps the replaced producer's type and shape.
	ov := g.Value(fused.Output(0))
	assert.Equal(t, dtypes.Float32, ov.DType())
	assert.Equal(t, []int{1, 4, 4, 4}, ov.Dims())
}

func TestCommitRewiresExternalConsumers(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_relu", 1.0, graph.EngineAny, buildPoolRelu, nil)
	g, pool, relu := poolReluGraph()
	// An external consumer hangs off the exposed output port.
	sig := g.AddOp(graph.OpKindSigmoid, relu.Output(0))
	g.MarkOutput(sig.AddOutput(dtypes.Float32, 1, 4, 4, 4))

	m, ok := reg.Match(g, pool)
	require.True(t, ok)
	fused, err := m.Commit()
	require.NoError(t, err)

	// The sigmoid now reads from the fused node, same argument position.
	assert.Equal(t, fused.Output(0), sig.Input(0))
	consumers := g.Value(fused.Output(0)).Consumers()
	require.Len(t, consumers, 1)
	assert.Equal(t, graph.PortRef{Node: sig.ID(), Idx: 0}, consumers[0])
}

func TestCommitKernelFailureLeavesGraphUntouched(t *testing.T) {
	r := fusion.NewRegistry()
	failing := func() (kernels.Kernel, error) { return nil, errors.New("resources exhausted") }
	reg := register(r, "pool_relu", 1.0, graph.EngineAny, buildPoolRelu, failing)
	g, pool, relu := poolReluGraph()

	m, ok := reg.Match(g, pool)
	require.True(t, ok)
	_, err := m.Commit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pattern "pool_relu" kernel factory`)

	// Nothing changed: both nodes alive, wiring intact, no fused node.
	assert.Equal(t, 2, g.NumNodes())
	assert.NotNil(t, g.Node(pool.ID()))
	assert.NotNil(t, g.Node(relu.ID()))
	assert.Equal(t, []graph.ValueID{relu.Output(0)}, g.Outputs())
}

func TestCommitOverlapPanics(t *testing.T) {
	r := fusion.NewRegistry()
	reg := register(r, "pool_relu", 1.0, graph.EngineAny, buildPoolRelu, nil)
	g, pool, _ := poolReluGraph()

	m1, ok := reg.Match(g, pool)
	require.True(t, ok)
	m2, ok := reg.Match(g, pool)
	require.True(t, ok)

	_, err := m1.Commit()
	require.NoError(t, err)
	require.Panics(t, func() { m2.Commit() }) //nolint:errcheck
}
