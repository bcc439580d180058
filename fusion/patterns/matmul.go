package patterns

import (
	"github.com/Flamefire/oneDNN/fusion"
	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/kernels"
	"github.com/Flamefire/oneDNN/pattern"
)

// RegisterMatMulFusions registers matmul post-ops fusion: MatMul, an optional
// BiasAdd, then any chain of activations and binary ops.
func RegisterMatMulFusions(r *fusion.Registry) {
	r.Register(fusion.Def{
		Name:         "matmul_post_ops_fusion",
		Priority:     9.6,
		Kind:         graph.PartitionMatMulPostOps,
		Build:        buildMatMulPostOps,
		CreateKernel: kernels.MatMulFwd,
	})
}

func buildMatMulPostOps(pg *pattern.Graph) {
	pmatmul := pg.AppendOp(graph.OpKindMatMul)

	biasSubgraph := pattern.NewGraph("bias_subgraph")
	pbias := biasSubgraph.AppendOp(graph.OpKindBiasAdd)
	biasSubgraph.CreateInputPort(0, pbias, 0)
	biasSubgraph.CreateOutputPort(0, pbias, 0)
	prepBias := pg.AppendRepetition(biasSubgraph, pattern.PortPair{}, 0, 1,
		pattern.In(0, pmatmul, 0))

	prepPost := pg.AppendRepetition(postOpsSubgraph(), pattern.PortPair{}, 0, pattern.MaxRepetition,
		pattern.In(0, prepBias, 0))

	pg.CreateInputPort(0, pmatmul, 0) // lhs
	pg.CreateInputPort(1, pmatmul, 1) // rhs
	pg.CreateOutputPort(0, prepPost, 0)
}
