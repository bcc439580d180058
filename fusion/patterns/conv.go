package patterns

import (
	"github.com/Flamefire/oneDNN/fusion"
	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/kernels"
	"github.com/Flamefire/oneDNN/pattern"
)

// RegisterConvFusions registers convolution post-ops fusion: a non-grouped
// Convolution followed by any chain (possibly empty) of activations and
// binary ops. A bare convolution still fuses into a one-node partition, which
// is how it gets dispatched to the convolution kernel.
func RegisterConvFusions(r *fusion.Registry) {
	r.Register(fusion.Def{
		Name:         "conv_post_ops_fusion",
		Priority:     9.7,
		Kind:         graph.PartitionConvolutionPostOps,
		Build:        buildConvPostOps,
		CreateKernel: kernels.ConvolutionFwd,
	})
}

func buildConvPostOps(pg *pattern.Graph) {
	pconv := pg.AppendOp(graph.OpKindConvolution)
	pconv.AppendDecisionFn(CheckGroupsEqual(1))

	prep := pg.AppendRepetition(postOpsSubgraph(), pattern.PortPair{}, 0, pattern.MaxRepetition,
		pattern.In(0, pconv, 0))

	pg.CreateInputPort(0, pconv, 0) // data
	pg.CreateInputPort(1, pconv, 1) // weights
	pg.CreateOutputPort(0, prep, 0)
}

// postOpsSubgraph is the repeated unit of a post-ops chain: one activation or
// binary op, whose free operand (for binaries) may come from inside or
// outside the region.
func postOpsSubgraph() *pattern.Graph {
	body := pattern.NewGraph("postop_subgraph")
	post := body.AppendAlternation(append(append([]graph.OpKind{}, eltwiseKinds...), binaryKinds...))
	post.AllowInternalInputs()
	body.CreateInputPort(0, post, 0)
	body.CreateOutputPort(0, post, 0)
	return body
}
