// Package patterns holds the built-in fusion patterns and the decision
// predicates they share.
package patterns

import (
	"github.com/Flamefire/oneDNN/fusion"
	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/pattern"
	"github.com/gomlx/gopjrt/dtypes"
)

// CheckQtypeEqualToPerTensor accepts quantize/dequantize nodes with per-tensor
// granularity. An absent qtype attribute means per-tensor (the default).
func CheckQtypeEqualToPerTensor(n *graph.Node) bool {
	qtype, ok := n.AttrString(graph.AttrQType)
	return !ok || qtype == "per_tensor"
}

// CheckZpsValues returns a predicate accepting nodes whose zero points all
// equal v. Absent zero points mean symmetric quantization, accepted when
// v == 0.
func CheckZpsValues(v int64) pattern.DecisionFn {
	return func(n *graph.Node) bool {
		zps, ok := n.AttrInts(graph.AttrZps)
		if !ok {
			return v == 0
		}
		for _, zp := range zps {
			if zp != v {
				return false
			}
		}
		return true
	}
}

// CheckGroupsEqual returns a predicate accepting convolution nodes with the
// given group count. An absent groups attribute means 1.
func CheckGroupsEqual(v int64) pattern.DecisionFn {
	return func(n *graph.Node) bool {
		groups, ok := n.AttrInt(graph.AttrGroups)
		if !ok {
			return v == 1
		}
		return groups == v
	}
}

// CheckOutputDTypeIn returns a predicate accepting nodes whose first output
// has one of the given element types.
func CheckOutputDTypeIn(dts ...dtypes.DType) pattern.DecisionFn {
	return func(n *graph.Node) bool {
		if n.NumOutputs() == 0 {
			return false
		}
		got := n.Graph().Value(n.Output(0)).DType()
		for _, dt := range dts {
			if got == dt {
				return true
			}
		}
		return false
	}
}

// binaryKinds are the elementwise binary ops fusable as post-ops.
var binaryKinds = []graph.OpKind{
	graph.OpKindAdd,
	graph.OpKindMultiply,
	graph.OpKindMaximum,
	graph.OpKindMinimum,
	graph.OpKindDivide,
	graph.OpKindSubtract,
}

// eltwiseKinds are the unary activations fusable as post-ops.
var eltwiseKinds = []graph.OpKind{
	graph.OpKindReLU,
	graph.OpKindSigmoid,
	graph.OpKindGELU,
}

// NewRegistry returns a registry with all built-in patterns registered.
func NewRegistry() *fusion.Registry {
	r := fusion.NewRegistry()
	RegisterPoolFusions(r)
	RegisterConvFusions(r)
	RegisterMatMulFusions(r)
	return r
}
