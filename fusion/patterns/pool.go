package patterns

import (
	"github.com/Flamefire/oneDNN/fusion"
	"github.com/Flamefire/oneDNN/graph"
	"github.com/Flamefire/oneDNN/kernels"
	"github.com/Flamefire/oneDNN/pattern"
)

// RegisterPoolFusions registers the pooling fusion patterns:
//
//	pool_post_ops_fusion:        (AvgPool|MaxPool) followed by a chain of
//	                             elementwise binary ops.
//	int8_pool_binary_fusion_cpu: quantized pooling, CPU flavor.
//	int8_pool_binary_fusion_gpu: the GPU flavor, which additionally
//	                             requires zero zero-points on the second
//	                             dequantize (no post-sum with zero points on
//	                             GPU).
//
// The quantized patterns match:
//
//	        Dequantize                      Dequantize
//	            |                               |
//	    (AvgPool|MaxPool)               (AvgPool|MaxPool)   Dequantize
//	            |                   or             \         /
//	(StaticReshape|StaticTranspose)*                   Add
//	            |                                       |
//	        Quantize                                 Quantize
func RegisterPoolFusions(r *fusion.Registry) {
	r.Register(fusion.Def{
		Name:         "pool_post_ops_fusion",
		Priority:     9.9,
		Kind:         graph.PartitionPoolingPostOps,
		Build:        buildPoolPostOps,
		CreateKernel: kernels.FloatPooling,
	})
	r.Register(fusion.Def{
		Name:         "int8_pool_binary_fusion_cpu",
		Priority:     10.0,
		Engine:       graph.EngineCPU,
		Kind:         graph.PartitionQuantizedPoolingPostOps,
		Build:        buildInt8PoolBinary(false),
		CreateKernel: kernels.QuantizedPooling,
	})
	r.Register(fusion.Def{
		Name:         "int8_pool_binary_fusion_gpu",
		Priority:     10.0,
		Engine:       graph.EngineGPU,
		Kind:         graph.PartitionQuantizedPoolingPostOps,
		Build:        buildInt8PoolBinary(true),
		CreateKernel: kernels.QuantizedPooling,
	})
}

func buildPoolPostOps(pg *pattern.Graph) {
	ppool := pg.AppendAlternation([]graph.OpKind{graph.OpKindAvgPool, graph.OpKindMaxPool})

	binarySubgraph := pattern.NewGraph("pbinary_subgraph")
	pbinary := binarySubgraph.AppendAlternation(binaryKinds)
	pbinary.AllowInternalInputs()
	binarySubgraph.CreateInputPort(0, pbinary, 0)
	binarySubgraph.CreateOutputPort(0, pbinary, 0)

	prep := pg.AppendRepetition(binarySubgraph, pattern.PortPair{}, 1, pattern.MaxRepetition,
		pattern.In(0, ppool, 0))

	pg.CreateInputPort(0, ppool, 0)
	pg.CreateOutputPort(0, prep, 0)
}

// buildInt8PoolBinary builds the quantized pooling pattern. The GPU flavor
// does not support post-sum with zero points, so its second dequantize is
// gated on all-zero zero points; the CPU flavor instead requires per-tensor
// granularity on the data dequantize.
func buildInt8PoolBinary(gpu bool) func(pg *pattern.Graph) {
	return func(pg *pattern.Graph) {
		pdequantData := pg.AppendOp(graph.OpKindDequantize)
		if !gpu {
			pdequantData.AppendDecisionFn(CheckQtypeEqualToPerTensor)
		}

		ppool := pg.AppendAlternation([]graph.OpKind{graph.OpKindAvgPool, graph.OpKindMaxPool},
			pattern.In(0, pdequantData, 0))

		// case1: quant
		subgraph1 := pattern.NewGraph("subgraph_only_quant")
		{
			quant := subgraph1.AppendOp(graph.OpKindQuantize)
			if !gpu {
				quant.AppendDecisionFn(CheckQtypeEqualToPerTensor)
			}
			subgraph1.CreateInputPort(0, quant, 0)
			subgraph1.CreateOutputPort(0, quant, 0)
		}

		// case2: reshape - quant
		subgraph2 := pattern.NewGraph("subgraph_reshape_quant")
		{
			reshape := subgraph2.AppendAlternation(
				[]graph.OpKind{graph.OpKindStaticReshape, graph.OpKindStaticTranspose})
			quant := subgraph2.AppendOp(graph.OpKindQuantize, pattern.In(0, reshape, 0))
			if !gpu {
				quant.AppendDecisionFn(CheckQtypeEqualToPerTensor)
			}
			subgraph2.CreateInputPort(0, reshape, 0)
			subgraph2.CreateOutputPort(0, quant, 0)
		}

		// case3: binary op - quant
		subgraph3 := pattern.NewGraph("padd_subgraph")
		{
			pdequantOther := subgraph3.AppendOp(graph.OpKindDequantize)
			if gpu {
				pdequantOther.AppendDecisionFn(CheckZpsValues(0))
			}
			padd := subgraph3.AppendOp(graph.OpKindAdd, pattern.In(1, pdequantOther, 0))
			quant := subgraph3.AppendOp(graph.OpKindQuantize, pattern.In(0, padd, 0))
			if !gpu {
				quant.AppendDecisionFn(CheckQtypeEqualToPerTensor)
			}
			subgraph3.CreateInputPort(0, padd, 0)
			subgraph3.CreateOutputPort(0, quant, 0)
		}

		palt := pg.AppendAlternationGraphs(
			[]*pattern.Graph{subgraph1, subgraph2, subgraph3},
			pattern.In(0, ppool, 0))

		pg.CreateInputPort(0, pdequantData, 0)
		pg.CreateOutputPort(0, palt, 0)
	}
}
