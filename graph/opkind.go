package graph

// OpKind identifies the operation a Node performs.
//
// The vocabulary is open-ended: importers map operations they don't recognize
// to OpKindWildcard, which still participates in graph plumbing but never
// satisfies a pattern kind-set other than one that names it explicitly.
type OpKind int

//go:generate go tool enumer -type=OpKind -trimprefix=OpKind -output=gen_opkind_enumer.go opkind.go

const (
	OpKindInvalid OpKind = iota
	OpKindWildcard

	// Elementwise binary.

	OpKindAdd
	OpKindSubtract
	OpKindMultiply
	OpKindDivide
	OpKindMaximum
	OpKindMinimum

	// Elementwise unary / activations.

	OpKindReLU
	OpKindSigmoid
	OpKindGELU
	OpKindBiasAdd

	// Compute-heavy ops, the usual fusion anchors.

	OpKindConvolution
	OpKindMatMul
	OpKindAvgPool
	OpKindMaxPool

	// Quantization.

	OpKindQuantize
	OpKindDequantize

	// Layout.

	OpKindStaticReshape
	OpKindStaticTranspose
	OpKindTypeCast

	// OpKindFusedPartition tags nodes inserted by a committed rewrite. The
	// dispatchable classification lives in Node.Partition().
	OpKindFusedPartition

	// OpKindLast should always be kept the last, it is used as a counter/marker for OpKind.
	OpKindLast
)

// EngineKind is the hardware target a compilation runs for. Patterns may be
// restricted to one engine kind; EngineAny patterns apply everywhere.
type EngineKind int

//go:generate go tool enumer -type=EngineKind -trimprefix=Engine -output=gen_enginekind_enumer.go opkind.go

const (
	EngineAny EngineKind = iota
	EngineCPU
	EngineGPU
)

// PartitionKind classifies a fused node for later kernel dispatch.
type PartitionKind int

//go:generate go tool enumer -type=PartitionKind -trimprefix=Partition -output=gen_partitionkind_enumer.go opkind.go

const (
	PartitionUndefined PartitionKind = iota
	PartitionPoolingPostOps
	PartitionQuantizedPoolingPostOps
	PartitionConvolutionPostOps
	PartitionQuantizedConvolutionPostOps
	PartitionMatMulPostOps
)

// Attribute names shared between graph construction and decision predicates.
const (
	// AttrQType is the quantization granularity of a Quantize/Dequantize node:
	// "per_tensor" (the default when absent) or "per_channel".
	AttrQType = "qtype"

	// AttrZps holds the zero points ([]int64) of a Quantize/Dequantize node.
	// Absent means symmetric quantization (all zero points are 0).
	AttrZps = "zps"

	// AttrScales holds the scales ([]float64) of a Quantize/Dequantize node.
	AttrScales = "scales"

	// AttrGroups is the group count (int64) of a Convolution node.
	AttrGroups = "groups"

	// AttrStrides, AttrPadsBegin, AttrPadsEnd and AttrAutoPad describe the
	// spatial configuration of Convolution and pooling nodes.
	AttrStrides   = "strides"
	AttrPadsBegin = "pads_begin"
	AttrPadsEnd   = "pads_end"
	AttrAutoPad   = "auto_pad"

	// AttrDataFormat is "NXC" or "NCX".
	AttrDataFormat = "data_format"

	// AttrFuseBreak marks a node (bool) that must not be absorbed into any
	// fused partition. The matcher refuses to bind such nodes.
	AttrFuseBreak = "fuse_break"
)
