// Package kernels defines the kernel-handle contract the fusion engine binds
// to fused nodes, plus stub kernels for the built-in patterns.
//
// The engine treats kernels as opaque: a pattern registers a Factory, the
// rewriter invokes it exactly once per committed match, and the resulting
// Kernel rides on the fused node for downstream dispatch. Real compute
// implementations (im2col convolutions, vectorized pooling, ...) live in the
// execution backends, not here.
package kernels

import "github.com/google/uuid"

// Kernel is the runtime object bound to a fused node.
type Kernel interface {
	// ID is a process-unique identity, assigned at factory time. Diagnostics
	// use it to correlate a fused node with the kernel instance serving it.
	ID() uuid.UUID

	// Name describes the kernel implementation, e.g. "pooling_fwd".
	Name() string
}

// Factory produces the Kernel for one committed match. Returning an error
// aborts the commit and leaves the host graph untouched.
type Factory func() (Kernel, error)

type kernel struct {
	id   uuid.UUID
	name string
}

func (k *kernel) ID() uuid.UUID { return k.id }
func (k *kernel) Name() string  { return k.name }

func newKernel(name string) *kernel {
	return &kernel{id: uuid.New(), name: name}
}

// FloatPooling is the Factory for plain (non-quantized) pooling with post-ops.
func FloatPooling() (Kernel, error) {
	return newKernel("pooling_fwd"), nil
}

// QuantizedPooling is the Factory for int8 pooling partitions.
func QuantizedPooling() (Kernel, error) {
	return newKernel("quantized_pooling"), nil
}

// ConvolutionFwd is the Factory for convolution with post-ops.
func ConvolutionFwd() (Kernel, error) {
	return newKernel("convolution_fwd"), nil
}

// MatMulFwd is the Factory for matmul with post-ops.
func MatMulFwd() (Kernel, error) {
	return newKernel("matmul_fwd"), nil
}
