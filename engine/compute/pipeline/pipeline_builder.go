package pipeline

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/cogentcore/webgpu/wgpu"
)

// KernelBuilderOption is a functional option used to configure a Kernel during construction.
type KernelBuilderOption func(*pipeline)

// WithComputePipeline sets the GPU compute pipeline and its bind group layouts.
//
// Parameters:
//   - p: the compute pipeline created for the entry point
//   - layouts: the bind group layouts indexed by group
//
// Returns:
//   - KernelBuilderOption: a function that sets the GPU objects for this kernel
func WithComputePipeline(p *wgpu.ComputePipeline, layouts []*wgpu.BindGroupLayout) KernelBuilderOption {
	return func(k *pipeline) {
		k.computePipeline = p
		k.bindGroupLayouts = layouts
	}
}

// WithCPU overrides the CPU implementation registered on the program.
//
// Parameters:
//   - fn: the per-texel implementation
//
// Returns:
//   - KernelBuilderOption: a function that sets the CPU implementation for this kernel
func WithCPU(fn kernel.KernelFunc) KernelBuilderOption {
	return func(k *pipeline) {
		k.cpu = fn
	}
}
