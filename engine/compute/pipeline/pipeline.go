package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Kernel interface.
// It holds one resolved entry point of a program and the backend objects created for it.
type pipeline struct {
	// key is the unique identifier for this kernel, used for caching and lookups
	key string

	program kernel.Program
	entry   kernel.Entry

	// cpu is the Go implementation of the entry, nil if the program registered none
	cpu kernel.KernelFunc

	// The following fields are GPU allocated resources populated by the wgpu backend and released with the kernel.

	computePipeline  *wgpu.ComputePipeline
	bindGroupLayouts []*wgpu.BindGroupLayout
}

// Kernel is a compute entry point resolved against a program and prepared for dispatch by a backend.
// Kernels are resolved once and held by their owners; a dispatch never looks one up by name.
type Kernel interface {
	// Key returns the unique key of this kernel, built with Key(program, entry).
	//
	// Returns:
	//   - string: the kernel key
	Key() string

	// Program returns the program the kernel was resolved from.
	//
	// Returns:
	//   - kernel.Program: the owning program
	Program() kernel.Program

	// Entry returns the entry point description.
	//
	// Returns:
	//   - kernel.Entry: the entry point name and workgroup size
	Entry() kernel.Entry

	// WorkgroupSize returns the workgroup size of the entry point.
	//
	// Returns:
	//   - [3]uint32: the workgroup size in x, y and z
	WorkgroupSize() [3]uint32

	// CPU returns the Go implementation of the entry, or nil if none was registered.
	//
	// Returns:
	//   - kernel.KernelFunc: the CPU implementation or nil
	CPU() kernel.KernelFunc

	// Pipeline returns the underlying *wgpu.ComputePipeline, or nil if the kernel was resolved by a backend
	// that does not create GPU pipelines.
	//
	// Returns:
	//   - *wgpu.ComputePipeline: the compute pipeline or nil
	Pipeline() *wgpu.ComputePipeline

	// BindGroupLayout returns the layout created for a bind group index, or nil.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// SetComputePipeline stores the GPU objects created for this kernel.
	//
	// Parameters:
	//   - p: the compute pipeline
	//   - layouts: the bind group layouts indexed by group
	SetComputePipeline(p *wgpu.ComputePipeline, layouts []*wgpu.BindGroupLayout)

	// Release releases any GPU resources held by this kernel.
	Release()
}

var _ Kernel = &pipeline{}

// Key builds the cache key of a kernel from its program key and entry point name.
//
// Parameters:
//   - program: the program key
//   - entry: the entry point name
//
// Returns:
//   - string: program + "::" + entry
func Key(program, entry string) string {
	return program + "::" + entry
}

// NewKernel resolves an entry point of a program.
//
// Parameters:
//   - p: the parsed program
//   - entry: the @compute function name
//   - opts: a variadic list of KernelBuilderOption functions to configure the kernel
//
// Returns:
//   - Kernel: the resolved kernel
//   - error: an error if the program has no such entry point
func NewKernel(p kernel.Program, entry string, opts ...KernelBuilderOption) (Kernel, error) {
	e, ok := p.Entry(entry)
	if !ok {
		return nil, fmt.Errorf("pipeline: program %q has no compute entry %q", p.Key(), entry)
	}
	k := &pipeline{
		key:     Key(p.Key(), entry),
		program: p,
		entry:   e,
	}
	k.cpu, _ = p.CPUEntry(entry)
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

func (k *pipeline) Key() string {
	return k.key
}

func (k *pipeline) Program() kernel.Program {
	return k.program
}

func (k *pipeline) Entry() kernel.Entry {
	return k.entry
}

func (k *pipeline) WorkgroupSize() [3]uint32 {
	return k.entry.WorkgroupSize
}

func (k *pipeline) CPU() kernel.KernelFunc {
	return k.cpu
}

func (k *pipeline) Pipeline() *wgpu.ComputePipeline {
	return k.computePipeline
}

func (k *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(k.bindGroupLayouts) {
		return nil
	}
	return k.bindGroupLayouts[group]
}

func (k *pipeline) SetComputePipeline(p *wgpu.ComputePipeline, layouts []*wgpu.BindGroupLayout) {
	k.computePipeline = p
	k.bindGroupLayouts = layouts
}

func (k *pipeline) Release() {
	for i, l := range k.bindGroupLayouts {
		if l != nil {
			l.Release()
			k.bindGroupLayouts[i] = nil
		}
	}
	k.bindGroupLayouts = nil
	if k.computePipeline != nil {
		k.computePipeline.Release()
		k.computePipeline = nil
	}
}
