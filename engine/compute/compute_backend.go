package compute

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/pipeline"
)

// ComputeBackendType identifies the implementation used by Compute to run kernels.
type ComputeBackendType int

const (
	// BackendTypeWGPU selects the WebGPU backend.
	BackendTypeWGPU ComputeBackendType = iota

	// BackendTypeCPU selects the reference backend that runs the Go implementations of kernels.
	BackendTypeCPU
)

func (t ComputeBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeCPU:
		return "cpu"
	default:
		return fmt.Sprintf("ComputeBackendType(%d)", int(t))
	}
}

// ComputeBackend is the backend interface behind Compute. Compute serializes every call and tracks
// frame state, so a backend only sees Dispatch between BeginComputeFrame and EndComputeFrame.
type ComputeBackend interface {
	// PrepareKernel creates whatever the backend needs to dispatch a resolved kernel.
	PrepareKernel(k pipeline.Kernel) error

	// CreateTextureArray allocates a zero-initialised texture array.
	CreateTextureArray(label string, width, height, layers int, format TextureFormat) (TextureArray, error)

	// WriteTextureLayer uploads one layer of texel data.
	WriteTextureLayer(arr TextureArray, layer int, texels []float32) error

	// ReadTextureLayer reads back one layer of texel data.
	ReadTextureLayer(arr TextureArray, layer int) ([]float32, error)

	// ReleaseTextureArray frees the storage of a texture array created by this backend.
	ReleaseTextureArray(arr TextureArray)

	// BeginComputeFrame starts batching dispatches.
	BeginComputeFrame() error

	// Dispatch encodes or executes one kernel over a domain.
	Dispatch(k pipeline.Kernel, props *PropertyBlock, d Domain) error

	// EndComputeFrame submits the batched dispatches.
	EndComputeFrame() error

	// Release frees every resource held by the backend.
	Release()
}
