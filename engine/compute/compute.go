package compute

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/pipeline"
	"go.uber.org/zap"
)

var (
	// ErrNoComputeFrame is returned by Dispatch when no compute frame is open.
	ErrNoComputeFrame = errors.New("compute: no compute frame is open")

	// ErrUnknownKernel is returned when a program or entry point cannot be resolved.
	ErrUnknownKernel = errors.New("compute: unknown kernel")

	// ErrReadbackUnsupported is returned by backends that cannot read texture data back to the host.
	ErrReadbackUnsupported = errors.New("compute: texture readback is not supported by this backend")

	// ErrReleased is returned when a released Compute or texture array is used.
	ErrReleased = errors.New("compute: resource has been released")
)

// compute is the implementation of the Compute interface.
type compute struct {
	mu *sync.Mutex

	programs    map[string]kernel.Program
	kernelCache map[string]pipeline.Kernel

	backendType ComputeBackendType
	backend     ComputeBackend
	logger      *zap.Logger

	frameOpen bool
	released  bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	workers              int
	pendingPrograms      []kernel.Program
}

// Compute runs GPU compute programs over texture arrays.
//
// This is the "run program P with parameters Q over domain D" primitive the simulation is built on.
// Compute keeps a cache of registered programs and resolved kernels, owns the texture arrays it creates
// and batches every dispatch of a frame into one submission that executes in dispatch order.
// Compute is safe for concurrent use; dispatches are serialized.
type Compute interface {
	// BackendType returns the backend implementation in use.
	//
	// Returns:
	//   - ComputeBackendType: the backend type
	BackendType() ComputeBackendType

	// RegisterProgram adds a program to the cache. Programs whose keys are already registered are
	// skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - p: the parsed program
	//
	// Returns:
	//   - error: ErrReleased if Compute has been released
	RegisterProgram(p kernel.Program) error

	// Program retrieves a registered program by key, or nil.
	//
	// Parameters:
	//   - key: the program key
	//
	// Returns:
	//   - kernel.Program: the program or nil
	Program(key string) kernel.Program

	// FindKernel resolves an entry point of a registered program. The result is memoized, so callers
	// resolve once and keep the kernel.
	//
	// Parameters:
	//   - program: the program key
	//   - entry: the entry point name
	//
	// Returns:
	//   - pipeline.Kernel: the resolved kernel
	//   - error: an error wrapping ErrUnknownKernel if the program or entry does not exist
	FindKernel(program, entry string) (pipeline.Kernel, error)

	// CreateTextureArray allocates a zero-initialised texture array usable as both a sampled input
	// and a storage output.
	//
	// Parameters:
	//   - label: a debug label
	//   - width, height: the size of every layer in texels
	//   - layers: the number of layers
	//   - format: the texel format
	//
	// Returns:
	//   - TextureArray: the new texture array
	//   - error: an error if the size is invalid or allocation fails
	CreateTextureArray(label string, width, height, layers int, format TextureFormat) (TextureArray, error)

	// WriteTextureLayer uploads one layer of texel data, width*height*channels floats in row-major order.
	//
	// Parameters:
	//   - arr: the destination array
	//   - layer: the destination layer
	//   - texels: the data to upload
	//
	// Returns:
	//   - error: an error if the layer or data size is invalid
	WriteTextureLayer(arr TextureArray, layer int, texels []float32) error

	// ReadTextureLayer reads back one layer of texel data. Dispatches are visible once their frame ended.
	//
	// Parameters:
	//   - arr: the source array
	//   - layer: the source layer
	//
	// Returns:
	//   - []float32: a copy of the layer data
	//   - error: ErrReadbackUnsupported if the backend cannot read back
	ReadTextureLayer(arr TextureArray, layer int) ([]float32, error)

	// ReleaseTextureArray frees the storage of a texture array. Binding it afterwards is an error.
	//
	// Parameters:
	//   - arr: the array to release
	ReleaseTextureArray(arr TextureArray)

	// BeginComputeFrame opens a frame. Dispatches issued until EndComputeFrame are submitted together.
	//
	// Returns:
	//   - error: an error if a frame is already open or the backend cannot start one
	BeginComputeFrame() error

	// Dispatch runs a kernel over a domain with the given parameters.
	//
	// Parameters:
	//   - k: the resolved kernel
	//   - props: the parameters bound for this dispatch, read before Dispatch returns
	//   - d: the output layer and extent
	//
	// Returns:
	//   - error: ErrNoComputeFrame outside a frame, or a binding error
	Dispatch(k pipeline.Kernel, props *PropertyBlock, d Domain) error

	// EndComputeFrame submits the dispatches of the open frame. Calling it with no open frame does nothing.
	//
	// Returns:
	//   - error: an error if submission failed
	EndComputeFrame() error

	// Release frees every kernel and backend resource. Release is idempotent.
	Release()
}

var _ Compute = &compute{}

// NewCompute creates a Compute with the given backend. An unknown backend type panics.
//
// Parameters:
//   - backendType: the backend implementation to use
//   - options: functional options such as WithLogger or WithWorkers
//
// Returns:
//   - Compute: the new Compute
//   - error: an error if the backend could not be initialised
func NewCompute(backendType ComputeBackendType, options ...ComputeBuilderOption) (Compute, error) {
	c := &compute{
		mu:          &sync.Mutex{},
		programs:    make(map[string]kernel.Program),
		kernelCache: make(map[string]pipeline.Kernel),
		backendType: backendType,
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		opt(c)
	}

	switch backendType {
	case BackendTypeWGPU:
		b, err := newWGPUComputeBackend(c.forceFallbackAdapter, c.logger)
		if err != nil {
			return nil, fmt.Errorf("compute: failed to initialise wgpu backend: %w", err)
		}
		c.backend = b
	case BackendTypeCPU:
		c.backend = newCPUComputeBackend(c.workers, c.logger)
	default:
		panic(fmt.Sprintf("compute: unknown backend type %d", backendType))
	}

	for _, p := range c.pendingPrograms {
		if err := c.RegisterProgram(p); err != nil {
			c.Release()
			return nil, err
		}
	}
	c.pendingPrograms = nil

	c.logger.Debug("compute initialised", zap.Stringer("backend", backendType))
	return c, nil
}

func (c *compute) BackendType() ComputeBackendType {
	return c.backendType
}

func (c *compute) RegisterProgram(p kernel.Program) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrReleased
	}
	if _, exists := c.programs[p.Key()]; exists {
		return nil
	}
	c.programs[p.Key()] = p
	return nil
}

func (c *compute) Program(key string) kernel.Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.programs[key]
}

func (c *compute) FindKernel(program, entry string) (pipeline.Kernel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, ErrReleased
	}
	key := pipeline.Key(program, entry)
	if k, ok := c.kernelCache[key]; ok {
		return k, nil
	}

	p, ok := c.programs[program]
	if !ok {
		return nil, fmt.Errorf("%w: program %q is not registered", ErrUnknownKernel, program)
	}
	k, err := pipeline.NewKernel(p, entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownKernel, err)
	}
	if err := c.backend.PrepareKernel(k); err != nil {
		return nil, fmt.Errorf("compute: failed to prepare kernel %q: %w", key, err)
	}
	c.kernelCache[key] = k
	ws := k.WorkgroupSize()
	c.logger.Debug("kernel resolved", zap.String("kernel", key), zap.Uint32s("workgroup_size", ws[:]))
	return k, nil
}

func (c *compute) CreateTextureArray(label string, width, height, layers int, format TextureFormat) (TextureArray, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, ErrReleased
	}
	if width <= 0 || height <= 0 || layers <= 0 {
		return nil, fmt.Errorf("compute: invalid texture array size %dx%dx%d for %q", width, height, layers, label)
	}
	return c.backend.CreateTextureArray(label, width, height, layers, format)
}

func (c *compute) WriteTextureLayer(arr TextureArray, layer int, texels []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrReleased
	}
	if IsBlack(arr) {
		return errors.New("compute: the black texture array is read-only")
	}
	if err := validateLayer(arr, layer, texels); err != nil {
		return err
	}
	return c.backend.WriteTextureLayer(arr, layer, texels)
}

func (c *compute) ReadTextureLayer(arr TextureArray, layer int) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, ErrReleased
	}
	if IsBlack(arr) {
		return make([]float32, arr.Format().Channels()), nil
	}
	if err := validateLayer(arr, layer, nil); err != nil {
		return nil, err
	}
	return c.backend.ReadTextureLayer(arr, layer)
}

func (c *compute) ReleaseTextureArray(arr TextureArray) {
	if arr == nil || IsBlack(arr) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return
	}
	c.backend.ReleaseTextureArray(arr)
}

func (c *compute) BeginComputeFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrReleased
	}
	if c.frameOpen {
		return errors.New("compute: a compute frame is already open")
	}
	if err := c.backend.BeginComputeFrame(); err != nil {
		return err
	}
	c.frameOpen = true
	return nil
}

func (c *compute) Dispatch(k pipeline.Kernel, props *PropertyBlock, d Domain) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrReleased
	}
	if !c.frameOpen {
		return ErrNoComputeFrame
	}
	if k == nil {
		return fmt.Errorf("%w: nil kernel", ErrUnknownKernel)
	}
	if _, out := props.Output(); out.Array == nil {
		return fmt.Errorf("compute: dispatch of %q has no output bound", k.Key())
	} else if IsBlack(out.Array) {
		return fmt.Errorf("compute: dispatch of %q cannot write to the black texture array", k.Key())
	} else if out.Layer < 0 || out.Layer >= out.Array.Layers() {
		return fmt.Errorf("compute: dispatch of %q writes layer %d of %q with %d layers", k.Key(), out.Layer, out.Array.Label(), out.Array.Layers())
	}
	return c.backend.Dispatch(k, props, d)
}

func (c *compute) EndComputeFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.frameOpen {
		return nil
	}
	c.frameOpen = false
	return c.backend.EndComputeFrame()
}

func (c *compute) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return
	}
	c.released = true
	if c.frameOpen {
		if err := c.backend.EndComputeFrame(); err != nil {
			c.logger.Warn("failed to submit open compute frame on release", zap.Error(err))
		}
		c.frameOpen = false
	}
	for key, k := range c.kernelCache {
		k.Release()
		delete(c.kernelCache, key)
	}
	c.backend.Release()
}
