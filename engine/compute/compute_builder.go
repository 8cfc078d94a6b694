package compute

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"go.uber.org/zap"
)

// ComputeBuilderOption is a functional option applied to a compute during construction via NewCompute.
type ComputeBuilderOption func(*compute)

// WithLogger sets the logger used by Compute and its backend.
//
// Parameters:
//   - logger: the zap logger, nil keeps the no-op default
//
// Returns:
//   - ComputeBuilderOption: a function that applies the logger option to a compute
func WithLogger(logger *zap.Logger) ComputeBuilderOption {
	return func(c *compute) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of hardware
// GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Ignored by the CPU backend.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - ComputeBuilderOption: a function that applies the fallback adapter option to a compute
func WithForceFallbackAdapter(force bool) ComputeBuilderOption {
	return func(c *compute) {
		c.forceFallbackAdapter = force
	}
}

// WithWorkers sets the number of workers the CPU backend splits dispatch rows across.
// Values <= 0 use one worker per CPU. Ignored by the wgpu backend.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - ComputeBuilderOption: a function that applies the worker option to a compute
func WithWorkers(n int) ComputeBuilderOption {
	return func(c *compute) {
		c.workers = n
	}
}

// WithProgram pre-registers a program once the backend is ready.
//
// Parameters:
//   - p: the program to register
//
// Returns:
//   - ComputeBuilderOption: a function that queues the program for registration
func WithProgram(p kernel.Program) ComputeBuilderOption {
	return func(c *compute) {
		c.pendingPrograms = append(c.pendingPrograms, p)
	}
}
