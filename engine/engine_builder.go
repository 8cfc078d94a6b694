package engine

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/profiler"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithDriver sets the simulation driver advanced each render frame.
//
// Parameters:
//   - d: the driver; its modules must already be registered
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDriver(d sim.Driver) EngineBuilderOption {
	return func(e *engine) {
		e.driver = d
	}
}

// WithViewpoint sets the position the simulation cascades are centered on each frame.
// Without a viewpoint the cascades stay where they are.
func WithViewpoint(v Viewpoint) EngineBuilderOption {
	return func(e *engine) {
		e.viewpoint = v
	}
}

// WithLogger sets the logger of the engine and of the default profiler.
//
// Parameters:
//   - logger: the zap logger, nil keeps the no-op default
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameInterval(fps)
	}
}
