package sim

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DriverBuilderOption is a functional option applied to the driver during construction via NewDriver.
type DriverBuilderOption func(*driver)

// WithMaxSubsteps sets the most substeps a module may run in one frame. Excess substeps are dropped.
//
// Parameters:
//   - n: the limit; values < 1 keep DefaultMaxSubsteps
//
// Returns:
//   - DriverBuilderOption: a function that applies the limit
func WithMaxSubsteps(n int) DriverBuilderOption {
	return func(d *driver) {
		if n >= 1 {
			d.maxSubsteps = n
		}
	}
}

// WithTimeAccumulator carries the time left over by a module's substep policy into the next frame.
// By default leftover time is dropped.
func WithTimeAccumulator(enabled bool) DriverBuilderOption {
	return func(d *driver) {
		d.accumulate = enabled
	}
}

// WithLogger sets the logger of the driver.
//
// Parameters:
//   - logger: the zap logger, nil keeps the no-op default
//
// Returns:
//   - DriverBuilderOption: a function that applies the logger
func WithLogger(logger *zap.Logger) DriverBuilderOption {
	return func(d *driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracerProvider sets the provider of the driver's tracer. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) DriverBuilderOption {
	return func(d *driver) {
		if tp != nil {
			d.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithDispatchObserver registers a function called after every dispatch with a description of it.
// The function runs on the updating goroutine while the driver is locked and must not call the driver.
func WithDispatchObserver(fn func(DispatchRecord)) DriverBuilderOption {
	return func(d *driver) {
		d.observer = fn
	}
}

// withClock replaces the driver's clock.
func withClock(now func() time.Time) DriverBuilderOption {
	return func(d *driver) {
		d.now = now
	}
}
