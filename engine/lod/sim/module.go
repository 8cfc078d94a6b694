// Package sim holds the simulation module contract and the driver that advances persistent simulations.
package sim

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/pipeline"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
)

// Module is a simulation that owns a texture cascade and advances it with a compute kernel.
// The Driver calls the hooks below for every level of every substep.
type Module interface {
	// Name returns the module name. It forms the module's parameter names, e.g. "_LD_TexArray_" + Name.
	Name() string

	// Cascade returns the double-buffered texture cascade the module writes.
	Cascade() cascade.Cascade

	// Kernel returns the resolved update kernel, or nil for modules whose data is uploaded rather than simulated.
	Kernel() pipeline.Kernel

	// SubstepPolicy returns how many substeps to run this frame and the duration of each.
	//
	// Parameters:
	//   - frameDt: the frame delta in seconds
	//
	// Returns:
	//   - int: the substep count, 0 to skip the frame
	//   - float32: the duration of each substep in seconds
	SubstepPolicy(frameDt float32) (int, float32)

	// SetAdditionalSimParams binds the module's own parameters for a dispatch.
	SetAdditionalSimParams(props compute.PropertyWrapper)

	// BindUpstream binds the data of the modules this one reads.
	BindUpstream(props compute.PropertyWrapper)

	// Dependencies returns the modules that must be updated before this one in a frame.
	Dependencies() []Module

	// ParamIDSampler returns the handle the module's data is bound under, for the current slot or, when
	// sourceLod is true, for the source slot.
	ParamIDSampler(sourceLod bool) param_id.ParamID

	// Active reports whether the module is enabled and not released.
	Active() bool

	// Enabled reports whether the module is enabled.
	Enabled() bool

	// SetEnabled enables or disables the module. A disabled module is skipped and binds as the fallback.
	SetEnabled(enabled bool)

	// Released reports whether Release has been called.
	Released() bool

	// Release frees the module's cascade. Release is idempotent.
	Release()
}

// Stepper is implemented by modules that keep an internal clock advanced once per substep.
type Stepper interface {
	BeginSubstep(dt float32)
}
