package sim

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/pipeline"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"go.uber.org/zap"
)

// BaseConfig describes the parts of a module that Base owns.
type BaseConfig struct {
	// Name is the module name, e.g. "Foam".
	Name string

	// Format is the texel format of the module's cascade.
	Format compute.TextureFormat

	// Cascade is the shape of the module's cascade.
	Cascade cascade.Config

	// Program is the update program. Nil for modules whose data is uploaded rather than simulated.
	Program kernel.Program

	// Entry is the update entry point of Program.
	Entry string

	// ParamIDs are the module's texture array handles. Nil uses the shared container for the module name.
	ParamIDs *param_id.TextureArrayParamIDs

	Logger *zap.Logger
}

// Base implements the bookkeeping shared by every module: the cascade, the resolved kernel,
// the texture array handles and the enable and release state. Modules embed *Base and override
// the hooks they need.
type Base struct {
	name     string
	cascade  cascade.Cascade
	kernel   pipeline.Kernel
	paramIDs *param_id.TextureArrayParamIDs
	logger   *zap.Logger

	enabled  atomic.Bool
	released atomic.Bool
}

// NewBase registers the module's program, resolves its kernel once and allocates its cascade.
//
// Parameters:
//   - c: the compute instance
//   - cfg: the module description
//
// Returns:
//   - *Base: the enabled base
//   - error: an error if the program cannot be registered, the entry is unknown or allocation fails
func NewBase(c compute.Compute, cfg BaseConfig) (*Base, error) {
	if cfg.Name == "" {
		return nil, errors.New("sim: module name is required")
	}
	if cfg.ParamIDs == nil {
		cfg.ParamIDs = param_id.NewTextureArrayParamIDs(param_id.TextureArrayName(cfg.Name))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	b := &Base{
		name:     cfg.Name,
		paramIDs: cfg.ParamIDs,
		logger:   cfg.Logger.With(zap.String("module", cfg.Name)),
	}

	if cfg.Program != nil {
		if err := c.RegisterProgram(cfg.Program); err != nil {
			return nil, fmt.Errorf("sim: failed to register program for %q: %w", cfg.Name, err)
		}
		k, err := c.FindKernel(cfg.Program.Key(), cfg.Entry)
		if err != nil {
			return nil, fmt.Errorf("sim: failed to resolve kernel for %q: %w", cfg.Name, err)
		}
		b.kernel = k
	}

	cs, err := cascade.New(c, cfg.Name, cfg.Format, cfg.Cascade, cascade.WithLogger(b.logger))
	if err != nil {
		return nil, fmt.Errorf("sim: failed to create cascade for %q: %w", cfg.Name, err)
	}
	b.cascade = cs
	b.enabled.Store(true)
	return b, nil
}

var _ Module = &Base{}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Cascade() cascade.Cascade {
	return b.cascade
}

func (b *Base) Kernel() pipeline.Kernel {
	return b.kernel
}

// ParamIDs returns the module's texture array handles.
func (b *Base) ParamIDs() *param_id.TextureArrayParamIDs {
	return b.paramIDs
}

func (b *Base) ParamIDSampler(sourceLod bool) param_id.ParamID {
	return b.paramIDs.ID(sourceLod)
}

// Logger returns the module's logger, already named with the module.
func (b *Base) Logger() *zap.Logger {
	return b.logger
}

func (b *Base) SubstepPolicy(float32) (int, float32) {
	return StaticSubstepPolicy(0)
}

func (b *Base) SetAdditionalSimParams(compute.PropertyWrapper) {}

func (b *Base) BindUpstream(compute.PropertyWrapper) {}

func (b *Base) Dependencies() []Module {
	return nil
}

func (b *Base) Active() bool {
	return b.enabled.Load() && !b.released.Load()
}

func (b *Base) Enabled() bool {
	return b.enabled.Load()
}

func (b *Base) SetEnabled(enabled bool) {
	b.enabled.Store(enabled)
}

func (b *Base) Released() bool {
	return b.released.Load()
}

func (b *Base) Release() {
	if b.released.Swap(true) {
		return
	}
	b.cascade.Release()
	b.logger.Debug("module released")
}
