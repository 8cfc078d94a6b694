// Package flow holds the static horizontal water velocity read by the foam simulation.
package flow

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Name is the module name.
const Name = "Flow"

// ParamIDs are the handles the flow cascade is bound under.
var ParamIDs = param_id.NewTextureArrayParamIDs(param_id.TextureArrayName(Name))

// Flow stores the (x, z) water velocity in world units per second in an RG32Float cascade.
type Flow struct {
	*sim.Base
	logger *zap.Logger
}

var _ sim.Module = &Flow{}

// New creates the flow module with still water everywhere.
//
// Parameters:
//   - c: the compute instance
//   - cfg: the shape of the flow cascade
//   - options: functional options such as WithLogger
//
// Returns:
//   - *Flow: the module
//   - error: an error if the cascade cannot be created
func New(c compute.Compute, cfg cascade.Config, options ...FlowBuilderOption) (*Flow, error) {
	m := &Flow{logger: zap.NewNop()}
	for _, opt := range options {
		opt(m)
	}
	base, err := sim.NewBase(c, sim.BaseConfig{
		Name:     Name,
		Format:   compute.FormatRG32Float,
		Cascade:  cfg,
		ParamIDs: ParamIDs,
		Logger:   m.logger,
	})
	if err != nil {
		return nil, err
	}
	m.Base = base
	return m, nil
}

// SetLevelData uploads the velocity of level l, Resolution*Resolution*2 floats in row-major order.
func (m *Flow) SetLevelData(l int, texels []float32) error {
	return m.Cascade().WriteLevel(l, texels)
}

// SetVelocityFunc fills every level from a function of world position, using the current placement.
func (m *Flow) SetVelocityFunc(velocity func(p mgl32.Vec2) mgl32.Vec2) error {
	return sim.FillLevels(m.Cascade(), func(p mgl32.Vec2) mgl32.Vec4 {
		v := velocity(p)
		return mgl32.Vec4{v[0], v[1]}
	})
}

// Bind binds the current flow of m, or the neutral fallback (still water) if m is nil or inactive.
func Bind(props compute.PropertyWrapper, m *Flow) {
	sim.Bind(props, ParamIDs, module(m), false)
}

// BindSource binds the source slot of m.
func BindSource(props compute.PropertyWrapper, m *Flow) {
	sim.Bind(props, ParamIDs, module(m), true)
}

func module(m *Flow) sim.Module {
	if m == nil {
		return nil
	}
	return m
}
