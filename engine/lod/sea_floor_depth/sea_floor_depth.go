// Package sea_floor_depth holds the static water depth read by the foam simulation.
package sea_floor_depth

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Name is the module name.
const Name = "SeaFloorDepth"

// ParamIDs are the handles the depth cascade is bound under.
var ParamIDs = param_id.NewTextureArrayParamIDs(param_id.TextureArrayName(Name))

// SeaFloorDepth stores the water depth below sea level in an R32Float cascade. A depth of zero means no data.
// The data is uploaded rather than simulated, so the module never runs a substep.
type SeaFloorDepth struct {
	*sim.Base
	logger *zap.Logger
}

var _ sim.Module = &SeaFloorDepth{}

// New creates the sea floor depth module with an all-zero cascade.
//
// Parameters:
//   - c: the compute instance
//   - cfg: the shape of the depth cascade
//   - options: functional options such as WithLogger
//
// Returns:
//   - *SeaFloorDepth: the module
//   - error: an error if the cascade cannot be created
func New(c compute.Compute, cfg cascade.Config, options ...SeaFloorDepthBuilderOption) (*SeaFloorDepth, error) {
	m := &SeaFloorDepth{logger: zap.NewNop()}
	for _, opt := range options {
		opt(m)
	}
	base, err := sim.NewBase(c, sim.BaseConfig{
		Name:     Name,
		Format:   compute.FormatR32Float,
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

// SetLevelData uploads the depth of level l, Resolution*Resolution floats in row-major order.
func (m *SeaFloorDepth) SetLevelData(l int, texels []float32) error {
	return m.Cascade().WriteLevel(l, texels)
}

// SetDepthFunc fills every level from a function of world position, using the current placement.
//
// Parameters:
//   - depth: returns the water depth at a world-space (x, z) position; negative values are stored as zero
//
// Returns:
//   - error: an error if an upload fails
func (m *SeaFloorDepth) SetDepthFunc(depth func(p mgl32.Vec2) float32) error {
	return sim.FillLevels(m.Cascade(), func(p mgl32.Vec2) mgl32.Vec4 {
		return mgl32.Vec4{max(depth(p), 0)}
	})
}

// Bind binds the current depth of m, or the neutral fallback if m is nil or inactive.
func Bind(props compute.PropertyWrapper, m *SeaFloorDepth) {
	sim.Bind(props, ParamIDs, module(m), false)
}

// BindSource binds the source slot of m. Static data is identical in both slots.
func BindSource(props compute.PropertyWrapper, m *SeaFloorDepth) {
	sim.Bind(props, ParamIDs, module(m), true)
}

func module(m *SeaFloorDepth) sim.Module {
	if m == nil {
		return nil
	}
	return m
}
