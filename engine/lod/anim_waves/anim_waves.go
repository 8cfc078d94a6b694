// Package anim_waves simulates animated wave displacement. Its cascade is read by the foam simulation.
package anim_waves

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/Carmen-Shannon/oxy-ocean/engine/settings"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Name is the module name.
const Name = "AnimatedWaves"

// ParamIDs are the handles the displacement cascade is bound under.
var ParamIDs = param_id.NewTextureArrayParamIDs(param_id.TextureArrayName(Name))

// AnimWaves writes the displacement (x, y, z) of a sum of Gerstner waves into an RGBA32Float cascade.
// It runs one substep per frame covering the whole frame delta.
type AnimWaves struct {
	*sim.Base

	mu       *sync.Mutex
	time     float64
	settings *settings.Provider[Settings]
	logger   *zap.Logger
	borrowed *settings.Source[Settings]
}

var _ sim.Module = &AnimWaves{}
var _ sim.Stepper = &AnimWaves{}

// New creates the animated waves module.
//
// Parameters:
//   - c: the compute instance
//   - cfg: the shape of the displacement cascade
//   - options: functional options such as WithSettings or WithLogger
//
// Returns:
//   - *AnimWaves: the module
//   - error: an error if the program or cascade cannot be created
func New(c compute.Compute, cfg cascade.Config, options ...AnimWavesBuilderOption) (*AnimWaves, error) {
	m := &AnimWaves{
		mu:     &sync.Mutex{},
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(m)
	}
	m.settings = settings.NewProvider(Name+" Auto-generated Settings", DefaultSettings, m.logger)
	m.settings.Borrow(m.borrowed)

	p, err := NewProgram()
	if err != nil {
		return nil, fmt.Errorf("anim_waves: failed to parse program: %w", err)
	}
	base, err := sim.NewBase(c, sim.BaseConfig{
		Name:     Name,
		Format:   compute.FormatRGBA32Float,
		Cascade:  cfg,
		Program:  p,
		Entry:    EntryPoint,
		ParamIDs: ParamIDs,
		Logger:   m.logger,
	})
	if err != nil {
		return nil, err
	}
	m.Base = base
	return m, nil
}

// SetSettings borrows src for the waves. Nil returns to the module's own defaults.
func (m *AnimWaves) SetSettings(src *settings.Source[Settings]) {
	m.settings.Borrow(src)
}

// Settings returns the settings source in use.
func (m *AnimWaves) Settings() *settings.Source[Settings] {
	return m.settings.Source()
}

// Time returns the simulation time reached by the last substep.
func (m *AnimWaves) Time() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float32(m.time)
}

func (m *AnimWaves) SubstepPolicy(frameDt float32) (int, float32) {
	return sim.WholeFrameSubstepPolicy(frameDt)
}

func (m *AnimWaves) BeginSubstep(dt float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.time += float64(dt)
}

func (m *AnimWaves) SetAdditionalSimParams(props compute.PropertyWrapper) {
	props.SetFloat(param_id.Time, m.Time())
	waves := m.settings.Get().Waves
	n := min(len(waves), MaxWaves)
	for i := range MaxWaves {
		if i < n {
			props.SetVector(waveIDs[i], waves[i].Packed())
		} else {
			props.SetVector(waveIDs[i], mgl32.Vec4{})
		}
	}
	props.SetInt(waveCountID, int32(n))
}

// Bind binds the current displacement of m, or the neutral fallback if m is nil or inactive.
func Bind(props compute.PropertyWrapper, m *AnimWaves) {
	sim.Bind(props, ParamIDs, module(m), false)
}

// BindSource binds the displacement published before the current one.
func BindSource(props compute.PropertyWrapper, m *AnimWaves) {
	sim.Bind(props, ParamIDs, module(m), true)
}

func module(m *AnimWaves) sim.Module {
	if m == nil {
		return nil
	}
	return m
}
