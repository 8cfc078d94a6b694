// Package foam simulates persistent whitewater foam.
//
// Foam is generated where waves compress the surface and in shallow water, carried along by the
// flow, and fades over time. The simulation runs at a fixed 30 Hz and reads the animated waves,
// the sea floor depth and the flow, each of which may be absent.
package foam

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/anim_waves"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/flow"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sea_floor_depth"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/Carmen-Shannon/oxy-ocean/engine/settings"
	"go.uber.org/zap"
)

const (
	// Name is the module name.
	Name = "Foam"

	// SubstepDt is the fixed duration of a foam substep.
	SubstepDt = float32(1.0 / 30)

	// FoamKeyword is the material keyword that makes foam visible.
	FoamKeyword = "_FOAM_ON"
)

// ParamIDs are the handles the foam cascade is bound under.
var ParamIDs = param_id.NewTextureArrayParamIDs(param_id.TextureArrayName(Name))

// MaterialKeywords reports which keywords are enabled on the ocean material that renders the foam.
type MaterialKeywords interface {
	IsKeywordEnabled(keyword string) bool
}

// Foam is the foam simulation module. Foam values are stored in the first channel of a cascade whose
// format comes from the settings in use at construction, R32Float by default.
type Foam struct {
	*sim.Base

	mu            *sync.Mutex
	settings      *settings.Provider[Settings]
	animWaves     *anim_waves.AnimWaves
	seaFloorDepth *sea_floor_depth.SeaFloorDepth
	flow          *flow.Flow
	keywords      MaterialKeywords
	warned        atomic.Bool

	logger   *zap.Logger
	borrowed *settings.Source[Settings]
}

var _ sim.Module = &Foam{}

// New creates the foam module. Upstream modules are injected with WithAnimWaves, WithSeaFloorDepth
// and WithFlow; any of them may be left out, in which case its input reads as zero.
//
// Parameters:
//   - c: the compute instance
//   - cfg: the shape of the foam cascade; upstream cascades are expected to share it
//   - options: functional options
//
// Returns:
//   - *Foam: the module
//   - error: an error if the program or cascade cannot be created
func New(c compute.Compute, cfg cascade.Config, options ...FoamBuilderOption) (*Foam, error) {
	m := &Foam{
		mu:     &sync.Mutex{},
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(m)
	}
	m.settings = settings.NewProvider(Name+" Auto-generated Settings", DefaultSettings, m.logger)
	m.settings.Borrow(m.borrowed)

	format := m.settings.Get().Format
	if !format.Valid() {
		return nil, fmt.Errorf("foam: unknown format %v", format)
	}
	p, err := NewProgram(format)
	if err != nil {
		return nil, fmt.Errorf("foam: failed to parse program: %w", err)
	}
	base, err := sim.NewBase(c, sim.BaseConfig{
		Name:     Name,
		Format:   format,
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
	m.checkMaterial()
	return m, nil
}

// SetSettings borrows src. Nil returns to the module's own defaults.
func (m *Foam) SetSettings(src *settings.Source[Settings]) {
	m.settings.Borrow(src)
}

// Settings returns the settings source in use: the borrowed one if set, otherwise the module's own.
func (m *Foam) Settings() *settings.Source[Settings] {
	return m.settings.Source()
}

// SetMaterialKeywords sets the material checked for the foam keyword.
func (m *Foam) SetMaterialKeywords(k MaterialKeywords) {
	m.mu.Lock()
	m.keywords = k
	m.mu.Unlock()
	m.checkMaterial()
}

func (m *Foam) materialKeywords() MaterialKeywords {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keywords
}

// SubstepPolicy runs the foam at 30 Hz. Time shorter than a substep is not simulated.
func (m *Foam) SubstepPolicy(frameDt float32) (int, float32) {
	return sim.FixedSubstepPolicy(frameDt, SubstepDt)
}

func (m *Foam) SetAdditionalSimParams(props compute.PropertyWrapper) {
	s := m.settings.Get()
	props.SetFloat(foamFadeRateID, s.FoamFadeRate)
	props.SetFloat(waveFoamStrengthID, s.WaveFoamStrength)
	props.SetFloat(waveFoamCoverageID, s.WaveFoamCoverage)
	props.SetFloat(shorelineFoamMaxDepthID, s.ShorelineFoamMaxDepth)
	props.SetFloat(shorelineFoamStrengthID, s.ShorelineFoamStrength)
}

// BindUpstream binds the current data of the animated waves, sea floor depth and flow.
func (m *Foam) BindUpstream(props compute.PropertyWrapper) {
	anim_waves.Bind(props, m.animWaves)
	sea_floor_depth.Bind(props, m.seaFloorDepth)
	flow.Bind(props, m.flow)
}

// Dependencies returns the injected upstream modules.
func (m *Foam) Dependencies() []sim.Module {
	var deps []sim.Module
	if m.animWaves != nil {
		deps = append(deps, m.animWaves)
	}
	if m.seaFloorDepth != nil {
		deps = append(deps, m.seaFloorDepth)
	}
	if m.flow != nil {
		deps = append(deps, m.flow)
	}
	return deps
}

// Bind binds the current foam of m, or the neutral fallback if m is nil or inactive.
//
// Parameters:
//   - props: the consumer's parameter set
//   - m: the foam module, may be nil
func Bind(props compute.PropertyWrapper, m *Foam) {
	sim.Bind(props, ParamIDs, module(m), false)
}

// BindSource binds the foam published before the current one.
func BindSource(props compute.PropertyWrapper, m *Foam) {
	sim.Bind(props, ParamIDs, module(m), true)
}

func module(m *Foam) sim.Module {
	if m == nil {
		return nil
	}
	return m
}
