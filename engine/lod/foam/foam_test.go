package foam

import (
	"context"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/anim_waves"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/flow"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sea_floor_depth"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/Carmen-Shannon/oxy-ocean/engine/settings"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Level 0 is 8 units across at 8 texels, so one texel is one unit.
var testCascade = cascade.Config{Levels: 3, Resolution: 8, BaseWorldSize: 8}

func newTestCompute(t *testing.T) compute.Compute {
	t.Helper()
	c, err := compute.NewCompute(compute.BackendTypeCPU, compute.WithWorkers(4))
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return c
}

func readLevel(t *testing.T, c compute.Compute, m *Foam, l int) []float32 {
	t.Helper()
	texels, err := c.ReadTextureLayer(m.Cascade().Current(), l)
	require.NoError(t, err)
	return texels
}

func update(t *testing.T, d sim.Driver, frameDt float32) sim.FrameStats {
	t.Helper()
	stats, err := d.Update(context.Background(), frameDt)
	require.NoError(t, err)
	return stats
}

func TestFoam_SubstepPolicy(t *testing.T) {
	c := newTestCompute(t)
	m, err := New(c, testCascade)
	require.NoError(t, err)

	n, dt := m.SubstepPolicy(0.05)
	assert.Equal(t, 1, n)
	assert.Equal(t, SubstepDt, dt)
	n, _ = m.SubstepPolicy(0.1)
	assert.Equal(t, 3, n)
	n, _ = m.SubstepPolicy(0.02)
	assert.Equal(t, 0, n)
}

func TestFoam_WithoutUpstreamStaysClear(t *testing.T) {
	c := newTestCompute(t)
	m, err := New(c, testCascade)
	require.NoError(t, err)
	assert.Empty(t, m.Dependencies())

	var records []sim.DispatchRecord
	d := sim.NewDriver(c, sim.WithDispatchObserver(func(r sim.DispatchRecord) { records = append(records, r) }))
	require.NoError(t, d.Register(m))

	stats := update(t, d, 0.1)
	assert.Equal(t, 3, stats.Substeps[Name])
	assert.Equal(t, 9, stats.Dispatches)
	require.NotEmpty(t, records)

	for _, r := range records {
		for _, tex := range []compute.TextureBinding{
			mustTexture(t, r.Props, anim_waves.ParamIDs.ID(false)),
			mustTexture(t, r.Props, sea_floor_depth.ParamIDs.ID(false)),
			mustTexture(t, r.Props, flow.ParamIDs.ID(false)),
		} {
			assert.True(t, compute.IsBlack(tex.Array), "absent upstream binds the fallback")
		}
		fade, _ := r.Props.Float(foamFadeRateID)
		assert.Equal(t, float32(0.8), fade)
	}

	for l := range testCascade.Levels {
		assert.Equal(t, make([]float32, 64), readLevel(t, c, m, l))
	}
}

func TestFoam_ShorelineFoam(t *testing.T) {
	c := newTestCompute(t)
	depth, err := sea_floor_depth.New(c, testCascade)
	require.NoError(t, err)
	require.NoError(t, depth.SetDepthFunc(func(mgl32.Vec2) float32 { return 0.13 }))

	m, err := New(c, testCascade, WithSeaFloorDepth(depth))
	require.NoError(t, err)
	d := sim.NewDriver(c)
	require.NoError(t, d.Register(m))
	assert.Len(t, d.Modules(), 2)

	s := DefaultSettings()
	add := s.ShorelineFoamStrength * SubstepDt * (1 - 0.13/s.ShorelineFoamMaxDepth)

	update(t, d, 0.05)
	for l := range testCascade.Levels {
		for _, v := range readLevel(t, c, m, l) {
			assert.InDelta(t, add, v, 1e-5, "level %d", l)
		}
	}

	update(t, d, 0.05)
	want := add*(1-s.FoamFadeRate*SubstepDt) + add
	for _, v := range readLevel(t, c, m, 0) {
		assert.InDelta(t, want, v, 1e-5)
	}

	// Deeper than the maximum depth generates nothing.
	require.NoError(t, depth.SetDepthFunc(func(mgl32.Vec2) float32 { return 10 }))
	depth.SetEnabled(false)
	before := readLevel(t, c, m, 0)[0]
	update(t, d, 0.05)
	assert.InDelta(t, before*(1-s.FoamFadeRate*SubstepDt), readLevel(t, c, m, 0)[0], 1e-5,
		"a disabled upstream contributes nothing")
}

func TestFoam_WaveFoam(t *testing.T) {
	c := newTestCompute(t)
	cfg := cascade.Config{Levels: 1, Resolution: 32, BaseWorldSize: 32}
	steep := settings.NewSource("steep", anim_waves.Settings{Waves: []anim_waves.Wave{
		{Direction: [2]float32{1, 0}, Steepness: 0.9, Wavelength: 16},
	}})
	waves, err := anim_waves.New(c, cfg, anim_waves.WithSettings(steep))
	require.NoError(t, err)

	m, err := New(c, cfg, WithAnimWaves(waves))
	require.NoError(t, err)
	d := sim.NewDriver(c)
	require.NoError(t, d.Register(m))

	var order []string
	for _, mod := range d.Modules() {
		order = append(order, mod.Name())
	}
	assert.Equal(t, []string{anim_waves.Name, Name}, order)

	stats := update(t, d, 0.05)
	assert.Equal(t, 1, stats.Substeps[anim_waves.Name])
	assert.Equal(t, 1, stats.Substeps[Name])

	texels, err := c.ReadTextureLayer(m.Cascade().Current(), 0)
	require.NoError(t, err)
	var peak, low float32 = 0, 1
	for _, v := range texels {
		assert.GreaterOrEqual(t, v, float32(0))
		peak = max(peak, v)
		low = min(low, v)
	}
	assert.Greater(t, peak, float32(0), "compressed crests generate foam")
	assert.Equal(t, float32(0), low, "stretched troughs generate none")

	waves.Release()
	before := texels[0]
	update(t, d, 0.05)
	s := DefaultSettings()
	assert.InDelta(t, before*(1-s.FoamFadeRate*SubstepDt), readLevel(t, c, m, 0)[0], 1e-4,
		"released waves bind the fallback")
}

func TestFoam_FlowAdvection(t *testing.T) {
	c := newTestCompute(t)
	cfg := cascade.Config{Levels: 1, Resolution: 8, BaseWorldSize: 8}

	still := settings.NewSource("still", Settings{})
	f, err := flow.New(c, cfg)
	require.NoError(t, err)
	// One texel per substep along +x.
	require.NoError(t, f.SetVelocityFunc(func(mgl32.Vec2) mgl32.Vec2 { return mgl32.Vec2{1 / SubstepDt, 0} }))

	m, err := New(c, cfg, WithFlow(f), WithSettings(still))
	require.NoError(t, err)

	initial := make([]float32, 64)
	for y := range 8 {
		for x := range 8 {
			initial[y*8+x] = float32(x + 1)
		}
	}
	require.NoError(t, m.Cascade().WriteLevel(0, initial))

	d := sim.NewDriver(c)
	require.NoError(t, d.Register(m))
	update(t, d, 0.05)

	got := readLevel(t, c, m, 0)
	for y := range 8 {
		assert.InDelta(t, 0, got[y*8], 1e-4, "foam upstream of the domain is empty")
		for x := 1; x < 8; x++ {
			assert.InDelta(t, float32(x), got[y*8+x], 1e-3, "texel (%d, %d)", x, y)
		}
	}
}

func TestFoam_SeedBlendsFinerLevel(t *testing.T) {
	c := newTestCompute(t)
	still := settings.NewSource("still", Settings{})
	m, err := New(c, testCascade, WithSettings(still))
	require.NoError(t, err)

	n := testCascade.Resolution * testCascade.Resolution
	fill := func(v float32) []float32 {
		out := make([]float32, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	require.NoError(t, m.Cascade().WriteLevel(0, fill(4)))
	require.NoError(t, m.Cascade().WriteLevel(1, fill(0)))

	d := sim.NewDriver(c)
	require.NoError(t, d.Register(m))
	update(t, d, 0.05)

	level1 := readLevel(t, c, m, 1)
	res := testCascade.Resolution
	// Level 1 spans 16 units; its center half is covered by level 0.
	assert.InDelta(t, 2, level1[(res/2)*res+res/2], 1e-4, "covered texels blend in the finer level")
	assert.InDelta(t, 0, level1[0], 1e-4, "uncovered texels keep their own value")
}

func TestFoam_SettingsPrecedence(t *testing.T) {
	c := newTestCompute(t)
	m, err := New(c, testCascade)
	require.NoError(t, err)
	assert.Equal(t, "Foam Auto-generated Settings", m.Settings().Name())
	assert.Equal(t, DefaultSettings(), m.Settings().Get())

	external := settings.NewSource("shared", Settings{FoamFadeRate: 2, WaveFoamStrength: 3})
	m.SetSettings(external)
	assert.Same(t, external, m.Settings())

	props := compute.NewPropertyBlock()
	m.SetAdditionalSimParams(props)
	fade, _ := props.Float(foamFadeRateID)
	strength, _ := props.Float(waveFoamStrengthID)
	assert.Equal(t, float32(2), fade)
	assert.Equal(t, float32(3), strength)

	require.NoError(t, external.Set(Settings{FoamFadeRate: 0.1}))
	m.SetAdditionalSimParams(props)
	fade, _ = props.Float(foamFadeRateID)
	assert.Equal(t, float32(0.1), fade)

	m.SetSettings(nil)
	assert.Equal(t, "Foam Auto-generated Settings", m.Settings().Name())

	shared, err := New(c, testCascade, WithSettings(external))
	require.NoError(t, err)
	assert.Same(t, external, shared.Settings())
}

func TestSettings_Validate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
	require.NoError(t, Settings{}.Validate())
	err := Settings{FoamFadeRate: -1, ShorelineFoamStrength: -2}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foam_fade_rate")
	assert.Contains(t, err.Error(), "shoreline_foam_strength")

	nan := float32(math.NaN())
	err = Settings{FoamFadeRate: nan, WaveFoamCoverage: float32(math.Inf(1))}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foam_fade_rate")
	assert.Contains(t, err.Error(), "wave_foam_coverage")

	assert.Error(t, Settings{Format: compute.TextureFormat(9)}.Validate())

	src := settings.NewSource("reloaded", DefaultSettings())
	assert.Error(t, src.Decode([]byte("foam_fade_rate: .nan\n")))
	assert.Equal(t, DefaultSettings(), src.Get(), "a rejected value keeps the previous one")
}

func TestFoam_FormatFromSettings(t *testing.T) {
	c := newTestCompute(t)
	depth, err := sea_floor_depth.New(c, testCascade)
	require.NoError(t, err)
	require.NoError(t, depth.SetDepthFunc(func(mgl32.Vec2) float32 { return 0.13 }))

	src := settings.NewSource("two channel", DefaultSettings())
	require.NoError(t, src.Decode([]byte("format: rg32float\n")))
	require.Equal(t, compute.FormatRG32Float, src.Get().Format)

	m, err := New(c, testCascade, WithSettings(src), WithSeaFloorDepth(depth))
	require.NoError(t, err)
	assert.Equal(t, compute.FormatRG32Float, m.Cascade().Format())
	assert.Equal(t, ProgramKey+"_rg32float", m.Kernel().Program().Key())

	d := sim.NewDriver(c)
	require.NoError(t, d.Register(m))
	update(t, d, 0.05)

	texels := readLevel(t, c, m, 0)
	require.Len(t, texels, 2*testCascade.Resolution*testCascade.Resolution)
	s := DefaultSettings()
	assert.InDelta(t, s.ShorelineFoamStrength*SubstepDt*(1-0.13/s.ShorelineFoamMaxDepth), texels[0], 1e-5)
	assert.Zero(t, texels[1])

	def, err := New(c, testCascade)
	require.NoError(t, err)
	assert.Equal(t, compute.FormatR32Float, def.Cascade().Format())
}

func TestJacobianDeterminant(t *testing.T) {
	assert.Equal(t, float32(1), JacobianDeterminant(mgl32.Vec3{}, mgl32.Vec3{}))
	assert.InDelta(t, 0.5, JacobianDeterminant(mgl32.Vec3{-0.5, 0, 0}, mgl32.Vec3{}), 1e-6)
}

func TestBind(t *testing.T) {
	c := newTestCompute(t)
	props := compute.NewPropertyBlock()

	Bind(props, nil)
	assert.True(t, compute.IsBlack(mustTexture(t, props, ParamIDs.ID(false)).Array))

	m, err := New(c, testCascade)
	require.NoError(t, err)
	Bind(props, m)
	assert.Equal(t, m.Cascade().Current(), mustTexture(t, props, ParamIDs.ID(false)).Array)
	BindSource(props, m)
	assert.Equal(t, m.Cascade().Previous(), mustTexture(t, props, ParamIDs.ID(true)).Array)

	m.Release()
	Bind(props, m)
	assert.True(t, compute.IsBlack(mustTexture(t, props, ParamIDs.ID(false)).Array))
}

func mustTexture(t *testing.T, props *compute.PropertyBlock, id param_id.ParamID) compute.TextureBinding {
	t.Helper()
	tex, ok := props.Texture(id)
	require.True(t, ok, "texture %d is bound", id)
	return tex
}
