package sea_floor_depth

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCascade = cascade.Config{Levels: 2, Resolution: 4, BaseWorldSize: 16}

func newTestModule(t *testing.T) (compute.Compute, *SeaFloorDepth) {
	t.Helper()
	c, err := compute.NewCompute(compute.BackendTypeCPU)
	require.NoError(t, err)
	t.Cleanup(c.Release)
	m, err := New(c, testCascade)
	require.NoError(t, err)
	return c, m
}

func TestSeaFloorDepth_IsStatic(t *testing.T) {
	c, m := newTestModule(t)
	assert.Nil(t, m.Kernel())
	assert.Equal(t, compute.FormatR32Float, m.Cascade().Format())

	require.NoError(t, m.SetLevelData(0, []float32{
		0, 1, 2, 3,
		0, 1, 2, 3,
		0, 1, 2, 3,
		0, 1, 2, 3,
	}))

	d := sim.NewDriver(c)
	require.NoError(t, d.Register(m))
	for range 3 {
		stats, err := d.Update(context.Background(), 0.5)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Substeps[Name])
	}
	assert.Equal(t, uint64(0), m.Cascade().Generation())

	texels, err := c.ReadTextureLayer(m.Cascade().Current(), 0)
	require.NoError(t, err)
	assert.Equal(t, float32(3), texels[3])
}

func TestSeaFloorDepth_SetLevelDataValidatesSize(t *testing.T) {
	_, m := newTestModule(t)
	assert.Error(t, m.SetLevelData(0, []float32{1, 2}))
}

func TestSeaFloorDepth_SetDepthFunc(t *testing.T) {
	c, m := newTestModule(t)
	require.NoError(t, m.SetDepthFunc(func(p mgl32.Vec2) float32 { return p[0] }))

	texels, err := c.ReadTextureLayer(m.Cascade().Current(), 0)
	require.NoError(t, err)
	// Level 0 spans 16 units at 4 texels: texel centers at -6, -2, 2, 6. Land is stored as zero.
	assert.Equal(t, []float32{0, 0, 2, 6}, texels[:4])
}

func TestBind(t *testing.T) {
	_, m := newTestModule(t)
	props := compute.NewPropertyBlock()

	Bind(props, nil)
	tex, ok := props.Texture(ParamIDs.ID(false))
	require.True(t, ok)
	assert.True(t, compute.IsBlack(tex.Array))

	Bind(props, m)
	tex, _ = props.Texture(ParamIDs.ID(false))
	assert.Equal(t, m.Cascade().Current(), tex.Array)

	m.SetEnabled(false)
	BindSource(props, m)
	tex, _ = props.Texture(ParamIDs.ID(true))
	assert.True(t, compute.IsBlack(tex.Array))
}
