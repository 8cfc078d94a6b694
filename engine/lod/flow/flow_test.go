package flow

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow(t *testing.T) {
	c, err := compute.NewCompute(compute.BackendTypeCPU)
	require.NoError(t, err)
	t.Cleanup(c.Release)

	m, err := New(c, cascade.Config{Levels: 1, Resolution: 2, BaseWorldSize: 4})
	require.NoError(t, err)
	assert.Equal(t, compute.FormatRG32Float, m.Cascade().Format())
	n, _ := m.SubstepPolicy(1)
	assert.Equal(t, 0, n)

	require.NoError(t, m.SetVelocityFunc(func(p mgl32.Vec2) mgl32.Vec2 { return mgl32.Vec2{1, p[1]} }))
	texels, err := c.ReadTextureLayer(m.Cascade().Current(), 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -1, 1, -1, 1, 1, 1, 1}, texels)

	require.NoError(t, m.SetLevelData(0, make([]float32, 8)))
	texels, err = c.ReadTextureLayer(m.Cascade().Previous(), 0)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), texels)
}

func TestBind(t *testing.T) {
	props := compute.NewPropertyBlock()
	Bind(props, nil)
	BindSource(props, nil)
	for _, source := range []bool{false, true} {
		tex, ok := props.Texture(ParamIDs.ID(source))
		require.True(t, ok)
		assert.True(t, compute.IsBlack(tex.Array))
	}
}
