package bind_group_provider

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource struct {
	floats  map[string]float32
	ints    map[string]int32
	vectors map[string]mgl32.Vec4
}

func (m mapSource) UniformFloat(name string) (float32, bool) {
	v, ok := m.floats[name]
	return v, ok
}

func (m mapSource) UniformInt(name string) (int32, bool) {
	v, ok := m.ints[name]
	return v, ok
}

func (m mapSource) UniformVector(name string) (mgl32.Vec4, bool) {
	v, ok := m.vectors[name]
	return v, ok
}

func f32At(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func TestPackUniform(t *testing.T) {
	p, err := kernel.NewProgram("Pack", `
struct Params {
	_A: f32,
	_B: i32,
	_C: vec4<f32>,
	_D: vec2<f32>,
	_Unset: f32,
}
@group(0) @binding(0) var<uniform> params: Params;
@compute @workgroup_size(1) fn Main() {}
`)
	require.NoError(t, err)
	layout, ok := p.UniformLayout(0, 0)
	require.True(t, ok)

	buf := PackUniform(layout, mapSource{
		floats:  map[string]float32{"_A": 1.5, "_Unset": 0},
		ints:    map[string]int32{"_B": -3},
		vectors: map[string]mgl32.Vec4{"_C": {1, 2, 3, 4}, "_D": {5, 6, 7, 8}},
	})
	require.Len(t, buf, int(layout.Size))

	assert.Equal(t, float32(1.5), f32At(buf, 0))
	assert.Equal(t, int32(-3), int32(binary.LittleEndian.Uint32(buf[4:])))
	assert.Equal(t, []float32{1, 2, 3, 4}, []float32{f32At(buf, 16), f32At(buf, 20), f32At(buf, 24), f32At(buf, 28)})
	assert.Equal(t, []float32{5, 6}, []float32{f32At(buf, 32), f32At(buf, 36)})
	assert.Equal(t, float32(0), f32At(buf, 40))
}

func TestProviderReleaseClearsResources(t *testing.T) {
	p := NewBindGroupProvider("test")
	assert.Equal(t, "test", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Empty(t, p.Buffers())

	p.SetTextureView(1, nil)
	assert.Len(t, p.TextureViews(), 1)
	p.Release()
	assert.Empty(t, p.TextureViews())
}
