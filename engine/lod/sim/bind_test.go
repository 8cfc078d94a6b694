package sim

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Bound", 1.0/30)
	ids := m.ParamIDs()

	bound := func(mod Module, sourceLod bool) compute.TextureArray {
		props := compute.NewPropertyBlock()
		Bind(props, ids, mod, sourceLod)
		tex, ok := props.Texture(ids.ID(sourceLod))
		require.True(t, ok, "a binding is always made")
		return tex.Array
	}

	assert.True(t, compute.IsBlack(bound(nil, false)), "an absent module binds the fallback")
	assert.Equal(t, m.Cascade().Current(), bound(m, false))
	assert.Equal(t, m.Cascade().Previous(), bound(m, true))

	m.SetEnabled(false)
	assert.True(t, compute.IsBlack(bound(m, false)), "a disabled module binds the fallback")
	m.SetEnabled(true)

	m.Release()
	assert.True(t, compute.IsBlack(bound(m, false)), "a released module binds the fallback")
	assert.True(t, compute.IsBlack(bound(m, true)))
}

func TestNewBase(t *testing.T) {
	c := newTestCompute(t)

	_, err := NewBase(c, BaseConfig{Cascade: testCascade})
	assert.Error(t, err, "a name is required")

	m := newCounterModule(t, c, "Based", 1.0/30)
	assert.Equal(t, "Based", m.Name())
	assert.NotNil(t, m.Kernel())
	assert.Equal(t, "Based::Step", m.Kernel().Key())
	assert.Equal(t, "_LD_TexArray_Based_Source", m.ParamIDs().Name(true))
	assert.True(t, m.Active())
	assert.Nil(t, m.Base.Dependencies())

	static := newStaticModule(t, c, "BasedStatic")
	assert.Nil(t, static.Kernel())
	n, _ := static.SubstepPolicy(1)
	assert.Equal(t, 0, n)

	static.Release()
	static.Release()
	assert.True(t, static.Released())
	assert.True(t, static.Cascade().Released())
}
