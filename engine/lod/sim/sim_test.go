package sim

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

var testCascade = cascade.Config{Levels: 3, Resolution: 4, BaseWorldSize: 8}

// testModule counts its substeps: every dispatch writes source + 1.
type testModule struct {
	*Base
	substepDt float32
	deps      []Module
	steps     []float32
}

func (m *testModule) SubstepPolicy(frameDt float32) (int, float32) {
	return FixedSubstepPolicy(frameDt, m.substepDt)
}

func (m *testModule) Dependencies() []Module {
	return m.deps
}

func (m *testModule) BeginSubstep(dt float32) {
	m.steps = append(m.steps, dt)
}

func counterSource(name string) string {
	return fmt.Sprintf(`
struct Params {
	_SimDeltaTime: f32,
	_LD_SliceIndex: i32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var _LD_TexArray_%[1]s_Source: texture_2d_array<f32>;
@group(0) @binding(2) var _LD_Target: texture_storage_2d<r32float, write>;

@compute @workgroup_size(8, 8, 1)
fn Step(@builtin(global_invocation_id) id: vec3<u32>) {
	let v = textureLoad(_LD_TexArray_%[1]s_Source, vec2<i32>(id.xy), params._LD_SliceIndex, 0).x;
	textureStore(_LD_Target, vec2<i32>(id.xy), vec4<f32>(v + 1.0));
}
`, name)
}

func newTestCompute(t *testing.T) compute.Compute {
	t.Helper()
	c, err := compute.NewCompute(compute.BackendTypeCPU, compute.WithWorkers(2))
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return c
}

func newCounterModule(t *testing.T, c compute.Compute, name string, substepDt float32) *testModule {
	t.Helper()
	ids := param_id.NewTextureArrayParamIDs(param_id.TextureArrayName(name))
	source := ids.ID(true)
	p, err := kernel.NewProgram(name, counterSource(name),
		kernel.WithCPUEntry("Step", func(b kernel.Bindings, x, y int) mgl32.Vec4 {
			return mgl32.Vec4{b.Load(source, x, y, b.Layer())[0] + 1}
		}),
	)
	require.NoError(t, err)

	base, err := NewBase(c, BaseConfig{
		Name:     name,
		Format:   compute.FormatR32Float,
		Cascade:  testCascade,
		Program:  p,
		Entry:    "Step",
		ParamIDs: ids,
	})
	require.NoError(t, err)
	return &testModule{Base: base, substepDt: substepDt}
}

func newPanickingModule(t *testing.T, c compute.Compute, name string) *testModule {
	t.Helper()
	p, err := kernel.NewProgram(name, counterSource(name),
		kernel.WithCPUEntry("Step", func(kernel.Bindings, int, int) mgl32.Vec4 { panic("boom") }),
	)
	require.NoError(t, err)
	base, err := NewBase(c, BaseConfig{
		Name:    name,
		Format:  compute.FormatR32Float,
		Cascade: testCascade,
		Program: p,
		Entry:   "Step",
	})
	require.NoError(t, err)
	return &testModule{Base: base, substepDt: 1.0 / 30}
}

func newStaticModule(t *testing.T, c compute.Compute, name string) *Base {
	t.Helper()
	base, err := NewBase(c, BaseConfig{
		Name:    name,
		Format:  compute.FormatRG32Float,
		Cascade: testCascade,
	})
	require.NoError(t, err)
	return base
}

func readLevel(t *testing.T, c compute.Compute, arr compute.TextureArray, l int) []float32 {
	t.Helper()
	texels, err := c.ReadTextureLayer(arr, l)
	require.NoError(t, err)
	return texels
}

func filled(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
