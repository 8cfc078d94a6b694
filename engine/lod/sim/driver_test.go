package sim

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/metrics"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDriverUpdate_RunsSubstepsAndPublishes(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Counter", 1.0/30)
	d := NewDriver(c)
	require.NoError(t, d.Register(m))

	stats, err := d.Update(context.Background(), 0.1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Substeps["Counter"])
	assert.Equal(t, 9, stats.Dispatches)
	assert.Empty(t, stats.Clamped)
	assert.Equal(t, uint64(3), m.Cascade().Generation())
	assert.Equal(t, []float32{1.0 / 30, 1.0 / 30, 1.0 / 30}, m.steps)

	n := testCascade.Resolution * testCascade.Resolution
	for l := range testCascade.Levels {
		assert.Equal(t, filled(n, 3), readLevel(t, c, m.Cascade().Current(), l), "level %d", l)
		assert.Equal(t, filled(n, 2), readLevel(t, c, m.Cascade().Previous(), l), "level %d", l)
	}

	stats, err = d.Update(context.Background(), 0.05)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Substeps["Counter"])
	assert.Equal(t, filled(n, 4), readLevel(t, c, m.Cascade().Current(), 0))
}

func TestDriverUpdate_DispatchOrderAndBuffers(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Observed", 1.0/30)

	var records []DispatchRecord
	d := NewDriver(c, WithDispatchObserver(func(r DispatchRecord) {
		records = append(records, r)
	}))
	require.NoError(t, d.Register(m))

	_, err := d.Update(context.Background(), 0.1)
	require.NoError(t, err)
	require.Len(t, records, 9)

	seedID := param_id.PropertyToID(param_id.SeedName("Observed"))
	for i, r := range records {
		assert.Equal(t, i/3, r.Substep)
		assert.Equal(t, i%3, r.Level, "levels run finest to coarsest")
		assert.Equal(t, uint64(r.Substep), r.Generation)
		assert.NotSame(t, r.Source, r.Target, "a dispatch never reads the array it writes")
		assert.Equal(t, r.Level, r.TargetLayer)

		src, ok := r.Props.Texture(m.ParamIDSampler(true))
		require.True(t, ok)
		assert.Equal(t, r.Source, src.Array)
		assert.True(t, src.Whole())

		outID, out := r.Props.Output()
		assert.Equal(t, param_id.Target, outID)
		assert.Equal(t, r.Target, out.Array)
		assert.Equal(t, r.Level, out.Layer)

		slice, _ := r.Props.Int(param_id.SliceIndex)
		assert.Equal(t, int32(r.Level), slice)
		dt, _ := r.Props.Float(param_id.SimDeltaTime)
		assert.Equal(t, float32(1.0/30), dt)

		seed, ok := r.Props.Texture(seedID)
		require.True(t, ok)
		hasSeed, _ := r.Props.Int(param_id.HasSeed)
		if r.Level == 0 {
			assert.True(t, compute.IsBlack(seed.Array))
			assert.True(t, compute.IsBlack(r.Seed))
			assert.Equal(t, int32(0), hasSeed)
		} else {
			assert.Equal(t, r.Target, seed.Array, "the seed is this substep's target")
			assert.Equal(t, r.Level-1, seed.Layer, "the seed is the finer level")
			assert.Equal(t, r.Level-1, r.SeedLayer)
			assert.Equal(t, int32(1), hasSeed)
		}

		if i >= 3 {
			prev := records[i-3]
			assert.Equal(t, prev.Target, r.Source, "each substep reads what the previous one published")
			assert.Equal(t, prev.Source, r.Target)
		}
	}
}

func TestDriverUpdate_ClampsSubsteps(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Clamped", 0.25)

	core, logs := observer.New(zapcore.WarnLevel)
	now := time.Unix(100, 0)
	d := NewDriver(c,
		WithMaxSubsteps(2),
		WithLogger(zap.New(core)),
		withClock(func() time.Time { return now }),
	)
	require.NoError(t, d.Register(m))

	clamps := metrics.SimSubstepClamps.WithLabelValues("Clamped")
	before := testutil.ToFloat64(clamps)

	stats, err := d.Update(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Substeps["Clamped"])
	assert.Equal(t, []string{"Clamped"}, stats.Clamped)
	assert.Equal(t, 6, stats.Dispatches)
	assert.Equal(t, uint64(2), m.Cascade().Generation())

	_, err = d.Update(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("substep count clamped").Len(), "warnings are rate limited")

	now = now.Add(time.Second)
	_, err = d.Update(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, logs.FilterMessage("substep count clamped").Len())
	assert.Equal(t, before+3, testutil.ToFloat64(clamps))
}

func TestDriverUpdate_TimeAccumulator(t *testing.T) {
	c := newTestCompute(t)

	dropping := newCounterModule(t, c, "Dropping", 0.25)
	d := NewDriver(c)
	require.NoError(t, d.Register(dropping))
	var counts []int
	for range 2 {
		stats, err := d.Update(context.Background(), 0.375)
		require.NoError(t, err)
		counts = append(counts, stats.Substeps["Dropping"])
	}
	assert.Equal(t, []int{1, 1}, counts)

	carrying := newCounterModule(t, c, "Carrying", 0.25)
	d = NewDriver(c, WithTimeAccumulator(true))
	require.NoError(t, d.Register(carrying))
	counts = nil
	for range 2 {
		stats, err := d.Update(context.Background(), 0.375)
		require.NoError(t, err)
		counts = append(counts, stats.Substeps["Carrying"])
	}
	assert.Equal(t, []int{1, 2}, counts)
}

func TestDriverUpdate_ZeroAndNegativeDelta(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Idle", 1.0/30)
	d := NewDriver(c)
	require.NoError(t, d.Register(m))

	for _, dt := range []float32{0, -1, 1.0 / 60} {
		stats, err := d.Update(context.Background(), dt)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Substeps["Idle"])
		assert.Zero(t, stats.Dispatches)
	}
	assert.Equal(t, uint64(0), m.Cascade().Generation())
}

func TestDriverUpdate_SkipsInactiveAndStaticModules(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Disabled", 1.0/30)
	static := newStaticModule(t, c, "Static")
	d := NewDriver(c)
	require.NoError(t, d.Register(m, static))

	m.SetEnabled(false)
	stats, err := d.Update(context.Background(), 0.1)
	require.NoError(t, err)
	_, ran := stats.Substeps["Disabled"]
	assert.False(t, ran)
	assert.Equal(t, 0, stats.Substeps["Static"])
	assert.Zero(t, stats.Dispatches)
	assert.Equal(t, uint64(0), m.Cascade().Generation())

	m.SetEnabled(true)
	stats, err = d.Update(context.Background(), 0.1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Substeps["Disabled"])
}

func TestDriverUpdate_DispatchErrorDoesNotPublish(t *testing.T) {
	c := newTestCompute(t)
	m := newPanickingModule(t, c, "Broken")
	d := NewDriver(c)
	require.NoError(t, d.Register(m))

	for range 2 {
		_, err := d.Update(context.Background(), 0.1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked", "the compute frame is closed after a failure")
	}
	assert.Equal(t, uint64(0), m.Cascade().Generation())
}

func TestDriverRegister_DependencyOrder(t *testing.T) {
	c := newTestCompute(t)
	a := newCounterModule(t, c, "OrderA", 1.0/30)
	b := newCounterModule(t, c, "OrderB", 1.0/30)
	up := newCounterModule(t, c, "OrderUp", 1.0/30)
	down := newCounterModule(t, c, "OrderDown", 1.0/30)
	down.deps = []Module{up, nil}

	d := NewDriver(c)
	require.NoError(t, d.Register(a, down, b))
	require.NoError(t, d.Register(a))

	var names []string
	for _, m := range d.Modules() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"OrderA", "OrderUp", "OrderDown", "OrderB"}, names)

	var order []string
	d = NewDriver(c, WithDispatchObserver(func(r DispatchRecord) {
		if r.Level == 0 && r.Substep == 0 {
			order = append(order, r.Module)
		}
	}))
	require.NoError(t, d.Register(down, up))
	_, err := d.Update(context.Background(), 0.05)
	require.NoError(t, err)
	assert.Equal(t, []string{"OrderUp", "OrderDown"}, order, "upstream modules are updated first")
}

func TestDriverRegister_Cycle(t *testing.T) {
	c := newTestCompute(t)
	solo := newCounterModule(t, c, "CycleSolo", 1.0/30)
	a := newCounterModule(t, c, "CycleA", 1.0/30)
	b := newCounterModule(t, c, "CycleB", 1.0/30)
	a.deps = []Module{b}
	b.deps = []Module{a}

	d := NewDriver(c)
	require.NoError(t, d.Register(solo))
	assert.ErrorIs(t, d.Register(a), ErrDependencyCycle)
	require.Len(t, d.Modules(), 1, "a failed registration adds nothing")
	assert.Equal(t, "CycleSolo", d.Modules()[0].Name())

	b.deps = nil
	require.NoError(t, d.Register(a))
	assert.Len(t, d.Modules(), 3)
}

func TestDriverUpdate_Spans(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Traced", 1.0/30)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	d := NewDriver(c, WithTracerProvider(tp))
	require.NoError(t, d.Register(m))

	_, err := d.Update(context.Background(), 0.1)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "sim.Module", spans[0].Name())
	assert.Equal(t, "sim.Update", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestDriverUpdate_Metrics(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Metered", 1.0/30)
	d := NewDriver(c)
	require.NoError(t, d.Register(m))

	_, err := d.Update(context.Background(), 0.1)
	require.NoError(t, err)
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.SimSubsteps.WithLabelValues("Metered")))
	assert.Equal(t, float64(9), testutil.ToFloat64(metrics.SimDispatches.WithLabelValues("Metered")))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.CascadeGeneration.WithLabelValues("Metered")))
}

func TestDriverReposition(t *testing.T) {
	c := newTestCompute(t)
	m := newCounterModule(t, c, "Moving", 1.0/30)
	d := NewDriver(c)
	require.NoError(t, d.Register(m))

	d.Reposition(mgl32.Vec2{3, 5})
	// Level 0 covers 8 units at 4 texels, so its grid is 2 units.
	assert.Equal(t, mgl32.Vec2{2, 4}, m.Cascade().Transform(0).Center)
	assert.Equal(t, mgl32.Vec2{0, 4}, m.Cascade().Transform(1).Center)
}

func TestDriverRelease(t *testing.T) {
	c := newTestCompute(t)
	up := newCounterModule(t, c, "ReleaseUp", 1.0/30)
	down := newCounterModule(t, c, "ReleaseDown", 1.0/30)
	down.deps = []Module{up}
	d := NewDriver(c)
	require.NoError(t, d.Register(down))

	d.Release()
	d.Release()
	assert.True(t, up.Released())
	assert.True(t, down.Released())
	assert.False(t, up.Active())

	_, err := d.Update(context.Background(), 0.1)
	assert.ErrorIs(t, err, ErrDriverReleased)
}
