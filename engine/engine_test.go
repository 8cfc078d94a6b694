package engine

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/foam"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sea_floor_depth"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testCascade = cascade.Config{Levels: 2, Resolution: 8, BaseWorldSize: 8}

func newFoamDriver(t *testing.T) (sim.Driver, *foam.Foam) {
	t.Helper()
	c, err := compute.NewCompute(compute.BackendTypeCPU)
	require.NoError(t, err)
	t.Cleanup(c.Release)

	depth, err := sea_floor_depth.New(c, testCascade)
	require.NoError(t, err)
	m, err := foam.New(c, testCascade, foam.WithSeaFloorDepth(depth))
	require.NoError(t, err)

	d := sim.NewDriver(c)
	require.NoError(t, d.Register(m))
	t.Cleanup(d.Release)
	return d, m
}

func TestEngine_Step(t *testing.T) {
	d, m := newFoamDriver(t)

	var rendered []sim.FrameStats
	e := NewEngine(
		WithDriver(d),
		WithViewpoint(ViewpointFunc(func() mgl32.Vec3 { return mgl32.Vec3{5, 100, -3} })),
	)
	e.SetRenderCallback(func(dt float32, stats sim.FrameStats) {
		rendered = append(rendered, stats)
	})
	assert.Same(t, d, e.Driver())

	stats, err := e.Step(context.Background(), 0.1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Substeps[foam.Name])
	require.Len(t, rendered, 1)
	assert.Equal(t, stats, rendered[0])

	// The cascades follow the viewpoint's (x, z), snapped to one unit texels at level 0.
	assert.Equal(t, mgl32.Vec2{5, -3}, m.Cascade().Transform(0).Center)
}

func TestEngine_StepWithoutDriver(t *testing.T) {
	e := NewEngine()
	stats, err := e.Step(context.Background(), 0.1)
	require.NoError(t, err)
	assert.Zero(t, stats.Dispatches)
}

func TestEngine_RunUntilQuit(t *testing.T) {
	d, _ := newFoamDriver(t)
	e := NewEngine(WithDriver(d), WithRenderFrameLimit(200), WithTickRate(200), WithProfiling(true))

	var frames, ticks atomic.Int32
	e.SetTickCallback(func(float32) { ticks.Add(1) })
	e.SetRenderCallback(func(float32, sim.FrameStats) {
		if frames.Add(1) == 20 {
			e.Quit()
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.GreaterOrEqual(t, frames.Load(), int32(20))

	e.Quit()
	assert.ErrorIs(t, e.Run(context.Background()), ErrStopped)
	<-e.Done()
}

func TestEngine_RunStopsWithContext(t *testing.T) {
	e := NewEngine(WithRenderFrameLimit(100))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx))
}

func TestEngine_RecoversRenderPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := NewEngine(WithLogger(zap.New(core)))
	e.SetRenderCallback(func(float32, sim.FrameStats) { panic("lost device") })

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lost device")
	assert.Equal(t, 1, logs.FilterMessage("render goroutine recovered from panic").Len())
}

func TestEngine_SetTickRateWhileRunning(t *testing.T) {
	e := NewEngine(WithRenderFrameLimit(100))
	var ticks atomic.Int32
	e.SetTickCallback(func(float32) {
		switch ticks.Add(1) {
		case 1:
			e.SetTickRate(1000)
			e.SetTickRate(500)
		case 5:
			e.Quit()
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestIntervals(t *testing.T) {
	assert.Equal(t, time.Second/60, tickInterval(0))
	assert.Equal(t, 10*time.Millisecond, tickInterval(100))
	assert.Equal(t, time.Second/60, tickInterval(math.Inf(1)))
	assert.Equal(t, time.Duration(0), frameInterval(0))
	assert.Equal(t, 20*time.Millisecond, frameInterval(50))
}
