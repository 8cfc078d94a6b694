// Package engine runs the frame loop that advances the ocean simulation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/profiler"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	// ErrRunning is returned by Run when the engine is already running.
	ErrRunning = errors.New("engine: already running")

	// ErrStopped is returned by Run after the engine has quit.
	ErrStopped = errors.New("engine: stopped")
)

// Viewpoint is the position the simulation cascades follow, usually the camera.
type Viewpoint interface {
	Position() mgl32.Vec3
}

// ViewpointFunc adapts a function to the Viewpoint interface.
type ViewpointFunc func() mgl32.Vec3

func (f ViewpointFunc) Position() mgl32.Vec3 {
	return f()
}

// engine implements the Engine interface.
// Coordinates the tick, render, and quit goroutines.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	// frameMu serializes frames run by the render loop and by Step.
	frameMu *sync.Mutex
	errMu   *sync.Mutex
	err     error

	logger *zap.Logger

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32, stats sim.FrameStats)

	driver    sim.Driver
	viewpoint Viewpoint

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine orchestrates the tick loop and the render loop. Each render frame repositions the simulation
// cascades around the viewpoint, advances the simulation driver by the frame delta and then calls the
// render callback, which is where consumers bind the simulation results.
type Engine interface {
	// Driver returns the simulation driver advanced each frame, or nil.
	Driver() sim.Driver

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame after the simulation update.
	//
	// Parameters:
	//   - callback: function receiving the frame delta in seconds and the simulation statistics
	SetRenderCallback(callback func(deltaTime float32, stats sim.FrameStats))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Step runs one render frame synchronously.
	//
	// Parameters:
	//   - ctx: the frame context
	//   - dt: the frame delta in seconds
	//
	// Returns:
	//   - sim.FrameStats: the simulation statistics of the frame
	//   - error: the simulation error, if any
	Step(ctx context.Context, dt float32) (sim.FrameStats, error)

	// Run starts the tick and render loops and blocks until Quit is called, ctx is done or a frame fails.
	//
	// Returns:
	//   - error: the error that stopped the render loop, ErrRunning or ErrStopped
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Done is closed once Quit has been called.
	Done() <-chan struct{}
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (driver, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		frameMu:         &sync.Mutex{},
		errMu:           &sync.Mutex{},
		logger:          zap.NewNop(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger.Named("profiler")))
	}

	return e
}

func (e *engine) Driver() sim.Driver {
	return e.driver
}

func (e *engine) Run(ctx context.Context) error {
	select {
	case <-e.quitChannel:
		return ErrStopped
	default:
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer e.running.Store(false)

	e.logger.Info("engine started",
		zap.Duration("tick_rate", e.engineTickRate),
		zap.Duration("render_frame_limit", e.renderFrameLimit),
	)
	e.handle(ctx)
	e.wg.Wait()
	e.logger.Info("engine stopped")

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Done() <-chan struct{} {
	return e.quitChannel
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// fail records the first error that stops the engine and signals quit.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

// handle launches the tick, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle(ctx context.Context) {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender(ctx)
	go e.handleQuit(ctx)
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender(ctx context.Context) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", zap.Any("panic", r), zap.Stack("stack"))
			e.fail(fmt.Errorf("engine: render loop panicked: %v", r))
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if _, err := e.Step(ctx, dt); err != nil {
				e.logger.Error("simulation update failed", zap.Error(err))
				e.fail(err)
				return
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

func (e *engine) Step(ctx context.Context, dt float32) (sim.FrameStats, error) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	var stats sim.FrameStats
	if e.driver != nil {
		if e.viewpoint != nil {
			p := e.viewpoint.Position()
			e.driver.Reposition(mgl32.Vec2{p[0], p[2]})
		}
		var err error
		stats, err = e.driver.Update(ctx, dt)
		if err != nil {
			return stats, err
		}
	}

	if e.renderCallback != nil {
		e.renderCallback(dt, stats)
	}

	if e.profilingEnabled.Load() && e.profiler != nil {
		e.profiler.Tick(stats)
	}
	return stats, nil
}

// handleQuit blocks until the quit channel is closed or ctx is done, then decrements the WaitGroup.
func (e *engine) handleQuit(ctx context.Context) {
	defer e.wg.Done()
	select {
	case <-e.quitChannel:
	case <-ctx.Done():
		e.signalQuit()
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32, stats sim.FrameStats)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameInterval(fps)
}

// tickInterval converts a tick rate to a ticker period. Non-positive, NaN and infinite rates fall back to 60.
func tickInterval(fps float64) time.Duration {
	if !(fps > 0) || math.IsInf(fps, 1) {
		fps = 60
	}
	return max(time.Duration(float64(time.Second)/fps), time.Nanosecond)
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
