package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/metrics"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"

// DefaultMaxSubsteps is the per-module, per-frame substep limit used unless WithMaxSubsteps overrides it.
const DefaultMaxSubsteps = 8

// clampWarnInterval limits how often a clamped module is reported in the log.
const clampWarnInterval = time.Second

var (
	// ErrDependencyCycle is returned by Register when module dependencies form a cycle.
	ErrDependencyCycle = errors.New("sim: module dependencies form a cycle")

	// ErrDriverReleased is returned by Update after Release.
	ErrDriverReleased = errors.New("sim: driver released")
)

// FrameStats summarises one call to Update.
type FrameStats struct {
	// Substeps holds the substep count run by each active module, keyed by module name.
	Substeps map[string]int

	// Dispatches is the total number of kernel dispatches issued.
	Dispatches int

	// Clamped lists the modules whose substep count was clamped this frame.
	Clamped []string
}

// DispatchRecord describes one dispatch issued by the driver. It is delivered to the dispatch observer.
type DispatchRecord struct {
	Module  string
	Substep int
	Level   int

	// Source is the array read as the previous state, at layer Level.
	Source compute.TextureArray

	// Seed is the array bound as the finer level's data of this substep, or the fallback for level 0.
	Seed      compute.TextureArray
	SeedLayer int

	Target      compute.TextureArray
	TargetLayer int

	// Generation is the cascade generation before the substep is published.
	Generation uint64

	// Props is a copy of every parameter bound for the dispatch.
	Props *compute.PropertyBlock
}

// entry holds the driver's per-module state.
type entry struct {
	module Module
	index  int

	carry         float32
	lastClampWarn time.Time
}

// driver is the implementation of the Driver interface.
type driver struct {
	mu *sync.Mutex
	c  compute.Compute

	entries  []*entry
	order    []*entry
	byModule map[Module]*entry

	maxSubsteps int
	accumulate  bool
	props       *compute.PropertyBlock
	released    bool

	logger   *zap.Logger
	tracer   trace.Tracer
	observer func(DispatchRecord)
	now      func() time.Time
}

// Driver advances registered simulation modules once per frame in dependency order.
//
// For every substep of a module, each level is dispatched from the finest to the coarsest, reading the
// current slot of the module's cascade and writing its target slot. Once every level is written the
// target is published. All dispatches of a frame are submitted together and execute in issue order.
type Driver interface {
	// Register adds modules and recomputes the update order. Dependencies that are not registered yet
	// are registered implicitly. Modules already registered are ignored.
	//
	// Parameters:
	//   - modules: the modules to add
	//
	// Returns:
	//   - error: ErrDependencyCycle if the dependencies form a cycle; no module is added in that case
	Register(modules ...Module) error

	// Update runs the substeps of every active module for one frame.
	//
	// Parameters:
	//   - ctx: the frame context, used for tracing
	//   - frameDt: the frame delta in seconds
	//
	// Returns:
	//   - FrameStats: what was run
	//   - error: the first dispatch error; the failing module's substep is not published
	Update(ctx context.Context, frameDt float32) (FrameStats, error)

	// Reposition moves the cascades of every registered module to follow center.
	//
	// Parameters:
	//   - center: the world-space (x, z) position
	Reposition(center mgl32.Vec2)

	// Modules returns the registered modules in update order.
	Modules() []Module

	// Release releases every registered module in reverse update order. Release is idempotent.
	Release()
}

var _ Driver = &driver{}

// NewDriver creates a driver that dispatches through c.
//
// Parameters:
//   - c: the compute instance the modules were created with
//   - options: functional options such as WithMaxSubsteps or WithLogger
//
// Returns:
//   - Driver: the new driver
func NewDriver(c compute.Compute, options ...DriverBuilderOption) Driver {
	d := &driver{
		mu:          &sync.Mutex{},
		c:           c,
		byModule:    make(map[Module]*entry),
		maxSubsteps: DefaultMaxSubsteps,
		props:       compute.NewPropertyBlock(),
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	return d
}

func (d *driver) Register(modules ...Module) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prevEntries := d.entries
	added := make([]*entry, 0, len(modules))
	visiting := make(map[Module]bool)

	var visit func(m Module)
	visit = func(m Module) {
		if m == nil || visiting[m] {
			return
		}
		if _, ok := d.byModule[m]; ok {
			return
		}
		visiting[m] = true
		for _, dep := range m.Dependencies() {
			visit(dep)
		}
		e := &entry{module: m, index: len(d.entries)}
		d.entries = append(d.entries, e)
		d.byModule[m] = e
		added = append(added, e)
	}
	for _, m := range modules {
		visit(m)
	}

	order, err := sortEntries(d.entries, d.byModule)
	if err != nil {
		for _, e := range added {
			delete(d.byModule, e.module)
		}
		d.entries = prevEntries
		return err
	}
	d.order = order

	for _, e := range added {
		d.logger.Debug("module registered", zap.String("module", e.module.Name()), zap.Int("index", e.index))
	}
	return nil
}

// sortEntries orders entries so every module follows its dependencies, breaking ties by registration index.
func sortEntries(entries []*entry, byModule map[Module]*entry) ([]*entry, error) {
	inDegree := make(map[*entry]int, len(entries))
	dependents := make(map[*entry][]*entry, len(entries))
	for _, e := range entries {
		seen := make(map[*entry]bool)
		for _, dep := range e.module.Dependencies() {
			de, ok := byModule[dep]
			if dep == nil || !ok || seen[de] {
				continue
			}
			seen[de] = true
			inDegree[e]++
			dependents[de] = append(dependents[de], e)
		}
	}

	order := make([]*entry, 0, len(entries))
	done := make(map[*entry]bool, len(entries))
	for len(order) < len(entries) {
		var next *entry
		for _, e := range entries {
			if !done[e] && inDegree[e] == 0 {
				next = e
				break
			}
		}
		if next == nil {
			return nil, ErrDependencyCycle
		}
		done[next] = true
		order = append(order, next)
		for _, dependent := range dependents[next] {
			inDegree[dependent]--
		}
	}
	return order, nil
}

func (d *driver) Update(ctx context.Context, frameDt float32) (FrameStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := FrameStats{Substeps: make(map[string]int)}
	if d.released {
		return stats, ErrDriverReleased
	}

	ctx, span := d.tracer.Start(ctx, "sim.Update",
		trace.WithAttributes(attribute.Float64("sim.frame_dt", float64(frameDt))),
	)
	defer span.End()

	if err := d.c.BeginComputeFrame(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin compute frame")
		return stats, fmt.Errorf("sim: failed to begin compute frame: %w", err)
	}

	var runErr error
	for _, e := range d.order {
		if !e.module.Active() {
			continue
		}
		if err := d.updateModule(ctx, e, frameDt, &stats); err != nil {
			runErr = err
			break
		}
	}

	if err := d.c.EndComputeFrame(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("sim: failed to end compute frame: %w", err))
	}
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "update failed")
	}
	span.SetAttributes(attribute.Int("sim.dispatches", stats.Dispatches))
	return stats, runErr
}

// substeps evaluates a module's substep policy for the frame, applying the time carry and the clamp.
func (d *driver) substeps(e *entry, frameDt float32, stats *FrameStats) (int, float32) {
	m := e.module
	var n int
	var dt float32
	if d.accumulate && frameDt > 0 {
		total := frameDt + e.carry
		n, dt = m.SubstepPolicy(total)
		e.carry = 0
		if n > 0 && dt > 0 {
			e.carry = max(total-float32(n)*dt, 0)
		} else if n == 0 && dt > 0 {
			e.carry = total
		}
	} else {
		n, dt = m.SubstepPolicy(frameDt)
	}

	if n > d.maxSubsteps {
		stats.Clamped = append(stats.Clamped, m.Name())
		metrics.SimSubstepClamps.WithLabelValues(m.Name()).Inc()
		if now := d.now(); now.Sub(e.lastClampWarn) >= clampWarnInterval {
			e.lastClampWarn = now
			d.logger.Warn("substep count clamped",
				zap.String("module", m.Name()),
				zap.Int("requested", n),
				zap.Int("max", d.maxSubsteps),
				zap.Float32("frame_dt", frameDt),
			)
		}
		n = d.maxSubsteps
		e.carry = 0
	}
	if n < 0 {
		n = 0
	}
	return n, dt
}

func (d *driver) updateModule(ctx context.Context, e *entry, frameDt float32, stats *FrameStats) error {
	m := e.module
	name := m.Name()
	n, dt := d.substeps(e, frameDt, stats)
	stats.Substeps[name] = n
	if n == 0 || m.Kernel() == nil {
		return nil
	}

	_, span := d.tracer.Start(ctx, "sim.Module", trace.WithAttributes(
		attribute.String("sim.module", name),
		attribute.Int("sim.substeps", n),
		attribute.Float64("sim.substep_dt", float64(dt)),
	))
	defer span.End()

	start := d.now()
	defer func() {
		metrics.SimModuleUpdateSeconds.WithLabelValues(name).Observe(d.now().Sub(start).Seconds())
	}()

	stepper, _ := m.(Stepper)
	for s := range n {
		if stepper != nil {
			stepper.BeginSubstep(dt)
		}
		dispatched, err := d.substep(m, s, dt)
		stats.Dispatches += dispatched
		metrics.SimDispatches.WithLabelValues(name).Add(float64(dispatched))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "dispatch failed")
			return err
		}
		metrics.SimSubsteps.WithLabelValues(name).Inc()
	}
	return nil
}

// substep dispatches every level of one substep and publishes the target.
func (d *driver) substep(m Module, s int, dt float32) (int, error) {
	cs := m.Cascade()
	k := m.Kernel()
	source := cs.Current()
	target := cs.Target()
	res := cs.Config().Resolution
	seedID := param_id.PropertyToID(param_id.SeedName(m.Name()))
	props := d.props

	dispatched := 0
	for l := range cs.Levels() {
		cs.RecordTarget(l)
		props.Clear()

		props.SetTexture(m.ParamIDSampler(true), source)
		props.SetVector(param_id.PosScaleSource, cs.SourceTransform(l).Vec4())

		seed, seedLayer := compute.BlackTextureArray, -1
		if l > 0 {
			seed, seedLayer = target, l-1
			props.SetTextureLayer(seedID, target, l-1)
			props.SetVector(param_id.PosScaleSeed, cs.TargetTransform(l-1).Vec4())
			props.SetInt(param_id.HasSeed, 1)
		} else {
			props.SetTexture(seedID, compute.BlackTextureArray)
			props.SetVector(param_id.PosScaleSeed, mgl32.Vec4{})
			props.SetInt(param_id.HasSeed, 0)
		}

		props.SetInt(param_id.SliceIndex, int32(l))
		props.SetVector(param_id.PosScale, cs.TargetTransform(l).Vec4())
		props.SetFloat(param_id.SimDeltaTime, dt)

		m.SetAdditionalSimParams(props)
		m.BindUpstream(props)
		props.SetOutput(param_id.Target, target, l)

		if err := d.c.Dispatch(k, props, compute.Domain{Width: res, Height: res, Layer: l}); err != nil {
			return dispatched, fmt.Errorf("sim: dispatch of %q substep %d level %d failed: %w", m.Name(), s, l, err)
		}
		dispatched++

		if d.observer != nil {
			d.observer(DispatchRecord{
				Module:      m.Name(),
				Substep:     s,
				Level:       l,
				Source:      source,
				Seed:        seed,
				SeedLayer:   seedLayer,
				Target:      target,
				TargetLayer: l,
				Generation:  cs.Generation(),
				Props:       props.Clone(),
			})
		}
	}
	cs.Publish()
	return dispatched, nil
}

func (d *driver) Reposition(center mgl32.Vec2) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.order {
		if !e.module.Released() {
			e.module.Cascade().Reposition(center)
		}
	}
}

func (d *driver) Modules() []Module {
	d.mu.Lock()
	defer d.mu.Unlock()
	modules := make([]Module, len(d.order))
	for i, e := range d.order {
		modules[i] = e.module
	}
	return modules
}

func (d *driver) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return
	}
	d.released = true
	for i := len(d.order) - 1; i >= 0; i-- {
		d.order[i].module.Release()
	}
	d.logger.Debug("driver released", zap.Int("modules", len(d.order)))
}
