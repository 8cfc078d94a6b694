// Package cascade implements the double-buffered level-of-detail texture cascade a simulation
// module reads from and writes to.
package cascade

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-ocean/common"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/metrics"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Config describes the shape of a cascade.
type Config struct {
	// Levels is the number of LOD levels, level 0 being the finest.
	Levels int `yaml:"levels"`
	// Resolution is the width and height of every level in texels.
	Resolution int `yaml:"resolution"`
	// BaseWorldSize is the world-space width covered by level 0. Each coarser level doubles it.
	BaseWorldSize float32 `yaml:"base_world_size"`
}

// Validate reports whether the configuration describes a usable cascade.
func (c Config) Validate() error {
	var errs []error
	if c.Levels < 1 {
		errs = append(errs, fmt.Errorf("levels must be at least 1, got %d", c.Levels))
	}
	if c.Resolution < 1 {
		errs = append(errs, fmt.Errorf("resolution must be at least 1, got %d", c.Resolution))
	}
	if !(c.BaseWorldSize > 0) {
		errs = append(errs, fmt.Errorf("base world size must be positive, got %v", c.BaseWorldSize))
	}
	return errors.Join(errs...)
}

// LevelTransform places one level in the world.
type LevelTransform struct {
	// Center is the world-space (x, z) center of the level.
	Center mgl32.Vec2
	// WorldSize is the world-space width covered by the level.
	WorldSize float32
	// Resolution is the width of the level in texels.
	Resolution int
}

// TexelSize returns the world-space width of one texel.
func (t LevelTransform) TexelSize() float32 {
	if t.Resolution <= 0 {
		return 0
	}
	return t.WorldSize / float32(t.Resolution)
}

// Vec4 packs the transform the way kernels read it: (center.x, center.z, world size, texel size).
func (t LevelTransform) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{t.Center[0], t.Center[1], t.WorldSize, t.TexelSize()}
}

// Level is one LOD level of a cascade with both of its buffer identities.
type Level struct {
	Index int
	// Current is the array holding the last published data; read it at layer Index.
	Current compute.TextureArray
	// Previous is the other array, the one the next substep writes.
	Previous  compute.TextureArray
	Transform LevelTransform
}

// cascade is the implementation of the Cascade interface.
type cascade struct {
	mu *sync.RWMutex

	c      compute.Compute
	label  string
	format compute.TextureFormat
	cfg    Config
	logger *zap.Logger

	// slots holds the two texture arrays. generation%2 selects the current one for every level.
	slots      [2]compute.TextureArray
	generation atomic.Uint64

	// transforms is the live placement, recorded[s] the placement slot s was last written with.
	transforms []LevelTransform
	recorded   [2][]LevelTransform

	released atomic.Bool
}

// Cascade is an ordered set of LOD levels, each double buffered. All levels share two texture arrays
// (one layer per level) and a single generation counter, so publishing swaps the buffer identities of
// every level in one atomic step without copying data.
//
// Reads of the current slot and writes of the target slot never alias: the target is always the
// array that is not current.
type Cascade interface {
	// Label returns the debug label of the cascade.
	Label() string

	// Format returns the texel format of both arrays.
	Format() compute.TextureFormat

	// Config returns the shape of the cascade.
	Config() Config

	// Levels returns the number of LOD levels.
	Levels() int

	// Level returns level l with its current and previous buffers. An out of range index panics.
	//
	// Parameters:
	//   - l: the level index, 0 being the finest
	//
	// Returns:
	//   - Level: the level's buffer identities and live transform
	Level(l int) Level

	// Current returns the array holding the last published data of every level.
	Current() compute.TextureArray

	// Previous returns the array published before Current. It is the same array as Target.
	Previous() compute.TextureArray

	// Target returns the array the next substep writes.
	Target() compute.TextureArray

	// Publish makes the target array current. Call it once every level of a substep has been written.
	Publish()

	// Generation returns the number of publishes so far.
	Generation() uint64

	// Reposition moves every level to be centered on center, snapped to the level's texel grid.
	// It takes effect for the next written substep.
	//
	// Parameters:
	//   - center: the world-space (x, z) position to follow
	Reposition(center mgl32.Vec2)

	// Transform returns the live placement of level l.
	Transform(l int) LevelTransform

	// SourceTransform returns the placement level l of the current array was written with.
	SourceTransform(l int) LevelTransform

	// TargetTransform returns the placement level l of the target array was last written with.
	TargetTransform(l int) LevelTransform

	// RecordTarget records the live placement of level l as the placement of the target array.
	// Call it when dispatching a write of level l.
	RecordTarget(l int)

	// WriteLevel uploads static data for level l into both arrays, so it survives any number of publishes.
	//
	// Parameters:
	//   - l: the level index
	//   - texels: Resolution*Resolution*channels floats in row-major order
	//
	// Returns:
	//   - error: an error if the data size is invalid or the upload fails
	WriteLevel(l int, texels []float32) error

	// Released reports whether Release has been called.
	Released() bool

	// Release frees both arrays. Later accessor calls panic; Release itself is idempotent.
	Release()
}

var _ Cascade = &cascade{}

// New allocates a cascade with two zero-initialised texture arrays.
//
// Parameters:
//   - c: the compute instance that owns the arrays
//   - label: a debug label, also used as the metrics label
//   - format: the texel format of the data
//   - cfg: the shape of the cascade
//   - options: functional options such as WithLogger or WithCenter
//
// Returns:
//   - Cascade: the new cascade
//   - error: an error if cfg is invalid or allocation fails
func New(c compute.Compute, label string, format compute.TextureFormat, cfg Config, options ...CascadeBuilderOption) (Cascade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cascade: invalid config for %q: %w", label, err)
	}

	cs := &cascade{
		mu:         &sync.RWMutex{},
		c:          c,
		label:      label,
		format:     format,
		cfg:        cfg,
		logger:     zap.NewNop(),
		transforms: make([]LevelTransform, cfg.Levels),
	}
	for l := range cfg.Levels {
		cs.transforms[l] = LevelTransform{
			WorldSize:  cfg.BaseWorldSize * float32(math.Pow(2, float64(l))),
			Resolution: cfg.Resolution,
		}
	}
	for _, opt := range options {
		opt(cs)
	}

	for s := range cs.slots {
		arr, err := c.CreateTextureArray(fmt.Sprintf("%s Slot %d", label, s), cfg.Resolution, cfg.Resolution, cfg.Levels, format)
		if err != nil {
			cs.Release()
			return nil, fmt.Errorf("cascade: failed to allocate %q: %w", label, err)
		}
		cs.slots[s] = arr
		cs.recorded[s] = make([]LevelTransform, cfg.Levels)
		copy(cs.recorded[s], cs.transforms)
	}

	cs.logger.Debug("cascade created",
		zap.String("cascade", label),
		zap.Stringer("format", format),
		zap.Int("levels", cfg.Levels),
		zap.Int("resolution", cfg.Resolution),
	)
	return cs, nil
}

func (cs *cascade) mustLive() {
	if cs.released.Load() {
		panic(fmt.Sprintf("cascade: use of released cascade %q", cs.label))
	}
}

func (cs *cascade) mustLevel(l int) {
	cs.mustLive()
	if l < 0 || l >= cs.cfg.Levels {
		panic(fmt.Sprintf("cascade: level %d out of range [0, %d) for %q", l, cs.cfg.Levels, cs.label))
	}
}

func (cs *cascade) current() int {
	return int(cs.generation.Load() % 2)
}

func (cs *cascade) Label() string {
	return cs.label
}

func (cs *cascade) Format() compute.TextureFormat {
	return cs.format
}

func (cs *cascade) Config() Config {
	return cs.cfg
}

func (cs *cascade) Levels() int {
	return cs.cfg.Levels
}

func (cs *cascade) Level(l int) Level {
	cs.mustLevel(l)
	cur := cs.current()

	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return Level{
		Index:     l,
		Current:   cs.slots[cur],
		Previous:  cs.slots[1-cur],
		Transform: cs.transforms[l],
	}
}

func (cs *cascade) Current() compute.TextureArray {
	cs.mustLive()
	return cs.slots[cs.current()]
}

func (cs *cascade) Previous() compute.TextureArray {
	cs.mustLive()
	return cs.slots[1-cs.current()]
}

func (cs *cascade) Target() compute.TextureArray {
	return cs.Previous()
}

func (cs *cascade) Publish() {
	cs.mustLive()
	gen := cs.generation.Add(1)
	metrics.CascadeGeneration.WithLabelValues(cs.label).Set(float64(gen))
}

func (cs *cascade) Generation() uint64 {
	return cs.generation.Load()
}

func (cs *cascade) Reposition(center mgl32.Vec2) {
	cs.mustLive()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for l := range cs.transforms {
		cs.transforms[l].Center = common.SnapToGrid(center, cs.transforms[l].TexelSize())
	}
}

func (cs *cascade) Transform(l int) LevelTransform {
	cs.mustLevel(l)
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.transforms[l]
}

func (cs *cascade) SourceTransform(l int) LevelTransform {
	cs.mustLevel(l)
	cur := cs.current()
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.recorded[cur][l]
}

func (cs *cascade) TargetTransform(l int) LevelTransform {
	cs.mustLevel(l)
	cur := cs.current()
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.recorded[1-cur][l]
}

func (cs *cascade) RecordTarget(l int) {
	cs.mustLevel(l)
	cur := cs.current()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.recorded[1-cur][l] = cs.transforms[l]
}

func (cs *cascade) WriteLevel(l int, texels []float32) error {
	cs.mustLevel(l)
	for s, arr := range cs.slots {
		if err := cs.c.WriteTextureLayer(arr, l, texels); err != nil {
			return fmt.Errorf("cascade: failed to write level %d of %q: %w", l, cs.label, err)
		}
		cs.mu.Lock()
		cs.recorded[s][l] = cs.transforms[l]
		cs.mu.Unlock()
	}
	return nil
}

func (cs *cascade) Released() bool {
	return cs.released.Load()
}

func (cs *cascade) Release() {
	if cs.released.Swap(true) {
		return
	}
	for s, arr := range cs.slots {
		if arr != nil {
			cs.c.ReleaseTextureArray(arr)
			cs.slots[s] = nil
		}
	}
	metrics.CascadeGeneration.DeleteLabelValues(cs.label)
	cs.logger.Debug("cascade released", zap.String("cascade", cs.label))
}
