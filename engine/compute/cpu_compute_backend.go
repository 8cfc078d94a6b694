package compute

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/pipeline"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// cpuTextureArray is a texture array stored in host memory as interleaved float channels,
// layer-major then row-major.
type cpuTextureArray struct {
	label                 string
	width, height, layers int
	format                TextureFormat

	data     []float32
	released atomic.Bool
}

var _ TextureArray = &cpuTextureArray{}

func newCPUTextureArray(label string, width, height, layers int, format TextureFormat) *cpuTextureArray {
	return &cpuTextureArray{
		label:  label,
		width:  width,
		height: height,
		layers: layers,
		format: format,
		data:   make([]float32, width*height*layers*format.Channels()),
	}
}

func (t *cpuTextureArray) Label() string         { return t.label }
func (t *cpuTextureArray) Width() int            { return t.width }
func (t *cpuTextureArray) Height() int           { return t.height }
func (t *cpuTextureArray) Layers() int           { return t.layers }
func (t *cpuTextureArray) Format() TextureFormat { return t.format }

func (t *cpuTextureArray) layerStride() int {
	return t.width * t.height * t.format.Channels()
}

func (t *cpuTextureArray) layerData(layer int) []float32 {
	stride := t.layerStride()
	return t.data[layer*stride : (layer+1)*stride]
}

// load reads one texel. Coordinates are clamped to the layer, layers out of range read as zero.
func (t *cpuTextureArray) load(x, y, layer int) mgl32.Vec4 {
	var v mgl32.Vec4
	if layer < 0 || layer >= t.layers {
		return v
	}
	x = min(max(x, 0), t.width-1)
	y = min(max(y, 0), t.height-1)
	ch := t.format.Channels()
	base := layer*t.layerStride() + (y*t.width+x)*ch
	copy(v[:ch], t.data[base:base+ch])
	return v
}

// sample bilinearly interpolates the four texels around uv with clamp-to-edge addressing.
func (t *cpuTextureArray) sample(uv mgl32.Vec2, layer int) mgl32.Vec4 {
	if layer < 0 || layer >= t.layers {
		return mgl32.Vec4{}
	}
	px := mgl32.Clamp(uv[0], 0, 1)*float32(t.width) - 0.5
	py := mgl32.Clamp(uv[1], 0, 1)*float32(t.height) - 0.5
	fx := float32(math.Floor(float64(px)))
	fy := float32(math.Floor(float64(py)))
	tx, ty := px-fx, py-fy
	x0, y0 := int(fx), int(fy)

	a := t.load(x0, y0, layer)
	b := t.load(x0+1, y0, layer)
	c := t.load(x0, y0+1, layer)
	d := t.load(x0+1, y0+1, layer)
	top := a.Add(b.Sub(a).Mul(tx))
	bottom := c.Add(d.Sub(c).Mul(tx))
	return top.Add(bottom.Sub(top).Mul(ty))
}

// cpuComputeBackend executes the Go implementations of kernels. Each dispatch runs to completion
// before Dispatch returns, which satisfies in-order execution within a frame.
type cpuComputeBackend struct {
	mu *sync.Mutex

	pool    worker.DynamicWorkerPool
	workers int
	logger  *zap.Logger

	black  *cpuTextureArray
	taskID int
}

var _ ComputeBackend = &cpuComputeBackend{}

func newCPUComputeBackend(workers int, logger *zap.Logger) *cpuComputeBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &cpuComputeBackend{
		mu:      &sync.Mutex{},
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers: workers,
		logger:  logger,
		black:   newCPUTextureArray(BlackTextureArray.Label(), 1, 1, 1, BlackTextureArray.Format()),
	}
}

func (b *cpuComputeBackend) PrepareKernel(k pipeline.Kernel) error {
	if k.CPU() == nil {
		return fmt.Errorf("%w: %q has no CPU implementation", ErrUnknownKernel, k.Key())
	}
	return nil
}

func (b *cpuComputeBackend) CreateTextureArray(label string, width, height, layers int, format TextureFormat) (TextureArray, error) {
	return newCPUTextureArray(label, width, height, layers, format), nil
}

func (b *cpuComputeBackend) resolve(arr TextureArray) (*cpuTextureArray, error) {
	if IsBlack(arr) {
		return b.black, nil
	}
	t, ok := arr.(*cpuTextureArray)
	if !ok {
		return nil, fmt.Errorf("compute: texture array %q was not created by the cpu backend", arr.Label())
	}
	if t.released.Load() {
		return nil, fmt.Errorf("%w: texture array %q", ErrReleased, t.label)
	}
	return t, nil
}

func (b *cpuComputeBackend) WriteTextureLayer(arr TextureArray, layer int, texels []float32) error {
	t, err := b.resolve(arr)
	if err != nil {
		return err
	}
	copy(t.layerData(layer), texels)
	return nil
}

func (b *cpuComputeBackend) ReadTextureLayer(arr TextureArray, layer int) ([]float32, error) {
	t, err := b.resolve(arr)
	if err != nil {
		return nil, err
	}
	out := make([]float32, t.layerStride())
	copy(out, t.layerData(layer))
	return out, nil
}

func (b *cpuComputeBackend) ReleaseTextureArray(arr TextureArray) {
	if t, ok := arr.(*cpuTextureArray); ok && !t.released.Swap(true) {
		t.data = nil
	}
}

func (b *cpuComputeBackend) BeginComputeFrame() error {
	return nil
}

func (b *cpuComputeBackend) EndComputeFrame() error {
	return nil
}

func (b *cpuComputeBackend) Dispatch(k pipeline.Kernel, props *PropertyBlock, d Domain) error {
	fn := k.CPU()
	if fn == nil {
		return fmt.Errorf("%w: %q has no CPU implementation", ErrUnknownKernel, k.Key())
	}
	_, out := props.Output()
	dst, err := b.resolve(out.Array)
	if err != nil {
		return err
	}

	bindings := &cpuBindings{
		props:    props,
		textures: make(map[param_id.ParamID]cpuTextureBinding, len(props.textures)),
		layer:    out.Layer,
		width:    min(d.Width, dst.width),
		height:   min(d.Height, dst.height),
	}
	for id, tb := range props.textures {
		t, err := b.resolve(tb.Array)
		if err != nil {
			return fmt.Errorf("compute: dispatch of %q: %w", k.Key(), err)
		}
		bindings.textures[id] = cpuTextureBinding{array: t, layer: tb.Layer}
	}

	// Results land in a scratch layer first so a kernel may read the layer it writes.
	ch := dst.format.Channels()
	scratch := make([]float32, dst.layerStride())
	copy(scratch, dst.layerData(out.Layer))

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	rows := max(1, (bindings.height+b.workers-1)/b.workers)
	for y0 := 0; y0 < bindings.height; y0 += rows {
		y1 := min(y0+rows, bindings.height)
		wg.Add(1)
		b.mu.Lock()
		id := b.taskID
		b.taskID++
		b.mu.Unlock()
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						errMu.Lock()
						if firstErr == nil {
							firstErr = fmt.Errorf("compute: kernel %q panicked: %v", k.Key(), r)
						}
						errMu.Unlock()
					}
				}()
				for y := y0; y < y1; y++ {
					for x := 0; x < bindings.width; x++ {
						v := fn(bindings, x, y)
						base := (y*dst.width + x) * ch
						copy(scratch[base:base+ch], v[:ch])
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	copy(dst.layerData(out.Layer), scratch)
	return nil
}

func (b *cpuComputeBackend) Release() {
	b.pool.Stop()
}

// cpuTextureBinding is a resolved texture binding. layer is -1 when the whole array is bound.
type cpuTextureBinding struct {
	array *cpuTextureArray
	layer int
}

// cpuBindings implements kernel.Bindings over a PropertyBlock. It is read-only during a dispatch and
// shared by every worker.
type cpuBindings struct {
	props    *PropertyBlock
	textures map[param_id.ParamID]cpuTextureBinding
	layer    int
	width    int
	height   int
}

var _ kernel.Bindings = &cpuBindings{}

func (c *cpuBindings) Float(id param_id.ParamID) float32 {
	v, _ := c.props.Float(id)
	return v
}

func (c *cpuBindings) Int(id param_id.ParamID) int32 {
	v, _ := c.props.Int(id)
	return v
}

func (c *cpuBindings) Vector(id param_id.ParamID) mgl32.Vec4 {
	v, _ := c.props.Vector(id)
	return v
}

func (c *cpuBindings) Load(id param_id.ParamID, x, y, layer int) mgl32.Vec4 {
	tb, ok := c.textures[id]
	if !ok {
		return mgl32.Vec4{}
	}
	if tb.layer >= 0 {
		layer = tb.layer
	}
	return tb.array.load(x, y, layer)
}

func (c *cpuBindings) Sample(id param_id.ParamID, uv mgl32.Vec2, layer int) mgl32.Vec4 {
	tb, ok := c.textures[id]
	if !ok {
		return mgl32.Vec4{}
	}
	if tb.layer >= 0 {
		layer = tb.layer
	}
	return tb.array.sample(uv, layer)
}

func (c *cpuBindings) TextureSize(id param_id.ParamID) (int, int) {
	tb, ok := c.textures[id]
	if !ok {
		return 0, 0
	}
	return tb.array.width, tb.array.height
}

func (c *cpuBindings) Layer() int {
	return c.layer
}

func (c *cpuBindings) Size() (int, int) {
	return c.width, c.height
}
