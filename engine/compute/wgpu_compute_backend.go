package compute

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-ocean/common"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/pipeline"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// wgpuTextureArray is a texture array backed by a GPU texture with one array layer per level.
type wgpuTextureArray struct {
	label                 string
	width, height, layers int
	format                TextureFormat

	texture    *wgpu.Texture
	arrayView  *wgpu.TextureView
	layerViews []*wgpu.TextureView
	released   bool
}

var _ TextureArray = &wgpuTextureArray{}

func (t *wgpuTextureArray) Label() string         { return t.label }
func (t *wgpuTextureArray) Width() int            { return t.width }
func (t *wgpuTextureArray) Height() int           { return t.height }
func (t *wgpuTextureArray) Layers() int           { return t.layers }
func (t *wgpuTextureArray) Format() TextureFormat { return t.format }

func (t *wgpuTextureArray) release() {
	if t.released {
		return
	}
	t.released = true
	for _, v := range t.layerViews {
		v.Release()
	}
	t.layerViews = nil
	if t.arrayView != nil {
		t.arrayView.Release()
		t.arrayView = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// wgpuComputeBackend encodes dispatches into one command encoder per frame. Every dispatch gets its
// own bind group providers so the parameters of earlier dispatches in the frame are not overwritten;
// the providers are released after the frame is submitted.
type wgpuComputeBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	logger   *zap.Logger

	black *wgpuTextureArray

	computeFrameEncoder *wgpu.CommandEncoder
	frameProviders      []bind_group_provider.BindGroupProvider
	dispatchCount       int
}

var _ ComputeBackend = &wgpuComputeBackend{}

func newWGPUComputeBackend(forceFallbackAdapter bool, logger *zap.Logger) (*wgpuComputeBackend, error) {
	runtime.LockOSThread()
	w := &wgpuComputeBackend{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
		logger:   logger,
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		w.instance.Release()
		return nil, err
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Simulation Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		w.adapter.Release()
		w.instance.Release()
		return nil, err
	}
	w.device = d
	w.queue = d.GetQueue()

	black, err := w.createTextureArray(BlackTextureArray.Label(), 1, 1, 1, BlackTextureArray.Format())
	if err != nil {
		w.Release()
		return nil, err
	}
	w.black = black
	return w, nil
}

func (b *wgpuComputeBackend) PrepareKernel(k pipeline.Kernel) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prog := k.Program()
	s, err := b.device.CreateShaderModule(prog.Module())
	if err != nil {
		return err
	}
	defer s.Release()

	descriptors := prog.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		desc := descriptors[g]
		desc.Label = fmt.Sprintf("%s Group %d", k.Key(), g)
		bgl, bglErr := b.device.CreateBindGroupLayout(&desc)
		if bglErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, bglErr)
		}
		bindGroupLayouts[g] = bgl
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            k.Key(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}
	defer layout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  k.Key() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: k.Entry().Name,
		},
	})
	if err != nil {
		return err
	}

	k.SetComputePipeline(created, bindGroupLayouts)
	return nil
}

func (b *wgpuComputeBackend) CreateTextureArray(label string, width, height, layers int, format TextureFormat) (TextureArray, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createTextureArray(label, width, height, layers, format)
}

func (b *wgpuComputeBackend) createTextureArray(label string, width, height, layers int, format TextureFormat) (*wgpuTextureArray, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageStorageBinding |
			wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: uint32(layers),
		},
		Format:        format.wgpuFormat(),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	t := &wgpuTextureArray{
		label:   label,
		width:   width,
		height:  height,
		layers:  layers,
		format:  format,
		texture: tex,
	}
	t.arrayView, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " Array View",
		Format:          format.wgpuFormat(),
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: uint32(layers),
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		t.release()
		return nil, err
	}
	for l := range layers {
		view, viewErr := tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("%s Layer %d View", label, l),
			Format:          format.wgpuFormat(),
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(l),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if viewErr != nil {
			t.release()
			return nil, viewErr
		}
		t.layerViews = append(t.layerViews, view)
	}

	zero := make([]float32, width*height*format.Channels())
	for l := range layers {
		b.writeLayer(t, l, zero)
	}
	return t, nil
}

func (b *wgpuComputeBackend) writeLayer(t *wgpuTextureArray, layer int, texels []float32) {
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: uint32(layer)},
			Aspect:   wgpu.TextureAspectAll,
		},
		common.SliceToBytes(texels),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(t.width * t.format.Channels() * 4),
			RowsPerImage: uint32(t.height),
		},
		&wgpu.Extent3D{
			Width:              uint32(t.width),
			Height:             uint32(t.height),
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuComputeBackend) resolve(arr TextureArray) (*wgpuTextureArray, error) {
	if IsBlack(arr) {
		return b.black, nil
	}
	t, ok := arr.(*wgpuTextureArray)
	if !ok {
		return nil, fmt.Errorf("compute: texture array %q was not created by the wgpu backend", arr.Label())
	}
	if t.released {
		return nil, fmt.Errorf("%w: texture array %q", ErrReleased, t.label)
	}
	return t, nil
}

func (b *wgpuComputeBackend) WriteTextureLayer(arr TextureArray, layer int, texels []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.resolve(arr)
	if err != nil {
		return err
	}
	b.writeLayer(t, layer, texels)
	return nil
}

func (b *wgpuComputeBackend) ReadTextureLayer(TextureArray, int) ([]float32, error) {
	return nil, ErrReadbackUnsupported
}

func (b *wgpuComputeBackend) ReleaseTextureArray(arr TextureArray) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := arr.(*wgpuTextureArray); ok && t != b.black {
		t.release()
	}
}

func (b *wgpuComputeBackend) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	b.dispatchCount = 0
	return nil
}

func (b *wgpuComputeBackend) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return nil
	}
	defer b.releaseFrameProviders()

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.computeFrameEncoder.Release()
	b.computeFrameEncoder = nil
	b.logger.Debug("compute frame submitted", zap.Int("dispatches", b.dispatchCount))
	return nil
}

func (b *wgpuComputeBackend) releaseFrameProviders() {
	for _, p := range b.frameProviders {
		p.Release()
	}
	b.frameProviders = b.frameProviders[:0]
}

func (b *wgpuComputeBackend) Dispatch(k pipeline.Kernel, props *PropertyBlock, d Domain) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return ErrNoComputeFrame
	}
	computePipeline := k.Pipeline()
	if computePipeline == nil {
		return fmt.Errorf("%w: %q has no compute pipeline", ErrUnknownKernel, k.Key())
	}

	descriptors := k.Program().BindGroupLayoutDescriptors()
	groups := make([]int, 0, len(descriptors))
	for g := range descriptors {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	bindGroups := make(map[int]*wgpu.BindGroup, len(groups))
	for _, g := range groups {
		provider := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s #%d Group %d", k.Key(), b.dispatchCount, g))
		b.frameProviders = append(b.frameProviders, provider)
		if err := b.initBindGroup(k, g, descriptors[g], provider, props); err != nil {
			return fmt.Errorf("compute: dispatch of %q: %w", k.Key(), err)
		}
		bindGroups[g] = provider.BindGroup()
	}

	wg := d.WorkgroupCount(k.WorkgroupSize())
	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	for _, g := range groups {
		pass.SetBindGroup(uint32(g), bindGroups[g], nil)
	}
	pass.DispatchWorkgroups(wg[0], wg[1], wg[2])
	pass.End()
	b.dispatchCount++
	return nil
}

// initBindGroup resolves every binding of one group from the dispatch parameters and creates its bind group.
// Resources are looked up by the declared variable name, which is the parameter name.
func (b *wgpuComputeBackend) initBindGroup(
	k pipeline.Kernel,
	group int,
	descriptor wgpu.BindGroupLayoutDescriptor,
	provider bind_group_provider.BindGroupProvider,
	props *PropertyBlock,
) error {
	prog := k.Program()
	entries := make([]wgpu.BindGroupEntry, 0, len(descriptor.Entries))

	for _, entry := range descriptor.Entries {
		binding := int(entry.Binding)
		name := prog.BindGroupVarName(group, binding)

		switch {
		case entry.Buffer.Type == wgpu.BufferBindingTypeUniform:
			layout, ok := prog.UniformLayout(group, binding)
			if !ok {
				return fmt.Errorf("uniform %q has no resolvable struct layout", name)
			}
			data := bind_group_provider.PackUniform(layout, props)
			buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: provider.Label() + " " + name,
				Size:  uint64(len(data)),
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return err
			}
			b.queue.WriteBuffer(buf, 0, data)
			provider.SetBuffer(binding, buf)
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			})

		case entry.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			return fmt.Errorf("storage buffer %q is not supported by simulation kernels", name)

		case entry.StorageTexture.Format != wgpu.TextureFormatUndefined:
			_, out := props.Output()
			t, err := b.resolve(out.Array)
			if err != nil {
				return err
			}
			if t.format.wgpuFormat() != entry.StorageTexture.Format {
				return fmt.Errorf("output %q is %s but %q is declared with a different texel format", t.label, t.format, name)
			}
			view := t.layerViews[out.Layer]
			provider.SetTextureView(binding, view)
			entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: view})

		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			tb, ok := props.Texture(param_id.PropertyToID(name))
			if !ok {
				tb = TextureBinding{Array: BlackTextureArray, Layer: -1}
			}
			t, err := b.resolve(tb.Array)
			if err != nil {
				return err
			}
			view := t.arrayView
			if entry.Texture.ViewDimension == wgpu.TextureViewDimension2D {
				view = t.layerViews[min(max(tb.Layer, 0), t.layers-1)]
			}
			provider.SetTextureView(binding, view)
			entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: view})

		default:
			return errors.New("samplers are not supported by simulation kernels; use textureLoad")
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  k.BindGroupLayout(group),
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuComputeBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrameProviders()
	if b.computeFrameEncoder != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
	}
	if b.black != nil {
		b.black.release()
		b.black = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
