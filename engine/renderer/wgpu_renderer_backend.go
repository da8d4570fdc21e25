package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/prism-go/common"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// namedTexture pairs a texture with its default view in the backend arena.
type namedTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// wgpuRendererBackend is the WebGPU implementation contract for the renderer
// backend. It owns the instance, surface, adapter, device and queue, plus an
// arena of named buffers, textures and samplers that binding sets reference by
// handle.
type wgpuRendererBackend interface {
	// ConfigureSurface configures the presentation surface at the given size,
	// preferring an Rgba8Unorm surface format when the adapter offers one.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// Resize reconfigures the surface at a new size. Callers recreate any
	// size-dependent textures and bind groups afterwards.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// SurfaceSize returns the currently configured surface extent.
	//
	// Returns:
	//   - uint32: the surface width in pixels
	//   - uint32: the surface height in pixels
	SurfaceSize() (uint32, uint32)

	// SurfaceFormat returns the configured surface texture format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	SurfaceFormat() wgpu.TextureFormat

	// SetPresentMode sets the present mode used the next time the surface is configured.
	//
	// Parameters:
	//   - mode: the present mode to use
	SetPresentMode(mode PresentMode)

	// CreateStorageBuffer creates a named storage buffer initialized with data.
	//
	// Parameters:
	//   - name: the arena name for the buffer
	//   - data: the initial buffer contents; must be non-empty
	//
	// Returns:
	//   - error: an error if creation failed
	CreateStorageBuffer(name string, data []byte) error

	// CreateUniformBuffer creates a named uniform buffer of the given size.
	//
	// Parameters:
	//   - name: the arena name for the buffer
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - error: an error if creation failed
	CreateUniformBuffer(name string, size uint64) error

	// WriteNamedBuffer writes data to a named buffer at a byte offset.
	//
	// Parameters:
	//   - name: the arena name of the buffer
	//   - offset: the byte offset to write at
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if no buffer holds that name
	WriteNamedBuffer(name string, offset uint64, data []byte) error

	// NamedBuffer retrieves a buffer from the arena.
	//
	// Parameters:
	//   - name: the arena name of the buffer
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if absent
	NamedBuffer(name string) *wgpu.Buffer

	// CreateStorageTexture creates a named read-write storage texture in the
	// Rgba8Unorm format, also usable as a sampled texture.
	//
	// Parameters:
	//   - name: the arena name for the texture
	//   - width: the texture width in pixels
	//   - height: the texture height in pixels
	//
	// Returns:
	//   - error: an error if creation failed
	CreateStorageTexture(name string, width, height uint32) error

	// CreateTexture2D creates a named sampled 2D texture and uploads pixels.
	//
	// Parameters:
	//   - name: the arena name for the texture
	//   - width: the texture width in pixels
	//   - height: the texture height in pixels
	//   - pixels: tightly packed RGBA8 pixel data
	//
	// Returns:
	//   - error: an error if creation failed
	CreateTexture2D(name string, width, height uint32, pixels []byte) error

	// CreateTextureArray creates a named sampled 2D-array texture and uploads
	// all layers at once.
	//
	// Parameters:
	//   - name: the arena name for the texture
	//   - width: the layer width in pixels
	//   - height: the layer height in pixels
	//   - layers: the number of array layers
	//   - pixels: tightly packed RGBA8 pixel data for every layer
	//
	// Returns:
	//   - error: an error if creation failed
	CreateTextureArray(name string, width, height, layers uint32, pixels []byte) error

	// NamedTextureView retrieves a texture view from the arena.
	//
	// Parameters:
	//   - name: the arena name of the texture
	//
	// Returns:
	//   - *wgpu.TextureView: the default view, or nil if absent
	NamedTextureView(name string) *wgpu.TextureView

	// ReleaseNamedTexture releases a texture and its view and removes it from
	// the arena. Releasing an absent name is a no-op.
	//
	// Parameters:
	//   - name: the arena name of the texture
	ReleaseNamedTexture(name string)

	// CreateSampler creates a named sampler. Zero-valued staging fields fall
	// back to repeat addressing with linear filtering.
	//
	// Parameters:
	//   - name: the arena name for the sampler
	//   - staging: the sampler configuration
	//
	// Returns:
	//   - error: an error if creation failed
	CreateSampler(name string, staging common.SamplerStagingData) error

	// NamedSampler retrieves a sampler from the arena.
	//
	// Parameters:
	//   - name: the arena name of the sampler
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler, or nil if absent
	NamedSampler(name string) *wgpu.Sampler

	// InitBindGroup derives the bind group layout and bind group for a provider
	// from its declared entry list. Every slot must already hold its resource.
	//
	// Parameters:
	//   - provider: the binding set to initialize
	//
	// Returns:
	//   - error: an error if a slot resource is missing or creation failed
	InitBindGroup(provider bind_group_provider.BindGroupProvider) error

	// WriteBuffers performs a batch of buffer writes against provider bindings.
	//
	// Parameters:
	//   - writes: the buffer write operations to perform
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// RegisterComputePipeline compiles the pipeline's compute shader and creates
	// the compute pipeline from its binding set layouts.
	//
	// Parameters:
	//   - p: the pipeline to register
	//
	// Returns:
	//   - error: an error if shader compilation or pipeline creation failed
	RegisterComputePipeline(p pipeline.Pipeline) error

	// RegisterRenderPipeline compiles the pipeline's vertex and fragment shaders
	// and creates the render pipeline targeting the surface format.
	//
	// Parameters:
	//   - p: the pipeline to register
	//
	// Returns:
	//   - error: an error if shader compilation or pipeline creation failed
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// BeginComputeFrame opens a command encoder for a batch of compute dispatches.
	//
	// Returns:
	//   - error: an error if an encoder is already open or creation failed
	BeginComputeFrame() error

	// DispatchCompute records one compute pass for the pipeline with its bound
	// binding sets onto the open compute encoder.
	//
	// Parameters:
	//   - p: the compute pipeline to dispatch
	//   - workGroupCount: the x, y, z workgroup counts
	//
	// Returns:
	//   - error: an error if no encoder is open or the pipeline is incomplete
	DispatchCompute(p pipeline.Pipeline, workGroupCount [3]uint32) error

	// EndComputeFrame finishes the open compute encoder and submits its command buffer.
	//
	// Returns:
	//   - error: an error if no encoder is open or submission failed
	EndComputeFrame() error

	// BeginFrame acquires the surface texture and opens a render pass that
	// clears it. Surface acquisition errors are returned for the caller to
	// classify; no pass is open when an error is returned.
	//
	// Returns:
	//   - error: the surface error, if acquisition failed
	BeginFrame() error

	// DrawCall records a non-indexed draw with the pipeline and its binding sets
	// onto the open render pass.
	//
	// Parameters:
	//   - p: the render pipeline to draw with
	//   - vertexCount: the number of vertices to draw
	//
	// Returns:
	//   - error: an error if no render pass is open
	DrawCall(p pipeline.Pipeline, vertexCount uint32) error

	// EndFrame closes the render pass and submits its command buffer.
	// Does not present the surface; call Present afterwards.
	//
	// Returns:
	//   - error: an error if no frame is open or submission failed
	EndFrame() error

	// Present presents the acquired surface texture and releases frame state.
	Present()

	// Release releases every arena resource and the GPU context.
	Release()
}

// wgpuRendererBackendImpl is the implementation of the wgpuRendererBackend interface.
type wgpuRendererBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32
	presentMode   wgpu.PresentMode

	// arena of named GPU resources shared between binding sets
	buffers  map[string]*wgpu.Buffer
	textures map[string]namedTexture
	samplers map[string]*wgpu.Sampler

	// compute batch state
	computeFrameEncoder *wgpu.CommandEncoder

	// render frame state
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		buffers:     make(map[string]*wgpu.Buffer),
		textures:    make(map[string]namedTexture),
		samplers:    make(map[string]*wgpu.Sampler),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	// Start from the WebGPU spec default limits and raise MaxBindGroups to 8
	// so the ray generation pipeline's 6 bind groups (0-5) are allowed.
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configureSurfaceLocked(width, height)
}

func (b *wgpuRendererBackendImpl) configureSurfaceLocked(width, height int) {
	capabilities := b.surface.GetCapabilities(b.adapter)

	// The compute passes store linear color; prefer a non-sRGB surface so the
	// present pass does not double-encode.
	b.surfaceFormat = capabilities.Formats[0]
	for _, f := range capabilities.Formats {
		if f == wgpu.TextureFormatRGBA8Unorm {
			b.surfaceFormat = f
			break
		}
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.surfaceWidth = uint32(width)
	b.surfaceHeight = uint32(height)
}

func (b *wgpuRendererBackendImpl) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configureSurfaceLocked(width, height)
}

func (b *wgpuRendererBackendImpl) SurfaceSize() (uint32, uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceWidth, b.surfaceHeight
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) CreateStorageBuffer(name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(data) == 0 {
		return fmt.Errorf("storage buffer %q must be created with data", name)
	}

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.queue.WriteBuffer(buf, 0, data)

	b.releaseBufferLocked(name)
	b.buffers[name] = buf
	return nil
}

func (b *wgpuRendererBackendImpl) CreateUniformBuffer(name string, size uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Round up so the binding satisfies uniform alignment regardless of the
	// packed struct size.
	size = (size + 15) &^ 15

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}

	b.releaseBufferLocked(name)
	b.buffers[name] = buf
	return nil
}

func (b *wgpuRendererBackendImpl) WriteNamedBuffer(name string, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[name]
	if !ok {
		return fmt.Errorf("no buffer named %q", name)
	}
	b.queue.WriteBuffer(buf, offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) NamedBuffer(name string) *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffers[name]
}

func (b *wgpuRendererBackendImpl) releaseBufferLocked(name string) {
	if prev, ok := b.buffers[name]; ok {
		prev.Release()
		delete(b.buffers, name)
	}
}

func (b *wgpuRendererBackendImpl) CreateStorageTexture(name string, width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: name,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return err
	}
	return b.storeTextureLocked(name, tex)
}

func (b *wgpuRendererBackendImpl) CreateTexture2D(name string, width, height uint32, pixels []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createSampledTextureLocked(name, width, height, 1, pixels)
}

func (b *wgpuRendererBackendImpl) CreateTextureArray(name string, width, height, layers uint32, pixels []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createSampledTextureLocked(name, width, height, layers, pixels)
}

func (b *wgpuRendererBackendImpl) createSampledTextureLocked(name string, width, height, layers uint32, pixels []byte) error {
	if expected := uint64(width) * uint64(height) * uint64(layers) * 4; uint64(len(pixels)) != expected {
		return fmt.Errorf("texture %q expects %d pixel bytes, got %d", name, expected, len(pixels))
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: name,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
	)

	return b.storeTextureLocked(name, tex)
}

func (b *wgpuRendererBackendImpl) storeTextureLocked(name string, tex *wgpu.Texture) error {
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}

	b.releaseTextureLocked(name)
	b.textures[name] = namedTexture{texture: tex, view: view}
	return nil
}

func (b *wgpuRendererBackendImpl) NamedTextureView(name string) *wgpu.TextureView {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.textures[name]; ok {
		return entry.view
	}
	return nil
}

func (b *wgpuRendererBackendImpl) ReleaseNamedTexture(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseTextureLocked(name)
}

func (b *wgpuRendererBackendImpl) releaseTextureLocked(name string) {
	if entry, ok := b.textures[name]; ok {
		entry.view.Release()
		entry.texture.Release()
		delete(b.textures, name)
	}
}

func (b *wgpuRendererBackendImpl) CreateSampler(name string, staging common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         name,
		AddressModeU:  common.Coalesce(staging.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(staging.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(staging.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(staging.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(staging.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(staging.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(staging.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(staging.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(staging.MaxAnisotropy, 1),
		Compare:       staging.Compare,
	})
	if err != nil {
		return err
	}

	if prev, ok := b.samplers[name]; ok {
		prev.Release()
	}
	b.samplers[name] = samp
	return nil
}

func (b *wgpuRendererBackendImpl) NamedSampler(name string) *wgpu.Sampler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.samplers[name]
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := provider.Entries()
	if len(entries) == 0 {
		return fmt.Errorf("binding set %q declares no entries", provider.Label())
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		descriptor := provider.LayoutDescriptor()
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return fmt.Errorf("failed to create layout for binding set %q: %w", provider.Label(), err)
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(entries))
	for binding, entry := range entries {
		switch {
		case entry.IsBuffer():
			buf := provider.Buffer(binding)
			if buf == nil {
				return fmt.Errorf("binding set %q slot %d has no buffer assigned", provider.Label(), binding)
			}
			bindGroupEntries[binding] = wgpu.BindGroupEntry{
				Binding: uint32(binding),
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		case entry.IsTexture():
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("binding set %q slot %d has no texture view assigned", provider.Label(), binding)
			}
			bindGroupEntries[binding] = wgpu.BindGroupEntry{
				Binding:     uint32(binding),
				TextureView: tv,
			}
		default:
			samp := provider.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("binding set %q slot %d has no sampler assigned", provider.Label(), binding)
			}
			bindGroupEntries[binding] = wgpu.BindGroupEntry{
				Binding: uint32(binding),
				Sampler: samp,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return fmt.Errorf("failed to create bind group for binding set %q: %w", provider.Label(), err)
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

// pipelineLayoutLocked creates the pipeline layout from the pipeline's ordered
// binding sets, creating each set's bind group layout on first use.
func (b *wgpuRendererBackendImpl) pipelineLayoutLocked(p pipeline.Pipeline) (*wgpu.PipelineLayout, error) {
	groups := p.BindGroups()
	layouts := make([]*wgpu.BindGroupLayout, len(groups))
	for i, provider := range groups {
		layout := provider.BindGroupLayout()
		if layout == nil {
			descriptor := provider.LayoutDescriptor()
			var err error
			layout, err = b.device.CreateBindGroupLayout(&descriptor)
			if err != nil {
				return nil, fmt.Errorf("failed to create layout for binding set %q: %w", provider.Label(), err)
			}
			provider.SetBindGroupLayout(layout)
		}
		layouts[i] = layout
	}

	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}

	layout, err := b.pipelineLayoutLocked(p)
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	fs := vs
	if fragmentShader.Source() != vertexShader.Source() {
		fs, err = b.device.CreateShaderModule(fragmentShader.Module())
		if err != nil {
			return err
		}
	}

	layout, err := b.pipelineLayoutLocked(p)
	if err != nil {
		return err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.surfaceFormat,
					Blend:     p.BlendState(),
					WriteMask: p.WriteMask(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder != nil {
		return errors.New("compute frame already in progress")
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(p pipeline.Pipeline, workGroupCount [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return errors.New("no compute frame in progress — call BeginComputeFrame first")
	}

	cp, ok := p.Pipeline().(*wgpu.ComputePipeline)
	if !ok || cp == nil {
		return fmt.Errorf("pipeline %q has no registered compute pipeline", p.PipelineKey())
	}

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(cp)
	for i, provider := range p.BindGroups() {
		bg := provider.BindGroup()
		if bg == nil {
			pass.End()
			return fmt.Errorf("binding set %q has no bind group — call InitBindGroup first", provider.Label())
		}
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()

	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return errors.New("no compute frame in progress")
	}

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		b.computeFrameEncoder = nil
		return err
	}
	b.queue.Submit(commandBuffer)
	b.computeFrameEncoder = nil
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.2, B: 0.3, A: 1.0,
				},
			},
		},
	})

	b.frameSurface = surfaceTexture
	b.frameView = view
	b.frameEncoder = encoder
	b.framePass = pass
	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(p pipeline.Pipeline, vertexCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("no frame in progress — call BeginFrame first")
	}

	rp, ok := p.Pipeline().(*wgpu.RenderPipeline)
	if !ok || rp == nil {
		return fmt.Errorf("pipeline %q has no registered render pipeline", p.PipelineKey())
	}

	b.framePass.SetPipeline(rp)
	for i, provider := range p.BindGroups() {
		bg := provider.BindGroup()
		if bg == nil {
			return fmt.Errorf("binding set %q has no bind group — call InitBindGroup first", provider.Label())
		}
		b.framePass.SetBindGroup(uint32(i), bg, nil)
	}
	b.framePass.Draw(vertexCount, 1, 0, 0)

	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil || b.frameEncoder == nil {
		return errors.New("no frame in progress")
	}

	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder = nil
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, buf := range b.buffers {
		buf.Release()
		delete(b.buffers, name)
	}
	for name, entry := range b.textures {
		entry.view.Release()
		entry.texture.Release()
		delete(b.textures, name)
	}
	for name, samp := range b.samplers {
		samp.Release()
		delete(b.samplers, name)
	}

	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}
