package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/prism-go/common"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/prism-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer manages a cache of pipelines and a named arena of GPU resources (buffers, textures,
// samplers), allowing for easy retrieval and management of these resources. The Renderer also
// implements a backend which allows for multiple backend API implementations to exist.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU
	// pipeline objects (render or compute) via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// SetPipeline adds or updates a Pipeline in the cache with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to add or update in the cache
	//   - p: the Pipeline to add or update in the cache
	SetPipeline(key string, p pipeline.Pipeline)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	// Callers are responsible for recreating any size-dependent textures and re-initializing
	// the binding sets that reference them.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SurfaceSize returns the currently configured surface extent.
	//
	// Returns:
	//   - uint32: the surface width in pixels
	//   - uint32: the surface height in pixels
	SurfaceSize() (uint32, uint32)

	// InitStorageBuffer creates a named GPU storage buffer initialized with the given data.
	// Creating a buffer under an existing name releases the previous buffer first.
	//
	// Parameters:
	//   - name: the unique name for the buffer
	//   - data: the initial buffer contents; must be non-empty
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitStorageBuffer(name string, data []byte) error

	// InitUniformBuffer creates a named GPU uniform buffer of the given size.
	//
	// Parameters:
	//   - name: the unique name for the buffer
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitUniformBuffer(name string, size uint64) error

	// WriteNamedBuffer writes data to a named buffer at a byte offset.
	//
	// Parameters:
	//   - name: the name of the buffer to write to
	//   - offset: the byte offset to write at
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if no buffer exists under that name
	WriteNamedBuffer(name string, offset uint64, data []byte) error

	// Buffer retrieves a named buffer, or nil if absent.
	//
	// Parameters:
	//   - name: the name of the buffer to retrieve
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if not found
	Buffer(name string) *wgpu.Buffer

	// InitStorageTexture creates a named read-write storage texture sized to the given extent.
	//
	// Parameters:
	//   - name: the unique name for the texture
	//   - width: the texture width in pixels
	//   - height: the texture height in pixels
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitStorageTexture(name string, width, height uint32) error

	// InitTexture2D creates a named sampled 2D texture and uploads its pixels.
	//
	// Parameters:
	//   - name: the unique name for the texture
	//   - width: the texture width in pixels
	//   - height: the texture height in pixels
	//   - pixels: tightly packed RGBA8 pixel data
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTexture2D(name string, width, height uint32, pixels []byte) error

	// InitTextureArray creates a named sampled 2D-array texture and uploads all layers.
	//
	// Parameters:
	//   - name: the unique name for the texture
	//   - width: the layer width in pixels
	//   - height: the layer height in pixels
	//   - layers: the number of array layers
	//   - pixels: tightly packed RGBA8 pixel data for every layer
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTextureArray(name string, width, height, layers uint32, pixels []byte) error

	// TextureView retrieves the default view of a named texture, or nil if absent.
	//
	// Parameters:
	//   - name: the name of the texture
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view, or nil if not found
	TextureView(name string) *wgpu.TextureView

	// ReleaseTexture releases a named texture and its view. Releasing an absent
	// name is a no-op.
	//
	// Parameters:
	//   - name: the name of the texture to release
	ReleaseTexture(name string)

	// InitSampler creates a named sampler from staging data. Zero-valued fields
	// fall back to repeat addressing with linear filtering.
	//
	// Parameters:
	//   - name: the unique name for the sampler
	//   - staging: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(name string, staging common.SamplerStagingData) error

	// Sampler retrieves a named sampler, or nil if absent.
	//
	// Parameters:
	//   - name: the name of the sampler
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler, or nil if not found
	Sampler(name string) *wgpu.Sampler

	// InitBindGroup derives the bind group layout and bind group for a provider from
	// its declared entry list. Every slot must already hold its resource; assign
	// buffers, texture views and samplers on the provider before calling this.
	//
	// Parameters:
	//   - provider: the binding set to initialize
	//
	// Returns:
	//   - error: an error if a slot resource is missing or bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider) error

	// WriteBuffers performs a batch of buffer writes against provider bindings.
	//
	// Parameters:
	//   - writes: the buffer write operations to perform
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginComputeFrame opens a command encoder for a batch of compute dispatches.
	//
	// Returns:
	//   - error: an error if an encoder is already open or creation fails
	BeginComputeFrame() error

	// DispatchCompute records one compute pass for the cached pipeline under the
	// given key onto the open compute encoder.
	//
	// Parameters:
	//   - key: the key of the registered compute pipeline to dispatch
	//   - workGroupCount: the x, y, z workgroup counts
	//
	// Returns:
	//   - error: an error if the pipeline is not registered or no encoder is open
	DispatchCompute(key string, workGroupCount [3]uint32) error

	// EndComputeFrame finishes the open compute encoder and submits its command buffer.
	//
	// Returns:
	//   - error: an error if no encoder is open or submission fails
	EndComputeFrame() error

	// BeginFrame acquires the surface texture and opens a render pass that clears it.
	// Surface acquisition errors are returned unwrapped so callers can classify them
	// with IsSurfaceLost, IsSurfaceOutdated, IsSurfaceTimeout and IsOutOfMemory.
	//
	// Returns:
	//   - error: the surface error, if acquisition fails
	BeginFrame() error

	// DrawCall records a non-indexed draw with the cached pipeline under the given key.
	//
	// Parameters:
	//   - key: the key of the registered render pipeline to draw with
	//   - vertexCount: the number of vertices to draw
	//
	// Returns:
	//   - error: an error if the pipeline is not registered or no render pass is open
	DrawCall(key string, vertexCount uint32) error

	// EndFrame closes the render pass and submits its command buffer. Does not
	// present the surface; call Present afterwards.
	//
	// Returns:
	//   - error: an error if no frame is open or submission fails
	EndFrame() error

	// Present presents the acquired surface texture and releases per-frame state.
	Present()

	// Release releases all cached pipelines, arena resources, and the GPU context.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer targeting the given window surface.
//
// Parameters:
//   - backendType: the rendering backend to use
//   - win: the window providing the presentation surface
//   - options: functional options to configure the Renderer
//
// Returns:
//   - Renderer: the new Renderer
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(win.Width(), win.Height())
	return r
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, v := range r.pipelineCache {
		out[k] = v
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		if p == nil {
			continue
		}
		key := p.PipelineKey()
		if _, ok := r.pipelineCache[key]; ok {
			continue
		}

		var err error
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			err = r.backend.RegisterComputePipeline(p)
		case pipeline.PipelineTypeRender:
			err = r.backend.RegisterRenderPipeline(p)
		default:
			err = fmt.Errorf("pipeline %q has unknown type %d", key, p.Type())
		}
		if err != nil {
			return fmt.Errorf("failed to register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) SetPipeline(key string, p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelineCache[key] = p
}

func (r *renderer) Resize(width, height int) {
	r.backend.Resize(width, height)
}

func (r *renderer) SurfaceSize() (uint32, uint32) {
	return r.backend.SurfaceSize()
}

func (r *renderer) InitStorageBuffer(name string, data []byte) error {
	return r.backend.CreateStorageBuffer(name, data)
}

func (r *renderer) InitUniformBuffer(name string, size uint64) error {
	return r.backend.CreateUniformBuffer(name, size)
}

func (r *renderer) WriteNamedBuffer(name string, offset uint64, data []byte) error {
	return r.backend.WriteNamedBuffer(name, offset, data)
}

func (r *renderer) Buffer(name string) *wgpu.Buffer {
	return r.backend.NamedBuffer(name)
}

func (r *renderer) InitStorageTexture(name string, width, height uint32) error {
	return r.backend.CreateStorageTexture(name, width, height)
}

func (r *renderer) InitTexture2D(name string, width, height uint32, pixels []byte) error {
	return r.backend.CreateTexture2D(name, width, height, pixels)
}

func (r *renderer) InitTextureArray(name string, width, height, layers uint32, pixels []byte) error {
	return r.backend.CreateTextureArray(name, width, height, layers, pixels)
}

func (r *renderer) TextureView(name string) *wgpu.TextureView {
	return r.backend.NamedTextureView(name)
}

func (r *renderer) ReleaseTexture(name string) {
	r.backend.ReleaseNamedTexture(name)
}

func (r *renderer) InitSampler(name string, staging common.SamplerStagingData) error {
	return r.backend.CreateSampler(name, staging)
}

func (r *renderer) Sampler(name string) *wgpu.Sampler {
	return r.backend.NamedSampler(name)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider) error {
	return r.backend.InitBindGroup(provider)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) DispatchCompute(key string, workGroupCount [3]uint32) error {
	p := r.Pipeline(key)
	if p == nil {
		return fmt.Errorf("compute pipeline %q is not registered", key)
	}
	return r.backend.DispatchCompute(p, workGroupCount)
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawCall(key string, vertexCount uint32) error {
	p := r.Pipeline(key)
	if p == nil {
		return fmt.Errorf("render pipeline %q is not registered", key)
	}
	return r.backend.DrawCall(p, vertexCount)
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	for key, p := range r.pipelineCache {
		if p != nil {
			p.Release()
		}
		delete(r.pipelineCache, key)
	}
	r.mu.Unlock()

	if r.backend != nil {
		r.backend.Release()
	}
}
