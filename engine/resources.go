package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/Carmen-Shannon/prism-go/common"
	"github.com/Carmen-Shannon/prism-go/engine/bvh"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/prism-go/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// Arena names for every GPU resource the engine owns.
const (
	bufCamera          = "camera_uniform"
	bufReferenceCamera = "reference_camera_uniform"
	bufPassIndex       = "denoise_pass_index"
	bufShaderConfig    = "shader_config"
	bufTriangles       = "triangles"
	bufSpheres         = "spheres"
	bufMaterials       = "materials"
	bufBackground      = "background"
	bufBvhNodes        = "bvh_nodes"
	bufBvhPrimIndices  = "bvh_prim_indices"

	texColor      = "color_buffer"
	texHistory    = "history_buffer"
	texAtlas      = "texture_atlas"
	texBackground = "background_texture"

	sampAtlas  = "atlas_sampler"
	sampScreen = "screen_sampler"
)

// Pipeline cache keys.
const (
	pipelineRaygen  = "raygen"
	pipelineDenoise = "denoising"
	pipelineScreen  = "screen"
)

// bindingSets holds the eight declared binding sets the three pipelines are
// bound with. Each set's entry list is fixed at construction; resources are
// assigned to slots before the bind group is derived.
type bindingSets struct {
	camera               bind_group_provider.BindGroupProvider
	object               bind_group_provider.BindGroupProvider
	bvh                  bind_group_provider.BindGroupProvider
	texturesAndMaterials bind_group_provider.BindGroupProvider
	shaderConfig         bind_group_provider.BindGroupProvider
	raytracing           bind_group_provider.BindGroupProvider
	denoising            bind_group_provider.BindGroupProvider
	screen               bind_group_provider.BindGroupProvider
}

func (s *bindingSets) all() []bind_group_provider.BindGroupProvider {
	return []bind_group_provider.BindGroupProvider{
		s.camera, s.object, s.bvh, s.texturesAndMaterials,
		s.shaderConfig, s.raytracing, s.denoising, s.screen,
	}
}

func (s *bindingSets) release() {
	for _, p := range s.all() {
		if p != nil {
			p.Release()
		}
	}
}

// frameUniformWrites batches the start-of-frame uniform uploads: the live
// camera into the camera set and the shading parameters into the shader
// config set, both at binding 0.
func (s *bindingSets) frameUniformWrites(cam, cfg []byte) []bind_group_provider.BufferWrite {
	return []bind_group_provider.BufferWrite{
		{Provider: s.camera, Binding: 0, Data: cam},
		{Provider: s.shaderConfig, Binding: 0, Data: cfg},
	}
}

// referenceCameraWrite targets the denoise-reference camera slot of the
// denoising set.
func (s *bindingSets) referenceCameraWrite(cam []byte) []bind_group_provider.BufferWrite {
	return []bind_group_provider.BufferWrite{
		{Provider: s.denoising, Binding: 3, Data: cam},
	}
}

// passIndexWrite targets the denoise pass-index slot of the denoising set.
func (s *bindingSets) passIndexWrite(index uint32) []bind_group_provider.BufferWrite {
	return []bind_group_provider.BufferWrite{
		{Provider: s.denoising, Binding: 4, Data: passIndexBytes(index)},
	}
}

// initResources uploads the assembled scene to the GPU arena and derives the
// binding sets. Scene buffers are uploaded once here; only the uniform
// buffers are rewritten during the frame loop.
func (e *engine) initResources() error {
	if err := e.initBuffers(); err != nil {
		return err
	}
	if err := e.initTextures(); err != nil {
		return err
	}
	if err := e.initSamplers(); err != nil {
		return err
	}
	return e.initBindingSets()
}

func (e *engine) initBuffers() error {
	if err := e.rnd.InitUniformBuffer(bufCamera, e.camUniform.Size()); err != nil {
		return err
	}
	if err := e.rnd.InitUniformBuffer(bufReferenceCamera, e.camUniform.Size()); err != nil {
		return err
	}
	if err := e.rnd.InitUniformBuffer(bufPassIndex, 4); err != nil {
		return err
	}
	if err := e.rnd.InitUniformBuffer(bufShaderConfig, uint64(e.shaderConfig.Size())); err != nil {
		return err
	}

	// Seed the uniforms so the very first dispatch reads defined data.
	e.camUniform.UpdateViewProj(e.cam)
	camBytes := e.camUniform.Marshal()
	if err := e.rnd.WriteNamedBuffer(bufCamera, 0, camBytes); err != nil {
		return err
	}
	if err := e.rnd.WriteNamedBuffer(bufReferenceCamera, 0, camBytes); err != nil {
		return err
	}
	if err := e.rnd.WriteNamedBuffer(bufPassIndex, 0, passIndexBytes(0)); err != nil {
		return err
	}
	if err := e.rnd.WriteNamedBuffer(bufShaderConfig, 0, e.shaderConfig.Marshal()); err != nil {
		return err
	}

	if err := e.rnd.InitStorageBuffer(bufTriangles, marshalTriangles(e.scn.TriangleUniforms())); err != nil {
		return err
	}
	if err := e.rnd.InitStorageBuffer(bufSpheres, marshalSpheres(e.scn.Spheres)); err != nil {
		return err
	}
	if err := e.rnd.InitStorageBuffer(bufMaterials, marshalMaterials(e.scn.Materials)); err != nil {
		return err
	}
	background := e.scn.Background
	if err := e.rnd.InitStorageBuffer(bufBackground, background.Marshal()); err != nil {
		return err
	}
	if err := e.rnd.InitStorageBuffer(bufBvhNodes, marshalNodes(e.tree)); err != nil {
		return err
	}
	return e.rnd.InitStorageBuffer(bufBvhPrimIndices, common.SliceToBytes(e.tree.PrimIndicesF32()))
}

func (e *engine) initTextures() error {
	atlas := e.scn.Atlas
	if err := e.rnd.InitTextureArray(texAtlas, atlas.Width, atlas.Height, atlas.Layers, atlas.Pixels); err != nil {
		return err
	}

	env := e.scn.Environment
	if err := e.rnd.InitTexture2D(texBackground, env.Width, env.Height, env.Pixels); err != nil {
		return err
	}

	width, height := e.rnd.SurfaceSize()
	if err := e.rnd.InitStorageTexture(texColor, width, height); err != nil {
		return err
	}
	return e.rnd.InitStorageTexture(texHistory, width, height)
}

func (e *engine) initSamplers() error {
	if err := e.rnd.InitSampler(sampAtlas, common.SamplerStagingData{}); err != nil {
		return err
	}
	return e.rnd.InitSampler(sampScreen, common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
	})
}

// initBindingSets declares the eight binding sets, assigns the arena
// resources to their slots and derives each bind group.
func (e *engine) initBindingSets() error {
	compute := wgpu.ShaderStageCompute
	fragment := wgpu.ShaderStageFragment

	e.sets.camera = bind_group_provider.NewBindGroupProvider("Camera", []bind_group_provider.Entry{
		{Kind: bind_group_provider.EntryKindUniformBuffer, Visibility: compute},
	}, bind_group_provider.WithBuffer(0, e.rnd.Buffer(bufCamera)))

	e.sets.object = bind_group_provider.NewBindGroupProvider("Object", []bind_group_provider.Entry{
		{Kind: bind_group_provider.EntryKindStorageBuffer, Visibility: compute},
		{Kind: bind_group_provider.EntryKindStorageBuffer, Visibility: compute},
	},
		bind_group_provider.WithBuffer(0, e.rnd.Buffer(bufTriangles)),
		bind_group_provider.WithBuffer(1, e.rnd.Buffer(bufSpheres)),
	)

	e.sets.bvh = bind_group_provider.NewBindGroupProvider("BVH", []bind_group_provider.Entry{
		{Kind: bind_group_provider.EntryKindStorageBuffer, Visibility: compute},
		{Kind: bind_group_provider.EntryKindStorageBuffer, Visibility: compute},
	},
		bind_group_provider.WithBuffer(0, e.rnd.Buffer(bufBvhNodes)),
		bind_group_provider.WithBuffer(1, e.rnd.Buffer(bufBvhPrimIndices)),
	)

	e.sets.texturesAndMaterials = bind_group_provider.NewBindGroupProvider("Textures And Materials", []bind_group_provider.Entry{
		{Kind: bind_group_provider.EntryKindSampler, Visibility: compute},
		{Kind: bind_group_provider.EntryKindTexture2DArray, Visibility: compute},
		{Kind: bind_group_provider.EntryKindStorageBuffer, Visibility: compute},
		{Kind: bind_group_provider.EntryKindStorageBuffer, Visibility: compute},
		{Kind: bind_group_provider.EntryKindTexture2D, Visibility: compute},
	},
		bind_group_provider.WithSampler(0, e.rnd.Sampler(sampAtlas)),
		bind_group_provider.WithTextureView(1, e.rnd.TextureView(texAtlas)),
		bind_group_provider.WithBuffer(2, e.rnd.Buffer(bufMaterials)),
		bind_group_provider.WithBuffer(3, e.rnd.Buffer(bufBackground)),
		bind_group_provider.WithTextureView(4, e.rnd.TextureView(texBackground)),
	)

	e.sets.shaderConfig = bind_group_provider.NewBindGroupProvider("Shader Config", []bind_group_provider.Entry{
		{Kind: bind_group_provider.EntryKindUniformBuffer, Visibility: compute},
	}, bind_group_provider.WithBuffer(0, e.rnd.Buffer(bufShaderConfig)))

	e.sets.raytracing = bind_group_provider.NewBindGroupProvider("Raytracing", []bind_group_provider.Entry{
		{Kind: bind_group_provider.EntryKindStorageTexture, Visibility: compute, Format: wgpu.TextureFormatRGBA8Unorm},
	}, bind_group_provider.WithTextureView(0, e.rnd.TextureView(texColor)))

	e.sets.denoising = bind_group_provider.NewBindGroupProvider("Denoising", []bind_group_provider.Entry{
		{Kind: bind_group_provider.EntryKindStorageTexture, Visibility: compute, Format: wgpu.TextureFormatRGBA8Unorm},
		{Kind: bind_group_provider.EntryKindStorageTexture, Visibility: compute, Format: wgpu.TextureFormatRGBA8Unorm},
		{Kind: bind_group_provider.EntryKindUniformBuffer, Visibility: compute},
		{Kind: bind_group_provider.EntryKindUniformBuffer, Visibility: compute},
		{Kind: bind_group_provider.EntryKindUniformBuffer, Visibility: compute},
	},
		bind_group_provider.WithTextureView(0, e.rnd.TextureView(texColor)),
		bind_group_provider.WithTextureView(1, e.rnd.TextureView(texHistory)),
		bind_group_provider.WithBuffer(2, e.rnd.Buffer(bufCamera)),
		bind_group_provider.WithBuffer(3, e.rnd.Buffer(bufReferenceCamera)),
		bind_group_provider.WithBuffer(4, e.rnd.Buffer(bufPassIndex)),
	)

	e.sets.screen = bind_group_provider.NewBindGroupProvider("Screen", []bind_group_provider.Entry{
		{Kind: bind_group_provider.EntryKindSampler, Visibility: fragment},
		{Kind: bind_group_provider.EntryKindTexture2D, Visibility: fragment},
	},
		bind_group_provider.WithSampler(0, e.rnd.Sampler(sampScreen)),
		bind_group_provider.WithTextureView(1, e.rnd.TextureView(texColor)),
	)

	for _, p := range e.sets.all() {
		if err := e.rnd.InitBindGroup(p); err != nil {
			return fmt.Errorf("failed to initialize binding set %q: %w", p.Label(), err)
		}
	}
	return nil
}

// initPipelines builds and registers the ray-generation, denoising and screen
// pipelines. The binding set order of each pipeline is its bind group index
// order inside the shader.
func (e *engine) initPipelines() error {
	raygen := pipeline.NewPipeline(pipelineRaygen, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader(pipelineRaygen, shader.ShaderTypeCompute, shader.RaygenSource)),
		pipeline.WithBindGroups(
			e.sets.shaderConfig,
			e.sets.raytracing,
			e.sets.camera,
			e.sets.object,
			e.sets.texturesAndMaterials,
			e.sets.bvh,
		),
	)

	denoise := pipeline.NewPipeline(pipelineDenoise, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader(pipelineDenoise, shader.ShaderTypeCompute, shader.DenoisingSource)),
		pipeline.WithBindGroups(
			e.sets.denoising,
			e.sets.shaderConfig,
		),
	)

	screen := pipeline.NewPipeline(pipelineScreen, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(shader.NewShader(pipelineScreen, shader.ShaderTypeVertex, shader.ScreenSource)),
		pipeline.WithFragmentShader(shader.NewShader(pipelineScreen, shader.ShaderTypeFragment, shader.ScreenSource)),
		pipeline.WithBindGroups(e.sets.screen),
	)

	return e.rnd.RegisterPipelines(raygen, denoise, screen)
}

// rebuildFrameTextures recreates the surface-sized storage textures and
// rebuilds the bind groups of the three binding sets that reference them.
func (e *engine) rebuildFrameTextures(width, height uint32) error {
	e.rnd.ReleaseTexture(texColor)
	e.rnd.ReleaseTexture(texHistory)

	if err := e.rnd.InitStorageTexture(texColor, width, height); err != nil {
		return err
	}
	if err := e.rnd.InitStorageTexture(texHistory, width, height); err != nil {
		return err
	}

	e.sets.raytracing.SetTextureView(0, e.rnd.TextureView(texColor))
	e.sets.denoising.SetTextureView(0, e.rnd.TextureView(texColor))
	e.sets.denoising.SetTextureView(1, e.rnd.TextureView(texHistory))
	e.sets.screen.SetTextureView(1, e.rnd.TextureView(texColor))

	for _, p := range []bind_group_provider.BindGroupProvider{e.sets.raytracing, e.sets.denoising, e.sets.screen} {
		p.InvalidateBindGroup()
		if err := e.rnd.InitBindGroup(p); err != nil {
			return fmt.Errorf("failed to rebuild binding set %q: %w", p.Label(), err)
		}
	}
	return nil
}

// passIndexBytes packs a denoise pass index for upload.
func passIndexBytes(index uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, index)
	return buf
}

func marshalTriangles(uniforms []scene.TriangleUniform) []byte {
	out := make([]byte, 0, len(uniforms)*112)
	for i := range uniforms {
		out = append(out, uniforms[i].Marshal()...)
	}
	return out
}

// marshalSpheres packs the sphere list. An empty scene uploads one
// zero-radius sphere the intersection shader skips, since storage buffers
// cannot be empty.
func marshalSpheres(spheres []scene.Sphere) []byte {
	if len(spheres) == 0 {
		placeholder := scene.Sphere{}
		return placeholder.Marshal()
	}
	out := make([]byte, 0, len(spheres)*48)
	for i := range spheres {
		out = append(out, spheres[i].Marshal()...)
	}
	return out
}

// marshalMaterials packs the material list, falling back to the default
// material when the scene declares none.
func marshalMaterials(materials []scene.Material) []byte {
	if len(materials) == 0 {
		def := scene.DefaultMaterial()
		return def.Marshal()
	}
	out := make([]byte, 0, len(materials)*48)
	for i := range materials {
		out = append(out, materials[i].Marshal()...)
	}
	return out
}

func marshalNodes(tree *bvh.Tree) []byte {
	uniforms := tree.Uniforms()
	out := make([]byte, 0, len(uniforms)*64)
	for i := range uniforms {
		out = append(out, uniforms[i].Marshal()...)
	}
	return out
}
