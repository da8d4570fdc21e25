package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// EntryKind identifies the GPU resource kind bound at one slot of a binding set.
type EntryKind int

const (
	// EntryKindStorageBuffer is a read-only storage buffer binding.
	EntryKindStorageBuffer EntryKind = iota

	// EntryKindUniformBuffer is a uniform buffer binding.
	EntryKindUniformBuffer

	// EntryKindTexture2D is a sampled 2D texture binding.
	EntryKindTexture2D

	// EntryKindTexture2DArray is a sampled 2D-array texture binding.
	EntryKindTexture2DArray

	// EntryKindStorageTexture is a read-write storage texture binding with an explicit format.
	EntryKindStorageTexture

	// EntryKindSampler is a filtering sampler binding.
	EntryKindSampler
)

// Entry declares one binding slot of a binding set: what kind of resource lives
// there and which shader stages can see it. A provider's ordered entry list is
// the single source of truth for both its BindGroupLayout and its BindGroup;
// the binding index of each entry is its position in the list.
type Entry struct {
	// Kind is the resource kind bound at this slot.
	Kind EntryKind

	// Visibility is the shader stage mask that can access this binding.
	Visibility wgpu.ShaderStage

	// Format is the texel format for EntryKindStorageTexture entries; ignored
	// for every other kind.
	Format wgpu.TextureFormat
}

// layoutEntry expands the declared entry into the wgpu layout entry for the
// given binding index.
func (e Entry) layoutEntry(binding int) wgpu.BindGroupLayoutEntry {
	out := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(binding),
		Visibility: e.Visibility,
	}

	switch e.Kind {
	case EntryKindStorageBuffer:
		out.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case EntryKindUniformBuffer:
		out.Buffer.Type = wgpu.BufferBindingTypeUniform
	case EntryKindTexture2D:
		out.Texture.SampleType = wgpu.TextureSampleTypeFloat
		out.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case EntryKindTexture2DArray:
		out.Texture.SampleType = wgpu.TextureSampleTypeFloat
		out.Texture.ViewDimension = wgpu.TextureViewDimension2DArray
	case EntryKindStorageTexture:
		out.StorageTexture.Access = wgpu.StorageTextureAccessReadWrite
		out.StorageTexture.Format = e.Format
		out.StorageTexture.ViewDimension = wgpu.TextureViewDimension2D
	case EntryKindSampler:
		out.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	}

	return out
}

// IsBuffer reports whether the entry binds a buffer resource.
func (e Entry) IsBuffer() bool {
	return e.Kind == EntryKindStorageBuffer || e.Kind == EntryKindUniformBuffer
}

// IsTexture reports whether the entry binds a texture view resource.
func (e Entry) IsTexture() bool {
	return e.Kind == EntryKindTexture2D || e.Kind == EntryKindTexture2DArray || e.Kind == EntryKindStorageTexture
}
