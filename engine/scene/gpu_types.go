package scene

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/prism-go/engine/bvh"
)

// putF32 writes one little-endian float32 at byte offset off.
func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
}

// putVec4 writes four little-endian float32 values starting at byte offset off.
func putVec4(buf []byte, off int, v [4]float32) {
	putF32(buf, off, v[0])
	putF32(buf, off+4, v[1])
	putF32(buf, off+8, v[2])
	putF32(buf, off+12, v[3])
}

// Triangle is the CPU-side representation of one scene triangle: three vertex
// positions, a face normal, a material reference and up to three texture layer
// references (diffuse, roughness, normal; -1 = absent), plus per-vertex UVs.
type Triangle struct {
	Points     [3][3]float32
	Normal     [3]float32
	MaterialID int32
	TextureIDs [3]float32
	TexCoords  [3][2]float32
}

// Compile-time interface compliance check
var _ bvh.Primitive = Triangle{}

// Centroid returns the triangle's centroid, used only for BVH binning.
func (t Triangle) Centroid() mgl32.Vec3 {
	return mgl32.Vec3{
		(t.Points[0][0] + t.Points[1][0] + t.Points[2][0]) / 3.0,
		(t.Points[0][1] + t.Points[1][1] + t.Points[2][1]) / 3.0,
		(t.Points[0][2] + t.Points[1][2] + t.Points[2][2]) / 3.0,
	}
}

// AABB returns the triangle's axis-aligned bounding box.
func (t Triangle) AABB() bvh.Aabb {
	box := bvh.NewAabb()
	box.Grow(mgl32.Vec3(t.Points[0]))
	box.Grow(mgl32.Vec3(t.Points[1]))
	box.Grow(mgl32.Vec3(t.Points[2]))
	return box
}

// TriangleUniform is the GPU-aligned representation of a triangle.
// Seven vec4 slots, 112 bytes, std430 aligned.
type TriangleUniform struct {
	Vertex1           [4]float32 // offset   0: first vertex position (xyz + 0)
	Vertex2           [4]float32 // offset  16: second vertex position (xyz + 0)
	Vertex3           [4]float32 // offset  32: third vertex position (xyz + 0)
	Normal            [4]float32 // offset  48: face normal (xyz + 0)
	TexCoords1        [4]float32 // offset  64: uv0.x, uv0.y, uv1.x, uv1.y
	TexCoords2        [4]float32 // offset  80: uv2.x, uv2.y, 0, 0
	MaterialTextureID [4]float32 // offset  96: material id, diffuse, roughness, normal texture layers
}

// NewTriangleUniform packs a Triangle into its GPU-layout record.
//
// Parameters:
//   - t: the triangle to pack
//
// Returns:
//   - TriangleUniform: the packed record
func NewTriangleUniform(t Triangle) TriangleUniform {
	return TriangleUniform{
		Vertex1:    [4]float32{t.Points[0][0], t.Points[0][1], t.Points[0][2], 0},
		Vertex2:    [4]float32{t.Points[1][0], t.Points[1][1], t.Points[1][2], 0},
		Vertex3:    [4]float32{t.Points[2][0], t.Points[2][1], t.Points[2][2], 0},
		Normal:     [4]float32{t.Normal[0], t.Normal[1], t.Normal[2], 0},
		TexCoords1: [4]float32{t.TexCoords[0][0], t.TexCoords[0][1], t.TexCoords[1][0], t.TexCoords[1][1]},
		TexCoords2: [4]float32{t.TexCoords[2][0], t.TexCoords[2][1], 0, 0},
		MaterialTextureID: [4]float32{
			float32(t.MaterialID), t.TextureIDs[0], t.TextureIDs[1], t.TextureIDs[2],
		},
	}
}

// EmptyTriangleUniform returns the placeholder record uploaded when a scene has
// no geometry at all. The sentinel vertex values (1,1,1,1 / 2,2,2,2 / 3,3,3,3)
// flag it so the ray-generation shader excludes it from shading; the buffer
// itself must never be zero length.
func EmptyTriangleUniform() TriangleUniform {
	return TriangleUniform{
		Vertex1: [4]float32{1, 1, 1, 1},
		Vertex2: [4]float32{2, 2, 2, 2},
		Vertex3: [4]float32{3, 3, 3, 3},
	}
}

// Size returns the size of the TriangleUniform struct in bytes.
func (t *TriangleUniform) Size() int {
	return int(unsafe.Sizeof(*t))
}

// Marshal serializes the record into a 112-byte buffer for GPU upload.
func (t *TriangleUniform) Marshal() []byte {
	buf := make([]byte, 112)
	putVec4(buf, 0, t.Vertex1)
	putVec4(buf, 16, t.Vertex2)
	putVec4(buf, 32, t.Vertex3)
	putVec4(buf, 48, t.Normal)
	putVec4(buf, 64, t.TexCoords1)
	putVec4(buf, 80, t.TexCoords2)
	putVec4(buf, 96, t.MaterialTextureID)
	return buf
}

// Material is the GPU-aligned surface material record. 48 bytes.
// Roughness 0 is a mirror, 1 fully diffuse; emission > 0 makes the surface a
// light source; IOR is the index of refraction for dielectrics.
type Material struct {
	Albedo      [4]float32 // offset  0: base color (rgb + 0 pad)
	Attenuation [4]float32 // offset 16: per-bounce attenuation (rgb + 0 pad)
	Roughness   float32    // offset 32
	Emission    float32    // offset 36
	IOR         float32    // offset 40
	_pad        float32    // offset 44: pads the stride to 48 bytes
}

// NewMaterial builds a material record from rgb color/attenuation and scalars.
func NewMaterial(albedo, attenuation [3]float32, roughness, emission, ior float32) Material {
	return Material{
		Albedo:      [4]float32{albedo[0], albedo[1], albedo[2], 0},
		Attenuation: [4]float32{attenuation[0], attenuation[1], attenuation[2], 0},
		Roughness:   roughness,
		Emission:    emission,
		IOR:         ior,
	}
}

// DefaultMaterial returns the white half-rough material used when an imported
// mesh carries no material of its own.
func DefaultMaterial() Material {
	return Material{
		Albedo:      [4]float32{1, 1, 1, 1},
		Attenuation: [4]float32{1, 1, 1, 1},
		Roughness:   0.5,
	}
}

// Size returns the size of the Material struct in bytes.
func (m *Material) Size() int {
	return int(unsafe.Sizeof(*m))
}

// Marshal serializes the record into a 48-byte buffer for GPU upload.
func (m *Material) Marshal() []byte {
	buf := make([]byte, 48)
	putVec4(buf, 0, m.Albedo)
	putVec4(buf, 16, m.Attenuation)
	putF32(buf, 32, m.Roughness)
	putF32(buf, 36, m.Emission)
	putF32(buf, 40, m.IOR)
	return buf
}

// Sphere is the GPU-aligned sphere record. 48 bytes.
// The last slot of Center carries a per-sphere random value the shader uses
// for jittering; Radius occupies slot 0 of its vec4.
type Sphere struct {
	Center            [4]float32 // offset  0: xyz + random jitter
	Radius            [4]float32 // offset 16: radius, 0, 0, 0
	MaterialTextureID [4]float32 // offset 32: material id, diffuse, roughness, normal texture layers
}

// NewSphere builds a sphere record, seeding the jitter slot with a random
// value in [0, 1).
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius
//   - materialID: index into the assembled material array
//   - textureIDs: diffuse/roughness/normal texture layers (-1 = absent)
//
// Returns:
//   - Sphere: the packed record
func NewSphere(center [3]float32, radius float32, materialID int32, textureIDs [3]int32) Sphere {
	return Sphere{
		Center: [4]float32{center[0], center[1], center[2], rand.Float32()},
		Radius: [4]float32{radius, 0, 0, 0},
		MaterialTextureID: [4]float32{
			float32(materialID), float32(textureIDs[0]), float32(textureIDs[1]), float32(textureIDs[2]),
		},
	}
}

// Size returns the size of the Sphere struct in bytes.
func (s *Sphere) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the record into a 48-byte buffer for GPU upload.
func (s *Sphere) Marshal() []byte {
	buf := make([]byte, 48)
	putVec4(buf, 0, s.Center)
	putVec4(buf, 16, s.Radius)
	putVec4(buf, 32, s.MaterialTextureID)
	return buf
}

// Background is the GPU-aligned environment light record. 32 bytes.
// When a ray escapes the scene the shader samples the background texture (or
// flat material) scaled by Intensity.
type Background struct {
	MaterialTextureID [4]float32 // offset  0: material id, texture id, 0, 0
	Intensity         float32    // offset 16
	_pad              [3]float32 // offset 20: pads the stride to 32 bytes
}

// NewBackground builds a background record from material/texture references.
func NewBackground(materialID, textureID int32, intensity float32) Background {
	return Background{
		MaterialTextureID: [4]float32{float32(materialID), float32(textureID), 0, 0},
		Intensity:         intensity,
	}
}

// DefaultBackground returns the record used when no background is configured:
// both references absent (-1) and unit intensity.
func DefaultBackground() Background {
	return Background{
		MaterialTextureID: [4]float32{-1, -1, 0, 0},
		Intensity:         1,
	}
}

// Size returns the size of the Background struct in bytes.
func (b *Background) Size() int {
	return int(unsafe.Sizeof(*b))
}

// Marshal serializes the record into a 32-byte buffer for GPU upload.
func (b *Background) Marshal() []byte {
	buf := make([]byte, 32)
	putVec4(buf, 0, b.MaterialTextureID)
	putF32(buf, 16, b.Intensity)
	return buf
}

// ShaderConfig is the flat record of runtime-tunable shading parameters,
// rewritten to the GPU every frame. 116 bytes of packed i32/f32 scalars.
//
// FirstPass and SecondPass select which denoise algorithm runs in each of the
// two denoise dispatches; the remaining groups parameterize the individual
// filters (temporal, adaptive temporal, spatial box, bilateral, non-local
// means).
type ShaderConfig struct {
	// ray generation
	RayMaxBounces      int32
	RaySamplesPerPixel int32
	RayMaxDistance     float32

	// lens
	RayFocusDistance float32
	RayAperture      float32
	RayLensRadius    float32

	// debug visualization toggles (0/1)
	RayDebugRandColor      int32
	RayFocusViewerVisible  int32
	RayDebugBVHBoundingBox int32
	RayDebugBVHColor       int32

	// denoise pass algorithm selectors
	FirstPass  int32
	SecondPass int32

	// temporal (basic)
	TemporalLowThreshold    float32
	TemporalHighThreshold   float32
	TemporalLowBlendFactor  float32
	TemporalHighBlendFactor float32

	// temporal (adaptive)
	AdaptiveMotionThreshold    float32
	AdaptiveDirectionThreshold float32
	AdaptiveLowThreshold       float32
	AdaptiveHighThreshold      float32
	AdaptiveLowBlendFactor     float32
	AdaptiveHighBlendFactor    float32

	// spatial box filter
	SpatialKernelSize int32

	// spatial bilateral filter
	BilateralSpaceSigma float32
	BilateralColorSigma float32
	BilateralRadius     int32

	// non-local means filter
	NLMCompareRadius     int32
	NLMPatchRadius       int32
	NLMSignificantWeight float32
}

// DefaultShaderConfig returns the startup shading parameters.
func DefaultShaderConfig() ShaderConfig {
	return ShaderConfig{
		RayMaxBounces:      10,
		RaySamplesPerPixel: 1,
		RayMaxDistance:     10_000.0,
		RayFocusDistance:   2.5,
		RayAperture:        0.005,
		RayLensRadius:      0.0,

		FirstPass:  4,
		SecondPass: 2,

		TemporalLowThreshold:    0.05,
		TemporalHighThreshold:   0.2,
		TemporalLowBlendFactor:  0.03,
		TemporalHighBlendFactor: 0.2,

		AdaptiveMotionThreshold:    0.005,
		AdaptiveDirectionThreshold: 0.01,
		AdaptiveLowThreshold:       0.05,
		AdaptiveHighThreshold:      0.2,
		AdaptiveLowBlendFactor:     0.03,
		AdaptiveHighBlendFactor:    0.2,

		SpatialKernelSize: 3,

		BilateralSpaceSigma: 100.0,
		BilateralColorSigma: 20.0,
		BilateralRadius:     3,

		NLMCompareRadius:     13,
		NLMPatchRadius:       5,
		NLMSignificantWeight: 0.001,
	}
}

// ResetDenoise restores the denoise-related fields to their defaults, leaving
// the ray-generation fields untouched.
func (c *ShaderConfig) ResetDenoise() {
	d := DefaultShaderConfig()
	c.FirstPass = d.FirstPass
	c.SecondPass = d.SecondPass
	c.TemporalLowThreshold = d.TemporalLowThreshold
	c.TemporalHighThreshold = d.TemporalHighThreshold
	c.TemporalLowBlendFactor = d.TemporalLowBlendFactor
	c.TemporalHighBlendFactor = d.TemporalHighBlendFactor
	c.AdaptiveMotionThreshold = d.AdaptiveMotionThreshold
	c.AdaptiveDirectionThreshold = d.AdaptiveDirectionThreshold
	c.AdaptiveLowThreshold = d.AdaptiveLowThreshold
	c.AdaptiveHighThreshold = d.AdaptiveHighThreshold
	c.AdaptiveLowBlendFactor = d.AdaptiveLowBlendFactor
	c.AdaptiveHighBlendFactor = d.AdaptiveHighBlendFactor
	c.SpatialKernelSize = d.SpatialKernelSize
	c.BilateralSpaceSigma = d.BilateralSpaceSigma
	c.BilateralColorSigma = d.BilateralColorSigma
	c.BilateralRadius = d.BilateralRadius
	c.NLMCompareRadius = d.NLMCompareRadius
	c.NLMPatchRadius = d.NLMPatchRadius
	c.NLMSignificantWeight = d.NLMSignificantWeight
}

// ResetRaytrace restores the ray-generation fields to their defaults, leaving
// the denoise fields untouched.
func (c *ShaderConfig) ResetRaytrace() {
	d := DefaultShaderConfig()
	c.RayMaxBounces = d.RayMaxBounces
	c.RaySamplesPerPixel = d.RaySamplesPerPixel
	c.RayMaxDistance = d.RayMaxDistance
	c.RayFocusDistance = d.RayFocusDistance
	c.RayAperture = d.RayAperture
	c.RayLensRadius = d.RayLensRadius
	c.RayDebugRandColor = d.RayDebugRandColor
	c.RayFocusViewerVisible = d.RayFocusViewerVisible
	c.RayDebugBVHBoundingBox = d.RayDebugBVHBoundingBox
	c.RayDebugBVHColor = d.RayDebugBVHColor
}

// Size returns the size of the ShaderConfig struct in bytes.
func (c *ShaderConfig) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the record into a 116-byte buffer for GPU upload.
func (c *ShaderConfig) Marshal() []byte {
	buf := make([]byte, 116)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(c.RayMaxBounces))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(c.RaySamplesPerPixel))
	putF32(buf, 8, c.RayMaxDistance)
	putF32(buf, 12, c.RayFocusDistance)
	putF32(buf, 16, c.RayAperture)
	putF32(buf, 20, c.RayLensRadius)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(c.RayDebugRandColor))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(c.RayFocusViewerVisible))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(c.RayDebugBVHBoundingBox))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(c.RayDebugBVHColor))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(c.FirstPass))
	binary.LittleEndian.PutUint32(buf[44:48], uint32(c.SecondPass))
	putF32(buf, 48, c.TemporalLowThreshold)
	putF32(buf, 52, c.TemporalHighThreshold)
	putF32(buf, 56, c.TemporalLowBlendFactor)
	putF32(buf, 60, c.TemporalHighBlendFactor)
	putF32(buf, 64, c.AdaptiveMotionThreshold)
	putF32(buf, 68, c.AdaptiveDirectionThreshold)
	putF32(buf, 72, c.AdaptiveLowThreshold)
	putF32(buf, 76, c.AdaptiveHighThreshold)
	putF32(buf, 80, c.AdaptiveLowBlendFactor)
	putF32(buf, 84, c.AdaptiveHighBlendFactor)
	binary.LittleEndian.PutUint32(buf[88:92], uint32(c.SpatialKernelSize))
	putF32(buf, 92, c.BilateralSpaceSigma)
	putF32(buf, 96, c.BilateralColorSigma)
	binary.LittleEndian.PutUint32(buf[100:104], uint32(c.BilateralRadius))
	binary.LittleEndian.PutUint32(buf[104:108], uint32(c.NLMCompareRadius))
	binary.LittleEndian.PutUint32(buf[108:112], uint32(c.NLMPatchRadius))
	putF32(buf, 112, c.NLMSignificantWeight)
	return buf
}
