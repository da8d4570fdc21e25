// Package scene assembles the CPU-side scene description into the flat,
// GPU-ready arrays the ray tracer uploads: triangles, materials, spheres,
// the background record, the 2D-array texture atlas and the environment
// image. Geometry comes from the config (spheres), an optional OBJ file and
// an optional glTF file; material and texture indices from later sources are
// renumbered to continue after earlier ones.
package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/prism-go/common"
	"github.com/Carmen-Shannon/prism-go/engine/bvh"
	"github.com/Carmen-Shannon/prism-go/engine/loader"
)

// TextureSet names up to three image files contributing atlas layers, in the
// order they are appended: diffuse, then normal, then roughness.
type TextureSet struct {
	Diffuse   string
	Normal    string
	Roughness string
}

// Input is the resolved scene description handed to Assemble. The engine
// maps the parsed config onto it one field at a time.
type Input struct {
	// Materials are the config-declared materials, first in the assembled array.
	Materials []Material

	// TextureSets are the config-declared texture images, first in the atlas.
	TextureSets []TextureSet

	// Spheres are copied into the scene unchanged.
	Spheres []Sphere

	// Background is the environment light record.
	Background Background

	// EnvironmentPath is the optional .hdr/.exr environment image.
	EnvironmentPath string

	// ObjPath is the optional OBJ model path.
	ObjPath string

	// ObjMaterialID is the material every OBJ triangle references.
	ObjMaterialID int32

	// GltfPath is the optional glTF/GLB model path.
	GltfPath string
}

// Scene holds the assembled arrays ready for GPU upload.
type Scene struct {
	// Triangles is the merged triangle list. Empty when neither model path was
	// set; TriangleUniforms and Primitives then substitute the placeholder.
	Triangles []Triangle

	// Materials is the merged material array (config first, then one per glTF
	// primitive group).
	Materials []Material

	// Spheres come straight from the input.
	Spheres []Sphere

	// Background is the environment light record.
	Background Background

	// Atlas is the packed 2D-array texture (config images first, then glTF).
	Atlas *TextureAtlas

	// Environment is the decoded background image.
	Environment *EnvironmentImage
}

// Assemble builds the scene from the resolved input. Any loader, decode or
// material-reference error is returned as fatal; a scene either assembles
// completely or not at all.
//
// Parameters:
//   - ld: the model loader (results are cached per path)
//   - in: the resolved scene description
//
// Returns:
//   - *Scene: the assembled scene
//   - error: error if any source fails to load or validate
func Assemble(ld loader.Loader, in *Input) (*Scene, error) {
	s := &Scene{
		Materials:  append([]Material(nil), in.Materials...),
		Spheres:    append([]Sphere(nil), in.Spheres...),
		Background: in.Background,
	}

	images := collectConfigImages(in.TextureSets)

	if in.ObjPath != "" {
		faces, err := ld.LoadOBJ(in.ObjPath)
		if err != nil {
			return nil, err
		}
		s.Triangles = append(s.Triangles, trianglesFromFaces(faces, in.ObjMaterialID, [3]float32{-1, -1, -1})...)
	}

	if in.GltfPath != "" {
		model, err := ld.LoadGltf(in.GltfPath)
		if err != nil {
			return nil, err
		}
		images = s.appendModel(model, images)
	}

	if err := s.validateMaterialRefs(); err != nil {
		return nil, err
	}

	atlas, err := BuildAtlas(images)
	if err != nil {
		return nil, err
	}
	s.Atlas = atlas

	env, err := LoadEnvironment(in.EnvironmentPath)
	if err != nil {
		return nil, err
	}
	s.Environment = env

	return s, nil
}

// TriangleUniforms packs the triangle list for upload. A scene without
// geometry yields exactly one placeholder record so the storage buffer is
// never zero length.
func (s *Scene) TriangleUniforms() []TriangleUniform {
	if len(s.Triangles) == 0 {
		return []TriangleUniform{EmptyTriangleUniform()}
	}
	out := make([]TriangleUniform, len(s.Triangles))
	for i, t := range s.Triangles {
		out[i] = NewTriangleUniform(t)
	}
	return out
}

// Primitives returns the triangle list as BVH build input, substituting the
// placeholder triangle when the scene has no geometry so the tree always has
// at least one primitive.
func (s *Scene) Primitives() []bvh.Primitive {
	if len(s.Triangles) == 0 {
		return []bvh.Primitive{placeholderTriangle()}
	}
	out := make([]bvh.Primitive, len(s.Triangles))
	for i, t := range s.Triangles {
		out[i] = t
	}
	return out
}

// placeholderTriangle mirrors the EmptyTriangleUniform sentinel vertices so
// the BVH over an empty scene bounds the same geometry the shader skips.
func placeholderTriangle() Triangle {
	return Triangle{
		Points: [3][3]float32{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}},
	}
}

// collectConfigImages turns the config texture sets into atlas inputs,
// keeping declaration order and the diffuse/normal/roughness order within
// each set.
func collectConfigImages(sets []TextureSet) []*common.ImportedTexture {
	var images []*common.ImportedTexture
	for _, set := range sets {
		if set.Diffuse != "" {
			images = append(images, &common.ImportedTexture{Name: "diffuse", Path: set.Diffuse})
		}
		if set.Normal != "" {
			images = append(images, &common.ImportedTexture{Name: "normal", Path: set.Normal})
		}
		if set.Roughness != "" {
			images = append(images, &common.ImportedTexture{Name: "roughness", Path: set.Roughness})
		}
	}
	return images
}

// appendModel merges an imported glTF model: each primitive group contributes
// one material and up to four atlas images, with indices continuing after
// whatever earlier sources already claimed.
func (s *Scene) appendModel(model *loader.ImportedModel, images []*common.ImportedTexture) []*common.ImportedTexture {
	for _, prim := range model.Primitives {
		materialID := int32(len(s.Materials))
		textureIDs := [3]float32{-1, -1, -1}

		if mat := prim.Material; mat != nil {
			s.Materials = append(s.Materials, NewMaterial(
				[3]float32{mat.BaseColor[0], mat.BaseColor[1], mat.BaseColor[2]},
				[3]float32{0.6, 0.6, 0.6},
				mat.Roughness,
				mat.Emissive[0],
				0,
			))

			if mat.BaseColorTexture != nil {
				textureIDs[0] = float32(len(images))
				images = append(images, mat.BaseColorTexture)
			}
			if mat.RoughnessTexture != nil {
				textureIDs[1] = float32(len(images))
				images = append(images, mat.RoughnessTexture)
			}
			if mat.NormalTexture != nil {
				textureIDs[2] = float32(len(images))
				images = append(images, mat.NormalTexture)
			}
			if mat.EmissiveTexture != nil {
				// Counted in the atlas but the triangle record has no slot
				// for it; shaders find emission via the material scalar.
				images = append(images, mat.EmissiveTexture)
			}
		} else {
			s.Materials = append(s.Materials, DefaultMaterial())
		}

		s.Triangles = append(s.Triangles, trianglesFromFaces(prim.Faces, materialID, textureIDs)...)
	}
	return images
}

// trianglesFromFaces converts loader faces to scene triangles. The face
// normal is the first corner's normal.
func trianglesFromFaces(faces []loader.Face, materialID int32, textureIDs [3]float32) []Triangle {
	out := make([]Triangle, len(faces))
	for i, f := range faces {
		out[i] = Triangle{
			Points:     [3][3]float32{f[0].Position, f[1].Position, f[2].Position},
			Normal:     f[0].Normal,
			MaterialID: materialID,
			TextureIDs: textureIDs,
			TexCoords:  [3][2]float32{f[0].TexCoord, f[1].TexCoord, f[2].TexCoord},
		}
	}
	return out
}

// validateMaterialRefs checks that every triangle and sphere references an
// existing material.
func (s *Scene) validateMaterialRefs() error {
	for i, t := range s.Triangles {
		if t.MaterialID < 0 || int(t.MaterialID) >= len(s.Materials) {
			return fmt.Errorf("triangle %d references material %d, scene has %d materials", i, t.MaterialID, len(s.Materials))
		}
	}
	for i, sp := range s.Spheres {
		id := int(sp.MaterialTextureID[0])
		if id < 0 || id >= len(s.Materials) {
			return fmt.Errorf("sphere %d references material %d, scene has %d materials", i, id, len(s.Materials))
		}
	}
	return nil
}
