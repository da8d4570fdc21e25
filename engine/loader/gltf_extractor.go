package loader

import (
	"encoding/base64"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/prism-go/common"
)

// extractModel converts a parsed glTF document into an ImportedModel.
// Every mesh primitive in the document becomes one Primitive: triangle
// faces with positions, normals (generated when absent) and texture
// coordinates, plus the primitive's material resolved to CPU-side data.
//
// Parameters:
//   - parser: the parser holding the parsed document
//   - fallbackPath: path used to derive the model name when the document has no scene name
//
// Returns:
//   - *ImportedModel: the extracted model
//   - error: error if extraction fails
func extractModel(parser gltfParser, fallbackPath string) (*ImportedModel, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	model := &ImportedModel{
		Name: gltfExtractModelName(doc, fallbackPath),
	}

	// Materials are shared between primitives, resolve each index once.
	materialCache := make(map[int]*common.ImportedMaterial)

	for meshIdx, mesh := range doc.Meshes {
		for primIdx, prim := range mesh.Primitives {
			faces, err := extractPrimitive(parser, &prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIdx, primIdx, err)
			}
			if len(faces) == 0 {
				continue
			}

			var material *common.ImportedMaterial
			if prim.Material != nil {
				matIdx := *prim.Material
				if cached, ok := materialCache[matIdx]; ok {
					material = cached
				} else {
					material, err = extractMaterial(parser, matIdx)
					if err != nil {
						return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIdx, primIdx, err)
					}
					materialCache[matIdx] = material
				}
			}

			model.Primitives = append(model.Primitives, Primitive{
				Faces:    faces,
				Material: material,
			})
		}
	}

	if len(model.Primitives) == 0 {
		return nil, fmt.Errorf("document contains no triangle geometry")
	}

	return model, nil
}

// extractPrimitive reads one glTF primitive into triangle faces.
// POSITION is required; NORMAL and TEXCOORD_0 are optional. When the
// primitive has no index accessor, vertices are consumed sequentially.
func extractPrimitive(parser gltfParser, prim *gltfPrimitive) ([]Face, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, fmt.Errorf("unsupported primitive mode %d, only TRIANGLES is supported", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}

	positions, err := parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}

	var normals [][3]float32
	if normalAccessor, ok := prim.Attributes["NORMAL"]; ok {
		normals, err = parser.ReadVec3Accessor(normalAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
	} else {
		normals = generateNormals(positions, indices)
	}

	var texCoords [][2]float32
	if uvAccessor, ok := prim.Attributes["TEXCOORD_0"]; ok {
		texCoords, err = parser.ReadVec2Accessor(uvAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read texture coordinates: %w", err)
		}
	}

	vertexAt := func(idx uint32) (Vertex, error) {
		if int(idx) >= len(positions) {
			return Vertex{}, fmt.Errorf("index %d out of range for %d vertices", idx, len(positions))
		}
		v := Vertex{Position: positions[idx]}
		if int(idx) < len(normals) {
			v.Normal = normals[idx]
		}
		if int(idx) < len(texCoords) {
			v.TexCoord = texCoords[idx]
		}
		return v, nil
	}

	faces := make([]Face, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		var face Face
		for c := 0; c < 3; c++ {
			v, err := vertexAt(indices[i+c])
			if err != nil {
				return nil, err
			}
			face[c] = v
		}
		faces = append(faces, face)
	}

	return faces, nil
}

// generateNormals computes smooth per-vertex normals from triangle geometry.
// Face normals are accumulated per vertex (area-weighted via the un-normalized
// cross product) and normalized at the end.
func generateNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	normals := make([][3]float32, len(positions))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= len(positions) || int(i1) >= len(positions) || int(i2) >= len(positions) {
			continue
		}

		p0, p1, p2 := positions[i0], positions[i1], positions[i2]

		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}

		// Cross product e1 x e2; magnitude is twice the triangle area,
		// so accumulation is area-weighted.
		n := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}

		for _, vi := range []uint32{i0, i1, i2} {
			normals[vi][0] += n[0]
			normals[vi][1] += n[1]
			normals[vi][2] += n[2]
		}
	}

	for i := range normals {
		n := &normals[i]
		length := float32(math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])))
		if length > 1e-6 {
			n[0] /= length
			n[1] /= length
			n[2] /= length
		} else {
			// Degenerate or unreferenced vertex, point up.
			*n = [3]float32{0, 1, 0}
		}
	}

	return normals
}

// extractMaterial resolves a glTF material index into an ImportedMaterial.
func extractMaterial(parser gltfParser, matIndex int) (*common.ImportedMaterial, error) {
	doc := parser.Document()
	if matIndex < 0 || matIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", matIndex)
	}

	src := &doc.Materials[matIndex]

	mat := &common.ImportedMaterial{
		Name:      src.Name,
		BaseColor: [4]float32{1, 1, 1, 1},
		Roughness: 1,
	}

	if pbr := src.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mat.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.RoughnessFactor != nil {
			mat.Roughness = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			tex, err := loadTexture(parser, pbr.BaseColorTexture.Index, "baseColor")
			if err != nil {
				return nil, fmt.Errorf("material %q: %w", src.Name, err)
			}
			mat.BaseColorTexture = tex
		}
		if pbr.MetallicRoughnessTexture != nil {
			tex, err := loadTexture(parser, pbr.MetallicRoughnessTexture.Index, "metallicRoughness")
			if err != nil {
				return nil, fmt.Errorf("material %q: %w", src.Name, err)
			}
			mat.RoughnessTexture = tex
		}
	}

	if src.EmissiveFactor != nil {
		mat.Emissive = *src.EmissiveFactor
	}

	if src.NormalTexture != nil {
		tex, err := loadTexture(parser, src.NormalTexture.Index, "normal")
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", src.Name, err)
		}
		mat.NormalTexture = tex
	}

	if src.EmissiveTexture != nil {
		tex, err := loadTexture(parser, src.EmissiveTexture.Index, "emissive")
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", src.Name, err)
		}
		mat.EmissiveTexture = tex
	}

	return mat, nil
}

// loadTexture resolves a glTF texture index to an ImportedTexture.
// Handles three image storage forms: bufferView-embedded bytes (GLB),
// base64 data URIs, and external files relative to the document.
func loadTexture(parser gltfParser, texIndex int, name string) (*common.ImportedTexture, error) {
	doc := parser.Document()
	if texIndex < 0 || texIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", texIndex)
	}

	tex := &doc.Textures[texIndex]
	if tex.Source == nil {
		return nil, fmt.Errorf("texture %d has no image source", texIndex)
	}

	imgIndex := *tex.Source
	if imgIndex < 0 || imgIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imgIndex)
	}

	img := &doc.Images[imgIndex]
	result := &common.ImportedTexture{
		Name:     name,
		MimeType: img.MimeType,
	}

	switch {
	case img.BufferView != nil:
		data, err := parser.ReadBufferView(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image bufferView: %w", err)
		}
		result.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, mimeType, err := gltfDecodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		result.Data = data
		if result.MimeType == "" {
			result.MimeType = mimeType
		}
	case img.URI != "":
		result.Path = filepath.Join(parser.BaseDir(), img.URI)
	default:
		return nil, fmt.Errorf("image %d has neither URI nor bufferView", imgIndex)
	}

	return result, nil
}

// gltfDecodeDataURI decodes a base64 data URI and returns the data and MIME type.
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("malformed data URI")
	}

	header := uri[5:commaIdx]
	if !strings.Contains(header, "base64") {
		return nil, "", fmt.Errorf("unsupported data URI encoding: %s", header)
	}

	mimeType := header
	if idx := strings.Index(header, ";"); idx >= 0 {
		mimeType = header[:idx]
	}

	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}

	return data, mimeType, nil
}

// gltfExtractModelName derives a model name from the default scene name,
// falling back to the file name without extension.
func gltfExtractModelName(doc *gltfDocument, fallbackPath string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}

	base := filepath.Base(fallbackPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
