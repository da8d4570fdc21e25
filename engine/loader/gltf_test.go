package loader

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

// Base64 of 9 little-endian floats: (0,0,0), (1,0,0), (0,1,0).
const gltfTestPositions = "AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAA"

// Same positions followed by uint16 indices [0 1 2] and 2 bytes of padding.
const gltfTestPositionsIndexed = "AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAAAAABAAIAAAA="

// Base64 of a 1x1 red PNG.
const gltfTestPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAIAAACQd1PeAAAADElEQVR4nGP4z8AAAAMBAQDJ/pLvAAAAAElFTkSuQmCC"

const gltfTestTriangle = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"name": "TestScene"}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36}
  ],
  "buffers": [
    {"byteLength": 36, "uri": "data:application/octet-stream;base64,` + gltfTestPositions + `"}
  ]
}`

const gltfTestIndexedTriangle = `{
  "asset": {"version": "2.0"},
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "buffers": [
    {"byteLength": 44, "uri": "data:application/octet-stream;base64,` + gltfTestPositionsIndexed + `"}
  ],
  "materials": [
    {
      "name": "glow",
      "pbrMetallicRoughness": {
        "baseColorFactor": [0.5, 0.25, 0.125, 1.0],
        "roughnessFactor": 0.75,
        "baseColorTexture": {"index": 0}
      },
      "emissiveFactor": [2.0, 0.0, 0.0]
    }
  ],
  "textures": [{"source": 0}],
  "images": [
    {"mimeType": "image/png", "uri": "data:image/png;base64,` + gltfTestPNG + `"}
  ]
}`

func TestLoadGltfReaderTriangle(t *testing.T) {
	ld := NewLoader()
	model, err := ld.LoadGltfReader("tri.gltf", strings.NewReader(gltfTestTriangle), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if model.Name != "TestScene" {
		t.Fatalf("expected model name from scene; got %q", model.Name)
	}
	if len(model.Primitives) != 1 {
		t.Fatalf("expected 1 primitive; got %d", len(model.Primitives))
	}

	prim := model.Primitives[0]
	if prim.Material != nil {
		t.Fatalf("expected no material; got %+v", prim.Material)
	}
	if len(prim.Faces) != 1 {
		t.Fatalf("expected 1 face; got %d", len(prim.Faces))
	}

	face := prim.Faces[0]
	if face[1].Position != [3]float32{1, 0, 0} {
		t.Fatalf("expected corner 1 position [1 0 0]; got %v", face[1].Position)
	}

	// No NORMAL accessor, so normals are generated from the winding.
	for i, v := range face {
		if v.Normal != [3]float32{0, 0, 1} {
			t.Fatalf("expected corner %d generated normal [0 0 1]; got %v", i, v.Normal)
		}
	}
}

func TestLoadGltfReaderIndexedWithMaterial(t *testing.T) {
	ld := NewLoader()
	model, err := ld.LoadGltfReader("indexed.gltf", strings.NewReader(gltfTestIndexedTriangle), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if model.Name != "indexed" {
		t.Fatalf("expected model name from the file name; got %q", model.Name)
	}
	if len(model.Primitives) != 1 {
		t.Fatalf("expected 1 primitive; got %d", len(model.Primitives))
	}

	prim := model.Primitives[0]
	if len(prim.Faces) != 1 {
		t.Fatalf("expected 1 face; got %d", len(prim.Faces))
	}
	if prim.Faces[0][2].Position != [3]float32{0, 1, 0} {
		t.Fatalf("expected corner 2 position [0 1 0]; got %v", prim.Faces[0][2].Position)
	}

	mat := prim.Material
	if mat == nil {
		t.Fatal("expected primitive material")
	}
	if mat.Name != "glow" {
		t.Fatalf("expected material name glow; got %q", mat.Name)
	}
	if mat.BaseColor != [4]float32{0.5, 0.25, 0.125, 1.0} {
		t.Fatalf("expected base color factor; got %v", mat.BaseColor)
	}
	if mat.Roughness != 0.75 {
		t.Fatalf("expected roughness 0.75; got %v", mat.Roughness)
	}
	if mat.Emissive != [3]float32{2, 0, 0} {
		t.Fatalf("expected emissive factor; got %v", mat.Emissive)
	}

	tex := mat.BaseColorTexture
	if tex == nil {
		t.Fatal("expected base color texture")
	}
	if tex.MimeType != "image/png" {
		t.Fatalf("expected PNG mime type; got %q", tex.MimeType)
	}
	pixels, w, h, err := tex.Decode()
	if err != nil {
		t.Fatalf("failed to decode texture: %v", err)
	}
	if w != 1 || h != 1 {
		t.Fatalf("expected 1x1 texture; got %dx%d", w, h)
	}
	if pixels[0] != 255 || pixels[1] != 0 || pixels[2] != 0 {
		t.Fatalf("expected red pixel; got %v", pixels[:4])
	}
}

func TestLoadGltfReaderGLB(t *testing.T) {
	json := []byte(`{
  "asset": {"version": "2.0"},
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": 36}],
  "buffers": [{"byteLength": 36}]
}`)
	for len(json)%4 != 0 {
		json = append(json, ' ')
	}

	bin := make([]byte, 36)
	// (0,0,0), (1,0,0), (0,1,0)
	binary.LittleEndian.PutUint32(bin[12:], 0x3F800000)
	binary.LittleEndian.PutUint32(bin[28:], 0x3F800000)

	var buf bytes.Buffer
	total := uint32(12 + 8 + len(json) + 8 + len(bin))
	binary.Write(&buf, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: total})
	binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(json)), ChunkType: gltfGLBChunkJSON})
	buf.Write(json)
	binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	buf.Write(bin)

	ld := NewLoader()
	model, err := ld.LoadGltfReader("packed.glb", &buf, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.Primitives) != 1 || len(model.Primitives[0].Faces) != 1 {
		t.Fatalf("expected a single triangle; got %+v", model)
	}
	if model.Primitives[0].Faces[0][1].Position != [3]float32{1, 0, 0} {
		t.Fatalf("expected corner 1 position [1 0 0]; got %v", model.Primitives[0].Faces[0][1].Position)
	}
}

func TestLoadGltfReaderErrors(t *testing.T) {
	specs := []struct {
		descr string
		doc   string
	}{
		{
			descr: "wrong version",
			doc:   `{"asset": {"version": "1.0"}}`,
		},
		{
			descr: "no geometry",
			doc:   `{"asset": {"version": "2.0"}}`,
		},
		{
			descr: "missing POSITION",
			doc:   `{"asset": {"version": "2.0"}, "meshes": [{"primitives": [{"attributes": {}}]}]}`,
		},
		{
			descr: "non-triangle mode",
			doc: `{"asset": {"version": "2.0"},
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "mode": 1}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 36}],
  "buffers": [{"byteLength": 36, "uri": "data:application/octet-stream;base64,` + gltfTestPositions + `"}]}`,
		},
	}

	for _, spec := range specs {
		ld := NewLoader()
		if _, err := ld.LoadGltfReader("bad.gltf", strings.NewReader(spec.doc), false); err == nil {
			t.Fatalf("%s: expected an error", spec.descr)
		}
	}
}

func TestLoaderCachesModels(t *testing.T) {
	ld := NewLoader()
	model, err := ld.LoadGltfReader("cached.gltf", strings.NewReader(gltfTestTriangle), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ld.Get("cached.gltf"); got != model {
		t.Fatalf("expected cached model pointer; got %p want %p", got, model)
	}
	if got := ld.Get("not-loaded.gltf"); got != nil {
		t.Fatalf("expected nil for unknown model; got %p", got)
	}
}

func TestGenerateNormalsDegenerate(t *testing.T) {
	positions := [][3]float32{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	normals := generateNormals(positions, []uint32{0, 1, 2})
	for i, n := range normals {
		if n != [3]float32{0, 1, 0} {
			t.Fatalf("expected degenerate normal %d to fall back to [0 1 0]; got %v", i, n)
		}
	}
}
