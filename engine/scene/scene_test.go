package scene

import (
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/prism-go/common"
	"github.com/Carmen-Shannon/prism-go/engine/bvh"
	"github.com/Carmen-Shannon/prism-go/engine/loader"
)

type fakeLoader struct {
	objFaces []loader.Face
	objErr   error
	model    *loader.ImportedModel
	gltfErr  error
}

func (f *fakeLoader) LoadOBJ(path string) ([]loader.Face, error) { return f.objFaces, f.objErr }
func (f *fakeLoader) LoadGltf(path string) (*loader.ImportedModel, error) {
	return f.model, f.gltfErr
}
func (f *fakeLoader) LoadGltfReader(name string, r io.Reader, isGLB bool) (*loader.ImportedModel, error) {
	return f.model, f.gltfErr
}
func (f *fakeLoader) Get(name string) *loader.ImportedModel { return f.model }

func testFace(x float32) loader.Face {
	return loader.Face{
		{Position: [3]float32{x, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{x + 1, 0, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 0}},
		{Position: [3]float32{x, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 1}},
	}
}

func TestAssemblePlaceholderScene(t *testing.T) {
	s, err := Assemble(&fakeLoader{}, &Input{Background: DefaultBackground()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.Triangles) != 0 {
		t.Fatalf("expected no real triangles; got %d", len(s.Triangles))
	}

	uniforms := s.TriangleUniforms()
	if len(uniforms) != 1 {
		t.Fatalf("expected exactly one placeholder record; got %d", len(uniforms))
	}
	if uniforms[0] != EmptyTriangleUniform() {
		t.Fatalf("expected the placeholder record; got %+v", uniforms[0])
	}

	prims := s.Primitives()
	if len(prims) != 1 {
		t.Fatalf("expected one placeholder primitive; got %d", len(prims))
	}

	tree, err := bvh.Build(prims, 1)
	if err != nil {
		t.Fatalf("failed to build tree over placeholder: %v", err)
	}
	if err := tree.Validate(1); err != nil {
		t.Fatalf("placeholder tree failed validation: %v", err)
	}

	if s.Atlas.Layers != 2 {
		t.Fatalf("expected 2 placeholder atlas layers; got %d", s.Atlas.Layers)
	}
	if s.Environment.Width != AtlasSize || s.Environment.Height != AtlasSize {
		t.Fatalf("expected %dx%d placeholder environment; got %dx%d", AtlasSize, AtlasSize, s.Environment.Width, s.Environment.Height)
	}
}

func TestAssembleObjTriangles(t *testing.T) {
	ld := &fakeLoader{objFaces: []loader.Face{testFace(0), testFace(2)}}
	in := &Input{
		Materials:     []Material{DefaultMaterial(), NewMaterial([3]float32{1, 0, 0}, [3]float32{1, 1, 1}, 0.2, 0, 0)},
		ObjPath:       "mesh.obj",
		ObjMaterialID: 1,
		Background:    DefaultBackground(),
	}

	s, err := Assemble(ld, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.Triangles) != 2 {
		t.Fatalf("expected 2 triangles; got %d", len(s.Triangles))
	}
	for i, tri := range s.Triangles {
		if tri.MaterialID != 1 {
			t.Fatalf("expected triangle %d to adopt material 1; got %d", i, tri.MaterialID)
		}
		if tri.TextureIDs != [3]float32{-1, -1, -1} {
			t.Fatalf("expected triangle %d texture ids -1; got %v", i, tri.TextureIDs)
		}
	}

	// OBJ never contributes materials of its own.
	if len(s.Materials) != 2 {
		t.Fatalf("expected the 2 config materials; got %d", len(s.Materials))
	}
}

func TestAssembleGltfRenumbering(t *testing.T) {
	model := &loader.ImportedModel{
		Name: "props",
		Primitives: []loader.Primitive{
			{
				Faces: []loader.Face{testFace(0)},
				Material: &common.ImportedMaterial{
					Name:             "painted",
					BaseColor:        [4]float32{0.5, 0.25, 0.125, 1},
					Roughness:        0.75,
					Emissive:         [3]float32{2, 0, 0},
					BaseColorTexture: &common.ImportedTexture{Name: "baseColor"},
					NormalTexture:    &common.ImportedTexture{Name: "normal"},
				},
			},
			{
				Faces: []loader.Face{testFace(4)},
			},
		},
	}

	in := &Input{
		Materials:   []Material{DefaultMaterial()},
		TextureSets: []TextureSet{{Diffuse: "wood.png"}},
		GltfPath:    "props.gltf",
		Background:  DefaultBackground(),
	}

	s, err := Assemble(&fakeLoader{model: model, objErr: nil}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Config material, then one per primitive group.
	if len(s.Materials) != 3 {
		t.Fatalf("expected 3 materials; got %d", len(s.Materials))
	}

	painted := s.Materials[1]
	if painted.Albedo != [4]float32{0.5, 0.25, 0.125, 0} {
		t.Fatalf("expected base color albedo; got %v", painted.Albedo)
	}
	if painted.Roughness != 0.75 {
		t.Fatalf("expected roughness 0.75; got %v", painted.Roughness)
	}
	if painted.Emission != 2 {
		t.Fatalf("expected emission from the red emissive channel; got %v", painted.Emission)
	}
	if s.Materials[2] != DefaultMaterial() {
		t.Fatalf("expected default material for the bare group; got %+v", s.Materials[2])
	}

	// The config texture claims atlas layer 0; glTF layers continue after it.
	first := s.Triangles[0]
	if first.MaterialID != 1 {
		t.Fatalf("expected first group to reference material 1; got %d", first.MaterialID)
	}
	if first.TextureIDs != [3]float32{1, -1, 2} {
		t.Fatalf("expected texture ids [1 -1 2]; got %v", first.TextureIDs)
	}

	second := s.Triangles[1]
	if second.MaterialID != 2 {
		t.Fatalf("expected second group to reference material 2; got %d", second.MaterialID)
	}
	if second.TextureIDs != [3]float32{-1, -1, -1} {
		t.Fatalf("expected second group texture ids -1; got %v", second.TextureIDs)
	}
}

func TestAssembleRejectsBadMaterialRefs(t *testing.T) {
	specs := []struct {
		descr string
		ld    *fakeLoader
		in    *Input
		want  string
	}{
		{
			descr: "obj material id out of range",
			ld:    &fakeLoader{objFaces: []loader.Face{testFace(0)}},
			in: &Input{
				Materials:     []Material{DefaultMaterial()},
				ObjPath:       "mesh.obj",
				ObjMaterialID: 3,
			},
			want: "triangle 0 references material 3",
		},
		{
			descr: "sphere material id out of range",
			ld:    &fakeLoader{},
			in: &Input{
				Materials: []Material{DefaultMaterial()},
				Spheres:   []Sphere{NewSphere([3]float32{0, 0, 0}, 1, 5, [3]int32{-1, -1, -1})},
			},
			want: "sphere 0 references material 5",
		},
	}

	for _, spec := range specs {
		_, err := Assemble(spec.ld, spec.in)
		if err == nil {
			t.Fatalf("%s: expected an error", spec.descr)
		}
		if !strings.Contains(err.Error(), spec.want) {
			t.Fatalf("%s: expected error to mention %q; got %v", spec.descr, spec.want, err)
		}
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	ld := &fakeLoader{objFaces: []loader.Face{testFace(0)}}
	in := &Input{
		Materials:     []Material{DefaultMaterial()},
		Spheres:       []Sphere{NewSphere([3]float32{0, 2, 0}, 1, 0, [3]int32{-1, -1, -1})},
		ObjPath:       "mesh.obj",
		ObjMaterialID: 0,
		Background:    DefaultBackground(),
	}

	first, err := Assemble(ld, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Assemble(ld, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The sphere jitter slot was populated at record construction, so two
	// assemblies of the same input match exactly.
	if !reflect.DeepEqual(first.Triangles, second.Triangles) {
		t.Fatal("expected identical triangle arrays")
	}
	if !reflect.DeepEqual(first.Materials, second.Materials) {
		t.Fatal("expected identical material arrays")
	}
	if !reflect.DeepEqual(first.Spheres, second.Spheres) {
		t.Fatal("expected identical sphere arrays")
	}
}
