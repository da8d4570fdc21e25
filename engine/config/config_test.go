package config

import (
	"strings"
	"testing"
)

const minimalConfig = `
[camera]
position = [0.0, 1.0, 2.0]
rotation = [90.0, -10.0]
fov = 60.0
`

func TestParseMinimal(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Camera.Position != [3]float32{0, 1, 2} {
		t.Fatalf("unexpected camera position: %v", cfg.Camera.Position)
	}
	if cfg.Camera.Rotation != [2]float32{90, -10} {
		t.Fatalf("unexpected camera rotation: %v", cfg.Camera.Rotation)
	}
	if cfg.Camera.Fov != 60 {
		t.Fatalf("unexpected camera fov: %f", cfg.Camera.Fov)
	}
	if cfg.Camera.NearFar != [2]float32{0.1, 100} {
		t.Fatalf("expected default clip planes; got %v", cfg.Camera.NearFar)
	}
	if len(cfg.Materials) != 0 || len(cfg.Textures) != 0 || len(cfg.Spheres) != 0 {
		t.Fatal("expected optional sections to resolve empty")
	}
	if cfg.Background != nil {
		t.Fatal("expected absent background to resolve nil")
	}
	if cfg.Models.ObjPath != "" || cfg.Models.GltfPath != "" || cfg.Models.ObjMaterialID != 0 {
		t.Fatalf("unexpected model paths: %+v", cfg.Models)
	}
	if cfg.FrameLimit != 0 {
		t.Fatalf("expected uncapped frame limit; got %d", cfg.FrameLimit)
	}
}

func TestParseFullScene(t *testing.T) {
	cfg, err := Parse([]byte(`
[camera]
position = [0.0, 0.0, 5.0]
rotation = [0.0, 0.0]
fov = 45.0
near_far = [0.5, 250.0]

[[materials]]
color = [1.0, 0.0, 0.0]
attenuation = [0.8, 0.8, 0.8]
roughness = 0.2
emission = 0.0
ior = 1.5

[[materials]]
color = [0.0, 1.0, 0.0]
attenuation = [1.0, 1.0, 1.0]
roughness = 0.9
emission = 4.0
ior = 1.0

[[textures]]
diffuse = "res/wood_diffuse.png"
normal = "res/wood_normal.png"

[background]
material_id = 1
intensity = 0.7
background_path = "res/sky.hdr"

[[spheres]]
position = [0.0, 1.0, 0.0]
radius = 1.0
material_id = 0
texture_id = [0, -1, -1]

[3d_model_paths]
obj_path = "res/room.obj"
obj_material_id = 1

[gui]
frame_limit = 120
`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Camera.NearFar != [2]float32{0.5, 250} {
		t.Fatalf("unexpected clip planes: %v", cfg.Camera.NearFar)
	}
	if len(cfg.Materials) != 2 {
		t.Fatalf("expected 2 materials; got %d", len(cfg.Materials))
	}
	if cfg.Materials[0].Albedo != [4]float32{1, 0, 0, 0} {
		t.Fatalf("unexpected albedo packing: %v", cfg.Materials[0].Albedo)
	}
	if cfg.Materials[1].Emission != 4 {
		t.Fatalf("unexpected emission: %f", cfg.Materials[1].Emission)
	}
	if len(cfg.Textures) != 1 || cfg.Textures[0].Diffuse != "res/wood_diffuse.png" || cfg.Textures[0].Roughness != "" {
		t.Fatalf("unexpected texture set: %+v", cfg.Textures)
	}
	if cfg.Background == nil {
		t.Fatal("expected background to be set")
	}
	if cfg.Background.Path != "res/sky.hdr" {
		t.Fatalf("unexpected background path: %s", cfg.Background.Path)
	}
	if cfg.Background.Record.MaterialTextureID != [4]float32{1, 0, 0, 0} {
		t.Fatalf("unexpected background record ids: %v", cfg.Background.Record.MaterialTextureID)
	}
	if cfg.Background.Record.Intensity != 0.7 {
		t.Fatalf("unexpected background intensity: %f", cfg.Background.Record.Intensity)
	}
	if len(cfg.Spheres) != 1 {
		t.Fatalf("expected 1 sphere; got %d", len(cfg.Spheres))
	}
	sphere := cfg.Spheres[0]
	if sphere.Center[0] != 0 || sphere.Center[1] != 1 || sphere.Center[2] != 0 {
		t.Fatalf("unexpected sphere center: %v", sphere.Center)
	}
	if sphere.Center[3] < 0 || sphere.Center[3] >= 1 {
		t.Fatalf("expected jitter in [0, 1); got %f", sphere.Center[3])
	}
	if sphere.MaterialTextureID != [4]float32{0, 0, -1, -1} {
		t.Fatalf("unexpected sphere ids: %v", sphere.MaterialTextureID)
	}
	if cfg.Models.ObjPath != "res/room.obj" || cfg.Models.ObjMaterialID != 1 {
		t.Fatalf("unexpected model paths: %+v", cfg.Models)
	}
	if cfg.FrameLimit != 120 {
		t.Fatalf("unexpected frame limit: %d", cfg.FrameLimit)
	}
}

func TestParseCollectsEveryFieldError(t *testing.T) {
	_, err := Parse([]byte(`
[camera]
fov = 60.0

[[materials]]
color = [1.0, 1.0, 1.0]

[[textures]]

[background]
material_id = 0

[[spheres]]
radius = 2.0
`))
	if err == nil {
		t.Fatal("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{
		"camera.position is required",
		"camera.rotation is required",
		"materials[0].attenuation is required",
		"materials[0].roughness is required",
		"materials[0].emission is required",
		"materials[0].ior is required",
		"textures[0] must set at least one of diffuse, normal, roughness",
		"background.intensity is required",
		"spheres[0].position is required",
		"spheres[0].material_id is required",
		"spheres[0].texture_id is required",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected error to mention %q; got:\n%s", want, msg)
		}
	}
}

func TestParseEmptyBackgroundTable(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig + "\n[background]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Background != nil {
		t.Fatal("expected empty background table to resolve nil")
	}
}

func TestParseSkipsEmptySphereEntries(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig + `
[[spheres]]

[[spheres]]
position = [1.0, 2.0, 3.0]
radius = 0.5
material_id = 0
texture_id = [-1, -1, -1]
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Spheres) != 1 {
		t.Fatalf("expected empty sphere entry to be skipped; got %d spheres", len(cfg.Spheres))
	}
}

func TestParseRejectsMalformedToml(t *testing.T) {
	if _, err := Parse([]byte("[camera\nfov=")); err == nil {
		t.Fatal("expected parse error")
	}
}
