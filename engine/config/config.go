// Package config loads and validates TOML scene descriptions. Decoding uses
// pointer-typed schema structs so missing fields are distinguishable from
// zero values; validation runs once at load and reports every missing or
// invalid field in a single error, one line per field.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Carmen-Shannon/prism-go/engine/scene"
)

const (
	defaultNear float32 = 0.1
	defaultFar  float32 = 100.0
)

// Camera is the resolved camera section. Rotation holds yaw and pitch in
// degrees, Fov is in degrees, NearFar holds the clip planes.
type Camera struct {
	Position [3]float32
	Rotation [2]float32
	Fov      float32
	NearFar  [2]float32
}

// TextureSet is one resolved [[textures]] entry; empty strings mean the slot
// is absent. At least one slot is always set.
type TextureSet struct {
	Diffuse   string
	Normal    string
	Roughness string
}

// Background couples the packed GPU record with the optional environment
// image path.
type Background struct {
	Record scene.Background
	Path   string
}

// ModelPaths holds the optional mesh sources. ObjMaterialID is the material
// every OBJ triangle adopts.
type ModelPaths struct {
	GltfPath      string
	ObjPath       string
	ObjMaterialID int32
}

// Config is a fully-resolved scene description with all defaults applied.
// Optional sections that were absent are nil or empty, never an error.
type Config struct {
	Camera     Camera
	Materials  []scene.Material
	Textures   []TextureSet
	Background *Background
	Spheres    []scene.Sphere
	Models     ModelPaths
	FrameLimit int
}

type cameraSchema struct {
	Position *[3]float32 `toml:"position"`
	Rotation *[2]float32 `toml:"rotation"`
	Fov      *float32    `toml:"fov"`
	NearFar  *[2]float32 `toml:"near_far"`
}

type materialSchema struct {
	Color       *[3]float32 `toml:"color"`
	Attenuation *[3]float32 `toml:"attenuation"`
	Roughness   *float32    `toml:"roughness"`
	Emission    *float32    `toml:"emission"`
	Ior         *float32    `toml:"ior"`
}

type textureSchema struct {
	Diffuse   *string `toml:"diffuse"`
	Normal    *string `toml:"normal"`
	Roughness *string `toml:"roughness"`
}

type backgroundSchema struct {
	MaterialID *int32   `toml:"material_id"`
	Intensity  *float32 `toml:"intensity"`
	Path       *string  `toml:"background_path"`
}

type sphereSchema struct {
	Position   *[3]float32 `toml:"position"`
	Radius     *float32    `toml:"radius"`
	MaterialID *int32      `toml:"material_id"`
	TextureID  *[3]int32   `toml:"texture_id"`
}

type modelPathsSchema struct {
	GltfPath      *string `toml:"gltf_path"`
	ObjPath       *string `toml:"obj_path"`
	ObjMaterialID *int32  `toml:"obj_material_id"`
}

type guiSchema struct {
	FrameLimit *int `toml:"frame_limit"`
}

type schema struct {
	Camera     *cameraSchema     `toml:"camera"`
	Materials  []materialSchema  `toml:"materials"`
	Textures   []textureSchema   `toml:"textures"`
	Background *backgroundSchema `toml:"background"`
	Spheres    []sphereSchema    `toml:"spheres"`
	ModelPaths *modelPathsSchema `toml:"3d_model_paths"`
	GUI        *guiSchema        `toml:"gui"`
}

// Load reads, parses and validates the scene config at path.
//
// Parameters:
//   - path: path to the TOML scene description
//
// Returns:
//   - *Config: the resolved config with defaults applied
//   - error: error if the file cannot be read, fails to parse, or fails
//     validation; validation errors list every offending field
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML scene description.
//
// Parameters:
//   - data: raw TOML bytes
//
// Returns:
//   - *Config: the resolved config with defaults applied
//   - error: parse or validation error
func Parse(data []byte) (*Config, error) {
	var raw schema
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scene config: %w", err)
	}

	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	cfg := &Config{}
	cfg.Camera = resolveCamera(raw.Camera, report)
	cfg.Materials = resolveMaterials(raw.Materials, report)
	cfg.Textures = resolveTextures(raw.Textures, report)
	cfg.Background = resolveBackground(raw.Background, report)
	cfg.Spheres = resolveSpheres(raw.Spheres, report)
	cfg.Models = resolveModelPaths(raw.ModelPaths)
	if raw.GUI != nil && raw.GUI.FrameLimit != nil {
		cfg.FrameLimit = *raw.GUI.FrameLimit
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid scene config:\n%s", strings.Join(problems, "\n"))
	}
	return cfg, nil
}

func resolveCamera(raw *cameraSchema, report func(string, ...any)) Camera {
	var cam Camera
	if raw == nil {
		report("camera section is required")
		return cam
	}
	if raw.Position == nil {
		report("camera.position is required")
	} else {
		cam.Position = *raw.Position
	}
	if raw.Rotation == nil {
		report("camera.rotation is required")
	} else {
		cam.Rotation = *raw.Rotation
	}
	if raw.Fov == nil {
		report("camera.fov is required")
	} else {
		cam.Fov = *raw.Fov
	}
	cam.NearFar = [2]float32{defaultNear, defaultFar}
	if raw.NearFar != nil {
		cam.NearFar = *raw.NearFar
	}
	return cam
}

func resolveMaterials(raw []materialSchema, report func(string, ...any)) []scene.Material {
	var out []scene.Material
	for i, m := range raw {
		valid := true
		if m.Color == nil {
			report("materials[%d].color is required", i)
			valid = false
		}
		if m.Attenuation == nil {
			report("materials[%d].attenuation is required", i)
			valid = false
		}
		if m.Roughness == nil {
			report("materials[%d].roughness is required", i)
			valid = false
		}
		if m.Emission == nil {
			report("materials[%d].emission is required", i)
			valid = false
		}
		if m.Ior == nil {
			report("materials[%d].ior is required", i)
			valid = false
		}
		if valid {
			out = append(out, scene.NewMaterial(*m.Color, *m.Attenuation, *m.Roughness, *m.Emission, *m.Ior))
		}
	}
	return out
}

func resolveTextures(raw []textureSchema, report func(string, ...any)) []TextureSet {
	var out []TextureSet
	for i, tex := range raw {
		set := TextureSet{}
		if tex.Diffuse != nil {
			set.Diffuse = *tex.Diffuse
		}
		if tex.Normal != nil {
			set.Normal = *tex.Normal
		}
		if tex.Roughness != nil {
			set.Roughness = *tex.Roughness
		}
		if set.Diffuse == "" && set.Normal == "" && set.Roughness == "" {
			report("textures[%d] must set at least one of diffuse, normal, roughness", i)
			continue
		}
		out = append(out, set)
	}
	return out
}

func resolveBackground(raw *backgroundSchema, report func(string, ...any)) *Background {
	if raw == nil {
		return nil
	}
	// An empty [background] table is treated as absent.
	if raw.MaterialID == nil && raw.Intensity == nil && raw.Path == nil {
		return nil
	}
	if raw.MaterialID == nil {
		report("background.material_id is required when the background section is set")
		return nil
	}
	if raw.Intensity == nil {
		report("background.intensity is required when the background section is set")
		return nil
	}
	bg := &Background{
		Record: scene.NewBackground(*raw.MaterialID, 0, *raw.Intensity),
	}
	if raw.Path != nil {
		bg.Path = *raw.Path
	}
	return bg
}

func resolveSpheres(raw []sphereSchema, report func(string, ...any)) []scene.Sphere {
	var out []scene.Sphere
	for i, s := range raw {
		// An empty [[spheres]] entry is skipped.
		if s.Position == nil && s.Radius == nil && s.MaterialID == nil && s.TextureID == nil {
			continue
		}
		valid := true
		if s.Position == nil {
			report("spheres[%d].position is required", i)
			valid = false
		}
		if s.Radius == nil {
			report("spheres[%d].radius is required", i)
			valid = false
		}
		if s.MaterialID == nil {
			report("spheres[%d].material_id is required", i)
			valid = false
		}
		if s.TextureID == nil {
			report("spheres[%d].texture_id is required", i)
			valid = false
		}
		if valid {
			out = append(out, scene.NewSphere(*s.Position, *s.Radius, *s.MaterialID, *s.TextureID))
		}
	}
	return out
}

func resolveModelPaths(raw *modelPathsSchema) ModelPaths {
	var models ModelPaths
	if raw == nil {
		return models
	}
	if raw.GltfPath != nil {
		models.GltfPath = *raw.GltfPath
	}
	if raw.ObjPath != nil {
		models.ObjPath = *raw.ObjPath
	}
	if raw.ObjMaterialID != nil {
		models.ObjMaterialID = *raw.ObjMaterialID
	}
	return models
}
