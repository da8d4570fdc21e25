// Package loader imports triangle geometry from model files. Two formats are
// supported: Wavefront OBJ (flat triangle soup, no materials) and glTF/GLB
// (triangles plus PBR materials and their textures). The loader produces
// CPU-side data only; converting it into GPU records is the scene assembler's
// job.
package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/prism-go/common"
)

// Vertex is one corner of an imported triangle.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Face is a single imported triangle.
type Face [3]Vertex

// Primitive is a group of triangles sharing one material. Material is nil
// when the source file declares none for the group.
type Primitive struct {
	Faces    []Face
	Material *common.ImportedMaterial
}

// ImportedModel is the CPU-side result of a glTF/GLB import: one Primitive
// per glTF mesh primitive, in document order.
type ImportedModel struct {
	Name       string
	Primitives []Primitive
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]*ImportedModel
}

// Loader imports model files and caches glTF results by path.
type Loader interface {
	// LoadOBJ parses a Wavefront OBJ file into triangle soup. Faces are
	// v/vt/vn index triplets; polygons with more than three corners are fan
	// triangulated.
	//
	// Parameters:
	//   - path: the file path to the OBJ file
	//
	// Returns:
	//   - []Face: the parsed triangles
	//   - error: error if the file cannot be read or a record is malformed
	LoadOBJ(path string) ([]Face, error)

	// LoadGltf imports a glTF/GLB file. If the model is already cached (by
	// file path), the cached version is returned. The format is detected
	// from the extension and the GLB magic number.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *ImportedModel: the imported model
	//   - error: error if loading fails
	LoadGltf(path string) (*ImportedModel, error)

	// LoadGltfReader imports a glTF document from a reader stream and caches
	// it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the imported model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *ImportedModel: the imported model
	//   - error: error if loading fails
	LoadGltfReader(name string, r io.Reader, isGLB bool) (*ImportedModel, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *ImportedModel: the cached model or nil
	Get(name string) *ImportedModel
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance.
//
// Returns:
//   - Loader: a new Loader with an empty cache
func NewLoader() Loader {
	return &loader{
		mu:         sync.RWMutex{},
		modelCache: make(map[string]*ImportedModel),
	}
}

func (l *loader) LoadGltf(path string) (*ImportedModel, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".gltf" && ext != ".glb" {
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}

	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	m, err := extractModel(parser, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.modelCache[path] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadGltfReader(name string, r io.Reader, isGLB bool) (*ImportedModel, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader %q: %w", name, err)
	}

	m, err := extractModel(parser, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) Get(name string) *ImportedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}
