// Package shader holds the WGSL programs compiled into the engine and a thin
// wrapper describing each one to the renderer. Binding layouts are not derived
// from shader source; they are declared in code on the bind group providers,
// so a shader here is just source plus an entry point.
package shader

import "github.com/cogentcore/webgpu/wgpu"

// ShaderType identifies whether a shader is a compute, vertex, or fragment shader.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	shaderType    ShaderType
	source        string
	entryPoint    string
	workgroupSize [3]uint32
}

// Shader describes one WGSL program stage: its embedded source, the entry
// point to invoke, and for compute shaders the workgroup size the source
// declares, which the dispatcher uses to derive workgroup counts.
type Shader interface {
	// Key returns the unique key identifying this shader.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the WGSL source code for this shader.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// EntryPoint returns the entry point function name for this shader stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// ShaderType returns the type of the shader (compute, vertex, or fragment).
	//
	// Returns:
	//   - ShaderType: ShaderTypeCompute, ShaderTypeVertex, or ShaderTypeFragment
	ShaderType() ShaderType

	// WorkgroupSize returns the workgroup dimensions declared by a compute
	// shader's entry point. Render shaders report the zero value.
	//
	// Returns:
	//   - [3]uint32: the x, y, z workgroup dimensions
	WorkgroupSize() [3]uint32

	// Module returns a shader module descriptor wrapping this shader's source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the module descriptor for device creation
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader creates a new Shader from embedded WGSL source.
//
// Parameters:
//   - key: the unique key for this shader
//   - shaderType: the type of shader (compute, vertex, or fragment)
//   - source: the WGSL source code
//   - opts: a variadic list of ShaderOption functions to configure the shader
//
// Returns:
//   - Shader: a new Shader instance
func NewShader(key string, shaderType ShaderType, source string, opts ...ShaderOption) Shader {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		source:     source,
	}
	switch shaderType {
	case ShaderTypeCompute:
		s.entryPoint = "main"
		s.workgroupSize = [3]uint32{8, 8, 1}
	case ShaderTypeVertex:
		s.entryPoint = "vs_main"
	case ShaderTypeFragment:
		s.entryPoint = "fs_main"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workgroupSize
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
}
