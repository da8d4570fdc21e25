package shader

// ShaderOption is a functional option used to configure a Shader during construction.
type ShaderOption func(*shader)

// WithEntryPoint overrides the default entry point name for this shader stage.
//
// Parameters:
//   - entryPoint: the entry point function name
//
// Returns:
//   - ShaderOption: a function that sets the entry point for this shader
func WithEntryPoint(entryPoint string) ShaderOption {
	return func(s *shader) {
		s.entryPoint = entryPoint
	}
}

// WithWorkgroupSize sets the workgroup dimensions declared by a compute
// shader's entry point. Must match the @workgroup_size attribute in the source.
//
// Parameters:
//   - size: the x, y, z workgroup dimensions
//
// Returns:
//   - ShaderOption: a function that sets the workgroup size for this shader
func WithWorkgroupSize(size [3]uint32) ShaderOption {
	return func(s *shader) {
		s.workgroupSize = size
	}
}
