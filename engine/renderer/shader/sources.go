package shader

import _ "embed"

// Embedded WGSL sources for the three pipelines. The binding declarations in
// each file must stay in sync with the provider entry lists built by the
// engine; the group and binding indices are the contract between the two.

//go:embed wgsl/raygen.wgsl
var RaygenSource string

//go:embed wgsl/denoising.wgsl
var DenoisingSource string

//go:embed wgsl/screen.wgsl
var ScreenSource string
