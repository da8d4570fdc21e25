package engine

import (
	"github.com/Carmen-Shannon/prism-go/engine/bvh"
	"github.com/Carmen-Shannon/prism-go/engine/camera"
	"github.com/Carmen-Shannon/prism-go/engine/config"
	"github.com/Carmen-Shannon/prism-go/engine/renderer"
	"github.com/Carmen-Shannon/prism-go/engine/scene"
	"github.com/Carmen-Shannon/prism-go/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithWindow sets the window the engine renders into. Required.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.win = w
	}
}

// WithConfig sets the resolved scene config. Required; the engine reads the
// camera start pose and the frame limit from it.
//
// Parameters:
//   - cfg: the resolved config
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithScene sets the assembled scene whose arrays are uploaded to the GPU.
// Required.
//
// Parameters:
//   - s: the assembled scene
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s *scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scn = s
	}
}

// WithTree sets the acceleration structure built over the scene's triangles.
// Required.
//
// Parameters:
//   - t: the built tree
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTree(t *bvh.Tree) EngineBuilderOption {
	return func(e *engine) {
		e.tree = t
	}
}

// WithCamera replaces the camera the engine would otherwise build from the
// config's camera section.
//
// Parameters:
//   - cam: a pre-configured camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(cam camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.cam = cam
	}
}

// WithShaderConfig replaces the default shading parameters.
//
// Parameters:
//   - cfg: the shading parameters to start with
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShaderConfig(cfg scene.ShaderConfig) EngineBuilderOption {
	return func(e *engine) {
		e.shaderConfig = cfg
	}
}

// WithPresentMode sets the surface present mode for the renderer the engine
// creates.
//
// Parameters:
//   - mode: the present mode (VSync or Uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPresentMode(mode renderer.PresentMode) EngineBuilderOption {
	return func(e *engine) {
		e.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces the CPU fallback adapter; see
// renderer.WithForceSoftwareRenderer.
//
// Parameters:
//   - force: true to force the software adapter
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithForceSoftwareRenderer(force bool) EngineBuilderOption {
	return func(e *engine) {
		e.forceFallback = force
	}
}

// WithProfiling enables the periodic runtime profiler, which logs FPS, heap
// and GC statistics once per second.
//
// Parameters:
//   - enabled: if true, profiling output is logged
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithOverlay registers the per-frame overlay hook at construction time.
//
// Parameters:
//   - hook: function receiving the per-frame stats
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOverlay(hook func(FrameStats)) EngineBuilderOption {
	return func(e *engine) {
		e.overlay = hook
	}
}
