package engine

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/prism-go/common"
	"github.com/Carmen-Shannon/prism-go/engine/bvh"
	"github.com/Carmen-Shannon/prism-go/engine/camera"
	"github.com/Carmen-Shannon/prism-go/engine/config"
	"github.com/Carmen-Shannon/prism-go/engine/profiler"
	"github.com/Carmen-Shannon/prism-go/engine/renderer"
	"github.com/Carmen-Shannon/prism-go/engine/scene"
	"github.com/Carmen-Shannon/prism-go/engine/window"
	"github.com/Carmen-Shannon/prism-go/log"
	"github.com/go-gl/mathgl/mgl32"
)

// fpsWindowSize is the number of instantaneous FPS samples kept in the
// rolling average window.
const fpsWindowSize = 100

// FrameStats is the per-frame timing snapshot handed to the overlay hook.
type FrameStats struct {
	// FPS is the instantaneous frames per second of the last frame.
	FPS float64

	// AverageFPS is the mean over the rolling sample window.
	AverageFPS float64

	// FrameTime is the wall time the last frame took to record and submit.
	FrameTime time.Duration
}

// engine implements the Engine interface. It owns the full frame lifecycle:
// uniform updates, the ray-trace and denoise compute dispatches, the
// full-screen present pass, and frame pacing.
type engine struct {
	win window.Window
	rnd renderer.Renderer
	lg  log.Logger

	cam        camera.Camera
	camUniform camera.Uniform

	shaderConfig scene.ShaderConfig

	scn  *scene.Scene
	tree *bvh.Tree
	cfg  *config.Config

	sets bindingSets

	frameLimit int

	lastFrame  time.Time
	firstFrame bool

	fpsSamples []float64
	overlay    func(FrameStats)

	prof             *profiler.Profiler
	profilingEnabled bool

	// Left-mouse drag state for camera rotation.
	dragging           bool
	cursorX, cursorY   int32
	pendingPresentMode *renderer.PresentMode
	forceFallback      bool

	// Resize requests are latched from the window callback and applied at the
	// top of the next frame, before any pass touches the frame textures.
	pendingResize *[2]int
}

// Engine drives the ray tracer: it owns the window, the renderer, the camera
// and the per-frame pass schedule.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the underlying renderer.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Camera returns the scene camera.
	//
	// Returns:
	//   - camera.Camera: the camera instance
	Camera() camera.Camera

	// ShaderConfig returns a pointer to the live shading parameters. Fields
	// may be mutated between frames; the record is re-uploaded every frame.
	//
	// Returns:
	//   - *scene.ShaderConfig: the live shading parameters
	ShaderConfig() *scene.ShaderConfig

	// SetOverlay registers a hook called once per presented frame with the
	// frame timing snapshot. Pass nil to disable.
	//
	// Parameters:
	//   - hook: function receiving the per-frame stats
	SetOverlay(hook func(FrameStats))

	// FPS returns the mean frames per second over the rolling sample window.
	// Returns zero before the first frame has been presented.
	//
	// Returns:
	//   - float64: the average FPS
	FPS() float64

	// SetFrameLimit caps the frame rate. Pass 0 to uncap.
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetFrameLimit(fps int)

	// Run starts the frame loop. Blocks until the window closes.
	Run()

	// Release frees every GPU resource the engine created.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates the engine around a window and an assembled scene. The
// renderer, GPU resource arena, binding sets and pipelines are all created
// here; after NewEngine returns the first frame can be rendered.
//
// Parameters:
//   - options: functional options; WithWindow, WithConfig, WithScene and
//     WithTree are required
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: error if a required option is missing or GPU setup fails
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		lg:           log.New("engine"),
		shaderConfig: scene.DefaultShaderConfig(),
		camUniform:   camera.NewUniform(),
		firstFrame:   true,
		prof:         profiler.NewProfiler(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.win == nil {
		return nil, fmt.Errorf("engine requires a window")
	}
	if e.cfg == nil {
		return nil, fmt.Errorf("engine requires a config")
	}
	if e.scn == nil {
		return nil, fmt.Errorf("engine requires an assembled scene")
	}
	if e.tree == nil {
		return nil, fmt.Errorf("engine requires a built acceleration structure")
	}

	e.frameLimit = e.cfg.FrameLimit

	if e.cam == nil {
		cc := e.cfg.Camera
		e.cam = camera.NewCamera(
			camera.WithPosition(mgl32.Vec3{cc.Position[0], cc.Position[1], cc.Position[2]}),
			camera.WithYawPitch(cc.Rotation[0], cc.Rotation[1]),
			camera.WithFov(cc.Fov),
			camera.WithNearFar(cc.NearFar[0], cc.NearFar[1]),
			camera.WithAspect(float32(e.win.Width())/float32(e.win.Height())),
			camera.WithController(camera.NewCameraController()),
		)
	}

	rndOpts := []renderer.RendererBuilderOption{}
	if e.pendingPresentMode != nil {
		rndOpts = append(rndOpts, renderer.WithPresentMode(*e.pendingPresentMode))
	}
	if e.forceFallback {
		rndOpts = append(rndOpts, renderer.WithForceSoftwareRenderer(true))
	}
	e.rnd = renderer.NewRenderer(renderer.BackendTypeWGPU, e.win, rndOpts...)

	if err := e.initResources(); err != nil {
		e.rnd.Release()
		return nil, fmt.Errorf("failed to initialize GPU resources: %w", err)
	}
	if err := e.initPipelines(); err != nil {
		e.rnd.Release()
		return nil, fmt.Errorf("failed to initialize pipelines: %w", err)
	}

	e.wireInput()
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.win
}

func (e *engine) Renderer() renderer.Renderer {
	return e.rnd
}

func (e *engine) Camera() camera.Camera {
	return e.cam
}

func (e *engine) ShaderConfig() *scene.ShaderConfig {
	return &e.shaderConfig
}

func (e *engine) SetOverlay(hook func(FrameStats)) {
	e.overlay = hook
}

func (e *engine) FPS() float64 {
	if len(e.fpsSamples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range e.fpsSamples {
		sum += s
	}
	return sum / float64(len(e.fpsSamples))
}

func (e *engine) SetFrameLimit(fps int) {
	if fps < 0 {
		fps = 0
	}
	e.frameLimit = fps
}

func (e *engine) Run() {
	e.lastFrame = time.Now()
	e.win.SetUpdateCallback(e.frame)
	e.win.ProcessMessages()
}

func (e *engine) Release() {
	e.sets.release()
	e.rnd.Release()
}

// wireInput forwards window events to the camera controller and the resize
// latch.
func (e *engine) wireInput() {
	ctrl := e.cam.Controller()

	e.win.SetKeyDownCallback(func(keyCode uint32) {
		if ctrl != nil {
			ctrl.HandleKey(int(keyCode), true)
		}
	})
	e.win.SetKeyUpCallback(func(keyCode uint32) {
		if ctrl != nil {
			ctrl.HandleKey(int(keyCode), false)
		}
	})

	e.win.SetMouseDownCallback(func(x, y int32) {
		e.dragging = true
		e.cursorX, e.cursorY = x, y
	})
	e.win.SetMouseUpCallback(func(x, y int32) {
		e.dragging = false
	})
	e.win.SetMouseMoveCallback(func(x, y int32) {
		if !e.dragging {
			return
		}
		dx := float64(x - e.cursorX)
		dy := float64(y - e.cursorY)
		e.cursorX, e.cursorY = x, y
		if ctrl != nil {
			ctrl.HandleMouseMove(dx, dy)
		}
	})

	e.win.SetScrollCallback(func(delta float32) {
		e.cam.SetFov(common.Clamp(e.cam.Fov()-delta*2, 10, 120))
	})

	e.win.SetResizeCallback(func(width, height int) {
		if !validResize(width, height) {
			// Minimized windows report a zero-area framebuffer; keep the last
			// valid surface until a real size arrives.
			return
		}
		e.pendingResize = &[2]int{width, height}
	})
}

// frame runs one full frame: uniform updates, the ray-trace and denoise
// dispatches, the present pass, the denoise-reference camera rewrite, FPS
// accounting and frame pacing.
func (e *engine) frame() {
	start := time.Now()
	dt := float32(start.Sub(e.lastFrame).Seconds())
	e.lastFrame = start

	if e.pendingResize != nil {
		size := *e.pendingResize
		e.pendingResize = nil
		if err := e.applyResize(size[0], size[1]); err != nil {
			e.lg.Errorf("resize to %dx%d failed: %v", size[0], size[1], err)
			return
		}
	}

	e.updateUniforms(dt)

	if err := e.dispatchComputePasses(); err != nil {
		e.lg.Warningf("compute passes failed, skipping frame: %v", err)
		return
	}

	e.presentFrame()

	frameTime := time.Since(start)
	e.recordFrame(frameTime)

	if delay := paceDelay(e.frameLimit, frameTime); delay > 0 {
		time.Sleep(delay)
	}
}

// updateUniforms integrates camera input over dt and re-uploads the live
// camera uniform and the shading parameters in one queue batch.
func (e *engine) updateUniforms(dt float32) {
	e.cam.Update(dt)
	e.camUniform.UpdateViewProj(e.cam)
	e.camUniform.AdvanceFrame()

	e.rnd.WriteBuffers(e.sets.frameUniformWrites(e.camUniform.Marshal(), e.shaderConfig.Marshal()))
}

// dispatchComputePasses records and submits the ray-trace pass together with
// the first denoise pass, then the second denoise pass in its own command
// buffer. The pass-index uniform is rewritten before each denoise dispatch.
func (e *engine) dispatchComputePasses() error {
	width, height := e.rnd.SurfaceSize()
	groups := [3]uint32{common.DivCeil(width, 8), common.DivCeil(height, 8), 1}

	e.rnd.WriteBuffers(e.sets.passIndexWrite(0))
	if err := e.rnd.BeginComputeFrame(); err != nil {
		return err
	}
	if err := e.rnd.DispatchCompute(pipelineRaygen, groups); err != nil {
		return err
	}
	if err := e.rnd.DispatchCompute(pipelineDenoise, groups); err != nil {
		return err
	}
	if err := e.rnd.EndComputeFrame(); err != nil {
		return err
	}

	e.rnd.WriteBuffers(e.sets.passIndexWrite(1))
	if err := e.rnd.BeginComputeFrame(); err != nil {
		return err
	}
	if err := e.rnd.DispatchCompute(pipelineDenoise, groups); err != nil {
		return err
	}
	return e.rnd.EndComputeFrame()
}

// presentFrame draws the full-screen quad, presents, and then rewrites the
// denoise-reference camera uniform. The reference rewrite must come after the
// present pass is recorded so the temporal filter always compares the next
// frame against this frame's pose.
func (e *engine) presentFrame() {
	if err := e.rnd.BeginFrame(); err != nil {
		switch {
		case renderer.IsOutOfMemory(err):
			e.lg.Fatalf("surface acquisition out of memory: %v", err)
		case renderer.IsSurfaceLost(err), renderer.IsSurfaceOutdated(err):
			width, height := e.rnd.SurfaceSize()
			e.lg.Warningf("surface %v, reconfiguring at %dx%d", err, width, height)
			if rerr := e.applyResize(int(width), int(height)); rerr != nil {
				e.lg.Errorf("surface recovery failed: %v", rerr)
			}
		default:
			e.lg.Warningf("surface acquisition failed, skipping frame: %v", err)
		}
		return
	}

	if err := e.rnd.DrawCall(pipelineScreen, 6); err != nil {
		e.lg.Errorf("screen draw failed: %v", err)
	}
	if err := e.rnd.EndFrame(); err != nil {
		e.lg.Errorf("frame submission failed: %v", err)
		return
	}
	e.rnd.Present()

	e.rnd.WriteBuffers(e.sets.referenceCameraWrite(e.camUniform.Marshal()))
}

// applyResize reconfigures the surface and rebuilds everything sized to it:
// the projection aspect, the color and history storage textures, and the
// bind groups of the binding sets that reference them.
func (e *engine) applyResize(width, height int) error {
	e.rnd.Resize(width, height)
	e.cam.Resize(uint32(width), uint32(height))
	return e.rebuildFrameTextures(uint32(width), uint32(height))
}

// recordFrame pushes an instantaneous FPS sample into the rolling window and
// fires the overlay hook. The window is seeded with the first sample so the
// average is meaningful from frame one.
func (e *engine) recordFrame(frameTime time.Duration) {
	seconds := frameTime.Seconds()
	if seconds <= 0 {
		return
	}
	sample := 1.0 / seconds

	if e.firstFrame {
		e.firstFrame = false
		e.fpsSamples = make([]float64, fpsWindowSize)
		for i := range e.fpsSamples {
			e.fpsSamples[i] = sample
		}
	} else {
		e.fpsSamples = append(e.fpsSamples[1:], sample)
	}

	if e.overlay != nil {
		e.overlay(FrameStats{
			FPS:        sample,
			AverageFPS: e.FPS(),
			FrameTime:  frameTime,
		})
	}

	if e.profilingEnabled {
		e.prof.Tick()
	}
}

// validResize reports whether a framebuffer extent is worth reconfiguring
// for. Zero or negative dimensions come from minimized windows and must
// never reach the surface or the projection.
func validResize(width, height int) bool {
	return width > 0 && height > 0
}

// paceDelay returns how long the frame loop should sleep to hold the frame
// limit, given the time the frame actually took. Zero when the limit is
// uncapped or the frame already overran its budget.
//
// Parameters:
//   - frameLimit: maximum frames per second, 0 for uncapped
//   - frameTime: how long the last frame took
//
// Returns:
//   - time.Duration: the sleep duration, never negative
func paceDelay(frameLimit int, frameTime time.Duration) time.Duration {
	if frameLimit <= 0 {
		return 0
	}
	budget := time.Second / time.Duration(frameLimit)
	if delay := budget - frameTime; delay > 0 {
		return delay
	}
	return 0
}
