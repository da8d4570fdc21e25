package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/Carmen-Shannon/prism-go/engine/camera"
	"github.com/Carmen-Shannon/prism-go/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

func TestPaceDelayUncapped(t *testing.T) {
	if d := paceDelay(0, 5*time.Millisecond); d != 0 {
		t.Fatalf("expected no delay when uncapped, got %v", d)
	}
	if d := paceDelay(-30, 5*time.Millisecond); d != 0 {
		t.Fatalf("expected no delay for negative limit, got %v", d)
	}
}

func TestPaceDelayUnderBudget(t *testing.T) {
	// 60 fps budget is ~16.67ms; a 10ms frame leaves ~6.67ms to sleep.
	d := paceDelay(60, 10*time.Millisecond)
	want := time.Second/60 - 10*time.Millisecond
	if d != want {
		t.Fatalf("expected delay %v, got %v", want, d)
	}
}

func TestPaceDelayOverBudget(t *testing.T) {
	if d := paceDelay(60, 50*time.Millisecond); d != 0 {
		t.Fatalf("expected no delay for an overrun frame, got %v", d)
	}
	// Exactly on budget sleeps nothing.
	if d := paceDelay(100, 10*time.Millisecond); d != 0 {
		t.Fatalf("expected no delay for an exact-budget frame, got %v", d)
	}
}

func TestValidResize(t *testing.T) {
	cases := []struct {
		width, height int
		want          bool
	}{
		{800, 600, true},
		{1, 1, true},
		{0, 600, false},
		{800, 0, false},
		{0, 0, false},
		{-1, 600, false},
		{800, -1, false},
	}
	for _, c := range cases {
		if got := validResize(c.width, c.height); got != c.want {
			t.Fatalf("validResize(%d, %d) = %v, want %v", c.width, c.height, got, c.want)
		}
	}
}

// TestDenoiseReferenceLagsOneFrame walks the per-frame uniform schedule the
// orchestrator follows: the live uniform is rewritten and advanced before the
// passes, and the reference copy is overwritten only after present. The
// reference the denoiser reads must therefore always carry the PREVIOUS
// frame's pose and counter.
func TestDenoiseReferenceLagsOneFrame(t *testing.T) {
	cam := camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, 5}))

	live := camera.NewUniform()
	live.UpdateViewProj(cam)
	reference := live // seeded equal before the first frame

	for frame := 1; frame <= 5; frame++ {
		// Move the camera so the pose actually changes between frames.
		cam.SetPosition(mgl32.Vec3{float32(frame), 0, 5})

		// UPDATE_UNIFORMS
		live.UpdateViewProj(cam)
		live.AdvanceFrame()

		// During the denoise passes the reference must lag by one frame.
		if frame > 1 {
			wantCounter := live.Frame[0] - 1
			if reference.Frame[0] != wantCounter {
				t.Fatalf("frame %d: reference counter %v, want %v", frame, reference.Frame[0], wantCounter)
			}
			if reference.ViewPosition == live.ViewPosition {
				t.Fatalf("frame %d: reference pose must be the previous frame's, not the live one", frame)
			}
		}

		// PRESENT_PASS recorded, then the reference rewrite.
		reference = live
	}

	if reference.Frame[0] != live.Frame[0] {
		t.Fatalf("after present the reference must match the live uniform")
	}
}

// testBindingSets declares just the sets the per-frame write batches target.
func testBindingSets() bindingSets {
	compute := wgpu.ShaderStageCompute
	uniform := bind_group_provider.EntryKindUniformBuffer
	storageTex := bind_group_provider.EntryKindStorageTexture

	return bindingSets{
		camera: bind_group_provider.NewBindGroupProvider("Camera", []bind_group_provider.Entry{
			{Kind: uniform, Visibility: compute},
		}),
		shaderConfig: bind_group_provider.NewBindGroupProvider("Shader Config", []bind_group_provider.Entry{
			{Kind: uniform, Visibility: compute},
		}),
		denoising: bind_group_provider.NewBindGroupProvider("Denoising", []bind_group_provider.Entry{
			{Kind: storageTex, Visibility: compute, Format: wgpu.TextureFormatRGBA8Unorm},
			{Kind: storageTex, Visibility: compute, Format: wgpu.TextureFormatRGBA8Unorm},
			{Kind: uniform, Visibility: compute},
			{Kind: uniform, Visibility: compute},
			{Kind: uniform, Visibility: compute},
		}),
	}
}

func TestFrameUniformWriteBatch(t *testing.T) {
	sets := testBindingSets()
	cam := []byte{1, 2, 3, 4}
	cfg := []byte{9, 8}

	writes := sets.frameUniformWrites(cam, cfg)
	if len(writes) != 2 {
		t.Fatalf("expected 2 writes; got %d", len(writes))
	}
	if writes[0].Provider != sets.camera || writes[0].Binding != 0 {
		t.Fatalf("expected the camera write to target Camera(0); got %q(%d)", writes[0].Provider.Label(), writes[0].Binding)
	}
	if !bytes.Equal(writes[0].Data, cam) {
		t.Fatalf("unexpected camera payload: %v", writes[0].Data)
	}
	if writes[1].Provider != sets.shaderConfig || writes[1].Binding != 0 {
		t.Fatalf("expected the config write to target Shader Config(0); got %q(%d)", writes[1].Provider.Label(), writes[1].Binding)
	}
	if !bytes.Equal(writes[1].Data, cfg) {
		t.Fatalf("unexpected config payload: %v", writes[1].Data)
	}
}

func TestDenoiseWriteSlots(t *testing.T) {
	sets := testBindingSets()

	ref := sets.referenceCameraWrite([]byte{7})
	if len(ref) != 1 || ref[0].Provider != sets.denoising || ref[0].Binding != 3 {
		t.Fatalf("expected the reference camera write to target Denoising(3); got %+v", ref)
	}

	pass := sets.passIndexWrite(1)
	if len(pass) != 1 || pass[0].Provider != sets.denoising || pass[0].Binding != 4 {
		t.Fatalf("expected the pass-index write to target Denoising(4); got %+v", pass)
	}
	if !bytes.Equal(pass[0].Data, []byte{1, 0, 0, 0}) {
		t.Fatalf("expected little-endian pass index 1; got %v", pass[0].Data)
	}
}
