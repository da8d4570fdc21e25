package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/prism-go/common"
)

const epsilon = 1e-5

func vecNear(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < epsilon
}

func TestControllerForwardMotion(t *testing.T) {
	cam := NewCamera()
	ctrl := NewCameraController()
	cam.SetController(ctrl)

	if !ctrl.HandleKey(common.KeyW, true) {
		t.Fatal("expected W to be recognized as a movement key")
	}
	cam.Update(0.5)

	// Identity orientation faces -Z; speed 4 over half a second covers 2 units.
	if got := cam.Position(); !vecNear(got, mgl32.Vec3{0, 0, -2}) {
		t.Fatalf("unexpected position after forward motion: %v", got)
	}

	// Keys stay latched across updates until released.
	cam.Update(0.5)
	if got := cam.Position(); !vecNear(got, mgl32.Vec3{0, 0, -4}) {
		t.Fatalf("expected latched key to keep moving; got %v", got)
	}

	ctrl.HandleKey(common.KeyW, false)
	cam.Update(0.5)
	if got := cam.Position(); !vecNear(got, mgl32.Vec3{0, 0, -4}) {
		t.Fatalf("expected release to stop motion; got %v", got)
	}
}

func TestControllerStrafeAndVerticalMotion(t *testing.T) {
	cam := NewCamera()
	ctrl := NewCameraController(WithSpeed(2))
	cam.SetController(ctrl)

	ctrl.HandleKey(common.KeyD, true)
	ctrl.HandleKey(common.KeySpace, true)
	cam.Update(1)

	if got := cam.Position(); !vecNear(got, mgl32.Vec3{2, 2, 0}) {
		t.Fatalf("unexpected position after strafe + climb: %v", got)
	}

	ctrl.HandleKey(common.KeyD, false)
	ctrl.HandleKey(common.KeySpace, false)
	ctrl.HandleKey(common.KeyLeftShift, true)
	cam.Update(1)

	if got := cam.Position(); !vecNear(got, mgl32.Vec3{2, 0, 0}) {
		t.Fatalf("unexpected position after descent: %v", got)
	}
}

func TestControllerForwardFollowsYaw(t *testing.T) {
	// Yawed 90 degrees left, forward points down -X.
	cam := NewCamera(WithYawPitch(90, 0))
	ctrl := NewCameraController()
	cam.SetController(ctrl)

	ctrl.HandleKey(common.KeyUp, true)
	cam.Update(1)

	if got := cam.Position(); !vecNear(got, mgl32.Vec3{-4, 0, 0}) {
		t.Fatalf("expected yawed forward motion along -X; got %v", got)
	}
}

func TestControllerMouseRotation(t *testing.T) {
	cam := NewCamera()
	ctrl := NewCameraController(WithSensitivity(1))
	cam.SetController(ctrl)

	// Dragging right (positive dx) accumulates negative yaw.
	ctrl.HandleMouseMove(90, 0)
	cam.Update(1)

	forward := cam.Rotation().Rotate(mgl32.Vec3{0, 0, -1})
	if !vecNear(forward, mgl32.Vec3{-1, 0, 0}) {
		t.Fatalf("expected forward to yaw to -X after drag; got %v", forward)
	}

	// Rotation amounts drain after one update.
	before := cam.Rotation()
	cam.Update(1)
	after := cam.Rotation()
	if d := before.Sub(after); mgl32.Abs(d.W)+d.V.Len() > epsilon {
		t.Fatalf("expected rotation amounts to reset after update; rotation drifted by %v", d)
	}
}

func TestControllerIgnoresUnboundKeys(t *testing.T) {
	ctrl := NewCameraController()
	if ctrl.HandleKey(common.KeyEsc, true) {
		t.Fatal("expected escape to be unrecognized by the controller")
	}
}

func TestCameraResize(t *testing.T) {
	cam := NewCamera()
	cam.Resize(1920, 1080)
	want := float32(1920) / float32(1080)
	if got := cam.Aspect(); got != want {
		t.Fatalf("expected aspect %f; got %f", want, got)
	}
}

func TestUniformPacking(t *testing.T) {
	cam := NewCamera(
		WithPosition(mgl32.Vec3{1, 2, 3}),
		WithYawPitch(0, 0),
		WithFov(60),
	)

	uniform := NewUniform()
	uniform.UpdateViewProj(cam)
	uniform.AdvanceFrame()
	uniform.AdvanceFrame()

	if uniform.Size() != 96 {
		t.Fatalf("expected 96-byte camera uniform; got %d", uniform.Size())
	}
	if uniform.Frame[0] != 2 {
		t.Fatalf("expected frame counter 2; got %f", uniform.Frame[0])
	}
	if uniform.Frame[1] != 60 {
		t.Fatalf("expected fov 60 in frame slot 1; got %f", uniform.Frame[1])
	}
	if uniform.ViewPosition != [4]float32{1, 2, 3, 1} {
		t.Fatalf("expected homogeneous position; got %v", uniform.ViewPosition)
	}

	buf := uniform.Marshal()
	if len(buf) != 96 {
		t.Fatalf("expected 96-byte buffer; got %d", len(buf))
	}
	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}
	if readF32(0) != 2 || readF32(4) != 60 {
		t.Fatalf("unexpected frame encoding: %f %f", readF32(0), readF32(4))
	}
	if readF32(16) != 1 || readF32(28) != 1 {
		t.Fatalf("unexpected position encoding: %f %f", readF32(16), readF32(28))
	}
	// Identity orientation packs an identity matrix.
	if readF32(32) != 1 || readF32(52) != 1 || readF32(72) != 1 || readF32(92) != 1 {
		t.Fatal("expected identity orientation matrix diagonal")
	}
}
