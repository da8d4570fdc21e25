package camera

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/prism-go/common"
)

const (
	defaultSpeed       float32 = 4.0
	defaultSensitivity float32 = 1.6
)

// cameraControllerImpl is the single implementation of CameraController.
// Key amounts latch at 1 while held; rotation amounts accumulate from mouse
// deltas and drain each Update.
type cameraControllerImpl struct {
	mu *sync.Mutex

	amountForward  float32
	amountBackward float32
	amountLeft     float32
	amountRight    float32
	amountUp       float32
	amountDown     float32

	rotateHorizontal float32
	rotateVertical   float32

	speed       float32
	sensitivity float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a CameraController with the default movement
// speed and mouse sensitivity.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:          &sync.Mutex{},
		speed:       defaultSpeed,
		sensitivity: defaultSensitivity,
	}
	for _, option := range options {
		option(cc)
	}
	return cc
}

func (cc *cameraControllerImpl) HandleKey(key int, pressed bool) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	amount := float32(0)
	if pressed {
		amount = 1
	}

	switch key {
	case common.KeyW, common.KeyUp:
		cc.amountForward = amount
	case common.KeyS, common.KeyDown:
		cc.amountBackward = amount
	case common.KeyA, common.KeyLeft:
		cc.amountLeft = amount
	case common.KeyD, common.KeyRight:
		cc.amountRight = amount
	case common.KeySpace:
		cc.amountUp = amount
	case common.KeyLeftShift, common.KeyRightShift:
		cc.amountDown = amount
	default:
		return false
	}
	return true
}

func (cc *cameraControllerImpl) HandleMouseMove(dx, dy float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.rotateHorizontal += float32(-dx)
	cc.rotateVertical += float32(dy)
}

func (cc *cameraControllerImpl) Speed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.speed
}

func (cc *cameraControllerImpl) Sensitivity() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.sensitivity
}

func (cc *cameraControllerImpl) Update(cam Camera, dt float32) {
	cc.mu.Lock()
	forward := cc.amountForward - cc.amountBackward
	strafe := cc.amountRight - cc.amountLeft
	vertical := cc.amountUp - cc.amountDown
	horiz := cc.rotateHorizontal
	vert := cc.rotateVertical
	cc.rotateHorizontal = 0
	cc.rotateVertical = 0
	speed := cc.speed
	sensitivity := cc.sensitivity
	cc.mu.Unlock()

	rotation := cam.Rotation()
	position := cam.Position()

	position = position.Add(rotation.Rotate(mgl32.Vec3{0, 0, -1}).Mul(forward * speed * dt))
	position = position.Add(rotation.Rotate(mgl32.Vec3{1, 0, 0}).Mul(strafe * speed * dt))
	position[1] += vertical * speed * dt
	cam.SetPosition(position)

	// Yaw is applied in world space, pitch in the camera's local space.
	rotation = yawQuat(horiz * sensitivity * dt).Mul(rotation).Mul(pitchQuat(-vert * sensitivity * dt))
	cam.SetRotation(rotation)
}
