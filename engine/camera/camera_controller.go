package camera

// CameraController turns raw window input into free-fly camera motion.
// Movement keys latch unit amounts while held; mouse deltas accumulate into
// yaw and pitch rotation amounts that are consumed (and reset) by Update.
type CameraController interface {
	// HandleKey latches or releases the movement amount bound to a key.
	// W/Up move forward, S/Down backward, A/Left left, D/Right right,
	// Space up, Shift down.
	//
	// Parameters:
	//   - key: the GLFW key code
	//   - pressed: true on press, false on release
	//
	// Returns:
	//   - bool: true if the key was recognized as a movement key
	HandleKey(key int, pressed bool) bool

	// HandleMouseMove accumulates a cursor delta into the pending yaw and
	// pitch amounts. Horizontal movement rotates opposite the drag
	// direction.
	//
	// Parameters:
	//   - dx: horizontal cursor delta in pixels
	//   - dy: vertical cursor delta in pixels
	HandleMouseMove(dx, dy float64)

	// Speed returns the translation speed in world units per second.
	//
	// Returns:
	//   - float32: the movement speed
	Speed() float32

	// Sensitivity returns the rotation sensitivity multiplier.
	//
	// Returns:
	//   - float32: the mouse sensitivity
	Sensitivity() float32

	// Update integrates the pending input state over dt: translation along
	// the camera's local forward/right axes and the world Y axis, then yaw
	// and pitch rotation. Rotation amounts reset to zero afterwards; key
	// amounts stay latched until released.
	//
	// Parameters:
	//   - cam: the camera to move
	//   - dt: seconds elapsed since the previous update
	Update(cam Camera, dt float32)
}
