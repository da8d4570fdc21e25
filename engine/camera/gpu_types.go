package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Uniform is the GPU-aligned camera record shared by the ray-generation and
// denoising shaders. 96 bytes.
//
// Frame[0] carries a monotonically incrementing frame counter the shaders
// use for sample decorrelation; Frame[1] carries the field of view in
// degrees. ViewProj holds the rotation matrix of the camera quaternion, not
// a full projection; the ray-generation shader derives rays from it and the
// fov directly.
type Uniform struct {
	Frame        [4]float32  // offset  0: frame counter, fov (degrees), 0, 0
	ViewPosition [4]float32  // offset 16: homogeneous world-space position
	ViewProj     [16]float32 // offset 32: orientation matrix (column-major)
}

// NewUniform returns a uniform with an identity orientation.
func NewUniform() Uniform {
	return Uniform{
		ViewProj: [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
	}
}

// UpdateViewProj refreshes the orientation matrix, position and fov from the
// camera. The frame counter is left untouched; advance it separately with
// AdvanceFrame.
//
// Parameters:
//   - cam: the camera to read
func (u *Uniform) UpdateViewProj(cam Camera) {
	pos := cam.Position()
	u.ViewPosition = [4]float32{pos[0], pos[1], pos[2], 1}
	u.Frame[1] = cam.Fov()

	mat := cam.Rotation().Mat4()
	copy(u.ViewProj[:], mat[:])
}

// AdvanceFrame increments the frame counter.
func (u *Uniform) AdvanceFrame() {
	u.Frame[0]++
}

// Size returns the size of the Uniform struct in bytes.
func (u *Uniform) Size() uint64 {
	return uint64(unsafe.Sizeof(*u))
}

// Marshal serializes the Uniform into a little-endian byte buffer suitable
// for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (u *Uniform) Marshal() []byte {
	buf := make([]byte, u.Size())
	for i, v := range u.Frame {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range u.ViewPosition {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	for i, v := range u.ViewProj {
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(v))
	}
	return buf
}
