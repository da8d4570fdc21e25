package renderer

import "strings"

// The wgpu binding surfaces acquisition failures as opaque error strings, so
// classification matches on the status text wgpu-native reports.

// IsSurfaceLost reports whether the error indicates the surface was lost and
// must be reconfigured before the next frame.
//
// Parameters:
//   - err: the error returned from BeginFrame
//
// Returns:
//   - bool: true if the surface was lost
func IsSurfaceLost(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "lost")
}

// IsSurfaceOutdated reports whether the error indicates the surface no longer
// matches the window and must be reconfigured at the current size.
//
// Parameters:
//   - err: the error returned from BeginFrame
//
// Returns:
//   - bool: true if the surface is outdated
func IsSurfaceOutdated(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "outdated")
}

// IsSurfaceTimeout reports whether the error indicates the surface texture
// acquisition timed out; the frame can simply be skipped.
//
// Parameters:
//   - err: the error returned from BeginFrame
//
// Returns:
//   - bool: true if acquisition timed out
func IsSurfaceTimeout(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// IsOutOfMemory reports whether the error indicates the GPU is out of memory,
// which is not recoverable by reconfiguring the surface.
//
// Parameters:
//   - err: the error returned from BeginFrame
//
// Returns:
//   - bool: true if the GPU reported an out of memory condition
func IsOutOfMemory(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "out of memory") || strings.Contains(msg, "outofmemory")
}
