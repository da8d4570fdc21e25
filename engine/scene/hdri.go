package scene

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mokiat/goexr/exr"
)

// EnvironmentImage is the decoded background image, RGBA8 row-major.
type EnvironmentImage struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// LoadEnvironment loads the environment image the escaped-ray shader samples.
// Dispatch is by extension: .hdr decodes via the Radiance codec with a
// linear*255 clamp, .exr via the OpenEXR decoder with a tanh tone map; any
// other extension is an error. An empty path yields the black placeholder.
//
// Parameters:
//   - path: environment image path, or "" for none
//
// Returns:
//   - *EnvironmentImage: the decoded image
//   - error: error if the file cannot be read or the format is unsupported
func LoadEnvironment(path string) (*EnvironmentImage, error) {
	if path == "" {
		return &EnvironmentImage{
			Width:  AtlasSize,
			Height: AtlasSize,
			Pixels: make([]byte, AtlasSize*AtlasSize*4),
		}, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hdr":
		return loadRadiance(path)
	case ".exr":
		return loadOpenEXR(path)
	default:
		return nil, fmt.Errorf("unsupported background image format %q, supported formats are .hdr and .exr", filepath.Ext(path))
	}
}

// loadRadiance decodes a Radiance .hdr file. Linear radiance values map
// straight to bytes (v*255, clamped), matching the shader's expectation of
// an un-tonemapped environment.
func loadRadiance(path string) (*EnvironmentImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open environment image: %w", err)
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	hdrImg, ok := decoded.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("decoded %s is not an HDR image", path)
	}

	bounds := hdrImg.Bounds()
	env := newEnvironmentImage(bounds)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := hdrImg.HDRAt(x, y).HDRRGBA()
			env.Pixels[i] = clampByte(r * 255)
			env.Pixels[i+1] = clampByte(g * 255)
			env.Pixels[i+2] = clampByte(b * 255)
			env.Pixels[i+3] = 255
			i += 4
		}
	}

	return env, nil
}

// loadOpenEXR decodes an OpenEXR file, compressing the unbounded channel
// range into bytes with a tanh tone map.
func loadOpenEXR(path string) (*EnvironmentImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open environment image: %w", err)
	}
	defer f.Close()

	decoded, err := exr.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	bounds := decoded.Bounds()
	env := newEnvironmentImage(bounds)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := decoded.At(x, y).RGBA()
			env.Pixels[i] = toneMap(float64(r) / 0xffff)
			env.Pixels[i+1] = toneMap(float64(g) / 0xffff)
			env.Pixels[i+2] = toneMap(float64(b) / 0xffff)
			env.Pixels[i+3] = clampByte(float64(a) / 0xffff * 255)
			i += 4
		}
	}

	return env, nil
}

func newEnvironmentImage(bounds image.Rectangle) *EnvironmentImage {
	w, h := bounds.Dx(), bounds.Dy()
	return &EnvironmentImage{
		Width:  uint32(w),
		Height: uint32(h),
		Pixels: make([]byte, w*h*4),
	}
}

// toneMap compresses any possible channel value into [0, 1] and converts it
// to a byte.
func toneMap(linear float64) byte {
	clamped := math.Tanh(linear-0.5)*0.5 + 0.5
	return byte(clamped * 255)
}

// clampByte saturates a float channel value into the byte range.
func clampByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
