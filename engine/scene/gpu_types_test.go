package scene

import (
	"encoding/binary"
	"math"
	"testing"
)

// TestTriangleUniformRoundTrip packs a triangle and reads every field back
// out of the marshalled record at its declared offset: vertices, normal and
// UVs must survive the vec4 layout bit-exact, with the padding lanes zero.
func TestTriangleUniformRoundTrip(t *testing.T) {
	tri := Triangle{
		Points:     [3][3]float32{{1, 2, 3}, {-4, 5.5, 6}, {7, -8, 9.25}},
		Normal:     [3]float32{0, 1, 0},
		MaterialID: 3,
		TextureIDs: [3]float32{0, -1, 2},
		TexCoords:  [3][2]float32{{0.25, 0.5}, {0.75, 1}, {0.125, 0.375}},
	}
	uniform := NewTriangleUniform(tri)

	if uniform.Size() != 112 {
		t.Fatalf("expected 112-byte triangle record; got %d", uniform.Size())
	}
	buf := uniform.Marshal()
	if len(buf) != 112 {
		t.Fatalf("expected 112 marshalled bytes; got %d", len(buf))
	}

	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}

	// Vertices occupy the first three vec4 slots, w lane zeroed.
	for i, want := range tri.Points {
		base := i * 16
		for c := 0; c < 3; c++ {
			if got := readF32(base + c*4); got != want[c] {
				t.Fatalf("vertex %d component %d: expected %f; got %f", i, c, want[c], got)
			}
		}
		if readF32(base+12) != 0 {
			t.Fatalf("vertex %d: expected zero w lane", i)
		}
	}

	// Face normal at offset 48.
	if readF32(48) != 0 || readF32(52) != 1 || readF32(56) != 0 || readF32(60) != 0 {
		t.Fatalf("unexpected normal encoding: %f %f %f %f", readF32(48), readF32(52), readF32(56), readF32(60))
	}

	// uv0 and uv1 share the slot at 64; uv2 sits at 80 with zero padding.
	uvWant := []float32{0.25, 0.5, 0.75, 1}
	for c, want := range uvWant {
		if got := readF32(64 + c*4); got != want {
			t.Fatalf("uv slot component %d: expected %f; got %f", c, want, got)
		}
	}
	if readF32(80) != 0.125 || readF32(84) != 0.375 {
		t.Fatalf("unexpected uv2 encoding: %f %f", readF32(80), readF32(84))
	}
	if readF32(88) != 0 || readF32(92) != 0 {
		t.Fatal("expected zero padding after uv2")
	}

	// Material id and texture layers at 96, all carried as float32.
	if got := readF32(96); got != float32(tri.MaterialID) {
		t.Fatalf("expected material id %d; got %f", tri.MaterialID, got)
	}
	for c, want := range tri.TextureIDs {
		if got := readF32(100 + c*4); got != want {
			t.Fatalf("texture layer %d: expected %f; got %f", c, want, got)
		}
	}
}
