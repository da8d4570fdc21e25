package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Carmen-Shannon/prism-go/common"
)

func encodeSolidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestBuildAtlasPlaceholder(t *testing.T) {
	atlas, err := BuildAtlas(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atlas.Layers != 2 {
		t.Fatalf("expected 2 placeholder layers; got %d", atlas.Layers)
	}
	if len(atlas.Pixels) != 2*AtlasSize*AtlasSize*4 {
		t.Fatalf("expected %d placeholder bytes; got %d", 2*AtlasSize*AtlasSize*4, len(atlas.Pixels))
	}
	for _, b := range atlas.Pixels[:64] {
		if b != 0 {
			t.Fatal("expected black placeholder layers")
		}
	}
}

func TestBuildAtlasPadsSingleImage(t *testing.T) {
	images := []*common.ImportedTexture{
		{Name: "lone", Data: encodeSolidPNG(t, color.RGBA{0, 255, 0, 255}), MimeType: "image/png"},
	}

	atlas, err := BuildAtlas(images)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One image still uploads two layers so the 2D-array view holds.
	if atlas.Layers != 2 {
		t.Fatalf("expected a padded 2-layer atlas; got %d", atlas.Layers)
	}

	layerBytes := atlas.LayerBytes()
	if len(atlas.Pixels) != 2*layerBytes {
		t.Fatalf("expected %d atlas bytes; got %d", 2*layerBytes, len(atlas.Pixels))
	}
	if got := [4]byte(atlas.Pixels[0:4]); got != [4]byte{0, 255, 0, 255} {
		t.Fatalf("expected the image in layer 0; got %v", got)
	}
	for _, b := range atlas.Pixels[layerBytes : layerBytes+64] {
		if b != 0 {
			t.Fatal("expected a black padding layer after the image")
		}
	}
}

func TestBuildAtlasPreservesLayerOrder(t *testing.T) {
	images := []*common.ImportedTexture{
		{Name: "red", Data: encodeSolidPNG(t, color.RGBA{255, 0, 0, 255}), MimeType: "image/png"},
		{Name: "blue", Data: encodeSolidPNG(t, color.RGBA{0, 0, 255, 255}), MimeType: "image/png"},
	}

	atlas, err := BuildAtlas(images)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atlas.Layers != 2 {
		t.Fatalf("expected 2 layers; got %d", atlas.Layers)
	}

	layerBytes := atlas.LayerBytes()
	// A 1x1 source fills the whole rescaled layer with its single pixel.
	checks := []struct {
		descr  string
		offset int
		want   [4]byte
	}{
		{"layer 0 first pixel", 0, [4]byte{255, 0, 0, 255}},
		{"layer 0 last pixel", layerBytes - 4, [4]byte{255, 0, 0, 255}},
		{"layer 1 first pixel", layerBytes, [4]byte{0, 0, 255, 255}},
		{"layer 1 last pixel", 2*layerBytes - 4, [4]byte{0, 0, 255, 255}},
	}
	for _, check := range checks {
		got := [4]byte(atlas.Pixels[check.offset : check.offset+4])
		if got != check.want {
			t.Fatalf("%s: expected %v; got %v", check.descr, check.want, got)
		}
	}
}

func TestBuildAtlasReportsDecodeErrors(t *testing.T) {
	images := []*common.ImportedTexture{
		{Name: "broken", Data: []byte("not an image"), MimeType: "image/png"},
	}
	if _, err := BuildAtlas(images); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestRescaleNearest(t *testing.T) {
	// 2x1 source: red then blue.
	src := []byte{255, 0, 0, 255, 0, 0, 255, 255}
	dst := make([]byte, 4*2*4)
	rescaleNearest(src, 2, 1, dst, 4, 2)

	// Left half maps to the red source pixel, right half to the blue one.
	if [4]byte(dst[0:4]) != [4]byte{255, 0, 0, 255} {
		t.Fatalf("expected red top-left; got %v", dst[0:4])
	}
	if [4]byte(dst[12:16]) != [4]byte{0, 0, 255, 255} {
		t.Fatalf("expected blue top-right; got %v", dst[12:16])
	}
	lastRow := 4 * 4 * 1
	if [4]byte(dst[lastRow:lastRow+4]) != [4]byte{255, 0, 0, 255} {
		t.Fatalf("expected red bottom-left; got %v", dst[lastRow:lastRow+4])
	}
}

func TestLoadEnvironment(t *testing.T) {
	env, err := LoadEnvironment("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Width != AtlasSize || env.Height != AtlasSize {
		t.Fatalf("expected %dx%d placeholder; got %dx%d", AtlasSize, AtlasSize, env.Width, env.Height)
	}
	for _, b := range env.Pixels[:64] {
		if b != 0 {
			t.Fatal("expected black placeholder environment")
		}
	}

	if _, err := LoadEnvironment("sky.png"); err == nil {
		t.Fatal("expected an error for unsupported extensions")
	}
}

func TestToneMapRange(t *testing.T) {
	if toneMap(0.5) != 127 {
		t.Fatalf("expected midpoint 127; got %d", toneMap(0.5))
	}
	if lo, hi := toneMap(-100), toneMap(100); lo != 0 || hi != 254 {
		t.Fatalf("expected tanh to pin extremes near 0 and 255; got %d and %d", lo, hi)
	}
}
