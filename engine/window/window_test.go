package window

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestSizeLimitUnsetBounds(t *testing.T) {
	if got := sizeLimit(0); got != glfw.DontCare {
		t.Fatalf("expected an unset bound to map to DontCare; got %d", got)
	}
	if got := sizeLimit(-5); got != glfw.DontCare {
		t.Fatalf("expected a negative bound to map to DontCare; got %d", got)
	}
	if got := sizeLimit(600); got != 600 {
		t.Fatalf("expected a positive bound to pass through; got %d", got)
	}
}

func TestResizeBoundOptions(t *testing.T) {
	w := &engineWindow{}
	opts := []WindowBuilderOption{
		WithMinWidth(320),
		WithMinHeight(240),
		WithMaxWidth(1920),
		WithMaxHeight(1080),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.minWidth != 320 || w.minHeight != 240 {
		t.Fatalf("unexpected minimum bounds: %dx%d", w.minWidth, w.minHeight)
	}
	if w.maxWidth != 1920 || w.maxHeight != 1080 {
		t.Fatalf("unexpected maximum bounds: %dx%d", w.maxWidth, w.maxHeight)
	}
}
