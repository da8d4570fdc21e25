package scene

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/prism-go/common"
)

// AtlasSize is the fixed edge length every atlas layer is rescaled to.
const AtlasSize = 1024

// atlasMinLayers is the smallest atlas ever uploaded. A single-layer array
// texture yields a plain 2D view on some backends, which the 2D-array binding
// rejects, so short inputs are padded with black layers.
const atlasMinLayers = 2

// TextureAtlas is the packed 2D-array texture: Layers slices of
// AtlasSize*AtlasSize RGBA pixels, in the order the images were collected.
type TextureAtlas struct {
	Width  uint32
	Height uint32
	Layers uint32
	Pixels []byte
}

// LayerBytes returns the byte size of one layer.
func (a *TextureAtlas) LayerBytes() int {
	return int(a.Width) * int(a.Height) * 4
}

// BuildAtlas decodes and rescales every image to AtlasSize x AtlasSize
// (nearest neighbour) and packs them as consecutive layers. Decoding and
// rescaling run on the worker pool, one task per image; layer order matches
// input order. Fewer than atlasMinLayers images pad with black layers.
//
// Parameters:
//   - images: the collected atlas inputs, config images first
//
// Returns:
//   - *TextureAtlas: the packed atlas
//   - error: error if any image fails to open, decode or rescale
func BuildAtlas(images []*common.ImportedTexture) (*TextureAtlas, error) {
	layerBytes := AtlasSize * AtlasSize * 4

	layers := len(images)
	if layers < atlasMinLayers {
		layers = atlasMinLayers
	}
	atlas := &TextureAtlas{
		Width:  AtlasSize,
		Height: AtlasSize,
		Layers: uint32(layers),
		Pixels: make([]byte, layers*layerBytes),
	}
	if len(images) == 0 {
		return atlas, nil
	}
	errs := make([]error, len(images))

	pool := worker.NewDynamicWorkerPool(runtime.NumCPU(), 256, 1*time.Second)

	// The pool's Wait blocks until workers idle-exit; a WaitGroup gives the
	// one-shot barrier this build needs.
	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		idx := i
		tex := img
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()

				pixels, w, h, err := tex.Decode()
				if err != nil {
					errs[idx] = fmt.Errorf("atlas image %d (%s): %w", idx, tex.Name, err)
					return nil, errs[idx]
				}

				layer := atlas.Pixels[idx*layerBytes : (idx+1)*layerBytes]
				rescaleNearest(pixels, int(w), int(h), layer, AtlasSize, AtlasSize)
				return nil, nil
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return atlas, nil
}

// rescaleNearest resamples src (sw x sh RGBA) into dst (dw x dh RGBA) with
// nearest-neighbour lookup.
func rescaleNearest(src []byte, sw, sh int, dst []byte, dw, dh int) {
	if sw <= 0 || sh <= 0 {
		return
	}
	for y := 0; y < dh; y++ {
		sy := y * sh / dh
		for x := 0; x < dw; x++ {
			sx := x * sw / dw
			si := (sy*sw + sx) * 4
			di := (y*dw + x) * 4
			copy(dst[di:di+4], src[si:si+4])
		}
	}
}
