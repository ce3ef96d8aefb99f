package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/gogpu/diskmask"
)

// writePreview renders the mask as a grayscale PNG, one lattice point per
// pixel, optionally upscaled with nearest-neighbor so small masks stay
// legible. Inside points are white.
func writePreview(path string, mask *diskmask.Mask, scale int) error {
	if scale < 1 {
		scale = 1
	}

	w, h := int(mask.Width()), int(mask.Height())
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.At(uint32(x), uint32(y)) != 0 {
				img.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}

	var out image.Image = img
	if scale > 1 {
		scaled := image.NewGray(image.Rect(0, 0, w*scale, h*scale))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		out = scaled
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, out); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
