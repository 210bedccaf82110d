package sprite

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
)

// Composite draws every placed image onto a single canvas of the layout's
// size. The canvas starts fully transparent and pixels are copied verbatim -
// no resampling, no color transform.
func Composite(layout *Layout) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, layout.Width, layout.Height))
	for _, r := range layout.Refs {
		rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
		draw.Draw(canvas, rect, r.img, r.img.Bounds().Min, draw.Src)
	}
	return canvas
}

// EncodePNG encodes the sprite canvas as a losslessly compressed,
// alpha-preserving PNG.
func EncodePNG(canvas image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, canvas, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("unable to encode sprite: %w", err)
	}
	return buf.Bytes(), nil
}
