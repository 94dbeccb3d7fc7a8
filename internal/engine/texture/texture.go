// Package texture decodes material images into upload-ready RGBA pixels.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/webp" // EXT_texture_webp decoder registration
)

// Decode decodes an encoded image. mimeType is informational; the format
// is sniffed from the data since exporters often mislabel it.
func Decode(data []byte, mimeType string) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if mimeType != "" {
			return nil, fmt.Errorf("decoding %s image: %w", mimeType, err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts any image.Image to a tightly packed *image.RGBA with
// its origin at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == rgba.Rect.Dx()*4 {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// FitMaxSize downscales img so neither side exceeds max, keeping the
// aspect ratio. Images already small enough are returned unchanged.
func FitMaxSize(img *image.RGBA, max int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if max <= 0 || (w <= max && h <= max) {
		return img
	}
	var nw, nh uint
	if w >= h {
		nw = uint(max)
	} else {
		nh = uint(max)
	}
	// Zero dimension keeps the aspect ratio
	return ToRGBA(resize.Resize(nw, nh, img, resize.Lanczos3))
}
