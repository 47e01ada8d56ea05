package frame

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered raster format from path
func DecodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// LoadCanvas decodes the background at path and forces its width to width.
// The source height is kept verbatim, so sources that are not already width
// pixels wide are stretched horizontally.
func LoadCanvas(path string, width int) (*image.RGBA, error) {
	src, err := DecodeImage(path)
	if err != nil {
		return nil, err
	}
	height := src.Bounds().Dy()
	if height <= 0 || src.Bounds().Dx() <= 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	return Normalize(src, width, height), nil
}

// Normalize returns src as an RGBA image of exactly w x h pixels.
// Images already at that size are copied pixel for pixel.
func Normalize(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
