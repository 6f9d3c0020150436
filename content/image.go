package content

import (
	"fmt"
	"image"
	"io"

	// PNG and JPEG heightmaps are decoded through image.Decode.
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// DecodeImage decodes a grayscale (or color, converted to luminance) image
// into a heightmap with the image's own resolution.
func DecodeImage(r io.Reader) (*Heightmap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("content: decode heightmap image: %w", err)
	}
	b := img.Bounds()
	return FromImage(img, b.Dx(), b.Dy())
}

// FromImage converts img to a width x depth heightmap, resampling with a
// Catmull-Rom filter when the sizes differ. Image rows map to Z.
func FromImage(img image.Image, width, depth int) (*Heightmap, error) {
	if width < 2 || depth < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, depth)
	}

	dst := image.NewGray16(image.Rect(0, 0, width, depth))
	src := img.Bounds()
	if src.Dx() == width && src.Dy() == depth {
		xdraw.Draw(dst, dst.Bounds(), img, src.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
	}

	samples := make([]float32, width*depth)
	for z := 0; z < depth; z++ {
		for x := 0; x < width; x++ {
			samples[z*width+x] = float32(dst.Gray16At(x, z).Y) / 0xffff
		}
	}
	return NewHeightmap(width, depth, samples)
}
