package analyzer

import (
	"image"
	"image/draw"
)

// toGray converts img to 8-bit luma, reusing dst when it already has the right bounds.
func toGray(img image.Image, dst *image.Gray) *image.Gray {
	bounds := img.Bounds()
	if dst == nil || dst.Rect != bounds {
		dst = image.NewGray(bounds)
	}
	if g, ok := img.(*image.Gray); ok && g.Stride == dst.Stride && len(g.Pix) == len(dst.Pix) {
		copy(dst.Pix, g.Pix)
		return dst
	}
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
	return dst
}

// ToGray converts any image to grayscale
func ToGray(img image.Image) *image.Gray {
	return toGray(img, nil)
}
