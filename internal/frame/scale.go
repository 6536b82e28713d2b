package frame

import (
	"image"

	"golang.org/x/image/draw"
)

// Scale returns src enlarged by an integer factor with nearest-neighbor
// sampling, so each cell stays a sharp square. Factors below 2 return src.
func Scale(src *image.Gray, factor int) *image.Gray {
	if factor < 2 {
		return src
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
