package frame

import (
	"image"
	"image/color"
	"math"
)

// Palette maps grayscale intensity to color: 0 is Off, 255 is On, and
// intermediate values blend linearly.
type Palette struct {
	On  color.RGBA
	Off color.RGBA
}

// DefaultPalette draws live cells white on black.
var DefaultPalette = Palette{
	On:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
	Off: color.RGBA{A: 255},
}

// At returns the color for intensity v.
func (p Palette) At(v uint8) color.RGBA {
	switch v {
	case 0:
		return p.Off
	case 255:
		return p.On
	}
	mix := func(a, b uint8) uint8 {
		return uint8((uint32(a)*uint32(255-v) + uint32(b)*uint32(v) + 127) / 255)
	}
	return color.RGBA{
		R: mix(p.Off.R, p.On.R),
		G: mix(p.Off.G, p.On.G),
		B: mix(p.Off.B, p.On.B),
		A: mix(p.Off.A, p.On.A),
	}
}

// Fill expands gray into RGBA bytes in dst, which must hold 4 bytes per
// pixel of gray's bounds.
func (p Palette) Fill(dst []byte, gray *image.Gray) {
	b := gray.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			c := p.At(row[x])
			dst[i+0] = c.R
			dst[i+1] = c.G
			dst[i+2] = c.B
			dst[i+3] = c.A
			i += 4
		}
	}
}

// Tint converts HSV to an opaque color. Hue is in degrees and wraps;
// saturation and brightness are clamped to [0, 1].
func Tint(hue, saturation, brightness float64) color.RGBA {
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	saturation = clamp01(saturation)
	brightness = clamp01(brightness)

	c := brightness * saturation
	x := c * (1 - math.Abs(math.Mod(hue/60, 2)-1))
	m := brightness - c

	var r, g, b float64
	switch {
	case hue < 60:
		r, g, b = c, x, 0
	case hue < 120:
		r, g, b = x, c, 0
	case hue < 180:
		r, g, b = 0, c, x
	case hue < 240:
		r, g, b = 0, x, c
	case hue < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
