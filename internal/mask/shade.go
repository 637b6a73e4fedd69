package mask

import (
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Darken lowers the HSL lightness of each pixel of img where m is below 255.
// A mask value of 0 removes strength of the lightness; alpha is preserved.
func Darken(img *image.NRGBA, m *image.Gray, strength float64) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)
	if strength <= 0 {
		return out
	}
	strength = min(strength, 1)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			mv := m.GrayAt(x, y).Y
			if mv == 255 {
				continue
			}
			c := img.NRGBAAt(x, y)
			h, s, l := colorful.Color{
				R: float64(c.R) / 255,
				G: float64(c.G) / 255,
				B: float64(c.B) / 255,
			}.Hsl()
			l *= 1 - strength*(1-float64(mv)/255)
			r, g, bl := colorful.Hsl(h, s, l).Clamped().RGB255()
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: bl, A: c.A})
		}
	}
	return out
}
