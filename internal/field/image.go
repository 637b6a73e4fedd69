package field

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/disintegration/gift"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Image colours every sample with p.
func (g *Grid) Image(p palette.Palette) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			img.SetNRGBA(col, row, p.ColorFor(g.At(col, row)))
		}
	}
	return img
}

// Gray returns the normalised samples as an 8-bit heightmap.
func (g *Grid) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			n := palette.Normalize(g.At(col, row))
			img.SetGray(col, row, color.Gray{Y: uint8(n*255 + 0.5)})
		}
	}
	return img
}

// PostOptions configures optional filtering after colouring.
type PostOptions struct {
	// BlurSigma > 0 applies a Gaussian blur.
	BlurSigma float32
	// Scale > 1 enlarges the image with nearest-neighbour sampling so bands
	// stay crisp.
	Scale int
}

// PostProcess applies the filters in opts. It returns img unchanged when no
// filter is enabled.
func PostProcess(img image.Image, opts PostOptions) image.Image {
	var filters []gift.Filter
	if opts.BlurSigma > 0 {
		filters = append(filters, gift.GaussianBlur(opts.BlurSigma))
	}
	if opts.Scale > 1 {
		b := img.Bounds()
		filters = append(filters, gift.Resize(b.Dx()*opts.Scale, b.Dy()*opts.Scale, gift.NearestNeighborResampling))
	}
	if len(filters) == 0 {
		return img
	}

	g := gift.New(filters...)
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// Caption draws text in the top-left corner over a translucent strip.
func Caption(img draw.Image, text string) {
	if text == "" {
		return
	}

	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil() + 6
	height := face.Metrics().Height.Ceil() + 4

	strip := image.Rect(0, 0, width, height).Intersect(img.Bounds())
	draw.Draw(img, strip, image.NewUniform(color.NRGBA{A: 160}), image.Point{}, draw.Over)

	d.Dst = img
	d.Src = image.NewUniform(color.White)
	d.Dot = fixed.P(3, face.Metrics().Ascent.Ceil()+2)
	d.DrawString(text)
}
