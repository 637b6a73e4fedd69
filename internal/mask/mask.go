// Package mask derives shoreline shading from a noise grid: the field is cut
// at a sea level, each land pixel gets its distance to the coast, and colours
// are darkened near the waterline.
package mask

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/disintegration/gift"
)

// Options configures Shoreline. A zero Radius disables shading.
type Options struct {
	// Level is the normalised sea level; values at or above it are land.
	Level float64
	// Radius is how far inland, in pixels, the shading reaches.
	Radius float64
	// Gamma shapes the falloff: >1 hugs the coast, <1 spreads inland.
	Gamma float64
	// Strength in [0, 1] is the lightness removed right at the coast.
	Strength float64
	// Antialias softens the coastline with a Gaussian of this sigma.
	Antialias float32
}

// DefaultOptions puts the coast at the first band of the default palette.
func DefaultOptions() Options {
	return Options{Level: 0.25, Radius: 6, Gamma: 2, Strength: 0.35, Antialias: 0.8}
}

// Enabled reports whether o would change an image.
func (o Options) Enabled() bool {
	return o.Radius > 0 && o.Strength > 0
}

// Margin is how many pixels around a window influence its shading.
func (o Options) Margin() int {
	if !o.Enabled() {
		return 0
	}
	return int(math.Ceil(o.Radius + 3*float64(o.Antialias)))
}

// Render colours view with p and applies shoreline shading. The field is
// evaluated with a margin so neighbouring windows shade identically along
// their shared edge.
func Render(ctx context.Context, r *field.Renderer, view field.View, cfg noise.FBMConfig, p palette.Palette, o Options) (*image.NRGBA, error) {
	if err := view.Validate(); err != nil {
		return nil, err
	}
	m := o.Margin()
	padded := view
	padded.OriginCol -= m
	padded.OriginRow -= m
	padded.Width += 2 * m
	padded.Height += 2 * m

	g, err := r.Render(ctx, padded, cfg)
	if err != nil {
		return nil, err
	}
	img := Shade(g.Image(p), g, o)
	if m == 0 {
		return img, nil
	}
	return crop(img, image.Rect(m, m, m+view.Width, m+view.Height)), nil
}

func crop(img *image.NRGBA, r image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		src := img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], img.Pix[src:src+4*r.Dx()])
	}
	return out
}

// Validate rejects option values outside their ranges.
func (o Options) Validate() error {
	if o.Level < 0 || o.Level > 1 {
		return fmt.Errorf("sea level must be in [0, 1], got %g", o.Level)
	}
	if o.Radius < 0 || o.Strength < 0 || o.Strength > 1 {
		return fmt.Errorf("shore radius must be >= 0 and strength in [0, 1]")
	}
	if o.Antialias < 0 {
		return fmt.Errorf("shore antialias must be >= 0")
	}
	return nil
}

// Land marks pixels whose normalised value reaches level with 255.
func Land(g *field.Grid, level float64) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for i, v := range g.Values {
		if palette.Normalize(v) >= level {
			m.Pix[i] = 255
		}
	}
	return m
}

// Blur applies a Gaussian blur to m.
func Blur(m *image.Gray, sigma float32) *image.Gray {
	if sigma <= 0 {
		return m
	}
	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewGray(g.Bounds(m.Bounds()))
	g.Draw(dst, m)
	return dst
}

// Shoreline builds the shading mask for g: 255 leaves a pixel untouched,
// 0 is the strongest darkening.
func Shoreline(g *field.Grid, o Options) *image.Gray {
	dist := DistanceTransform(Land(g, o.Level), o.Radius)
	return Blur(Intensity(dist, o.Gamma), o.Antialias)
}

// Shade returns a copy of img darkened by Shoreline(g, o). img must have the
// grid's dimensions.
func Shade(img *image.NRGBA, g *field.Grid, o Options) *image.NRGBA {
	if !o.Enabled() {
		return img
	}
	return Darken(img, Shoreline(g, o), o.Strength)
}

func gray(v float64) color.Gray {
	if v <= 0 {
		return color.Gray{}
	}
	if v >= 255 {
		return color.Gray{Y: 255}
	}
	return color.Gray{Y: uint8(v + 0.5)}
}
