// Package palette maps noise scalars onto colours.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidThresholds is returned when band thresholds are not strictly
// increasing within (0, 1].
var ErrInvalidThresholds = errors.New("invalid palette thresholds")

// Band colours every normalised value below Upper that an earlier band did
// not claim.
type Band struct {
	Upper float64
	Color color.NRGBA
}

// Palette is an ordered list of bands. The last band also receives values at
// or above its Upper.
type Palette struct {
	Bands []Band
	// Smooth blends towards the next band's colour in CIE-Lab instead of
	// switching at the threshold.
	Smooth bool
}

// Default returns the four-band water/grass/earth/snow palette.
func Default() Palette {
	return Palette{Bands: []Band{
		{Upper: 0.25, Color: color.NRGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}},
		{Upper: 0.5, Color: color.NRGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}},
		{Upper: 0.75, Color: color.NRGBA{R: 0x8b, G: 0x45, B: 0x13, A: 0xff}},
		{Upper: 1, Color: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
	}}
}

// Normalize maps a raw noise value from [-1, 1] onto [0, 1]. FBM sums can
// leave that range, so the result is clamped.
func Normalize(v float64) float64 {
	n := v*0.5 + 0.5
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	if n != n {
		return 0
	}
	return n
}

// Validate checks that thresholds increase strictly and stay within (0, 1].
func (p Palette) Validate() error {
	if len(p.Bands) == 0 {
		return fmt.Errorf("%w: palette has no bands", ErrInvalidThresholds)
	}
	prev := 0.0
	for i, b := range p.Bands {
		if !(b.Upper > prev) || b.Upper > 1 {
			return fmt.Errorf("%w: band %d upper %g must be in (%g, 1]", ErrInvalidThresholds, i, b.Upper, prev)
		}
		prev = b.Upper
	}
	return nil
}

// Color returns the colour for a normalised value n in [0, 1].
func (p Palette) Color(n float64) color.NRGBA {
	if len(p.Bands) == 0 {
		return color.NRGBA{}
	}

	lower := 0.0
	for i, b := range p.Bands {
		if n < b.Upper {
			if !p.Smooth || i == len(p.Bands)-1 {
				return b.Color
			}
			t := (n - lower) / (b.Upper - lower)
			return blend(b.Color, p.Bands[i+1].Color, t)
		}
		lower = b.Upper
	}
	return p.Bands[len(p.Bands)-1].Color
}

// ColorFor normalises a raw noise value and returns its colour.
func (p Palette) ColorFor(v float64) color.NRGBA {
	return p.Color(Normalize(v))
}

// String renders the palette in the format accepted by Parse.
func (p Palette) String() string {
	parts := make([]string, 0, len(p.Bands))
	for _, b := range p.Bands {
		c := colorful.Color{R: float64(b.Color.R) / 255, G: float64(b.Color.G) / 255, B: float64(b.Color.B) / 255}
		parts = append(parts, strconv.FormatFloat(b.Upper, 'g', -1, 64)+":"+c.Hex())
	}
	return strings.Join(parts, ",")
}

// Parse reads a palette such as "0.25:#0000ff,0.5:#00ff00,0.75:#8b4513,1:#ffffff".
func Parse(s string) (Palette, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Palette{}, fmt.Errorf("%w: empty palette", ErrInvalidThresholds)
	}

	var p Palette
	for i, part := range strings.Split(s, ",") {
		upperStr, hex, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return Palette{}, fmt.Errorf("band %d: expected <upper>:<#rrggbb>, got %q", i, part)
		}
		upper, err := strconv.ParseFloat(strings.TrimSpace(upperStr), 64)
		if err != nil {
			return Palette{}, fmt.Errorf("band %d: invalid threshold: %w", i, err)
		}
		c, err := colorful.Hex(strings.TrimSpace(hex))
		if err != nil {
			return Palette{}, fmt.Errorf("band %d: invalid colour %q: %w", i, hex, err)
		}
		r, g, b := c.RGB255()
		p.Bands = append(p.Bands, Band{Upper: upper, Color: color.NRGBA{R: r, G: g, B: b, A: 0xff}})
	}

	if err := p.Validate(); err != nil {
		return Palette{}, err
	}
	return p, nil
}

func blend(a, b color.NRGBA, t float64) color.NRGBA {
	ca, _ := colorful.MakeColor(a)
	cb, _ := colorful.MakeColor(b)
	r, g, bl := ca.BlendLab(cb, t).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: bl, A: 0xff}
}
