package noise

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
)

// Source is a continuous scalar field over the plane.
type Source interface {
	Noise(x, y float64) float64
}

// Lattice is the hash-gradient noise field. The zero value interpolates
// linearly.
type Lattice struct {
	Interp Interpolator
}

// Noise evaluates the field at (x, y). The result is nominally within [-1, 1]
// but is not clamped.
func (l Lattice) Noise(x, y float64) float64 {
	interp := l.Interp
	if interp == nil {
		interp = Lerp
	}

	fx := math.Floor(x)
	fy := math.Floor(y)
	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1

	sx := x - fx
	sy := y - fy

	n0 := DotGridGradient(x0, y0, x, y)
	n1 := DotGridGradient(x1, y0, x, y)
	ix0 := interp(n0, n1, sx)

	n0 = DotGridGradient(x0, y1, x, y)
	n1 = DotGridGradient(x1, y1, x, y)
	ix1 := interp(n0, n1, sx)

	return interp(ix0, ix1, sy)
}

// Noise evaluates the linear lattice field at (x, y).
func Noise(x, y float64) float64 {
	return Lattice{}.Noise(x, y)
}

// PerlinSource adapts the permutation-table Perlin implementation from
// github.com/aquilax/go-perlin. It is seeded and therefore not interchangeable
// with Lattice; it exists for side-by-side comparison.
type PerlinSource struct {
	p *perlin.Perlin
}

// NewPerlinSource creates a single-octave Perlin source. Octave layering is
// left to FBM so both sources are composed identically.
func NewPerlinSource(seed int64) *PerlinSource {
	return &PerlinSource{p: perlin.NewPerlin(2.0, 2.0, 1, seed)}
}

// Noise evaluates the Perlin field at (x, y).
func (s *PerlinSource) Noise(x, y float64) float64 {
	return s.p.Noise2D(x, y)
}

// SourceByName builds a Source for "lattice" (optionally with an interpolator
// name) or "perlin".
func SourceByName(name, interp string, seed int64) (Source, error) {
	switch name {
	case "", "lattice":
		fn, ok := InterpolatorByName(interp)
		if !ok {
			return nil, fmt.Errorf("unknown interpolator %q", interp)
		}
		return Lattice{Interp: fn}, nil
	case "perlin":
		return NewPerlinSource(seed), nil
	default:
		return nil, fmt.Errorf("unknown noise source %q", name)
	}
}
