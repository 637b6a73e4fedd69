package noise

// Interpolator blends a0 and a1 by weight w.
type Interpolator func(a0, a1, w float64) float64

// Lerp interpolates linearly. w is not clamped, so weights outside [0,1]
// extrapolate.
func Lerp(a0, a1, w float64) float64 {
	return (a1-a0)*w + a0
}

// Smoothstep is cubic Hermite interpolation (zero first derivative at the
// cell edges).
func Smoothstep(a0, a1, w float64) float64 {
	return (a1-a0)*(3.0-w*2.0)*w*w + a0
}

// Smootherstep is quintic interpolation (zero first and second derivative at
// the cell edges).
func Smootherstep(a0, a1, w float64) float64 {
	return (a1-a0)*((w*(w*6.0-15.0)+10.0)*w*w*w) + a0
}

// InterpolatorByName resolves "linear", "smoothstep" or "smootherstep".
func InterpolatorByName(name string) (Interpolator, bool) {
	switch name {
	case "", "linear":
		return Lerp, true
	case "smoothstep":
		return Smoothstep, true
	case "smootherstep":
		return Smootherstep, true
	default:
		return nil, false
	}
}

// DotGridGradient returns the dot product of the gradient at (ix, iy) and the
// offset from that lattice point to (x, y).
func DotGridGradient(ix, iy int, x, y float64) float64 {
	g := Gradient(ix, iy)
	return g.Dot(Vec2{X: x - float64(ix), Y: y - float64(iy)})
}
