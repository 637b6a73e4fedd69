// Package noise implements deterministic 2D gradient noise and its fractal
// (multi-octave) composition.
//
// Gradients are derived from lattice coordinates by an integer mix, so no
// permutation table or seed is involved: the same coordinate yields the same
// direction in every process.
package noise

import "math"

const (
	hashWidth    = 32
	hashRotation = hashWidth / 2
	// hashModulus is 2^32-1, not 2^32.
	hashModulus uint64 = (1 << hashWidth) - 1

	mixA uint64 = 3284157443
	mixB uint64 = 1911520717
	mixC uint64 = 2048419325

	angleScale = math.Pi / 2147483648
)

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float64
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Gradient returns the unit direction assigned to lattice point (ix, iy).
func Gradient(ix, iy int) Vec2 {
	a := reduce(ix)
	b := reduce(iy)

	// Operands stay below 2^32, so every product fits in uint64.
	a = (a * mixA) % hashModulus
	b = (b ^ rotl(a)) % hashModulus
	b = (b * mixB) % hashModulus
	a = (a ^ rotl(b)) % hashModulus
	a = (a * mixC) % hashModulus

	angle := float64(a) * angleScale
	return Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}

// rotl is a rotate-like mix under the 2^32-1 modulus. It is not a true bit
// rotation and must not be replaced by one.
func rotl(v uint64) uint64 {
	return ((v << hashRotation) | (v >> (hashWidth - hashRotation))) % hashModulus
}

// reduce maps any int onto [0, hashModulus).
func reduce(v int) uint64 {
	m := int64(hashModulus)
	r := int64(v) % m
	if r < 0 {
		r += m
	}
	return uint64(r)
}
