package mask

import (
	"image"
	"image/color"
	"math"
)

// DistanceTransform returns, for every set pixel of m, its Euclidean distance
// to the nearest unset pixel scaled so that maxDistance maps to 255. Unset
// pixels stay 0. Pixels on the image border count as coast only where an
// unset neighbour exists; land running off the edge is treated as inland.
//
// Uses the separable squared-distance transform of Felzenszwalb and
// Huttenlocher, linear in the number of pixels.
func DistanceTransform(m *image.Gray, maxDistance float64) *image.Gray {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	if w == 0 || h == 0 || maxDistance <= 0 {
		return out
	}

	set := func(x, y int) bool { return m.Pix[y*m.Stride+x] > 0 }
	inf := maxDistance*maxDistance*2 + float64(w*w+h*h)

	// Seeds are the unset pixels; distance is measured from them.
	d := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if set(x, y) {
				d[y*w+x] = inf
			}
		}
	}

	n := max(w, h)
	in := make([]float64, n)
	res := make([]float64, n)
	env := newEnvelope(n)

	for y := 0; y < h; y++ {
		row := d[y*w : (y+1)*w]
		copy(in, row)
		env.transform(in[:w], res[:w])
		copy(row, res[:w])
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			in[y] = d[y*w+x]
		}
		env.transform(in[:h], res[:h])
		for y := 0; y < h; y++ {
			d[y*w+x] = res[y]
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !set(x, y) {
				continue
			}
			dist := math.Sqrt(d[y*w+x])
			out.SetGray(b.Min.X+x, b.Min.Y+y, gray(255*dist/maxDistance))
		}
	}
	return out
}

// envelope holds the scratch buffers for the 1D lower-envelope pass.
type envelope struct {
	v []int
	z []float64
}

func newEnvelope(n int) *envelope {
	return &envelope{v: make([]int, n), z: make([]float64, n+1)}
}

// transform writes the 1D squared distance transform of f into out.
func (e *envelope) transform(f, out []float64) {
	n := len(f)
	if n == 0 {
		return
	}
	v, z := e.v, e.z

	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	for q := 1; q < n; q++ {
		s := e.intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = e.intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dx := float64(q - v[k])
		out[q] = dx*dx + f[v[k]]
	}
}

// intersect is where the parabolas rooted at q and p meet.
func (e *envelope) intersect(f []float64, q, p int) float64 {
	return ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*(q-p))
}

// Intensity turns a DistanceTransform result into a shading mask using the
// falloff 1 - (1 - d)^gamma, so the coast maps to 0 and pixels at or beyond
// the radius map to 255. Unset (sea) pixels map to 255.
func Intensity(dist *image.Gray, gamma float64) *image.Gray {
	if gamma <= 0 {
		gamma = 1
	}
	b := dist.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dv := dist.GrayAt(x, y).Y
			if dv == 0 {
				out.SetGray(x, y, color.Gray{Y: 255})
				continue
			}
			falloff := math.Pow(1-float64(dv)/255, gamma)
			out.SetGray(x, y, gray(255*(1-falloff)))
		}
	}
	return out
}
