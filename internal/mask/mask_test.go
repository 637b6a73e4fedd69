package mask

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// island builds a w x h mask with a filled square from (x0,y0) to (x1,y1).
func island(w, h, x0, y0, x1, y1 int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return m
}

func TestDistanceTransform_Island(t *testing.T) {
	m := island(11, 11, 2, 2, 9, 9)
	d := DistanceTransform(m, 10)

	assert.Equal(t, uint8(0), d.GrayAt(0, 0).Y, "sea stays zero")
	assert.Equal(t, uint8(26), d.GrayAt(2, 5).Y, "coast pixel is one step from the sea")
	assert.Equal(t, uint8(102), d.GrayAt(5, 5).Y, "centre is four steps from the sea")
	assert.Equal(t, d.GrayAt(3, 5).Y, d.GrayAt(7, 5).Y, "symmetric")
}

func TestDistanceTransform_Diagonal(t *testing.T) {
	m := island(5, 5, 0, 0, 5, 5)
	m.SetGray(0, 0, color.Gray{})
	d := DistanceTransform(m, 10)

	// sqrt(8) * 25.5 = 72.1
	assert.Equal(t, uint8(72), d.GrayAt(2, 2).Y)
}

func TestDistanceTransform_AllLand(t *testing.T) {
	d := DistanceTransform(island(4, 4, 0, 0, 4, 4), 3)
	for _, v := range d.Pix {
		assert.Equal(t, uint8(255), v)
	}
}

func TestDistanceTransform_ZeroRadius(t *testing.T) {
	d := DistanceTransform(island(4, 4, 1, 1, 3, 3), 0)
	for _, v := range d.Pix {
		assert.Equal(t, uint8(0), v)
	}
}

func TestIntensity(t *testing.T) {
	dist := image.NewGray(image.Rect(0, 0, 3, 1))
	dist.SetGray(0, 0, color.Gray{Y: 0})
	dist.SetGray(1, 0, color.Gray{Y: 51})
	dist.SetGray(2, 0, color.Gray{Y: 255})

	out := Intensity(dist, 1)
	assert.Equal(t, uint8(255), out.GrayAt(0, 0).Y, "sea is untouched")
	assert.Equal(t, uint8(51), out.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), out.GrayAt(2, 0).Y)

	steep := Intensity(dist, 2)
	assert.Greater(t, steep.GrayAt(1, 0).Y, out.GrayAt(1, 0).Y, "higher gamma narrows the band")
}

func TestDarken(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	m := image.NewGray(image.Rect(0, 0, 2, 1))
	m.SetGray(0, 0, color.Gray{Y: 255})
	m.SetGray(1, 0, color.Gray{Y: 0})

	out := Darken(img, m, 0.5)
	assert.Equal(t, img.NRGBAAt(0, 0), out.NRGBAAt(0, 0))

	c := out.NRGBAAt(1, 0)
	assert.Less(t, c.R, uint8(200))
	assert.Less(t, c.G, uint8(100))
	assert.Equal(t, uint8(128), c.A)
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 128}, img.NRGBAAt(1, 0), "input untouched")
}

func TestLand(t *testing.T) {
	g := field.NewGrid(3, 1)
	g.Set(0, 0, -1)
	g.Set(1, 0, 0)
	g.Set(2, 0, 1)

	m := Land(g, 0.5)
	assert.Equal(t, []uint8{0, 255, 255}, m.Pix)
}

func TestOptions(t *testing.T) {
	o := DefaultOptions()
	require.NoError(t, o.Validate())
	assert.True(t, o.Enabled())
	assert.Equal(t, 9, o.Margin())

	assert.Equal(t, 0, Options{}.Margin())
	assert.Error(t, Options{Level: 2}.Validate())
	assert.Error(t, Options{Strength: 1.5}.Validate())
}

func TestShade_Disabled(t *testing.T) {
	g := field.NewGrid(2, 2)
	img := g.Image(palette.Default())
	assert.Same(t, img, Shade(img, g, Options{}))
}

func TestRender_SeamlessAcrossWindows(t *testing.T) {
	r := &field.Renderer{Workers: 2}
	cfg := noise.DefaultFBMConfig()
	p := palette.Default()
	o := DefaultOptions()
	o.Level = 0.5

	whole, err := Render(context.Background(), r, field.View{Width: 40, Height: 20, Step: 0.1}, cfg, p, o)
	require.NoError(t, err)
	left, err := Render(context.Background(), r, field.View{Width: 20, Height: 20, Step: 0.1}, cfg, p, o)
	require.NoError(t, err)
	right, err := Render(context.Background(), r, field.View{OriginCol: 20, Width: 20, Height: 20, Step: 0.1}, cfg, p, o)
	require.NoError(t, err)

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			require.Equal(t, whole.NRGBAAt(x, y), left.NRGBAAt(x, y))
			require.Equal(t, whole.NRGBAAt(x+20, y), right.NRGBAAt(x, y))
		}
	}
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Render(ctx, &field.Renderer{}, field.DefaultView(), noise.DefaultFBMConfig(), palette.Default(), DefaultOptions())
	assert.Error(t, err)
}
