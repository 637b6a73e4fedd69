package field

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_PointAndPan(t *testing.T) {
	v := DefaultView()
	require.NoError(t, v.Validate())

	x, y := v.Point(12, 34)
	assert.InDelta(t, 1.2, x, 1e-12)
	assert.InDelta(t, 3.4, y, 1e-12)

	// Dragging right by 5 and down by 3 pulls the origin the other way.
	panned := v.Pan(5, 3)
	assert.Equal(t, -5, panned.OriginCol)
	assert.Equal(t, -3, panned.OriginRow)
	px, py := panned.Point(17, 37)
	assert.InDelta(t, x, px, 1e-12)
	assert.InDelta(t, y, py, 1e-12)
	assert.Equal(t, 0, v.OriginCol, "Pan must not mutate the receiver")
}

func TestView_Validate(t *testing.T) {
	bad := []View{
		{Width: 0, Height: 10, Step: 0.1},
		{Width: 10, Height: -1, Step: 0.1},
		{Width: 10, Height: 10, Step: 0},
		{Width: 10, Height: 10, Step: math.Inf(1)},
		{Width: 10, Height: 10, Step: math.NaN()},
		{Width: 1 << 32, Height: 1 << 32, Step: 0.1},
		{Width: math.MaxInt, Height: 2, Step: 0.1},
		{Width: MaxPixels + 1, Height: 1, Step: 0.1},
	}
	for _, v := range bad {
		err := v.Validate()
		require.Error(t, err, "%+v", v)
		assert.True(t, errors.Is(err, ErrInvalidView))
	}
}

func TestView_ValidateMax(t *testing.T) {
	v := View{Width: 1024, Height: 1024, Step: 0.1}
	require.NoError(t, v.ValidateMax(1024*1024))
	assert.ErrorIs(t, v.ValidateMax(1024*1023), ErrInvalidView)

	// 2^32 * 2^32 wraps to 0 in int; the cap must still trip.
	huge := View{Width: 1 << 32, Height: 1 << 32, Step: 0.1}
	assert.ErrorIs(t, huge.ValidateMax(1024*1024), ErrInvalidView)

	_, err := (&Renderer{}).Render(context.Background(), huge, noise.DefaultFBMConfig())
	assert.ErrorIs(t, err, ErrInvalidView)
}

func TestRenderer_MatchesDirectEvaluation(t *testing.T) {
	view := View{OriginCol: -7, OriginRow: 3, Width: 23, Height: 17, Step: 0.13}
	cfg := noise.DefaultFBMConfig()

	r := &Renderer{Workers: 4}
	grid, err := r.Render(context.Background(), view, cfg)
	require.NoError(t, err)
	require.Len(t, grid.Values, view.Pixels())

	for row := 0; row < view.Height; row++ {
		for col := 0; col < view.Width; col++ {
			x, y := view.Point(col, row)
			require.Equal(t, noise.Evaluate(x, y, cfg), grid.At(col, row), "pixel %d,%d", col, row)
		}
	}
}

func TestRenderer_LatticeAlignedPixelsAreZeroForOneOctave(t *testing.T) {
	view := View{Width: 21, Height: 21, Step: 0.5}
	cfg := noise.FBMConfig{Amplitude: 1, Frequency: 1, Octaves: 1, Lacunarity: 2, Gain: 0.5}

	grid, err := (&Renderer{}).Render(context.Background(), view, cfg)
	require.NoError(t, err)
	for row := 0; row < view.Height; row += 2 {
		for col := 0; col < view.Width; col += 2 {
			assert.Zero(t, grid.At(col, row))
		}
	}
}

func TestRenderer_RejectsInvalidInput(t *testing.T) {
	r := &Renderer{}
	cfg := noise.DefaultFBMConfig()
	cfg.Octaves = 0

	_, err := r.Render(context.Background(), DefaultView(), cfg)
	assert.True(t, errors.Is(err, noise.ErrInvalidConfig))

	_, err = r.Render(context.Background(), View{Width: 1, Height: 1}, noise.DefaultFBMConfig())
	assert.True(t, errors.Is(err, ErrInvalidView))
}

func TestRenderer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Renderer{Workers: 2}).Render(ctx, DefaultView(), noise.DefaultFBMConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGrid_Image(t *testing.T) {
	g := NewGrid(4, 1)
	g.Values = []float64{-1, -0.2, 0.2, 1}

	img := g.Image(palette.Default())
	assert.Equal(t, image.Rect(0, 0, 4, 1), img.Bounds())
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 0x8b, G: 0x45, B: 0x13, A: 255}, img.NRGBAAt(2, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(3, 0))
}

func TestGrid_Gray(t *testing.T) {
	g := NewGrid(3, 1)
	g.Values = []float64{-1, 0, 3}
	img := g.Gray()
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(128), img.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), img.GrayAt(2, 0).Y)
}

func TestPostProcess(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 8))

	assert.Same(t, src, PostProcess(src, PostOptions{}).(*image.NRGBA))

	scaled := PostProcess(src, PostOptions{Scale: 3})
	assert.Equal(t, image.Rect(0, 0, 30, 24), scaled.Bounds())

	blurred := PostProcess(src, PostOptions{BlurSigma: 1.5})
	assert.Equal(t, src.Bounds(), blurred.Bounds())
}

func TestCaption_DrawsPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 120, 30))
	Caption(img, "Octaves: 8")

	changed := false
	for x := 0; x < 60 && !changed; x++ {
		for y := 0; y < 15; y++ {
			if img.NRGBAAt(x, y) != (color.NRGBA{}) {
				changed = true
				break
			}
		}
	}
	assert.True(t, changed)
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(119, 29))
}

func TestGrid_Stats(t *testing.T) {
	g := NewGrid(5, 1)
	g.Values = []float64{3, -1, 1, 0, 2}

	s := g.Stats()
	assert.Equal(t, -1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
	assert.InDelta(t, 1.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2), s.StdDev, 1e-12)
	assert.Equal(t, -1.0, s.P05)
	assert.Equal(t, 3.0, s.P95)
	assert.Equal(t, []float64{3, -1, 1, 0, 2}, g.Values, "Stats must not reorder samples")

	assert.Equal(t, Stats{}, NewGrid(0, 0).Stats())
}

func TestWriteCSV(t *testing.T) {
	view := View{OriginCol: 10, OriginRow: 20, Width: 2, Height: 2, Step: 0.5}
	grid, err := (&Renderer{Workers: 1}).Render(context.Background(), view, noise.DefaultFBMConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, view, grid))
	assert.True(t, strings.HasPrefix(buf.String(), "col,row,x,y,value\n"))

	var rows []Sample
	require.NoError(t, gocsv.Unmarshal(strings.NewReader(buf.String()), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, Sample{Col: 1, Row: 1, X: 5.5, Y: 10.5, Value: grid.At(1, 1)}, rows[3])
}
