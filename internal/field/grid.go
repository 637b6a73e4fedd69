package field

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/MeKo-Tech/noisemap/internal/noise"
	"golang.org/x/sync/errgroup"
)

// Grid is a row-major buffer of scalar samples.
type Grid struct {
	Width  int
	Height int
	Values []float64
}

// NewGrid allocates a zeroed grid.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Values: make([]float64, width*height)}
}

// At returns the sample at (col, row).
func (g *Grid) At(col, row int) float64 {
	return g.Values[row*g.Width+col]
}

// Set stores the sample at (col, row).
func (g *Grid) Set(col, row int, v float64) {
	g.Values[row*g.Width+col] = v
}

// Renderer evaluates FBM over views. The zero value renders the lattice field
// with one worker per CPU.
type Renderer struct {
	Source  noise.Source
	Workers int
	Logger  *slog.Logger
}

// Render samples every pixel of view. Rows are evaluated concurrently; the
// context is checked before each row.
func (r *Renderer) Render(ctx context.Context, view View, cfg noise.FBMConfig) (*Grid, error) {
	if err := view.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src := r.Source
	if src == nil {
		src = noise.Lattice{}
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	grid := NewGrid(view.Width, view.Height)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for row := 0; row < view.Height; row++ {
		if gctx.Err() != nil {
			break
		}
		row := row
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			offset := row * view.Width
			for col := 0; col < view.Width; col++ {
				x, y := view.Point(col, row)
				grid.Values[offset+col] = noise.FBMWith(src, x, y, cfg)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render cancelled: %w", err)
	}

	r.log().Debug("rendered view",
		"col", view.OriginCol,
		"row", view.OriginRow,
		"width", view.Width,
		"height", view.Height,
		"octaves", cfg.Octaves,
		"ms", time.Since(start).Milliseconds(),
	)
	return grid, nil
}

func (r *Renderer) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
