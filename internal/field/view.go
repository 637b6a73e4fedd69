// Package field evaluates FBM noise over rectangular pixel windows and turns
// the resulting scalar grids into images, statistics and CSV.
package field

import (
	"errors"
	"fmt"
	"math"
)

// Viewer defaults: a 200x200 window sampled every 0.1 noise units.
const (
	DefaultWidth  = 200
	DefaultHeight = 200
	DefaultStep   = 0.1

	// MaxPixels bounds any single window: 8192x8192 float64 samples.
	MaxPixels = 1 << 26
)

// ErrInvalidView is returned for windows with no pixels or a bad step.
var ErrInvalidView = errors.New("invalid view")

// View is a Width x Height pixel window whose top-left pixel sits at
// (OriginCol, OriginRow) on an infinite pixel lattice. Pixel (c, r) samples
// noise space at ((OriginCol+c)*Step, (OriginRow+r)*Step).
type View struct {
	OriginCol int     `json:"col"`
	OriginRow int     `json:"row"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Step      float64 `json:"step"`
}

// DefaultView returns the 200x200 window anchored at the origin.
func DefaultView() View {
	return View{Width: DefaultWidth, Height: DefaultHeight, Step: DefaultStep}
}

// Validate checks the window dimensions and step.
func (v View) Validate() error {
	return v.ValidateMax(MaxPixels)
}

// ValidateMax is Validate with a caller-chosen pixel cap. The cap is checked
// without forming Width*Height, which can overflow.
func (v View) ValidateMax(maxPixels int) error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d must be positive", ErrInvalidView, v.Width, v.Height)
	}
	if v.Width > maxPixels/v.Height {
		return fmt.Errorf("%w: size %dx%d exceeds %d pixels", ErrInvalidView, v.Width, v.Height, maxPixels)
	}
	if !(v.Step > 0) || math.IsInf(v.Step, 0) {
		return fmt.Errorf("%w: step must be positive and finite, got %g", ErrInvalidView, v.Step)
	}
	return nil
}

// Pan applies a pointer drag of (dx, dy) pixels. Dragging right moves the
// content right, so the origin moves left.
func (v View) Pan(dx, dy int) View {
	v.OriginCol -= dx
	v.OriginRow -= dy
	return v
}

// Point returns the noise-space coordinate sampled by pixel (col, row).
func (v View) Point(col, row int) (x, y float64) {
	return float64(v.OriginCol+col) * v.Step, float64(v.OriginRow+row) * v.Step
}

// Pixels returns Width*Height. Only meaningful for a validated view.
func (v View) Pixels() int {
	return v.Width * v.Height
}
