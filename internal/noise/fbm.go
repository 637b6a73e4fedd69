package noise

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig reports an FBMConfig that cannot produce a meaningful field.
var ErrInvalidConfig = errors.New("invalid fbm config")

// FBMConfig parameterises fractal Brownian motion. It is read-only to this
// package.
type FBMConfig struct {
	Amplitude  float64 `json:"amplitude" yaml:"amplitude"`
	Frequency  float64 `json:"frequency" yaml:"frequency"`
	Octaves    int     `json:"octaves" yaml:"octaves"`
	Lacunarity float64 `json:"lacunarity" yaml:"lacunarity"`
	Gain       float64 `json:"gain" yaml:"gain"`
}

// DefaultFBMConfig returns the classic eight octave setup: initial amplitude and
// frequency 1, lacunarity 0.5, gain 0.5.
func DefaultFBMConfig() FBMConfig {
	return FBMConfig{
		Amplitude:  1,
		Frequency:  1,
		Octaves:    8,
		Lacunarity: 0.5,
		Gain:       0.5,
	}
}

// Validate rejects configs with no octaves or non-positive initial amplitude
// or frequency. Zero gain or lacunarity is accepted; it only collapses the
// later octaves.
func (c FBMConfig) Validate() error {
	if c.Octaves < 1 {
		return fmt.Errorf("%w: octaves must be >= 1, got %d", ErrInvalidConfig, c.Octaves)
	}
	if !(c.Amplitude > 0) {
		return fmt.Errorf("%w: amplitude must be > 0, got %g", ErrInvalidConfig, c.Amplitude)
	}
	if !(c.Frequency > 0) {
		return fmt.Errorf("%w: frequency must be > 0, got %g", ErrInvalidConfig, c.Frequency)
	}
	return nil
}

// MaxAmplitude returns the sum of the per-octave amplitudes, which bounds
// |FBM| whenever the underlying source stays within [-1, 1].
func (c FBMConfig) MaxAmplitude() float64 {
	if c.Octaves < 1 {
		return 0
	}
	g := math.Abs(c.Gain)
	if g == 1 {
		return c.Amplitude * float64(c.Octaves)
	}
	return c.Amplitude * (1 - math.Pow(g, float64(c.Octaves))) / (1 - g)
}

// FBM layers the lattice field over cfg.Octaves octaves. Frequency and
// amplitude are scaled after each octave is accumulated. No normalisation is
// applied, and a config with fewer than one octave yields 0.
func FBM(x, y float64, cfg FBMConfig) float64 {
	return FBMWith(Lattice{}, x, y, cfg)
}

// FBMWith is FBM over an arbitrary source.
func FBMWith(src Source, x, y float64, cfg FBMConfig) float64 {
	amplitude := cfg.Amplitude
	frequency := cfg.Frequency
	sum := 0.0

	for i := 0; i < cfg.Octaves; i++ {
		sum += amplitude * src.Noise(x*frequency, y*frequency)
		frequency *= cfg.Lacunarity
		amplitude *= cfg.Gain
	}

	return sum
}

// Evaluate is the entry point used by rendering layers.
func Evaluate(x, y float64, cfg FBMConfig) float64 {
	return FBM(x, y, cfg)
}
