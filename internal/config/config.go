// Package config holds FBM parameter ranges and YAML presets.
package config

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/noisemap/internal/noise"
	"gopkg.in/yaml.v3"
)

// FloatRange is an inclusive bound with a UI step.
type FloatRange struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// Contains reports whether v lies within the range.
func (r FloatRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp limits v to the range.
func (r FloatRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// ParamRanges are the interactive limits for each FBM parameter.
type ParamRanges struct {
	OctavesMin int        `yaml:"octaves_min" json:"octaves_min"`
	OctavesMax int        `yaml:"octaves_max" json:"octaves_max"`
	Lacunarity FloatRange `yaml:"lacunarity" json:"lacunarity"`
	Gain       FloatRange `yaml:"gain" json:"gain"`
	Amplitude  FloatRange `yaml:"amplitude" json:"amplitude"`
	Frequency  FloatRange `yaml:"frequency" json:"frequency"`
}

// Ranges are the slider limits of the interactive viewer.
var Ranges = ParamRanges{
	OctavesMin: 1,
	OctavesMax: 10,
	Lacunarity: FloatRange{Min: 0.1, Max: 2, Step: 0.1},
	Gain:       FloatRange{Min: 0.1, Max: 2, Step: 0.1},
	Amplitude:  FloatRange{Min: 0.1, Max: 2, Step: 0.1},
	Frequency:  FloatRange{Min: 0.1, Max: 2, Step: 0.1},
}

// Check returns an error naming the first parameter outside the ranges.
func (r ParamRanges) Check(cfg noise.FBMConfig) error {
	if cfg.Octaves < r.OctavesMin || cfg.Octaves > r.OctavesMax {
		return fmt.Errorf("octaves %d outside [%d, %d]", cfg.Octaves, r.OctavesMin, r.OctavesMax)
	}
	checks := []struct {
		name string
		v    float64
		r    FloatRange
	}{
		{"lacunarity", cfg.Lacunarity, r.Lacunarity},
		{"gain", cfg.Gain, r.Gain},
		{"amplitude", cfg.Amplitude, r.Amplitude},
		{"frequency", cfg.Frequency, r.Frequency},
	}
	for _, c := range checks {
		if !c.r.Contains(c.v) {
			return fmt.Errorf("%s %g outside [%g, %g]", c.name, c.v, c.r.Min, c.r.Max)
		}
	}
	return nil
}

// Clamp forces every parameter into the ranges.
func (r ParamRanges) Clamp(cfg noise.FBMConfig) noise.FBMConfig {
	if cfg.Octaves < r.OctavesMin {
		cfg.Octaves = r.OctavesMin
	}
	if cfg.Octaves > r.OctavesMax {
		cfg.Octaves = r.OctavesMax
	}
	cfg.Lacunarity = r.Lacunarity.Clamp(cfg.Lacunarity)
	cfg.Gain = r.Gain.Clamp(cfg.Gain)
	cfg.Amplitude = r.Amplitude.Clamp(cfg.Amplitude)
	cfg.Frequency = r.Frequency.Clamp(cfg.Frequency)
	return cfg
}

// Preset is a named, reusable set of rendering parameters.
type Preset struct {
	Name         string          `yaml:"name"`
	FBM          noise.FBMConfig `yaml:"fbm"`
	Palette      string          `yaml:"palette,omitempty"`
	Smooth       bool            `yaml:"smooth,omitempty"`
	Source       string          `yaml:"source,omitempty"`
	Interpolator string          `yaml:"interpolator,omitempty"`
	Seed         int64           `yaml:"seed,omitempty"`
}

// DefaultPreset mirrors the viewer's start-up state.
func DefaultPreset() Preset {
	return Preset{
		Name:         "default",
		FBM:          noise.DefaultFBMConfig(),
		Source:       "lattice",
		Interpolator: "linear",
	}
}

// LoadPreset reads a preset from a YAML file. Fields missing from the file
// keep their DefaultPreset values.
func LoadPreset(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("reading preset: %w", err)
	}

	p := DefaultPreset()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("parsing preset %s: %w", path, err)
	}
	if err := p.FBM.Validate(); err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", path, err)
	}
	return p, nil
}

// WritePreset saves p as YAML.
func WritePreset(path string, p Preset) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing preset: %w", err)
	}
	return nil
}
