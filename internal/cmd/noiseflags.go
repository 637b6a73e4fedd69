package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/config"
	"github.com/MeKo-Tech/noisemap/internal/mask"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// noiseFlags are shared by every command that evaluates the field.
var noiseFlags = []string{
	"octaves", "lacunarity", "gain", "amplitude", "frequency",
	"palette", "smooth", "source", "interpolator", "seed", "preset",
	"sea-level", "shore-radius", "shore-gamma", "shore-strength",
}

// noiseSettings is everything needed to evaluate and colour the field.
type noiseSettings struct {
	Preset  config.Preset
	FBM     noise.FBMConfig
	Palette palette.Palette
	Source  noise.Source
	Shore   mask.Options
}

func addNoiseFlags(cmd *cobra.Command, prefix string) {
	d := noise.DefaultFBMConfig()
	f := cmd.Flags()
	f.Int("octaves", d.Octaves, "Number of FBM octaves (>= 1)")
	f.Float64("lacunarity", d.Lacunarity, "Frequency multiplier applied after each octave")
	f.Float64("gain", d.Gain, "Amplitude multiplier applied after each octave")
	f.Float64("amplitude", d.Amplitude, "Amplitude of the first octave")
	f.Float64("frequency", d.Frequency, "Frequency of the first octave")
	f.String("palette", palette.Default().String(), "Colour bands as upper:#rrggbb pairs on the normalised value")
	f.Bool("smooth", false, "Blend between band colours instead of hard thresholds")
	f.String("source", "lattice", "Noise source: lattice or perlin")
	f.String("interpolator", "linear", "Cell interpolation for the lattice source: linear, smoothstep, smootherstep")
	f.Int64("seed", 1337, "Seed for the perlin source (the lattice source is unseeded)")
	f.String("preset", "", "Load parameters from a YAML preset; explicit flags still win")

	shore := mask.DefaultOptions()
	f.Float64("sea-level", shore.Level, "Normalised value separating sea from land for shoreline shading")
	f.Float64("shore-radius", 0, "Shoreline shading reach in pixels (0 disables)")
	f.Float64("shore-gamma", shore.Gamma, "Shoreline falloff exponent (>1 keeps the shading close to the coast)")
	f.Float64("shore-strength", shore.Strength, "Lightness removed at the coastline, 0 to 1")

	for _, name := range noiseFlags {
		mustBindFlag(cmd, prefix+"."+flagKey(name), name)
	}
}

// loadNoiseSettings resolves the noise flags under prefix. Without a preset
// every value comes from viper (flags, config file, env). With a preset its
// values apply except for flags given explicitly on the command line.
func loadNoiseSettings(cmd *cobra.Command, prefix string) (noiseSettings, error) {
	key := func(name string) string { return prefix + "." + flagKey(name) }

	p := config.DefaultPreset()
	presetPath := viper.GetString(key("preset"))
	if presetPath != "" {
		loaded, err := config.LoadPreset(presetPath)
		if err != nil {
			return noiseSettings{}, err
		}
		p = loaded
	}
	use := func(name string) bool {
		return presetPath == "" || cmd.Flags().Changed(name)
	}

	if use("octaves") {
		p.FBM.Octaves = viper.GetInt(key("octaves"))
	}
	if use("lacunarity") {
		p.FBM.Lacunarity = viper.GetFloat64(key("lacunarity"))
	}
	if use("gain") {
		p.FBM.Gain = viper.GetFloat64(key("gain"))
	}
	if use("amplitude") {
		p.FBM.Amplitude = viper.GetFloat64(key("amplitude"))
	}
	if use("frequency") {
		p.FBM.Frequency = viper.GetFloat64(key("frequency"))
	}
	if use("palette") || p.Palette == "" {
		p.Palette = viper.GetString(key("palette"))
	}
	if use("smooth") {
		p.Smooth = viper.GetBool(key("smooth"))
	}
	if use("source") {
		p.Source = viper.GetString(key("source"))
	}
	if use("interpolator") {
		p.Interpolator = viper.GetString(key("interpolator"))
	}
	if use("seed") {
		p.Seed = viper.GetInt64(key("seed"))
	}

	settings, err := resolvePreset(p)
	if err != nil {
		return noiseSettings{}, err
	}
	settings.Shore = mask.Options{
		Level:     viper.GetFloat64(key("sea-level")),
		Radius:    viper.GetFloat64(key("shore-radius")),
		Gamma:     viper.GetFloat64(key("shore-gamma")),
		Strength:  viper.GetFloat64(key("shore-strength")),
		Antialias: mask.DefaultOptions().Antialias,
	}
	if err := settings.Shore.Validate(); err != nil {
		return noiseSettings{}, err
	}
	return settings, nil
}

func resolvePreset(p config.Preset) (noiseSettings, error) {
	if err := p.FBM.Validate(); err != nil {
		return noiseSettings{}, err
	}
	pal, err := palette.Parse(p.Palette)
	if err != nil {
		return noiseSettings{}, fmt.Errorf("invalid palette: %w", err)
	}
	pal.Smooth = p.Smooth
	src, err := noise.SourceByName(p.Source, p.Interpolator, p.Seed)
	if err != nil {
		return noiseSettings{}, err
	}
	return noiseSettings{Preset: p, FBM: p.FBM, Palette: pal, Source: src}, nil
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func mustBindFlag(cmd *cobra.Command, key, name string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
	}
}
