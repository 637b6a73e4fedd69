package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRanges_Check(t *testing.T) {
	require.NoError(t, Ranges.Check(noise.DefaultFBMConfig()))

	cfg := noise.DefaultFBMConfig()
	cfg.Octaves = 11
	assert.ErrorContains(t, Ranges.Check(cfg), "octaves")

	cfg = noise.DefaultFBMConfig()
	cfg.Gain = 2.5
	assert.ErrorContains(t, Ranges.Check(cfg), "gain")

	cfg = noise.DefaultFBMConfig()
	cfg.Frequency = 0.05
	assert.ErrorContains(t, Ranges.Check(cfg), "frequency")
}

func TestRanges_Clamp(t *testing.T) {
	cfg := Ranges.Clamp(noise.FBMConfig{Amplitude: 5, Frequency: 0, Octaves: 0, Lacunarity: 3, Gain: -1})
	assert.Equal(t, noise.FBMConfig{Amplitude: 2, Frequency: 0.1, Octaves: 1, Lacunarity: 2, Gain: 0.1}, cfg)
	require.NoError(t, Ranges.Check(cfg))
}

func TestPreset_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.yaml")

	p := DefaultPreset()
	p.Name = "islands"
	p.FBM.Octaves = 5
	p.FBM.Lacunarity = 2
	p.Palette = "0.3:#0000ff,1:#ffffff"

	require.NoError(t, WritePreset(path, p))

	got, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestLoadPreset_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fbm:\n  octaves: 3\n"), 0o644))

	got, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.FBM.Octaves)
	assert.Equal(t, 0.5, got.FBM.Gain)
	assert.Equal(t, "lattice", got.Source)
}

func TestLoadPreset_RejectsInvalidFBM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fbm:\n  octaves: 0\n"), 0o644))

	_, err := LoadPreset(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, noise.ErrInvalidConfig))
}

func TestLoadPreset_MissingFile(t *testing.T) {
	_, err := LoadPreset(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
