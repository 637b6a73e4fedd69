package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/config"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePreset(t *testing.T) {
	p := config.DefaultPreset()
	p.Palette = palette.Default().String()
	p.Smooth = true

	s, err := resolvePreset(p)
	require.NoError(t, err)
	assert.Equal(t, noise.DefaultFBMConfig(), s.FBM)
	assert.True(t, s.Palette.Smooth)
	assert.Len(t, s.Palette.Bands, 4)
	assert.IsType(t, noise.Lattice{}, s.Source)
}

func TestResolvePreset_Errors(t *testing.T) {
	base := config.DefaultPreset()
	base.Palette = palette.Default().String()

	bad := base
	bad.FBM.Octaves = 0
	_, err := resolvePreset(bad)
	assert.ErrorIs(t, err, noise.ErrInvalidConfig)

	bad = base
	bad.Palette = "0.5:#000000,0.2:#ffffff"
	_, err = resolvePreset(bad)
	assert.ErrorIs(t, err, palette.ErrInvalidThresholds)

	bad = base
	bad.Source = "simplex"
	_, err = resolvePreset(bad)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false, "text").Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, true, "json").Debug("shown", "k", 1)
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "png_compression", flagKey("png-compression"))
	assert.Equal(t, "octaves", flagKey("octaves"))
}
