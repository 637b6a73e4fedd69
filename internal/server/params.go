package server

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/config"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/tile"
)

// fbmFromQuery overlays octaves, lacunarity, gain, amplitude and frequency
// query parameters on base. Any override puts the whole result under
// config.Ranges; a request without overrides gets base unchecked.
func fbmFromQuery(base noise.FBMConfig, q url.Values) (noise.FBMConfig, bool, error) {
	cfg := base
	overridden := false

	if s := q.Get("octaves"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return cfg, false, fmt.Errorf("invalid octaves %q", s)
		}
		cfg.Octaves = v
		overridden = true
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"lacunarity", &cfg.Lacunarity},
		{"gain", &cfg.Gain},
		{"amplitude", &cfg.Amplitude},
		{"frequency", &cfg.Frequency},
	}
	for _, f := range floats {
		s := q.Get(f.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return cfg, false, fmt.Errorf("invalid %s %q", f.name, s)
		}
		*f.dst = v
		overridden = true
	}

	if overridden {
		if err := config.Ranges.Check(cfg); err != nil {
			return cfg, false, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, overridden, nil
}

// configKey names the cache directory for a config.
func configKey(cfg noise.FBMConfig) string {
	return fmt.Sprintf("o%d_l%g_g%g_a%g_f%g", cfg.Octaves, cfg.Lacunarity, cfg.Gain, cfg.Amplitude, cfg.Frequency)
}

func intParam(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func parseTilePath(requestPath string) (tile.Coords, string, bool) {
	// Expect: /tiles/z3_x-4_y2.png or /tiles/z3_x-4_y2@2x.png
	if !strings.HasPrefix(requestPath, "/tiles/") {
		return tile.Coords{}, "", false
	}
	base := path.Base(requestPath)
	if !strings.HasSuffix(base, ".png") {
		return tile.Coords{}, "", false
	}
	name := strings.TrimSuffix(base, ".png")
	suffix := ""
	if strings.HasSuffix(name, "@2x") {
		suffix = "@2x"
		name = strings.TrimSuffix(name, "@2x")
	}

	coords, err := tile.ParseCoords(name)
	if err != nil {
		return tile.Coords{}, "", false
	}
	return coords, suffix, true
}

func tileSizeForSuffix(base int, suffix string) int {
	if suffix == "@2x" {
		return base * 2
	}
	return base
}
