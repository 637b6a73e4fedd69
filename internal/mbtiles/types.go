// Package mbtiles stores rendered noise tiles in an MBTiles (SQLite) archive.
package mbtiles

import (
	"strconv"

	"github.com/MeKo-Tech/noisemap/internal/noise"
)

// Metadata describes a tileset. Besides the standard MBTiles keys it records
// the parameters the tiles were rendered with, so an archive can be
// regenerated or extended consistently.
type Metadata struct {
	Name        string     `json:"name"`
	Format      string     `json:"format"` // png
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type,omitempty"` // baselayer or overlay
	Version     string     `json:"version,omitempty"`
	Bounds      [4]float64 `json:"bounds"` // minX,minY,maxX,maxY in noise units
	MinZoom     int        `json:"minzoom"`
	MaxZoom     int        `json:"maxzoom"`

	FBM      noise.FBMConfig `json:"fbm"`
	BaseSpan float64         `json:"base_span,omitempty"`
	TileSize int             `json:"tile_size,omitempty"`
	Palette  string          `json:"palette,omitempty"`
	Source   string          `json:"source,omitempty"`
}

const (
	keyOctaves    = "fbm_octaves"
	keyAmplitude  = "fbm_amplitude"
	keyFrequency  = "fbm_frequency"
	keyLacunarity = "fbm_lacunarity"
	keyGain       = "fbm_gain"
	keyBaseSpan   = "base_span"
	keyTileSize   = "tile_size"
	keyPalette    = "palette"
	keySource     = "noise_source"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToMap converts Metadata to name/value rows. Zero values are omitted.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	set := func(k, v string) {
		if v != "" {
			result[k] = v
		}
	}
	set("name", m.Name)
	set("format", m.Format)
	set("description", m.Description)
	set("type", m.Type)
	set("version", m.Version)
	set(keyPalette, m.Palette)
	set(keySource, m.Source)

	result["minzoom"] = strconv.Itoa(m.MinZoom)
	if m.MaxZoom > 0 {
		result["maxzoom"] = strconv.Itoa(m.MaxZoom)
	}
	if m.Bounds != [4]float64{} {
		result["bounds"] = formatFloat(m.Bounds[0]) + "," + formatFloat(m.Bounds[1]) + "," +
			formatFloat(m.Bounds[2]) + "," + formatFloat(m.Bounds[3])
	}

	if m.FBM.Octaves > 0 {
		result[keyOctaves] = strconv.Itoa(m.FBM.Octaves)
		result[keyAmplitude] = formatFloat(m.FBM.Amplitude)
		result[keyFrequency] = formatFloat(m.FBM.Frequency)
		result[keyLacunarity] = formatFloat(m.FBM.Lacunarity)
		result[keyGain] = formatFloat(m.FBM.Gain)
	}
	if m.BaseSpan > 0 {
		result[keyBaseSpan] = formatFloat(m.BaseSpan)
	}
	if m.TileSize > 0 {
		result[keyTileSize] = strconv.Itoa(m.TileSize)
	}

	return result
}
