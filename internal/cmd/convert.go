package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/mbtiles"
	"github.com/MeKo-Tech/noisemap/internal/tile"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert folder tiles to MBTiles format",
	Long: `Pack flat z{z}_x{x}_y{y}.png tiles from a folder into an MBTiles archive.
The FBM flags are recorded in the archive metadata; pass the ones the tiles
were generated with.`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	f := convertCmd.Flags()
	f.String("input-dir", "./tiles", "Input directory containing tiles")
	f.StringP("output", "o", "", "Output MBTiles file path (required)")
	f.String("name", "noisemap", "Tileset name")
	f.String("description", "Fractal Brownian motion noise tiles", "Tileset description")
	f.Bool("hidpi", false, "Pack the @2x tiles instead of the base tiles")
	f.Int("tile-size", 256, "Pixel size of the base tiles, recorded in metadata")
	f.Float64("base-span", tile.DefaultBaseSpan, "Noise units covered by the zoom 0 tile")
	addNoiseFlags(convertCmd, "convert")

	for _, name := range []string{"input-dir", "output", "name", "description", "hidpi", "tile-size", "base-span"} {
		mustBindFlag(convertCmd, "convert."+flagKey(name), name)
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputDir := viper.GetString("convert.input_dir")
	outputFile := viper.GetString("convert.output")
	hidpi := viper.GetBool("convert.hidpi")
	baseSpan := viper.GetFloat64("convert.base_span")
	tileSize := viper.GetInt("convert.tile_size")

	if logger == nil {
		initLogging()
	}

	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}
	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s", inputDir)
	}
	settings, err := loadNoiseSettings(cmd, "convert")
	if err != nil {
		return err
	}

	suffix := ""
	if hidpi {
		suffix = "@2x"
		tileSize *= 2
	}

	logger.Info("Converting folder tiles to MBTiles", "input_dir", inputDir, "output", outputFile, "hidpi", hidpi)

	tiles, err := scanTilesDirectory(inputDir, suffix)
	if err != nil {
		return fmt.Errorf("failed to scan tiles directory: %w", err)
	}
	if len(tiles) == 0 {
		return fmt.Errorf("no tiles found in %s", inputDir)
	}

	minZoom, maxZoom, bound := tileExtent(tiles, baseSpan)
	logger.Info("Found tiles", "count", len(tiles), "min_zoom", minZoom, "max_zoom", maxZoom)

	writer, err := mbtiles.New(outputFile, mbtiles.Metadata{
		Name:        viper.GetString("convert.name"),
		Format:      "png",
		Description: viper.GetString("convert.description"),
		Type:        "baselayer",
		Version:     "1.0",
		Bounds:      [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
		FBM:         settings.FBM,
		BaseSpan:    baseSpan,
		TileSize:    tileSize,
		Palette:     settings.Palette.String(),
		Source:      settings.Preset.Source,
	})
	if err != nil {
		return fmt.Errorf("failed to create MBTiles writer: %w", err)
	}

	converted := 0
	for _, t := range tiles {
		data, err := os.ReadFile(t.path)
		if err != nil {
			logger.Error("Failed to read tile", "path", t.path, "error", err)
			continue
		}
		if err := writer.WriteTile(t.coords, data); err != nil {
			logger.Error("Failed to write tile", "coords", t.coords.String(), "error", err)
			continue
		}
		converted++
		if converted%100 == 0 {
			logger.Info("Progress", "converted", converted, "total", len(tiles))
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize MBTiles: %w", err)
	}

	logger.Info("Conversion complete", "output", outputFile, "tiles", converted)
	return nil
}

type tileFile struct {
	coords tile.Coords
	path   string
}

// scanTilesDirectory finds flat tile files carrying exactly the given suffix.
func scanTilesDirectory(dir, suffix string) ([]tileFile, error) {
	var tiles []tileFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name, ok := strings.CutSuffix(d.Name(), suffix+".png")
		if !ok {
			return nil
		}
		coords, err := tile.ParseCoords(name)
		if err != nil {
			// Includes @2x files when packing base tiles.
			return nil
		}
		tiles = append(tiles, tileFile{coords: coords, path: path})
		return nil
	})
	return tiles, err
}

// tileExtent returns the zoom range and the noise-space bound of tiles.
func tileExtent(tiles []tileFile, baseSpan float64) (minZoom, maxZoom int, bound orb.Bound) {
	minZoom = int(tiles[0].coords.Z)
	maxZoom = minZoom
	bound = tiles[0].coords.Bound(baseSpan)
	for _, t := range tiles[1:] {
		z := int(t.coords.Z)
		minZoom = min(minZoom, z)
		maxZoom = max(maxZoom, z)
		bound = bound.Union(t.coords.Bound(baseSpan))
	}
	return minZoom, maxZoom, bound
}
