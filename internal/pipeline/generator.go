// Package pipeline turns tile coordinates into encoded noise tiles.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/mask"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/MeKo-Tech/noisemap/internal/tile"
)

// TileWriter receives encoded tiles instead of the filesystem.
// *mbtiles.Writer satisfies it.
type TileWriter interface {
	WriteTile(coords tile.Coords, data []byte) error
}

// GeneratorOptions configures what a Generator renders and where it goes.
type GeneratorOptions struct {
	FBM     noise.FBMConfig
	Palette palette.Palette
	// Source defaults to the lattice field.
	Source noise.Source
	// BaseSpan is the noise-space width of the zoom 0 tile.
	BaseSpan float64
	// Shore darkens land near the sea level contour. Zero disables it.
	Shore mask.Options
	Post  field.PostOptions
	// Caption stamps the tile coordinates onto each tile.
	Caption bool
	// RowWorkers bounds per-tile row parallelism (default: NumCPU).
	RowWorkers int

	// PNGCompression is one of default, speed, best, none.
	PNGCompression string
	// TileWriter, when set, receives tiles instead of OutputDir.
	TileWriter TileWriter
	// FolderStructure is flat (z{z}_x{x}_y{y}.png) or nested ({z}/{x}/{y}.png).
	FolderStructure string
	// Suffix is appended to file names, e.g. "@2x".
	Suffix string
}

// Generator renders single noise tiles.
type Generator struct {
	renderer  *field.Renderer
	writer    TileWriter
	logger    *slog.Logger
	encoder   png.Encoder
	opts      GeneratorOptions
	outputDir string
	tileSize  int
}

// NewGenerator validates opts and prepares a generator writing tiles of
// tileSize pixels to outputDir.
func NewGenerator(outputDir string, tileSize int, logger *slog.Logger, opts GeneratorOptions) (*Generator, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive")
	}
	if err := opts.FBM.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Palette.Bands) == 0 {
		opts.Palette = palette.Default()
	}
	if err := opts.Palette.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Shore.Validate(); err != nil {
		return nil, err
	}
	if opts.BaseSpan <= 0 {
		opts.BaseSpan = tile.DefaultBaseSpan
	}
	if opts.FolderStructure == "" {
		opts.FolderStructure = "flat"
	}
	if opts.FolderStructure != "flat" && opts.FolderStructure != "nested" {
		return nil, fmt.Errorf("invalid folder structure %q: must be 'flat' or 'nested'", opts.FolderStructure)
	}
	level, err := ParseCompression(opts.PNGCompression)
	if err != nil {
		return nil, err
	}

	return &Generator{
		renderer: &field.Renderer{
			Source:  opts.Source,
			Workers: opts.RowWorkers,
			Logger:  logger,
		},
		writer:    opts.TileWriter,
		logger:    logger,
		encoder:   png.Encoder{CompressionLevel: level},
		opts:      opts,
		outputDir: outputDir,
		tileSize:  tileSize,
	}, nil
}

// ParseCompression maps a flag value to a PNG compression level.
func ParseCompression(s string) (png.CompressionLevel, error) {
	switch s {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	default:
		return 0, fmt.Errorf("invalid png compression %q: must be default, speed, best or none", s)
	}
}

// TileSize is the rendered edge length in pixels.
func (g *Generator) TileSize() int { return g.tileSize }

// TilePath returns where a tile lands in the output folder.
func (g *Generator) TilePath(coords tile.Coords) string {
	name := coords.Path("png")
	if g.opts.FolderStructure == "nested" {
		name = coords.NestedPath("png")
	}
	if g.opts.Suffix != "" {
		name = name[:len(name)-len(".png")] + g.opts.Suffix + ".png"
	}
	return filepath.Join(g.outputDir, filepath.FromSlash(name))
}

// Render produces the coloured tile image.
func (g *Generator) Render(ctx context.Context, coords tile.Coords) (image.Image, error) {
	view := coords.View(g.tileSize, g.opts.BaseSpan)
	colored, err := mask.Render(ctx, g.renderer, view, g.opts.FBM, g.opts.Palette, g.opts.Shore)
	if err != nil {
		return nil, fmt.Errorf("failed to render field: %w", err)
	}

	img := field.PostProcess(colored, g.opts.Post)

	if g.opts.Caption {
		if dst, ok := img.(draw.Image); ok {
			field.Caption(dst, coords.String())
		}
	}
	return img, nil
}

// Encode renders coords and returns the PNG bytes.
func (g *Generator) Encode(ctx context.Context, coords tile.Coords) ([]byte, error) {
	img, err := g.Render(ctx, coords)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := g.encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode tile: %w", err)
	}
	return buf.Bytes(), nil
}

// Generate renders coords and stores the result. With a TileWriter the
// returned path is empty. Existing files are kept unless force is set.
func (g *Generator) Generate(ctx context.Context, coords tile.Coords, force bool) (string, error) {
	if g.writer != nil {
		data, err := g.Encode(ctx, coords)
		if err != nil {
			return "", err
		}
		if err := g.writer.WriteTile(coords, data); err != nil {
			return "", fmt.Errorf("failed to write tile %s: %w", coords, err)
		}
		g.log().Debug("Tile written", "coords", coords.String(), "bytes", len(data))
		return "", nil
	}

	finalPath := g.TilePath(coords)
	if !force {
		if _, err := os.Stat(finalPath); err == nil {
			g.log().Debug("Tile already exists; skipping", "coords", coords.String(), "path", finalPath)
			return finalPath, nil
		}
	}

	data, err := g.Encode(ctx, coords)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	// Write then rename so concurrent readers never see a partial PNG.
	tmp := finalPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write tile file: %w", err)
	}
	if err := os.Rename(tmp, finalPath); err != nil {
		return "", fmt.Errorf("failed to move tile into place: %w", err)
	}

	g.log().Info("Tile generated", "coords", coords.String(), "path", finalPath)
	return finalPath, nil
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
