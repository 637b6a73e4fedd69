package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/mbtiles"
	"github.com/MeKo-Tech/noisemap/internal/pipeline"
	"github.com/MeKo-Tech/noisemap/internal/tile"
	"github.com/MeKo-Tech/noisemap/internal/worker"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate noise tiles",
	Long: `Generate slippy tiles of the noise plane. The zoom 0 tile spans --base-span
noise units and its top-left corner sits at the origin; tile indices may be
negative. Give --bbox (in noise units) with a zoom range for batch mode.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	f := generateCmd.Flags()
	// Single tile flags
	f.IntP("zoom", "z", 0, "Zoom level (for single tile mode)")
	f.IntP("x", "x", 0, "X tile index (for single tile mode)")
	f.IntP("y", "y", 0, "Y tile index (for single tile mode)")

	// Batch generation flags
	f.String("bbox", "", "Bounding box in noise units: minX,minY,maxX,maxY (e.g. \"-10,-10,10,10\")")
	f.Int("zoom-min", 0, "Minimum zoom level for batch generation")
	f.Int("zoom-max", 0, "Maximum zoom level for batch generation")
	f.IntP("workers", "w", 0, "Number of parallel tile workers (default: number of CPUs)")
	f.Bool("progress", true, "Show progress bar during batch generation")
	f.Bool("allow-failures", false, "Exit successfully even if some tiles fail")

	// Common flags
	f.Bool("force", false, "Force regeneration even if tile exists")
	f.Int("tile-size", 256, "Tile size in pixels")
	f.Float64("base-span", tile.DefaultBaseSpan, "Noise units covered by the zoom 0 tile")
	f.Bool("hidpi", false, "Also generate a 2x (@2x) tile alongside the base tile")
	f.String("png-compression", "default", "PNG compression (default, speed, best, none)")
	f.Float32("blur", 0, "Gaussian blur sigma applied to each tile (0 disables)")
	f.Bool("caption", false, "Stamp tile coordinates onto each tile")

	// Output format flags
	f.String("format", "folder", "Output format: folder or mbtiles")
	f.String("output-file", "", "Output file path for MBTiles format (e.g., noise.mbtiles)")
	f.String("folder-structure", "flat", "Folder structure for folder format: flat (z{z}_x{x}_y{y}.png) or nested ({z}/{x}/{y}.png)")

	addNoiseFlags(generateCmd, "generate")

	for _, name := range []string{
		"zoom", "x", "y", "bbox", "zoom-min", "zoom-max", "workers", "progress", "allow-failures",
		"force", "tile-size", "base-span", "hidpi", "png-compression", "blur", "caption",
		"format", "output-file", "folder-structure",
	} {
		mustBindFlag(generateCmd, "generate."+flagKey(name), name)
	}
}

// generateJob carries the resolved generate flags.
type generateJob struct {
	settings        noiseSettings
	outputDir       string
	pngCompression  string
	format          string
	outputFile      string
	folderStructure string
	tileSize        int
	workers         int
	baseSpan        float64
	blur            float32
	caption         bool
	force           bool
	hidpi           bool
	showProgress    bool
	allowFailures   bool
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	settings, err := loadNoiseSettings(cmd, "generate")
	if err != nil {
		return err
	}

	job := generateJob{
		settings:        settings,
		outputDir:       viper.GetString("output-dir"),
		pngCompression:  viper.GetString("generate.png_compression"),
		format:          viper.GetString("generate.format"),
		outputFile:      viper.GetString("generate.output_file"),
		folderStructure: viper.GetString("generate.folder_structure"),
		tileSize:        viper.GetInt("generate.tile_size"),
		workers:         viper.GetInt("generate.workers"),
		baseSpan:        viper.GetFloat64("generate.base_span"),
		blur:            float32(viper.GetFloat64("generate.blur")),
		caption:         viper.GetBool("generate.caption"),
		force:           viper.GetBool("generate.force"),
		hidpi:           viper.GetBool("generate.hidpi"),
		showProgress:    viper.GetBool("generate.progress"),
		allowFailures:   viper.GetBool("generate.allow_failures"),
	}
	bbox := viper.GetString("generate.bbox")

	if job.format != "folder" && job.format != "mbtiles" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'mbtiles'", job.format)
	}
	if job.folderStructure != "flat" && job.folderStructure != "nested" {
		return fmt.Errorf("invalid folder-structure %q: must be 'flat' or 'nested'", job.folderStructure)
	}
	if !(job.baseSpan > 0) {
		return fmt.Errorf("--base-span must be positive")
	}
	if job.format == "mbtiles" {
		if job.outputFile == "" {
			return fmt.Errorf("--output-file is required when using --format=mbtiles")
		}
		if bbox == "" {
			return fmt.Errorf("mbtiles format requires batch generation (use --bbox)")
		}
	}

	if bbox != "" {
		return runBatchGenerate(job, bbox, viper.GetInt("generate.zoom_min"), viper.GetInt("generate.zoom_max"))
	}
	return runSingleGenerate(job, viper.GetInt("generate.zoom"), viper.GetInt("generate.x"), viper.GetInt("generate.y"))
}

// newGenerator builds the generator for one pixel density. rowWorkers 0 lets
// a single tile use every CPU; batch runs parallelise across tiles instead.
func (j generateJob) newGenerator(hidpi bool, writer pipeline.TileWriter, rowWorkers int) (*pipeline.Generator, error) {
	size, suffix := j.tileSize, ""
	if hidpi {
		size, suffix = j.tileSize*2, "@2x"
	}
	return pipeline.NewGenerator(j.outputDir, size, logger, pipeline.GeneratorOptions{
		FBM:             j.settings.FBM,
		Palette:         j.settings.Palette,
		Source:          j.settings.Source,
		BaseSpan:        j.baseSpan,
		Shore:           j.settings.Shore,
		Post:            field.PostOptions{BlurSigma: j.blur},
		Caption:         j.caption,
		RowWorkers:      rowWorkers,
		PNGCompression:  j.pngCompression,
		TileWriter:      writer,
		FolderStructure: j.folderStructure,
		Suffix:          suffix,
	})
}

func runSingleGenerate(job generateJob, zoom, x, y int) error {
	if zoom < 0 || zoom > tile.MaxZoom {
		return fmt.Errorf("invalid zoom %d: must be within [0, %d]", zoom, tile.MaxZoom)
	}
	coords := tile.NewCoords(uint32(zoom), x, y)

	logger.Info("Starting tile generation",
		"coords", coords.String(),
		"output_dir", job.outputDir,
		"force", job.force,
		"tile_size", job.tileSize,
		"hidpi", job.hidpi,
		"bound", coords.Bound(job.baseSpan),
	)

	variants := []bool{false}
	if job.hidpi {
		variants = append(variants, true)
	}
	for _, hidpi := range variants {
		gen, err := job.newGenerator(hidpi, nil, 0)
		if err != nil {
			return fmt.Errorf("failed to init generator: %w", err)
		}
		path, err := gen.Generate(context.Background(), coords, job.force)
		if err != nil {
			return fmt.Errorf("failed to generate tile: %w", err)
		}
		logger.Info("Tile generated", "coords", coords.String(), "path", path, "hidpi", hidpi)
	}
	return nil
}

func runBatchGenerate(job generateJob, bboxStr string, zoomMin, zoomMax int) error {
	bound, err := parseBBox(bboxStr)
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}
	if zoomMin < 0 || zoomMax > tile.MaxZoom {
		return fmt.Errorf("zoom range must be within [0, %d]", tile.MaxZoom)
	}
	if zoomMin > zoomMax {
		return fmt.Errorf("--zoom-min (%d) must be <= --zoom-max (%d)", zoomMin, zoomMax)
	}

	workers := job.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	tiles := tile.TilesInBound(bound, zoomMin, zoomMax, job.baseSpan)

	logger.Info("Starting batch tile generation",
		"bbox", bboxStr,
		"zoom_range", fmt.Sprintf("%d-%d", zoomMin, zoomMax),
		"tiles", len(tiles),
		"hidpi", job.hidpi,
		"workers", workers,
		"format", job.format,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	variants := []bool{false}
	if job.hidpi {
		variants = append(variants, true)
	}

	for _, hidpi := range variants {
		label := "base"
		if hidpi {
			label = "HiDPI"
		}

		var writer *mbtiles.Writer
		var tileWriter pipeline.TileWriter
		if job.format == "mbtiles" {
			path := job.outputFile
			if hidpi {
				path = strings.TrimSuffix(path, ".mbtiles") + "@2x.mbtiles"
			}
			size := job.tileSize
			if hidpi {
				size *= 2
			}
			writer, err = mbtiles.New(path, job.metadata(bound, zoomMin, zoomMax, size))
			if err != nil {
				return fmt.Errorf("failed to create MBTiles writer: %w", err)
			}
			tileWriter = writer
			logger.Info("MBTiles writer created", "path", path)
		}

		gen, err := job.newGenerator(hidpi, tileWriter, 1)
		if err != nil {
			if writer != nil {
				writer.Close() // nolint:errcheck
			}
			return fmt.Errorf("failed to init %s generator: %w", label, err)
		}

		failed := runTiles(ctx, job, gen, tiles, workers, label)

		if writer != nil {
			if err := writer.Close(); err != nil {
				return fmt.Errorf("failed to finalize %s MBTiles: %w", label, err)
			}
		}
		if ctx.Err() != nil {
			return fmt.Errorf("generation cancelled: %w", ctx.Err())
		}
		if failed > 0 {
			if !job.allowFailures {
				return fmt.Errorf("%d %s tiles failed to generate", failed, label)
			}
			logger.Warn("Some tiles failed to generate, but continuing due to --allow-failures flag", "kind", label, "failed_count", failed)
		}
	}

	return nil
}

// runTiles renders tiles through the worker pool and returns the failure count.
func runTiles(ctx context.Context, job generateJob, gen worker.Generator, tiles []tile.Coords, workers int, label string) int {
	tasks := worker.Tasks(tiles, job.force)
	progress := worker.NewProgress(len(tasks), "tiles", job.showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
	})

	logger.Info("Generating tiles", "kind", label, "count", len(tasks))
	results := pool.Run(ctx, tasks)
	progress.Done()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("Tile generation failed", "kind", label, "coords", r.Task.Coords.String(), "error", r.Err)
		}
	}
	logger.Info(progress.Summary())
	return failed
}

func (j generateJob) metadata(bound orb.Bound, zoomMin, zoomMax, tileSize int) mbtiles.Metadata {
	return mbtiles.Metadata{
		Name:        "noisemap",
		Format:      "png",
		Description: "Fractal Brownian motion noise tiles",
		Type:        "baselayer",
		Version:     "1.0",
		Bounds:      [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		MinZoom:     zoomMin,
		MaxZoom:     zoomMax,
		FBM:         j.settings.FBM,
		BaseSpan:    j.baseSpan,
		TileSize:    tileSize,
		Palette:     j.settings.Palette.String(),
		Source:      j.settings.Preset.Source,
	}
}

// parseBBox parses "minX,minY,maxX,maxY" in noise units.
func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var v [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		v[i] = val
	}

	if v[0] >= v[2] {
		return orb.Bound{}, fmt.Errorf("minX (%.4f) must be < maxX (%.4f)", v[0], v[2])
	}
	if v[1] >= v[3] {
		return orb.Bound{}, fmt.Errorf("minY (%.4f) must be < maxY (%.4f)", v[1], v[3])
	}

	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
