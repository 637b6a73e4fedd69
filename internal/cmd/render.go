package cmd

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/noisemap/internal/config"
	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/mask"
	"github.com/MeKo-Tech/noisemap/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one window of the noise field to a PNG",
	Long: `Render a width x height pixel window of the FBM field. Pixel (c, r) samples
noise space at ((col+c)*step, (row+r)*step); shift --col/--row to pan.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	f := renderCmd.Flags()
	f.Int("col", 0, "Pixel column of the window's left edge")
	f.Int("row", 0, "Pixel row of the window's top edge")
	f.Int("width", field.DefaultWidth, "Window width in pixels")
	f.Int("height", field.DefaultHeight, "Window height in pixels")
	f.Float64("step", field.DefaultStep, "Noise units per pixel")
	f.StringP("output", "o", "noisemap.png", "Output PNG path")
	f.Bool("gray", false, "Write the normalised heightmap instead of the coloured bands")
	f.Float32("blur", 0, "Gaussian blur sigma applied after colouring (0 disables)")
	f.Int("scale", 1, "Nearest-neighbour upscale factor")
	f.String("caption", "", "Text stamped in the top-left corner")
	f.String("png-compression", "default", "PNG compression (default, speed, best, none)")
	f.Int("workers", 0, "Parallel row workers (default: number of CPUs)")
	f.String("save-preset", "", "Also write the effective parameters to this YAML preset")
	addNoiseFlags(renderCmd, "render")

	for _, name := range []string{"col", "row", "width", "height", "step", "output", "gray", "blur", "scale", "caption", "png-compression", "workers", "save-preset"} {
		mustBindFlag(renderCmd, "render."+flagKey(name), name)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	settings, err := loadNoiseSettings(cmd, "render")
	if err != nil {
		return err
	}

	view := field.View{
		OriginCol: viper.GetInt("render.col"),
		OriginRow: viper.GetInt("render.row"),
		Width:     viper.GetInt("render.width"),
		Height:    viper.GetInt("render.height"),
		Step:      viper.GetFloat64("render.step"),
	}
	output := viper.GetString("render.output")
	level, err := pipeline.ParseCompression(viper.GetString("render.png_compression"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Rendering view",
		"col", view.OriginCol,
		"row", view.OriginRow,
		"width", view.Width,
		"height", view.Height,
		"step", view.Step,
		"fbm", fmt.Sprintf("%+v", settings.FBM),
		"source", settings.Preset.Source,
	)

	renderer := &field.Renderer{
		Source:  settings.Source,
		Workers: viper.GetInt("render.workers"),
		Logger:  logger,
	}
	grid, err := renderer.Render(ctx, view, settings.FBM)
	if err != nil {
		return fmt.Errorf("failed to render view: %w", err)
	}

	var img image.Image
	if viper.GetBool("render.gray") {
		img = grid.Gray()
	} else {
		img = mask.Shade(grid.Image(settings.Palette), grid, settings.Shore)
	}
	img = field.PostProcess(img, field.PostOptions{
		BlurSigma: float32(viper.GetFloat64("render.blur")),
		Scale:     viper.GetInt("render.scale"),
	})
	if caption := viper.GetString("render.caption"); caption != "" {
		if dst, ok := img.(draw.Image); ok {
			field.Caption(dst, caption)
		}
	}

	if err := writePNG(output, img, level); err != nil {
		return err
	}

	stats := grid.Stats()
	logger.Info("View rendered",
		"path", output,
		"min", stats.Min,
		"max", stats.Max,
		"mean", stats.Mean,
	)

	if path := viper.GetString("render.save_preset"); path != "" {
		if err := config.WritePreset(path, settings.Preset); err != nil {
			return err
		}
		logger.Info("Preset saved", "path", path)
	}
	return nil
}

func writePNG(path string, img image.Image, level png.CompressionLevel) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(out, img); err != nil {
		out.Close() // nolint:errcheck
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return out.Close()
}
