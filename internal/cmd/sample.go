package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Evaluate the field at a point or dump a window as CSV",
	Long: `Without --window, print the FBM value at (--x, --y).
With --window, evaluate the same pixel window as render and write one CSV row
per pixel (col,row,x,y,value). --stats prints summary statistics instead of
or in addition to the CSV.`,
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	f := sampleCmd.Flags()
	f.Float64("x", 0, "Noise-space x of the point")
	f.Float64("y", 0, "Noise-space y of the point")
	f.Bool("window", false, "Sample a pixel window instead of one point")
	f.Int("col", 0, "Pixel column of the window's left edge")
	f.Int("row", 0, "Pixel row of the window's top edge")
	f.Int("width", field.DefaultWidth, "Window width in pixels")
	f.Int("height", field.DefaultHeight, "Window height in pixels")
	f.Float64("step", field.DefaultStep, "Noise units per pixel")
	f.StringP("output", "o", "-", "CSV output path (- for stdout, empty to skip)")
	f.Bool("stats", false, "Print min/max/mean/stddev/percentiles of the window")
	addNoiseFlags(sampleCmd, "sample")

	for _, name := range []string{"x", "y", "window", "col", "row", "width", "height", "step", "output", "stats"} {
		mustBindFlag(sampleCmd, "sample."+name, name)
	}
}

func runSample(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	settings, err := loadNoiseSettings(cmd, "sample")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !viper.GetBool("sample.window") {
		x, y := viper.GetFloat64("sample.x"), viper.GetFloat64("sample.y")
		v := noise.FBMWith(settings.Source, x, y, settings.FBM)
		_, err := fmt.Fprintf(out, "x=%g y=%g value=%.17g normalized=%.6f\n", x, y, v, palette.Normalize(v))
		return err
	}

	view := field.View{
		OriginCol: viper.GetInt("sample.col"),
		OriginRow: viper.GetInt("sample.row"),
		Width:     viper.GetInt("sample.width"),
		Height:    viper.GetInt("sample.height"),
		Step:      viper.GetFloat64("sample.step"),
	}
	renderer := &field.Renderer{Source: settings.Source, Logger: logger}
	grid, err := renderer.Render(context.Background(), view, settings.FBM)
	if err != nil {
		return fmt.Errorf("failed to sample window: %w", err)
	}

	if err := writeSamples(out, viper.GetString("sample.output"), view, grid); err != nil {
		return err
	}

	if viper.GetBool("sample.stats") {
		printStats(out, grid.Stats(), settings.FBM)
	}
	return nil
}

func writeSamples(stdout io.Writer, path string, view field.View, grid *field.Grid) error {
	switch path {
	case "":
		return nil
	case "-":
		return field.WriteCSV(stdout, view, grid)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := field.WriteCSV(f, view, grid); err != nil {
		f.Close() // nolint:errcheck
		return err
	}
	logger.Info("Samples written", "path", path, "rows", view.Pixels())
	return f.Close()
}

func printStats(w io.Writer, s field.Stats, cfg noise.FBMConfig) {
	fmt.Fprintf(w, "min     %.6f\n", s.Min)
	fmt.Fprintf(w, "max     %.6f\n", s.Max)
	fmt.Fprintf(w, "mean    %.6f\n", s.Mean)
	fmt.Fprintf(w, "stddev  %.6f\n", s.StdDev)
	fmt.Fprintf(w, "p05     %.6f\n", s.P05)
	fmt.Fprintf(w, "p95     %.6f\n", s.P95)
	fmt.Fprintf(w, "bound   %.6f\n", cfg.MaxAmplitude())
}
