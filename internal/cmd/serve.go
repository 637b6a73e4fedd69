package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MeKo-Tech/noisemap/assets"
	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/server"
	"github.com/MeKo-Tech/noisemap/internal/tile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve noise tiles, the sampling API and the viewer",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	f.String("tiles-dir", "", "Directory for cached tiles (defaults to --output-dir)")
	f.String("mbtiles", "", "Serve /tiles/ from this MBTiles archive instead of rendering")

	f.Bool("generate-missing", true, "Generate missing tiles on-demand and cache them to disk")
	f.Bool("disable-cache", false, "Always regenerate tiles (still writes to disk)")
	f.Int("max-concurrent-generations", runtime.NumCPU(), "Max concurrent tile generations (default: number of CPUs)")
	f.Duration("generation-timeout", 2*time.Minute, "Timeout per tile generation")
	f.String("cache-control", "no-store", "Cache-Control header for served tiles")

	f.Int("tile-size", 256, "Base tile size in pixels (256; @2x requests render 512)")
	f.Float64("base-span", tile.DefaultBaseSpan, "Noise units covered by the zoom 0 tile")
	f.String("png-compression", "default", "PNG compression (default, speed, best, none)")
	f.Float32("blur", 0, "Gaussian blur sigma applied to rendered images (0 disables)")
	addNoiseFlags(serveCmd, "serve")

	for _, name := range []string{
		"addr", "tiles-dir", "mbtiles", "generate-missing", "disable-cache",
		"max-concurrent-generations", "generation-timeout", "cache-control",
		"tile-size", "base-span", "png-compression", "blur",
	} {
		mustBindFlag(serveCmd, "serve."+flagKey(name), name)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	settings, err := loadNoiseSettings(cmd, "serve")
	if err != nil {
		return err
	}

	addr := viper.GetString("serve.addr")
	tilesDir := viper.GetString("serve.tiles_dir")
	if tilesDir == "" {
		tilesDir = viper.GetString("output-dir")
	}
	mbtilesPath := viper.GetString("serve.mbtiles")
	post := field.PostOptions{BlurSigma: float32(viper.GetFloat64("serve.blur"))}

	od, err := server.NewOnDemandTiles(server.OnDemandTilesConfig{
		TilesDir:                 tilesDir,
		PNGCompression:           viper.GetString("serve.png_compression"),
		CacheControl:             viper.GetString("serve.cache_control"),
		BaseTileSize:             viper.GetInt("serve.tile_size"),
		BaseSpan:                 viper.GetFloat64("serve.base_span"),
		FBM:                      settings.FBM,
		Palette:                  settings.Palette,
		Source:                   settings.Source,
		Shore:                    settings.Shore,
		Post:                     post,
		MaxConcurrentGenerations: viper.GetInt("serve.max_concurrent_generations"),
		GenerationTimeout:        viper.GetDuration("serve.generation_timeout"),
		GenerateMissing:          viper.GetBool("serve.generate_missing"),
		DisableCache:             viper.GetBool("serve.disable_cache"),
	}, logger)
	if err != nil {
		return err
	}

	api, err := server.NewAPI(server.APIConfig{
		FBM:     settings.FBM,
		Palette: settings.Palette,
		Source:  settings.Source,
		Shore:   settings.Shore,
		Post:    post,
	}, logger)
	if err != nil {
		return err
	}

	viewer, err := fs.Sub(assets.ViewerFS, "viewer")
	if err != nil {
		return fmt.Errorf("failed to load viewer assets: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", http.FileServer(http.FS(viewer)))

	if mbtilesPath != "" {
		mb, err := server.NewMBTilesHandler(server.MBTilesConfig{
			MBTilesPath:  mbtilesPath,
			CacheControl: viper.GetString("serve.cache_control"),
		}, logger)
		if err != nil {
			return err
		}
		defer mb.Close()
		mux.Handle("/tiles/", withCORS(mb.Handler()))
		mux.Handle("/api/metadata", withCORS(mb.MetadataHandler()))
	} else {
		mux.Handle("/tiles/", withCORS(od.Handler()))
	}

	mux.Handle("/api/sample", withCORS(api.SampleHandler()))
	mux.Handle("/api/view", withCORS(api.ViewHandler()))
	mux.Handle("/api/ranges", withCORS(api.RangesHandler()))
	mux.Handle("/api/status", withCORS(od.StatusHandler()))
	mux.Handle("/api/status/stream", withCORS(od.StatusStreamHandler()))

	logger.Info("noisemap server listening",
		"addr", addr,
		"tiles_dir", tilesDir,
		"mbtiles", mbtilesPath,
		"fbm", fmt.Sprintf("%+v", settings.FBM),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
