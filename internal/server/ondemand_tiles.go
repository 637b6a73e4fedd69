// Package server exposes noise tiles and the sampling API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/mask"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
	"github.com/MeKo-Tech/noisemap/internal/pipeline"
)

type OnDemandTilesConfig struct {
	TilesDir       string
	PNGCompression string
	CacheControl   string
	BaseTileSize   int
	BaseSpan       float64

	FBM     noise.FBMConfig
	Palette palette.Palette
	Source  noise.Source
	Shore   mask.Options
	Post    field.PostOptions

	MaxConcurrentGenerations int
	GenerationTimeout        time.Duration
	GenerateMissing          bool
	DisableCache             bool
}

type OnDemandTiles struct {
	logger *slog.Logger
	sem    chan struct{}
	locks  sync.Map
	gens   sync.Map
	cfg    OnDemandTilesConfig

	activeRenders  atomic.Int32
	totalRendered  atomic.Int64
	totalFailed    atomic.Int64
	totalCacheHits atomic.Int64
	currentRenders sync.Map // tile key -> start time

	queuedRenders atomic.Int32
	queuedTiles   sync.Map // tile key -> queue time
}

// TileStatus is the JSON body of the status endpoint.
type TileStatus struct {
	Render RenderStatus    `json:"render"`
	FBM    noise.FBMConfig `json:"fbm"`
}

// RenderStatus contains current render operation status.
type RenderStatus struct {
	ActiveRenders int      `json:"active_renders"`
	TotalRendered int64    `json:"total_rendered"`
	TotalFailed   int64    `json:"total_failed"`
	CacheHits     int64    `json:"cache_hits"`
	CurrentTiles  []string `json:"current_tiles"`
	MaxConcurrent int      `json:"max_concurrent"`
	QueuedRenders int      `json:"queued_renders"`
	QueuedTiles   []string `json:"queued_tiles"`
}

func NewOnDemandTiles(cfg OnDemandTilesConfig, logger *slog.Logger) (*OnDemandTiles, error) {
	if cfg.TilesDir == "" {
		cfg.TilesDir = "./tiles"
	}
	if cfg.BaseTileSize <= 0 {
		cfg.BaseTileSize = 256
	}
	if cfg.MaxConcurrentGenerations <= 0 {
		cfg.MaxConcurrentGenerations = 1
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 2 * time.Minute
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if err := cfg.FBM.Validate(); err != nil {
		return nil, err
	}
	if _, err := pipeline.ParseCompression(cfg.PNGCompression); err != nil {
		return nil, err
	}

	return &OnDemandTiles{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentGenerations),
	}, nil
}

// Status returns a snapshot of the render counters.
func (t *OnDemandTiles) Status() TileStatus {
	return TileStatus{
		Render: RenderStatus{
			ActiveRenders: int(t.activeRenders.Load()),
			TotalRendered: t.totalRendered.Load(),
			TotalFailed:   t.totalFailed.Load(),
			CacheHits:     t.totalCacheHits.Load(),
			CurrentTiles:  sortedKeys(&t.currentRenders),
			MaxConcurrent: t.cfg.MaxConcurrentGenerations,
			QueuedRenders: int(t.queuedRenders.Load()),
			QueuedTiles:   sortedKeys(&t.queuedTiles),
		},
		FBM: t.cfg.FBM,
	}
}

func sortedKeys(m *sync.Map) []string {
	keys := []string{}
	m.Range(func(key, _ any) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (t *OnDemandTiles) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, t.log(), t.Status())
	})
}

// StatusStreamHandler pushes the status as server-sent events every 250ms
// until the client goes away.
func (t *OnDemandTiles) StatusStreamHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		t.sendStatusEvent(w, flusher)
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				t.sendStatusEvent(w, flusher)
			}
		}
	})
}

func (t *OnDemandTiles) sendStatusEvent(w http.ResponseWriter, flusher http.Flusher) {
	data, err := json.Marshal(t.Status())
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func (t *OnDemandTiles) Handler() http.Handler {
	return http.HandlerFunc(t.serveTile)
}

func (t *OnDemandTiles) serveTile(w http.ResponseWriter, r *http.Request) {
	coords, suffix, ok := parseTilePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	cfg, _, err := fbmFromQuery(t.cfg.FBM, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	gen, err := t.getGenerator(cfg, suffix)
	if err != nil {
		t.log().Error("failed to init generator", "error", err)
		http.Error(w, "failed to init generator", http.StatusInternalServerError)
		return
	}
	fullPath := gen.TilePath(coords)
	tileKey := configKey(cfg) + "/" + coords.String() + suffix

	w.Header().Set("Cache-Control", t.cfg.CacheControl)

	if !t.cfg.DisableCache && fileExists(fullPath) {
		t.totalCacheHits.Add(1)
		http.ServeFile(w, r, fullPath)
		return
	}

	if !t.cfg.GenerateMissing {
		http.Error(w, fmt.Sprintf("tile not found: %s", coords.String()+suffix), http.StatusNotFound)
		return
	}

	mu := t.getLock(tileKey)
	mu.Lock()
	defer mu.Unlock()

	// Another request may have rendered it while we waited for the lock.
	if !t.cfg.DisableCache && fileExists(fullPath) {
		t.totalCacheHits.Add(1)
		http.ServeFile(w, r, fullPath)
		return
	}

	t.queuedRenders.Add(1)
	t.queuedTiles.Store(tileKey, time.Now())

	select {
	case t.sem <- struct{}{}:
		t.queuedRenders.Add(-1)
		t.queuedTiles.Delete(tileKey)
		defer func() { <-t.sem }()
	case <-r.Context().Done():
		t.queuedRenders.Add(-1)
		t.queuedTiles.Delete(tileKey)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	t.activeRenders.Add(1)
	t.currentRenders.Store(tileKey, start)

	_, err = gen.Generate(ctx, coords, t.cfg.DisableCache)

	t.activeRenders.Add(-1)
	t.currentRenders.Delete(tileKey)

	if err != nil {
		t.totalFailed.Add(1)
		t.log().Error("failed to generate tile", "tile", tileKey, "error", err)
		status := http.StatusInternalServerError
		if ctx.Err() != nil {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, fmt.Sprintf("failed to generate tile %s: %v", coords.String()+suffix, err), status)
		return
	}
	t.totalRendered.Add(1)
	t.log().Info("tile generated on-demand", "tile", tileKey, "ms", time.Since(start).Milliseconds())

	http.ServeFile(w, r, fullPath)
}

// getGenerator returns the generator for one config and pixel density. Each
// config renders into its own subdirectory of TilesDir.
func (t *OnDemandTiles) getGenerator(cfg noise.FBMConfig, suffix string) (*pipeline.Generator, error) {
	key := configKey(cfg) + suffix
	if v, ok := t.gens.Load(key); ok {
		return v.(*pipeline.Generator), nil
	}

	shore := t.cfg.Shore
	if suffix == "@2x" {
		shore.Radius *= 2
	}
	g, err := pipeline.NewGenerator(
		filepath.Join(t.cfg.TilesDir, configKey(cfg)),
		tileSizeForSuffix(t.cfg.BaseTileSize, suffix),
		t.logger,
		pipeline.GeneratorOptions{
			FBM:            cfg,
			Palette:        t.cfg.Palette,
			Source:         t.cfg.Source,
			BaseSpan:       t.cfg.BaseSpan,
			Shore:          shore,
			Post:           t.cfg.Post,
			PNGCompression: t.cfg.PNGCompression,
			Suffix:         suffix,
		},
	)
	if err != nil {
		return nil, err
	}

	actual, _ := t.gens.LoadOrStore(key, g)
	return actual.(*pipeline.Generator), nil
}

func (t *OnDemandTiles) getLock(key string) *sync.Mutex {
	if v, ok := t.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, _ := t.locks.LoadOrStore(key, mu)
	return actual.(*sync.Mutex)
}

func (t *OnDemandTiles) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !st.IsDir()
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
