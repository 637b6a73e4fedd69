package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/noisemap/internal/mbtiles"
)

// MBTilesHandler serves pre-rendered tiles from an MBTiles archive.
type MBTilesHandler struct {
	reader       *mbtiles.Reader
	logger       *slog.Logger
	meta         mbtiles.Metadata
	cacheControl string
}

// MBTilesConfig configures the MBTiles handler.
type MBTilesConfig struct {
	MBTilesPath  string
	CacheControl string
}

// NewMBTilesHandler opens the archive read-only and loads its metadata.
func NewMBTilesHandler(cfg MBTilesConfig, logger *slog.Logger) (*MBTilesHandler, error) {
	reader, err := mbtiles.OpenReader(cfg.MBTilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MBTiles: %w", err)
	}
	meta, err := reader.Metadata()
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to read MBTiles metadata: %w", err)
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=86400"
	}

	return &MBTilesHandler{
		reader:       reader,
		logger:       logger,
		meta:         meta,
		cacheControl: cfg.CacheControl,
	}, nil
}

// Metadata returns the archive metadata, including the FBM parameters the
// tiles were rendered with.
func (h *MBTilesHandler) Metadata() mbtiles.Metadata {
	return h.meta
}

// Handler returns the HTTP handler function.
func (h *MBTilesHandler) Handler() http.HandlerFunc {
	return h.serveTile
}

// MetadataHandler serves the archive metadata as JSON.
func (h *MBTilesHandler) MetadataHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, h.log(), h.meta)
	})
}

func (h *MBTilesHandler) serveTile(w http.ResponseWriter, r *http.Request) {
	coords, suffix, ok := parseTilePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	// One archive holds one pixel density; @2x archives are served separately.
	if suffix != "" {
		http.NotFound(w, r)
		return
	}

	data, err := h.reader.ReadTile(coords)
	if errors.Is(err, mbtiles.ErrTileNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log().Error("Failed to read tile", "coords", coords.String(), "error", err)
		http.Error(w, "failed to read tile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

// Close closes the MBTiles reader.
func (h *MBTilesHandler) Close() error {
	return h.reader.Close()
}

func (h *MBTilesHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
