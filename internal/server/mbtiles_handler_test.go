package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/mbtiles"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMBTilesHandler(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "noise.mbtiles")
	w, err := mbtiles.New(dbPath, mbtiles.Metadata{Name: "noise", Format: "png", FBM: noise.DefaultFBMConfig()})
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(tile.NewCoords(1, -1, 0), []byte("tile bytes")))
	require.NoError(t, w.Close())

	h, err := NewMBTilesHandler(MBTilesConfig{MBTilesPath: dbPath}, nil)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, 8, h.Metadata().FBM.Octaves)

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/z1_x-1_y0.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tile bytes", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/z1_x0_y0.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/z1_x-1_y0@2x.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MetadataHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metadata", nil))
	assert.Contains(t, rec.Body.String(), `"octaves":8`)
}
