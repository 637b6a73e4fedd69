package server

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	api, err := NewAPI(APIConfig{FBM: noise.DefaultFBMConfig(), Workers: 2}, nil)
	require.NoError(t, err)
	return api
}

func TestAPI_Sample(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.SampleHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sample?x=1.23&y=4.56", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SampleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.InDelta(t, 0.1285078928891635, resp.Value, 1e-9)
	assert.InDelta(t, 0.1285078928891635*0.5+0.5, resp.Normalized, 1e-9)
	assert.Equal(t, "#8b4513", resp.Color)
	assert.Equal(t, 8, resp.FBM.Octaves)
}

func TestAPI_SampleWithOverride(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.SampleHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sample?x=1.23&y=4.56&octaves=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SampleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.InDelta(t, -0.09607956761208541, resp.Value, 1e-9)
	assert.Equal(t, "#00ff00", resp.Color)
}

func TestAPI_SampleBadRequest(t *testing.T) {
	api := newTestAPI(t)

	for _, target := range []string{
		"/api/sample?x=abc",
		"/api/sample?y=1&octaves=0",
		"/api/sample?amplitude=3",
	} {
		rec := httptest.NewRecorder()
		api.SampleHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestAPI_View(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.ViewHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/view?col=-20&row=5&width=24&height=12&step=0.2&smooth=true&caption=hi", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 24, img.Bounds().Dx())
	assert.Equal(t, 12, img.Bounds().Dy())
}

func TestAPI_ViewDefaultsToViewerWindow(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.ViewHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/view", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestAPI_ViewBadRequest(t *testing.T) {
	api := newTestAPI(t)

	for _, target := range []string{
		"/api/view?width=0",
		"/api/view?step=-1",
		"/api/view?width=5000&height=5000",
		"/api/view?width=4294967296&height=4294967296",
		"/api/view?palette=0.9:%23000000,0.1:%23ffffff",
		"/api/view?smooth=maybe",
		"/api/view?lacunarity=5",
	} {
		rec := httptest.NewRecorder()
		api.ViewHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestAPI_Ranges(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.RangesHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ranges", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ranges struct {
			OctavesMax int `json:"octaves_max"`
		} `json:"ranges"`
		Defaults noise.FBMConfig `json:"defaults"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 10, body.Ranges.OctavesMax)
	assert.Equal(t, noise.DefaultFBMConfig(), body.Defaults)
}

func TestNewAPI_Validates(t *testing.T) {
	_, err := NewAPI(APIConfig{FBM: noise.FBMConfig{Octaves: 0, Amplitude: 1, Frequency: 1}}, nil)
	assert.ErrorIs(t, err, noise.ErrInvalidConfig)

	api, err := NewAPI(APIConfig{FBM: noise.DefaultFBMConfig()}, nil)
	require.NoError(t, err)
	assert.Len(t, api.cfg.Palette.Bands, 4, "empty palette falls back to the default bands")
}
