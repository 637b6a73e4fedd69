package server

import (
	"bytes"
	"fmt"
	"image/draw"
	"image/png"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MeKo-Tech/noisemap/internal/config"
	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/mask"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
)

// MaxViewPixels caps the size of a single /api/view render.
const MaxViewPixels = 1024 * 1024

// APIConfig configures the sampling endpoints.
type APIConfig struct {
	FBM     noise.FBMConfig
	Palette palette.Palette
	Source  noise.Source
	Shore   mask.Options
	Post    field.PostOptions
	Workers int
}

// API serves point samples and full-window renders. Every request carries
// its own parameters; nothing is remembered between requests.
type API struct {
	cfg      APIConfig
	renderer *field.Renderer
	logger   *slog.Logger
}

// SampleResponse is the JSON body of /api/sample.
type SampleResponse struct {
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Value      float64         `json:"value"`
	Normalized float64         `json:"normalized"`
	Color      string          `json:"color"`
	FBM        noise.FBMConfig `json:"fbm"`
}

// NewAPI validates the default FBM config and palette used when a request
// does not override them.
func NewAPI(cfg APIConfig, logger *slog.Logger) (*API, error) {
	if err := cfg.FBM.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Palette.Bands) == 0 {
		cfg.Palette = palette.Default()
	}
	if err := cfg.Palette.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil {
		cfg.Source = noise.Lattice{}
	}
	return &API{
		cfg:      cfg,
		renderer: &field.Renderer{Source: cfg.Source, Workers: cfg.Workers, Logger: logger},
		logger:   logger,
	}, nil
}

// SampleHandler evaluates FBM at ?x=&y=.
func (a *API) SampleHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cfg, _, err := fbmFromQuery(a.cfg.FBM, q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		x, err := floatParam(q, "x", 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		y, err := floatParam(q, "y", 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		v := noise.FBMWith(a.cfg.Source, x, y, cfg)
		c := a.cfg.Palette.ColorFor(v)
		writeJSON(w, a.log(), SampleResponse{
			X:          x,
			Y:          y,
			Value:      v,
			Normalized: palette.Normalize(v),
			Color:      fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B),
			FBM:        cfg,
		})
	})
}

// ViewHandler renders the window described by ?col=&row=&width=&height=&step=
// as a PNG. Panning is a new request with a shifted origin.
func (a *API) ViewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cfg, _, err := fbmFromQuery(a.cfg.FBM, q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		view, err := viewFromQuery(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		pal := a.cfg.Palette
		if s := q.Get("palette"); s != "" {
			if pal, err = palette.Parse(s); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if s := q.Get("smooth"); s != "" {
			smooth, err := strconv.ParseBool(s)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid smooth %q", s), http.StatusBadRequest)
				return
			}
			pal.Smooth = smooth
		}

		colored, err := mask.Render(r.Context(), a.renderer, view, cfg, pal, a.cfg.Shore)
		if err != nil {
			a.log().Warn("view render failed", "error", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		img := field.PostProcess(colored, a.cfg.Post)
		if caption := q.Get("caption"); caption != "" {
			if dst, ok := img.(draw.Image); ok {
				field.Caption(dst, caption)
			}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			http.Error(w, "failed to encode view", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write(buf.Bytes()); err != nil {
			a.log().Error("failed to write response", "error", err)
		}
	})
}

// RangesHandler reports the accepted parameter ranges so clients can build
// their controls.
func (a *API) RangesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, a.log(), struct {
			Ranges   config.ParamRanges `json:"ranges"`
			Defaults noise.FBMConfig    `json:"defaults"`
			View     field.View         `json:"view"`
		}{config.Ranges, a.cfg.FBM, field.DefaultView()})
	})
}

func viewFromQuery(q url.Values) (field.View, error) {
	view := field.DefaultView()
	var err error
	if view.OriginCol, err = intParam(q, "col", view.OriginCol); err != nil {
		return view, err
	}
	if view.OriginRow, err = intParam(q, "row", view.OriginRow); err != nil {
		return view, err
	}
	if view.Width, err = intParam(q, "width", view.Width); err != nil {
		return view, err
	}
	if view.Height, err = intParam(q, "height", view.Height); err != nil {
		return view, err
	}
	if view.Step, err = floatParam(q, "step", view.Step); err != nil {
		return view, err
	}
	if err := view.ValidateMax(MaxViewPixels); err != nil {
		return view, err
	}
	return view, nil
}

func (a *API) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}
