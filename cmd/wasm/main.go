//go:build js && wasm

// Command wasm exposes the noise field to browser JavaScript.
//
//	noisemapEvaluate(x, y, cfgJSON)  -> number
//	noisemapRender(cfgJSON, viewJSON) -> Uint8ClampedArray (RGBA, width*height*4)
//
// cfgJSON may omit fields; missing ones take the defaults, and every value is
// clamped to the viewer's slider ranges.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/noisemap/internal/config"
	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/palette"
)

// renderConfig is the JSON accepted as cfgJSON.
type renderConfig struct {
	noise.FBMConfig
	Palette string `json:"palette"`
	Smooth  bool   `json:"smooth"`
}

func parseConfig(s string) (renderConfig, error) {
	rc := renderConfig{FBMConfig: noise.DefaultFBMConfig()}
	if s != "" && s != "undefined" {
		if err := json.Unmarshal([]byte(s), &rc); err != nil {
			return rc, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	rc.FBMConfig = config.Ranges.Clamp(rc.FBMConfig)
	return rc, nil
}

func jsError(err error) any {
	return map[string]any{"error": err.Error()}
}

func evaluate(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return jsError(fmt.Errorf("expected x, y[, cfgJSON]"))
	}
	cfgStr := ""
	if len(args) > 2 {
		cfgStr = args[2].String()
	}
	rc, err := parseConfig(cfgStr)
	if err != nil {
		return jsError(err)
	}
	return noise.Evaluate(args[0].Float(), args[1].Float(), rc.FBMConfig)
}

// maxPixels matches the server's /api/view cap.
const maxPixels = 1024 * 1024

func render(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return jsError(fmt.Errorf("expected cfgJSON, viewJSON"))
	}
	rc, err := parseConfig(args[0].String())
	if err != nil {
		return jsError(err)
	}

	view := field.DefaultView()
	if err := json.Unmarshal([]byte(args[1].String()), &view); err != nil {
		return jsError(fmt.Errorf("failed to parse view: %w", err))
	}
	if err := view.ValidateMax(maxPixels); err != nil {
		return jsError(err)
	}

	pal := palette.Default()
	if rc.Palette != "" {
		if pal, err = palette.Parse(rc.Palette); err != nil {
			return jsError(err)
		}
	}
	pal.Smooth = rc.Smooth

	// The wasm runtime is single threaded; one worker avoids goroutine churn.
	r := &field.Renderer{Workers: 1}
	grid, err := r.Render(context.Background(), view, rc.FBMConfig)
	if err != nil {
		return jsError(err)
	}

	img := grid.Image(pal)
	out := js.Global().Get("Uint8ClampedArray").New(len(img.Pix))
	js.CopyBytesToJS(out, img.Pix)
	return out
}

func main() {
	js.Global().Set("noisemapEvaluate", js.FuncOf(evaluate))
	js.Global().Set("noisemapRender", js.FuncOf(render))

	fmt.Println("noisemap WASM module loaded")
	select {}
}
