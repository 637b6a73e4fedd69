// Package tile addresses the infinite noise plane with z/x/y tiles.
//
// A zoom-0 tile spans BaseSpan noise units on each side and every zoom level
// halves the span. X and Y are signed because the plane has no edge.
package tile

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/paulmach/orb"
)

// DefaultBaseSpan is the side length of a zoom-0 tile in noise units: 200
// pixels at a 0.1 step.
const DefaultBaseSpan = 20.0

// MaxZoom bounds the zoom level so spans stay well above float64 resolution.
const MaxZoom = 30

// Coords identifies a tile.
type Coords struct {
	Z uint32 // Zoom level
	X int    // Column
	Y int    // Row
}

// NewCoords creates a new Coords from zoom, x, y values
func NewCoords(z uint32, x, y int) Coords {
	return Coords{Z: z, X: x, Y: y}
}

// String returns the tile coordinate as a string in format "z{zoom}_x{x}_y{y}"
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Path returns the flat file name for this tile
func (c Coords) Path(extension string) string {
	return fmt.Sprintf("%s.%s", c.String(), extension)
}

// NestedPath returns "{z}/{x}/{y}.{ext}".
func (c Coords) NestedPath(extension string) string {
	return fmt.Sprintf("%d/%d/%d.%s", c.Z, c.X, c.Y, extension)
}

// ParseCoords parses a tile string like "z3_x-4_y12" into Coords
func ParseCoords(s string) (Coords, error) {
	var c Coords
	var rest string
	n, err := fmt.Sscanf(s+"|", "z%d_x%d_y%d%s", &c.Z, &c.X, &c.Y, &rest)
	if err != nil || n != 4 || rest != "|" {
		return Coords{}, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	if c.Z > MaxZoom {
		return Coords{}, fmt.Errorf("zoom %d exceeds maximum %d", c.Z, MaxZoom)
	}
	return c, nil
}

// Span returns the tile side length in noise units.
func (c Coords) Span(baseSpan float64) float64 {
	return SpanAt(int(c.Z), baseSpan)
}

// SpanAt returns the tile side length at zoom z.
func SpanAt(z int, baseSpan float64) float64 {
	return math.Ldexp(baseSpan, -z)
}

// Bound returns the noise-space rectangle covered by the tile.
func (c Coords) Bound(baseSpan float64) orb.Bound {
	span := c.Span(baseSpan)
	return orb.Bound{
		Min: orb.Point{float64(c.X) * span, float64(c.Y) * span},
		Max: orb.Point{float64(c.X+1) * span, float64(c.Y+1) * span},
	}
}

// View returns the pixel window that renders this tile at tileSize pixels.
func (c Coords) View(tileSize int, baseSpan float64) field.View {
	return field.View{
		OriginCol: c.X * tileSize,
		OriginRow: c.Y * tileSize,
		Width:     tileSize,
		Height:    tileSize,
		Step:      c.Span(baseSpan) / float64(tileSize),
	}
}

// TileRange is an inclusive block of tiles across one or more zoom levels.
type TileRange struct {
	MinZ, MaxZ uint32 // Zoom range
	MinX, MaxX int    // X range
	MinY, MaxY int    // Y range
}

// ForEach calls the given function for each tile in the range
func (r TileRange) ForEach(fn func(Coords)) {
	for z := r.MinZ; z <= r.MaxZ; z++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			for y := r.MinY; y <= r.MaxY; y++ {
				fn(NewCoords(z, x, y))
			}
		}
	}
}

// Count returns the total number of tiles in the range.
func (r TileRange) Count() int {
	if r.MaxX < r.MinX || r.MaxY < r.MinY || r.MaxZ < r.MinZ {
		return 0
	}
	xCount := r.MaxX - r.MinX + 1
	yCount := r.MaxY - r.MinY + 1
	return int(r.MaxZ-r.MinZ+1) * xCount * yCount
}

// RangeAt returns the inclusive tile range covering b at zoom z.
func RangeAt(b orb.Bound, z uint32, baseSpan float64) TileRange {
	span := SpanAt(int(z), baseSpan)
	r := TileRange{
		MinZ: z,
		MaxZ: z,
		MinX: int(math.Floor(b.Min[0] / span)),
		MinY: int(math.Floor(b.Min[1] / span)),
		MaxX: int(math.Ceil(b.Max[0]/span)) - 1,
		MaxY: int(math.Ceil(b.Max[1]/span)) - 1,
	}
	r.MaxX = max(r.MaxX, r.MinX)
	r.MaxY = max(r.MaxY, r.MinY)
	return r
}

// TilesInBound returns all tiles intersecting b across a zoom range.
// Tile indices are computed independently at each zoom level.
func TilesInBound(b orb.Bound, zoomMin, zoomMax int, baseSpan float64) []Coords {
	tiles := make([]Coords, 0, TileCount(b, zoomMin, zoomMax, baseSpan))
	for z := zoomMin; z <= zoomMax; z++ {
		RangeAt(b, uint32(z), baseSpan).ForEach(func(c Coords) {
			tiles = append(tiles, c)
		})
	}
	return tiles
}

// TileCount returns the number of tiles TilesInBound would produce without
// allocating them.
func TileCount(b orb.Bound, zoomMin, zoomMax int, baseSpan float64) int {
	count := 0
	for z := zoomMin; z <= zoomMax; z++ {
		count += RangeAt(b, uint32(z), baseSpan).Count()
	}
	return count
}
