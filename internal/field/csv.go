package field

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// Sample is one CSV row.
type Sample struct {
	Col   int     `csv:"col"`
	Row   int     `csv:"row"`
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
	Value float64 `csv:"value"`
}

// Samples flattens a grid rendered for view into rows.
func Samples(view View, g *Grid) []Sample {
	out := make([]Sample, 0, len(g.Values))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			x, y := view.Point(col, row)
			out = append(out, Sample{Col: col, Row: row, X: x, Y: y, Value: g.At(col, row)})
		}
	}
	return out
}

// WriteCSV writes the grid as col,row,x,y,value rows with a header.
func WriteCSV(w io.Writer, view View, g *Grid) error {
	samples := Samples(view, g)
	if err := gocsv.Marshal(&samples, w); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	return nil
}
