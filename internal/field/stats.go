package field

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises a grid.
type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P05    float64 `json:"p05"`
	P95    float64 `json:"p95"`
}

// Stats computes summary statistics over all samples.
func (g *Grid) Stats() Stats {
	if len(g.Values) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(g.Values))
	copy(sorted, g.Values)
	sort.Float64s(sorted)

	return Stats{
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   stat.Mean(sorted, nil),
		StdDev: stat.PopStdDev(sorted, nil),
		P05:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
}
