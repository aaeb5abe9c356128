// Package viz builds the chart payloads returned by the visualization
// endpoints. Payloads are plain JSON series the client renders itself; the
// engine never produces images.
package viz

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"debias/domain/table"
)

// densityPoints is the resolution of the fitted-normal overlay.
const densityPoints = 100

// BarChart is the class distribution payload for a categorical column.
type BarChart struct {
	Column      string    `json:"column"`
	Labels      []string  `json:"labels"`
	Counts      []int     `json:"counts"`
	Proportions []float64 `json:"proportions"`
	Total       int       `json:"total"`
}

// CategoricalChart builds the proportion bars for one categorical column,
// labels sorted descending by count.
func CategoricalChart(fr *table.Frame, column string) (*BarChart, error) {
	counts, err := fr.ValueCounts(column)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("column %q has no data to chart", column)
	}

	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	total := 0
	for _, c := range counts {
		total += c
	}

	chart := &BarChart{Column: column, Total: total}
	for _, l := range labels {
		chart.Labels = append(chart.Labels, l)
		chart.Counts = append(chart.Counts, counts[l])
		chart.Proportions = append(chart.Proportions, float64(counts[l])/float64(total))
	}
	return chart, nil
}

// DistChart is the distribution payload for a continuous column: histogram
// bins plus a fitted-normal density curve for visual reference.
type DistChart struct {
	Column   string    `json:"column"`
	BinEdges []float64 `json:"bin_edges"`
	Counts   []int     `json:"counts"`
	DensityX []float64 `json:"density_x"`
	DensityY []float64 `json:"density_y"`
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"std_dev"`
	N        int       `json:"n"`
}

// NumericChart builds the histogram and fitted-normal overlay for one
// continuous column.
func NumericChart(fr *table.Frame, column string) (*DistChart, error) {
	values, _, err := fr.Numeric(column)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("column %q has %d numeric value(s); charting needs at least 2", column, len(values))
	}

	mean, _ := stats.Mean(values)
	sd, _ := stats.StandardDeviationSample(values)

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	bins := sturgesBins(len(values))
	chart := &DistChart{
		Column: column,
		Mean:   mean,
		StdDev: sd,
		N:      len(values),
	}

	if max == min {
		// Degenerate spread: one bin holds everything.
		chart.BinEdges = []float64{min, min + 1}
		chart.Counts = []int{len(values)}
		return chart, nil
	}

	width := (max - min) / float64(bins)
	chart.Counts = make([]int, bins)
	for i := 0; i <= bins; i++ {
		chart.BinEdges = append(chart.BinEdges, min+float64(i)*width)
	}
	for _, v := range values {
		b := int((v - min) / width)
		if b >= bins {
			b = bins - 1
		}
		chart.Counts[b]++
	}

	if sd > 0 {
		norm := distuv.Normal{Mu: mean, Sigma: sd}
		step := (max - min) / float64(densityPoints-1)
		for i := 0; i < densityPoints; i++ {
			x := min + float64(i)*step
			chart.DensityX = append(chart.DensityX, x)
			chart.DensityY = append(chart.DensityY, norm.Prob(x))
		}
	}
	return chart, nil
}

// sturgesBins is the histogram bin count for n samples, clamped to a sane
// range.
func sturgesBins(n int) int {
	bins := int(math.Ceil(math.Log2(float64(n)))) + 1
	if bins < 5 {
		bins = 5
	}
	if bins > 30 {
		bins = 30
	}
	return bins
}
