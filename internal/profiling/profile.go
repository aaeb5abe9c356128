// Package profiling computes per-column summary statistics for previews and
// reports.
package profiling

import (
	"math"

	"github.com/montanaflynn/stats"

	"debias/domain/table"
	"debias/internal/detect"
)

// ColumnProfile is the numeric summary of one column.
type ColumnProfile struct {
	Column   string   `json:"column"`
	N        int      `json:"n"`
	Missing  int      `json:"missing"`
	Mean     float64  `json:"mean"`
	StdDev   float64  `json:"std_dev"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Median   float64  `json:"median"`
	Q25      float64  `json:"q25"`
	Q75      float64  `json:"q75"`
	Skewness *float64 `json:"skewness,omitempty"`
	Kurtosis *float64 `json:"kurtosis,omitempty"`
	Outliers int      `json:"outliers"`
}

// Profiler computes column profiles.
type Profiler struct{}

// NewProfiler creates a profiler
func NewProfiler() *Profiler {
	return &Profiler{}
}

// Profile summarizes a numeric column. Missing and non-numeric cells are
// skipped; columns with no numeric values return a zeroed profile with only
// the counts filled in.
func (p *Profiler) Profile(fr *table.Frame, column string) (*ColumnProfile, error) {
	values, nonNull, err := fr.Numeric(column)
	if err != nil {
		return nil, err
	}

	profile := &ColumnProfile{
		Column:  column,
		N:       len(values),
		Missing: fr.NumRows() - nonNull,
	}
	if len(values) == 0 {
		return profile, nil
	}

	profile.Mean, _ = stats.Mean(values)
	profile.StdDev, _ = stats.StandardDeviationSample(values)
	profile.Min, _ = stats.Min(values)
	profile.Max, _ = stats.Max(values)
	profile.Median, _ = stats.Median(values)
	profile.Q25, _ = stats.Percentile(values, 25)
	profile.Q75, _ = stats.Percentile(values, 75)

	if skew, err := detect.Skewness(values); err == nil {
		profile.Skewness = &skew
	}
	if kurt, ok := kurtosis(values, profile.Mean, profile.StdDev); ok {
		profile.Kurtosis = &kurt
	}
	profile.Outliers = countIQROutliers(values, profile.Q25, profile.Q75)
	return profile, nil
}

// kurtosis computes total sample kurtosis (normal = 3).
func kurtosis(values []float64, mean, stdDev float64) (float64, bool) {
	if len(values) < 4 || stdDev == 0 {
		return 0, false
	}
	n := float64(len(values))
	sum := 0.0
	for _, x := range values {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	k := sum / n
	excess := k - 3
	correction := (n - 1) / ((n - 2) * (n - 3))
	excess = excess*correction + 6/(n+1)
	return excess + 3, true
}

// countIQROutliers counts values outside the 1.5×IQR fences.
func countIQROutliers(values []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lo := q25 - 1.5*iqr
	hi := q75 + 1.5*iqr
	count := 0
	for _, v := range values {
		if v < lo || v > hi {
			count++
		}
	}
	return count
}

// ProfileAll summarizes every column that has at least one numeric value.
func (p *Profiler) ProfileAll(fr *table.Frame) map[string]*ColumnProfile {
	out := make(map[string]*ColumnProfile)
	for _, col := range fr.Columns() {
		profile, err := p.Profile(fr, col)
		if err != nil || profile.N == 0 {
			continue
		}
		if math.IsNaN(profile.Mean) {
			continue
		}
		out[col] = profile
	}
	return out
}
