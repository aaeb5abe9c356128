package detect

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"debias/domain/audit"
	"debias/domain/table"
)

// MinSkewSamples is the default floor on non-null numeric values for a
// skewness estimate; below it the third moment is meaningless.
const MinSkewSamples = 3

// SkewnessDetector measures the asymmetry of continuous columns.
type SkewnessDetector struct {
	minSamples int
}

// NewSkewnessDetector creates a detector with the given sample floor
func NewSkewnessDetector(minSamples int) *SkewnessDetector {
	if minSamples < MinSkewSamples {
		minSamples = MinSkewSamples
	}
	return &SkewnessDetector{minSamples: minSamples}
}

// Column produces the skewness diagnostic for one continuous column. Cells
// are coerced to numbers; missing and non-numeric cells are skipped. Too few
// values or zero variance yield a per-column error, not a batch failure.
func (d *SkewnessDetector) Column(fr *table.Frame, column string) audit.SkewnessDiagnostic {
	diag := audit.SkewnessDiagnostic{Column: column}

	values, nonNull, err := fr.Numeric(column)
	if err != nil {
		diag.Error = audit.NoteColumnNotFound
		return diag
	}
	diag.NNonNull = nonNull

	if len(values) < d.minSamples {
		diag.Error = fmt.Sprintf("insufficient data: need at least %d numeric values, have %d", d.minSamples, len(values))
		return diag
	}

	skew, err := Skewness(values)
	if err != nil {
		diag.Error = err.Error()
		return diag
	}
	diag.Skewness = &skew
	return diag
}

// Columns audits many continuous columns concurrently.
func (d *SkewnessDetector) Columns(ctx context.Context, fr *table.Frame, columns []string) (map[string]audit.SkewnessDiagnostic, error) {
	results := make(map[string]audit.SkewnessDiagnostic, len(columns))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentColumns)

	for _, column := range columns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			diag := d.Column(fr, column)
			mu.Lock()
			results[column] = diag
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Skewness computes the adjusted Fisher-Pearson standardized third moment:
//
//	g1 * sqrt(n*(n-1)) / (n-2)   where g1 = m3 / m2^(3/2)
//
// It needs at least 3 values and non-zero variance.
func Skewness(values []float64) (float64, error) {
	n := len(values)
	if n < MinSkewSamples {
		return 0, fmt.Errorf("insufficient data: need at least %d values, have %d", MinSkewSamples, n)
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	m2, m3 := 0.0, 0.0
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)

	if m2 == 0 {
		return 0, fmt.Errorf("zero variance: all values are identical")
	}

	g1 := m3 / math.Pow(m2, 1.5)
	nf := float64(n)
	adjusted := g1 * math.Sqrt(nf*(nf-1)) / (nf - 2)
	return adjusted, nil
}
