// Package detect implements the read-only statistical auditors: class
// imbalance over categorical columns and skewness over continuous ones.
// Detection never mutates a dataset and is idempotent for a given version.
package detect

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"debias/domain/audit"
	"debias/domain/table"
)

// maxConcurrentColumns limits the per-column detection fan-out.
const maxConcurrentColumns = 8

// ImbalanceDetector classifies class imbalance against versioned severity
// thresholds.
type ImbalanceDetector struct {
	thresholds audit.SeverityThresholds
}

// NewImbalanceDetector creates a detector with the given thresholds
func NewImbalanceDetector(thresholds audit.SeverityThresholds) *ImbalanceDetector {
	return &ImbalanceDetector{thresholds: thresholds}
}

// Column produces the imbalance diagnostic for one categorical column.
// Degenerate columns (missing, empty, single-class) get an explanatory note
// and no severity: correction is meaningless without at least two classes.
func (d *ImbalanceDetector) Column(fr *table.Frame, column string) audit.ImbalanceDiagnostic {
	if !fr.HasColumn(column) {
		return audit.ImbalanceDiagnostic{Note: audit.NoteColumnNotFound}
	}

	counts, err := fr.ValueCounts(column)
	if err != nil {
		return audit.ImbalanceDiagnostic{Note: audit.NoteColumnNotFound}
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return audit.ImbalanceDiagnostic{Note: audit.NoteNoData}
	}

	distribution := make(map[string]float64, len(counts))
	for label, c := range counts {
		distribution[label] = float64(c) / float64(total)
	}

	if len(counts) == 1 {
		return audit.ImbalanceDiagnostic{
			Distribution: distribution,
			Note:         audit.NoteConstantColumn,
		}
	}

	minCount, maxCount := -1, 0
	for _, c := range counts {
		if minCount < 0 || c < minCount {
			minCount = c
		}
		if c > maxCount {
			maxCount = c
		}
	}
	ratio := float64(minCount) / float64(maxCount)

	return audit.ImbalanceDiagnostic{
		Distribution: distribution,
		Ratio:        ratio,
		Severity:     d.thresholds.Classify(ratio),
	}
}

// Columns audits many categorical columns concurrently. One diagnostic per
// requested column; degenerate columns report notes instead of failing the
// batch.
func (d *ImbalanceDetector) Columns(ctx context.Context, fr *table.Frame, columns []string) (map[string]audit.ImbalanceDiagnostic, error) {
	results := make(map[string]audit.ImbalanceDiagnostic, len(columns))
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

	log.Printf("[ImbalanceDetector] Audited %d columns", len(columns))
	return results, nil
}
