// Package preprocess cleans a working dataset before auditing: optional
// column selection, per-column missing value strategies, and row
// deduplication.
package preprocess

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"debias/domain/table"
	"debias/internal/errors"
)

// FillStrategy is the per-column missing value policy.
type FillStrategy string

const (
	StrategyKeep   FillStrategy = "keep"
	StrategyRemove FillStrategy = "remove"
	StrategyMean   FillStrategy = "mean"
	StrategyMedian FillStrategy = "median"
	StrategyMode   FillStrategy = "mode"
)

// ParseFillStrategy validates a caller-supplied strategy name.
func ParseFillStrategy(s string) (FillStrategy, error) {
	switch FillStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyKeep, "":
		return StrategyKeep, nil
	case StrategyRemove:
		return StrategyRemove, nil
	case StrategyMean:
		return StrategyMean, nil
	case StrategyMedian:
		return StrategyMedian, nil
	case StrategyMode:
		return StrategyMode, nil
	default:
		return "", fmt.Errorf("unknown fill strategy %q (expected keep, remove, mean, median, or mode)", s)
	}
}

// Result summarizes one preprocessing pass.
type Result struct {
	Frame             *table.Frame
	RowsBefore        int
	RowsNARemoved     int
	DuplicatesRemoved int
	RowsAfter         int
	MissingValues     map[string]int
	FillActions       map[string]string
	Rows              int
	Columns           int
}

// Run applies the pipeline: restrict to the selected columns, apply each
// column's fill strategy in a deterministic order, then drop duplicate rows.
// Strategies are applied sequentially, so a remove on one column shrinks the
// population later fills compute their statistics over.
func Run(fr *table.Frame, selectedColumns []string, strategies map[string]string) (*Result, error) {
	working := fr
	if len(selectedColumns) > 0 {
		selected, err := fr.Select(selectedColumns)
		if err != nil {
			return nil, errors.ValidationError(err.Error())
		}
		working = selected
	} else {
		working = fr.Clone()
	}

	parsed := make(map[string]FillStrategy, len(strategies))
	for col, raw := range strategies {
		if !working.HasColumn(col) {
			return nil, errors.ValidationError(fmt.Sprintf("fill strategy for unknown column %q", col))
		}
		strategy, err := ParseFillStrategy(raw)
		if err != nil {
			return nil, errors.ValidationError(err.Error())
		}
		parsed[col] = strategy
	}

	result := &Result{
		RowsBefore:  working.NumRows(),
		FillActions: make(map[string]string, len(parsed)),
	}

	// Strategy order follows column order so runs are reproducible.
	for _, col := range working.Columns() {
		strategy, ok := parsed[col]
		if !ok || strategy == StrategyKeep {
			continue
		}
		action, err := applyStrategy(working, col, strategy, result)
		if err != nil {
			return nil, err
		}
		if w, changed := action.apply(working); changed {
			working = w
		}
		result.FillActions[col] = action.description
	}

	deduped, removed := dedupe(working)
	result.DuplicatesRemoved = removed
	result.Frame = deduped
	result.RowsAfter = deduped.NumRows()
	result.MissingValues = deduped.MissingCounts()
	result.Rows, result.Columns = deduped.Shape()
	return result, nil
}

type strategyAction struct {
	description string
	apply       func(*table.Frame) (*table.Frame, bool)
}

func applyStrategy(fr *table.Frame, col string, strategy FillStrategy, result *Result) (strategyAction, error) {
	switch strategy {
	case StrategyRemove:
		before := fr.NumRows()
		return strategyAction{
			description: "removed rows with missing values",
			apply: func(f *table.Frame) (*table.Frame, bool) {
				out := f.Filter(func(r int) bool {
					_, present := f.Cell(r, col)
					return present
				})
				result.RowsNARemoved += before - out.NumRows()
				return out, true
			},
		}, nil

	case StrategyMean, StrategyMedian:
		values, _, err := fr.Numeric(col)
		if err != nil {
			return strategyAction{}, errors.ValidationError(err.Error())
		}
		if len(values) == 0 {
			return strategyAction{}, errors.InsufficientData(fmt.Sprintf("column %q has no numeric values to compute a %s", col, strategy))
		}
		var fill float64
		if strategy == StrategyMean {
			fill, _ = stats.Mean(values)
		} else {
			fill, _ = stats.Median(values)
		}
		cell := strconv.FormatFloat(fill, 'g', -1, 64)
		return strategyAction{
			description: fmt.Sprintf("filled missing values with %s %s", strategy, cell),
			apply:       fillMissing(col, cell),
		}, nil

	case StrategyMode:
		counts, err := fr.ValueCounts(col)
		if err != nil {
			return strategyAction{}, errors.ValidationError(err.Error())
		}
		if len(counts) == 0 {
			return strategyAction{}, errors.InsufficientData(fmt.Sprintf("column %q has no values to compute a mode", col))
		}
		mode := modeOf(counts)
		return strategyAction{
			description: fmt.Sprintf("filled missing values with mode %q", mode),
			apply:       fillMissing(col, mode),
		}, nil
	}
	return strategyAction{}, errors.InternalError(fmt.Sprintf("unhandled strategy %q", strategy))
}

func fillMissing(col, cell string) func(*table.Frame) (*table.Frame, bool) {
	return func(f *table.Frame) (*table.Frame, bool) {
		values, err := f.Column(col)
		if err != nil {
			return f, false
		}
		for i, v := range values {
			if v == "" {
				values[i] = cell
			}
		}
		if err := f.SetColumn(col, values); err != nil {
			return f, false
		}
		return f, true
	}
}

// modeOf picks the most frequent value, breaking ties by label for
// determinism.
func modeOf(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	best, bestCount := "", -1
	for _, l := range labels {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}

// dedupe drops rows identical across all columns, keeping first occurrences.
func dedupe(fr *table.Frame) (*table.Frame, int) {
	seen := make(map[string]bool, fr.NumRows())
	names := fr.Columns()
	out := fr.Filter(func(r int) bool {
		key, err := fr.RowKey(r, names)
		if err != nil {
			return true
		}
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
	return out, fr.NumRows() - out.NumRows()
}
