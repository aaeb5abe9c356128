// Package table holds the in-memory tabular dataset model shared by the
// detection and correction engines. Cells are stored as strings the way they
// arrive from CSV/Excel parsing; numeric views are produced by coercion on
// demand. An empty cell is a missing value.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Frame is an ordered set of named columns over string cells.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates a frame from a header and row data. Rows shorter than the
// header are padded with missing cells; longer rows are truncated.
func New(columns []string, rows [][]string) *Frame {
	f := &Frame{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		rows:    make([][]string, 0, len(rows)),
	}
	for i, c := range f.columns {
		f.index[c] = i
	}
	for _, r := range rows {
		f.rows = append(f.rows, f.normalizeRow(r))
	}
	return f
}

func (f *Frame) normalizeRow(r []string) []string {
	row := make([]string, len(f.columns))
	for i := range row {
		if i < len(r) {
			row[i] = strings.TrimSpace(r[i])
		}
	}
	return row
}

// Columns returns the ordered column names.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// NumRows returns the row count.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// NumColumns returns the column count.
func (f *Frame) NumColumns() int {
	return len(f.columns)
}

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) {
	return len(f.rows), len(f.columns)
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	rows := make([][]string, len(f.rows))
	for i, r := range f.rows {
		rows[i] = append([]string(nil), r...)
	}
	return New(f.columns, rows)
}

// Cell returns the raw cell at (row, column name). The second return is
// false when the cell is missing.
func (f *Frame) Cell(row int, name string) (string, bool) {
	i, ok := f.index[name]
	if !ok || row < 0 || row >= len(f.rows) {
		return "", false
	}
	v := f.rows[row][i]
	return v, v != ""
}

// Column returns all cells of the named column including missing ones.
func (f *Frame) Column(name string) ([]string, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(f.rows))
	for r, row := range f.rows {
		out[r] = row[i]
	}
	return out, nil
}

// NonNull returns the non-missing cells of the named column.
func (f *Frame) NonNull(name string) ([]string, error) {
	vals, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// Numeric coerces the named column to floats, skipping missing and
// non-numeric cells. It returns the parsed values and the count of
// non-missing cells (numeric or not), matching how the detectors count
// n_nonnull.
func (f *Frame) Numeric(name string) ([]float64, int, error) {
	vals, err := f.Column(name)
	if err != nil {
		return nil, 0, err
	}
	out := make([]float64, 0, len(vals))
	nonNull := 0
	for _, v := range vals {
		if v == "" {
			continue
		}
		nonNull++
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			out = append(out, x)
		}
	}
	return out, nonNull, nil
}

// ValueCounts counts distinct non-missing values of the named column.
func (f *Frame) ValueCounts(name string) (map[string]int, error) {
	vals, err := f.NonNull(name)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, v := range vals {
		counts[v]++
	}
	return counts, nil
}

// MissingCounts returns per-column missing cell counts over all rows.
func (f *Frame) MissingCounts() map[string]int {
	counts := make(map[string]int, len(f.columns))
	for _, c := range f.columns {
		counts[c] = 0
	}
	for _, row := range f.rows {
		for i, v := range row {
			if v == "" {
				counts[f.columns[i]]++
			}
		}
	}
	return counts
}

// Select returns a new frame restricted to the given columns, in the given
// order. Unknown names are an error.
func (f *Frame) Select(names []string) (*Frame, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		j, ok := f.index[n]
		if !ok {
			return nil, fmt.Errorf("column %q not found", n)
		}
		idx[i] = j
	}
	rows := make([][]string, len(f.rows))
	for r, row := range f.rows {
		nr := make([]string, len(idx))
		for i, j := range idx {
			nr[i] = row[j]
		}
		rows[r] = nr
	}
	return New(names, rows), nil
}

// Filter returns a new frame containing only rows for which keep returns
// true. Row order is preserved.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	rows := make([][]string, 0, len(f.rows))
	for r := range f.rows {
		if keep(r) {
			rows = append(rows, append([]string(nil), f.rows[r]...))
		}
	}
	return New(f.columns, rows)
}

// Row returns a copy of the raw cells of one row.
func (f *Frame) Row(r int) []string {
	return append([]string(nil), f.rows[r]...)
}

// AppendRow adds one row, normalizing its width.
func (f *Frame) AppendRow(r []string) {
	f.rows = append(f.rows, f.normalizeRow(r))
}

// DuplicateRow appends a copy of an existing row. Used by oversampling.
func (f *Frame) DuplicateRow(r int) {
	f.rows = append(f.rows, append([]string(nil), f.rows[r]...))
}

// SetColumn replaces the cells of an existing column. The replacement must
// have exactly one cell per row.
func (f *Frame) SetColumn(name string, values []string) error {
	i, ok := f.index[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	if len(values) != len(f.rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(f.rows))
	}
	for r := range f.rows {
		f.rows[r][i] = strings.TrimSpace(values[r])
	}
	return nil
}

// SetNumericColumn replaces the cells of an existing column with formatted
// floats, leaving previously missing cells missing. The values slice must
// align with the column's non-missing cells in order.
func (f *Frame) SetNumericColumn(name string, values []float64) error {
	i, ok := f.index[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	vi := 0
	for r := range f.rows {
		if f.rows[r][i] == "" {
			continue
		}
		if vi >= len(values) {
			return fmt.Errorf("column %q: not enough replacement values", name)
		}
		f.rows[r][i] = strconv.FormatFloat(values[vi], 'g', -1, 64)
		vi++
	}
	if vi != len(values) {
		return fmt.Errorf("column %q: %d replacement values unused", name, len(values)-vi)
	}
	return nil
}

// Head returns up to n leading rows as JSON-friendly records with nil for
// missing cells.
func (f *Frame) Head(n int) []map[string]interface{} {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	out := make([]map[string]interface{}, n)
	for r := 0; r < n; r++ {
		rec := make(map[string]interface{}, len(f.columns))
		for i, c := range f.columns {
			if f.rows[r][i] == "" {
				rec[c] = nil
			} else {
				rec[c] = f.rows[r][i]
			}
		}
		out[r] = rec
	}
	return out
}

// RowKey builds a dedupe key for a row restricted to the given column
// indices. Cells are joined with an unlikely separator.
func (f *Frame) RowKey(r int, names []string) (string, error) {
	parts := make([]string, len(names))
	for i, n := range names {
		j, ok := f.index[n]
		if !ok {
			return "", fmt.Errorf("column %q not found", n)
		}
		parts[i] = f.rows[r][j]
	}
	return strings.Join(parts, "\x1f"), nil
}
