// Package testkit generates synthetic datasets for tests: imbalanced
// categorical columns with known class counts and numeric columns with known
// distribution shapes.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"debias/domain/table"
)

// Generator builds deterministic synthetic frames.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator with a fixed seed
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// ImbalancedFrame builds a frame with one categorical column holding exactly
// the given class counts plus a numeric feature column, rows shuffled.
func (g *Generator) ImbalancedFrame(column string, classCounts map[string]int) *table.Frame {
	var rows [][]string
	for label, count := range classCounts {
		for i := 0; i < count; i++ {
			feature := g.rng.NormFloat64()*10 + 50
			rows = append(rows, []string{
				label,
				strconv.FormatFloat(feature, 'g', -1, 64),
			})
		}
	}
	g.rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return table.New([]string{column, "feature"}, rows)
}

// LogNormalColumn returns n samples from a log-normal distribution, a
// strongly right-skewed shape.
func (g *Generator) LogNormalColumn(n int, mu, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(mu + sigma*g.rng.NormFloat64())
	}
	return out
}

// NormalColumn returns n samples from a normal distribution.
func (g *Generator) NormalColumn(n int, mean, sd float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + sd*g.rng.NormFloat64()
	}
	return out
}

// NumericFrame builds a single-column frame from float values.
func NumericFrame(column string, values []float64) *table.Frame {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{strconv.FormatFloat(v, 'g', -1, 64)}
	}
	return table.New([]string{column}, rows)
}

// MixedFrame builds a frame with one categorical and one numeric column of
// equal length, for SMOTE-NC style tests.
func (g *Generator) MixedFrame(target string, classCounts map[string]int, catFeature []string) *table.Frame {
	var rows [][]string
	for label, count := range classCounts {
		for i := 0; i < count; i++ {
			rows = append(rows, []string{
				label,
				strconv.FormatFloat(g.rng.NormFloat64()*5+20, 'g', -1, 64),
				catFeature[g.rng.Intn(len(catFeature))],
			})
		}
	}
	g.rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return table.New([]string{target, "amount", "segment"}, rows)
}

// CSVBytes renders a frame as raw CSV for upload-path tests.
func CSVBytes(fr *table.Frame) []byte {
	out := ""
	cols := fr.Columns()
	out += joinCSV(cols)
	for i := 0; i < fr.NumRows(); i++ {
		out += joinCSV(fr.Row(i))
	}
	return []byte(out)
}

func joinCSV(cells []string) string {
	line := ""
	for i, c := range cells {
		if i > 0 {
			line += ","
		}
		line += c
	}
	return fmt.Sprintf("%s\n", line)
}
