// Package correct implements the correction engine: categorical resampling
// and reweighting, continuous transforms, and the job sequencing that ties
// multi-column corrections together.
package correct

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"

	"debias/domain/audit"
	"debias/domain/table"
	"debias/internal/errors"
)

// DefaultThreshold is the minority:majority ratio a resampling correction
// targets when the caller does not supply one.
const DefaultThreshold = 0.5

// CategoricalCorrector applies class-balance corrections to one target
// column. All randomness flows through the injected source so identical
// requests produce identical outputs.
type CategoricalCorrector struct {
	seed           int64
	smoteNeighbors int
}

// NewCategoricalCorrector creates a corrector with a fixed seed
func NewCategoricalCorrector(seed int64, smoteNeighbors int) *CategoricalCorrector {
	if smoteNeighbors < 1 {
		smoteNeighbors = 5
	}
	return &CategoricalCorrector{seed: seed, smoteNeighbors: smoteNeighbors}
}

// ClassStats summarizes the class distribution of the target column.
func ClassStats(fr *table.Frame, target string) (audit.ClassDistribution, error) {
	counts, err := fr.ValueCounts(target)
	if err != nil {
		return audit.ClassDistribution{}, err
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	dist := make(map[string]float64, len(counts))
	for label, c := range counts {
		if total > 0 {
			dist[label] = float64(c) / float64(total)
		}
	}
	return audit.ClassDistribution{Counts: counts, Distribution: dist, Total: total}, nil
}

// Apply runs one correction method against the target column and returns the
// corrected frame (nil for reweight, which never touches rows) plus the
// before/after distributions.
func (c *CategoricalCorrector) Apply(fr *table.Frame, target string, method audit.CorrectionMethod, threshold float64, categoricalColumns []string) (*table.Frame, *audit.BiasCorrectionResult, error) {
	if !fr.HasColumn(target) {
		return nil, nil, errors.ValidationError(fmt.Sprintf("target column %q not found", target))
	}
	if threshold <= 0 || threshold > 1 {
		return nil, nil, errors.ValidationError(fmt.Sprintf("threshold must be in (0, 1], got %v", threshold))
	}

	before, err := ClassStats(fr, target)
	if err != nil {
		return nil, nil, errors.ValidationError(err.Error())
	}
	if len(before.Counts) < 2 {
		return nil, nil, errors.ValidationError(fmt.Sprintf("column %q has %d class(es); correction needs at least two", target, len(before.Counts)))
	}

	rng := rand.New(rand.NewSource(c.seed))
	result := &audit.BiasCorrectionResult{Method: method, Before: before}

	var out *table.Frame
	switch method {
	case audit.MethodOversample:
		out = c.oversample(fr, target, threshold, rng)
	case audit.MethodUndersample:
		out = c.undersample(fr, target, threshold, rng)
	case audit.MethodSMOTE:
		out, err = c.smote(fr, target, threshold, categoricalColumns, rng)
		if err != nil {
			return nil, nil, err
		}
	case audit.MethodReweight:
		result.ClassWeights = balancedWeights(before)
		result.After = weightedView(before, result.ClassWeights)
		return nil, result, nil
	default:
		return nil, nil, errors.ValidationError(fmt.Sprintf("unknown correction method %q", method))
	}

	after, err := ClassStats(out, target)
	if err != nil {
		return nil, nil, errors.InternalError(err.Error())
	}
	result.After = after
	return out, result, nil
}

// rowsByClass indexes the non-null rows of the target column by class label.
func rowsByClass(fr *table.Frame, target string) map[string][]int {
	byClass := make(map[string][]int)
	for r := 0; r < fr.NumRows(); r++ {
		if v, ok := fr.Cell(r, target); ok {
			byClass[v] = append(byClass[v], r)
		}
	}
	return byClass
}

// sortedLabels gives a deterministic iteration order over classes.
func sortedLabels(byClass map[string][]int) []string {
	labels := make([]string, 0, len(byClass))
	for l := range byClass {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// oversample duplicates random minority rows until every class reaches the
// threshold ratio against the majority. Row counts only ever grow.
func (c *CategoricalCorrector) oversample(fr *table.Frame, target string, threshold float64, rng *rand.Rand) *table.Frame {
	out := fr.Clone()
	byClass := rowsByClass(out, target)

	maxCount := 0
	for _, rows := range byClass {
		if len(rows) > maxCount {
			maxCount = len(rows)
		}
	}
	want := int(math.Ceil(threshold * float64(maxCount)))

	for _, label := range sortedLabels(byClass) {
		rows := byClass[label]
		for have := len(rows); have < want; have++ {
			out.DuplicateRow(rows[rng.Intn(len(rows))])
		}
	}
	return out
}

// undersample drops random majority rows until every class is within the
// threshold ratio of the (original) minority. Rows with a missing target
// value belong to no class and are kept. Row counts only ever shrink.
func (c *CategoricalCorrector) undersample(fr *table.Frame, target string, threshold float64, rng *rand.Rand) *table.Frame {
	byClass := rowsByClass(fr, target)

	minCount := -1
	for _, rows := range byClass {
		if minCount < 0 || len(rows) < minCount {
			minCount = len(rows)
		}
	}
	allowed := int(math.Floor(float64(minCount) / threshold))

	drop := make(map[int]bool)
	for _, label := range sortedLabels(byClass) {
		rows := byClass[label]
		if len(rows) <= allowed {
			continue
		}
		shuffled := append([]int(nil), rows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		for _, r := range shuffled[allowed:] {
			drop[r] = true
		}
	}
	return fr.Filter(func(r int) bool { return !drop[r] })
}

// smote synthesizes minority rows by interpolating between nearest
// same-class neighbors in numeric feature space. Columns named in
// categoricalColumns are filled with the neighborhood's most frequent value
// (the SMOTE-NC variant); all remaining features must be numeric.
func (c *CategoricalCorrector) smote(fr *table.Frame, target string, threshold float64, categoricalColumns []string, rng *rand.Rand) (*table.Frame, error) {
	catSet := make(map[string]bool, len(categoricalColumns))
	for _, col := range categoricalColumns {
		if !fr.HasColumn(col) {
			return nil, errors.ValidationError(fmt.Sprintf("categorical column %q not found", col))
		}
		if col == target {
			return nil, errors.ValidationError(fmt.Sprintf("target column %q cannot be listed as a categorical feature", col))
		}
		catSet[col] = true
	}

	var numericFeatures, catFeatures []string
	for _, col := range fr.Columns() {
		if col == target {
			continue
		}
		if catSet[col] {
			catFeatures = append(catFeatures, col)
		} else {
			numericFeatures = append(numericFeatures, col)
		}
	}

	// Every unlisted feature must coerce cleanly; SMOTE interpolates in
	// numeric space and cannot invent values for text it was not told about.
	for _, col := range numericFeatures {
		if !columnIsNumeric(fr, col) {
			return nil, errors.MissingParameter(fmt.Sprintf(
				"column %q is not numeric; smote requires categorical_columns listing every non-numeric feature", col))
		}
	}
	if len(numericFeatures) == 0 {
		return nil, errors.ValidationError("smote requires at least one numeric feature column")
	}

	out := fr.Clone()
	byClass := rowsByClass(out, target)

	maxCount := 0
	for _, rows := range byClass {
		if len(rows) > maxCount {
			maxCount = len(rows)
		}
	}
	want := int(math.Ceil(threshold * float64(maxCount)))

	for _, label := range sortedLabels(byClass) {
		rows := byClass[label]
		if len(rows) >= want {
			continue
		}

		// Interpolation needs complete numeric vectors.
		candidates, vectors := completeRows(out, rows, numericFeatures)
		if len(candidates) < 2 {
			return nil, errors.InsufficientData(fmt.Sprintf(
				"class %q has %d complete row(s); smote needs at least 2", label, len(candidates)))
		}

		k := c.smoteNeighbors
		if k > len(candidates)-1 {
			k = len(candidates) - 1
		}

		for have := len(rows); have < want; have++ {
			base := rng.Intn(len(candidates))
			neighbors := nearestNeighbors(vectors, base, k)
			pick := neighbors[rng.Intn(len(neighbors))]
			gap := rng.Float64()

			synthetic := make(map[string]string, out.NumColumns())
			for fi, col := range numericFeatures {
				v := vectors[base][fi] + gap*(vectors[pick][fi]-vectors[base][fi])
				synthetic[col] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			hood := append([]int{base}, neighbors...)
			for _, col := range catFeatures {
				synthetic[col] = neighborhoodMode(out, candidates, hood, col)
			}
			synthetic[target] = label

			row := make([]string, 0, out.NumColumns())
			for _, col := range out.Columns() {
				row = append(row, synthetic[col])
			}
			out.AppendRow(row)
		}
	}
	return out, nil
}

func columnIsNumeric(fr *table.Frame, col string) bool {
	vals, err := fr.NonNull(col)
	if err != nil {
		return false
	}
	for _, v := range vals {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

// completeRows returns the subset of rows whose numeric features are all
// present, along with their parsed feature vectors.
func completeRows(fr *table.Frame, rows []int, features []string) ([]int, [][]float64) {
	var kept []int
	var vectors [][]float64
	for _, r := range rows {
		vec := make([]float64, len(features))
		ok := true
		for i, col := range features {
			cell, present := fr.Cell(r, col)
			if !present {
				ok = false
				break
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				ok = false
				break
			}
			vec[i] = v
		}
		if ok {
			kept = append(kept, r)
			vectors = append(vectors, vec)
		}
	}
	return kept, vectors
}

// nearestNeighbors returns the indices (into vectors) of the k nearest
// vectors to base by Euclidean distance, excluding base itself.
func nearestNeighbors(vectors [][]float64, base, k int) []int {
	type dist struct {
		idx int
		d   float64
	}
	dists := make([]dist, 0, len(vectors)-1)
	for i, v := range vectors {
		if i == base {
			continue
		}
		d := 0.0
		for j := range v {
			diff := v[j] - vectors[base][j]
			d += diff * diff
		}
		dists = append(dists, dist{i, d})
	}
	sort.Slice(dists, func(i, j int) bool { return dists[i].d < dists[j].d })
	if k > len(dists) {
		k = len(dists)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = dists[i].idx
	}
	return out
}

// neighborhoodMode picks the most frequent value of a categorical feature
// among the neighborhood rows, breaking ties deterministically by label.
func neighborhoodMode(fr *table.Frame, candidates []int, hood []int, col string) string {
	counts := make(map[string]int)
	for _, i := range hood {
		if v, ok := fr.Cell(candidates[i], col); ok {
			counts[v]++
		}
	}
	best, bestCount := "", -1
	for _, label := range sortedKeys(counts) {
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	return best
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// balancedWeights computes class weights as total / (classes * count), so
// rare classes weigh proportionally more.
func balancedWeights(dist audit.ClassDistribution) map[string]float64 {
	weights := make(map[string]float64, len(dist.Counts))
	k := float64(len(dist.Counts))
	for label, count := range dist.Counts {
		weights[label] = float64(dist.Total) / (k * float64(count))
	}
	return weights
}

// weightedView is the distribution the weights make effective: counts are
// untouched, proportions reflect weighted mass.
func weightedView(dist audit.ClassDistribution, weights map[string]float64) audit.ClassDistribution {
	weighted := make(map[string]float64, len(dist.Counts))
	sum := 0.0
	for label, count := range dist.Counts {
		weighted[label] = float64(count) * weights[label]
		sum += weighted[label]
	}
	out := audit.ClassDistribution{
		Counts:       dist.Counts,
		Distribution: make(map[string]float64, len(weighted)),
		Total:        dist.Total,
	}
	for label, w := range weighted {
		out.Distribution[label] = w / sum
	}
	return out
}
