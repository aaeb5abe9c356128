package correct

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"debias/domain/audit"
)

// ApplyTransform runs one continuous transform over a column's numeric
// values. The input slice is never mutated. A transform that produces NaN or
// Inf for any value fails as a whole; the column is left as it was.
func ApplyTransform(t audit.Transform, values []float64) ([]float64, error) {
	var out []float64
	switch t {
	case audit.TransformNone:
		out = append([]float64(nil), values...)
	case audit.TransformSquareRoot:
		out = mapShiftedNonNegative(values, math.Sqrt)
	case audit.TransformLog:
		out = mapShiftedNonNegative(values, math.Log1p)
	case audit.TransformSquare:
		out = mapValues(values, func(v float64) float64 { return v * v })
	case audit.TransformCube:
		out = mapValues(values, func(v float64) float64 { return v * v * v })
	case audit.TransformYeoJohnson:
		out = yeoJohnsonFit(values)
	case audit.TransformQuantile:
		out = quantileToNormal(values)
	default:
		return nil, fmt.Errorf("unknown transform %q", t)
	}

	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s produced a non-finite value", t.DisplayName())
		}
	}
	return out, nil
}

func mapValues(values []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = f(v)
	}
	return out
}

// mapShiftedNonNegative shifts the column so its minimum is zero before
// applying a transform that is undefined on negatives.
func mapShiftedNonNegative(values []float64, f func(float64) float64) []float64 {
	min := math.Inf(1)
	for _, v := range values {
		if v < min {
			min = v
		}
	}
	shift := 0.0
	if min < 0 {
		shift = -min
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = f(v + shift)
	}
	return out
}

// yeoJohnson applies the Yeo-Johnson power transform with parameter lambda.
func yeoJohnson(v, lambda float64) float64 {
	switch {
	case v >= 0 && lambda != 0:
		return (math.Pow(v+1, lambda) - 1) / lambda
	case v >= 0:
		return math.Log1p(v)
	case lambda != 2:
		return -(math.Pow(-v+1, 2-lambda) - 1) / (2 - lambda)
	default:
		return -math.Log1p(-v)
	}
}

// yeoJohnsonFit picks lambda by maximizing the profile log-likelihood over a
// fixed grid, then applies the transform. A grid is plenty here: the goal is
// symmetry, not an exact MLE.
func yeoJohnsonFit(values []float64) []float64 {
	bestLambda, bestLL := 1.0, math.Inf(-1)
	for lambda := -5.0; lambda <= 5.0+1e-9; lambda += 0.1 {
		ll := yeoJohnsonLogLikelihood(values, lambda)
		if ll > bestLL {
			bestLL, bestLambda = ll, lambda
		}
	}
	return mapValues(values, func(v float64) float64 { return yeoJohnson(v, bestLambda) })
}

func yeoJohnsonLogLikelihood(values []float64, lambda float64) float64 {
	n := float64(len(values))
	transformed := mapValues(values, func(v float64) float64 { return yeoJohnson(v, lambda) })

	mean := 0.0
	for _, v := range transformed {
		mean += v
	}
	mean /= n
	variance := 0.0
	for _, v := range transformed {
		d := v - mean
		variance += d * d
	}
	variance /= n
	if variance <= 0 {
		return math.Inf(-1)
	}

	ll := -n / 2 * math.Log(variance)
	for _, v := range values {
		ll += (lambda - 1) * math.Copysign(math.Log1p(math.Abs(v)), v)
	}
	return ll
}

// quantileToNormal maps values onto a standard normal through their ranks
// (Hazen plotting positions, ties averaged). The result is as symmetric as
// the ranks allow regardless of the input shape.
func quantileToNormal(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j) / 2
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	out := make([]float64, n)
	for i, r := range ranks {
		p := (r + 0.5) / float64(n)
		out[i] = norm.Quantile(p)
	}
	return out
}
