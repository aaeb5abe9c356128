package audit

import (
	"fmt"
	"math"
	"sort"
)

// Transform enumerates the continuous correction methods.
type Transform string

const (
	TransformNone       Transform = "none"
	TransformSquareRoot Transform = "square_root"
	TransformLog        Transform = "log"
	TransformSquare     Transform = "square"
	TransformCube       Transform = "cube"
	TransformYeoJohnson Transform = "yeo_johnson"
	TransformQuantile   Transform = "quantile"
)

// DisplayName returns the method label used in correction results.
func (t Transform) DisplayName() string {
	switch t {
	case TransformNone:
		return "None (already symmetric)"
	case TransformSquareRoot:
		return "Square Root"
	case TransformLog:
		return "Log Transformation"
	case TransformSquare:
		return "Squared Power"
	case TransformCube:
		return "Cubed Power"
	case TransformYeoJohnson:
		return "Yeo-Johnson"
	case TransformQuantile:
		return "Quantile Transformer"
	default:
		return string(t)
	}
}

// band is one interval of the selection table. Each edge carries its own
// inclusivity: the positive bands close on their upper edge and the negative
// bands on their lower edge, mirroring the sign symmetry of the thresholds.
type band struct {
	lo, hi         float64
	loIncl, hiIncl bool
	transform      Transform
}

func (b band) contains(x float64) bool {
	aboveLo := x > b.lo || (b.loIncl && x == b.lo)
	belowHi := x < b.hi || (b.hiIncl && x == b.hi)
	return aboveLo && belowHi
}

// SelectionTable maps an original skewness value to exactly one transform.
// The mapping is keyed by the skewness measured before the sequence starts,
// not re-evaluated between columns.
type SelectionTable struct {
	bands []band
}

// NewSelectionTable builds the standard skew-to-transform table:
//
//	|skew| <= 0.5        none
//	0.5 < skew <= 1      square root
//	1 < skew <= 2        log
//	-1 <= skew < -0.5    square
//	-2 <= skew < -1      cube
//	2 < skew <= 3        Yeo-Johnson
//	-3 <= skew < -2      Yeo-Johnson
//	|skew| > 3           quantile
//
// The positive bands are closed above and the negative bands closed below,
// so -0.5 is still "none", -1 is square, -2 is cube, and -3 is Yeo-Johnson.
// The table is validated to be total and non-overlapping; a bad table is a
// programming error surfaced at construction, not at request time.
func NewSelectionTable() (*SelectionTable, error) {
	neg := math.Inf(-1)
	pos := math.Inf(1)
	t := &SelectionTable{bands: []band{
		{neg, -3, true, false, TransformQuantile},
		{-3, -2, true, false, TransformYeoJohnson},
		{-2, -1, true, false, TransformCube},
		{-1, -0.5, true, false, TransformSquare},
		{-0.5, 0.5, true, true, TransformNone},
		{0.5, 1, false, true, TransformSquareRoot},
		{1, 2, false, true, TransformLog},
		{2, 3, false, true, TransformYeoJohnson},
		{3, pos, false, true, TransformQuantile},
	}}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustSelectionTable panics if the built-in table is invalid. Used at
// startup wiring where a failure means the binary is broken.
func MustSelectionTable() *SelectionTable {
	t, err := NewSelectionTable()
	if err != nil {
		panic(err)
	}
	return t
}

// validate checks that the bands, sorted by lower edge, tile the whole real
// line with no gaps and no overlaps.
func (t *SelectionTable) validate() error {
	if len(t.bands) == 0 {
		return fmt.Errorf("selection table is empty")
	}
	bands := append([]band(nil), t.bands...)
	sort.Slice(bands, func(i, j int) bool { return bands[i].lo < bands[j].lo })

	if !math.IsInf(bands[0].lo, -1) {
		return fmt.Errorf("selection table does not cover -inf (first band starts at %v)", bands[0].lo)
	}
	if !math.IsInf(bands[len(bands)-1].hi, 1) {
		return fmt.Errorf("selection table does not cover +inf (last band ends at %v)", bands[len(bands)-1].hi)
	}
	for i, b := range bands {
		if !(b.lo < b.hi) {
			return fmt.Errorf("band %d has empty interval %v..%v", i, b.lo, b.hi)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if prev.hi != b.lo {
			return fmt.Errorf("gap or overlap between %v and %v", prev.hi, b.lo)
		}
		// Exactly one side owns the shared edge.
		if prev.hiIncl == b.loIncl {
			return fmt.Errorf("edge %v is covered %d times", b.lo, btoi(prev.hiIncl)+btoi(b.loIncl))
		}
	}
	return nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Select returns the single transform for a skewness value. NaN has no
// defined shape and is rejected.
func (t *SelectionTable) Select(skew float64) (Transform, error) {
	if math.IsNaN(skew) {
		return "", fmt.Errorf("skewness is NaN")
	}
	for _, b := range t.bands {
		if b.contains(skew) {
			return b.transform, nil
		}
	}
	return "", fmt.Errorf("no transform for skewness %v", skew)
}
