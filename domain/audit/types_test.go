package audit

import (
	"testing"
)

func TestSeverityClassify(t *testing.T) {
	thresholds := DefaultSeverityThresholds()

	cases := []struct {
		ratio float64
		want  Severity
	}{
		{1.0, SeverityLow},
		{0.5, SeverityLow},
		{0.49, SeverityModerate},
		{0.2, SeverityModerate},
		{0.19, SeveritySevere},
		{0.01, SeveritySevere},
	}
	for _, tc := range cases {
		if got := thresholds.Classify(tc.ratio); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.ratio, got, tc.want)
		}
	}
}

func TestSeverityMonotonic(t *testing.T) {
	thresholds := DefaultSeverityThresholds()
	rank := map[Severity]int{SeverityLow: 0, SeverityModerate: 1, SeveritySevere: 2}

	prev := thresholds.Classify(1.0)
	for ratio := 0.99; ratio > 0; ratio -= 0.01 {
		cur := thresholds.Classify(ratio)
		if rank[cur] < rank[prev] {
			t.Fatalf("severity decreased from %s to %s as ratio shrank to %v", prev, cur, ratio)
		}
		prev = cur
	}
}

func TestSeverityThresholdsValid(t *testing.T) {
	if !DefaultSeverityThresholds().Valid() {
		t.Error("default thresholds should be valid")
	}
	bad := []SeverityThresholds{
		{Low: 0.2, Moderate: 0.5},
		{Low: 0.5, Moderate: 0},
		{Low: 1.5, Moderate: 0.2},
	}
	for _, th := range bad {
		if th.Valid() {
			t.Errorf("thresholds %+v should be invalid", th)
		}
	}
}

func TestInterpretSkewness(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	cases := []struct {
		skew *float64
		want string
	}{
		{f(0.0), "Symmetric"},
		{f(0.5), "Symmetric"},
		{f(-0.5), "Symmetric"},
		{f(0.8), "Slightly right-skewed"},
		{f(-0.8), "Slightly left-skewed"},
		{f(1.5), "Moderately right-skewed"},
		{f(-1.5), "Moderately left-skewed"},
		{f(3.0), "Highly right-skewed"},
		{f(-3.0), "Highly left-skewed"},
		{nil, "N/A"},
	}
	for _, tc := range cases {
		if got := InterpretSkewness(tc.skew); got.Label != tc.want {
			t.Errorf("InterpretSkewness(%v) = %q, want %q", tc.skew, got.Label, tc.want)
		}
	}
}

func TestParseCorrectionMethod(t *testing.T) {
	for _, name := range []string{"oversample", "Undersample", " SMOTE ", "reweight"} {
		if _, err := ParseCorrectionMethod(name); err != nil {
			t.Errorf("ParseCorrectionMethod(%q) unexpected error: %v", name, err)
		}
	}
	if _, err := ParseCorrectionMethod("resample"); err == nil {
		t.Error("expected error for unknown method")
	}
	if _, err := ParseCorrectionMethod(""); err == nil {
		t.Error("expected error for empty method")
	}
}
