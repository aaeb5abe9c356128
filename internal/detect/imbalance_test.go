package detect

import (
	"context"
	"math"
	"testing"

	"debias/domain/audit"
	"debias/domain/table"
	"debias/internal/testkit"
)

func TestImbalanceProportionsSumToOne(t *testing.T) {
	gen := testkit.NewGenerator(1)
	fr := gen.ImbalancedFrame("gender", map[string]int{"male": 900, "female": 100})
	d := NewImbalanceDetector(audit.DefaultSeverityThresholds())

	diag := d.Column(fr, "gender")
	if diag.Degenerate() {
		t.Fatalf("unexpected note: %s", diag.Note)
	}
	sum := 0.0
	for _, p := range diag.Distribution {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("proportions sum to %v, want 1.0", sum)
	}
}

func TestImbalanceSeverity(t *testing.T) {
	d := NewImbalanceDetector(audit.DefaultSeverityThresholds())
	gen := testkit.NewGenerator(2)

	cases := []struct {
		counts map[string]int
		want   audit.Severity
	}{
		{map[string]int{"a": 60, "b": 40}, audit.SeverityLow},
		{map[string]int{"a": 75, "b": 25}, audit.SeverityModerate},
		{map[string]int{"a": 900, "b": 100}, audit.SeveritySevere},
	}
	for _, tc := range cases {
		fr := gen.ImbalancedFrame("class", tc.counts)
		diag := d.Column(fr, "class")
		if diag.Severity != tc.want {
			t.Errorf("counts %v: severity %s, want %s (ratio %v)", tc.counts, diag.Severity, tc.want, diag.Ratio)
		}
	}
}

func TestImbalanceDegenerateColumns(t *testing.T) {
	d := NewImbalanceDetector(audit.DefaultSeverityThresholds())

	constant := table.New([]string{"c"}, [][]string{{"x"}, {"x"}, {"x"}})
	diag := d.Column(constant, "c")
	if diag.Note != audit.NoteConstantColumn {
		t.Errorf("constant column note = %q, want %q", diag.Note, audit.NoteConstantColumn)
	}
	if diag.Severity != "" {
		t.Errorf("constant column should have no severity, got %s", diag.Severity)
	}

	empty := table.New([]string{"c"}, [][]string{{""}, {""}})
	diag = d.Column(empty, "c")
	if diag.Note != audit.NoteNoData {
		t.Errorf("empty column note = %q, want %q", diag.Note, audit.NoteNoData)
	}

	diag = d.Column(empty, "missing")
	if diag.Note != audit.NoteColumnNotFound {
		t.Errorf("unknown column note = %q, want %q", diag.Note, audit.NoteColumnNotFound)
	}
}

func TestImbalanceBatch(t *testing.T) {
	gen := testkit.NewGenerator(3)
	fr := gen.ImbalancedFrame("class", map[string]int{"a": 50, "b": 50})
	d := NewImbalanceDetector(audit.DefaultSeverityThresholds())

	results, err := d.Columns(context.Background(), fr, []string{"class", "nope", "feature"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", len(results))
	}
	if results["class"].Degenerate() {
		t.Errorf("balanced column should not be degenerate: %+v", results["class"])
	}
	if results["nope"].Note != audit.NoteColumnNotFound {
		t.Errorf("unknown column should carry a note, got %+v", results["nope"])
	}
}

func TestImbalanceIdempotent(t *testing.T) {
	gen := testkit.NewGenerator(4)
	fr := gen.ImbalancedFrame("class", map[string]int{"a": 70, "b": 30})
	d := NewImbalanceDetector(audit.DefaultSeverityThresholds())

	first := d.Column(fr, "class")
	second := d.Column(fr, "class")
	if first.Ratio != second.Ratio || first.Severity != second.Severity {
		t.Error("repeated detection should produce identical diagnostics")
	}
	if fr.NumRows() != 100 {
		t.Error("detection must not mutate the frame")
	}
}
