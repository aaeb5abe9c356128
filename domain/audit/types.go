// Package audit defines the diagnostic and correction vocabulary of the
// bias engine: imbalance and skewness diagnostics, severity classification,
// and the correction method enums.
package audit

import (
	"fmt"
	"strings"

	"debias/domain/core"
)

// Severity classifies the magnitude of class imbalance.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// SeverityThresholds holds the minority:majority ratio cutoffs for the
// severity ladder. These are a versioned contract, not tunables scattered
// through the detectors: ratio >= Low is Low, ratio >= Moderate is Moderate,
// anything below is Severe.
type SeverityThresholds struct {
	Low      float64 `json:"low"`
	Moderate float64 `json:"moderate"`
}

// DefaultSeverityThresholds matches the classifier this engine replaces.
func DefaultSeverityThresholds() SeverityThresholds {
	return SeverityThresholds{Low: 0.5, Moderate: 0.2}
}

// Classify maps a minority:majority ratio onto the severity ladder.
// Monotonic: a smaller ratio never yields a less severe class.
func (t SeverityThresholds) Classify(ratio float64) Severity {
	switch {
	case ratio >= t.Low:
		return SeverityLow
	case ratio >= t.Moderate:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// Valid reports whether the thresholds are ordered and in (0, 1].
func (t SeverityThresholds) Valid() bool {
	return t.Moderate > 0 && t.Moderate < t.Low && t.Low <= 1
}

// Diagnostic notes for degenerate columns. A column carrying one of these
// has no severity: correction is meaningless without at least two classes.
const (
	NoteColumnNotFound = "Column not found"
	NoteNotCategorical = "Column is not classified as categorical"
	NoteNoData         = "No data"
	NoteConstantColumn = "Constant column"
)

// ImbalanceDiagnostic describes the class distribution of one categorical
// column. Distribution maps class label to proportion; proportions sum to
// 1.0 within floating tolerance. Severity is empty when Note explains a
// degenerate case.
type ImbalanceDiagnostic struct {
	Distribution map[string]float64 `json:"distribution,omitempty"`
	Severity     Severity           `json:"severity,omitempty"`
	Ratio        float64            `json:"ratio,omitempty"`
	Note         string             `json:"note,omitempty"`
}

// Degenerate reports whether the diagnostic describes a column that cannot
// be corrected (missing, empty, or single-class).
func (d ImbalanceDiagnostic) Degenerate() bool {
	return d.Note != ""
}

// ClassDistribution is the before/after summary attached to categorical
// correction results.
type ClassDistribution struct {
	Counts       map[string]int     `json:"counts"`
	Distribution map[string]float64 `json:"distribution"`
	Total        int                `json:"total"`
}

// SkewnessDiagnostic describes the asymmetry of one continuous column.
// Skewness is the adjusted Fisher-Pearson standardized third moment; it is
// nil when Error is set (fewer than 3 non-null numeric values, or zero
// variance).
type SkewnessDiagnostic struct {
	Column   string   `json:"column"`
	Skewness *float64 `json:"skewness"`
	NNonNull int      `json:"n_nonnull"`
	Error    string   `json:"error,omitempty"`
}

// SkewShape is the interpreted label of a skewness value.
type SkewShape struct {
	Label       string `json:"label"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// InterpretSkewness classifies a skewness magnitude: |skew| <= 0.5 is
// symmetric, <= 1 slight, <= 2 moderate, above that high; the sign gives the
// direction.
func InterpretSkewness(skew *float64) SkewShape {
	if skew == nil {
		return SkewShape{Label: "N/A", Severity: "none", Description: "Unable to compute skewness"}
	}
	abs := *skew
	if abs < 0 {
		abs = -abs
	}
	direction := "right"
	if *skew < 0 {
		direction = "left"
	}
	switch {
	case abs <= 0.5:
		return SkewShape{Label: "Symmetric", Severity: "low", Description: "Distribution is approximately symmetric"}
	case abs <= 1:
		return SkewShape{
			Label:       fmt.Sprintf("Slightly %s-skewed", direction),
			Severity:    "moderate",
			Description: fmt.Sprintf("Distribution shows slight %s skew", direction),
		}
	case abs <= 2:
		return SkewShape{
			Label:       fmt.Sprintf("Moderately %s-skewed", direction),
			Severity:    "high",
			Description: fmt.Sprintf("Distribution shows moderate %s skew", direction),
		}
	default:
		return SkewShape{
			Label:       fmt.Sprintf("Highly %s-skewed", direction),
			Severity:    "severe",
			Description: fmt.Sprintf("Distribution is highly %s-skewed", direction),
		}
	}
}

// CorrectionMethod enumerates categorical correction methods.
type CorrectionMethod string

const (
	MethodOversample  CorrectionMethod = "oversample"
	MethodUndersample CorrectionMethod = "undersample"
	MethodSMOTE       CorrectionMethod = "smote"
	MethodReweight    CorrectionMethod = "reweight"
)

// ParseCorrectionMethod validates a caller-supplied method name. Unknown
// names are an error, never a silent no-op.
func ParseCorrectionMethod(s string) (CorrectionMethod, error) {
	switch CorrectionMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodOversample:
		return MethodOversample, nil
	case MethodUndersample:
		return MethodUndersample, nil
	case MethodSMOTE:
		return MethodSMOTE, nil
	case MethodReweight:
		return MethodReweight, nil
	default:
		return "", fmt.Errorf("%w: %q (expected oversample, undersample, smote, or reweight)", core.ErrUnknownMethod, s)
	}
}

// JobState is the lifecycle of a correction job.
type JobState string

const (
	JobPending   JobState = "PENDING"
	JobRunning   JobState = "RUNNING"
	JobSucceeded JobState = "SUCCEEDED"
	JobFailed    JobState = "FAILED"
)

// CorrectionJob records one method application to one column.
type CorrectionJob struct {
	ID           core.JobID       `json:"id"`
	InputHandle  core.HandleID    `json:"input_handle"`
	OutputHandle core.HandleID    `json:"output_handle,omitempty"`
	TargetColumn string           `json:"target_column"`
	Method       CorrectionMethod `json:"method"`
	Threshold    *float64         `json:"threshold,omitempty"`
	State        JobState         `json:"state"`
	Error        string           `json:"error,omitempty"`
	StartedAt    core.Timestamp   `json:"started_at"`
	FinishedAt   core.Timestamp   `json:"finished_at,omitempty"`
}

// BiasCorrectionResult is the outcome of one categorical correction job.
type BiasCorrectionResult struct {
	Method       CorrectionMethod   `json:"method"`
	Before       ClassDistribution  `json:"before"`
	After        ClassDistribution  `json:"after"`
	ClassWeights map[string]float64 `json:"class_weights,omitempty"`
	Handle       core.HandleID      `json:"corrected_handle"`
}

// SkewCorrectionResult is the outcome of one continuous transform.
// AfterSkewness is recomputed against the transformed column; the engine
// reports whatever the transform achieves, it does not retry.
type SkewCorrectionResult struct {
	OriginalSkewness *float64 `json:"original_skewness"`
	NewSkewness      *float64 `json:"new_skewness"`
	Method           string   `json:"method"`
	Error            string   `json:"error,omitempty"`
}
