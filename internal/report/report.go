// Package report assembles the final audit report: a markdown document
// summarizing detections and corrections, plus an HTML rendering of it.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"debias/domain/audit"
)

// Input collects everything a workflow produced that the report covers.
// Sections for absent maps are skipped.
type Input struct {
	Dataset         string
	Rows            int
	Columns         int
	Imbalance       map[string]audit.ImbalanceDiagnostic
	BiasResults     map[string]audit.BiasCorrectionResult
	Skewness        map[string]audit.SkewnessDiagnostic
	SkewResults     map[string]audit.SkewCorrectionResult
	GeneratedAt     time.Time
}

// Report holds the rendered document in both forms.
type Report struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Build renders the audit report.
func Build(in Input) *Report {
	var b strings.Builder

	fmt.Fprintf(&b, "# Dataset Bias Audit Report\n\n")
	if in.Dataset != "" {
		fmt.Fprintf(&b, "**Dataset:** %s\n\n", in.Dataset)
	}
	if in.Rows > 0 || in.Columns > 0 {
		fmt.Fprintf(&b, "**Shape:** %d rows × %d columns\n\n", in.Rows, in.Columns)
	}
	when := in.GeneratedAt
	if when.IsZero() {
		when = time.Now()
	}
	fmt.Fprintf(&b, "**Generated:** %s\n\n", when.Format(time.RFC1123))

	writeImbalanceSection(&b, in.Imbalance)
	writeBiasResultsSection(&b, in.BiasResults)
	writeSkewnessSection(&b, in.Skewness)
	writeSkewResultsSection(&b, in.SkewResults)

	md := b.String()
	return &Report{Markdown: md, HTML: renderHTML(md)}
}

func writeImbalanceSection(b *strings.Builder, diags map[string]audit.ImbalanceDiagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(b, "## Class Imbalance\n\n")
	fmt.Fprintf(b, "| Column | Severity | Minority:Majority | Distribution |\n")
	fmt.Fprintf(b, "|---|---|---|---|\n")
	for _, col := range sortedKeys(diags) {
		d := diags[col]
		if d.Degenerate() {
			fmt.Fprintf(b, "| %s | — | — | %s |\n", col, d.Note)
			continue
		}
		fmt.Fprintf(b, "| %s | %s | %.3f | %s |\n", col, d.Severity, d.Ratio, formatDistribution(d.Distribution))
	}
	fmt.Fprintf(b, "\n")
}

func writeBiasResultsSection(b *strings.Builder, results map[string]audit.BiasCorrectionResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(b, "## Bias Corrections\n\n")
	for _, col := range sortedKeys(results) {
		r := results[col]
		fmt.Fprintf(b, "### %s (%s)\n\n", col, r.Method)
		fmt.Fprintf(b, "- Before: %s (%d rows)\n", formatDistribution(r.Before.Distribution), r.Before.Total)
		fmt.Fprintf(b, "- After: %s (%d rows)\n", formatDistribution(r.After.Distribution), r.After.Total)
		if len(r.ClassWeights) > 0 {
			fmt.Fprintf(b, "- Class weights: %s\n", formatWeights(r.ClassWeights))
		}
		fmt.Fprintf(b, "\n")
	}
}

func writeSkewnessSection(b *strings.Builder, diags map[string]audit.SkewnessDiagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(b, "## Skewness\n\n")
	fmt.Fprintf(b, "| Column | Skewness | Shape | Non-null |\n")
	fmt.Fprintf(b, "|---|---|---|---|\n")
	for _, col := range sortedKeys(diags) {
		d := diags[col]
		if d.Error != "" {
			fmt.Fprintf(b, "| %s | — | %s | %d |\n", col, d.Error, d.NNonNull)
			continue
		}
		shape := audit.InterpretSkewness(d.Skewness)
		fmt.Fprintf(b, "| %s | %.4f | %s | %d |\n", col, *d.Skewness, shape.Label, d.NNonNull)
	}
	fmt.Fprintf(b, "\n")
}

func writeSkewResultsSection(b *strings.Builder, results map[string]audit.SkewCorrectionResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(b, "## Skewness Corrections\n\n")
	fmt.Fprintf(b, "| Column | Method | Before | After |\n")
	fmt.Fprintf(b, "|---|---|---|---|\n")
	for _, col := range sortedKeys(results) {
		r := results[col]
		if r.Error != "" {
			fmt.Fprintf(b, "| %s | %s | — | %s |\n", col, r.Method, r.Error)
			continue
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", col, r.Method, formatSkew(r.OriginalSkewness), formatSkew(r.NewSkewness))
	}
	fmt.Fprintf(b, "\n")
}

func formatSkew(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.4f", *v)
}

func formatWeights(weights map[string]float64) string {
	parts := make([]string, 0, len(weights))
	for _, label := range sortedKeys(weights) {
		parts = append(parts, fmt.Sprintf("%s: %.3f", label, weights[label]))
	}
	return strings.Join(parts, ", ")
}

func formatDistribution(dist map[string]float64) string {
	parts := make([]string, 0, len(dist))
	for _, label := range sortedKeys(dist) {
		parts = append(parts, fmt.Sprintf("%s: %.1f%%", label, dist[label]*100))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(md), p, renderer))
}
