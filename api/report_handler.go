package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"debias/domain/audit"
	"debias/internal/errors"
	"debias/internal/report"
)

// handleReport builds the final audit report. Detections are recomputed
// against the referenced dataset; correction results are supplied by the
// caller, since they describe work done against earlier versions.
func (s *Server) handleReport(c *gin.Context) {
	var req struct {
		fileRequest
		Categorical []string                              `json:"categorical"`
		Continuous  []string                              `json:"continuous"`
		BiasResults map[string]audit.BiasCorrectionResult `json:"bias_results"`
		SkewResults map[string]audit.SkewCorrectionResult `json:"skew_results"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ref() == "" {
		respondError(c, errors.ValidationError("file_path is required"))
		return
	}

	fr, version, err := s.store.Load(c.Request.Context(), req.ref())
	if err != nil {
		respondError(c, err)
		return
	}

	categorical, continuous := req.Categorical, req.Continuous
	if len(categorical) == 0 && len(continuous) == 0 {
		if roles, err := s.registry.Roles(c.Request.Context(), version.Handle); err == nil {
			categorical, continuous = roles.Categorical, roles.Continuous
		}
	}

	input := report.Input{
		Dataset:     version.Source,
		GeneratedAt: time.Now(),
		BiasResults: req.BiasResults,
		SkewResults: req.SkewResults,
	}
	input.Rows, input.Columns = fr.Shape()

	if len(categorical) > 0 {
		diags, err := s.imbalance.Columns(c.Request.Context(), fr, categorical)
		if err != nil {
			respondError(c, err)
			return
		}
		input.Imbalance = diags
	}
	if len(continuous) > 0 {
		diags, err := s.skew.Columns(c.Request.Context(), fr, continuous)
		if err != nil {
			respondError(c, err)
			return
		}
		input.Skewness = diags
	}

	rep := report.Build(input)
	c.JSON(http.StatusOK, gin.H{
		"markdown": rep.Markdown,
		"html":     rep.HTML,
	})
}
