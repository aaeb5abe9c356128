package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"debias/domain/audit"
	"debias/internal/errors"
	"debias/internal/viz"
)

func (s *Server) handleSkewnessDetect(c *gin.Context) {
	var req struct {
		fileRequest
		Column string `json:"column"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ref() == "" {
		respondError(c, errors.ValidationError("file_path is required"))
		return
	}
	if req.Column == "" {
		respondError(c, errors.ValidationError("column is required"))
		return
	}

	fr, version, err := s.store.Load(c.Request.Context(), req.ref())
	if err != nil {
		respondError(c, err)
		return
	}

	diag, ok := s.registry.CachedSkewness(version.Handle, req.Column)
	if !ok {
		diag = s.skew.Column(fr, req.Column)
		s.registry.StoreSkewness(version.Handle, req.Column, diag)
	}

	if diag.Error != "" {
		if diag.Error == audit.NoteColumnNotFound {
			respondError(c, errors.NotFound("column "+req.Column))
			return
		}
		respondError(c, errors.InsufficientData(diag.Error))
		return
	}

	shape := audit.InterpretSkewness(diag.Skewness)
	c.JSON(http.StatusOK, gin.H{
		"column":    diag.Column,
		"skewness":  diag.Skewness,
		"n_nonnull": diag.NNonNull,
		"message":   shape.Description,
		"shape":     shape.Label,
	})
}

func (s *Server) handleSkewnessFix(c *gin.Context) {
	var req struct {
		fileRequest
		Columns []string `json:"columns"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ref() == "" {
		respondError(c, errors.ValidationError("file_path is required"))
		return
	}
	if len(req.Columns) == 0 {
		respondError(c, errors.ValidationError("columns must name at least one column"))
		return
	}

	outcome, err := s.engine.FixSkewness(c.Request.Context(), req.ref(), req.Columns)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("[API] Skewness fix complete for %d column(s)", len(req.Columns))
	c.JSON(http.StatusOK, gin.H{
		"message":             "Skewness correction applied",
		"corrected_file_path": outcome.Final.Path,
		"transformations":     outcome.Transformations,
	})
}

func (s *Server) handleSkewnessVisualize(c *gin.Context) {
	var req struct {
		BeforePath string   `json:"before_path"`
		AfterPath  string   `json:"after_path"`
		Columns    []string `json:"columns"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.BeforePath == "" || req.AfterPath == "" {
		respondError(c, errors.ValidationError("before_path and after_path are required"))
		return
	}
	if len(req.Columns) == 0 {
		respondError(c, errors.ValidationError("columns must name at least one column"))
		return
	}

	before, _, err := s.store.Load(c.Request.Context(), req.BeforePath)
	if err != nil {
		respondError(c, err)
		return
	}
	after, _, err := s.store.Load(c.Request.Context(), req.AfterPath)
	if err != nil {
		respondError(c, err)
		return
	}

	charts := make(map[string]gin.H, len(req.Columns))
	for _, col := range req.Columns {
		beforeChart, err := viz.NumericChart(before, col)
		if err != nil {
			charts[col] = gin.H{"error": err.Error()}
			continue
		}
		afterChart, err := viz.NumericChart(after, col)
		if err != nil {
			charts[col] = gin.H{"error": err.Error()}
			continue
		}
		entry := gin.H{
			"before_chart": beforeChart,
			"after_chart":  afterChart,
		}
		if d := s.skew.Column(before, col); d.Error == "" {
			entry["before_skewness"] = d.Skewness
		}
		if d := s.skew.Column(after, col); d.Error == "" {
			entry["after_skewness"] = d.Skewness
		}
		charts[col] = entry
	}

	c.JSON(http.StatusOK, gin.H{"charts": charts})
}
