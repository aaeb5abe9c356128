package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"debias/domain/audit"
	"debias/internal/errors"
	"debias/internal/viz"
)

func (s *Server) handleBiasDetect(c *gin.Context) {
	var req struct {
		fileRequest
		Categorical []string `json:"categorical"`
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

	columns := req.Categorical
	if len(columns) == 0 {
		roles, err := s.registry.Roles(c.Request.Context(), version.Handle)
		if err != nil || len(roles.Categorical) == 0 {
			respondError(c, errors.ValidationError("no categorical columns given and none stored for this dataset"))
			return
		}
		columns = roles.Categorical
	}

	results := make(map[string]audit.ImbalanceDiagnostic, len(columns))
	var uncached []string
	for _, col := range columns {
		if diag, ok := s.registry.CachedImbalance(version.Handle, col); ok {
			results[col] = diag
		} else {
			uncached = append(uncached, col)
		}
	}

	if len(uncached) > 0 {
		fresh, err := s.imbalance.Columns(c.Request.Context(), fr, uncached)
		if err != nil {
			respondError(c, err)
			return
		}
		for col, diag := range fresh {
			s.registry.StoreImbalance(version.Handle, col, diag)
			results[col] = diag
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleBiasFix(c *gin.Context) {
	var req struct {
		fileRequest
		TargetColumn       string   `json:"target_column"`
		Method             string   `json:"method"`
		Threshold          *float64 `json:"threshold"`
		CategoricalColumns []string `json:"categorical_columns"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ref() == "" {
		respondError(c, errors.ValidationError("file_path is required"))
		return
	}
	if req.TargetColumn == "" {
		respondError(c, errors.ValidationError("target_column is required"))
		return
	}

	method, err := audit.ParseCorrectionMethod(req.Method)
	if err != nil {
		respondError(c, err)
		return
	}

	result, version, err := s.engine.FixBias(c.Request.Context(), req.ref(), req.TargetColumn, method, req.Threshold, req.CategoricalColumns)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("[API] Bias fix %s on %q complete", method, req.TargetColumn)
	payload := gin.H{
		"message":             "Bias correction applied",
		"method":              result.Method,
		"before":              result.Before,
		"after":               result.After,
		"corrected_file_path": version.Path,
	}
	if len(result.ClassWeights) > 0 {
		payload["class_weights"] = result.ClassWeights
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleBiasVisualize(c *gin.Context) {
	var req struct {
		BeforePath   string `json:"before_path"`
		AfterPath    string `json:"after_path"`
		TargetColumn string `json:"target_column"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.BeforePath == "" || req.AfterPath == "" {
		respondError(c, errors.ValidationError("before_path and after_path are required"))
		return
	}
	if req.TargetColumn == "" {
		respondError(c, errors.ValidationError("target_column is required"))
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

	beforeChart, err := viz.CategoricalChart(before, req.TargetColumn)
	if err != nil {
		respondError(c, errors.ValidationError(err.Error()))
		return
	}
	afterChart, err := viz.CategoricalChart(after, req.TargetColumn)
	if err != nil {
		respondError(c, errors.ValidationError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"before_chart": beforeChart,
		"after_chart":  afterChart,
	})
}
