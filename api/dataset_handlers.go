package api

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"debias/adapters/tabular"
	"debias/domain/dataset"
	"debias/internal/errors"
	"debias/internal/preprocess"
)

// previewRows is how many leading rows the preview endpoint returns.
const previewRows = 10

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.ValidationError("multipart field \"file\" is required"))
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext == ".xls" {
		respondError(c, errors.ValidationError("legacy .xls is not supported; save the file as .xlsx or .csv"))
		return
	}
	if ext != ".csv" && ext != ".xlsx" {
		respondError(c, errors.ValidationError(fmt.Sprintf("unsupported file type %q (expected .csv or .xlsx)", ext)))
		return
	}
	if fileHeader.Size > s.config.Storage.MaxFileSize {
		respondError(c, errors.ValidationError(fmt.Sprintf("file exceeds the %d byte limit", s.config.Storage.MaxFileSize)))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, errors.InternalError("failed to open uploaded file"))
		return
	}
	defer file.Close()

	fr, err := tabular.NewReader().Read(file, fileHeader.Filename)
	if err != nil {
		respondError(c, errors.ValidationError(err.Error()))
		return
	}

	original, working, err := s.store.SaveUpload(c.Request.Context(), fileHeader.Filename, fr)
	if err != nil {
		respondError(c, err)
		return
	}

	rows, cols := fr.Shape()
	log.Printf("[API] Uploaded %s: %d rows, %d columns", fileHeader.Filename, rows, cols)
	c.JSON(http.StatusOK, gin.H{
		"message":            "File uploaded successfully",
		"original_file_path": original.Path,
		"working_file_path":  working.Path,
		"file_path":          working.Path,
		"columns":            fr.Columns(),
		"shape":              []int{rows, cols},
	})
}

type fileRequest struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
}

// ref returns whichever reference field the client used.
func (r fileRequest) ref() string {
	if r.FilePath != "" {
		return r.FilePath
	}
	return r.Filename
}

func (s *Server) handlePreview(c *gin.Context) {
	var req fileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ref() == "" {
		respondError(c, errors.ValidationError("file_path is required"))
		return
	}

	fr, _, err := s.store.Load(c.Request.Context(), req.ref())
	if err != nil {
		respondError(c, err)
		return
	}

	rows, cols := fr.Shape()
	c.JSON(http.StatusOK, gin.H{
		"columns":        fr.Columns(),
		"preview":        fr.Head(previewRows),
		"missing_values": fr.MissingCounts(),
		"shape":          []int{rows, cols},
		"profiles":       s.profiler.ProfileAll(fr),
	})
}

func (s *Server) handleSelectFeatures(c *gin.Context) {
	var req struct {
		fileRequest
		SelectedFeatures []string `json:"selected_features"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ref() == "" {
		respondError(c, errors.ValidationError("file_path is required"))
		return
	}
	if len(req.SelectedFeatures) == 0 {
		respondError(c, errors.ValidationError("selected_features must name at least one column"))
		return
	}

	fr, version, err := s.store.Load(c.Request.Context(), req.ref())
	if err != nil {
		respondError(c, err)
		return
	}

	selected, err := fr.Select(req.SelectedFeatures)
	if err != nil {
		respondError(c, errors.ValidationError(err.Error()))
		return
	}

	next, err := s.store.SaveVersion(c.Request.Context(), selected, dataset.KindWorking, version)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("[API] Selected %d of %d columns from %s", len(req.SelectedFeatures), fr.NumColumns(), version.Handle)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Features selected successfully",
		"file_path": next.Path,
		"columns":   selected.Columns(),
	})
}

func (s *Server) handleColumnTypes(c *gin.Context) {
	var req struct {
		fileRequest
		Categorical []string `json:"categorical"`
		Continuous  []string `json:"continuous"`
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

	roles := dataset.ColumnRoles{Categorical: req.Categorical, Continuous: req.Continuous}
	if err := s.registry.SetRoles(c.Request.Context(), version.Handle, fr, roles); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Column types saved",
		"categorical": req.Categorical,
		"continuous":  req.Continuous,
	})
}

func (s *Server) handlePreprocess(c *gin.Context) {
	var req struct {
		fileRequest
		SelectedColumns []string          `json:"selected_columns"`
		FillStrategies  map[string]string `json:"fill_strategies"`
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

	result, err := preprocess.Run(fr, req.SelectedColumns, req.FillStrategies)
	if err != nil {
		respondError(c, err)
		return
	}

	next, err := s.store.SaveVersion(c.Request.Context(), result.Frame, dataset.KindWorking, version)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("[API] Preprocessed %s: %d -> %d rows", version.Handle, result.RowsBefore, result.RowsAfter)
	c.JSON(http.StatusOK, gin.H{
		"message":              "Preprocessing complete",
		"rows_before":          result.RowsBefore,
		"rows_with_na_removed": result.RowsNARemoved,
		"duplicates_removed":   result.DuplicatesRemoved,
		"rows_after":           result.RowsAfter,
		"missing_values":       result.MissingValues,
		"fill_actions":         result.FillActions,
		"dataset_shape":        []int{result.Rows, result.Columns},
		"file_path":            next.Path,
	})
}
