package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"debias/adapters/memory"
	"debias/domain/audit"
	"debias/internal/config"
	"debias/internal/correct"
	"debias/internal/detect"
	"debias/internal/registry"
	"debias/internal/store"
	"debias/internal/testkit"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		Storage: config.StorageConfig{
			UploadDir:    filepath.Join(dir, "uploads"),
			CorrectedDir: filepath.Join(dir, "corrected"),
			MaxFileSize:  10 * 1024 * 1024,
		},
		Detection: config.DetectionConfig{
			Severity:       audit.DefaultSeverityThresholds(),
			MinSkewSamples: 3,
		},
		Correct: config.CorrectionConfig{
			JobTimeout:     30 * time.Second,
			Seed:           42,
			SMOTENeighbors: 5,
		},
	}

	st, err := store.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.CorrectedDir)
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New(memory.NewRoleRepository())
	skew := detect.NewSkewnessDetector(cfg.Detection.MinSkewSamples)
	engine := correct.NewEngine(
		st,
		memory.NewJobRepository(),
		correct.NewCategoricalCorrector(cfg.Correct.Seed, cfg.Correct.SMOTENeighbors),
		skew,
		cfg.Correct.JobTimeout,
	)
	return NewServer(cfg, st, reg, detect.NewImbalanceDetector(cfg.Detection.Severity), skew, engine)
}

func postJSON(t *testing.T, s *Server, path string, body map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s: invalid JSON response %q", path, w.Body.String())
	}
	return w.Code, out
}

func uploadCSV(t *testing.T, s *Server, filename string, content []byte) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed (%d): %s", w.Code, w.Body.String())
	}
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestAuditWorkflow(t *testing.T) {
	s := newTestServer(t)
	gen := testkit.NewGenerator(70)
	fr := gen.ImbalancedFrame("gender", map[string]int{"male": 180, "female": 20})

	uploaded := uploadCSV(t, s, "hiring.csv", testkit.CSVBytes(fr))
	filePath, _ := uploaded["file_path"].(string)
	if filePath == "" {
		t.Fatalf("upload response missing file_path: %v", uploaded)
	}
	if uploaded["original_file_path"] == uploaded["working_file_path"] {
		t.Fatal("original and working copies should be distinct files")
	}

	code, preview := postJSON(t, s, "/api/preview", map[string]interface{}{"file_path": filePath})
	if code != http.StatusOK {
		t.Fatalf("preview failed: %v", preview)
	}
	if rows, _ := preview["preview"].([]interface{}); len(rows) != 10 {
		t.Errorf("preview returned %d rows, want 10", len(rows))
	}

	code, _ = postJSON(t, s, "/api/column_types", map[string]interface{}{
		"file_path":   filePath,
		"categorical": []string{"gender"},
		"continuous":  []string{"feature"},
	})
	if code != http.StatusOK {
		t.Fatal("column_types failed")
	}

	// Detection falls back to the stored roles when no list is given.
	code, detected := postJSON(t, s, "/api/bias/detect", map[string]interface{}{"file_path": filePath})
	if code != http.StatusOK {
		t.Fatalf("bias detect failed: %v", detected)
	}
	results, _ := detected["results"].(map[string]interface{})
	genderDiag, _ := results["gender"].(map[string]interface{})
	if genderDiag["severity"] != "Severe" {
		t.Errorf("severity %v, want Severe for a 9:1 split", genderDiag["severity"])
	}

	code, fixed := postJSON(t, s, "/api/bias/fix", map[string]interface{}{
		"file_path":     filePath,
		"target_column": "gender",
		"method":        "oversample",
	})
	if code != http.StatusOK {
		t.Fatalf("bias fix failed: %v", fixed)
	}
	correctedPath, _ := fixed["corrected_file_path"].(string)
	if correctedPath == "" || correctedPath == filePath {
		t.Fatalf("fix should return a new corrected file, got %q", correctedPath)
	}
	after, _ := fixed["after"].(map[string]interface{})
	counts, _ := after["counts"].(map[string]interface{})
	if got, _ := counts["female"].(float64); got != 90 {
		t.Errorf("minority count after oversample = %v, want 90", got)
	}

	code, charts := postJSON(t, s, "/api/bias/visualize", map[string]interface{}{
		"before_path":   filePath,
		"after_path":    correctedPath,
		"target_column": "gender",
	})
	if code != http.StatusOK {
		t.Fatalf("visualize failed: %v", charts)
	}
	if charts["before_chart"] == nil || charts["after_chart"] == nil {
		t.Error("visualize should return both charts")
	}

	code, skewed := postJSON(t, s, "/api/skewness/detect", map[string]interface{}{
		"file_path": filePath,
		"column":    "feature",
	})
	if code != http.StatusOK {
		t.Fatalf("skewness detect failed: %v", skewed)
	}
	if skewed["shape"] != "Symmetric" {
		t.Errorf("normal feature classified %v", skewed["shape"])
	}

	code, rep := postJSON(t, s, "/api/report", map[string]interface{}{"file_path": filePath})
	if code != http.StatusOK {
		t.Fatalf("report failed: %v", rep)
	}
	md, _ := rep["markdown"].(string)
	if !bytes.Contains([]byte(md), []byte("## Class Imbalance")) {
		t.Error("report missing the imbalance section")
	}
	if rep["html"] == "" {
		t.Error("report missing the html rendering")
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	s := newTestServer(t)

	for _, filename := range []string{"data.json", "data.xls"} {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, _ := mw.CreateFormFile("file", filename)
		part.Write([]byte("{}"))
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", filename, w.Code)
		}
	}
}

func TestUnknownDatasetIs404(t *testing.T) {
	s := newTestServer(t)
	code, body := postJSON(t, s, "/api/preview", map[string]interface{}{"file_path": "ghost.csv"})
	if code != http.StatusNotFound {
		t.Errorf("status %d, want 404: %v", code, body)
	}
}

func TestBiasFixUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	gen := testkit.NewGenerator(71)
	fr := gen.ImbalancedFrame("gender", map[string]int{"male": 30, "female": 10})
	uploaded := uploadCSV(t, s, "d.csv", testkit.CSVBytes(fr))

	code, body := postJSON(t, s, "/api/bias/fix", map[string]interface{}{
		"file_path":     uploaded["file_path"],
		"target_column": "gender",
		"method":        "shuffle",
	})
	if code != http.StatusBadRequest {
		t.Errorf("status %d, want 400: %v", code, body)
	}
}

func TestSkewnessFixSequenceErrorPayload(t *testing.T) {
	s := newTestServer(t)
	gen := testkit.NewGenerator(72)
	fr := testkit.NumericFrame("income", gen.LogNormalColumn(400, 0, 1))
	uploaded := uploadCSV(t, s, "income.csv", testkit.CSVBytes(fr))

	code, body := postJSON(t, s, "/api/skewness/fix", map[string]interface{}{
		"file_path": uploaded["file_path"],
		"columns":   []string{"income", "missing"},
	})
	if code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500: %v", code, body)
	}
	if body["failed_column"] != "missing" {
		t.Errorf("failed_column = %v", body["failed_column"])
	}
	succeeded, _ := body["succeeded_columns"].([]interface{})
	if len(succeeded) != 1 || succeeded[0] != "income" {
		t.Errorf("succeeded_columns = %v, want [income]", succeeded)
	}
	if body["corrected_file_path"] == "" || body["corrected_file_path"] == nil {
		t.Error("partial result should still name the last good file")
	}
}
