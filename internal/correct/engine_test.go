package correct

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"debias/domain/audit"
	"debias/domain/core"
	"debias/domain/dataset"
	"debias/internal/detect"
	"debias/internal/store"
	"debias/internal/testkit"
	"debias/ports"
)

// recordingJobs keeps jobs in creation order so tests can inspect the
// sequence threading.
type recordingJobs struct {
	mu   sync.Mutex
	jobs []*audit.CorrectionJob
}

func (r *recordingJobs) Create(_ context.Context, job *audit.CorrectionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs = append(r.jobs, &cp)
	return nil
}

func (r *recordingJobs) Update(_ context.Context, job *audit.CorrectionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, j := range r.jobs {
		if j.ID == job.ID {
			cp := *job
			r.jobs[i] = &cp
			return nil
		}
	}
	return core.ErrJobNotFound
}

func (r *recordingJobs) GetByID(_ context.Context, id core.JobID) (*audit.CorrectionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			cp := *j
			return &cp, nil
		}
	}
	return nil, core.ErrJobNotFound
}

func (r *recordingJobs) ListByHandle(_ context.Context, handle core.HandleID) ([]*audit.CorrectionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.CorrectionJob
	for _, j := range r.jobs {
		if j.InputHandle == handle || j.OutputHandle == handle {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ ports.JobRepository = (*recordingJobs)(nil)

func newTestEngine(t *testing.T) (*Engine, *store.LocalStore, *recordingJobs) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewLocalStore(dir+"/uploads", dir+"/corrected")
	if err != nil {
		t.Fatal(err)
	}
	jobs := &recordingJobs{}
	engine := NewEngine(
		st,
		jobs,
		NewCategoricalCorrector(42, 5),
		detect.NewSkewnessDetector(detect.MinSkewSamples),
		30*time.Second,
	)
	return engine, st, jobs
}

func TestFixBiasEndToEnd(t *testing.T) {
	engine, st, jobs := newTestEngine(t)
	ctx := context.Background()

	gen := testkit.NewGenerator(40)
	fr := gen.ImbalancedFrame("gender", map[string]int{"male": 900, "female": 100})
	_, working, err := st.SaveUpload(ctx, "hiring.csv", fr)
	if err != nil {
		t.Fatal(err)
	}

	result, version, err := engine.FixBias(ctx, working.Path, "gender", audit.MethodOversample, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if version.Handle == working.Handle {
		t.Error("oversample must produce a new version")
	}
	if version.Kind != dataset.KindCorrected {
		t.Errorf("version kind %s, want corrected", version.Kind)
	}
	if result.After.Counts["female"] != 450 {
		t.Errorf("minority should reach 450 under the default threshold, got %d", result.After.Counts["female"])
	}

	// The corrected version must be readable and match the reported stats.
	corrected, _, err := st.Load(ctx, version.Path)
	if err != nil {
		t.Fatal(err)
	}
	counts, err := corrected.ValueCounts("gender")
	if err != nil {
		t.Fatal(err)
	}
	if counts["female"] != result.After.Counts["female"] {
		t.Errorf("on-disk counts %v disagree with result %v", counts, result.After.Counts)
	}

	if len(jobs.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs.jobs))
	}
	job := jobs.jobs[0]
	if job.State != audit.JobSucceeded {
		t.Errorf("job state %s, want SUCCEEDED", job.State)
	}
	if job.OutputHandle != version.Handle {
		t.Error("job output handle should point at the corrected version")
	}
}

func TestFixBiasReweightWritesNothing(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	ctx := context.Background()

	gen := testkit.NewGenerator(41)
	fr := gen.ImbalancedFrame("gender", map[string]int{"male": 300, "female": 100})
	_, working, err := st.SaveUpload(ctx, "data.csv", fr)
	if err != nil {
		t.Fatal(err)
	}

	result, version, err := engine.FixBias(ctx, working.Path, "gender", audit.MethodReweight, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if version.Handle != working.Handle {
		t.Error("reweight must not create a new version")
	}
	if len(result.ClassWeights) != 2 {
		t.Errorf("expected class weights, got %v", result.ClassWeights)
	}
}

func TestFixBiasUnknownColumn(t *testing.T) {
	engine, st, jobs := newTestEngine(t)
	ctx := context.Background()

	gen := testkit.NewGenerator(42)
	fr := gen.ImbalancedFrame("gender", map[string]int{"male": 50, "female": 50})
	_, working, err := st.SaveUpload(ctx, "data.csv", fr)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := engine.FixBias(ctx, working.Path, "nope", audit.MethodOversample, nil, nil); err == nil {
		t.Fatal("expected error for unknown column")
	}
	if len(jobs.jobs) != 1 || jobs.jobs[0].State != audit.JobFailed {
		t.Error("failed correction should leave a FAILED job record")
	}
}

func TestFixSkewnessSequenceThreadsHandles(t *testing.T) {
	engine, st, jobs := newTestEngine(t)
	ctx := context.Background()

	gen := testkit.NewGenerator(43)
	fr := testkit.NumericFrame("income", gen.LogNormalColumn(1500, 0, 1))
	_, working, err := st.SaveUpload(ctx, "income.csv", fr)
	if err != nil {
		t.Fatal(err)
	}

	// Correcting the same column twice: the second job must see the
	// dataset as the first job left it.
	outcome, err := engine.FixSkewness(ctx, working.Path, []string{"income", "income"})
	if err != nil {
		t.Fatal(err)
	}

	if len(jobs.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs.jobs))
	}
	first, second := jobs.jobs[0], jobs.jobs[1]
	if first.State != audit.JobSucceeded || second.State != audit.JobSucceeded {
		t.Fatalf("job states %s/%s, want SUCCEEDED", first.State, second.State)
	}
	if second.InputHandle != first.OutputHandle {
		t.Error("second job must consume the first job's output handle")
	}
	if first.OutputHandle == working.Handle {
		t.Error("skewed column should have produced a new version")
	}

	// After the first transform the column is near-symmetric, so the
	// second job selects no transform and leaves the handle alone.
	if second.OutputHandle != second.InputHandle {
		t.Error("already-symmetric column should not produce a new version")
	}
	if outcome.Final.Handle != first.OutputHandle {
		t.Error("final version should be the last written one")
	}

	result := outcome.Transformations["income"]
	if result.NewSkewness == nil || result.OriginalSkewness == nil {
		t.Fatal("transformations should carry before/after skewness")
	}
}

func TestFixSkewnessImprovesLogNormal(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	ctx := context.Background()

	gen := testkit.NewGenerator(44)
	fr := testkit.NumericFrame("income", gen.LogNormalColumn(2000, 0, 1))
	_, working, err := st.SaveUpload(ctx, "income.csv", fr)
	if err != nil {
		t.Fatal(err)
	}

	before, err := detect.Skewness(mustNumeric(t, st, ctx, working.Path, "income"))
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := engine.FixSkewness(ctx, working.Path, []string{"income"})
	if err != nil {
		t.Fatal(err)
	}
	after, err := detect.Skewness(mustNumeric(t, st, ctx, outcome.Final.Path, "income"))
	if err != nil {
		t.Fatal(err)
	}
	if abs(after) >= abs(before) {
		t.Errorf("|skew| did not improve: %v -> %v", before, after)
	}
}

func TestFixSkewnessAbortsOnBadColumn(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	ctx := context.Background()

	gen := testkit.NewGenerator(45)
	fr := testkit.NumericFrame("income", gen.LogNormalColumn(500, 0, 1))
	_, working, err := st.SaveUpload(ctx, "income.csv", fr)
	if err != nil {
		t.Fatal(err)
	}

	_, err = engine.FixSkewness(ctx, working.Path, []string{"income", "nope"})
	if err == nil {
		t.Fatal("expected sequence abort for unknown column")
	}
	var seqErr *SequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("expected SequenceError, got %T", err)
	}
	if seqErr.FailedColumn != "nope" {
		t.Errorf("failed column %q, want nope", seqErr.FailedColumn)
	}
	if len(seqErr.Succeeded) != 1 || seqErr.Succeeded[0] != "income" {
		t.Errorf("succeeded columns %v, want [income]", seqErr.Succeeded)
	}
	// The completed column's work survives the abort.
	if seqErr.LastGood == nil || seqErr.LastGood.Handle == working.Handle {
		t.Error("last good version should be the post-income version")
	}
	if _, ok := seqErr.Transformations["income"]; !ok {
		t.Error("partial transformations should be reported")
	}
}

func mustNumeric(t *testing.T, st *store.LocalStore, ctx context.Context, ref, column string) []float64 {
	t.Helper()
	fr, _, err := st.Load(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	values, _, err := fr.Numeric(column)
	if err != nil {
		t.Fatal(err)
	}
	return values
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
