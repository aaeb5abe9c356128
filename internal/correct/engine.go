package correct

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"debias/domain/audit"
	"debias/domain/core"
	"debias/domain/dataset"
	"debias/domain/table"
	"debias/internal/detect"
	"debias/internal/errors"
	"debias/ports"
)

// VersionStore is the slice of the frame store the engine needs: reading a
// version, writing a derived one, and serializing writers per handle.
type VersionStore interface {
	Load(ctx context.Context, ref string) (*table.Frame, *dataset.Version, error)
	SaveVersion(ctx context.Context, fr *table.Frame, kind dataset.VersionKind, parent *dataset.Version) (*dataset.Version, error)
	HandleLock(h core.HandleID) *sync.Mutex
}

// Engine runs correction jobs. One job applies one method to one column;
// multi-column corrections are sequences of jobs, each consuming the prior
// job's output handle. Jobs on the same handle are serialized; jobs on
// different handles run freely.
type Engine struct {
	store       VersionStore
	jobs        ports.JobRepository
	categorical *CategoricalCorrector
	skew        *detect.SkewnessDetector
	selection   *audit.SelectionTable
	timeout     time.Duration
}

// NewEngine creates a correction engine
func NewEngine(store VersionStore, jobs ports.JobRepository, categorical *CategoricalCorrector, skew *detect.SkewnessDetector, timeout time.Duration) *Engine {
	return &Engine{
		store:       store,
		jobs:        jobs,
		categorical: categorical,
		skew:        skew,
		selection:   audit.MustSelectionTable(),
		timeout:     timeout,
	}
}

// FixBias runs one categorical correction job. The input version is never
// modified; a successful resampling writes a new corrected version, while
// reweight leaves the dataset alone and reports weights only. A timeout
// marks the job FAILED with no partial write.
func (e *Engine) FixBias(ctx context.Context, ref, target string, method audit.CorrectionMethod, threshold *float64, categoricalColumns []string) (*audit.BiasCorrectionResult, *dataset.Version, error) {
	fr, version, err := e.store.Load(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	lock := e.store.HandleLock(version.Handle)
	lock.Lock()
	defer lock.Unlock()

	th := DefaultThreshold
	if threshold != nil {
		th = *threshold
	}

	job := &audit.CorrectionJob{
		ID:           core.JobID(core.NewID()),
		InputHandle:  version.Handle,
		TargetColumn: target,
		Method:       method,
		Threshold:    threshold,
		State:        audit.JobPending,
		StartedAt:    core.Now(),
	}
	if err := e.jobs.Create(ctx, job); err != nil {
		return nil, nil, errors.Wrap(err, "failed to record correction job")
	}
	job.State = audit.JobRunning
	e.updateJob(ctx, job)

	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type applied struct {
		frame  *table.Frame
		result *audit.BiasCorrectionResult
		err    error
	}
	ch := make(chan applied, 1)
	go func() {
		f, r, err := e.categorical.Apply(fr, target, method, th, categoricalColumns)
		ch <- applied{f, r, err}
	}()

	var out applied
	select {
	case <-tctx.Done():
		e.failJob(ctx, job, "job timed out")
		return nil, nil, errors.Timeout(fmt.Sprintf("correction of %q exceeded %s", target, e.timeout))
	case out = <-ch:
	}
	if out.err != nil {
		e.failJob(ctx, job, out.err.Error())
		return nil, nil, out.err
	}

	result := out.result
	resultVersion := version
	if out.frame != nil {
		if err := tctx.Err(); err != nil {
			e.failJob(ctx, job, "job timed out")
			return nil, nil, errors.Timeout(fmt.Sprintf("correction of %q exceeded %s", target, e.timeout))
		}
		resultVersion, err = e.store.SaveVersion(ctx, out.frame, dataset.KindCorrected, version)
		if err != nil {
			e.failJob(ctx, job, err.Error())
			return nil, nil, errors.Wrap(err, "failed to save corrected dataset")
		}
	}
	result.Handle = resultVersion.Handle

	job.OutputHandle = resultVersion.Handle
	job.State = audit.JobSucceeded
	job.FinishedAt = core.Now()
	e.updateJob(ctx, job)

	log.Printf("[CorrectionEngine] %s on %q: %d -> %d rows", method, target, result.Before.Total, result.After.Total)
	return result, resultVersion, nil
}

// SkewSequenceOutcome is the result of a completed multi-column transform
// sequence.
type SkewSequenceOutcome struct {
	Transformations map[string]audit.SkewCorrectionResult
	Final           *dataset.Version
}

// SequenceError reports a halted correction sequence: which column failed,
// which columns already succeeded, and the last good version so the caller
// can keep the partial correction. Completed jobs are never rolled back.
type SequenceError struct {
	FailedColumn    string
	Cause           error
	Succeeded       []string
	LastGood        *dataset.Version
	Transformations map[string]audit.SkewCorrectionResult
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence aborted at column %q after %d succeeded: %v", e.FailedColumn, len(e.Succeeded), e.Cause)
}

func (e *SequenceError) Unwrap() error {
	return e.Cause
}

// FixSkewness corrects a list of continuous columns in order. Each column is
// one job: its transform is chosen from the skewness measured on the dataset
// as it stands after the previous columns were corrected, and its output
// version is the next job's input. A failed job halts the sequence without
// rolling back the completed ones.
func (e *Engine) FixSkewness(ctx context.Context, ref string, columns []string) (*SkewSequenceOutcome, error) {
	fr, version, err := e.store.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	outcome := &SkewSequenceOutcome{
		Transformations: make(map[string]audit.SkewCorrectionResult, len(columns)),
		Final:           version,
	}
	var succeeded []string

	abort := func(column string, cause error) error {
		return &SequenceError{
			FailedColumn:    column,
			Cause:           cause,
			Succeeded:       succeeded,
			LastGood:        outcome.Final,
			Transformations: outcome.Transformations,
		}
	}

	current := version
	for _, column := range columns {
		if err := ctx.Err(); err != nil {
			return nil, abort(column, errors.Timeout("sequence cancelled"))
		}

		result, next, err := e.transformColumn(ctx, fr, current, column)
		if err != nil {
			return nil, abort(column, err)
		}
		outcome.Transformations[column] = *result
		if next != nil {
			current = next
			outcome.Final = next
		}
		succeeded = append(succeeded, column)
	}

	log.Printf("[CorrectionEngine] Skewness sequence complete: %d column(s), final handle %s", len(succeeded), outcome.Final.Handle)
	return outcome, nil
}

// transformColumn runs one transform job against the in-memory frame. It
// returns the new version when the column actually changed; a column that is
// already symmetric succeeds without writing anything.
func (e *Engine) transformColumn(ctx context.Context, fr *table.Frame, current *dataset.Version, column string) (*audit.SkewCorrectionResult, *dataset.Version, error) {
	lock := e.store.HandleLock(current.Handle)
	lock.Lock()
	defer lock.Unlock()

	job := &audit.CorrectionJob{
		ID:           core.JobID(core.NewID()),
		InputHandle:  current.Handle,
		TargetColumn: column,
		State:        audit.JobPending,
		StartedAt:    core.Now(),
	}

	diag := e.skew.Column(fr, column)
	if diag.Error != "" {
		job.Method = audit.CorrectionMethod(audit.TransformNone)
		e.recordJob(ctx, job)
		e.failJob(ctx, job, diag.Error)
		return nil, nil, errors.InsufficientData(fmt.Sprintf("column %q: %s", column, diag.Error))
	}

	// The transform is keyed by the skewness measured now, before this
	// job runs; it is not re-evaluated afterwards.
	transform, err := e.selection.Select(*diag.Skewness)
	if err != nil {
		return nil, nil, errors.InternalError(err.Error())
	}
	job.Method = audit.CorrectionMethod(transform)
	e.recordJob(ctx, job)
	job.State = audit.JobRunning
	e.updateJob(ctx, job)

	result := &audit.SkewCorrectionResult{
		OriginalSkewness: diag.Skewness,
		Method:           transform.DisplayName(),
	}

	if transform == audit.TransformNone {
		result.NewSkewness = diag.Skewness
		job.OutputHandle = current.Handle
		job.State = audit.JobSucceeded
		job.FinishedAt = core.Now()
		e.updateJob(ctx, job)
		return result, nil, nil
	}

	values, _, err := fr.Numeric(column)
	if err != nil {
		e.failJob(ctx, job, err.Error())
		return nil, nil, errors.ValidationError(err.Error())
	}
	transformed, err := ApplyTransform(transform, values)
	if err != nil {
		e.failJob(ctx, job, err.Error())
		return nil, nil, errors.TransformFailure(column, err)
	}
	if err := fr.SetNumericColumn(column, transformed); err != nil {
		e.failJob(ctx, job, err.Error())
		return nil, nil, errors.TransformFailure(column, err)
	}

	if newSkew, err := detect.Skewness(transformed); err == nil {
		result.NewSkewness = &newSkew
	}

	next, err := e.store.SaveVersion(ctx, fr, dataset.KindCorrected, current)
	if err != nil {
		e.failJob(ctx, job, err.Error())
		return nil, nil, errors.Wrap(err, "failed to save transformed dataset")
	}

	job.OutputHandle = next.Handle
	job.State = audit.JobSucceeded
	job.FinishedAt = core.Now()
	e.updateJob(ctx, job)
	return result, next, nil
}

func (e *Engine) recordJob(ctx context.Context, job *audit.CorrectionJob) {
	if err := e.jobs.Create(ctx, job); err != nil {
		log.Printf("[CorrectionEngine] Failed to record job %s: %v", job.ID, err)
	}
}

func (e *Engine) updateJob(ctx context.Context, job *audit.CorrectionJob) {
	if err := e.jobs.Update(ctx, job); err != nil {
		log.Printf("[CorrectionEngine] Failed to update job %s: %v", job.ID, err)
	}
}

func (e *Engine) failJob(ctx context.Context, job *audit.CorrectionJob, reason string) {
	job.State = audit.JobFailed
	job.Error = reason
	job.FinishedAt = core.Now()
	e.updateJob(ctx, job)
}
