package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"debias/domain/audit"
	"debias/domain/core"
	"debias/ports"
)

type jobRepository struct {
	mu   sync.RWMutex
	jobs map[core.JobID]audit.CorrectionJob
}

// NewJobRepository creates an in-memory job repository
func NewJobRepository() ports.JobRepository {
	return &jobRepository{jobs: make(map[core.JobID]audit.CorrectionJob)}
}

func (r *jobRepository) Create(ctx context.Context, job *audit.CorrectionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *jobRepository) Update(ctx context.Context, job *audit.CorrectionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s: %w", job.ID, core.ErrJobNotFound)
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id core.JobID) (*audit.CorrectionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, core.ErrJobNotFound)
	}
	return &job, nil
}

func (r *jobRepository) ListByHandle(ctx context.Context, handle core.HandleID) ([]*audit.CorrectionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*audit.CorrectionJob
	for id := range r.jobs {
		job := r.jobs[id]
		if job.InputHandle == handle || job.OutputHandle == handle {
			out = append(out, &job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
