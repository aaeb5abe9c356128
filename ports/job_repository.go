package ports

import (
	"context"

	"debias/domain/audit"
	"debias/domain/core"
)

// JobRepository persists correction jobs for audit trails. Jobs are retained
// for the life of a workflow run; a new correction on the same column
// supersedes the previous one but does not erase it.
type JobRepository interface {
	Create(ctx context.Context, job *audit.CorrectionJob) error
	Update(ctx context.Context, job *audit.CorrectionJob) error
	GetByID(ctx context.Context, id core.JobID) (*audit.CorrectionJob, error)
	ListByHandle(ctx context.Context, handle core.HandleID) ([]*audit.CorrectionJob, error)
}
