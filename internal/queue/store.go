package queue

import (
	"context"

	"github.com/google/uuid"
)

// JobStore persists job shadow records so the pipeline can recover pending
// work after a restart and expose job history for observability.
type JobStore interface {
	// SaveJob persists a newly enqueued job.
	SaveJob(ctx context.Context, job *Job) error

	// UpdateJob persists the job's mutable fields (status, attempts,
	// progress, timestamps, last error).
	UpdateJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobsByStatus retrieves all jobs in the given status.
	ListJobsByStatus(ctx context.Context, status JobStatus) ([]*Job, error)

	// DeleteJob removes a job record (retention garbage collection).
	DeleteJob(ctx context.Context, jobID string) error
}

// NoteChecker verifies that an enqueued payload references an existing note.
type NoteChecker interface {
	NoteExists(ctx context.Context, noteID uuid.UUID) (bool, error)
}
