package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/voxnote/voxnote-api/internal/platform/logger"
	"github.com/voxnote/voxnote-api/internal/queue"
	"github.com/voxnote/voxnote-api/internal/store"
)

// PostgresJobStore implements the queue.JobStore interface using a
// PostgreSQL database as the storage backend. The queue mirrors its job
// records here so pending work survives a restart.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the JobStore interface.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements queue.JobStore interface
var _ queue.JobStore = (*PostgresJobStore)(nil)

const jobColumns = `id, type, note_id, status, attempts, max_attempts, priority,
	payload, provider, progress, last_error, created_at, not_before, started_at, completed_at`

// SaveJob implements queue.JobStore.SaveJob. Re-enqueueing a finished job
// under the same ID resets its record, so the insert upserts.
func (s *PostgresJobStore) SaveJob(ctx context.Context, job *queue.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO processing_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			max_attempts = EXCLUDED.max_attempts,
			priority = EXCLUDED.priority,
			payload = EXCLUDED.payload,
			provider = EXCLUDED.provider,
			progress = EXCLUDED.progress,
			last_error = EXCLUDED.last_error,
			created_at = EXCLUDED.created_at,
			not_before = EXCLUDED.not_before,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`
	_, err := s.db.ExecContext(ctx, query, s.jobArgs(job)...)
	if err != nil {
		log.Error("failed to save job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID))
		return err
	}
	return nil
}

// UpdateJob implements queue.JobStore.UpdateJob.
func (s *PostgresJobStore) UpdateJob(ctx context.Context, job *queue.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE processing_jobs
		SET status = $2, attempts = $3, provider = $4, progress = $5,
			last_error = $6, not_before = $7, started_at = $8, completed_at = $9
		WHERE id = $1
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.Status,
		job.Attempts,
		nullString(job.Provider),
		job.Progress,
		nullString(job.LastError),
		job.NotBefore,
		job.StartedAt,
		job.CompletedAt,
	)
	if err != nil {
		log.Error("failed to update job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID))
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return queue.ErrJobNotFound
	}
	return nil
}

// GetJob implements queue.JobStore.GetJob.
// Returns queue.ErrJobNotFound if the job does not exist.
func (s *PostgresJobStore) GetJob(ctx context.Context, jobID string) (*queue.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM processing_jobs WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, jobID)
	job, err := scanJob(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, queue.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListJobsByStatus implements queue.JobStore.ListJobsByStatus.
func (s *PostgresJobStore) ListJobsByStatus(
	ctx context.Context,
	status queue.JobStatus,
) ([]*queue.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM processing_jobs WHERE status = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*queue.Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating jobs: %w", err)
	}
	return jobs, nil
}

// DeleteJob implements queue.JobStore.DeleteJob.
func (s *PostgresJobStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM processing_jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) jobArgs(job *queue.Job) []any {
	return []any{
		job.ID,
		job.Type,
		job.NoteID,
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		job.Priority,
		job.Payload,
		nullString(job.Provider),
		job.Progress,
		nullString(job.LastError),
		job.CreatedAt,
		job.NotBefore,
		job.StartedAt,
		job.CompletedAt,
	}
}

func scanJob(scan func(dest ...any) error) (*queue.Job, error) {
	var job queue.Job
	var provider, lastError sql.NullString
	err := scan(
		&job.ID,
		&job.Type,
		&job.NoteID,
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.Priority,
		&job.Payload,
		&provider,
		&job.Progress,
		&lastError,
		&job.CreatedAt,
		&job.NotBefore,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Provider = provider.String
	job.LastError = lastError.String
	return &job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
