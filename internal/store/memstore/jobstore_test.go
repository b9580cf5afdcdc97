package memstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxnote/voxnote-api/internal/queue"
)

func testJob(id string, status queue.JobStatus) *queue.Job {
	return &queue.Job{
		ID:          id,
		Type:        queue.JobTypeTranscribe,
		NoteID:      uuid.New(),
		Status:      status,
		MaxAttempts: 3,
	}
}

func TestJobStore_SaveAndGet(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()

	job := testJob("transcribe:a", queue.JobStatusPending)
	require.NoError(t, s.SaveJob(ctx, job))

	loaded, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, loaded.ID)
	assert.Equal(t, queue.JobStatusPending, loaded.Status)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, queue.ErrJobNotFound)
}

func TestJobStore_UpdateRequiresExisting(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()

	job := testJob("transcribe:a", queue.JobStatusPending)
	assert.ErrorIs(t, s.UpdateJob(ctx, job), queue.ErrJobNotFound)

	require.NoError(t, s.SaveJob(ctx, job))
	job.Status = queue.JobStatusActive
	job.Attempts = 1
	require.NoError(t, s.UpdateJob(ctx, job))

	loaded, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.JobStatusActive, loaded.Status)
	assert.Equal(t, 1, loaded.Attempts)
}

func TestJobStore_ListByStatusAndDelete(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()

	require.NoError(t, s.SaveJob(ctx, testJob("a", queue.JobStatusPending)))
	require.NoError(t, s.SaveJob(ctx, testJob("b", queue.JobStatusPending)))
	require.NoError(t, s.SaveJob(ctx, testJob("c", queue.JobStatusFailed)))

	pending, err := s.ListJobsByStatus(ctx, queue.JobStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, s.DeleteJob(ctx, "a"))
	require.NoError(t, s.DeleteJob(ctx, "a")) // idempotent

	pending, err = s.ListJobsByStatus(ctx, queue.JobStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
