package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxnote/voxnote-api/internal/audit"
	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/lifecycle"
	"github.com/voxnote/voxnote-api/internal/provider"
	"github.com/voxnote/voxnote-api/internal/queue"
	"github.com/voxnote/voxnote-api/internal/store/memstore"
)

// pipelineHarness wires the full processing path against in-memory
// collaborators: note store, broker, both stage handlers, and their pools.
type pipelineHarness struct {
	store    *memstore.Store
	recorder *audit.Recorder
	broker   *queue.MemoryQueue
	stt      *provider.MockSTT
	llm      *provider.MockLLM
}

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Concurrency:     2,
		MaxAttempts:     3,
		BackoffInitial:  10 * time.Millisecond,
		ProviderTimeout: 5 * time.Second,
	}
}

func newPipelineHarness(t *testing.T, cfg config.WorkerConfig) *pipelineHarness {
	t.Helper()

	st := memstore.New()
	recorder := audit.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	machine, err := lifecycle.NewMachine(st, recorder, logger)
	require.NoError(t, err)

	qcfg := queue.DefaultMemoryQueueConfig()
	qcfg.Policies = map[queue.JobType]queue.RetryPolicy{
		queue.JobTypeTranscribe: {MaxAttempts: cfg.MaxAttempts, BackoffInitial: cfg.BackoffInitial},
		queue.JobTypeSummarize:  {MaxAttempts: cfg.MaxAttempts, BackoffInitial: cfg.BackoffInitial},
	}
	broker := queue.NewMemoryQueue(qcfg, st, nil, logger)

	stt := provider.NewMockSTT()
	llm := provider.NewMockLLM()

	transcribe, err := NewTranscribeHandler(machine, st, st, st, stt, broker, recorder, cfg, logger)
	require.NoError(t, err)
	summarize, err := NewSummarizeHandler(machine, st, st, llm, broker, cfg, logger)
	require.NoError(t, err)

	transcribePool, err := NewPool(broker, transcribe, cfg, logger)
	require.NoError(t, err)
	summarizePool, err := NewPool(broker, summarize, cfg, logger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, broker.Start(ctx))
	transcribePool.Start(ctx)
	summarizePool.Start(ctx)

	t.Cleanup(func() {
		transcribePool.Stop()
		summarizePool.Stop()
		broker.Close()
	})

	return &pipelineHarness{
		store:    st,
		recorder: recorder,
		broker:   broker,
		stt:      stt,
		llm:      llm,
	}
}

// seedUploadedNote creates a note in the uploaded state with a media record
// and an audio blob behind it.
func (h *pipelineHarness) seedUploadedNote(t *testing.T, mimeType string) (*domain.Note, *domain.Media) {
	t.Helper()
	ctx := context.Background()

	note, err := domain.NewNote(uuid.New(), "standup recording", []string{"work"})
	require.NoError(t, err)
	note.Status = domain.NoteStatusUploaded
	require.NoError(t, h.store.CreateNote(ctx, note))

	audio := []byte("RIFF fake audio payload for the mock recognizer")
	media, err := domain.NewMedia(note.ID, "audio/"+note.ID.String()+".wav", mimeType, int64(len(audio)))
	require.NoError(t, err)
	require.NoError(t, h.store.CreateMedia(ctx, media))
	h.store.PutBlob(media.StorageKey, audio)

	return note, media
}

func (h *pipelineHarness) enqueueTranscribe(t *testing.T, note *domain.Note, media *domain.Media) string {
	t.Helper()

	jobID, err := h.broker.Enqueue(context.Background(), queue.JobTypeTranscribe, queue.TranscribeJobData{
		NoteID:     note.ID,
		MediaID:    media.ID,
		StorageKey: media.StorageKey,
		UserID:     note.OwnerID,
	}, queue.EnqueueOptions{
		JobID: queue.DeterministicJobID(queue.JobTypeTranscribe, note.ID),
	})
	require.NoError(t, err)
	return jobID
}

func (h *pipelineHarness) waitForStatus(t *testing.T, noteID uuid.UUID, want domain.NoteStatus) {
	t.Helper()

	require.Eventually(t, func() bool {
		note, err := h.store.GetNote(context.Background(), noteID)
		return err == nil && note.Status == want
	}, 5*time.Second, 10*time.Millisecond, "note never reached %s", want)
}

func eventTypes(events []*domain.AuditEvent) []domain.AuditEventType {
	types := make([]domain.AuditEventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}

func TestPipeline_TranscribeThenSummarize(t *testing.T) {
	t.Parallel()

	h := newPipelineHarness(t, testWorkerConfig())
	note, media := h.seedUploadedNote(t, "audio/wav")
	jobID := h.enqueueTranscribe(t, note, media)

	h.waitForStatus(t, note.ID, domain.NoteStatusReady)
	ctx := context.Background()

	transcript, err := h.store.GetTranscriptByNote(ctx, note.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, transcript.Text)
	assert.Equal(t, provider.NameMock, transcript.Provider)
	assert.NotEmpty(t, transcript.Segments)

	summary, err := h.store.GetSummaryByNote(ctx, note.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.TLDR)
	assert.NotEmpty(t, summary.Bullets)
	assert.Len(t, h.store.ActionsByNote(note.ID), 2)

	// Both stage jobs completed under their deterministic identities.
	transcribeJob, err := h.broker.Job(ctx, queue.JobTypeTranscribe, jobID)
	require.NoError(t, err)
	assert.Equal(t, queue.JobStatusCompleted, transcribeJob.Status)
	assert.Equal(t, provider.NameMock, transcribeJob.Provider)

	summarizeJob, err := h.broker.Job(ctx, queue.JobTypeSummarize,
		queue.DeterministicJobID(queue.JobTypeSummarize, note.ID))
	require.NoError(t, err)
	assert.Equal(t, queue.JobStatusCompleted, summarizeJob.Status)

	// The enqueue event races the summarize worker's first transition, so
	// only membership is deterministic, not its position.
	types := eventTypes(h.recorder.EventsForNote(note.ID))
	assert.ElementsMatch(t, []domain.AuditEventType{
		domain.AuditTranscribeStarted,
		domain.AuditTranscribeCompleted,
		domain.AuditJobEnqueued,
		domain.AuditSummarizeStarted,
		domain.AuditSummarizeCompleted,
	}, types)
}

func TestPipeline_TransientFailureRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	h := newPipelineHarness(t, testWorkerConfig())
	h.stt.FailTimes(1)

	note, media := h.seedUploadedNote(t, "audio/wav")
	h.enqueueTranscribe(t, note, media)

	h.waitForStatus(t, note.ID, domain.NoteStatusReady)
	assert.Equal(t, 2, h.stt.Calls())

	// The failed first attempt never reaches the error state; only the
	// terminal outcome is user-visible.
	failed := h.recorder.EventsOfType(domain.AuditTranscribeFailed)
	assert.Empty(t, failed)
}

func TestPipeline_ExhaustedTranscribeRetriesErrorsNote(t *testing.T) {
	t.Parallel()

	cfg := testWorkerConfig()
	cfg.MaxAttempts = 2
	h := newPipelineHarness(t, cfg)
	h.stt.FailTimes(10)

	note, media := h.seedUploadedNote(t, "audio/wav")
	jobID := h.enqueueTranscribe(t, note, media)

	h.waitForStatus(t, note.ID, domain.NoteStatusError)
	assert.Equal(t, 2, h.stt.Calls())

	job, err := h.broker.Job(context.Background(), queue.JobTypeTranscribe, jobID)
	require.NoError(t, err)
	assert.Equal(t, queue.JobStatusFailed, job.Status)

	failed := h.recorder.EventsOfType(domain.AuditTranscribeFailed)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].NoteID)
	assert.Equal(t, note.ID, *failed[0].NoteID)
	assert.EqualValues(t, 2, failed[0].Metadata["attempts"])
	assert.Contains(t, failed[0].Metadata["error"], "scripted mock failure")
}

func TestPipeline_ExhaustedSummarizeRetriesErrorsNote(t *testing.T) {
	t.Parallel()

	cfg := testWorkerConfig()
	cfg.MaxAttempts = 2
	h := newPipelineHarness(t, cfg)
	h.llm.FailTimes(10)

	note, media := h.seedUploadedNote(t, "audio/wav")
	h.enqueueTranscribe(t, note, media)

	h.waitForStatus(t, note.ID, domain.NoteStatusError)

	// The transcript survives the failed summarize stage so a retry can
	// reuse it.
	transcript, err := h.store.GetTranscriptByNote(context.Background(), note.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, transcript.Text)

	failed := h.recorder.EventsOfType(domain.AuditSummarizeFailed)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].NoteID)
	assert.Equal(t, note.ID, *failed[0].NoteID)
}

func TestPipeline_UnsupportedFormatErrorsNote(t *testing.T) {
	t.Parallel()

	cfg := testWorkerConfig()
	cfg.MaxAttempts = 1
	h := newPipelineHarness(t, cfg)

	note, media := h.seedUploadedNote(t, "video/x-msvideo")
	h.enqueueTranscribe(t, note, media)

	h.waitForStatus(t, note.ID, domain.NoteStatusError)

	failed := h.recorder.EventsOfType(domain.AuditTranscribeFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Metadata["error"], provider.ErrUnsupportedFormat.Error())
}

func TestNewPool_Validation(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broker := queue.NewMemoryQueue(queue.DefaultMemoryQueueConfig(), nil, nil, logger)

	_, err := NewPool(nil, nil, testWorkerConfig(), logger)
	assert.Error(t, err)
	_, err = NewPool(broker, nil, testWorkerConfig(), logger)
	assert.Error(t, err)
}
