package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/audit"
	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/lifecycle"
	"github.com/voxnote/voxnote-api/internal/queue"
	"github.com/voxnote/voxnote-api/internal/store"
)

// JobStatusView is the read model the service exposes for one pipeline
// job, combining queue state with the advisory progress percentage.
type JobStatusView struct {
	JobID       string          `json:"job_id"`
	Type        queue.JobType   `json:"type"`
	Status      queue.JobStatus `json:"status"`
	Progress    int             `json:"progress"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Provider    string          `json:"provider,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	NotBefore   time.Time       `json:"not_before"`
}

// PipelineService is the producer-side entry point of the processing
// pipeline. It validates note preconditions, enqueues stage jobs under
// deterministic IDs, and drives the explicit retry path for errored
// notes. It never transitions notes through processing states itself;
// that belongs to the workers.
type PipelineService struct {
	machine     *lifecycle.Machine
	notes       store.NoteStore
	media       store.MediaStore
	transcripts store.TranscriptStore
	broker      queue.Broker
	sink        audit.Sink
	logger      *slog.Logger
}

// NewPipelineService creates a PipelineService with its collaborators.
func NewPipelineService(
	machine *lifecycle.Machine,
	notes store.NoteStore,
	media store.MediaStore,
	transcripts store.TranscriptStore,
	broker queue.Broker,
	sink audit.Sink,
	logger *slog.Logger,
) (*PipelineService, error) {
	if machine == nil {
		return nil, fmt.Errorf("machine cannot be nil")
	}
	if notes == nil {
		return nil, fmt.Errorf("note store cannot be nil")
	}
	if media == nil {
		return nil, fmt.Errorf("media store cannot be nil")
	}
	if transcripts == nil {
		return nil, fmt.Errorf("transcript store cannot be nil")
	}
	if broker == nil {
		return nil, fmt.Errorf("broker cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("audit sink cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &PipelineService{
		machine:     machine,
		notes:       notes,
		media:       media,
		transcripts: transcripts,
		broker:      broker,
		sink:        sink,
		logger:      logger.With("component", "pipeline_service"),
	}, nil
}

// EnqueueTranscribe schedules transcription for an uploaded note. The
// deterministic job ID makes concurrent calls for the same note collapse
// onto one pending job. Errored notes must go through RetryNote instead.
func (s *PipelineService) EnqueueTranscribe(
	ctx context.Context,
	noteID, userID uuid.UUID,
	opts *queue.JobOptions,
) (string, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return "", fmt.Errorf("failed to load note: %w", err)
	}
	if note.Status != domain.NoteStatusUploaded {
		return "", fmt.Errorf("%w: note %s is %s", ErrNoteNotUploaded, noteID, note.Status)
	}
	return s.enqueueTranscribeJob(ctx, noteID, userID, opts)
}

// EnqueueSummarize schedules summarization for a note whose transcription
// finished. Used when summarization is requested independently of the
// transcribe worker's own chaining (which carries the transcript inline).
func (s *PipelineService) EnqueueSummarize(
	ctx context.Context,
	noteID, userID uuid.UUID,
	opts *queue.JobOptions,
) (string, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return "", fmt.Errorf("failed to load note: %w", err)
	}
	if note.Status != domain.NoteStatusTranscribingDone {
		return "", fmt.Errorf("%w: note %s is %s", ErrNoteNotTranscribed, noteID, note.Status)
	}
	return s.enqueueSummarizeJob(ctx, noteID, userID, opts)
}

// RetryNote re-enters an errored note into the pipeline at the given
// stage. The lifecycle machine regresses the note to the stage's entry
// status and records a note_retried audit event; then the stage job is
// enqueued fresh with a reset attempt budget.
func (s *PipelineService) RetryNote(
	ctx context.Context,
	noteID, userID uuid.UUID,
	stage queue.JobType,
	opts *queue.JobOptions,
) (string, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return "", fmt.Errorf("failed to load note: %w", err)
	}
	if note.Status != domain.NoteStatusError {
		return "", fmt.Errorf("%w: note %s is %s", ErrNoteNotErrored, noteID, note.Status)
	}

	ctx = audit.WithCorrelationID(ctx, uuid.New())
	meta := map[string]any{"stage": string(stage)}

	switch stage {
	case queue.JobTypeTranscribe:
		if _, err := s.machine.Transition(ctx, noteID, lifecycle.TriggerRetryTranscribe, meta); err != nil {
			return "", fmt.Errorf("failed to re-enter pipeline: %w", err)
		}
		return s.enqueueTranscribeJob(ctx, noteID, userID, opts)
	case queue.JobTypeSummarize:
		if _, err := s.machine.Transition(ctx, noteID, lifecycle.TriggerRetrySummarize, meta); err != nil {
			return "", fmt.Errorf("failed to re-enter pipeline: %w", err)
		}
		return s.enqueueSummarizeJob(ctx, noteID, userID, opts)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
}

// GetJobStatus returns the queue view of a note's job for one stage.
// Returns queue.ErrJobNotFound when the note never had such a job.
func (s *PipelineService) GetJobStatus(
	ctx context.Context,
	noteID uuid.UUID,
	stage queue.JobType,
) (*JobStatusView, error) {
	job, err := s.broker.Job(ctx, stage, queue.DeterministicJobID(stage, noteID))
	if err != nil {
		return nil, err
	}
	return &JobStatusView{
		JobID:       job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Progress:    job.Progress,
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		Provider:    job.Provider,
		LastError:   job.LastError,
		NotBefore:   job.NotBefore,
	}, nil
}

// CancelJob removes a pending stage job for the note. Cancelling a job
// already taken by a worker is a tolerated no-op returning false.
func (s *PipelineService) CancelJob(
	ctx context.Context,
	noteID, userID uuid.UUID,
	stage queue.JobType,
) bool {
	jobID := queue.DeterministicJobID(stage, noteID)
	cancelled := s.broker.Cancel(ctx, stage, jobID)
	if cancelled {
		s.recordJobEvent(ctx, domain.AuditJobCancelled, noteID, userID, jobID, stage)
	}
	return cancelled
}

func (s *PipelineService) enqueueTranscribeJob(
	ctx context.Context,
	noteID, userID uuid.UUID,
	opts *queue.JobOptions,
) (string, error) {
	media, err := s.media.GetMediaByNote(ctx, noteID)
	if err != nil {
		return "", fmt.Errorf("failed to load media for note: %w", err)
	}

	payload := queue.TranscribeJobData{
		NoteID:     noteID,
		MediaID:    media.ID,
		StorageKey: media.StorageKey,
		UserID:     userID,
		Options:    opts,
	}
	jobID, err := s.broker.Enqueue(ctx, queue.JobTypeTranscribe, payload, queue.EnqueueOptions{
		JobID: queue.DeterministicJobID(queue.JobTypeTranscribe, noteID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue transcribe job: %w", err)
	}

	s.recordJobEvent(ctx, domain.AuditJobEnqueued, noteID, userID, jobID, queue.JobTypeTranscribe)
	s.logger.Info("transcribe job enqueued",
		"note_id", noteID, "job_id", jobID)
	return jobID, nil
}

func (s *PipelineService) enqueueSummarizeJob(
	ctx context.Context,
	noteID, userID uuid.UUID,
	opts *queue.JobOptions,
) (string, error) {
	transcript, err := s.transcripts.GetTranscriptByNote(ctx, noteID)
	if err != nil {
		return "", fmt.Errorf("failed to load transcript for note: %w", err)
	}

	payload := queue.SummarizeJobData{
		NoteID:         noteID,
		TranscriptID:   transcript.ID,
		TranscriptText: transcript.Text,
		UserID:         userID,
		Options:        opts,
	}
	jobID, err := s.broker.Enqueue(ctx, queue.JobTypeSummarize, payload, queue.EnqueueOptions{
		JobID: queue.DeterministicJobID(queue.JobTypeSummarize, noteID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue summarize job: %w", err)
	}

	s.recordJobEvent(ctx, domain.AuditJobEnqueued, noteID, userID, jobID, queue.JobTypeSummarize)
	s.logger.Info("summarize job enqueued",
		"note_id", noteID, "job_id", jobID)
	return jobID, nil
}

// recordJobEvent appends a queue-side audit event. Audit failures are
// logged and swallowed; they never affect enqueue outcomes.
func (s *PipelineService) recordJobEvent(
	ctx context.Context,
	eventType domain.AuditEventType,
	noteID, userID uuid.UUID,
	jobID string,
	stage queue.JobType,
) {
	event, err := domain.NewAuditEvent(eventType, noteID, audit.CorrelationID(ctx), map[string]any{
		"job_id":   jobID,
		"job_type": string(stage),
	})
	if err != nil {
		s.logger.Warn("failed to build audit event", "error", err)
		return
	}
	if err := s.sink.Record(ctx, event.WithUser(userID)); err != nil {
		s.logger.Warn("failed to record audit event",
			"event_type", eventType, "note_id", noteID, "error", err)
	}
}
