package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/audit"
	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/lifecycle"
	"github.com/voxnote/voxnote-api/internal/provider"
	"github.com/voxnote/voxnote-api/internal/queue"
	"github.com/voxnote/voxnote-api/internal/store"
)

// TranscribeHandler executes transcribe jobs: it fetches the audio blob,
// runs the speech-to-text backend, persists the transcript, and chains a
// summarize job for the same note.
type TranscribeHandler struct {
	machine     *lifecycle.Machine
	media       store.MediaStore
	blobs       store.BlobStore
	transcripts store.TranscriptStore
	stt         provider.STTProvider
	broker      queue.Broker
	sink        audit.Sink
	timeout     time.Duration
	logger      *slog.Logger
}

// NewTranscribeHandler creates the transcribe stage handler.
func NewTranscribeHandler(
	machine *lifecycle.Machine,
	media store.MediaStore,
	blobs store.BlobStore,
	transcripts store.TranscriptStore,
	stt provider.STTProvider,
	broker queue.Broker,
	sink audit.Sink,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) (*TranscribeHandler, error) {
	if machine == nil {
		return nil, fmt.Errorf("machine cannot be nil")
	}
	if media == nil {
		return nil, fmt.Errorf("media store cannot be nil")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store cannot be nil")
	}
	if transcripts == nil {
		return nil, fmt.Errorf("transcript store cannot be nil")
	}
	if stt == nil {
		return nil, fmt.Errorf("stt provider cannot be nil")
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
	return &TranscribeHandler{
		machine:     machine,
		media:       media,
		blobs:       blobs,
		transcripts: transcripts,
		stt:         stt,
		broker:      broker,
		sink:        sink,
		timeout:     cfg.ProviderTimeout,
		logger:      logger.With("handler", "transcribe"),
	}, nil
}

// Type implements Handler.
func (h *TranscribeHandler) Type() queue.JobType { return queue.JobTypeTranscribe }

// Provider implements Handler.
func (h *TranscribeHandler) Provider() string { return h.stt.Name() }

// Handle implements Handler. Each step is replay-safe: a retried job
// re-runs the whole sequence and overwrites its own prior partial work.
func (h *TranscribeHandler) Handle(ctx context.Context, job *queue.Job) error {
	var data queue.TranscribeJobData
	if err := json.Unmarshal(job.Payload, &data); err != nil {
		return fmt.Errorf("failed to unmarshal transcribe payload: %w", err)
	}

	ctx = audit.WithCorrelationID(ctx, uuid.New())
	meta := map[string]any{
		"job_id":   job.ID,
		"attempt":  job.Attempts,
		"provider": h.stt.Name(),
	}

	if _, err := h.machine.Transition(ctx, data.NoteID, lifecycle.TriggerTranscribeStarted, meta); err != nil {
		return fmt.Errorf("failed to enter transcribing: %w", err)
	}
	h.broker.ReportProgress(ctx, job.Type, job.ID, 10)

	media, err := h.media.GetMedia(ctx, data.MediaID)
	if err != nil {
		return fmt.Errorf("failed to load media record: %w", err)
	}
	if !h.formatSupported(media.MimeType) {
		return fmt.Errorf("%w: %s", provider.ErrUnsupportedFormat, media.MimeType)
	}
	if limit := h.stt.MaxFileSize(); limit > 0 && media.SizeBytes > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", provider.ErrFileTooLarge, media.SizeBytes, limit)
	}

	audio, err := h.blobs.FetchBlob(ctx, media.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to fetch audio blob %q: %w", media.StorageKey, err)
	}
	h.broker.ReportProgress(ctx, job.Type, job.ID, 30)

	opts := provider.TranscribeOptions{}
	if data.Options != nil {
		opts.Language = data.Options.Language
		opts.Model = data.Options.Model
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	result, err := h.stt.Transcribe(callCtx, audio, opts)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: transcription timed out after %s: %w",
				provider.ErrTransient, h.timeout, err)
		}
		return fmt.Errorf("transcription failed: %w", err)
	}
	h.broker.ReportProgress(ctx, job.Type, job.ID, 70)

	transcript, err := domain.NewTranscript(data.NoteID, result.Text, result.Language, result.Confidence, h.stt.Name())
	if err != nil {
		return fmt.Errorf("provider returned invalid transcript: %w", err)
	}
	for _, seg := range result.Segments {
		transcript.Segments = append(transcript.Segments, domain.TranscriptSegment{
			StartSec: seg.StartSec,
			EndSec:   seg.EndSec,
			Text:     seg.Text,
		})
	}
	if err := h.transcripts.SaveTranscript(ctx, transcript); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	completedMeta := map[string]any{
		"job_id":        job.ID,
		"attempt":       job.Attempts,
		"provider":      h.stt.Name(),
		"transcript_id": transcript.ID.String(),
		"confidence":    transcript.Confidence,
	}
	if _, err := h.machine.Transition(ctx, data.NoteID, lifecycle.TriggerTranscribeCompleted, completedMeta); err != nil {
		return fmt.Errorf("failed to leave transcribing: %w", err)
	}

	if err := h.chainSummarize(ctx, job, data, transcript); err != nil {
		return err
	}
	h.broker.ReportProgress(ctx, job.Type, job.ID, 100)
	return nil
}

// OnExhausted implements Handler: the retry budget is spent, so the note
// moves to its error state with the cause on the audit trail.
func (h *TranscribeHandler) OnExhausted(ctx context.Context, job *queue.Job, cause error) {
	h.failNote(ctx, job, cause)
}

// chainSummarize enqueues the downstream summarize job, carrying the
// transcript text inline so the summarize stage can skip a store read.
// The deterministic job ID makes chaining after a replayed completion a
// no-op instead of a duplicate.
func (h *TranscribeHandler) chainSummarize(
	ctx context.Context,
	job *queue.Job,
	data queue.TranscribeJobData,
	transcript *domain.Transcript,
) error {
	payload := queue.SummarizeJobData{
		NoteID:         data.NoteID,
		TranscriptID:   transcript.ID,
		TranscriptText: transcript.Text,
		UserID:         data.UserID,
		Options:        data.Options,
	}
	jobID, err := h.broker.Enqueue(ctx, queue.JobTypeSummarize, payload, queue.EnqueueOptions{
		JobID: queue.DeterministicJobID(queue.JobTypeSummarize, data.NoteID),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue summarize job: %w", err)
	}

	event, err := domain.NewAuditEvent(domain.AuditJobEnqueued, data.NoteID, audit.CorrelationID(ctx), map[string]any{
		"job_id":    jobID,
		"job_type":  string(queue.JobTypeSummarize),
		"parent_id": job.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to build enqueue audit event: %w", err)
	}
	if err := h.sink.Record(ctx, event.WithUser(data.UserID)); err != nil {
		h.logger.Warn("failed to record enqueue audit event",
			"note_id", data.NoteID, "error", err)
	}
	return nil
}

func (h *TranscribeHandler) formatSupported(mimeType string) bool {
	formats := h.stt.SupportedFormats()
	if len(formats) == 0 {
		return true
	}
	for _, f := range formats {
		if f == mimeType {
			return true
		}
	}
	return false
}

func (h *TranscribeHandler) failNote(ctx context.Context, job *queue.Job, cause error) {
	meta := map[string]any{
		"job_id":   job.ID,
		"attempts": job.Attempts,
		"provider": h.stt.Name(),
		"error":    cause.Error(),
	}
	if _, err := h.machine.Transition(ctx, job.NoteID, lifecycle.TriggerProcessingFailed, meta); err != nil {
		h.logger.Error("failed to mark note errored after exhausted retries",
			"note_id", job.NoteID, "job_id", job.ID, "error", err)
	}
}
