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

// SummarizeHandler executes summarize jobs: it runs the language-model
// backend over the transcript and persists the summary with its extracted
// action items.
type SummarizeHandler struct {
	machine     *lifecycle.Machine
	transcripts store.TranscriptStore
	summaries   store.SummaryStore
	llm         provider.LLMProvider
	broker      queue.Broker
	timeout     time.Duration
	logger      *slog.Logger
}

// NewSummarizeHandler creates the summarize stage handler.
func NewSummarizeHandler(
	machine *lifecycle.Machine,
	transcripts store.TranscriptStore,
	summaries store.SummaryStore,
	llm provider.LLMProvider,
	broker queue.Broker,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) (*SummarizeHandler, error) {
	if machine == nil {
		return nil, fmt.Errorf("machine cannot be nil")
	}
	if transcripts == nil {
		return nil, fmt.Errorf("transcript store cannot be nil")
	}
	if summaries == nil {
		return nil, fmt.Errorf("summary store cannot be nil")
	}
	if llm == nil {
		return nil, fmt.Errorf("llm provider cannot be nil")
	}
	if broker == nil {
		return nil, fmt.Errorf("broker cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &SummarizeHandler{
		machine:     machine,
		transcripts: transcripts,
		summaries:   summaries,
		llm:         llm,
		broker:      broker,
		timeout:     cfg.ProviderTimeout,
		logger:      logger.With("handler", "summarize"),
	}, nil
}

// Type implements Handler.
func (h *SummarizeHandler) Type() queue.JobType { return queue.JobTypeSummarize }

// Provider implements Handler.
func (h *SummarizeHandler) Provider() string { return h.llm.Name() }

// Handle implements Handler. Saving the summary and its actions is a
// single atomic write that replaces any prior batch, so a replayed job
// cannot leave duplicate actions behind.
func (h *SummarizeHandler) Handle(ctx context.Context, job *queue.Job) error {
	var data queue.SummarizeJobData
	if err := json.Unmarshal(job.Payload, &data); err != nil {
		return fmt.Errorf("failed to unmarshal summarize payload: %w", err)
	}

	ctx = audit.WithCorrelationID(ctx, uuid.New())
	meta := map[string]any{
		"job_id":   job.ID,
		"attempt":  job.Attempts,
		"provider": h.llm.Name(),
	}

	if _, err := h.machine.Transition(ctx, data.NoteID, lifecycle.TriggerSummarizeStarted, meta); err != nil {
		return fmt.Errorf("failed to enter summarizing: %w", err)
	}
	h.broker.ReportProgress(ctx, job.Type, job.ID, 10)

	text := data.TranscriptText
	if text == "" {
		// Payload produced by an older enqueue path; fall back to the
		// stored transcript.
		transcript, err := h.transcripts.GetTranscriptByNote(ctx, data.NoteID)
		if err != nil {
			return fmt.Errorf("failed to load transcript for summarization: %w", err)
		}
		text = transcript.Text
	}
	h.broker.ReportProgress(ctx, job.Type, job.ID, 30)

	opts := provider.SummarizeOptions{}
	if data.Options != nil {
		opts.Language = data.Options.Language
		opts.Model = data.Options.Model
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	result, err := h.llm.Summarize(callCtx, text, opts)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: summarization timed out after %s: %w",
				provider.ErrTransient, h.timeout, err)
		}
		return fmt.Errorf("summarization failed: %w", err)
	}
	h.broker.ReportProgress(ctx, job.Type, job.ID, 70)

	summary, actions, err := h.buildArtifacts(data.NoteID, result)
	if err != nil {
		return err
	}
	if err := h.summaries.SaveSummaryAndActions(ctx, summary, actions); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	completedMeta := map[string]any{
		"job_id":       job.ID,
		"attempt":      job.Attempts,
		"provider":     h.llm.Name(),
		"summary_id":   summary.ID.String(),
		"action_count": len(actions),
	}
	if _, err := h.machine.Transition(ctx, data.NoteID, lifecycle.TriggerSummarizeCompleted, completedMeta); err != nil {
		return fmt.Errorf("failed to finish summarizing: %w", err)
	}
	h.broker.ReportProgress(ctx, job.Type, job.ID, 100)
	return nil
}

// OnExhausted implements Handler.
func (h *SummarizeHandler) OnExhausted(ctx context.Context, job *queue.Job, cause error) {
	meta := map[string]any{
		"job_id":   job.ID,
		"attempts": job.Attempts,
		"provider": h.llm.Name(),
		"error":    cause.Error(),
	}
	if _, err := h.machine.Transition(ctx, job.NoteID, lifecycle.TriggerProcessingFailed, meta); err != nil {
		h.logger.Error("failed to mark note errored after exhausted retries",
			"note_id", job.NoteID, "job_id", job.ID, "error", err)
	}
}

// buildArtifacts converts the provider result into validated domain
// records. A schema-invalid result is a permanent failure; retrying the
// same text would produce the same rejection.
func (h *SummarizeHandler) buildArtifacts(
	noteID uuid.UUID,
	result *provider.SummaryResult,
) (*domain.Summary, []*domain.Action, error) {
	summary, err := domain.NewSummary(noteID, result.TLDR, result.Bullets, h.llm.Name())
	if err != nil {
		return nil, nil, fmt.Errorf("provider returned invalid summary: %w", err)
	}

	actions := make([]*domain.Action, 0, len(result.Actions))
	for _, item := range result.Actions {
		action, err := domain.NewAction(noteID, item.Text, item.DueSuggested)
		if err != nil {
			return nil, nil, fmt.Errorf("provider returned invalid action item: %w", err)
		}
		actions = append(actions, action)
	}
	return summary, actions, nil
}
