package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/domain"
)

// TranscriptStore persists transcripts produced by the transcribe stage.
type TranscriptStore interface {
	// SaveTranscript stores the transcript as the current one for its note,
	// superseding any previous transcript (latest wins). Replaying the same
	// save is safe and must not create a second current transcript.
	SaveTranscript(ctx context.Context, transcript *domain.Transcript) error

	// GetTranscriptByNote retrieves the current transcript for a note.
	// Returns ErrTranscriptNotFound if the note has no transcript yet.
	GetTranscriptByNote(ctx context.Context, noteID uuid.UUID) (*domain.Transcript, error)
}

// SummaryStore persists summaries and their extracted actions.
type SummaryStore interface {
	// SaveSummaryAndActions stores the summary and its action batch
	// atomically. Replaying the same save supersedes the previous summary
	// and action batch for the note rather than duplicating them.
	SaveSummaryAndActions(ctx context.Context, summary *domain.Summary, actions []*domain.Action) error

	// GetSummaryByNote retrieves the current summary for a note.
	// Returns ErrNotFound if the note has no summary yet.
	GetSummaryByNote(ctx context.Context, noteID uuid.UUID) (*domain.Summary, error)
}

// AuditStore is the append-only sink for audit events.
type AuditStore interface {
	// RecordAuditEvent appends one event to the audit trail.
	// Events are write-once and never updated.
	RecordAuditEvent(ctx context.Context, event *domain.AuditEvent) error
}
