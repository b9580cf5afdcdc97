package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AuditEventType identifies a lifecycle transition or job outcome recorded
// in the audit trail.
type AuditEventType string

// Audit event types emitted by the pipeline.
const (
	AuditNoteCreated         AuditEventType = "note_created"
	AuditUploadCompleted     AuditEventType = "upload_completed"
	AuditJobEnqueued         AuditEventType = "job_enqueued"
	AuditJobCancelled        AuditEventType = "job_cancelled"
	AuditJobStalled          AuditEventType = "job_stalled"
	AuditTranscribeStarted   AuditEventType = "transcribe_started"
	AuditTranscribeCompleted AuditEventType = "transcribe_completed"
	AuditTranscribeFailed    AuditEventType = "transcribe_failed"
	AuditSummarizeStarted    AuditEventType = "summarize_started"
	AuditSummarizeCompleted  AuditEventType = "summarize_completed"
	AuditSummarizeFailed     AuditEventType = "summarize_failed"
	AuditNoteRetried         AuditEventType = "note_retried"
)

// ErrEmptyAuditEventType is returned when an audit event has no type.
var ErrEmptyAuditEventType = errors.New("audit event type cannot be empty")

// AuditEvent is one append-only record of a lifecycle transition or job
// outcome. Events are write-once; the pipeline emits them and never reads
// them back.
type AuditEvent struct {
	ID            uuid.UUID      `json:"id"`
	Type          AuditEventType `json:"type"`
	UserID        *uuid.UUID     `json:"user_id,omitempty"`
	NoteID        *uuid.UUID     `json:"note_id,omitempty"`
	CorrelationID uuid.UUID      `json:"correlation_id"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewAuditEvent creates an audit event for the given note. The correlation
// ID ties together all events of one processing attempt; pass uuid.Nil to
// have a fresh one generated.
func NewAuditEvent(
	eventType AuditEventType,
	noteID uuid.UUID,
	correlationID uuid.UUID,
	metadata map[string]any,
) (*AuditEvent, error) {
	if eventType == "" {
		return nil, ErrEmptyAuditEventType
	}

	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	event := &AuditEvent{
		ID:            uuid.New(),
		Type:          eventType,
		CorrelationID: correlationID,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}

	if noteID != uuid.Nil {
		event.NoteID = &noteID
	}

	return event, nil
}

// WithUser attaches the acting user to the event and returns it.
func (e *AuditEvent) WithUser(userID uuid.UUID) *AuditEvent {
	if userID != uuid.Nil {
		e.UserID = &userID
	}
	return e
}
