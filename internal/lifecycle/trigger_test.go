package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxnote/voxnote-api/internal/domain"
)

func TestNext_HappyPath(t *testing.T) {
	t.Parallel()

	steps := []struct {
		from    domain.NoteStatus
		trigger Trigger
		to      domain.NoteStatus
	}{
		{domain.NoteStatusIdle, TriggerUploadStarted, domain.NoteStatusUploading},
		{domain.NoteStatusUploading, TriggerUploadCompleted, domain.NoteStatusUploaded},
		{domain.NoteStatusUploaded, TriggerTranscribeStarted, domain.NoteStatusTranscribing},
		{domain.NoteStatusTranscribing, TriggerTranscribeCompleted, domain.NoteStatusTranscribingDone},
		{domain.NoteStatusTranscribingDone, TriggerSummarizeStarted, domain.NoteStatusSummarizing},
		{domain.NoteStatusSummarizing, TriggerSummarizeCompleted, domain.NoteStatusReady},
	}

	for _, step := range steps {
		to, applied, ok := next(step.from, step.trigger)
		assert.True(t, ok, "%s from %s should be allowed", step.trigger, step.from)
		assert.True(t, applied)
		assert.Equal(t, step.to, to)
	}
}

func TestNext_FailureFromAnyNonTerminal(t *testing.T) {
	t.Parallel()

	nonTerminal := []domain.NoteStatus{
		domain.NoteStatusIdle, domain.NoteStatusUploading, domain.NoteStatusUploaded,
		domain.NoteStatusTranscribing, domain.NoteStatusTranscribingDone,
		domain.NoteStatusSummarizing,
	}
	for _, from := range nonTerminal {
		to, applied, ok := next(from, TriggerProcessingFailed)
		assert.True(t, ok)
		assert.True(t, applied, "failure from %s should apply", from)
		assert.Equal(t, domain.NoteStatusError, to)
	}
}

func TestNext_LateFailureAfterTerminalIsAbsorbed(t *testing.T) {
	t.Parallel()

	for _, from := range []domain.NoteStatus{domain.NoteStatusReady, domain.NoteStatusError} {
		to, applied, ok := next(from, TriggerProcessingFailed)
		assert.True(t, ok)
		assert.False(t, applied)
		assert.Equal(t, from, to)
	}
}

func TestNext_StaleTriggersAbsorbed(t *testing.T) {
	t.Parallel()

	// A duplicate of the trigger that produced the current status.
	to, applied, ok := next(domain.NoteStatusTranscribing, TriggerTranscribeStarted)
	assert.True(t, ok)
	assert.False(t, applied)
	assert.Equal(t, domain.NoteStatusTranscribing, to)

	// A trigger aiming behind the current status.
	to, applied, ok = next(domain.NoteStatusSummarizing, TriggerTranscribeCompleted)
	assert.True(t, ok)
	assert.False(t, applied)
	assert.Equal(t, domain.NoteStatusSummarizing, to)

	// Late progress triggers after the note finished.
	to, applied, ok = next(domain.NoteStatusReady, TriggerSummarizeCompleted)
	assert.True(t, ok)
	assert.False(t, applied)
	assert.Equal(t, domain.NoteStatusReady, to)
}

func TestNext_InvalidTriggers(t *testing.T) {
	t.Parallel()

	// Skipping ahead is not allowed.
	_, _, ok := next(domain.NoteStatusIdle, TriggerTranscribeStarted)
	assert.False(t, ok)

	_, _, ok = next(domain.NoteStatusUploaded, TriggerSummarizeCompleted)
	assert.False(t, ok)

	// Retry only re-enters from error.
	_, _, ok = next(domain.NoteStatusReady, TriggerRetryTranscribe)
	assert.False(t, ok)

	_, _, ok = next(domain.NoteStatusUploaded, TriggerRetrySummarize)
	assert.False(t, ok)
}

func TestNext_RetryFromError(t *testing.T) {
	t.Parallel()

	to, applied, ok := next(domain.NoteStatusError, TriggerRetryTranscribe)
	assert.True(t, ok)
	assert.True(t, applied)
	assert.Equal(t, domain.NoteStatusUploaded, to)

	to, applied, ok = next(domain.NoteStatusError, TriggerRetrySummarize)
	assert.True(t, ok)
	assert.True(t, applied)
	assert.Equal(t, domain.NoteStatusTranscribingDone, to)
}

func TestAuditEventFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.AuditTranscribeStarted,
		auditEventFor(TriggerTranscribeStarted, domain.NoteStatusUploaded))
	assert.Equal(t, domain.AuditNoteRetried,
		auditEventFor(TriggerRetryTranscribe, domain.NoteStatusError))

	// Failure events name the stage that failed.
	assert.Equal(t, domain.AuditTranscribeFailed,
		auditEventFor(TriggerProcessingFailed, domain.NoteStatusTranscribing))
	assert.Equal(t, domain.AuditSummarizeFailed,
		auditEventFor(TriggerProcessingFailed, domain.NoteStatusSummarizing))
	assert.Equal(t, domain.AuditSummarizeFailed,
		auditEventFor(TriggerProcessingFailed, domain.NoteStatusTranscribingDone))
}
