package lifecycle

import "github.com/voxnote/voxnote-api/internal/domain"

// Trigger names an event that may move a note through its lifecycle.
// Triggers are the only way note status changes.
type Trigger string

// Triggers accepted by the state machine.
const (
	TriggerUploadStarted       Trigger = "upload_started"
	TriggerUploadCompleted     Trigger = "upload_completed"
	TriggerTranscribeStarted   Trigger = "transcribe_started"
	TriggerTranscribeCompleted Trigger = "transcribe_completed"
	TriggerSummarizeStarted    Trigger = "summarize_started"
	TriggerSummarizeCompleted  Trigger = "summarize_completed"
	TriggerProcessingFailed    Trigger = "processing_failed"
	TriggerRetryTranscribe     Trigger = "retry_transcribe"
	TriggerRetrySummarize      Trigger = "retry_summarize"
)

// transitionTable lists the allowed moves: current status -> trigger -> next.
// ProcessingFailed is handled separately because it applies from any
// non-terminal state.
var transitionTable = map[domain.NoteStatus]map[Trigger]domain.NoteStatus{
	domain.NoteStatusIdle: {
		TriggerUploadStarted: domain.NoteStatusUploading,
	},
	domain.NoteStatusUploading: {
		TriggerUploadCompleted: domain.NoteStatusUploaded,
	},
	domain.NoteStatusUploaded: {
		TriggerTranscribeStarted: domain.NoteStatusTranscribing,
	},
	domain.NoteStatusTranscribing: {
		TriggerTranscribeCompleted: domain.NoteStatusTranscribingDone,
	},
	domain.NoteStatusTranscribingDone: {
		TriggerSummarizeStarted: domain.NoteStatusSummarizing,
	},
	domain.NoteStatusSummarizing: {
		TriggerSummarizeCompleted: domain.NoteStatusReady,
	},
	domain.NoteStatusError: {
		TriggerRetryTranscribe: domain.NoteStatusUploaded,
		TriggerRetrySummarize:  domain.NoteStatusTranscribingDone,
	},
}

// canonicalTarget is the status each trigger aims at, used to classify
// out-of-table triggers as stale (already passed) versus invalid (skipping
// ahead).
var canonicalTarget = map[Trigger]domain.NoteStatus{
	TriggerUploadStarted:       domain.NoteStatusUploading,
	TriggerUploadCompleted:     domain.NoteStatusUploaded,
	TriggerTranscribeStarted:   domain.NoteStatusTranscribing,
	TriggerTranscribeCompleted: domain.NoteStatusTranscribingDone,
	TriggerSummarizeStarted:    domain.NoteStatusSummarizing,
	TriggerSummarizeCompleted:  domain.NoteStatusReady,
	TriggerProcessingFailed:    domain.NoteStatusError,
	TriggerRetryTranscribe:     domain.NoteStatusUploaded,
	TriggerRetrySummarize:      domain.NoteStatusTranscribingDone,
}

// statusOrder indexes the happy-path statuses in pipeline order. Error is
// deliberately absent; it sits outside the linear progression.
var statusOrder = map[domain.NoteStatus]int{
	domain.NoteStatusIdle:             0,
	domain.NoteStatusUploading:        1,
	domain.NoteStatusUploaded:         2,
	domain.NoteStatusTranscribing:     3,
	domain.NoteStatusTranscribingDone: 4,
	domain.NoteStatusSummarizing:      5,
	domain.NoteStatusReady:            6,
}

// next resolves a trigger against the current status.
// applied=true means the status moves to the returned value. applied=false
// with ok=true means the trigger is stale or duplicate and is absorbed as a
// no-op. ok=false means the trigger is invalid from this status.
func next(current domain.NoteStatus, trigger Trigger) (to domain.NoteStatus, applied bool, ok bool) {
	if trigger == TriggerProcessingFailed {
		// Error is reachable from any non-terminal state; a failure
		// arriving after the note is already terminal is a late report
		// from a superseded attempt.
		if domain.IsTerminalNoteStatus(current) {
			return current, false, true
		}
		return domain.NoteStatusError, true, true
	}

	if targets, found := transitionTable[current]; found {
		if to, found := targets[trigger]; found {
			return to, true, true
		}
	}

	target, known := canonicalTarget[trigger]
	if !known {
		return current, false, false
	}

	// Duplicate delivery of the trigger that produced the current status.
	if target == current {
		return current, false, true
	}

	// A trigger aiming at a status the note has already moved past is a
	// late delivery from an at-least-once queue, absorbed silently. Error
	// and ready absorb all late progress triggers; only explicit retry
	// triggers re-enter the pipeline from error.
	if current == domain.NoteStatusError || current == domain.NoteStatusReady {
		if trigger == TriggerRetryTranscribe || trigger == TriggerRetrySummarize {
			return current, false, false
		}
		return current, false, true
	}

	currentOrd, hasCurrent := statusOrder[current]
	targetOrd, hasTarget := statusOrder[target]
	if hasCurrent && hasTarget && targetOrd <= currentOrd {
		return current, false, true
	}

	return current, false, false
}

// auditEventFor maps an applied transition onto the audit event type to
// record, or "" when the transition has no pipeline-owned event (upload
// start belongs to the CRUD layer).
func auditEventFor(trigger Trigger, from domain.NoteStatus) domain.AuditEventType {
	switch trigger {
	case TriggerUploadCompleted:
		return domain.AuditUploadCompleted
	case TriggerTranscribeStarted:
		return domain.AuditTranscribeStarted
	case TriggerTranscribeCompleted:
		return domain.AuditTranscribeCompleted
	case TriggerSummarizeStarted:
		return domain.AuditSummarizeStarted
	case TriggerSummarizeCompleted:
		return domain.AuditSummarizeCompleted
	case TriggerRetryTranscribe, TriggerRetrySummarize:
		return domain.AuditNoteRetried
	case TriggerProcessingFailed:
		switch from {
		case domain.NoteStatusTranscribingDone, domain.NoteStatusSummarizing:
			return domain.AuditSummarizeFailed
		default:
			return domain.AuditTranscribeFailed
		}
	default:
		return ""
	}
}
