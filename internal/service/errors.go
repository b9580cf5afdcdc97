package service

import "errors"

// Sentinel errors used across the pipeline service. Callers check them
// with errors.Is; a surrounding API layer would map them onto HTTP
// status codes (precondition failures to 409, missing resources to 404).
var (
	// ErrNoteNotUploaded indicates a transcribe enqueue was requested for a
	// note whose audio upload has not completed.
	ErrNoteNotUploaded = errors.New("note has no completed upload")

	// ErrNoteNotTranscribed indicates a summarize enqueue was requested for
	// a note that has no finished transcript.
	ErrNoteNotTranscribed = errors.New("note has not finished transcription")

	// ErrNoteNotErrored indicates a retry was requested for a note that is
	// not in the error state.
	ErrNoteNotErrored = errors.New("note is not in the error state")

	// ErrUnknownStage indicates a job type the pipeline does not run.
	ErrUnknownStage = errors.New("unknown pipeline stage")
)
