package provider

import "errors"

// Common errors returned by provider backends.
var (
	// ErrSTTFailure is returned when a speech-to-text backend fails,
	// wrapping the backend's own error.
	ErrSTTFailure = errors.New("speech-to-text failed")

	// ErrLLMFailure is returned when a summarization backend fails,
	// wrapping the backend's own error.
	ErrLLMFailure = errors.New("summarization failed")

	// ErrTransient marks failures that might resolve on retry: network
	// timeouts, rate limits, unavailable backends. The job queue retries
	// these with backoff; everything else is permanent.
	ErrTransient = errors.New("transient provider error")

	// ErrInvalidConfig is returned when a provider cannot be constructed
	// from its configuration. Construction fails fast rather than deferring
	// the failure to first use.
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrUnknownBackend is returned by the factory for an unrecognized
	// backend name.
	ErrUnknownBackend = errors.New("unknown provider backend")

	// ErrEmptyAudio is returned when Transcribe is called with no audio bytes.
	ErrEmptyAudio = errors.New("audio payload cannot be empty")

	// ErrEmptyText is returned when Summarize is called with no text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrUnsupportedFormat is returned when the audio MIME type is not
	// accepted by the backend.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileTooLarge is returned when the audio payload exceeds the
	// backend's size limit.
	ErrFileTooLarge = errors.New("audio payload exceeds provider size limit")
)

// IsTransient reports whether the error is eligible for retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
