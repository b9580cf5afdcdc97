package provider

import (
	"context"
	"time"
)

// Provider name constants used in persisted artifacts and job records.
const (
	NameMock   = "mock"
	NameGemini = "gemini"
	NameSherpa = "sherpa"
)

// TranscribeOptions carries optional per-call settings for transcription.
type TranscribeOptions struct {
	// Language hints the spoken language (BCP-47-ish tag, e.g. "en").
	// Empty means auto-detect where the backend supports it.
	Language string `json:"language,omitempty"`

	// Model optionally overrides the backend's default model.
	Model string `json:"model,omitempty"`
}

// SummarizeOptions carries optional per-call settings for summarization.
type SummarizeOptions struct {
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Segment is one timed span of transcribed speech.
type Segment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// TranscriptResult is the outcome of a successful transcription call.
type TranscriptResult struct {
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Confidence float64   `json:"confidence"` // in [0,1]
	Segments   []Segment `json:"segments,omitempty"`
}

// ActionItem is one follow-up item extracted during summarization.
type ActionItem struct {
	Text         string     `json:"text"`
	Priority     string     `json:"priority,omitempty"`
	DueSuggested *time.Time `json:"due_suggested,omitempty"`
}

// SummaryResult is the outcome of a successful summarization call.
type SummaryResult struct {
	TLDR    string       `json:"tl_dr"`
	Bullets []string     `json:"bullets"`
	Actions []ActionItem `json:"actions"`
}

// STTProvider is the contract every speech-to-text backend satisfies.
// Implementations declare their accepted formats and size limit so callers
// can pre-validate input before spending a call.
type STTProvider interface {
	// Transcribe converts audio bytes into text. Failures are wrapped in
	// ErrSTTFailure; transient failures additionally match ErrTransient.
	Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (*TranscriptResult, error)

	// SupportedFormats lists the MIME types the backend accepts.
	SupportedFormats() []string

	// MaxFileSize is the largest audio payload in bytes the backend accepts.
	MaxFileSize() int64

	// Name identifies the backend in persisted artifacts.
	Name() string
}

// LLMProvider is the contract every summarization backend satisfies.
type LLMProvider interface {
	// Summarize condenses the given text into a tl;dr, bullets, and action
	// items. Failures are wrapped in ErrLLMFailure; transient failures
	// additionally match ErrTransient.
	Summarize(ctx context.Context, text string, opts SummarizeOptions) (*SummaryResult, error)

	// Name identifies the backend in persisted artifacts.
	Name() string
}
