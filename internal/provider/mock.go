package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
)

// MockSTT is the built-in speech-to-text backend. It produces deterministic,
// schema-valid transcripts keyed off the audio payload so it serves as the
// default backend for local development and tests, not merely a stub.
type MockSTT struct {
	mu        sync.Mutex
	failTimes int
	calls     int
}

// NewMockSTT creates the mock speech-to-text backend.
func NewMockSTT() *MockSTT {
	return &MockSTT{}
}

// FailTimes makes the next n Transcribe calls fail with a transient error,
// after which calls succeed again. Used to script retry scenarios in tests.
func (m *MockSTT) FailTimes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTimes = n
}

// Calls returns how many Transcribe calls have been made.
func (m *MockSTT) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Transcribe implements STTProvider.
func (m *MockSTT) Transcribe(
	ctx context.Context,
	audio []byte,
	opts TranscribeOptions,
) (*TranscriptResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrSTTFailure, ErrTransient, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrSTTFailure, ErrEmptyAudio)
	}

	m.mu.Lock()
	m.calls++
	if m.failTimes > 0 {
		m.failTimes--
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %w: scripted mock failure", ErrSTTFailure, ErrTransient)
	}
	m.mu.Unlock()

	language := opts.Language
	if language == "" {
		language = "en"
	}

	// Deterministic output derived from the payload so repeated runs over
	// the same audio produce the same transcript.
	seconds := float64(len(audio)) / 32000.0
	text := fmt.Sprintf(
		"This is a mock transcription of a %d byte recording lasting roughly %.1f seconds. "+
			"It mentions reviewing the quarterly report and scheduling a follow-up call.",
		len(audio), seconds)

	return &TranscriptResult{
		Text:       text,
		Language:   language,
		Confidence: 0.92,
		Segments: []Segment{
			{StartSec: 0, EndSec: seconds / 2, Text: "This is a mock transcription."},
			{StartSec: seconds / 2, EndSec: seconds, Text: "It mentions reviewing the quarterly report."},
		},
	}, nil
}

// SupportedFormats implements STTProvider.
func (m *MockSTT) SupportedFormats() []string {
	return []string{"audio/wav", "audio/x-wav", "audio/mpeg", "audio/mp4", "audio/webm"}
}

// MaxFileSize implements STTProvider.
func (m *MockSTT) MaxFileSize() int64 {
	return 512 << 20
}

// Name implements STTProvider.
func (m *MockSTT) Name() string {
	return NameMock
}

// MockLLM is the built-in summarization backend, mirroring MockSTT: real
// deterministic output, scripted failures for tests.
type MockLLM struct {
	mu        sync.Mutex
	failTimes int
	calls     int
}

// NewMockLLM creates the mock summarization backend.
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// FailTimes makes the next n Summarize calls fail with a transient error.
func (m *MockLLM) FailTimes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTimes = n
}

// Calls returns how many Summarize calls have been made.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Summarize implements LLMProvider.
func (m *MockLLM) Summarize(
	ctx context.Context,
	text string,
	opts SummarizeOptions,
) (*SummaryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrLLMFailure, ErrTransient, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %w", ErrLLMFailure, ErrEmptyText)
	}

	m.mu.Lock()
	m.calls++
	if m.failTimes > 0 {
		m.failTimes--
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %w: scripted mock failure", ErrLLMFailure, ErrTransient)
	}
	m.mu.Unlock()

	tldr := text
	if len(tldr) > 120 {
		// Back up to a rune start so the cut never splits a multi-byte
		// character.
		cut := 117
		for cut > 0 && !utf8.RuneStart(tldr[cut]) {
			cut--
		}
		tldr = tldr[:cut] + "..."
	}

	due := time.Now().UTC().AddDate(0, 0, 7)

	return &SummaryResult{
		TLDR: tldr,
		Bullets: []string{
			fmt.Sprintf("Recording transcribed to %d characters of text.", len(text)),
			"Key topic: quarterly report review.",
			"A follow-up call was proposed.",
		},
		Actions: []ActionItem{
			{Text: "Review the quarterly report", Priority: "high", DueSuggested: &due},
			{Text: "Schedule the follow-up call", Priority: "medium"},
		},
	}, nil
}

// Name implements LLMProvider.
func (m *MockLLM) Name() string {
	return NameMock
}
