package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscript(t *testing.T) {
	t.Parallel()

	noteID := uuid.New()

	transcript, err := NewTranscript(noteID, "hello world", "en", 0.87, "mock")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, transcript.ID)
	assert.Equal(t, noteID, transcript.NoteID)
	assert.Equal(t, "hello world", transcript.Text)
	assert.Equal(t, 0.87, transcript.Confidence)
	assert.Equal(t, "mock", transcript.Provider)
}

func TestTranscriptValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		confidence float64
		provider   string
		wantErr    error
	}{
		{"empty text", "", 0.5, "mock", ErrEmptyTranscriptText},
		{"confidence below zero", "text", -0.1, "mock", ErrInvalidConfidence},
		{"confidence above one", "text", 1.1, "mock", ErrInvalidConfidence},
		{"missing provider", "text", 0.5, "", ErrEmptyArtifactProvider},
		{"confidence at bounds", "text", 1.0, "mock", nil},
		{"confidence zero", "text", 0.0, "mock", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTranscript(uuid.New(), tc.text, "en", tc.confidence, tc.provider)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	noteID := uuid.New()

	summary, err := NewSummary(noteID, "short version", []string{"point one"}, "gemini")
	require.NoError(t, err)
	assert.Equal(t, noteID, summary.NoteID)
	assert.Equal(t, "short version", summary.TLDR)

	_, err = NewSummary(noteID, "", []string{"point"}, "gemini")
	assert.ErrorIs(t, err, ErrEmptySummaryTLDR)

	_, err = NewSummary(noteID, "tldr", nil, "gemini")
	assert.ErrorIs(t, err, ErrEmptySummaryBullets)
}

func TestNewAction(t *testing.T) {
	t.Parallel()

	noteID := uuid.New()
	due := time.Now().UTC().AddDate(0, 0, 7)

	action, err := NewAction(noteID, "send the report", &due)
	require.NoError(t, err)
	assert.Equal(t, noteID, action.NoteID)
	assert.False(t, action.Done)
	require.NotNil(t, action.DueSuggested)
	assert.Equal(t, due, *action.DueSuggested)

	_, err = NewAction(noteID, "", nil)
	assert.ErrorIs(t, err, ErrEmptyActionText)
}

func TestNewMedia(t *testing.T) {
	t.Parallel()

	noteID := uuid.New()

	media, err := NewMedia(noteID, "audio/abc.wav", "audio/wav", 2048)
	require.NoError(t, err)
	assert.Equal(t, "audio/abc.wav", media.StorageKey)
	assert.Equal(t, int64(2048), media.SizeBytes)

	_, err = NewMedia(noteID, "", "audio/wav", 0)
	assert.ErrorIs(t, err, ErrEmptyMediaStorageKey)
}
