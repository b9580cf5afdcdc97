package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for pipeline artifacts
var (
	ErrEmptyMediaStorageKey  = errors.New("media storage key cannot be empty")
	ErrEmptyTranscriptText   = errors.New("transcript text cannot be empty")
	ErrInvalidConfidence     = errors.New("transcript confidence must be between 0 and 1")
	ErrEmptySummaryTLDR      = errors.New("summary tl;dr cannot be empty")
	ErrEmptySummaryBullets   = errors.New("summary must contain at least one bullet")
	ErrEmptyActionText       = errors.New("action text cannot be empty")
	ErrEmptyArtifactNoteID   = errors.New("artifact note ID cannot be empty")
	ErrEmptyArtifactProvider = errors.New("artifact provider cannot be empty")
)

// Media references the uploaded audio bytes for a note. It is created once
// per successful upload and immutable afterwards; the pipeline fetches the
// bytes by StorageKey and never embeds them.
type Media struct {
	ID         uuid.UUID `json:"id"`
	NoteID     uuid.UUID `json:"note_id"`
	StorageKey string    `json:"storage_key"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMedia creates a Media record for an uploaded audio object.
func NewMedia(noteID uuid.UUID, storageKey, mimeType string, sizeBytes int64) (*Media, error) {
	media := &Media{
		ID:         uuid.New(),
		NoteID:     noteID,
		StorageKey: storageKey,
		MimeType:   mimeType,
		SizeBytes:  sizeBytes,
		CreatedAt:  time.Now().UTC(),
	}

	if err := media.Validate(); err != nil {
		return nil, err
	}
	return media, nil
}

// Validate checks if the Media has valid data.
func (m *Media) Validate() error {
	if m.NoteID == uuid.Nil {
		return ErrEmptyArtifactNoteID
	}
	if m.StorageKey == "" {
		return ErrEmptyMediaStorageKey
	}
	return nil
}

// TranscriptSegment is one timed span of a transcript.
type TranscriptSegment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// Transcript is the text produced by the transcribe stage. At most one
// transcript is current per note; saving a new one supersedes the old
// (latest wins).
type Transcript struct {
	ID         uuid.UUID           `json:"id"`
	NoteID     uuid.UUID           `json:"note_id"`
	Text       string              `json:"text"`
	Language   string              `json:"language"`
	Confidence float64             `json:"confidence"`
	Segments   []TranscriptSegment `json:"segments,omitempty"`
	Provider   string              `json:"provider"`
	CreatedAt  time.Time           `json:"created_at"`
}

// NewTranscript creates a Transcript for the given note.
func NewTranscript(
	noteID uuid.UUID,
	text, language string,
	confidence float64,
	provider string,
) (*Transcript, error) {
	transcript := &Transcript{
		ID:         uuid.New(),
		NoteID:     noteID,
		Text:       text,
		Language:   language,
		Confidence: confidence,
		Provider:   provider,
		CreatedAt:  time.Now().UTC(),
	}

	if err := transcript.Validate(); err != nil {
		return nil, err
	}
	return transcript, nil
}

// Validate checks if the Transcript has valid data.
func (t *Transcript) Validate() error {
	if t.NoteID == uuid.Nil {
		return ErrEmptyArtifactNoteID
	}
	if t.Text == "" {
		return ErrEmptyTranscriptText
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return ErrInvalidConfidence
	}
	if t.Provider == "" {
		return ErrEmptyArtifactProvider
	}
	return nil
}

// Summary holds the condensed form of a transcript produced by the
// summarize stage.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	NoteID    uuid.UUID `json:"note_id"`
	TLDR      string    `json:"tl_dr"`
	Bullets   []string  `json:"bullets"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSummary creates a Summary for the given note.
func NewSummary(noteID uuid.UUID, tldr string, bullets []string, provider string) (*Summary, error) {
	summary := &Summary{
		ID:        uuid.New(),
		NoteID:    noteID,
		TLDR:      tldr,
		Bullets:   bullets,
		Provider:  provider,
		CreatedAt: time.Now().UTC(),
	}

	if err := summary.Validate(); err != nil {
		return nil, err
	}
	return summary, nil
}

// Validate checks if the Summary has valid data.
func (s *Summary) Validate() error {
	if s.NoteID == uuid.Nil {
		return ErrEmptyArtifactNoteID
	}
	if s.TLDR == "" {
		return ErrEmptySummaryTLDR
	}
	if len(s.Bullets) == 0 {
		return ErrEmptySummaryBullets
	}
	if s.Provider == "" {
		return ErrEmptyArtifactProvider
	}
	return nil
}

// Action is a follow-up item extracted by the summarize stage. The pipeline
// creates actions in batch and never revisits them; ownership passes to the
// CRUD layer afterwards.
type Action struct {
	ID           uuid.UUID  `json:"id"`
	NoteID       uuid.UUID  `json:"note_id"`
	Text         string     `json:"text"`
	Done         bool       `json:"done"`
	DueSuggested *time.Time `json:"due_suggested,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewAction creates an Action for the given note.
func NewAction(noteID uuid.UUID, text string, dueSuggested *time.Time) (*Action, error) {
	action := &Action{
		ID:           uuid.New(),
		NoteID:       noteID,
		Text:         text,
		Done:         false,
		DueSuggested: dueSuggested,
		CreatedAt:    time.Now().UTC(),
	}

	if err := action.Validate(); err != nil {
		return nil, err
	}
	return action, nil
}

// Validate checks if the Action has valid data.
func (a *Action) Validate() error {
	if a.NoteID == uuid.Nil {
		return ErrEmptyArtifactNoteID
	}
	if a.Text == "" {
		return ErrEmptyActionText
	}
	return nil
}
