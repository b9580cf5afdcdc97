package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// NoteStatus represents the processing state of a note.
type NoteStatus string

// Possible note status values. A note advances along the pipeline in this
// order; StatusError is reachable from any non-terminal state.
const (
	NoteStatusIdle             NoteStatus = "idle"
	NoteStatusUploading        NoteStatus = "uploading"
	NoteStatusUploaded         NoteStatus = "uploaded"
	NoteStatusTranscribing     NoteStatus = "transcribing"
	NoteStatusTranscribingDone NoteStatus = "transcribing_done"
	NoteStatusSummarizing      NoteStatus = "summarizing"
	NoteStatusReady            NoteStatus = "ready"
	NoteStatusError            NoteStatus = "error"
)

// Common validation errors for Note
var (
	ErrEmptyNoteID      = errors.New("note ID cannot be empty")
	ErrEmptyNoteOwnerID = errors.New("note owner ID cannot be empty")
	ErrEmptyNoteTitle   = errors.New("note title cannot be empty")
	ErrInvalidStatus    = errors.New("invalid note status")
)

// Note represents one voice memo and the root of its derived artifacts
// (transcript, summary, actions). Status tracks pipeline progress and is
// only ever written through the lifecycle state machine.
type Note struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	Title     string     `json:"title"`
	Tags      []string   `json:"tags"`
	Status    NoteStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewNote creates a new Note owned by the given user.
// It generates a new UUID for the note ID, sets the status to idle,
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewNote(ownerID uuid.UUID, title string, tags []string) (*Note, error) {
	note := &Note{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Tags:      normalizeTags(tags),
		Status:    NoteStatusIdle,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := note.Validate(); err != nil {
		return nil, err
	}

	return note, nil
}

// Validate checks if the Note has valid data.
// Returns an error if any field fails validation.
func (n *Note) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNoteID
	}

	if n.OwnerID == uuid.Nil {
		return ErrEmptyNoteOwnerID
	}

	if n.Title == "" {
		return ErrEmptyNoteTitle
	}

	if !IsValidNoteStatus(n.Status) {
		return ErrInvalidStatus
	}

	return nil
}

// IsValidNoteStatus checks if the given status is a valid NoteStatus.
func IsValidNoteStatus(status NoteStatus) bool {
	switch status {
	case NoteStatusIdle, NoteStatusUploading, NoteStatusUploaded,
		NoteStatusTranscribing, NoteStatusTranscribingDone,
		NoteStatusSummarizing, NoteStatusReady, NoteStatusError:
		return true
	default:
		return false
	}
}

// IsTerminalNoteStatus reports whether the status ends a processing attempt.
// Error notes remain resumable through an explicit retry trigger.
func IsTerminalNoteStatus(status NoteStatus) bool {
	return status == NoteStatusReady || status == NoteStatusError
}

// normalizeTags deduplicates tags, preserving first-seen order.
// The tag list behaves as a set.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
