package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/domain"
)

// NoteStore defines the repository contract the pipeline needs for notes.
// The surrounding CRUD layer owns the full note surface; the pipeline only
// reads notes and moves their status through compare-and-swap updates.
type NoteStore interface {
	// CreateNote saves a new note.
	// Returns validation errors from the domain Note if data is invalid.
	CreateNote(ctx context.Context, note *domain.Note) error

	// GetNote retrieves a note by its ID.
	// Returns ErrNoteNotFound if the note does not exist.
	GetNote(ctx context.Context, id uuid.UUID) (*domain.Note, error)

	// UpdateNoteStatus moves a note from one status to another atomically.
	// It returns false (with a nil error) when the note's current status is
	// no longer `from`, which signals a lost transition race to the caller.
	UpdateNoteStatus(ctx context.Context, id uuid.UUID, from, to domain.NoteStatus) (bool, error)
}

// MediaStore defines the repository contract for uploaded media references.
type MediaStore interface {
	// CreateMedia saves a new media record. Media is immutable once created.
	CreateMedia(ctx context.Context, media *domain.Media) error

	// GetMedia retrieves a media record by its ID.
	// Returns ErrMediaNotFound if the record does not exist.
	GetMedia(ctx context.Context, id uuid.UUID) (*domain.Media, error)

	// GetMediaByNote retrieves the most recent media record for a note.
	// Returns ErrMediaNotFound if the note has no media.
	GetMediaByNote(ctx context.Context, noteID uuid.UUID) (*domain.Media, error)
}

// BlobStore is the fetch-by-key contract over the external blob storage
// holding the raw audio bytes.
type BlobStore interface {
	// FetchBlob returns the bytes stored under the given key.
	// Returns ErrBlobNotFound if no object exists under the key.
	FetchBlob(ctx context.Context, storageKey string) ([]byte, error)
}
