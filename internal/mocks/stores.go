package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/store"
)

// MockNoteStore implements store.NoteStore for testing.
type MockNoteStore struct {
	// Custom behavior functions
	CreateNoteFn       func(ctx context.Context, note *domain.Note) error
	GetNoteFn          func(ctx context.Context, id uuid.UUID) (*domain.Note, error)
	UpdateNoteStatusFn func(ctx context.Context, id uuid.UUID, from, to domain.NoteStatus) (bool, error)

	// Default response values
	Note *domain.Note
	Err  error

	// Call tracking for verification
	mu                    sync.Mutex
	GetNoteCount          int
	UpdateNoteStatusCount int
	UpdatedStatuses       []domain.NoteStatus
}

var _ store.NoteStore = (*MockNoteStore)(nil)

// CreateNote implements the store.NoteStore interface.
func (m *MockNoteStore) CreateNote(ctx context.Context, note *domain.Note) error {
	if m.CreateNoteFn != nil {
		return m.CreateNoteFn(ctx, note)
	}
	return m.Err
}

// GetNote implements the store.NoteStore interface.
func (m *MockNoteStore) GetNote(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	m.mu.Lock()
	m.GetNoteCount++
	m.mu.Unlock()

	if m.GetNoteFn != nil {
		return m.GetNoteFn(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Note == nil {
		return nil, store.ErrNoteNotFound
	}
	return m.Note, nil
}

// UpdateNoteStatus implements the store.NoteStore interface.
func (m *MockNoteStore) UpdateNoteStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.NoteStatus,
) (bool, error) {
	m.mu.Lock()
	m.UpdateNoteStatusCount++
	m.UpdatedStatuses = append(m.UpdatedStatuses, to)
	m.mu.Unlock()

	if m.UpdateNoteStatusFn != nil {
		return m.UpdateNoteStatusFn(ctx, id, from, to)
	}
	if m.Err != nil {
		return false, m.Err
	}
	if m.Note != nil && m.Note.Status == from {
		m.Note.Status = to
		return true, nil
	}
	return false, nil
}

// MockBlobStore implements store.BlobStore for testing.
type MockBlobStore struct {
	FetchBlobFn func(ctx context.Context, storageKey string) ([]byte, error)

	Data []byte
	Err  error
}

var _ store.BlobStore = (*MockBlobStore)(nil)

// FetchBlob implements the store.BlobStore interface.
func (m *MockBlobStore) FetchBlob(ctx context.Context, storageKey string) ([]byte, error) {
	if m.FetchBlobFn != nil {
		return m.FetchBlobFn(ctx, storageKey)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Data == nil {
		return nil, store.ErrBlobNotFound
	}
	return m.Data, nil
}
