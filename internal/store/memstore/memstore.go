// Package memstore provides in-memory implementations of the store
// contracts. They back the dev-mode server and the package tests; the
// postgres implementations are the production counterparts.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/store"
)

// Store implements every repository contract over process memory. All
// methods are safe for concurrent use; UpdateNoteStatus performs a real
// compare-and-swap under the store lock.
type Store struct {
	mu          sync.RWMutex
	notes       map[uuid.UUID]domain.Note
	media       map[uuid.UUID]domain.Media
	transcripts map[uuid.UUID]domain.Transcript // keyed by note ID, latest wins
	summaries   map[uuid.UUID]domain.Summary    // keyed by note ID, latest wins
	actions     map[uuid.UUID][]domain.Action   // keyed by note ID
	blobs       map[string][]byte
	events      []domain.AuditEvent
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		notes:       make(map[uuid.UUID]domain.Note),
		media:       make(map[uuid.UUID]domain.Media),
		transcripts: make(map[uuid.UUID]domain.Transcript),
		summaries:   make(map[uuid.UUID]domain.Summary),
		actions:     make(map[uuid.UUID][]domain.Action),
		blobs:       make(map[string][]byte),
	}
}

// Interface checks.
var (
	_ store.NoteStore       = (*Store)(nil)
	_ store.MediaStore      = (*Store)(nil)
	_ store.BlobStore       = (*Store)(nil)
	_ store.TranscriptStore = (*Store)(nil)
	_ store.SummaryStore    = (*Store)(nil)
	_ store.AuditStore      = (*Store)(nil)
)

// CreateNote implements store.NoteStore.
func (s *Store) CreateNote(ctx context.Context, note *domain.Note) error {
	if err := note.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[note.ID] = *note
	return nil
}

// GetNote implements store.NoteStore.
func (s *Store) GetNote(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, found := s.notes[id]
	if !found {
		return nil, store.ErrNoteNotFound
	}
	copied := note
	copied.Tags = append([]string(nil), note.Tags...)
	return &copied, nil
}

// UpdateNoteStatus implements store.NoteStore with a compare-and-swap on
// the current status.
func (s *Store) UpdateNoteStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.NoteStatus,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, found := s.notes[id]
	if !found {
		return false, store.ErrNoteNotFound
	}
	if note.Status != from {
		return false, nil
	}
	note.Status = to
	note.UpdatedAt = time.Now().UTC()
	s.notes[id] = note
	return true, nil
}

// CreateMedia implements store.MediaStore.
func (s *Store) CreateMedia(ctx context.Context, media *domain.Media) error {
	if err := media.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[media.ID] = *media
	return nil
}

// GetMedia implements store.MediaStore.
func (s *Store) GetMedia(ctx context.Context, id uuid.UUID) (*domain.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	media, found := s.media[id]
	if !found {
		return nil, store.ErrMediaNotFound
	}
	copied := media
	return &copied, nil
}

// GetMediaByNote implements store.MediaStore, returning the most recently
// created media record for the note.
func (s *Store) GetMediaByNote(ctx context.Context, noteID uuid.UUID) (*domain.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.Media
	for id := range s.media {
		media := s.media[id]
		if media.NoteID != noteID {
			continue
		}
		if latest == nil || media.CreatedAt.After(latest.CreatedAt) {
			copied := media
			latest = &copied
		}
	}
	if latest == nil {
		return nil, store.ErrMediaNotFound
	}
	return latest, nil
}

// PutBlob stores audio bytes under a key. Upload handling lives outside
// the pipeline; tests and the dev server use this to seed audio.
func (s *Store) PutBlob(storageKey string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[storageKey] = append([]byte(nil), data...)
}

// FetchBlob implements store.BlobStore.
func (s *Store) FetchBlob(ctx context.Context, storageKey string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, found := s.blobs[storageKey]
	if !found {
		return nil, store.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// SaveTranscript implements store.TranscriptStore; the newest transcript
// for a note replaces any prior one.
func (s *Store) SaveTranscript(ctx context.Context, transcript *domain.Transcript) error {
	if err := transcript.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *transcript
	copied.Segments = append([]domain.TranscriptSegment(nil), transcript.Segments...)
	s.transcripts[transcript.NoteID] = copied
	return nil
}

// GetTranscriptByNote implements store.TranscriptStore.
func (s *Store) GetTranscriptByNote(ctx context.Context, noteID uuid.UUID) (*domain.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	transcript, found := s.transcripts[noteID]
	if !found {
		return nil, store.ErrTranscriptNotFound
	}
	copied := transcript
	copied.Segments = append([]domain.TranscriptSegment(nil), transcript.Segments...)
	return &copied, nil
}

// SaveSummaryAndActions implements store.SummaryStore. The summary and
// its action batch replace any prior batch for the note atomically.
func (s *Store) SaveSummaryAndActions(
	ctx context.Context,
	summary *domain.Summary,
	actions []*domain.Action,
) error {
	if err := summary.Validate(); err != nil {
		return err
	}
	for _, action := range actions {
		if err := action.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *summary
	copied.Bullets = append([]string(nil), summary.Bullets...)
	s.summaries[summary.NoteID] = copied

	batch := make([]domain.Action, 0, len(actions))
	for _, action := range actions {
		batch = append(batch, *action)
	}
	s.actions[summary.NoteID] = batch
	return nil
}

// GetSummaryByNote implements store.SummaryStore.
func (s *Store) GetSummaryByNote(ctx context.Context, noteID uuid.UUID) (*domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, found := s.summaries[noteID]
	if !found {
		return nil, store.ErrNotFound
	}
	copied := summary
	copied.Bullets = append([]string(nil), summary.Bullets...)
	return &copied, nil
}

// ActionsByNote returns the stored action batch for a note, ordered by
// creation time.
func (s *Store) ActionsByNote(noteID uuid.UUID) []domain.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch := append([]domain.Action(nil), s.actions[noteID]...)
	sort.Slice(batch, func(i, j int) bool {
		return batch[i].CreatedAt.Before(batch[j].CreatedAt)
	})
	return batch
}

// RecordAuditEvent implements store.AuditStore.
func (s *Store) RecordAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil {
		return domain.ErrEmptyAuditEventType
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// AuditEvents returns a snapshot of recorded events in append order.
func (s *Store) AuditEvents() []domain.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditEvent(nil), s.events...)
}

// NoteExists implements queue.NoteChecker.
func (s *Store) NoteExists(ctx context.Context, noteID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := s.notes[noteID]
	return found, nil
}
