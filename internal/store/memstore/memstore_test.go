package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/store"
)

func seedNote(t *testing.T, s *Store) *domain.Note {
	t.Helper()
	note, err := domain.NewNote(uuid.New(), "memo", []string{"inbox"})
	require.NoError(t, err)
	require.NoError(t, s.CreateNote(context.Background(), note))
	return note
}

func TestStore_NoteRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	note := seedNote(t, s)

	loaded, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, loaded.ID)
	assert.Equal(t, domain.NoteStatusIdle, loaded.Status)

	// The returned copy does not alias the stored record.
	loaded.Tags[0] = "mutated"
	again, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox"}, again.Tags)

	_, err = s.GetNote(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNoteNotFound)
}

func TestStore_UpdateNoteStatusCAS(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	note := seedNote(t, s)

	swapped, err := s.UpdateNoteStatus(ctx, note.ID, domain.NoteStatusIdle, domain.NoteStatusUploading)
	require.NoError(t, err)
	assert.True(t, swapped)

	// A swap against the stale expected status is refused, not an error.
	swapped, err = s.UpdateNoteStatus(ctx, note.ID, domain.NoteStatusIdle, domain.NoteStatusUploaded)
	require.NoError(t, err)
	assert.False(t, swapped)

	loaded, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NoteStatusUploading, loaded.Status)

	_, err = s.UpdateNoteStatus(ctx, uuid.New(), domain.NoteStatusIdle, domain.NoteStatusUploading)
	assert.ErrorIs(t, err, store.ErrNoteNotFound)
}

func TestStore_GetMediaByNoteReturnsLatest(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	note := seedNote(t, s)

	older, err := domain.NewMedia(note.ID, "audio/older.wav", "audio/wav", 100)
	require.NoError(t, err)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateMedia(ctx, older))

	newer, err := domain.NewMedia(note.ID, "audio/newer.wav", "audio/wav", 200)
	require.NoError(t, err)
	require.NoError(t, s.CreateMedia(ctx, newer))

	latest, err := s.GetMediaByNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	_, err = s.GetMediaByNote(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrMediaNotFound)
}

func TestStore_BlobRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	s.PutBlob("audio/a.wav", []byte("bytes"))

	data, err := s.FetchBlob(ctx, "audio/a.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)

	_, err = s.FetchBlob(ctx, "audio/missing.wav")
	assert.ErrorIs(t, err, store.ErrBlobNotFound)
}

func TestStore_TranscriptLatestWins(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	note := seedNote(t, s)

	first, err := domain.NewTranscript(note.ID, "first attempt", "en", 0.8, "mock")
	require.NoError(t, err)
	require.NoError(t, s.SaveTranscript(ctx, first))

	second, err := domain.NewTranscript(note.ID, "second attempt", "en", 0.95, "mock")
	require.NoError(t, err)
	require.NoError(t, s.SaveTranscript(ctx, second))

	loaded, err := s.GetTranscriptByNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "second attempt", loaded.Text)
	assert.Equal(t, second.ID, loaded.ID)
}

func TestStore_SaveSummaryAndActionsReplacesBatch(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	note := seedNote(t, s)

	summary, err := domain.NewSummary(note.ID, "recap", []string{"a", "b"}, "mock")
	require.NoError(t, err)
	actionA, err := domain.NewAction(note.ID, "do the thing", nil)
	require.NoError(t, err)
	actionB, err := domain.NewAction(note.ID, "do the other thing", nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveSummaryAndActions(ctx, summary, []*domain.Action{actionA, actionB}))

	// A replayed summarize run replaces the whole batch, never appends.
	replacement, err := domain.NewSummary(note.ID, "new recap", []string{"c"}, "mock")
	require.NoError(t, err)
	actionC, err := domain.NewAction(note.ID, "only remaining item", nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveSummaryAndActions(ctx, replacement, []*domain.Action{actionC}))

	loaded, err := s.GetSummaryByNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "new recap", loaded.TLDR)

	actions := s.ActionsByNote(note.ID)
	require.Len(t, actions, 1)
	assert.Equal(t, "only remaining item", actions[0].Text)
}

func TestStore_NoteExists(t *testing.T) {
	t.Parallel()

	s := New()
	note := seedNote(t, s)

	exists, err := s.NoteExists(context.Background(), note.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.NoteExists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}
