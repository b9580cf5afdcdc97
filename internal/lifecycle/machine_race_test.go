package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxnote/voxnote-api/internal/audit"
	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/mocks"
)

// These tests script store behavior the in-memory store cannot produce:
// driver failures and an out-of-process writer racing the swap.

func TestMachine_StoreReadFailure(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	notes := &mocks.MockNoteStore{Err: storeErr}

	machine, err := NewMachine(notes, audit.NewRecorder(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = machine.Transition(context.Background(), uuid.New(), TriggerTranscribeStarted, nil)
	assert.ErrorIs(t, err, storeErr)
}

func TestMachine_StoreSwapFailure(t *testing.T) {
	t.Parallel()

	note, err := domain.NewNote(uuid.New(), "memo", nil)
	require.NoError(t, err)
	note.Status = domain.NoteStatusUploaded

	swapErr := errors.New("write timeout")
	notes := &mocks.MockNoteStore{
		Note: note,
		UpdateNoteStatusFn: func(ctx context.Context, id uuid.UUID, from, to domain.NoteStatus) (bool, error) {
			return false, swapErr
		},
	}

	machine, err := NewMachine(notes, audit.NewRecorder(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = machine.Transition(context.Background(), note.ID, TriggerTranscribeStarted, nil)
	assert.ErrorIs(t, err, swapErr)
}

func TestMachine_LostSwapAbsorbedAsStale(t *testing.T) {
	t.Parallel()

	note, err := domain.NewNote(uuid.New(), "memo", nil)
	require.NoError(t, err)
	note.Status = domain.NoteStatusUploaded

	// The swap loses to an out-of-process writer; the reload sees the
	// fresher status.
	reads := 0
	notes := &mocks.MockNoteStore{
		GetNoteFn: func(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
			reads++
			copied := *note
			if reads > 1 {
				copied.Status = domain.NoteStatusTranscribing
			}
			return &copied, nil
		},
		UpdateNoteStatusFn: func(ctx context.Context, id uuid.UUID, from, to domain.NoteStatus) (bool, error) {
			return false, nil
		},
	}

	recorder := audit.NewRecorder()
	machine, err := NewMachine(notes, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	status, err := machine.Transition(context.Background(), note.ID, TriggerTranscribeStarted, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NoteStatusTranscribing, status)

	// An absorbed trigger leaves no audit trace.
	assert.Empty(t, recorder.Events())
}
