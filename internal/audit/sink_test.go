package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/store/memstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(t *testing.T) *domain.AuditEvent {
	t.Helper()
	event, err := domain.NewAuditEvent(domain.AuditTranscribeStarted, uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	return event
}

// failingSink always errors, standing in for a broken downstream.
type failingSink struct{ calls int }

func (s *failingSink) Record(ctx context.Context, event *domain.AuditEvent) error {
	s.calls++
	return errors.New("sink unavailable")
}

func TestFanOut_BroadcastsToAllSinks(t *testing.T) {
	t.Parallel()

	first := NewRecorder()
	second := NewRecorder()
	fanout := NewFanOut(testLogger(), first, second)

	require.NoError(t, fanout.Record(context.Background(), testEvent(t)))

	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1)
}

func TestFanOut_SwallowsSinkFailures(t *testing.T) {
	t.Parallel()

	broken := &failingSink{}
	healthy := NewRecorder()
	fanout := NewFanOut(testLogger(), broken, healthy)

	// The broken sink neither propagates its error nor blocks the others.
	require.NoError(t, fanout.Record(context.Background(), testEvent(t)))
	assert.Equal(t, 1, broken.calls)
	assert.Len(t, healthy.Events(), 1)
}

func TestStoreSink_PersistsEvents(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	sink := NewStoreSink(st)

	event := testEvent(t)
	require.NoError(t, sink.Record(context.Background(), event))

	stored := st.AuditEvents()
	require.Len(t, stored, 1)
	assert.Equal(t, event.ID, stored[0].ID)
	assert.Equal(t, event.Type, stored[0].Type)
}

func TestRecorder_Filters(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder()
	ctx := context.Background()

	noteID := uuid.New()
	started, err := domain.NewAuditEvent(domain.AuditTranscribeStarted, noteID, uuid.New(), nil)
	require.NoError(t, err)
	completed, err := domain.NewAuditEvent(domain.AuditTranscribeCompleted, noteID, uuid.New(), nil)
	require.NoError(t, err)
	other, err := domain.NewAuditEvent(domain.AuditTranscribeStarted, uuid.New(), uuid.New(), nil)
	require.NoError(t, err)

	for _, event := range []*domain.AuditEvent{started, completed, other} {
		require.NoError(t, recorder.Record(ctx, event))
	}

	assert.Len(t, recorder.Events(), 3)
	assert.Len(t, recorder.EventsOfType(domain.AuditTranscribeStarted), 2)
	assert.Len(t, recorder.EventsForNote(noteID), 2)
	assert.Empty(t, recorder.EventsForNote(uuid.New()))
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx := WithCorrelationID(context.Background(), id)
	assert.Equal(t, id, CorrelationID(ctx))

	// Absent correlation reads as the zero UUID.
	assert.Equal(t, uuid.Nil, CorrelationID(context.Background()))
}
