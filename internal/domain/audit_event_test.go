package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuditEvent(t *testing.T) {
	t.Parallel()

	noteID := uuid.New()
	correlationID := uuid.New()

	event, err := NewAuditEvent(AuditTranscribeStarted, noteID, correlationID, map[string]any{
		"job_id": "transcribe:" + noteID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, AuditTranscribeStarted, event.Type)
	require.NotNil(t, event.NoteID)
	assert.Equal(t, noteID, *event.NoteID)
	assert.Equal(t, correlationID, event.CorrelationID)
	assert.Nil(t, event.UserID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestNewAuditEvent_GeneratesCorrelationID(t *testing.T) {
	t.Parallel()

	event, err := NewAuditEvent(AuditJobEnqueued, uuid.New(), uuid.Nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.CorrelationID)
}

func TestNewAuditEvent_EmptyType(t *testing.T) {
	t.Parallel()

	_, err := NewAuditEvent("", uuid.New(), uuid.Nil, nil)
	assert.ErrorIs(t, err, ErrEmptyAuditEventType)
}

func TestAuditEventWithUser(t *testing.T) {
	t.Parallel()

	event, err := NewAuditEvent(AuditNoteCreated, uuid.New(), uuid.Nil, nil)
	require.NoError(t, err)

	userID := uuid.New()
	event = event.WithUser(userID)
	require.NotNil(t, event.UserID)
	assert.Equal(t, userID, *event.UserID)

	// A nil user is ignored rather than stored.
	other, err := NewAuditEvent(AuditNoteCreated, uuid.New(), uuid.Nil, nil)
	require.NoError(t, err)
	other = other.WithUser(uuid.Nil)
	assert.Nil(t, other.UserID)
}
