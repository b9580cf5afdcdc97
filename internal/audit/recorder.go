package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/domain"
)

// Recorder is an in-memory sink that keeps every recorded event. Tests use
// it to assert on the audit trail.
type Recorder struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
}

// NewRecorder creates an empty in-memory sink.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record implements Sink.
func (r *Recorder) Record(_ context.Context, event *domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a snapshot of all recorded events in record order.
func (r *Recorder) Events() []*domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

// EventsOfType returns the recorded events matching the given type.
func (r *Recorder) EventsOfType(eventType domain.AuditEventType) []*domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditEvent
	for _, event := range r.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// EventsForNote returns the recorded events for the given note.
func (r *Recorder) EventsForNote(noteID uuid.UUID) []*domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditEvent
	for _, event := range r.events {
		if event.NoteID != nil && *event.NoteID == noteID {
			out = append(out, event)
		}
	}
	return out
}
