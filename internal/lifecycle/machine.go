package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/audit"
	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/store"
)

// lockShardCount sizes the per-note lock table. Power of two.
const lockShardCount = 64

// Common errors returned by the state machine.
var (
	// ErrInvalidTransition is returned when the note's current status does
	// not permit the trigger.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNilNoteStore is returned when the machine is constructed without a store.
	ErrNilNoteStore = errors.New("note store cannot be nil")
)

// Machine is the authoritative owner of note status. All mutations go
// through Transition, which serializes concurrent transitions on the same
// note and absorbs stale triggers from at-least-once delivery as no-ops.
type Machine struct {
	notes  store.NoteStore
	sink   audit.Sink
	logger *slog.Logger
	locks  [lockShardCount]sync.Mutex
}

// NewMachine creates the note state machine. The sink may be nil, in which
// case transitions are not audited (tests of unrelated behavior).
func NewMachine(notes store.NoteStore, sink audit.Sink, logger *slog.Logger) (*Machine, error) {
	if notes == nil {
		return nil, ErrNilNoteStore
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Machine{
		notes:  notes,
		sink:   sink,
		logger: logger.With(slog.String("component", "lifecycle_machine")),
	}, nil
}

// Transition applies the trigger to the note and returns the resulting
// status. Stale or duplicate triggers return the current status with a nil
// error. Disallowed triggers return ErrInvalidTransition. The optional
// metadata is attached to the audit event recorded for an applied
// transition.
func (m *Machine) Transition(
	ctx context.Context,
	noteID uuid.UUID,
	trigger Trigger,
	metadata map[string]any,
) (domain.NoteStatus, error) {
	lock := m.lockFor(noteID)
	lock.Lock()
	defer lock.Unlock()

	note, err := m.notes.GetNote(ctx, noteID)
	if err != nil {
		return "", fmt.Errorf("failed to load note for transition: %w", err)
	}

	to, applied, ok := next(note.Status, trigger)
	if !ok {
		return note.Status, fmt.Errorf("%w: %s does not permit %s",
			ErrInvalidTransition, note.Status, trigger)
	}

	if !applied {
		m.logger.Debug("absorbed stale trigger",
			slog.String("note_id", noteID.String()),
			slog.String("trigger", string(trigger)),
			slog.String("status", string(note.Status)))
		return note.Status, nil
	}

	swapped, err := m.notes.UpdateNoteStatus(ctx, noteID, note.Status, to)
	if err != nil {
		return "", fmt.Errorf("failed to update note status: %w", err)
	}
	if !swapped {
		// Another writer moved the note between our read and write. The
		// per-note lock makes this rare (an out-of-process writer); treat
		// our trigger as stale against the fresher status.
		current, err := m.notes.GetNote(ctx, noteID)
		if err != nil {
			return "", fmt.Errorf("failed to reload note after lost transition race: %w", err)
		}
		m.logger.Debug("lost transition race, absorbing trigger",
			slog.String("note_id", noteID.String()),
			slog.String("trigger", string(trigger)),
			slog.String("status", string(current.Status)))
		return current.Status, nil
	}

	m.logger.Info("note status transitioned",
		slog.String("note_id", noteID.String()),
		slog.String("trigger", string(trigger)),
		slog.String("from", string(note.Status)),
		slog.String("to", string(to)))

	m.recordTransition(ctx, noteID, trigger, note.Status, to, metadata)

	return to, nil
}

// Status returns the note's current status.
func (m *Machine) Status(ctx context.Context, noteID uuid.UUID) (domain.NoteStatus, error) {
	note, err := m.notes.GetNote(ctx, noteID)
	if err != nil {
		return "", err
	}
	return note.Status, nil
}

// recordTransition emits the audit event for an applied transition. Audit
// failures are logged, never propagated.
func (m *Machine) recordTransition(
	ctx context.Context,
	noteID uuid.UUID,
	trigger Trigger,
	from, to domain.NoteStatus,
	metadata map[string]any,
) {
	if m.sink == nil {
		return
	}

	eventType := auditEventFor(trigger, from)
	if eventType == "" {
		return
	}

	if metadata == nil {
		metadata = make(map[string]any, 3)
	}
	metadata["from"] = string(from)
	metadata["to"] = string(to)
	metadata["trigger"] = string(trigger)

	event, err := domain.NewAuditEvent(eventType, noteID, audit.CorrelationID(ctx), metadata)
	if err != nil {
		m.logger.Error("failed to build audit event for transition",
			slog.String("note_id", noteID.String()),
			slog.String("error", err.Error()))
		return
	}

	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Error("failed to record transition audit event",
			slog.String("note_id", noteID.String()),
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
	}
}

// lockFor returns the lock shard serializing transitions for the note.
func (m *Machine) lockFor(noteID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write(noteID[:])
	return &m.locks[h.Sum32()%lockShardCount]
}
