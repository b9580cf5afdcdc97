package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/platform/logger"
	"github.com/voxnote/voxnote-api/internal/store"
)

// PostgresNoteStore implements the store.NoteStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNoteStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNoteStore creates a new PostgreSQL implementation of the NoteStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresNoteStore(db store.DBTX, logger *slog.Logger) *PostgresNoteStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNoteStore{
		db:     db,
		logger: logger.With(slog.String("component", "note_store")),
	}
}

// Ensure PostgresNoteStore implements store.NoteStore interface
var _ store.NoteStore = (*PostgresNoteStore)(nil)

// CreateNote implements store.NoteStore.CreateNote.
// Returns validation errors from the domain Note if data is invalid.
func (s *PostgresNoteStore) CreateNote(ctx context.Context, note *domain.Note) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := note.Validate(); err != nil {
		log.Warn("note validation failed during create",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return err
	}

	tags, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal note tags: %w", err)
	}

	query := `
		INSERT INTO notes (id, owner_id, title, tags, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		note.ID,
		note.OwnerID,
		note.Title,
		tags,
		note.Status,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create note",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return mapError(err, store.ErrNoteNotFound)
	}

	log.Debug("note created",
		slog.String("note_id", note.ID.String()),
		slog.String("status", string(note.Status)))
	return nil
}

// GetNote implements store.NoteStore.GetNote.
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *PostgresNoteStore) GetNote(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, title, tags, status, created_at, updated_at
		FROM notes
		WHERE id = $1
	`
	var note domain.Note
	var tags []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&note.ID,
		&note.OwnerID,
		&note.Title,
		&tags,
		&note.Status,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		mapped := mapError(err, store.ErrNoteNotFound)
		if !store.IsNotFoundError(mapped) {
			log.Error("failed to get note",
				slog.String("error", err.Error()),
				slog.String("note_id", id.String()))
		}
		return nil, mapped
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &note.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal note tags: %w", err)
		}
	}
	return &note, nil
}

// UpdateNoteStatus implements store.NoteStore.UpdateNoteStatus. The WHERE
// clause on the expected current status makes the update a compare-and-swap;
// zero rows affected with an existing note means the swap was lost.
func (s *PostgresNoteStore) UpdateNoteStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.NoteStatus,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notes
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	result, err := s.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		log.Error("failed to update note status",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()))
		return false, mapError(err, store.ErrNoteNotFound)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		log.Debug("note status updated",
			slog.String("note_id", id.String()),
			slog.String("from", string(from)),
			slog.String("to", string(to)))
		return true, nil
	}

	// Distinguish a lost swap from a missing note.
	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM notes WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check note existence: %w", err)
	}
	if !exists {
		return false, store.ErrNoteNotFound
	}
	return false, nil
}

// NoteExists implements queue.NoteChecker.
func (s *PostgresNoteStore) NoteExists(ctx context.Context, noteID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM notes WHERE id = $1)`, noteID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check note existence: %w", err)
	}
	return exists, nil
}
