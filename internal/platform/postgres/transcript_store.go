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

// PostgresTranscriptStore implements the store.TranscriptStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTranscriptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTranscriptStore creates a new PostgreSQL implementation of the TranscriptStore interface.
func NewPostgresTranscriptStore(db store.DBTX, logger *slog.Logger) *PostgresTranscriptStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTranscriptStore{
		db:     db,
		logger: logger.With(slog.String("component", "transcript_store")),
	}
}

// Ensure PostgresTranscriptStore implements store.TranscriptStore interface
var _ store.TranscriptStore = (*PostgresTranscriptStore)(nil)

// SaveTranscript implements store.TranscriptStore.SaveTranscript. The
// upsert is keyed by note ID so a replayed transcribe job overwrites its
// own prior transcript instead of duplicating it.
func (s *PostgresTranscriptStore) SaveTranscript(ctx context.Context, transcript *domain.Transcript) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := transcript.Validate(); err != nil {
		log.Warn("transcript validation failed during save",
			slog.String("error", err.Error()),
			slog.String("note_id", transcript.NoteID.String()))
		return err
	}

	segments, err := json.Marshal(transcript.Segments)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript segments: %w", err)
	}

	query := `
		INSERT INTO transcripts (id, note_id, text, language, confidence, segments, provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (note_id) DO UPDATE SET
			id = EXCLUDED.id,
			text = EXCLUDED.text,
			language = EXCLUDED.language,
			confidence = EXCLUDED.confidence,
			segments = EXCLUDED.segments,
			provider = EXCLUDED.provider,
			created_at = EXCLUDED.created_at
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		transcript.ID,
		transcript.NoteID,
		transcript.Text,
		transcript.Language,
		transcript.Confidence,
		segments,
		transcript.Provider,
		transcript.CreatedAt,
	)
	if err != nil {
		if isPgCode(err, pgForeignKeyViolationCode) {
			return fmt.Errorf("%w: note with ID %s not found",
				store.ErrInvalidEntity, transcript.NoteID)
		}
		log.Error("failed to save transcript",
			slog.String("error", err.Error()),
			slog.String("note_id", transcript.NoteID.String()))
		return err
	}

	log.Debug("transcript saved",
		slog.String("note_id", transcript.NoteID.String()),
		slog.String("transcript_id", transcript.ID.String()))
	return nil
}

// GetTranscriptByNote implements store.TranscriptStore.GetTranscriptByNote.
// Returns store.ErrTranscriptNotFound if the note has no transcript.
func (s *PostgresTranscriptStore) GetTranscriptByNote(
	ctx context.Context,
	noteID uuid.UUID,
) (*domain.Transcript, error) {
	query := `
		SELECT id, note_id, text, language, confidence, segments, provider, created_at
		FROM transcripts
		WHERE note_id = $1
	`
	var transcript domain.Transcript
	var segments []byte
	err := s.db.QueryRowContext(ctx, query, noteID).Scan(
		&transcript.ID,
		&transcript.NoteID,
		&transcript.Text,
		&transcript.Language,
		&transcript.Confidence,
		&segments,
		&transcript.Provider,
		&transcript.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, store.ErrTranscriptNotFound)
	}
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &transcript.Segments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcript segments: %w", err)
		}
	}
	return &transcript, nil
}
