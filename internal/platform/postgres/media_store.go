package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/platform/logger"
	"github.com/voxnote/voxnote-api/internal/store"
)

// PostgresMediaStore implements the store.MediaStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMediaStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMediaStore creates a new PostgreSQL implementation of the MediaStore interface.
func NewPostgresMediaStore(db store.DBTX, logger *slog.Logger) *PostgresMediaStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMediaStore{
		db:     db,
		logger: logger.With(slog.String("component", "media_store")),
	}
}

// Ensure PostgresMediaStore implements store.MediaStore interface
var _ store.MediaStore = (*PostgresMediaStore)(nil)

// CreateMedia implements store.MediaStore.CreateMedia.
// Returns store.ErrInvalidEntity if the note ID does not exist.
func (s *PostgresMediaStore) CreateMedia(ctx context.Context, media *domain.Media) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := media.Validate(); err != nil {
		log.Warn("media validation failed during create",
			slog.String("error", err.Error()),
			slog.String("media_id", media.ID.String()))
		return err
	}

	query := `
		INSERT INTO media (id, note_id, storage_key, mime_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		media.ID,
		media.NoteID,
		media.StorageKey,
		media.MimeType,
		media.SizeBytes,
		media.CreatedAt,
	)
	if err != nil {
		if isPgCode(err, pgForeignKeyViolationCode) {
			return fmt.Errorf("%w: note with ID %s not found",
				store.ErrInvalidEntity, media.NoteID)
		}
		log.Error("failed to create media",
			slog.String("error", err.Error()),
			slog.String("media_id", media.ID.String()))
		return mapError(err, store.ErrMediaNotFound)
	}
	return nil
}

// GetMedia implements store.MediaStore.GetMedia.
// Returns store.ErrMediaNotFound if the record does not exist.
func (s *PostgresMediaStore) GetMedia(ctx context.Context, id uuid.UUID) (*domain.Media, error) {
	query := `
		SELECT id, note_id, storage_key, mime_type, size_bytes, created_at
		FROM media
		WHERE id = $1
	`
	return s.scanMedia(ctx, query, id)
}

// GetMediaByNote implements store.MediaStore.GetMediaByNote, returning the
// most recently uploaded media for the note.
func (s *PostgresMediaStore) GetMediaByNote(ctx context.Context, noteID uuid.UUID) (*domain.Media, error) {
	query := `
		SELECT id, note_id, storage_key, mime_type, size_bytes, created_at
		FROM media
		WHERE note_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanMedia(ctx, query, noteID)
}

func (s *PostgresMediaStore) scanMedia(ctx context.Context, query string, arg any) (*domain.Media, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var media domain.Media
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&media.ID,
		&media.NoteID,
		&media.StorageKey,
		&media.MimeType,
		&media.SizeBytes,
		&media.CreatedAt,
	)
	if err != nil {
		mapped := mapError(err, store.ErrMediaNotFound)
		if !errors.Is(mapped, store.ErrMediaNotFound) {
			log.Error("failed to get media", slog.String("error", err.Error()))
		}
		return nil, mapped
	}
	return &media, nil
}
