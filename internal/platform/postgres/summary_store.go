package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/platform/logger"
	"github.com/voxnote/voxnote-api/internal/store"
)

// PostgresSummaryStore implements the store.SummaryStore interface
// using a PostgreSQL database as the storage backend. It holds a *sql.DB
// rather than a DBTX because SaveSummaryAndActions opens its own
// transaction.
type PostgresSummaryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSummaryStore creates a new PostgreSQL implementation of the SummaryStore interface.
func NewPostgresSummaryStore(db *sql.DB, logger *slog.Logger) *PostgresSummaryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSummaryStore{
		db:     db,
		logger: logger.With(slog.String("component", "summary_store")),
	}
}

// Ensure PostgresSummaryStore implements store.SummaryStore interface
var _ store.SummaryStore = (*PostgresSummaryStore)(nil)

// SaveSummaryAndActions implements store.SummaryStore.SaveSummaryAndActions.
// The summary upsert and the action batch replacement run in one
// transaction, so a replayed summarize job replaces its own earlier output
// and can never leave a summary without its actions.
func (s *PostgresSummaryStore) SaveSummaryAndActions(
	ctx context.Context,
	summary *domain.Summary,
	actions []*domain.Action,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := summary.Validate(); err != nil {
		log.Warn("summary validation failed during save",
			slog.String("error", err.Error()),
			slog.String("note_id", summary.NoteID.String()))
		return err
	}
	for _, action := range actions {
		if err := action.Validate(); err != nil {
			log.Warn("action validation failed during save",
				slog.String("error", err.Error()),
				slog.String("note_id", summary.NoteID.String()))
			return err
		}
	}

	bullets, err := json.Marshal(summary.Bullets)
	if err != nil {
		return fmt.Errorf("failed to marshal summary bullets: %w", err)
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		upsert := `
			INSERT INTO summaries (id, note_id, tl_dr, bullets, provider, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (note_id) DO UPDATE SET
				id = EXCLUDED.id,
				tl_dr = EXCLUDED.tl_dr,
				bullets = EXCLUDED.bullets,
				provider = EXCLUDED.provider,
				created_at = EXCLUDED.created_at
		`
		_, err := tx.ExecContext(
			ctx,
			upsert,
			summary.ID,
			summary.NoteID,
			summary.TLDR,
			bullets,
			summary.Provider,
			summary.CreatedAt,
		)
		if err != nil {
			if isPgCode(err, pgForeignKeyViolationCode) {
				return fmt.Errorf("%w: note with ID %s not found",
					store.ErrInvalidEntity, summary.NoteID)
			}
			return fmt.Errorf("failed to upsert summary: %w", err)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM actions WHERE note_id = $1`, summary.NoteID)
		if err != nil {
			return fmt.Errorf("failed to clear prior actions: %w", err)
		}

		insert := `
			INSERT INTO actions (id, note_id, text, done, due_suggested, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, action := range actions {
			_, err := tx.ExecContext(
				ctx,
				insert,
				action.ID,
				action.NoteID,
				action.Text,
				action.Done,
				action.DueSuggested,
				action.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert action: %w", err)
			}
		}

		log.Debug("summary and actions saved",
			slog.String("note_id", summary.NoteID.String()),
			slog.Int("action_count", len(actions)))
		return nil
	})
}

// GetSummaryByNote implements store.SummaryStore.GetSummaryByNote.
// Returns store.ErrNotFound if the note has no summary.
func (s *PostgresSummaryStore) GetSummaryByNote(ctx context.Context, noteID uuid.UUID) (*domain.Summary, error) {
	query := `
		SELECT id, note_id, tl_dr, bullets, provider, created_at
		FROM summaries
		WHERE note_id = $1
	`
	var summary domain.Summary
	var bullets []byte
	err := s.db.QueryRowContext(ctx, query, noteID).Scan(
		&summary.ID,
		&summary.NoteID,
		&summary.TLDR,
		&bullets,
		&summary.Provider,
		&summary.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, store.ErrNotFound)
	}
	if len(bullets) > 0 {
		if err := json.Unmarshal(bullets, &summary.Bullets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary bullets: %w", err)
		}
	}
	return &summary, nil
}
