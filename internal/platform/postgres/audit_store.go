package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/platform/logger"
	"github.com/voxnote/voxnote-api/internal/store"
)

// PostgresAuditStore implements the store.AuditStore interface using a
// PostgreSQL database as the storage backend. The table is append-only;
// there are no update or delete paths.
type PostgresAuditStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAuditStore creates a new PostgreSQL implementation of the AuditStore interface.
func NewPostgresAuditStore(db store.DBTX, logger *slog.Logger) *PostgresAuditStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAuditStore{
		db:     db,
		logger: logger.With(slog.String("component", "audit_store")),
	}
}

// Ensure PostgresAuditStore implements store.AuditStore interface
var _ store.AuditStore = (*PostgresAuditStore)(nil)

// RecordAuditEvent implements store.AuditStore.RecordAuditEvent.
func (s *PostgresAuditStore) RecordAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if event == nil || event.Type == "" {
		return domain.ErrEmptyAuditEventType
	}

	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (id, type, user_id, note_id, correlation_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.Type,
		event.UserID,
		event.NoteID,
		event.CorrelationID,
		metadata,
		event.CreatedAt,
	)
	if err != nil {
		log.Error("failed to record audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.Type)))
		return err
	}
	return nil
}
