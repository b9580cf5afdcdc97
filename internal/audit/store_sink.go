package audit

import (
	"context"
	"fmt"

	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/store"
)

// StoreSink appends audit events to the durable audit store.
type StoreSink struct {
	store store.AuditStore
}

// NewStoreSink creates a sink backed by the given audit store.
func NewStoreSink(auditStore store.AuditStore) *StoreSink {
	return &StoreSink{store: auditStore}
}

// Record implements Sink.
func (s *StoreSink) Record(ctx context.Context, event *domain.AuditEvent) error {
	if err := s.store.RecordAuditEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}
